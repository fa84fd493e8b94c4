package domain

import (
	"strings"
	"time"
)

// Phase buckets events relative to "now" for browsing.
type Phase string

const (
	PhaseUpcoming Phase = "upcoming"
	PhaseLive     Phase = "live"
	PhasePast     Phase = "past"
)

func (p Phase) Valid() bool {
	return p == PhaseUpcoming || p == PhaseLive || p == PhasePast
}

func ParsePhase(s string) (Phase, bool) {
	p := Phase(strings.ToLower(strings.TrimSpace(s)))
	return p, p.Valid()
}

// PhaseOf returns live for anything on the current UTC calendar day,
// otherwise upcoming or past. The three buckets never overlap.
func PhaseOf(date, now time.Time) Phase {
	dayStart, dayEnd := DayBounds(now)
	d := date.UTC()
	switch {
	case !d.Before(dayStart) && d.Before(dayEnd):
		return PhaseLive
	case !d.Before(dayEnd):
		return PhaseUpcoming
	default:
		return PhasePast
	}
}

// DayBounds returns [start, end) of now's UTC calendar day.
func DayBounds(now time.Time) (time.Time, time.Time) {
	n := now.UTC()
	start := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

// PhaseRange converts a phase into a half-open date range; nil means unbounded.
func PhaseRange(p Phase, now time.Time) (from, to *time.Time) {
	start, end := DayBounds(now)
	switch p {
	case PhaseLive:
		return &start, &end
	case PhaseUpcoming:
		return &end, nil
	case PhasePast:
		return nil, &start
	}
	return nil, nil
}
