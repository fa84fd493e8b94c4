package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

type Event struct {
	ID           string
	Title        string
	Date         time.Time
	Location     string
	Description  string
	Category     Category
	MaxAttendees int
	Attendees    []string // user ids, in join order
	ImageKey     string   // object key in the image bucket; empty when unset

	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewEvent(createdBy, title, location, description, category string, date time.Time, maxAttendees int, now time.Time) (*Event, error) {
	createdBy = strings.TrimSpace(createdBy)
	title = strings.TrimSpace(title)
	location = strings.TrimSpace(location)
	description = strings.TrimSpace(description)

	if createdBy == "" {
		return nil, ErrMissingField("created_by")
	}
	if title == "" {
		return nil, ErrMissingField("title")
	}
	if utf8.RuneCountInString(title) > 120 {
		return nil, ErrInvalidField("title", "must be <= 120 chars")
	}
	if location == "" {
		return nil, ErrMissingField("location")
	}
	if utf8.RuneCountInString(location) > 200 {
		return nil, ErrInvalidField("location", "must be <= 200 chars")
	}
	if description == "" {
		return nil, ErrMissingField("description")
	}
	if utf8.RuneCountInString(description) > 4000 {
		return nil, ErrInvalidField("description", "must be <= 4000 chars")
	}
	cat, ok := ParseCategory(category)
	if !ok {
		return nil, ErrInvalidField("category", "must be one of: Technology, Business, Entertainment, Sports, Education")
	}
	if date.IsZero() {
		return nil, ErrMissingField("date")
	}
	if maxAttendees < 1 {
		return nil, ErrInvalidField("max_attendees", "must be >= 1")
	}

	return &Event{
		ID:           uuid.NewString(),
		Title:        title,
		Date:         date.UTC(),
		Location:     location,
		Description:  description,
		Category:     cat,
		MaxAttendees: maxAttendees,
		Attendees:    []string{},
		CreatedBy:    createdBy,
		CreatedAt:    now.UTC(),
		UpdatedAt:    now.UTC(),
	}, nil
}

func (e *Event) AttendeeCount() int { return len(e.Attendees) }

func (e *Event) SpotsRemaining() int {
	n := e.MaxAttendees - len(e.Attendees)
	if n < 0 {
		return 0
	}
	return n
}

func (e *Event) IsFull() bool { return len(e.Attendees) >= e.MaxAttendees }

func (e *Event) HasAttendee(userID string) bool {
	for _, id := range e.Attendees {
		if id == userID {
			return true
		}
	}
	return false
}

// AddAttendee appends userID while keeping len(Attendees) <= MaxAttendees.
func (e *Event) AddAttendee(userID string, now time.Time) error {
	if e.HasAttendee(userID) {
		return ErrAlreadyAttending()
	}
	if e.IsFull() {
		return ErrEventFull()
	}
	e.Attendees = append(e.Attendees, userID)
	e.UpdatedAt = now.UTC()
	return nil
}

func (e *Event) Phase(now time.Time) Phase {
	return PhaseOf(e.Date, now)
}
