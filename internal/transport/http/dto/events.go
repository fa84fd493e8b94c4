package dto

import (
	"time"

	"github.com/baechuer/eventhub/internal/domain"
)

const timeLayout = time.RFC3339

type CreateEventRequest struct {
	Title        string    `json:"title" validate:"required,max=120"`
	Date         time.Time `json:"date" validate:"required"`
	Location     string    `json:"location" validate:"required,max=200"`
	Description  string    `json:"description" validate:"required,max=4000"`
	Category     string    `json:"category" validate:"required,category"`
	MaxAttendees int       `json:"max_attendees" validate:"min=1"`
}

// EventResp is the stable API response model.
// Derived fields are computed at response time, never stored.
type EventResp struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	MaxAttendees int      `json:"max_attendees"`
	Attendees    []string `json:"attendees"`
	ImageURL     string   `json:"image_url,omitempty"`

	// Derived
	AttendeeCount  int    `json:"attendee_count"`
	SpotsRemaining int    `json:"spots_remaining"`
	Phase          string `json:"phase"`
}

type PageResp[T any] struct {
	Items    []T `json:"items"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

func ToEventResp(e *domain.Event, imageURL string, now time.Time) EventResp {
	attendees := e.Attendees
	if attendees == nil {
		attendees = []string{}
	}
	return EventResp{
		ID:             e.ID,
		Title:          e.Title,
		Date:           e.Date.UTC(),
		Location:       e.Location,
		Description:    e.Description,
		Category:       string(e.Category),
		CreatedBy:      e.CreatedBy,
		CreatedAt:      e.CreatedAt.UTC(),
		UpdatedAt:      e.UpdatedAt.UTC(),
		MaxAttendees:   e.MaxAttendees,
		Attendees:      attendees,
		ImageURL:       imageURL,
		AttendeeCount:  e.AttendeeCount(),
		SpotsRemaining: e.SpotsRemaining(),
		Phase:          string(e.Phase(now)),
	}
}
