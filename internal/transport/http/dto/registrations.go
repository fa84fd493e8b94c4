package dto

import (
	"time"

	"github.com/baechuer/eventhub/internal/domain"
)

type RegistrationResp struct {
	ID               string     `json:"id"`
	EventID          string     `json:"event_id"`
	UserID           string     `json:"user_id"`
	RegistrationDate time.Time  `json:"registration_date"`
	Status           string     `json:"status"`
	ReviewedBy       *string    `json:"reviewed_by,omitempty"`
	ReviewedAt       *time.Time `json:"reviewed_at,omitempty"`
}

// RequestViewResp adds the joined event and requester details.
type RequestViewResp struct {
	RegistrationResp

	EventTitle string     `json:"event_title"`
	EventDate  *time.Time `json:"event_date,omitempty"`
	UserEmail  string     `json:"user_email,omitempty"`
	UserName   string     `json:"user_name,omitempty"`
}

type CursorPage[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

func ToRegistrationResp(r *domain.RegistrationRequest) RegistrationResp {
	return RegistrationResp{
		ID:               r.ID,
		EventID:          r.EventID,
		UserID:           r.UserID,
		RegistrationDate: r.RegistrationDate.UTC(),
		Status:           string(r.Status),
		ReviewedBy:       r.ReviewedBy,
		ReviewedAt:       r.ReviewedAt,
	}
}

func ToRequestViewResp(v domain.RequestView) RequestViewResp {
	return RequestViewResp{
		RegistrationResp: ToRegistrationResp(&v.RegistrationRequest),
		EventTitle:       v.EventTitle,
		EventDate:        v.EventDate,
		UserEmail:        v.UserEmail,
		UserName:         v.UserName,
	}
}
