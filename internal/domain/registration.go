package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

func (s RequestStatus) Valid() bool {
	return s == RequestPending || s == RequestApproved || s == RequestRejected
}

// ParseStatusFilter accepts "all" (or empty) as no filter.
func ParseStatusFilter(s string) (RequestStatus, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "all" {
		return "", nil
	}
	st := RequestStatus(s)
	if !st.Valid() {
		return "", ErrInvalidField("status", "must be one of: all, pending, approved, rejected")
	}
	return st, nil
}

type RegistrationRequest struct {
	ID               string
	EventID          string
	UserID           string
	RegistrationDate time.Time
	Status           RequestStatus

	ReviewedBy *string
	ReviewedAt *time.Time
}

func NewRegistrationRequest(eventID, userID string, now time.Time) (*RegistrationRequest, error) {
	eventID = strings.TrimSpace(eventID)
	userID = strings.TrimSpace(userID)
	if eventID == "" {
		return nil, ErrMissingField("event_id")
	}
	if userID == "" {
		return nil, ErrMissingField("user_id")
	}
	return &RegistrationRequest{
		ID:               uuid.NewString(),
		EventID:          eventID,
		UserID:           userID,
		RegistrationDate: now.UTC(),
		Status:           RequestPending,
	}, nil
}

func (r *RegistrationRequest) Approve(adminID string, now time.Time) error {
	return r.review(RequestApproved, adminID, now)
}

func (r *RegistrationRequest) Reject(adminID string, now time.Time) error {
	return r.review(RequestRejected, adminID, now)
}

func (r *RegistrationRequest) review(to RequestStatus, adminID string, now time.Time) error {
	if r.Status != RequestPending {
		return ErrRequestNotPending(r.Status)
	}
	t := now.UTC()
	r.Status = to
	r.ReviewedBy = &adminID
	r.ReviewedAt = &t
	return nil
}

// RequestView is a request joined with the event and requester it references.
// EventTitle is "Event Not Found" when the event row is gone.
type RequestView struct {
	RegistrationRequest

	EventTitle string
	EventDate  *time.Time
	UserEmail  string
	UserName   string
}

const MissingEventTitle = "Event Not Found"
