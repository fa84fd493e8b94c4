package registration

import (
	"context"
	"time"

	"github.com/baechuer/eventhub/internal/application/notify"
	"github.com/baechuer/eventhub/internal/domain"
)

type Clock interface {
	Now() time.Time
}

type Repo interface {
	// Create maps the open-request unique index to domain.ErrAlreadyRequested.
	Create(ctx context.Context, r *domain.RegistrationRequest) error
	List(ctx context.Context, q ListQuery) ([]domain.RequestView, *domain.KeysetCursor, error)

	WithTx(ctx context.Context, fn func(tx TxRepo) error) error
}

// TxRepo is the transactional view used by review.
// LockEvent takes the row lock that serializes approvals of one event.
type TxRepo interface {
	GetRequestForUpdate(ctx context.Context, id string) (*domain.RegistrationRequest, error)
	LockEvent(ctx context.Context, id string) (*domain.Event, error)
	UpdateRequestStatus(ctx context.Context, r *domain.RegistrationRequest) error
	InsertAttendee(ctx context.Context, eventID, userID string, at time.Time) error
	GetUser(ctx context.Context, id string) (domain.User, error)
	InsertOutbox(ctx context.Context, msg notify.OutboxMessage) error
}

type EventReader interface {
	GetByID(ctx context.Context, id string) (*domain.Event, error)
}

// CacheInvalidator drops cached views of an event after attendees change.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, eventID string)
}

type ListQuery struct {
	Status domain.RequestStatus // empty means all
	UserID string               // empty means every user
	Limit  int
	After  *domain.KeysetCursor
}

type AuditFunc func(action string, fields map[string]string)
