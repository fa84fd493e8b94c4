package event

import (
	"context"
	"time"

	"github.com/baechuer/eventhub/internal/domain"
)

type Clock interface {
	Now() time.Time
}

type EventRepo interface {
	Create(ctx context.Context, e *domain.Event) error
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	List(ctx context.Context, q ListQuery) ([]*domain.Event, int, error)
	SetImageKey(ctx context.Context, id, key string, now time.Time) error
}

// ListQuery is a normalized ListFilter with the phase resolved into a date range.
type ListQuery struct {
	Category string
	From     *time.Time // inclusive
	To       *time.Time // exclusive
	Limit    int
	Offset   int
}

// Cache defines the behavior for our caching layer.
// Implementations must be best-effort: errors are logged by the caller, never surfaced.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, val any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

type ImageStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// ImageInspector validates raw upload bytes and reports what they are.
type ImageInspector interface {
	Inspect(data []byte) (contentType, ext string, err error)
}

// AuditFunc records a security relevant action.
type AuditFunc func(action string, fields map[string]string)
