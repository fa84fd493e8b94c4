package event

import (
	"context"
	"fmt"

	"github.com/baechuer/eventhub/internal/domain"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

// SetImage stores data as the event's image and returns the updated event.
func (s *Service) SetImage(ctx context.Context, actorID, actorRole, eventID string, data []byte) (*domain.Event, error) {
	if err := requireAdmin(actorRole); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, domain.ErrMissingField("image")
	}
	if int64(len(data)) > s.maxUploadSize {
		return nil, domain.ErrImageTooLarge(s.maxUploadSize)
	}
	if _, err := uuid.Parse(eventID); err != nil {
		return nil, domain.ErrEventNotFound()
	}

	e, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	contentType, ext, err := s.inspec.Inspect(data)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("events/%s/%s.%s", e.ID, uuid.NewString(), ext)
	if err := s.images.Put(ctx, key, contentType, data); err != nil {
		return nil, domain.ErrStorageUnavailable(err)
	}

	now := s.clock.Now().UTC()
	if err := s.repo.SetImageKey(ctx, e.ID, key, now); err != nil {
		s.removeImage(ctx, key)
		return nil, err
	}
	if previous := e.ImageKey; previous != "" && previous != key {
		s.removeImage(ctx, previous)
	}
	e.ImageKey = key
	e.UpdatedAt = now

	s.Invalidate(ctx, e.ID)
	s.audit("event.image", map[string]string{
		"event_id": e.ID,
		"actor_id": actorID,
		"key":      key,
	})

	return e, nil
}

// removeImage drops an object no event points at. A failure only leaves an orphan behind.
func (s *Service) removeImage(ctx context.Context, key string) {
	if err := s.images.Delete(ctx, key); err != nil {
		zlog.Warn().Err(err).Str("key", key).Msg("delete image failed")
	}
}
