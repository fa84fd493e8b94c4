package event

import (
	"context"
	"time"

	"github.com/baechuer/eventhub/internal/domain"
)

type CreateCmd struct {
	Title        string
	Date         time.Time
	Location     string
	Description  string
	Category     string
	MaxAttendees int
}

func (s *Service) Create(ctx context.Context, actorID, actorRole string, cmd CreateCmd) (*domain.Event, error) {
	if err := requireAdmin(actorRole); err != nil {
		return nil, err
	}

	e, err := domain.NewEvent(actorID, cmd.Title, cmd.Location, cmd.Description, cmd.Category,
		cmd.Date, cmd.MaxAttendees, s.clock.Now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}

	s.Invalidate(ctx, "")
	s.audit("event.create", map[string]string{
		"event_id": e.ID,
		"actor_id": actorID,
		"title":    e.Title,
	})

	return e, nil
}
