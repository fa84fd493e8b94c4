package registration

import (
	"context"
	"strings"

	"github.com/baechuer/eventhub/internal/domain"
	"github.com/google/uuid"
)

type Service struct {
	repo   Repo
	events EventReader
	cache  CacheInvalidator // optional
	clock  Clock
	audit  AuditFunc
}

func New(repo Repo, events EventReader, cache CacheInvalidator, clock Clock) *Service {
	return &Service{
		repo:   repo,
		events: events,
		cache:  cache,
		clock:  clock,
		audit:  func(string, map[string]string) {},
	}
}

func (s *Service) WithAudit(fn AuditFunc) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

// Submit files a pending request for userID. Capacity and date are checked here
// only to fail fast; approval re-checks under the event lock.
func (s *Service) Submit(ctx context.Context, userID, eventID string) (*domain.RegistrationRequest, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrTokenMissing()
	}
	if _, err := uuid.Parse(eventID); err != nil {
		return nil, domain.ErrEventNotFound()
	}

	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if e.Phase(now) == domain.PhasePast {
		return nil, domain.ErrEventEnded()
	}
	if e.HasAttendee(userID) {
		return nil, domain.ErrAlreadyAttending()
	}
	if e.IsFull() {
		return nil, domain.ErrEventFull()
	}

	r, err := domain.NewRegistrationRequest(e.ID, userID, now)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func requireAdmin(actorRole string) error {
	if !domain.IsAdmin(actorRole) {
		return domain.ErrInsufficientRole(string(domain.RoleAdmin))
	}
	return nil
}
