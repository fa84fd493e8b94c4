package event

import (
	"context"
	"time"

	"github.com/baechuer/eventhub/internal/domain"
	zlog "github.com/rs/zerolog/log"
)

type Service struct {
	repo   EventRepo
	cache  Cache // optional
	images ImageStore
	inspec ImageInspector
	clock  Clock
	audit  AuditFunc

	ttlDetails    time.Duration
	ttlList       time.Duration
	maxUploadSize int64
}

type Config struct {
	TTLDetails    time.Duration
	TTLList       time.Duration
	MaxUploadSize int64
}

func New(
	repo EventRepo,
	clock Clock,
	cache Cache,
	images ImageStore,
	inspector ImageInspector,
	cfg Config,
) *Service {
	if cfg.TTLDetails == 0 {
		cfg.TTLDetails = 5 * time.Minute
	}
	if cfg.TTLList == 0 {
		cfg.TTLList = 15 * time.Second
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = 5 << 20
	}

	return &Service{
		repo:          repo,
		cache:         cache,
		images:        images,
		inspec:        inspector,
		clock:         clock,
		audit:         func(string, map[string]string) {},
		ttlDetails:    cfg.TTLDetails,
		ttlList:       cfg.TTLList,
		maxUploadSize: cfg.MaxUploadSize,
	}
}

func (s *Service) WithAudit(fn AuditFunc) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

func (s *Service) MaxUploadSize() int64 { return s.maxUploadSize }

// ImageURL resolves a stored image key for clients; empty key gives "".
func (s *Service) ImageURL(key string) string {
	if key == "" || s.images == nil {
		return ""
	}
	return s.images.PublicURL(key)
}

// Invalidate drops the cached details of one event and every cached list page.
// Registration review calls this after attendee changes commit.
func (s *Service) Invalidate(ctx context.Context, eventID string) {
	if s.cache == nil {
		return
	}
	if eventID != "" {
		key := cacheKeyEventDetails(eventID)
		if err := s.cache.Delete(ctx, key); err != nil {
			zlog.Warn().Err(err).Str("key", key).Msg("cache invalidate failed")
		}
	}
	if err := s.cache.DeletePrefix(ctx, cacheKeyListPrefix); err != nil {
		zlog.Warn().Err(err).Str("prefix", cacheKeyListPrefix).Msg("cache list invalidate failed")
	}
}

func requireAdmin(actorRole string) error {
	if !domain.IsAdmin(actorRole) {
		return domain.ErrInsufficientRole(string(domain.RoleAdmin))
	}
	return nil
}
