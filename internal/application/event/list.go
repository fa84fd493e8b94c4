package event

import (
	"context"
	"strings"

	"github.com/baechuer/eventhub/internal/domain"
	zlog "github.com/rs/zerolog/log"
)

type ListFilter struct {
	Category string // "All" or empty means every category
	Phase    string // upcoming | live | past, empty means every phase
	Page     int
	PageSize int
}

func (f *ListFilter) Normalize() error {
	f.Category = strings.TrimSpace(f.Category)
	if f.Category == "" || strings.EqualFold(f.Category, domain.CategoryAll) {
		f.Category = ""
	} else {
		c, ok := domain.ParseCategory(f.Category)
		if !ok {
			return domain.ErrInvalidField("category", "unknown category")
		}
		f.Category = string(c)
	}

	f.Phase = strings.TrimSpace(f.Phase)
	if f.Phase != "" && !strings.EqualFold(f.Phase, "all") {
		p, ok := domain.ParsePhase(f.Phase)
		if !ok {
			return domain.ErrInvalidField("phase", "must be one of: upcoming, live, past")
		}
		f.Phase = string(p)
	} else {
		f.Phase = ""
	}

	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	if f.PageSize > 100 {
		f.PageSize = 100
	}
	return nil
}

type ListResult struct {
	Items    []*domain.Event
	Total    int
	Page     int
	PageSize int
}

func (s *Service) List(ctx context.Context, f ListFilter) (ListResult, error) {
	if err := f.Normalize(); err != nil {
		return ListResult{}, err
	}

	now := s.clock.Now()
	cacheKey := ""
	if s.cache != nil {
		cacheKey = cacheKeyList(f, now)
		var cached ListResult
		found, err := s.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			zlog.Warn().Err(err).Str("key", cacheKey).Msg("cache list get failed")
		} else if found {
			zlog.Debug().Str("key", cacheKey).Msg("cache list hit")
			return cached, nil
		}
	}

	q := ListQuery{
		Category: f.Category,
		Limit:    f.PageSize,
		Offset:   (f.Page - 1) * f.PageSize,
	}
	if f.Phase != "" {
		q.From, q.To = domain.PhaseRange(domain.Phase(f.Phase), now)
	}

	items, total, err := s.repo.List(ctx, q)
	if err != nil {
		return ListResult{}, err
	}
	if items == nil {
		items = []*domain.Event{}
	}

	res := ListResult{Items: items, Total: total, Page: f.Page, PageSize: f.PageSize}

	if s.cache != nil && len(res.Items) > 0 {
		if err := s.cache.Set(ctx, cacheKey, res, s.ttlList); err != nil {
			zlog.Warn().Err(err).Str("key", cacheKey).Msg("cache list set failed")
		}
	}

	return res, nil
}
