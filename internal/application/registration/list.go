package registration

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/baechuer/eventhub/internal/domain"
	"github.com/google/uuid"
)

type ListFilter struct {
	Status string // all | pending | approved | rejected
	Limit  int
	Cursor string
}

type ListResult struct {
	Items      []domain.RequestView
	NextCursor string
}

// ListForAdmin returns every request, newest first.
func (s *Service) ListForAdmin(ctx context.Context, actorRole string, f ListFilter) (ListResult, error) {
	if err := requireAdmin(actorRole); err != nil {
		return ListResult{}, err
	}
	return s.list(ctx, "", f)
}

// ListMine returns the caller's own requests, newest first.
func (s *Service) ListMine(ctx context.Context, userID string, f ListFilter) (ListResult, error) {
	if strings.TrimSpace(userID) == "" {
		return ListResult{}, domain.ErrTokenMissing()
	}
	return s.list(ctx, userID, f)
}

func (s *Service) list(ctx context.Context, userID string, f ListFilter) (ListResult, error) {
	status, err := domain.ParseStatusFilter(f.Status)
	if err != nil {
		return ListResult{}, err
	}
	after, err := decodeCursor(f.Cursor)
	if err != nil {
		return ListResult{}, domain.ErrInvalidCursor()
	}

	items, next, err := s.repo.List(ctx, ListQuery{
		Status: status,
		UserID: userID,
		Limit:  clampLimit(f.Limit),
		After:  after,
	})
	if err != nil {
		return ListResult{}, err
	}
	if items == nil {
		items = []domain.RequestView{}
	}
	return ListResult{Items: items, NextCursor: encodeCursor(next)}, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}

// cursor = base64url("RFC3339Nano|uuid")
func encodeCursor(c *domain.KeysetCursor) string {
	if c == nil {
		return ""
	}
	raw := c.At.UTC().Format(time.RFC3339Nano) + "|" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(s string) (*domain.KeysetCursor, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	at, id, ok := strings.Cut(string(b), "|")
	if !ok {
		return nil, domain.ErrInvalidCursor()
	}
	t, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, err
	}
	return &domain.KeysetCursor{At: t.UTC(), ID: id}, nil
}
