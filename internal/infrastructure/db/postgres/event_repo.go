package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/baechuer/eventhub/internal/application/event"
	"github.com/baechuer/eventhub/internal/domain"
)

type EventRepo struct {
	db *sql.DB
}

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(s rowScanner) (*domain.Event, error) {
	var e domain.Event
	var category, attendeesJSON string
	if err := s.Scan(
		&e.ID, &e.Title, &e.Date, &e.Location, &e.Description, &category,
		&e.MaxAttendees, &e.ImageKey, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt,
		&attendeesJSON,
	); err != nil {
		return nil, err
	}
	e.Category = domain.Category(category)
	e.Attendees = []string{}
	if err := json.Unmarshal([]byte(attendeesJSON), &e.Attendees); err != nil {
		return nil, fmt.Errorf("decode attendees: %w", err)
	}
	return &e, nil
}

func (r *EventRepo) Create(ctx context.Context, e *domain.Event) error {
	_, err := r.db.ExecContext(ctx, insertEventSQL,
		e.ID, e.Title, e.Date, e.Location, e.Description, string(e.Category),
		e.MaxAttendees, e.ImageKey, e.CreatedBy, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return domain.ErrUserNotFound()
		}
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

func (r *EventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	e, err := scanEvent(r.db.QueryRowContext(ctx, getEventSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrEventNotFound()
	}
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	return e, nil
}

// List returns one page ordered by date ascending plus the total match count.
func (r *EventRepo) List(ctx context.Context, q event.ListQuery) ([]*domain.Event, int, error) {
	var (
		conds []string
		args  []any
	)
	if q.Category != "" {
		args = append(args, q.Category)
		conds = append(conds, fmt.Sprintf("e.category = $%d", len(args)))
	}
	if q.From != nil {
		args = append(args, q.From.UTC())
		conds = append(conds, fmt.Sprintf("e.date >= $%d", len(args)))
	}
	if q.To != nil {
		args = append(args, q.To.UTC())
		conds = append(conds, fmt.Sprintf("e.date < $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events e `+where, args...).Scan(&total); err != nil {
		return nil, 0, domain.ErrDBUnavailable(err)
	}

	query := fmt.Sprintf(`
SELECT%s
FROM events e
%s
ORDER BY e.date ASC, e.id ASC
LIMIT %d OFFSET %d
`, eventColumns, where, q.Limit, q.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	out := []*domain.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, domain.ErrDBUnavailable(err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domain.ErrDBUnavailable(err)
	}
	return out, total, nil
}

func (r *EventRepo) SetImageKey(ctx context.Context, id, key string, now time.Time) error {
	res, err := r.db.ExecContext(ctx, setEventImageSQL, id, key, now.UTC())
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrEventNotFound()
	}
	return nil
}
