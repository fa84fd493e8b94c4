package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/baechuer/eventhub/internal/application/notify"
	"github.com/baechuer/eventhub/internal/application/registration"
	"github.com/baechuer/eventhub/internal/domain"
)

type RegistrationRepo struct {
	db *sql.DB
}

func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

func (r *RegistrationRepo) Create(ctx context.Context, req *domain.RegistrationRequest) error {
	_, err := r.db.ExecContext(ctx, insertRequestSQL,
		req.ID, req.EventID, req.UserID, req.RegistrationDate, string(req.Status),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyRequested()
		}
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

// List reads requests newest first.
// cursor means "start after this item" in DESC order: (registration_date, id) < (cursor.At, cursor.ID)
func (r *RegistrationRepo) List(ctx context.Context, q registration.ListQuery) ([]domain.RequestView, *domain.KeysetCursor, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}

	var (
		conds []string
		args  []any
	)
	if q.Status != "" {
		args = append(args, string(q.Status))
		conds = append(conds, fmt.Sprintf("r.status = $%d", len(args)))
	}
	if q.UserID != "" {
		args = append(args, q.UserID)
		conds = append(conds, fmt.Sprintf("r.user_id = $%d", len(args)))
	}
	if q.After != nil {
		args = append(args, q.After.At, q.After.ID)
		conds = append(conds, fmt.Sprintf("(r.registration_date, r.id) < ($%d, $%d)", len(args)-1, len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	query := fmt.Sprintf(`
SELECT r.id, r.event_id, r.user_id, r.registration_date, r.status,
       r.reviewed_by, r.reviewed_at,
       e.title, e.date,
       COALESCE(u.email, ''), COALESCE(u.name, '')
FROM registration_requests r
LEFT JOIN events e ON e.id = r.event_id
LEFT JOIN users u ON u.id = r.user_id
%s
ORDER BY r.registration_date DESC, r.id DESC
LIMIT %d
`, where, limit+1)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	out := []domain.RequestView{}
	for rows.Next() {
		var v domain.RequestView
		var status string
		var title sql.NullString
		if err := rows.Scan(
			&v.ID, &v.EventID, &v.UserID, &v.RegistrationDate, &status,
			&v.ReviewedBy, &v.ReviewedAt,
			&title, &v.EventDate,
			&v.UserEmail, &v.UserName,
		); err != nil {
			return nil, nil, domain.ErrDBUnavailable(err)
		}
		v.Status = domain.RequestStatus(status)
		v.EventTitle = domain.MissingEventTitle
		if title.Valid {
			v.EventTitle = title.String
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, domain.ErrDBUnavailable(err)
	}

	var next *domain.KeysetCursor
	if len(out) > limit {
		last := out[limit-1]
		next = &domain.KeysetCursor{At: last.RegistrationDate, ID: last.ID}
		out = out[:limit]
	}
	return out, next, nil
}

func (r *RegistrationRepo) WithTx(ctx context.Context, fn func(tx registration.TxRepo) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
		ReadOnly:  false,
	})
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}

	defer func() {
		// in case fn panics, rollback to avoid a leaked tx
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&txRepo{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return domain.ErrDBUnavailable(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

type txRepo struct {
	tx *sql.Tx
}

func (t *txRepo) GetRequestForUpdate(ctx context.Context, id string) (*domain.RegistrationRequest, error) {
	var req domain.RegistrationRequest
	var status string
	err := t.tx.QueryRowContext(ctx, getRequestForUpdateSQL, id).Scan(
		&req.ID, &req.EventID, &req.UserID, &req.RegistrationDate, &status,
		&req.ReviewedBy, &req.ReviewedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRequestNotFound()
	}
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	req.Status = domain.RequestStatus(status)
	return &req, nil
}

// LockEvent locks the event row, then reads its attendees. Any writer of
// event_attendees holds this lock first, so the list cannot change underneath.
func (t *txRepo) LockEvent(ctx context.Context, id string) (*domain.Event, error) {
	var e domain.Event
	var category string
	err := t.tx.QueryRowContext(ctx, lockEventSQL, id).Scan(
		&e.ID, &e.Title, &e.Date, &e.Location, &e.Description, &category,
		&e.MaxAttendees, &e.ImageKey, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrEventNotFound()
	}
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	e.Category = domain.Category(category)

	rows, err := t.tx.QueryContext(ctx, listAttendeesSQL, id)
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	e.Attendees = []string{}
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, domain.ErrDBUnavailable(err)
		}
		e.Attendees = append(e.Attendees, uid)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	return &e, nil
}

func (t *txRepo) UpdateRequestStatus(ctx context.Context, req *domain.RegistrationRequest) error {
	_, err := t.tx.ExecContext(ctx, updateRequestStatusSQL,
		req.ID, string(req.Status), req.ReviewedBy, req.ReviewedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyRequested()
		}
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

func (t *txRepo) InsertAttendee(ctx context.Context, eventID, userID string, at time.Time) error {
	_, err := t.tx.ExecContext(ctx, insertAttendeeSQL, eventID, userID, at.UTC())
	if err != nil {
		switch pgCode(err) {
		case pgUniqueViolation:
			return domain.ErrAlreadyAttending()
		case pgForeignKeyViolation:
			return domain.ErrUserNotFound()
		}
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

func (t *txRepo) GetUser(ctx context.Context, id string) (domain.User, error) {
	return scanUser(t.tx.QueryRowContext(ctx, getUserByIDSQL, id))
}

func (t *txRepo) InsertOutbox(ctx context.Context, msg notify.OutboxMessage) error {
	return dbErr(insertOutbox(ctx, t.tx, msg))
}
