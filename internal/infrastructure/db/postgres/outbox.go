package postgres

import (
	"context"
	"database/sql"
	"math"
	"math/rand"
	"time"

	"github.com/baechuer/eventhub/internal/application/notify"
	"github.com/baechuer/eventhub/internal/metrics"
	zlog "github.com/rs/zerolog/log"
)

func insertOutbox(ctx context.Context, ex execer, msg notify.OutboxMessage) error {
	// next_attempt_at = created_at makes the row immediately eligible for polling
	_, err := ex.ExecContext(ctx, insertOutboxSQL,
		msg.MessageID,
		msg.RoutingKey,
		string(msg.Body),
		msg.CreatedAt.UTC(),
	)
	return err
}

type OutboxRepo struct {
	db *sql.DB
}

func NewOutboxRepo(db *sql.DB) *OutboxRepo { return &OutboxRepo{db: db} }

func (r *OutboxRepo) Enqueue(ctx context.Context, msg notify.OutboxMessage) error {
	return dbErr(insertOutbox(ctx, r.db, msg))
}

// --- worker ---

type outboxRow struct {
	ID         int64
	MessageID  string
	RoutingKey string
	Body       string
	Attempts   int
}

type OutboxConfig struct {
	Interval    time.Duration
	Batch       int
	MaxAttempts int
	// PublishTimeout bounds one publish call.
	PublishTimeout time.Duration
	// Reservation is how long a claimed row stays invisible to other workers.
	// It never drops below the worst case for a full batch, so a second
	// instance cannot reclaim rows this one is still publishing.
	Reservation time.Duration
}

// markTimeout bounds the status update after each publish.
const markTimeout = 3 * time.Second

// minReservation is the time one worker may spend on a full batch:
// every row publishes and records its outcome one after another.
func (c OutboxConfig) minReservation() time.Duration {
	return time.Duration(c.Batch)*(c.PublishTimeout+markTimeout) + 30*time.Second
}

// OutboxWorker publishes pending outbox rows using a claim-check loop:
//  1. claim rows in a short tx (FOR UPDATE SKIP LOCKED, status=processing)
//  2. publish without holding any lock
//  3. record the outcome per row
//
// A worker that dies after step 1 leaves rows in processing; they become due
// again once the reservation expires.
type OutboxWorker struct {
	db     *sql.DB
	pub    notify.Publisher
	cfg    OutboxConfig
	now    func() time.Time
	onDead func(messageID, routingKey string, attempts int, lastErr string)
}

func NewOutboxWorker(db *sql.DB, pub notify.Publisher, cfg OutboxConfig) *OutboxWorker {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 10 * time.Second
	}
	if floor := cfg.minReservation(); cfg.Reservation < floor {
		cfg.Reservation = floor
	}
	return &OutboxWorker{
		db:     db,
		pub:    pub,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
		onDead: func(string, string, int, string) {},
	}
}

// OnDead registers a hook for messages that exhausted their attempts.
func (w *OutboxWorker) OnDead(fn func(messageID, routingKey string, attempts int, lastErr string)) *OutboxWorker {
	if fn != nil {
		w.onDead = fn
	}
	return w
}

// Start polls until ctx is done. The returned channel closes when the loop exits.
func (w *OutboxWorker) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		// jitter so several instances do not poll in lockstep
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(rand.Intn(1000)) * time.Millisecond):
		}

		ticker := time.NewTicker(w.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := w.ProcessBatch(ctx); err != nil && ctx.Err() == nil {
					zlog.Error().Err(err).Msg("outbox batch failed")
				}
			}
		}
	}()
	return done
}

// ProcessBatch claims and publishes up to Batch due rows and reports how many it claimed.
func (w *OutboxWorker) ProcessBatch(ctx context.Context) (int, error) {
	batch, err := w.claim(ctx)
	if err != nil {
		return 0, err
	}
	for _, item := range batch {
		w.processOne(ctx, item)
	}
	return len(batch), nil
}

func (w *OutboxWorker) claim(ctx context.Context) ([]outboxRow, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := w.db.BeginTx(claimCtx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(claimCtx, selectOutboxClaimsSQL, w.cfg.Batch)
	if err != nil {
		return nil, err
	}

	var batch []outboxRow
	for rows.Next() {
		var item outboxRow
		if err := rows.Scan(&item.ID, &item.MessageID, &item.RoutingKey, &item.Body, &item.Attempts); err != nil {
			rows.Close()
			return nil, err
		}
		batch = append(batch, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(batch) == 0 {
		return nil, tx.Commit()
	}

	reservation := w.now().Add(w.cfg.Reservation)
	for _, item := range batch {
		if _, err := tx.ExecContext(claimCtx, updateOutboxClaimSQL, item.ID, reservation); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return batch, nil
}

func (w *OutboxWorker) processOne(ctx context.Context, item outboxRow) {
	pubCtx, cancel := context.WithTimeout(ctx, w.cfg.PublishTimeout)
	defer cancel()

	err := w.pub.PublishEvent(pubCtx, item.RoutingKey, item.MessageID, []byte(item.Body))

	resCtx, cancelRes := context.WithTimeout(ctx, markTimeout)
	defer cancelRes()

	if err == nil {
		metrics.RecordOutboxPublished()
		if _, err := w.db.ExecContext(resCtx, markOutboxSentSQL, item.ID, w.now()); err != nil {
			zlog.Error().Err(err).Str("message_id", item.MessageID).Msg("outbox mark sent failed")
		}
		return
	}

	errMsg := err.Error()
	attempts := item.Attempts + 1

	if attempts >= w.cfg.MaxAttempts || notify.IsPermanent(err) {
		metrics.RecordOutboxFailed(true)
		if _, err := w.db.ExecContext(resCtx, markOutboxDeadSQL, item.ID, errMsg); err != nil {
			zlog.Error().Err(err).Str("message_id", item.MessageID).Msg("outbox mark dead failed")
		}
		w.onDead(item.MessageID, item.RoutingKey, attempts, errMsg)
		return
	}

	metrics.RecordOutboxFailed(false)
	nextAttempt := w.now().Add(backoff(item.Attempts))
	if _, err := w.db.ExecContext(resCtx, markOutboxFailedSQL, item.ID, nextAttempt, errMsg); err != nil {
		zlog.Error().Err(err).Str("message_id", item.MessageID).Msg("outbox mark retry failed")
	}
	zlog.Warn().Err(err).
		Str("message_id", item.MessageID).
		Int("attempts", attempts).
		Time("next_attempt_at", nextAttempt).
		Msg("outbox publish failed")
}

const maxBackoff = 10 * time.Minute

// backoff is 2^attempts seconds plus up to 1s of jitter, capped at maxBackoff.
func backoff(attempts int) time.Duration {
	secs := math.Min(math.Pow(2, float64(attempts)), maxBackoff.Seconds())
	d := time.Duration(secs * float64(time.Second))
	return d + time.Duration(rand.Intn(1000))*time.Millisecond
}
