package audit

import (
	"sort"

	"github.com/rs/zerolog"
)

// Logger writes audit lines for admin decisions and event changes.
type Logger struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Logger {
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
	}
}

// Record logs one action with its fields. Its signature matches the services'
// AuditFunc so it can be passed to WithAudit directly.
func (l *Logger) Record(action string, fields map[string]string) {
	ev := l.log.Info().Str("action", action)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ev = ev.Str(k, fields[k])
	}
	ev.Msg("audit")
}

// OutboxMessageDead logs a mail that exhausted its retries.
func (l *Logger) OutboxMessageDead(messageID, routingKey string, attempts int, lastErr string) {
	l.log.Error().
		Str("action", "outbox_dead").
		Str("message_id", messageID).
		Str("routing_key", routingKey).
		Int("attempts", attempts).
		Str("last_error", lastErr).
		Msg("outbox message moved to dead status")
}
