package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/baechuer/eventhub/internal/domain"
	"github.com/baechuer/eventhub/internal/logger"
	"github.com/baechuer/eventhub/internal/transport/http/response"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db          Pinger
	mailCircuit func() string // optional
}

func NewHealthHandler(db Pinger) *HealthHandler { return &HealthHandler{db: db} }

// WithMailCircuit adds the mail webhook breaker state to readiness output.
// An open breaker does not make the service unready: the outbox keeps mails until it closes.
func (h *HealthHandler) WithMailCircuit(state func() string) *HealthHandler {
	h.mailCircuit = state
	return h
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{"status": "ok"})
}

// Readyz reports ready only while the database answers.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		logger.WithCtx(r.Context()).Warn().Err(err).Msg("readiness check failed")
		response.WriteError(w, r, domain.ErrDBUnavailable(err))
		return
	}
	out := map[string]string{"status": "ready"}
	if h.mailCircuit != nil {
		out["mail_circuit"] = h.mailCircuit()
	}
	response.OK(w, out)
}
