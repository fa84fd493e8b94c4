package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/baechuer/eventhub/internal/application/notify"
	"github.com/baechuer/eventhub/internal/metrics"
	zlog "github.com/rs/zerolog/log"
)

// StatusError is a non-2xx answer from the webhook.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("mail webhook returned %d: %s", e.StatusCode, e.Body)
}

type WebhookConfig struct {
	URL     string
	Timeout time.Duration
	// breaker knobs; zero values take the defaults below
	MaxFailures  int
	ResetTimeout time.Duration
}

// WebhookSender POSTs {subject, message, email} as JSON to the mail endpoint.
type WebhookSender struct {
	url     string
	client  *http.Client
	breaker *CircuitBreaker
}

func NewWebhookSender(cfg WebhookConfig) (*WebhookSender, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("mail webhook url is empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}

	breaker := NewCircuitBreaker(cfg.MaxFailures, cfg.ResetTimeout, 2).
		OnStateChange(func(s CircuitState) {
			metrics.SetCircuitState(int(s))
			zlog.Warn().Str("state", s.String()).Msg("mail webhook circuit changed")
		})

	return &WebhookSender{
		url:     cfg.URL,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
	}, nil
}

// Send delivers m. Errors wrapped with notify.Permanent will never succeed on retry:
// invalid mail and 4xx answers other than 408/429.
func (s *WebhookSender) Send(ctx context.Context, m notify.Mail) error {
	if err := m.Validate(); err != nil {
		metrics.RecordMailFailed("invalid")
		return notify.Permanent(err)
	}
	body, err := json.Marshal(m)
	if err != nil {
		metrics.RecordMailFailed("invalid")
		return notify.Permanent(err)
	}

	start := time.Now()
	// permanent answers are reported outside the breaker so a bad address
	// cannot open the circuit for everyone else
	var permanent error
	err = s.breaker.Call(func() error {
		perr := s.post(ctx, body)
		var se *StatusError
		if errors.As(perr, &se) && isPermanentStatus(se.StatusCode) {
			permanent = perr
			return nil
		}
		return perr
	})

	switch {
	case permanent != nil:
		metrics.RecordMailFailed("rejected")
		return notify.Permanent(permanent)
	case errors.Is(err, ErrCircuitOpen):
		metrics.RecordMailFailed("circuit_open")
		return err
	case err != nil:
		metrics.RecordMailFailed("transient")
		return err
	}

	metrics.RecordMailSent(time.Since(start))
	return nil
}

func (s *WebhookSender) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func isPermanentStatus(code int) bool {
	return code >= 400 && code < 500 &&
		code != http.StatusRequestTimeout &&
		code != http.StatusTooManyRequests
}

// State exposes the breaker state; /readyz reports it.
func (s *WebhookSender) State() CircuitState { return s.breaker.State() }

// LogSender writes mails to the log instead of sending them. Dev only.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, m notify.Mail) error {
	if err := m.Validate(); err != nil {
		return notify.Permanent(err)
	}
	zlog.Info().
		Str("email", m.Email).
		Str("subject", m.Subject).
		Msg("mail (log sender)")
	metrics.RecordMailSent(0)
	return nil
}
