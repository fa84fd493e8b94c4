package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/baechuer/eventhub/internal/domain"
	pkgctx "github.com/baechuer/eventhub/internal/pkg/context"
	"github.com/google/uuid"
)

const (
	Version  = 1
	Producer = "eventhub"

	// RoutingKeyMail is the only routing key emitted today.
	RoutingKeyMail = "mail.send"
)

// Mail is the payload the webhook expects: {subject, message, email}.
type Mail struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
	Email   string `json:"email"`
}

func (m Mail) Validate() error {
	if strings.TrimSpace(m.Email) == "" {
		return domain.ErrMissingField("email")
	}
	if strings.TrimSpace(m.Subject) == "" {
		return domain.ErrMissingField("subject")
	}
	return nil
}

func SignupMail(email string) Mail {
	return Mail{
		Subject: "Signup Confirmation",
		Message: "Your account has been successfully created!",
		Email:   email,
	}
}

func LoginMail(email string) Mail {
	return Mail{
		Subject: "Login Notification",
		Message: "You have successfully logged in!",
		Email:   email,
	}
}

func ApprovedMail(email, eventTitle string) Mail {
	return Mail{
		Subject: "Registration Approved",
		Message: fmt.Sprintf("Your registration for %q has been approved. See you there!", eventTitle),
		Email:   email,
	}
}

func RejectedMail(email, eventTitle string) Mail {
	return Mail{
		Subject: "Registration Rejected",
		Message: fmt.Sprintf("Your registration for %q was not approved.", eventTitle),
		Email:   email,
	}
}

// Envelope wraps every outbox body.
// Consumers rely on version/producer/message_id/occurred_at + payload; trace_id is optional.
type Envelope[T any] struct {
	Version    int       `json:"version"`
	Producer   string    `json:"producer"`
	MessageID  string    `json:"message_id"`
	TraceID    string    `json:"trace_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    T         `json:"payload"`
}

type OutboxMessage struct {
	MessageID  string
	RoutingKey string
	Body       []byte
	CreatedAt  time.Time
}

// NewMailOutbox builds the outbox row for m. Call it inside the transaction
// that makes the mail true so both commit together.
func NewMailOutbox(ctx context.Context, m Mail, now time.Time) (OutboxMessage, error) {
	id := uuid.NewString()
	env := Envelope[Mail]{
		Version:    Version,
		Producer:   Producer,
		MessageID:  id,
		TraceID:    pkgctx.GetRequestID(ctx),
		OccurredAt: now.UTC(),
		Payload:    m,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return OutboxMessage{}, err
	}
	return OutboxMessage{
		MessageID:  id,
		RoutingKey: RoutingKeyMail,
		Body:       body,
		CreatedAt:  now.UTC(),
	}, nil
}

// DecodeMail parses an outbox body. Malformed bodies are permanent failures.
func DecodeMail(body []byte) (Envelope[Mail], error) {
	var env Envelope[Mail]
	if err := json.Unmarshal(body, &env); err != nil {
		return env, Permanent(fmt.Errorf("decode mail envelope: %w", err))
	}
	if err := env.Payload.Validate(); err != nil {
		return env, Permanent(err)
	}
	return env, nil
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return "permanent: " + p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
