package notify

import (
	"context"
	"fmt"
)

// Publisher moves an already-serialized outbox body to the broker.
type Publisher interface {
	PublishEvent(ctx context.Context, routingKey, messageID string, body []byte) error
}

// MailSender delivers one mail to the webhook.
type MailSender interface {
	Send(ctx context.Context, m Mail) error
}

// DirectPublisher skips the broker and hands mail bodies straight to the sender.
// Used when no RABBIT_URL is configured.
type DirectPublisher struct {
	Sender MailSender
}

func (d DirectPublisher) PublishEvent(ctx context.Context, routingKey, messageID string, body []byte) error {
	if routingKey != RoutingKeyMail {
		return Permanent(fmt.Errorf("unsupported routing key %q", routingKey))
	}
	env, err := DecodeMail(body)
	if err != nil {
		return err
	}
	return d.Sender.Send(ctx, env.Payload)
}
