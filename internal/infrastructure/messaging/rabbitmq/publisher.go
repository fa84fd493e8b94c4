package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DefaultExchange = "eventhub.events"

	// how long to wait for the broker's confirm before giving up on this attempt
	confirmWait = 5 * time.Second
)

var (
	ErrNoRoute = errors.New("rabbitmq: message returned unroutable")
	ErrNacked  = errors.New("rabbitmq: publish nacked")
)

// Publisher sends outbox bodies to a topic exchange with publisher confirms
// and mandatory routing. It implements notify.Publisher.
type Publisher struct {
	url      string
	exchange string

	mu sync.Mutex

	conn *amqp.Connection
	ch   *amqp.Channel

	confirmCh <-chan amqp.Confirmation
	returnCh  <-chan amqp.Return
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	p := &Publisher{url: url, exchange: exchange}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("enable confirms: %w", err)
	}

	p.conn = conn
	p.ch = ch
	p.confirmCh = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	p.returnCh = ch.NotifyReturn(make(chan amqp.Return, 1))
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
	return nil
}

// PublishEvent publishes body under routingKey. messageID must be stable across
// retries (the outbox message_id) so consumers can dedupe.
func (p *Publisher) PublishEvent(ctx context.Context, routingKey, messageID string, body []byte) error {
	if routingKey == "" {
		return errors.New("missing routingKey")
	}
	if strings.TrimSpace(messageID) == "" {
		return errors.New("missing messageID")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// reconnect lazily after a broker restart; the outbox retries the row meanwhile
	if p.ch == nil || p.ch.IsClosed() {
		if p.conn != nil {
			_ = p.conn.Close()
		}
		p.ch, p.conn = nil, nil
		if err := p.connect(); err != nil {
			return err
		}
	}

	err := p.ch.PublishWithContext(ctx, p.exchange, routingKey,
		true,  // mandatory
		false, // immediate
		amqp.Publishing{
			MessageId:    messageID,
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return err
	}
	return awaitConfirm(ctx, p.returnCh, p.confirmCh, confirmWait)
}

// awaitConfirm waits for the broker's verdict on one publish. A basic.return
// always precedes the matching ack, so the ack is drained after a return.
func awaitConfirm(ctx context.Context, returns <-chan amqp.Return, confirms <-chan amqp.Confirmation, wait time.Duration) error {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case ret := <-returns:
		select {
		case <-confirms:
		case <-timer.C:
		case <-ctx.Done():
		}
		return fmt.Errorf("%w: %s", ErrNoRoute, ret.RoutingKey)
	case conf, ok := <-confirms:
		if !ok {
			return errors.New("rabbitmq: channel closed awaiting confirm")
		}
		select {
		case ret := <-returns:
			return fmt.Errorf("%w: %s", ErrNoRoute, ret.RoutingKey)
		default:
		}
		if !conf.Ack {
			return ErrNacked
		}
		return nil
	case <-timer.C:
		return errors.New("rabbitmq: confirm timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
}
