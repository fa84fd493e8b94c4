package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/baechuer/eventhub/internal/application/notify"
	amqp "github.com/rabbitmq/amqp091-go"
	zlog "github.com/rs/zerolog/log"
)

const maxMailBody = 1 << 20

// Deduper claims a message id before delivery. See redis.MailDedupe.
type Deduper interface {
	CheckAndMark(ctx context.Context, messageID string) (duplicate bool, err error)
	Release(ctx context.Context, messageID string) error
}

type ConsumerConfig struct {
	Exchange string
	Queue    string
	Prefetch int
	Workers  int
	// RequeueDelay slows redelivery of transient failures so an open
	// circuit does not spin the queue.
	RequeueDelay time.Duration
	SendTimeout  time.Duration
}

// MailConsumer drains the mail queue into a notify.MailSender with manual acks.
// Poison and permanently rejected messages are dead-lettered to <queue>.dlq.
type MailConsumer struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	cfg    ConsumerConfig
	sender notify.MailSender
	dedupe Deduper
}

func NewMailConsumer(url string, cfg ConsumerConfig, sender notify.MailSender, dedupe Deduper) (*MailConsumer, error) {
	cfg = cfg.withDefaults()

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := declareMailTopology(ch, cfg); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &MailConsumer{conn: conn, ch: ch, cfg: cfg, sender: sender, dedupe: dedupe}, nil
}

func (cfg ConsumerConfig) withDefaults() ConsumerConfig {
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	if cfg.Queue == "" {
		cfg.Queue = "eventhub.mail"
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 10
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.RequeueDelay <= 0 {
		cfg.RequeueDelay = time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	return cfg
}

func declareMailTopology(ch *amqp.Channel, cfg ConsumerConfig) error {
	dlx := cfg.Queue + ".dlx"
	dlq := cfg.Queue + ".dlq"

	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	if err := ch.ExchangeDeclare(dlx, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dlx: %w", err)
	}
	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dlq: %w", err)
	}
	if err := ch.QueueBind(dlq, "", dlx, false, nil); err != nil {
		return fmt.Errorf("failed to bind dlq: %w", err)
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange": dlx,
	}); err != nil {
		return fmt.Errorf("failed to declare mail queue: %w", err)
	}
	if err := ch.QueueBind(cfg.Queue, notify.RoutingKeyMail, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind mail queue: %w", err)
	}
	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}
	return nil
}

// Run consumes until ctx is done or the channel closes, then waits for
// in-flight deliveries to settle.
func (c *MailConsumer) Run(ctx context.Context) error {
	msgs, err := c.ch.Consume(c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	pool := NewWorkerPool(c.cfg.Workers)
	defer pool.Wait()

	zlog.Info().Str("queue", c.cfg.Queue).Str("exchange", c.cfg.Exchange).Msg("mail consumer started")

	for {
		select {
		case <-ctx.Done():
			zlog.Info().Msg("mail consumer shutting down")
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("mail consumer channel closed")
			}
			pool.Submit(func() { c.handle(ctx, d) })
		}
	}
}

func (c *MailConsumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

type outcome int

const (
	outcomeAck outcome = iota
	outcomeRequeue
	outcomeDrop
)

func (o outcome) String() string {
	switch o {
	case outcomeRequeue:
		return "requeue"
	case outcomeDrop:
		return "drop"
	default:
		return "ack"
	}
}

func (c *MailConsumer) handle(ctx context.Context, d amqp.Delivery) {
	switch c.process(ctx, d.MessageId, d.Body) {
	case outcomeAck:
		_ = d.Ack(false)
	case outcomeDrop:
		_ = d.Nack(false, false)
	case outcomeRequeue:
		select {
		case <-time.After(c.cfg.RequeueDelay):
		case <-ctx.Done():
		}
		_ = d.Nack(false, true)
	}
}

// process decides what happens to one delivery. It never touches the channel.
func (c *MailConsumer) process(ctx context.Context, messageID string, body []byte) outcome {
	if len(body) > maxMailBody {
		zlog.Error().Int("size", len(body)).Str("message_id", messageID).Msg("mail body too large")
		return outcomeDrop
	}

	env, err := notify.DecodeMail(body)
	if err != nil {
		zlog.Error().Err(err).Str("message_id", messageID).Msg("undecodable mail message")
		return outcomeDrop
	}
	if messageID == "" {
		messageID = env.MessageID
	}
	log := zlog.With().Str("message_id", messageID).Str("request_id", env.TraceID).Logger()

	if c.dedupe != nil && messageID != "" {
		dup, err := c.dedupe.CheckAndMark(ctx, messageID)
		if err != nil {
			log.Error().Err(err).Msg("mail dedupe check failed")
			return outcomeRequeue
		}
		if dup {
			log.Info().Msg("duplicate mail message skipped")
			return outcomeAck
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, c.cfg.SendTimeout)
	defer cancel()

	if err := c.sender.Send(sendCtx, env.Payload); err != nil {
		if c.dedupe != nil && messageID != "" {
			if rerr := c.dedupe.Release(context.WithoutCancel(ctx), messageID); rerr != nil {
				log.Warn().Err(rerr).Msg("mail dedupe release failed")
			}
		}
		if notify.IsPermanent(err) {
			log.Error().Err(err).Msg("mail rejected permanently")
			return outcomeDrop
		}
		log.Warn().Err(err).Msg("mail send failed, requeueing")
		return outcomeRequeue
	}

	log.Info().Str("subject", env.Payload.Subject).Msg("mail sent")
	return outcomeAck
}
