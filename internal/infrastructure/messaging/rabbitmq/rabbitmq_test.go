package rabbitmq

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/baechuer/eventhub/internal/application/notify"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

type fakeSender struct {
	mu   sync.Mutex
	err  error
	sent []notify.Mail
}

func (f *fakeSender) Send(_ context.Context, m notify.Mail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}

type fakeDedupe struct {
	seen     map[string]bool
	err      error
	released []string
}

func (f *fakeDedupe) CheckAndMark(_ context.Context, id string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen[id] {
		return true, nil
	}
	f.seen[id] = true
	return false, nil
}

func (f *fakeDedupe) Release(_ context.Context, id string) error {
	delete(f.seen, id)
	f.released = append(f.released, id)
	return nil
}

type fakeAck struct {
	acked, nacked, requeued int
}

func (a *fakeAck) Ack(uint64, bool) error { a.acked++; return nil }
func (a *fakeAck) Nack(_ uint64, _ bool, requeue bool) error {
	if requeue {
		a.requeued++
	} else {
		a.nacked++
	}
	return nil
}
func (a *fakeAck) Reject(uint64, bool) error { return nil }

func mailBody(t *testing.T) (string, []byte) {
	t.Helper()
	msg, err := notify.NewMailOutbox(context.Background(), notify.SignupMail("ann@example.com"), time.Now())
	require.NoError(t, err)
	return msg.MessageID, msg.Body
}

func newTestConsumer(sender notify.MailSender, dedupe Deduper) *MailConsumer {
	return &MailConsumer{
		cfg:    ConsumerConfig{RequeueDelay: time.Millisecond}.withDefaults(),
		sender: sender,
		dedupe: dedupe,
	}
}

// ---- consumer decisions ----

func TestMailConsumer_Process(t *testing.T) {
	ctx := context.Background()
	id, body := mailBody(t)

	t.Run("sends_and_acks", func(t *testing.T) {
		s := &fakeSender{}
		c := newTestConsumer(s, &fakeDedupe{seen: map[string]bool{}})

		assert.Equal(t, outcomeAck, c.process(ctx, id, body))
		require.Len(t, s.sent, 1)
		assert.Equal(t, "Signup Confirmation", s.sent[0].Subject)
	})

	t.Run("duplicate_is_acked_without_sending", func(t *testing.T) {
		s := &fakeSender{}
		c := newTestConsumer(s, &fakeDedupe{seen: map[string]bool{id: true}})

		assert.Equal(t, outcomeAck, c.process(ctx, id, body))
		assert.Empty(t, s.sent)
	})

	t.Run("message_id_falls_back_to_envelope", func(t *testing.T) {
		d := &fakeDedupe{seen: map[string]bool{}}
		c := newTestConsumer(&fakeSender{}, d)

		assert.Equal(t, outcomeAck, c.process(ctx, "", body))
		assert.True(t, d.seen[id])
	})

	t.Run("poison_is_dropped", func(t *testing.T) {
		s := &fakeSender{}
		c := newTestConsumer(s, nil)

		assert.Equal(t, outcomeDrop, c.process(ctx, "x", []byte("{not json")))
		assert.Equal(t, outcomeDrop, c.process(ctx, "x", []byte(`{"payload":{"subject":"s"}}`)))
		assert.Equal(t, outcomeDrop, c.process(ctx, "x", []byte(strings.Repeat("a", maxMailBody+1))))
		assert.Empty(t, s.sent)
	})

	t.Run("permanent_failure_dropped_and_released", func(t *testing.T) {
		d := &fakeDedupe{seen: map[string]bool{}}
		c := newTestConsumer(&fakeSender{err: notify.Permanent(errors.New("400"))}, d)

		assert.Equal(t, outcomeDrop, c.process(ctx, id, body))
		assert.Equal(t, []string{id}, d.released)
	})

	t.Run("transient_failure_requeued_and_released", func(t *testing.T) {
		d := &fakeDedupe{seen: map[string]bool{}}
		c := newTestConsumer(&fakeSender{err: errors.New("503")}, d)

		assert.Equal(t, outcomeRequeue, c.process(ctx, id, body))
		assert.False(t, d.seen[id])
	})

	t.Run("dedupe_store_down_requeues", func(t *testing.T) {
		s := &fakeSender{}
		c := newTestConsumer(s, &fakeDedupe{err: errors.New("redis down")})

		assert.Equal(t, outcomeRequeue, c.process(ctx, id, body))
		assert.Empty(t, s.sent)
	})
}

func TestMailConsumer_HandleSettlesDelivery(t *testing.T) {
	ctx := context.Background()
	id, body := mailBody(t)

	cases := []struct {
		name   string
		sender *fakeSender
		body   []byte
		want   fakeAck
	}{
		{name: "ack", sender: &fakeSender{}, body: body, want: fakeAck{acked: 1}},
		{name: "drop", sender: &fakeSender{}, body: []byte("nope"), want: fakeAck{nacked: 1}},
		{name: "requeue", sender: &fakeSender{err: errors.New("timeout")}, body: body, want: fakeAck{requeued: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ack := &fakeAck{}
			c := newTestConsumer(tc.sender, nil)
			c.handle(ctx, amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, MessageId: id, Body: tc.body})
			assert.Equal(t, tc.want, *ack)
		})
	}
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "ack", outcomeAck.String())
	assert.Equal(t, "requeue", outcomeRequeue.String())
	assert.Equal(t, "drop", outcomeDrop.String())
}

// ---- publisher confirms ----

func TestAwaitConfirm(t *testing.T) {
	ctx := context.Background()

	t.Run("ack", func(t *testing.T) {
		confirms := make(chan amqp.Confirmation, 1)
		confirms <- amqp.Confirmation{DeliveryTag: 1, Ack: true}
		assert.NoError(t, awaitConfirm(ctx, make(chan amqp.Return), confirms, time.Second))
	})

	t.Run("nack", func(t *testing.T) {
		confirms := make(chan amqp.Confirmation, 1)
		confirms <- amqp.Confirmation{DeliveryTag: 1, Ack: false}
		assert.ErrorIs(t, awaitConfirm(ctx, make(chan amqp.Return), confirms, time.Second), ErrNacked)
	})

	t.Run("returned_drains_confirm", func(t *testing.T) {
		returns := make(chan amqp.Return, 1)
		confirms := make(chan amqp.Confirmation, 1)
		returns <- amqp.Return{RoutingKey: "mail.send"}
		confirms <- amqp.Confirmation{DeliveryTag: 1, Ack: true}

		err := awaitConfirm(ctx, returns, confirms, time.Second)
		assert.ErrorIs(t, err, ErrNoRoute)
		assert.Len(t, confirms, 0)
	})

	t.Run("timeout", func(t *testing.T) {
		err := awaitConfirm(ctx, make(chan amqp.Return), make(chan amqp.Confirmation), 10*time.Millisecond)
		assert.ErrorContains(t, err, "timeout")
	})

	t.Run("ctx_cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := awaitConfirm(cctx, make(chan amqp.Return), make(chan amqp.Confirmation), time.Second)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestPublishEvent_RejectsMissingIDs(t *testing.T) {
	p := &Publisher{exchange: DefaultExchange}
	assert.Error(t, p.PublishEvent(context.Background(), "", "m1", nil))
	assert.Error(t, p.PublishEvent(context.Background(), "mail.send", " ", nil))
}

// ---- worker pool ----

func TestWorkerPool(t *testing.T) {
	wp := NewWorkerPool(3)

	var n atomic.Int32
	for i := 0; i < 20; i++ {
		require.True(t, wp.Submit(func() { n.Add(1) }))
	}
	wp.Wait()
	assert.Equal(t, int32(20), n.Load())

	assert.False(t, wp.Submit(func() { n.Add(1) }))
	wp.Wait()
}

func TestConsumerConfig_Defaults(t *testing.T) {
	cfg := ConsumerConfig{}.withDefaults()
	assert.Equal(t, DefaultExchange, cfg.Exchange)
	assert.Equal(t, "eventhub.mail", cfg.Queue)
	assert.Equal(t, 10, cfg.Prefetch)
	assert.Equal(t, 4, cfg.Workers)
}
