//go:build integration

package rabbitmq

import (
	"context"
	"testing"
	"time"

	"github.com/baechuer/eventhub/internal/application/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestIntegration_PublishAndConsumeMail(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()

	rabbitC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3-management",
			ExposedPorts: []string{"5672/tcp"},
			WaitingFor:   wait.ForLog("Server startup complete").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rabbitC.Terminate(ctx) })

	host, err := rabbitC.Host(ctx)
	require.NoError(t, err)
	port, err := rabbitC.MappedPort(ctx, "5672")
	require.NoError(t, err)
	url := "amqp://guest:guest@" + host + ":" + port.Port() + "/"

	sender := &fakeSender{}
	cons, err := NewMailConsumer(url, ConsumerConfig{Queue: "it.mail"}, sender, nil)
	require.NoError(t, err)
	defer cons.Close()

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = cons.Run(runCtx)
	}()

	pub, err := NewPublisher(url, "")
	require.NoError(t, err)
	defer pub.Close()

	msg, err := notify.NewMailOutbox(ctx, notify.ApprovedMail("ann@example.com", "GoConf"), time.Now())
	require.NoError(t, err)
	require.NoError(t, pub.PublishEvent(ctx, msg.RoutingKey, msg.MessageID, msg.Body))

	// nothing is bound to this key
	err = pub.PublishEvent(ctx, "nobody.listens", "m-x", msg.Body)
	assert.ErrorIs(t, err, ErrNoRoute)

	assert.Eventually(t, func() bool {
		sender.mu.Lock()
		defer sender.mu.Unlock()
		return len(sender.sent) == 1
	}, 10*time.Second, 50*time.Millisecond)

	cancel()
	<-done
}
