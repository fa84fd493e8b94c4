package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/eventhub/internal/application/notify"
	"github.com/baechuer/eventhub/internal/config"
	"github.com/baechuer/eventhub/internal/infrastructure/mailer"
	"github.com/baechuer/eventhub/internal/infrastructure/redis"
)

func newTestApp(t *testing.T, addr string, sender notify.MailSender) *App {
	t.Helper()

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mr := miniredis.RunT(t)
	rc, err := redis.New("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	cfg := &config.Config{
		AppEnv:             "dev",
		HTTPAddr:           addr,
		JWTSecret:          "test-secret",
		JWTIssuer:          "test-issuer",
		AuthRLLimit:        10,
		AuthRLWindow:       time.Minute,
		CORSAllowedOrigins: []string{"http://localhost:5173"},
	}

	app, err := NewApp(cfg, db, rc, nil, sender)
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return app
}

func TestNewApp(t *testing.T) {
	app := newTestApp(t, ":8081", mailer.LogSender{})

	t.Run("should_correctly_wire_dependencies", func(t *testing.T) {
		assert.Equal(t, ":8081", app.Server.Addr)
		assert.NotNil(t, app.Server.Handler)
		assert.NotNil(t, app.Outbox)
		assert.Nil(t, app.Publisher, "no broker without RABBIT_URL")
		assert.Nil(t, app.Consumer)
	})

	t.Run("serves_health", func(t *testing.T) {
		rr := httptest.NewRecorder()
		app.Server.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestNewApp_ReadyzReportsMailCircuit(t *testing.T) {
	sender, err := mailer.NewWebhookSender(mailer.WebhookConfig{URL: "http://mail.invalid/send"})
	require.NoError(t, err)
	app := newTestApp(t, ":8081", sender)

	rr := httptest.NewRecorder()
	app.Server.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"mail_circuit":"closed"`)
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	app := newTestApp(t, "127.0.0.1:0", mailer.LogSender{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSysClock_Now(t *testing.T) {
	clock := sysClock{}
	now := clock.Now()

	assert.Equal(t, "UTC", now.Location().String())
}
