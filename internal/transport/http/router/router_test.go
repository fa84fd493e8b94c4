package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/eventhub/internal/infrastructure/redis"
	"github.com/baechuer/eventhub/internal/infrastructure/security"
	"github.com/baechuer/eventhub/internal/metrics"
	"github.com/baechuer/eventhub/internal/transport/http/handlers"
	"github.com/baechuer/eventhub/internal/transport/http/middleware"
)

type okPinger struct{}

func (okPinger) PingContext(context.Context) error { return nil }

type denyLimiter struct{}

func (denyLimiter) Allow(_ context.Context, _ string, limit int, _ time.Duration) (redis.Decision, error) {
	return redis.Decision{Allowed: false, Limit: limit, RetryAfter: 10 * time.Second}, nil
}

// newTestRouter wires handlers without services; only requests that middleware
// rejects may reach them.
func newTestRouter(t *testing.T, limiter middleware.RateLimiter) (http.Handler, *security.JWTSigner) {
	t.Helper()
	signer := security.NewJWTSigner("router-secret", "eventhub")
	h, err := New(Deps{
		Health:        handlers.NewHealthHandler(okPinger{}),
		Auth:          handlers.NewAuthHandler(nil, time.Hour, false),
		Events:        handlers.NewEventsHandler(nil, nil),
		Registrations: handlers.NewRegistrationsHandler(nil),
		Verifier:      signer,
		Limiter:       limiter,
		Metrics:       metrics.Handler(),
	}, Config{
		CORSAllowedOrigins: []string{"http://localhost:5173"},
		AuthRLLimit:        5,
		AuthRLWindow:       time.Minute,
	})
	require.NoError(t, err)
	return h, signer
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(Deps{}, Config{})
	assert.Error(t, err)
}

func TestRouter_Operational(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(middleware.HeaderXRequestID))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "http_requests_total")
}

func TestRouter_AuthAndRoles(t *testing.T) {
	h, signer := newTestRouter(t, nil)

	userTok, err := signer.SignAccessToken("u-1", "user", time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"create_event_anonymous", http.MethodPost, "/api/v1/events", "", http.StatusUnauthorized},
		{"create_event_as_user", http.MethodPost, "/api/v1/events", userTok, http.StatusForbidden},
		{"upload_as_user", http.MethodPost, "/api/v1/events/abc/image", userTok, http.StatusForbidden},
		{"admin_list_as_user", http.MethodGet, "/api/v1/registrations", userTok, http.StatusForbidden},
		{"approve_as_user", http.MethodPost, "/api/v1/registrations/r-1/approve", userTok, http.StatusForbidden},
		{"submit_anonymous", http.MethodPost, "/api/v1/events/abc/registrations", "", http.StatusUnauthorized},
		{"mine_bad_token", http.MethodGet, "/api/v1/registrations/me", "garbage", http.StatusUnauthorized},
		{"me_anonymous", http.MethodGet, "/api/v1/auth/me", "", http.StatusUnauthorized},
		{"unknown_route", http.MethodGet, "/api/v1/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestRouter_AuthRoutesAreRateLimited(t *testing.T) {
	h, _ := newTestRouter(t, denyLimiter{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil))

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "10", rr.Header().Get("Retry-After"))
}

func TestRouter_CORSPreflight(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/events", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
}
