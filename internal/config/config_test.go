package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/eventhub?sslmode=disable")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "dev")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "eventhub", cfg.JWTIssuer)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTLDetails)
	assert.Equal(t, 15*time.Second, cfg.CacheTTLList)
	assert.True(t, cfg.RLEnabled)
	assert.Equal(t, 100, cfg.RLLimit)
	assert.Equal(t, "eventhub.events", cfg.RabbitExchange)
	assert.Equal(t, int64(5*1024*1024), cfg.MaxUploadSize)
	assert.True(t, cfg.IsDev())
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Run("missing_database_url", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		t.Setenv("JWT_SECRET", "secret")
		_, err := Load()
		assert.ErrorContains(t, err, "DATABASE_URL")
	})

	t.Run("missing_jwt_secret", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://x")
		t.Setenv("JWT_SECRET", "")
		_, err := Load()
		assert.ErrorContains(t, err, "JWT_SECRET")
	})

	t.Run("prod_requires_mail_transport", func(t *testing.T) {
		setRequired(t)
		t.Setenv("APP_ENV", "prod")
		t.Setenv("RABBIT_URL", "")
		t.Setenv("MAIL_WEBHOOK_URL", "")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "dev")
	t.Setenv("ADMIN_EMAIL", "  Admin@Example.com ")
	t.Setenv("CACHE_TTL_LIST", "30s")
	t.Setenv("RL_LIMIT", "7")
	t.Setenv("CDN_BASE_URL", "https://cdn.example.com/img/")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "admin@example.com", cfg.AdminEmail)
	assert.Equal(t, 30*time.Second, cfg.CacheTTLList)
	assert.Equal(t, 7, cfg.RLLimit)
	assert.Equal(t, "https://cdn.example.com/img", cfg.CDNBaseURL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestGetBool_PanicsOnGarbage(t *testing.T) {
	t.Setenv("SOME_FLAG", "maybe")
	assert.Panics(t, func() { getBool("SOME_FLAG", false) })
}

func TestGetDuration_FallsBackOnInvalid(t *testing.T) {
	t.Setenv("SOME_DUR", "nope")
	assert.Equal(t, time.Second, getDuration("SOME_DUR", time.Second))
}
