package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/eventhub/internal/application/auth"
	"github.com/baechuer/eventhub/internal/application/event"
	"github.com/baechuer/eventhub/internal/application/notify"
	"github.com/baechuer/eventhub/internal/application/registration"
	"github.com/baechuer/eventhub/internal/audit"
	"github.com/baechuer/eventhub/internal/config"
	"github.com/baechuer/eventhub/internal/infrastructure/db/postgres"
	"github.com/baechuer/eventhub/internal/infrastructure/imaging"
	"github.com/baechuer/eventhub/internal/infrastructure/mailer"
	"github.com/baechuer/eventhub/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/eventhub/internal/infrastructure/redis"
	"github.com/baechuer/eventhub/internal/infrastructure/security"
	"github.com/baechuer/eventhub/internal/infrastructure/storage"
	"github.com/baechuer/eventhub/internal/logger"
	"github.com/baechuer/eventhub/internal/metrics"
	"github.com/baechuer/eventhub/internal/transport/http/handlers"
	"github.com/baechuer/eventhub/internal/transport/http/router"
)

const shutdownTimeout = 15 * time.Second

// sysClock implements the services' Clock using system time.
type sysClock struct{}

func (sysClock) Now() time.Time { return time.Now().UTC() }

// App holds all dependencies for the service.
type App struct {
	Config *config.Config
	Server *http.Server
	DB     *sql.DB

	Outbox    *postgres.OutboxWorker
	Publisher *rabbitmq.Publisher    // nil without RABBIT_URL
	Consumer  *rabbitmq.MailConsumer // nil without RABBIT_URL
}

func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("config load failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if u, err := url.Parse(cfg.DatabaseURL); err == nil {
		zlog.Info().
			Str("db_user", u.User.Username()).
			Str("db_host", u.Host).
			Str("db_name", u.Path).
			Msg("db config loaded")
	}

	db, err := postgres.Open(cfg.DatabaseURL, cfg.DBDebug)
	if err != nil {
		zlog.Fatal().Err(err).Msg("db open failed")
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		zlog.Fatal().Err(err).Msg("db migrate failed")
	}

	rc, err := redis.New(cfg.RedisURL)
	if err != nil {
		zlog.Fatal().Err(err).Msg("redis connect failed")
	}
	defer rc.Close()

	images, err := storage.NewS3Store(ctx, storage.Config{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    cfg.S3UsePathStyle,
		PublicBaseURL:   cfg.CDNBaseURL,
	}, logger.Logger)
	if err != nil {
		zlog.Fatal().Err(err).Msg("s3 init failed")
	}
	// uploads fail with storage_unavailable until the bucket is reachable
	if err := images.EnsureBucket(ctx); err != nil {
		zlog.Warn().Err(err).Str("bucket", cfg.S3Bucket).Msg("ensure bucket failed")
	}

	sender, err := newMailSender(cfg)
	if err != nil {
		zlog.Fatal().Err(err).Msg("mail sender init failed")
	}

	app, err := NewApp(cfg, db, rc, images, sender)
	if err != nil {
		zlog.Fatal().Err(err).Msg("app wiring failed")
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil {
		zlog.Fatal().Err(err).Msg("server crashed")
	}
}

// newMailSender posts to MAIL_WEBHOOK_URL, or logs mails in dev when it is unset.
func newMailSender(cfg *config.Config) (notify.MailSender, error) {
	if cfg.MailWebhookURL == "" {
		zlog.Warn().Msg("MAIL_WEBHOOK_URL empty: mails will only be logged")
		return mailer.LogSender{}, nil
	}
	return mailer.NewWebhookSender(mailer.WebhookConfig{
		URL:     cfg.MailWebhookURL,
		Timeout: cfg.MailWebhookTimeout,
	})
}

func NewApp(cfg *config.Config, db *sql.DB, rc *redis.Client, images event.ImageStore, sender notify.MailSender) (*App, error) {
	clock := sysClock{}
	auditLog := audit.New(logger.Logger)

	// 1) Messaging
	app := &App{Config: cfg, DB: db}
	var pub notify.Publisher = notify.DirectPublisher{Sender: sender}

	if cfg.RabbitURL != "" {
		p, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			return nil, err
		}
		app.Publisher = p
		pub = p

		c, err := rabbitmq.NewMailConsumer(cfg.RabbitURL, rabbitmq.ConsumerConfig{
			Exchange: cfg.RabbitExchange,
			Queue:    cfg.MailQueue,
		}, sender, redis.NewMailDedupe(rc, 0))
		if err != nil {
			_ = p.Close()
			return nil, err
		}
		app.Consumer = c
		zlog.Info().Str("exchange", cfg.RabbitExchange).Str("queue", cfg.MailQueue).Msg("rabbit mail pipeline ready")
	} else {
		zlog.Warn().Msg("RABBIT_URL empty: outbox mails go straight to the sender")
	}

	app.Outbox = postgres.NewOutboxWorker(db, pub, postgres.OutboxConfig{
		Interval:    cfg.OutboxInterval,
		Batch:       cfg.OutboxBatch,
		MaxAttempts: cfg.OutboxMaxAttempts,
	}).OnDead(auditLog.OutboxMessageDead)

	// 2) Infrastructure
	users := postgres.NewUserRepo(db)
	events := postgres.NewEventRepo(db)
	regs := postgres.NewRegistrationRepo(db)
	outbox := postgres.NewOutboxRepo(db)
	signer := security.NewJWTSigner(cfg.JWTSecret, cfg.JWTIssuer)

	// 3) Application
	authSvc := auth.NewService(
		users,
		outbox,
		security.NewBcryptHasher(cfg.BcryptCost),
		signer,
		redis.NewSessionStore(rc),
		clock,
		auth.Config{
			AccessTTL:  cfg.AccessTokenTTL,
			RefreshTTL: cfg.RefreshTokenTTL,
			AdminEmail: cfg.AdminEmail,
		},
	)

	eventSvc := event.New(events, clock, rc, images, imaging.NewInspector(), event.Config{
		TTLDetails:    cfg.CacheTTLDetails,
		TTLList:       cfg.CacheTTLList,
		MaxUploadSize: cfg.MaxUploadSize,
	}).WithAudit(auditLog.Record)

	regSvc := registration.New(regs, events, eventSvc, clock).WithAudit(auditLog.Record)

	// 4) Transport
	health := handlers.NewHealthHandler(db)
	if ws, ok := sender.(*mailer.WebhookSender); ok {
		health.WithMailCircuit(func() string { return ws.State().String() })
	}
	httpHandler, err := router.New(router.Deps{
		Health:        health,
		Auth:          handlers.NewAuthHandler(authSvc, cfg.RefreshTokenTTL, !cfg.IsDev()),
		Events:        handlers.NewEventsHandler(eventSvc, clock),
		Registrations: handlers.NewRegistrationsHandler(regSvc),
		Verifier:      signer,
		Limiter:       redis.NewFixedWindowLimiter(rc),
		Metrics:       metrics.Handler(),
	}, router.Config{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RLEnabled:          cfg.RLEnabled,
		RLLimit:            cfg.RLLimit,
		RLWindow:           cfg.RLWindow,
		AuthRLLimit:        cfg.AuthRLLimit,
		AuthRLWindow:       cfg.AuthRLWindow,
	})
	if err != nil {
		app.Close()
		return nil, err
	}

	// 5) Server
	app.Server = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpHandler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}
	return app, nil
}

// Run serves HTTP and runs the background workers until ctx is done,
// then shuts everything down gracefully.
func (a *App) Run(ctx context.Context) error {
	workersCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	var outboxDone <-chan struct{}
	if a.Config.OutboxEnabled && a.Outbox != nil {
		outboxDone = a.Outbox.Start(workersCtx)
		zlog.Info().Dur("interval", a.Config.OutboxInterval).Msg("outbox worker started")
	}

	consumerDone := make(chan struct{})
	if a.Consumer != nil {
		go func() {
			defer close(consumerDone)
			if err := a.Consumer.Run(workersCtx); err != nil && workersCtx.Err() == nil {
				zlog.Error().Err(err).Msg("mail consumer stopped")
			}
		}()
	} else {
		close(consumerDone)
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info().Str("addr", a.Server.Addr).Msg("listening")
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		zlog.Info().Msg("shutdown signal received")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		zlog.Warn().Err(err).Msg("http shutdown incomplete")
	}

	cancelWorkers()
	if outboxDone != nil {
		<-outboxDone
	}
	<-consumerDone

	zlog.Info().Msg("shutdown complete")
	return serveErr
}

func (a *App) Close() {
	if a.Consumer != nil {
		_ = a.Consumer.Close()
	}
	if a.Publisher != nil {
		_ = a.Publisher.Close()
	}
}
