package auth

import (
	"context"
	"time"

	"github.com/baechuer/eventhub/internal/application/notify"
	"github.com/baechuer/eventhub/internal/domain"
)

/*
UserRepo
--------
Persistence port for users.
Create stores the user and its signup mail in one transaction.
*/
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, id string) (domain.User, error)
	Create(ctx context.Context, u domain.User, mail notify.OutboxMessage) (domain.User, error)
}

// Outbox enqueues mail that is not tied to another write.
type Outbox interface {
	Enqueue(ctx context.Context, msg notify.OutboxMessage) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) error // nil if match
}

type TokenSigner interface {
	SignAccessToken(userID string, role string, ttl time.Duration) (string, error)
}

// TokenClaims is what the HTTP layer gets back from a verified access token.
type TokenClaims struct {
	UserID string
	Role   string
	Exp    time.Time
}

type TokenVerifier interface {
	VerifyAccessToken(token string) (TokenClaims, error)
}

/*
SessionStore
------------
Opaque refresh tokens, backed by Redis.
*/
type SessionStore interface {
	CreateRefreshToken(ctx context.Context, userID string, ttl time.Duration) (token string, err error)
	RotateRefreshToken(ctx context.Context, oldToken string, ttl time.Duration) (newToken string, err error)
	RevokeRefreshToken(ctx context.Context, token string) error
	GetUserIDByRefreshToken(ctx context.Context, token string) (string, error)
}

type Clock interface {
	Now() time.Time
}
