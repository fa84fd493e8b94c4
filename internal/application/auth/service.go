package auth

import (
	"context"
	"strings"
	"time"

	"github.com/baechuer/eventhub/internal/domain"
	zlog "github.com/rs/zerolog/log"
)

type Service struct {
	users    UserRepo
	outbox   Outbox
	hasher   PasswordHasher
	signer   TokenSigner
	sessions SessionStore
	clock    Clock

	accessTTL  time.Duration
	refreshTTL time.Duration
	adminEmail string
}

type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	AdminEmail string
}

func NewService(
	users UserRepo,
	outbox Outbox,
	hasher PasswordHasher,
	signer TokenSigner,
	sessions SessionStore,
	clock Clock,
	cfg Config,
) *Service {
	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &Service{
		users:      users,
		outbox:     outbox,
		hasher:     hasher,
		signer:     signer,
		sessions:   sessions,
		clock:      clock,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		adminEmail: domain.NormalizeEmail(cfg.AdminEmail),
	}
}

// AuthTokens is the common token output for handlers/DTO mapping.
type AuthTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64  // seconds
	TokenType    string // "Bearer"
}

type AuthResult struct {
	User   domain.User
	Tokens AuthTokens
}

func (s *Service) roleFor(email string) domain.Role {
	if s.adminEmail != "" && email == s.adminEmail {
		return domain.RoleAdmin
	}
	return domain.RoleUser
}

// issueTokens issues an access token + refresh token for a user.
func (s *Service) issueTokens(ctx context.Context, userID, role string) (AuthTokens, error) {
	access, err := s.signer.SignAccessToken(userID, role, s.accessTTL)
	if err != nil {
		return AuthTokens{}, domain.ErrTokenSignFailed(err)
	}

	refresh, err := s.sessions.CreateRefreshToken(ctx, userID, s.refreshTTL)
	if err != nil {
		return AuthTokens{}, err
	}

	return AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

// endPriorSession drops a session the client is replacing. Failures only get logged.
func (s *Service) endPriorSession(ctx context.Context, refreshToken string) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return
	}
	if err := s.sessions.RevokeRefreshToken(ctx, refreshToken); err != nil {
		zlog.Warn().Err(err).Msg("revoke prior session failed")
	}
}
