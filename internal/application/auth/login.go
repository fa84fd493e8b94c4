package auth

import (
	"context"

	"github.com/baechuer/eventhub/internal/application/notify"
	"github.com/baechuer/eventhub/internal/domain"
	zlog "github.com/rs/zerolog/log"
)

type LoginCmd struct {
	Email             string
	Password          string
	PriorRefreshToken string
}

// Login authenticates a user and issues tokens.
// It must not leak whether the email exists.
func (s *Service) Login(ctx context.Context, cmd LoginCmd) (AuthResult, error) {
	email := domain.NormalizeEmail(cmd.Email)
	if email == "" || cmd.Password == "" {
		return AuthResult{}, domain.ErrInvalidCredentials()
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return AuthResult{}, domain.ErrInvalidCredentials()
		}
		return AuthResult{}, err
	}

	if err := s.hasher.Compare(u.PasswordHash, cmd.Password); err != nil {
		return AuthResult{}, domain.ErrInvalidCredentials()
	}

	s.endPriorSession(ctx, cmd.PriorRefreshToken)

	toks, err := s.issueTokens(ctx, u.ID, u.Role)
	if err != nil {
		return AuthResult{}, err
	}

	// The login itself already succeeded; a lost notification is only logged.
	mail, err := notify.NewMailOutbox(ctx, notify.LoginMail(u.Email), s.clock.Now())
	if err == nil {
		err = s.outbox.Enqueue(ctx, mail)
	}
	if err != nil {
		zlog.Warn().Err(err).Str("user_id", u.ID).Msg("enqueue login mail failed")
	}

	return AuthResult{User: u, Tokens: toks}, nil
}
