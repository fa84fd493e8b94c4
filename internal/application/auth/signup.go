package auth

import (
	"context"

	"github.com/baechuer/eventhub/internal/application/notify"
	"github.com/baechuer/eventhub/internal/domain"
)

type SignupCmd struct {
	Email    string
	Password string
	Name     string

	// PriorRefreshToken is revoked before the new session is issued.
	PriorRefreshToken string
}

func (s *Service) Signup(ctx context.Context, cmd SignupCmd) (AuthResult, error) {
	if err := domain.ValidatePassword(cmd.Password); err != nil {
		return AuthResult{}, err
	}

	s.endPriorSession(ctx, cmd.PriorRefreshToken)

	hash, err := s.hasher.Hash(cmd.Password)
	if err != nil {
		return AuthResult{}, domain.ErrHashFailed(err)
	}

	now := s.clock.Now()
	email := domain.NormalizeEmail(cmd.Email)

	u, err := domain.NewUser(email, cmd.Name, hash, s.roleFor(email), now)
	if err != nil {
		return AuthResult{}, err
	}

	mail, err := notify.NewMailOutbox(ctx, notify.SignupMail(u.Email), now)
	if err != nil {
		return AuthResult{}, domain.ErrInternal(err)
	}

	created, err := s.users.Create(ctx, u, mail)
	if err != nil {
		return AuthResult{}, err
	}

	toks, err := s.issueTokens(ctx, created.ID, created.Role)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{User: created, Tokens: toks}, nil
}
