package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/baechuer/eventhub/internal/application/notify"
	"github.com/baechuer/eventhub/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignup(t *testing.T) {
	ctx := context.Background()

	t.Run("weak_password", func(t *testing.T) {
		svc, _ := newSvcForTest()
		_, err := svc.Signup(ctx, SignupCmd{Email: "a@b.com", Password: "short", Name: "A"})
		assert.True(t, domain.Is(err, "weak_password"))
	})

	t.Run("hash_failure", func(t *testing.T) {
		svc, d := newSvcForTest()
		d.hasher.hashErr = errors.New("boom")
		_, err := svc.Signup(ctx, SignupCmd{Email: "a@b.com", Password: "password1", Name: "A"})
		assert.True(t, domain.Is(err, "hash_failed"))
	})

	t.Run("success_persists_user_and_mail", func(t *testing.T) {
		svc, d := newSvcForTest()
		res, err := svc.Signup(ctx, SignupCmd{Email: " Ann@Example.com", Password: "password1", Name: "Ann"})
		require.NoError(t, err)

		assert.Equal(t, "ann@example.com", res.User.Email)
		assert.Equal(t, "user", res.User.Role)
		assert.Equal(t, "Bearer", res.Tokens.TokenType)
		assert.EqualValues(t, 900, res.Tokens.ExpiresIn)
		assert.Contains(t, d.sessions.byToken, res.Tokens.RefreshToken)

		require.Len(t, d.users.mails, 1)
		env, err := notify.DecodeMail(d.users.mails[0].Body)
		require.NoError(t, err)
		assert.Equal(t, "Signup Confirmation", env.Payload.Subject)
		assert.Equal(t, "ann@example.com", env.Payload.Email)
	})

	t.Run("admin_email_gets_admin_role", func(t *testing.T) {
		svc, _ := newSvcForTest()
		res, err := svc.Signup(ctx, SignupCmd{Email: "boss@example.com", Password: "password1", Name: "Boss"})
		require.NoError(t, err)
		assert.Equal(t, "admin", res.User.Role)
	})

	t.Run("duplicate_email", func(t *testing.T) {
		svc, _ := newSvcForTest()
		_, err := svc.Signup(ctx, SignupCmd{Email: "a@b.com", Password: "password1", Name: "A"})
		require.NoError(t, err)
		_, err = svc.Signup(ctx, SignupCmd{Email: "A@B.com", Password: "password1", Name: "A"})
		assert.True(t, domain.Is(err, "email_already_exists"))
	})

	t.Run("revokes_prior_session", func(t *testing.T) {
		svc, d := newSvcForTest()
		_, err := svc.Signup(ctx, SignupCmd{Email: "a@b.com", Password: "password1", Name: "A", PriorRefreshToken: "old"})
		require.NoError(t, err)
		assert.Equal(t, []string{"old"}, d.sessions.revoked)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T) (*Service, *testDeps) {
		svc, d := newSvcForTest()
		_, err := svc.Signup(ctx, SignupCmd{Email: "a@b.com", Password: "password1", Name: "A"})
		require.NoError(t, err)
		return svc, d
	}

	t.Run("empty_fields", func(t *testing.T) {
		svc, _ := newSvcForTest()
		_, err := svc.Login(ctx, LoginCmd{})
		assert.True(t, domain.Is(err, "invalid_credentials"))
	})

	t.Run("unknown_email_does_not_enumerate", func(t *testing.T) {
		svc, _ := newSvcForTest()
		_, err := svc.Login(ctx, LoginCmd{Email: "nobody@x.com", Password: "password1"})
		assert.True(t, domain.Is(err, "invalid_credentials"))
	})

	t.Run("wrong_password", func(t *testing.T) {
		svc, _ := seed(t)
		_, err := svc.Login(ctx, LoginCmd{Email: "a@b.com", Password: "wrong-password"})
		assert.True(t, domain.Is(err, "invalid_credentials"))
	})

	t.Run("repo_failure_is_not_masked", func(t *testing.T) {
		svc, d := seed(t)
		d.users.getByEmailErr = domain.ErrDBUnavailable(errors.New("down"))
		_, err := svc.Login(ctx, LoginCmd{Email: "a@b.com", Password: "password1"})
		assert.True(t, domain.Is(err, "db_unavailable"))
	})

	t.Run("success_enqueues_login_mail", func(t *testing.T) {
		svc, d := seed(t)
		res, err := svc.Login(ctx, LoginCmd{Email: "A@b.com", Password: "password1", PriorRefreshToken: "rt-1"})
		require.NoError(t, err)
		assert.NotEmpty(t, res.Tokens.AccessToken)
		assert.Contains(t, d.sessions.revoked, "rt-1")

		require.Len(t, d.outbox.msgs, 1)
		env, err := notify.DecodeMail(d.outbox.msgs[0].Body)
		require.NoError(t, err)
		assert.Equal(t, "Login Notification", env.Payload.Subject)
		assert.Equal(t, "You have successfully logged in!", env.Payload.Message)
	})

	t.Run("outbox_failure_does_not_fail_login", func(t *testing.T) {
		svc, d := seed(t)
		d.outbox.err = errors.New("db down")
		_, err := svc.Login(ctx, LoginCmd{Email: "a@b.com", Password: "password1"})
		assert.NoError(t, err)
	})
}

func TestRefreshAndLogout(t *testing.T) {
	ctx := context.Background()
	svc, d := newSvcForTest()
	res, err := svc.Signup(ctx, SignupCmd{Email: "a@b.com", Password: "password1", Name: "A"})
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, "")
	assert.True(t, domain.Is(err, "refresh_token_invalid"))

	toks, err := svc.Refresh(ctx, res.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, res.Tokens.RefreshToken, toks.RefreshToken)

	// the rotated token is single-use
	_, err = svc.Refresh(ctx, res.Tokens.RefreshToken)
	assert.True(t, domain.Is(err, "refresh_token_invalid"))

	require.NoError(t, svc.Logout(ctx, toks.RefreshToken))
	require.NoError(t, svc.Logout(ctx, ""))
	assert.NotContains(t, d.sessions.byToken, toks.RefreshToken)

	_, err = svc.Refresh(ctx, toks.RefreshToken)
	assert.True(t, domain.Is(err, "refresh_token_invalid"))
}

func TestMe(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSvcForTest()
	res, err := svc.Signup(ctx, SignupCmd{Email: "a@b.com", Password: "password1", Name: "A"})
	require.NoError(t, err)

	u, err := svc.Me(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", u.Name)

	_, err = svc.Me(ctx, "missing")
	assert.True(t, domain.Is(err, "user_not_found"))
}
