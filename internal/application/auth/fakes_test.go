package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/baechuer/eventhub/internal/application/notify"
	"github.com/baechuer/eventhub/internal/domain"
)

type fakeUserRepo struct {
	mu sync.Mutex

	byID    map[string]domain.User
	byEmail map[string]domain.User
	mails   []notify.OutboxMessage

	getByEmailErr error
	createErr     error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    map[string]domain.User{},
		byEmail: map[string]domain.User{},
	}
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getByEmailErr != nil {
		return domain.User{}, f.getByEmailErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, u domain.User, mail notify.OutboxMessage) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return domain.User{}, f.createErr
	}
	if _, ok := f.byEmail[u.Email]; ok {
		return domain.User{}, domain.ErrEmailAlreadyExists()
	}
	f.byID[u.ID] = u
	f.byEmail[u.Email] = u
	f.mails = append(f.mails, mail)
	return u, nil
}

type fakeOutbox struct {
	msgs []notify.OutboxMessage
	err  error
}

func (f *fakeOutbox) Enqueue(ctx context.Context, msg notify.OutboxMessage) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

// fakeHasher prefixes the password so Compare is trivial.
type fakeHasher struct {
	hashErr error
}

func (h *fakeHasher) Hash(pw string) (string, error) {
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "hash:" + pw, nil
}

func (h *fakeHasher) Compare(hash, pw string) error {
	if hash != "hash:"+pw {
		return errors.New("mismatch")
	}
	return nil
}

type fakeSigner struct {
	err error
}

func (s *fakeSigner) SignAccessToken(userID, role string, ttl time.Duration) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("at:%s:%s", userID, role), nil
}

type fakeSessions struct {
	mu      sync.Mutex
	n       int
	byToken map[string]string
	revoked []string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byToken: map[string]string{}}
}

func (f *fakeSessions) CreateRefreshToken(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	tok := fmt.Sprintf("rt-%d", f.n)
	f.byToken[tok] = userID
	return tok, nil
}

func (f *fakeSessions) RotateRefreshToken(ctx context.Context, old string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	uid, ok := f.byToken[old]
	if !ok {
		f.mu.Unlock()
		return "", errors.New("invalid")
	}
	delete(f.byToken, old)
	f.mu.Unlock()
	return f.CreateRefreshToken(ctx, uid, ttl)
}

func (f *fakeSessions) RevokeRefreshToken(ctx context.Context, tok string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byToken, tok)
	f.revoked = append(f.revoked, tok)
	return nil
}

func (f *fakeSessions) GetUserIDByRefreshToken(ctx context.Context, tok string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, ok := f.byToken[tok]
	if !ok {
		return "", errors.New("invalid")
	}
	return uid, nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type testDeps struct {
	users    *fakeUserRepo
	outbox   *fakeOutbox
	hasher   *fakeHasher
	signer   *fakeSigner
	sessions *fakeSessions
}

func newSvcForTest() (*Service, *testDeps) {
	d := &testDeps{
		users:    newFakeUserRepo(),
		outbox:   &fakeOutbox{},
		hasher:   &fakeHasher{},
		signer:   &fakeSigner{},
		sessions: newFakeSessions(),
	}
	svc := NewService(d.users, d.outbox, d.hasher, d.signer, d.sessions,
		fixedClock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)},
		Config{AccessTTL: 15 * time.Minute, RefreshTTL: time.Hour, AdminEmail: "Boss@Example.com"},
	)
	return svc, d
}
