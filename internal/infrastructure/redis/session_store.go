package redis

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/baechuer/eventhub/internal/domain"
)

var errNotConfigured = errors.New("redis session store not configured")

// SessionStore keeps opaque refresh tokens with per-user versioning:
//   - rt:<token>  -> "<uid>:<ver>" with TTL
//   - rtver:<uid> -> <ver>, bumped by RevokeAll
//
// A token is valid only while its ver equals the user's current ver.
type SessionStore struct {
	rdb *goredis.Client

	rtPrefix    string
	rtverPrefix string
	tokenBytes  int
}

func NewSessionStore(c *Client) *SessionStore {
	var rdb *goredis.Client
	if c != nil {
		rdb = c.rdb
	}
	return &SessionStore{
		rdb:         rdb,
		rtPrefix:    "rt:",
		rtverPrefix: "rtver:",
		tokenBytes:  32,
	}
}

func (s *SessionStore) CreateRefreshToken(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", domain.ErrMissingField("user_id")
	}
	if s.rdb == nil {
		return "", errNotConfigured
	}

	ver, err := s.userVersion(ctx, userID)
	if err != nil {
		return "", err
	}
	token, err := s.newOpaqueToken()
	if err != nil {
		return "", err
	}
	if err := s.rdb.Set(ctx, s.rtPrefix+token, fmt.Sprintf("%s:%d", userID, ver), ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// atomic move: GET old, DEL old, SET new with TTL; returns the old value or nil
const rotateLua = `
local v = redis.call("GET", KEYS[1])
if not v then
  return nil
end
redis.call("DEL", KEYS[1])
redis.call("SET", KEYS[2], v, "PX", ARGV[1])
return v
`

func (s *SessionStore) RotateRefreshToken(ctx context.Context, oldToken string, ttl time.Duration) (string, error) {
	oldToken = strings.TrimSpace(oldToken)
	if oldToken == "" {
		return "", domain.ErrRefreshTokenInvalid()
	}
	if s.rdb == nil {
		return "", errNotConfigured
	}

	newToken, err := s.newOpaqueToken()
	if err != nil {
		return "", err
	}

	ttlms := ttl.Milliseconds()
	if ttlms <= 0 {
		ttlms = (7 * 24 * time.Hour).Milliseconds()
	}

	res, err := s.rdb.Eval(ctx, rotateLua, []string{s.rtPrefix + oldToken, s.rtPrefix + newToken}, ttlms).Result()
	if errors.Is(err, goredis.Nil) {
		return "", domain.ErrRefreshTokenInvalid()
	}
	if err != nil {
		return "", err
	}
	val, ok := res.(string)
	if !ok {
		return "", domain.ErrRefreshTokenInvalid()
	}

	uid, tokVer, err := parseUIDVer(val)
	if err != nil {
		return "", domain.ErrRefreshTokenInvalid()
	}
	curVer, err := s.userVersion(ctx, uid)
	if err != nil {
		return "", err
	}
	if tokVer != curVer {
		_ = s.rdb.Del(ctx, s.rtPrefix+newToken).Err()
		return "", domain.ErrRefreshTokenInvalid()
	}
	return newToken, nil
}

// RevokeRefreshToken is idempotent.
func (s *SessionStore) RevokeRefreshToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	if s.rdb == nil {
		return errNotConfigured
	}
	return s.rdb.Del(ctx, s.rtPrefix+token).Err()
}

// RevokeAll invalidates every refresh token the user holds.
func (s *SessionStore) RevokeAll(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.ErrMissingField("user_id")
	}
	if s.rdb == nil {
		return errNotConfigured
	}
	return s.rdb.Incr(ctx, s.rtverPrefix+userID).Err()
}

func (s *SessionStore) GetUserIDByRefreshToken(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", domain.ErrRefreshTokenInvalid()
	}
	if s.rdb == nil {
		return "", errNotConfigured
	}

	val, err := s.rdb.Get(ctx, s.rtPrefix+token).Result()
	if errors.Is(err, goredis.Nil) {
		return "", domain.ErrRefreshTokenInvalid()
	}
	if err != nil {
		return "", err
	}

	uid, tokVer, err := parseUIDVer(val)
	if err != nil {
		return "", domain.ErrRefreshTokenInvalid()
	}
	curVer, err := s.userVersion(ctx, uid)
	if err != nil {
		return "", err
	}
	if tokVer != curVer {
		return "", domain.ErrRefreshTokenInvalid()
	}
	return uid, nil
}

func (s *SessionStore) userVersion(ctx context.Context, userID string) (int64, error) {
	key := s.rtverPrefix + userID

	v, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		if n, perr := strconv.ParseInt(strings.TrimSpace(v), 10, 64); perr == nil {
			return n, nil
		}
	} else if !errors.Is(err, goredis.Nil) {
		return 0, err
	}

	// missing or garbage: pin to 0
	_ = s.rdb.SetNX(ctx, key, "0", 0).Err()
	return 0, nil
}

func parseUIDVer(s string) (string, int64, error) {
	uid, verStr, ok := strings.Cut(s, ":")
	if !ok || strings.Contains(verStr, ":") {
		return "", 0, fmt.Errorf("bad token value")
	}
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return "", 0, fmt.Errorf("empty uid")
	}
	ver, err := strconv.ParseInt(strings.TrimSpace(verStr), 10, 64)
	if err != nil {
		return "", 0, err
	}
	return uid, ver, nil
}

func (s *SessionStore) newOpaqueToken() (string, error) {
	b := make([]byte, s.tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
