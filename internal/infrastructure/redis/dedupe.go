package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// MailDedupe remembers delivered mail message ids so a redelivered broker
// message is not mailed twice.
type MailDedupe struct {
	rdb *goredis.Client
	ttl time.Duration
}

func NewMailDedupe(c *Client, ttl time.Duration) *MailDedupe {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &MailDedupe{rdb: c.rdb, ttl: ttl}
}

func (d *MailDedupe) key(messageID string) string {
	return "mail:processed:" + messageID
}

// CheckAndMark claims messageID with SETNX and reports whether it was already claimed.
func (d *MailDedupe) CheckAndMark(ctx context.Context, messageID string) (bool, error) {
	set, err := d.rdb.SetNX(ctx, d.key(messageID), time.Now().Unix(), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mail dedupe check: %w", err)
	}
	return !set, nil
}

// Release drops the claim after a failed send so a retry can deliver it.
func (d *MailDedupe) Release(ctx context.Context, messageID string) error {
	return d.rdb.Del(ctx, d.key(messageID)).Err()
}
