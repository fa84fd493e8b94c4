package event

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const cacheKeyListPrefix = "events:list:"

func cacheKeyEventDetails(id string) string {
	return fmt.Sprintf("event:%s", id)
}

// cacheKeyList hashes the normalized filter. Phase buckets move at midnight UTC,
// so the day is part of the key.
func cacheKeyList(f ListFilter, now time.Time) string {
	day := ""
	if f.Phase != "" {
		day = now.UTC().Format("2006-01-02")
	}
	raw := fmt.Sprintf("cat=%s|phase=%s|day=%s|p=%d|ps=%d",
		f.Category, f.Phase, day, f.Page, f.PageSize)

	hash := sha256.Sum256([]byte(raw))
	return cacheKeyListPrefix + hex.EncodeToString(hash[:])
}
