package cache

import (
	"fmt"
	"strings"
	"time"
)

const (
	PresenceKeyPrefix = "presence:user:"
	RateLimitKeyFmt   = "rl:%s:%s"
)

// DefaultPresenceTTL is how long a heartbeat keeps a user online.
const DefaultPresenceTTL = 90 * time.Second

// PresenceKey is the TTL key that exists while userID is connected.
func PresenceKey(userID string) string {
	return PresenceKeyPrefix + userID
}

// UserIDFromPresenceKey reverses PresenceKey.
func UserIDFromPresenceKey(key string) (string, bool) {
	if !strings.HasPrefix(key, PresenceKeyPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(key, PresenceKeyPrefix)
	return id, id != ""
}

// RateLimitKey counts requests of id against resource.
func RateLimitKey(resource, id string) string {
	return fmt.Sprintf(RateLimitKeyFmt, resource, id)
}
