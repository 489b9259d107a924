// Package notifications carries domain events between the store and
// real-time subscribers.
package notifications

import (
	"context"
	"path"

	"confide/internal/models"
)

// Subscription patterns. They use Redis glob syntax.
const (
	PatternUsers    = "notifications:user:*"
	PatternRooms    = "chat:room:*"
	PatternFeed     = models.FeedTopic
	PatternPresence = models.PresenceTopic
)

// AllPatterns matches every topic the store publishes on.
var AllPatterns = []string{PatternUsers, PatternRooms, PatternFeed, PatternPresence}

// Handler receives events from a subscription.
type Handler func(event models.Event)

// Bus publishes events on topics and delivers them to pattern subscribers.
// Delivery is at least once; handlers must tolerate duplicates.
type Bus interface {
	Publish(ctx context.Context, event models.Event) error
	// Subscribe delivers matching events to handler until ctx is done.
	Subscribe(ctx context.Context, handler Handler, patterns ...string) error
}

func matchesAny(patterns []string, topic string) bool {
	for _, p := range patterns {
		if ok, _ := path.Match(p, topic); ok {
			return true
		}
	}
	return false
}
