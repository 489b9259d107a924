package store

import (
	"regexp"

	"confide/internal/models"
)

var mentionPattern = regexp.MustCompile(`@(\w+)`)

// extractMentions returns every username mentioned in text as written, in
// order, repeats included.
func extractMentions(text string) models.IDSet {
	out := models.IDSet{}
	for _, m := range mentionPattern.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

// notifyMentions sends a mention notification to every mentioned user other
// than the author who has confession notifications on. Only call from a commit.
func (s *Store) notifyMentions(tx *txn, author *models.User, confession *models.Confession, mentions models.IDSet) {
	notified := make(map[string]bool)
	for _, name := range mentions {
		u, ok := s.st.userByUsername(name)
		if !ok || u.ID == author.ID || notified[u.ID] {
			continue
		}
		if !u.Preferences.Notifications.Confessions {
			continue
		}
		notified[u.ID] = true
		s.notify(tx, u.ID, models.NotificationMention, "You were mentioned",
			author.Username+" mentioned you on \""+confession.Title+"\"")
	}
}
