package store

import (
	"context"

	"confide/internal/models"
)

// notify queues a notification for userID. Only call from a commit.
func (s *Store) notify(tx *txn, userID string, kind models.NotificationType, title, content string) {
	n := &models.Notification{
		ID:        tx.nextID(),
		UserID:    userID,
		Type:      kind,
		Title:     title,
		Content:   content,
		CreatedAt: tx.cmd.At,
	}
	s.st.notifications[n.ID] = n
	s.st.notificationOrder = append(s.st.notificationOrder, n.ID)
	tx.emit(models.EventNotificationCreated, models.UserTopic(userID), n.Clone())
}

// Notifications lists the user's notifications, newest first.
func (s *Store) Notifications(userID string) []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Notification
	for i := len(s.st.notificationOrder) - 1; i >= 0; i-- {
		n := s.st.notifications[s.st.notificationOrder[i]]
		if n.UserID == userID {
			out = append(out, *n.Clone())
		}
	}
	return out
}

// UnreadNotificationCount counts the user's unread notifications.
func (s *Store) UnreadNotificationCount(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.st.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count
}

// MarkNotificationRead marks one of the caller's notifications as read.
func (s *Store) MarkNotificationRead(ctx context.Context, actorID, notificationID string) (*models.Notification, error) {
	return result[*models.Notification](s.execute(ctx, OpMarkNotification, actorID, idPayload{ID: notificationID}))
}

func (s *Store) planMarkNotificationRead(tx *txn, p idPayload) (func(), error) {
	n, ok := s.st.notifications[p.ID]
	if !ok || n.UserID != tx.cmd.ActorID {
		return nil, models.NewNotFoundError("Notification", p.ID)
	}
	if n.IsRead {
		tx.result = n.Clone()
		return nil, nil
	}
	return func() {
		n.IsRead = true
		tx.result = n.Clone()
	}, nil
}

// MarkAllNotificationsRead marks every notification of the caller as read and
// returns how many changed.
func (s *Store) MarkAllNotificationsRead(ctx context.Context, actorID string) (int, error) {
	return result[int](s.execute(ctx, OpMarkAllNotification, actorID, struct{}{}))
}

func (s *Store) planMarkAllNotificationsRead(tx *txn) (func(), error) {
	if _, err := s.st.user(tx.cmd.ActorID); err != nil {
		return nil, err
	}
	var unread []*models.Notification
	for _, n := range s.st.notifications {
		if n.UserID == tx.cmd.ActorID && !n.IsRead {
			unread = append(unread, n)
		}
	}
	if len(unread) == 0 {
		tx.result = 0
		return nil, nil
	}
	return func() {
		for _, n := range unread {
			n.IsRead = true
		}
		tx.result = len(unread)
	}, nil
}
