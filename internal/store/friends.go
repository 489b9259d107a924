package store

import (
	"context"
	"sort"
	"strings"

	"confide/internal/models"
)

// SendFriendRequest opens a pending request from the caller to receiverID.
func (s *Store) SendFriendRequest(ctx context.Context, actorID, receiverID string) (*models.FriendRequest, error) {
	return result[*models.FriendRequest](s.execute(ctx, OpSendFriendRequest, actorID, friendRequestPayload{ReceiverID: receiverID}))
}

func (s *Store) planSendFriendRequest(tx *txn, p friendRequestPayload) (func(), error) {
	sender, err := s.st.user(tx.cmd.ActorID)
	if err != nil {
		return nil, err
	}
	if p.ReceiverID == sender.ID {
		return nil, models.NewValidationError("You cannot send a friend request to yourself")
	}
	receiver, err := s.st.user(p.ReceiverID)
	if err != nil {
		return nil, err
	}
	for _, id := range s.st.requestOrder {
		r := s.st.friendRequests[id]
		if !r.Involves(sender.ID, receiver.ID) {
			continue
		}
		switch {
		case r.Status == models.FriendRequestAccepted:
			return nil, models.NewConflictError("You are already friends")
		case r.Status == models.FriendRequestPending && r.SenderID == sender.ID:
			return nil, models.NewConflictError("Friend request already sent")
		case r.Status == models.FriendRequestPending:
			return nil, models.NewConflictError("This user already sent you a friend request")
		}
	}
	if !receiver.Preferences.Privacy.AllowFriendRequests {
		return nil, models.NewForbiddenError("This user is not accepting friend requests")
	}

	req := &models.FriendRequest{
		ID:             tx.nextID(),
		SenderID:       sender.ID,
		ReceiverID:     receiver.ID,
		SenderUsername: sender.Username,
		Status:         models.FriendRequestPending,
		CreatedAt:      tx.cmd.At,
	}
	return func() {
		s.st.friendRequests[req.ID] = req
		s.st.requestOrder = append(s.st.requestOrder, req.ID)
		tx.emit(models.EventFriendRequestReceived, models.UserTopic(receiver.ID), req.Clone())
		if receiver.Preferences.Notifications.FriendRequests {
			s.notify(tx, receiver.ID, models.NotificationFriendRequest, "New friend request", sender.Username+" wants to be your friend")
		}
		tx.result = req.Clone()
	}, nil
}

// AddFriendByUsername sends a friend request to the user with the given
// username. It refuses when the caller has ever sent that user a request.
func (s *Store) AddFriendByUsername(ctx context.Context, actorID, username string) (*models.FriendRequest, error) {
	return result[*models.FriendRequest](s.execute(ctx, OpAddFriendByUsername, actorID, usernamePayload{Username: username}))
}

func (s *Store) planAddFriendByUsername(tx *txn, p usernamePayload) (func(), error) {
	target, ok := s.st.userByUsername(strings.TrimPrefix(strings.TrimSpace(p.Username), "@"))
	if !ok {
		return nil, models.NewNotFoundError("User", p.Username)
	}
	if target.ID == tx.cmd.ActorID {
		return nil, models.NewValidationError("You cannot add yourself as a friend")
	}
	for _, r := range s.st.friendRequests {
		if r.SenderID == tx.cmd.ActorID && r.ReceiverID == target.ID {
			return nil, models.NewConflictError("You already sent this user a friend request")
		}
	}
	return s.planSendFriendRequest(tx, friendRequestPayload{ReceiverID: target.ID})
}

// AcceptFriendRequest accepts a pending request addressed to the caller.
func (s *Store) AcceptFriendRequest(ctx context.Context, actorID, requestID string) (*models.FriendRequest, error) {
	return result[*models.FriendRequest](s.execute(ctx, OpAnswerFriendRequest, actorID, answerPayload{RequestID: requestID, Accept: true}))
}

// DeclineFriendRequest declines a pending request addressed to the caller.
func (s *Store) DeclineFriendRequest(ctx context.Context, actorID, requestID string) (*models.FriendRequest, error) {
	return result[*models.FriendRequest](s.execute(ctx, OpAnswerFriendRequest, actorID, answerPayload{RequestID: requestID}))
}

func (s *Store) planAnswerFriendRequest(tx *txn, p answerPayload) (func(), error) {
	req, err := s.st.friendRequest(p.RequestID)
	if err != nil {
		return nil, err
	}
	if req.ReceiverID != tx.cmd.ActorID {
		return nil, models.NewUnauthorizedError("Only the receiver can answer this friend request")
	}
	if req.Status != models.FriendRequestPending {
		return nil, models.NewConflictError("Friend request was already answered")
	}
	receiver, err := s.st.user(req.ReceiverID)
	if err != nil {
		return nil, err
	}
	sender, err := s.st.user(req.SenderID)
	if err != nil {
		return nil, err
	}
	return func() {
		if p.Accept {
			req.Status = models.FriendRequestAccepted
			tx.emit(models.EventFriendRequestAccepted, models.UserTopic(sender.ID), req.Clone())
			if sender.Preferences.Notifications.FriendRequests {
				s.notify(tx, sender.ID, models.NotificationFriendRequest, "Friend request accepted", receiver.Username+" accepted your friend request")
			}
		} else {
			req.Status = models.FriendRequestDeclined
			tx.emit(models.EventFriendRequestDeclined, models.UserTopic(sender.ID), req.Clone())
		}
		tx.result = req.Clone()
	}, nil
}

// FriendRequests returns the caller's pending incoming and outgoing requests,
// newest first.
func (s *Store) FriendRequests(userID string) (incoming, outgoing []models.FriendRequest) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.st.requestOrder) - 1; i >= 0; i-- {
		r := s.st.friendRequests[s.st.requestOrder[i]]
		if r.Status != models.FriendRequestPending {
			continue
		}
		switch userID {
		case r.ReceiverID:
			incoming = append(incoming, *r.Clone())
		case r.SenderID:
			outgoing = append(outgoing, *r.Clone())
		}
	}
	return incoming, outgoing
}

// Friends lists the users with an accepted request to or from userID.
func (s *Store) Friends(userID string) []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	var out []models.User
	for _, r := range s.st.friendRequests {
		if r.Status != models.FriendRequestAccepted {
			continue
		}
		other := ""
		switch userID {
		case r.SenderID:
			other = r.ReceiverID
		case r.ReceiverID:
			other = r.SenderID
		}
		if other == "" || seen[other] {
			continue
		}
		if u, ok := s.st.users[other]; ok {
			seen[other] = true
			out = append(out, *u.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Username) < strings.ToLower(out[j].Username)
	})
	return out
}
