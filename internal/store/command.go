package store

import (
	"encoding/json"
	"fmt"
	"time"

	"confide/internal/models"
)

// Op names a store command.
type Op string

const (
	OpRegister            Op = "register"
	OpSetPresence         Op = "set_presence"
	OpUpdatePreferences   Op = "update_preferences"
	OpCredit              Op = "credit"
	OpSendMessage         Op = "send_message"
	OpSendRoomMessage     Op = "send_room_message"
	OpMarkMessageRead     Op = "mark_message_read"
	OpIngestMessage       Op = "ingest_message"
	OpCreateRoom          Op = "create_room"
	OpJoinRoom            Op = "join_room"
	OpJoinSuperSecretRoom Op = "join_super_secret_room"
	OpLeaveRoom           Op = "leave_room"
	OpKickUser            Op = "kick_user"
	OpBanUser             Op = "ban_user"
	OpToggleAdmin         Op = "toggle_admin"
	OpSendFriendRequest   Op = "send_friend_request"
	OpAddFriendByUsername Op = "add_friend_by_username"
	OpAnswerFriendRequest Op = "answer_friend_request"
	OpCreateConfession    Op = "create_confession"
	OpEditConfession      Op = "edit_confession"
	OpDeleteConfession    Op = "delete_confession"
	OpLikeConfession      Op = "like_confession"
	OpSaveConfession      Op = "save_confession"
	OpAddComment          Op = "add_comment"
	OpLikeComment         Op = "like_comment"
	OpGenerateReferral    Op = "generate_referral"
	OpUseReferral         Op = "use_referral"
	OpMarkNotification    Op = "mark_notification_read"
	OpMarkAllNotification Op = "mark_all_notifications_read"
)

// Command is one journaled store operation. Everything that is not a pure
// function of prior state (ids, codes, time, hashes, flag decisions) is fixed
// in the command so that replaying it reproduces the same state.
type Command struct {
	ID      string          `json:"id"`
	Op      Op              `json:"op"`
	ActorID string          `json:"actor_id,omitempty"`
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// txn collects the effects of one command while it is planned and committed.
type txn struct {
	cmd    Command
	seq    int
	events []models.Event
	moves  []creditMove
	result any
}

type creditMove struct {
	amount int
	reason string
}

// nextID derives the next entity id for this command.
func (t *txn) nextID() string {
	t.seq++
	return deriveID(t.cmd.ID, t.seq)
}

func (t *txn) emit(eventType models.EventType, topic string, payload any) {
	t.events = append(t.events, models.NewEvent(t.nextID(), eventType, topic, payload, t.cmd.At))
}

// planFunc validates a command against current state. It returns the function
// that applies the change, or nil when the command succeeds without changing
// anything. It must not mutate state itself.
type planFunc func(tx *txn) (commit func(), err error)

type (
	registerPayload struct {
		Username     string `json:"username"`
		Email        string `json:"email"`
		PasswordHash string `json:"password_hash"`
	}
	presencePayload struct {
		Online bool `json:"online"`
	}
	preferencesPayload struct {
		Patch models.PreferencesPatch `json:"patch"`
	}
	creditPayload struct {
		UserID string `json:"user_id"`
		Amount int    `json:"amount"`
		Reason string `json:"reason"`
	}
	sendMessagePayload struct {
		ReceiverID string             `json:"receiver_id"`
		Content    string             `json:"content"`
		Type       models.MessageType `json:"type"`
		ImageURL   string             `json:"image_url,omitempty"`
	}
	roomMessagePayload struct {
		RoomID  string `json:"room_id"`
		Content string `json:"content"`
	}
	idPayload struct {
		ID string `json:"id"`
	}
	ingestPayload struct {
		Message models.Message `json:"message"`
	}
	createRoomPayload struct {
		Name          string              `json:"name"`
		Description   string              `json:"description"`
		Category      models.RoomCategory `json:"category"`
		IsPrivate     bool                `json:"is_private"`
		IsSuperSecret bool                `json:"is_super_secret"`
		PasswordHash  string              `json:"password_hash,omitempty"`
		RoomCode      string              `json:"room_code,omitempty"`
	}
	joinRoomPayload struct {
		RoomID string `json:"room_id"`
	}
	moderationPayload struct {
		RoomID   string `json:"room_id"`
		TargetID string `json:"target_id"`
	}
	friendRequestPayload struct {
		ReceiverID string `json:"receiver_id"`
	}
	usernamePayload struct {
		Username string `json:"username"`
	}
	answerPayload struct {
		RequestID string `json:"request_id"`
		Accept    bool   `json:"accept"`
	}
	confessionPayload struct {
		ConfessionID string                    `json:"confession_id,omitempty"`
		Title        string                    `json:"title"`
		Content      string                    `json:"content"`
		Category     models.ConfessionCategory `json:"category,omitempty"`
	}
	commentPayload struct {
		ConfessionID   string `json:"confession_id"`
		Content        string `json:"content"`
		NotifyMentions bool   `json:"notify_mentions"`
	}
	commentLikePayload struct {
		ConfessionID string `json:"confession_id"`
		CommentID    string `json:"comment_id"`
	}
	referralPayload struct {
		Code string `json:"code,omitempty"`
	}
)

// planner decodes a command payload and returns the plan for its op.
func (s *Store) planner(cmd Command) (planFunc, error) {
	decode := func(v any) error {
		if len(cmd.Payload) == 0 {
			return nil
		}
		return json.Unmarshal(cmd.Payload, v)
	}
	bind := func(v any, plan func() planFunc) (planFunc, error) {
		if err := decode(v); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", cmd.Op, err)
		}
		return plan(), nil
	}

	switch cmd.Op {
	case OpRegister:
		var p registerPayload
		return bind(&p, func() planFunc { return func(tx *txn) (func(), error) { return s.planRegister(tx, p) } })
	case OpSetPresence:
		var p presencePayload
		return bind(&p, func() planFunc { return func(tx *txn) (func(), error) { return s.planSetPresence(tx, p) } })
	case OpUpdatePreferences:
		var p preferencesPayload
		return bind(&p, func() planFunc { return func(tx *txn) (func(), error) { return s.planUpdatePreferences(tx, p) } })
	case OpCredit:
		var p creditPayload
		return bind(&p, func() planFunc { return func(tx *txn) (func(), error) { return s.planCredit(tx, p) } })
	case OpSendMessage:
		var p sendMessagePayload
		return bind(&p, func() planFunc { return func(tx *txn) (func(), error) { return s.planSendMessage(tx, p) } })
	case OpSendRoomMessage:
		var p roomMessagePayload
		return bind(&p, func() planFunc { return func(tx *txn) (func(), error) { return s.planSendRoomMessage(tx, p) } })
	case OpMarkMessageRead:
		var p idPayload
		return bind(&p, func() planFunc { return func(tx *txn) (func(), error) { return s.planMarkMessageRead(tx, p) } })
	case OpIngestMessage:
		var p ingestPayload
		return bind(&p, func() planFunc { return func(tx *txn) (func(), error) { return s.planIngestMessage(tx, p) } })
	case OpCreateRoom:
		var p createRoomPayload
		return bind(&p, func() planFunc { return func(tx *txn) (func(), error) { return s.planCreateRoom(tx, p) } })
	case OpJoinRoom, OpJoinSuperSecretRoom:
		var p joinRoomPayload
		return bind(&p, func() planFunc { return func(tx *txn) (func(), error) { return s.planJoinRoom(tx, p) } })
	case OpLeaveRoom:
		var p joinRoomPayload
		return bind(&p, func() planFunc { return func(tx *txn) (func(), error) { return s.planLeaveRoom(tx, p) } })
	case OpKickUser:
		var p moderationPayload
		return bind(&p, func() planFunc { return func(tx *txn) (func(), error) { return s.planRemoveMember(tx, p, false) } })
	case OpBanUser:
		var p moderationPayload
		return bind(&p, func() planFunc { return func(tx *txn) (func(), error) { return s.planRemoveMember(tx, p, true) } })
	case OpToggleAdmin:
		var p moderationPayload
		return bind(&p, func() planFunc { return func(tx *txn) (func(), error) { return s.planToggleAdmin(tx, p) } })
	case OpSendFriendRequest:
		var p friendRequestPayload
		return bind(&p, func() planFunc { return func(tx *txn) (func(), error) { return s.planSendFriendRequest(tx, p) } })
	case OpAddFriendByUsername:
		var p usernamePayload
		return bind(&p, func() planFunc { return func(tx *txn) (func(), error) { return s.planAddFriendByUsername(tx, p) } })
	case OpAnswerFriendRequest:
		var p answerPayload
		return bind(&p, func() planFunc { return func(tx *txn) (func(), error) { return s.planAnswerFriendRequest(tx, p) } })
	case OpCreateConfession:
		var p confessionPayload
		return bind(&p, func() planFunc { return func(tx *txn) (func(), error) { return s.planCreateConfession(tx, p) } })
	case OpEditConfession:
		var p confessionPayload
		return bind(&p, func() planFunc { return func(tx *txn) (func(), error) { return s.planEditConfession(tx, p) } })
	case OpDeleteConfession:
		var p idPayload
		return bind(&p, func() planFunc { return func(tx *txn) (func(), error) { return s.planDeleteConfession(tx, p) } })
	case OpLikeConfession:
		var p idPayload
		return bind(&p, func() planFunc { return func(tx *txn) (func(), error) { return s.planLikeConfession(tx, p) } })
	case OpSaveConfession:
		var p idPayload
		return bind(&p, func() planFunc { return func(tx *txn) (func(), error) { return s.planSaveConfession(tx, p) } })
	case OpAddComment:
		var p commentPayload
		return bind(&p, func() planFunc { return func(tx *txn) (func(), error) { return s.planAddComment(tx, p) } })
	case OpLikeComment:
		var p commentLikePayload
		return bind(&p, func() planFunc { return func(tx *txn) (func(), error) { return s.planLikeComment(tx, p) } })
	case OpGenerateReferral:
		var p referralPayload
		return bind(&p, func() planFunc { return func(tx *txn) (func(), error) { return s.planGenerateReferral(tx, p) } })
	case OpUseReferral:
		var p referralPayload
		return bind(&p, func() planFunc { return func(tx *txn) (func(), error) { return s.planUseReferral(tx, p) } })
	case OpMarkNotification:
		var p idPayload
		return bind(&p, func() planFunc { return func(tx *txn) (func(), error) { return s.planMarkNotificationRead(tx, p) } })
	case OpMarkAllNotification:
		return func(tx *txn) (func(), error) { return s.planMarkAllNotificationsRead(tx) }, nil
	}
	return nil, fmt.Errorf("unknown store op %q", cmd.Op)
}
