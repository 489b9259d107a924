package models

import (
	"encoding/json"
	"strings"
	"time"
)

// EventType names a domain event emitted by a committed store command.
type EventType string

// Event type constants prevent typos in event names.
const (
	EventMessageReceived       EventType = "message_received"
	EventRoomMessage           EventType = "room_message"
	EventRoomCreated           EventType = "room_created"
	EventRoomMemberJoined      EventType = "room_member_joined"
	EventRoomMemberLeft        EventType = "room_member_left"
	EventRoomMemberKicked      EventType = "room_member_kicked"
	EventRoomMemberBanned      EventType = "room_member_banned"
	EventRoomAdminChanged      EventType = "room_admin_changed"
	EventFriendRequestReceived EventType = "friend_request_received"
	EventFriendRequestAccepted EventType = "friend_request_accepted"
	EventFriendRequestDeclined EventType = "friend_request_declined"
	EventNotificationCreated   EventType = "notification_created"
	EventCreditsChanged        EventType = "credits_changed"
	EventPresenceChanged       EventType = "presence_changed"
	EventConfessionCreated     EventType = "confession_created"
	EventConfessionUpdated     EventType = "confession_updated"
	EventConfessionDeleted     EventType = "confession_deleted"
)

// Topic prefixes used for routing events over the bus.
const (
	userTopicPrefix = "notifications:user:"
	roomTopicPrefix = "chat:room:"
	// FeedTopic carries confession feed events to every subscriber.
	FeedTopic = "feed:confessions"
	// PresenceTopic carries presence changes to every subscriber.
	PresenceTopic = "presence:users"
)

// UserTopic derives the topic for events addressed to one user.
func UserTopic(userID string) string {
	return userTopicPrefix + userID
}

// RoomTopic derives the topic for events addressed to a room's members.
func RoomTopic(roomID string) string {
	return roomTopicPrefix + roomID
}

// UserIDFromTopic returns the user id of a user topic.
func UserIDFromTopic(topic string) (string, bool) {
	if !strings.HasPrefix(topic, userTopicPrefix) {
		return "", false
	}
	return strings.TrimPrefix(topic, userTopicPrefix), true
}

// RoomIDFromTopic returns the room id of a room topic.
func RoomIDFromTopic(topic string) (string, bool) {
	if !strings.HasPrefix(topic, roomTopicPrefix) {
		return "", false
	}
	return strings.TrimPrefix(topic, roomTopicPrefix), true
}

// Event is published after a store command commits.
type Event struct {
	ID      string          `json:"id"`
	Type    EventType       `json:"type"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
	At      time.Time       `json:"at"`
}

// NewEvent builds an event, encoding payload as JSON.
func NewEvent(id string, eventType EventType, topic string, payload interface{}, at time.Time) Event {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = json.RawMessage("{}")
	}
	return Event{
		ID:      id,
		Type:    eventType,
		Topic:   topic,
		Payload: raw,
		At:      at,
	}
}
