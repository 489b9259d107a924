package store

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"confide/internal/models"
)

// CreateRoomInput describes a new room. RoomCode is only used for super
// secret rooms; a code is generated when it is empty.
type CreateRoomInput struct {
	Name          string
	Description   string
	Category      models.RoomCategory
	IsPrivate     bool
	IsSuperSecret bool
	Password      string
	RoomCode      string
}

type membershipChanged struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
	By     string `json:"by,omitempty"`
}

type adminChanged struct {
	RoomID  string `json:"room_id"`
	UserID  string `json:"user_id"`
	IsAdmin bool   `json:"is_admin"`
}

func normalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CreateRoom charges the tier price and makes the caller the room's only
// member and admin.
func (s *Store) CreateRoom(ctx context.Context, actorID string, in CreateRoomInput) (*models.ChatRoom, error) {
	if in.IsSuperSecret {
		in.IsPrivate = true
		if in.Password == "" {
			return nil, models.NewValidationError("Super secret rooms need a password")
		}
	}
	var hash string
	if in.Password != "" && in.IsPrivate {
		h, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		hash = string(h)
	}
	return result[*models.ChatRoom](s.execute(ctx, OpCreateRoom, actorID, createRoomPayload{
		Name:          in.Name,
		Description:   in.Description,
		Category:      in.Category,
		IsPrivate:     in.IsPrivate,
		IsSuperSecret: in.IsSuperSecret,
		PasswordHash:  hash,
		RoomCode:      normalizeRoomCode(in.RoomCode),
	}))
}

func (s *Store) planCreateRoom(tx *txn, p createRoomPayload) (func(), error) {
	creator, err := s.st.user(tx.cmd.ActorID)
	if err != nil {
		return nil, err
	}
	name, err := requireText("Room name", p.Name, maxRoomNameLength)
	if err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(p.Description) > maxDescriptionLength {
		return nil, models.NewValidationError("Room description is too long")
	}
	if p.Category == "" {
		p.Category = models.RoomCategoryGeneral
	}
	if !p.Category.Valid() {
		return nil, models.NewValidationError("Unknown room category")
	}
	if p.IsSuperSecret {
		p.IsPrivate = true
		if p.PasswordHash == "" {
			return nil, models.NewValidationError("Super secret rooms need a password")
		}
	}

	var code *string
	switch {
	case p.RoomCode != "" && !p.IsSuperSecret:
		return nil, models.NewValidationError("Only super secret rooms have a room code")
	case p.RoomCode != "":
		if !customCodePattern.MatchString(p.RoomCode) {
			return nil, models.NewValidationError("Room code must be 4-16 upper-case letters or digits")
		}
		if _, taken := s.st.roomCodes[p.RoomCode]; taken {
			return nil, models.NewConflictError("Room code is already in use")
		}
		c := p.RoomCode
		code = &c
	case p.IsSuperSecret:
		c, err := s.freeRoomCode(tx)
		if err != nil {
			return nil, err
		}
		code = &c
	}

	cost := models.TierFor(p.IsPrivate, p.IsSuperSecret).Cost()
	if err := requireCredits(creator, cost); err != nil {
		return nil, err
	}

	room := &models.ChatRoom{
		ID:            tx.nextID(),
		Name:          name,
		Description:   strings.TrimSpace(p.Description),
		Category:      p.Category,
		CreatorID:     creator.ID,
		IsPrivate:     p.IsPrivate,
		IsSuperSecret: p.IsSuperSecret,
		PasswordHash:  p.PasswordHash,
		RoomCode:      code,
		MemberLimit:   models.DefaultRoomMemberLimit,
		MemberCount:   1,
		OnlineCount:   1,
		Members:       models.IDSet{creator.ID},
		Admins:        models.IDSet{creator.ID},
		BannedUsers:   models.IDSet{},
		CreatedAt:     tx.cmd.At,
		LastActivity:  tx.cmd.At,
	}
	return func() {
		tx.debit(creator, cost, reasonRoomCreation)
		s.st.rooms[room.ID] = room
		if code != nil {
			s.st.roomCodes[*code] = room.ID
		}
		tx.emit(models.EventRoomCreated, models.RoomTopic(room.ID), room.Clone())
		tx.result = room.Clone()
	}, nil
}

func (s *Store) freeRoomCode(tx *txn) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		c := deriveCode(tx.cmd.ID, attempt, roomCodeLength)
		if _, taken := s.st.roomCodes[c]; !taken {
			return c, nil
		}
	}
	return "", models.NewConflictError("Could not allocate a room code, try again")
}

// JoinRoom adds the caller to a public or private room. Super secret rooms
// are only reachable through JoinSuperSecretRoom.
func (s *Store) JoinRoom(ctx context.Context, actorID, roomID, password string) (*models.ChatRoom, error) {
	s.mu.RLock()
	room, ok := s.st.rooms[roomID]
	var hash string
	if ok {
		hash = room.PasswordHash
		ok = !room.IsSuperSecret
	}
	s.mu.RUnlock()
	if !ok {
		return nil, models.NewNotFoundError("Room", roomID)
	}
	if err := checkRoomPassword(hash, password); err != nil {
		return nil, err
	}
	return result[*models.ChatRoom](s.execute(ctx, OpJoinRoom, actorID, joinRoomPayload{RoomID: roomID}))
}

// JoinSuperSecretRoom joins a super secret room by code and password.
// Joining a room the caller already belongs to changes nothing.
func (s *Store) JoinSuperSecretRoom(ctx context.Context, actorID, code, password string) (*models.ChatRoom, error) {
	code = normalizeRoomCode(code)

	s.mu.RLock()
	var roomID, hash string
	if id, ok := s.st.roomCodes[code]; ok && s.st.rooms[id].IsSuperSecret {
		roomID, hash = id, s.st.rooms[id].PasswordHash
	}
	s.mu.RUnlock()
	if roomID == "" {
		return nil, models.NewNotFoundError("Room", code)
	}
	if err := checkRoomPassword(hash, password); err != nil {
		return nil, err
	}
	return result[*models.ChatRoom](s.execute(ctx, OpJoinSuperSecretRoom, actorID, joinRoomPayload{RoomID: roomID}))
}

func checkRoomPassword(hash, password string) error {
	if hash == "" {
		return nil
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return models.NewForbiddenError("Incorrect room password")
	}
	return nil
}

func (s *Store) planJoinRoom(tx *txn, p joinRoomPayload) (func(), error) {
	u, err := s.st.user(tx.cmd.ActorID)
	if err != nil {
		return nil, err
	}
	room, err := s.st.room(p.RoomID)
	if err != nil {
		return nil, err
	}
	if room.IsSuperSecret != (tx.cmd.Op == OpJoinSuperSecretRoom) {
		return nil, models.NewNotFoundError("Room", p.RoomID)
	}
	if room.BannedUsers.Has(u.ID) {
		return nil, models.NewForbiddenError("You are banned from this room")
	}
	if room.Members.Has(u.ID) {
		tx.result = room.Clone()
		return nil, nil
	}
	if room.MemberLimit > 0 && room.MemberCount >= room.MemberLimit {
		return nil, models.NewConflictError("Room is full")
	}
	return func() {
		room.Members.Add(u.ID)
		room.MemberCount++
		room.OnlineCount++
		tx.emit(models.EventRoomMemberJoined, models.RoomTopic(room.ID), membershipChanged{RoomID: room.ID, UserID: u.ID})
		tx.result = room.Clone()
	}, nil
}

// LeaveRoom removes the caller from a room. The creator cannot leave.
func (s *Store) LeaveRoom(ctx context.Context, actorID, roomID string) (*models.ChatRoom, error) {
	return result[*models.ChatRoom](s.execute(ctx, OpLeaveRoom, actorID, joinRoomPayload{RoomID: roomID}))
}

func (s *Store) planLeaveRoom(tx *txn, p joinRoomPayload) (func(), error) {
	room, err := s.st.room(p.RoomID)
	if err != nil {
		return nil, err
	}
	actorID := tx.cmd.ActorID
	if !room.Members.Has(actorID) {
		return nil, models.NewValidationError("You are not a member of this room")
	}
	if room.CreatorID == actorID {
		return nil, models.NewForbiddenError("The room creator cannot leave the room")
	}
	return func() {
		dropMember(room, actorID)
		tx.emit(models.EventRoomMemberLeft, models.RoomTopic(room.ID), membershipChanged{RoomID: room.ID, UserID: actorID})
		tx.result = room.Clone()
	}, nil
}

func dropMember(room *models.ChatRoom, userID string) {
	room.Members.Remove(userID)
	room.Admins.Remove(userID)
	room.MemberCount = max(0, room.MemberCount-1)
	room.OnlineCount = max(0, room.OnlineCount-1)
}

// KickUserFromRoom removes a member. Only the creator and admins may kick.
func (s *Store) KickUserFromRoom(ctx context.Context, actorID, roomID, targetID string) (*models.ChatRoom, error) {
	return result[*models.ChatRoom](s.execute(ctx, OpKickUser, actorID, moderationPayload{RoomID: roomID, TargetID: targetID}))
}

// BanUserFromRoom removes a member and blocks them from rejoining. A user who
// is not a member can be banned ahead of time.
func (s *Store) BanUserFromRoom(ctx context.Context, actorID, roomID, targetID string) (*models.ChatRoom, error) {
	return result[*models.ChatRoom](s.execute(ctx, OpBanUser, actorID, moderationPayload{RoomID: roomID, TargetID: targetID}))
}

func (s *Store) planRemoveMember(tx *txn, p moderationPayload, ban bool) (func(), error) {
	room, err := s.st.room(p.RoomID)
	if err != nil {
		return nil, err
	}
	actorID := tx.cmd.ActorID
	if !room.CanModerate(actorID) {
		return nil, models.NewUnauthorizedError("Only the room creator or admins can remove members")
	}
	if p.TargetID == actorID {
		return nil, models.NewValidationError("You cannot remove yourself")
	}
	target, err := s.st.user(p.TargetID)
	if err != nil {
		return nil, err
	}
	if target.ID == room.CreatorID {
		return nil, models.NewForbiddenError("The room creator cannot be removed")
	}
	wasMember := room.Members.Has(target.ID)
	if !ban && !wasMember {
		return nil, models.NewNotFoundError("Member", target.ID)
	}
	if ban && room.BannedUsers.Has(target.ID) {
		return nil, models.NewConflictError("User is already banned from this room")
	}

	eventType, verb := models.EventRoomMemberKicked, "removed from"
	if ban {
		eventType, verb = models.EventRoomMemberBanned, "banned from"
	}
	return func() {
		if wasMember {
			dropMember(room, target.ID)
		}
		if ban {
			room.BannedUsers.Add(target.ID)
		}
		change := membershipChanged{RoomID: room.ID, UserID: target.ID, By: actorID}
		tx.emit(eventType, models.RoomTopic(room.ID), change)
		tx.emit(eventType, models.UserTopic(target.ID), change)
		if target.Preferences.Notifications.Admin {
			s.notify(tx, target.ID, models.NotificationAdmin, "Room moderation", "You were "+verb+" "+room.Name)
		}
		tx.result = room.Clone()
	}, nil
}

// MakeUserAdmin toggles a member's admin role. Only the creator may do this.
func (s *Store) MakeUserAdmin(ctx context.Context, actorID, roomID, targetID string) (*models.ChatRoom, error) {
	return result[*models.ChatRoom](s.execute(ctx, OpToggleAdmin, actorID, moderationPayload{RoomID: roomID, TargetID: targetID}))
}

func (s *Store) planToggleAdmin(tx *txn, p moderationPayload) (func(), error) {
	room, err := s.st.room(p.RoomID)
	if err != nil {
		return nil, err
	}
	if room.CreatorID != tx.cmd.ActorID {
		return nil, models.NewUnauthorizedError("Only the room creator can manage admins")
	}
	if p.TargetID == room.CreatorID {
		return nil, models.NewValidationError("The room creator is always an admin")
	}
	if !room.Members.Has(p.TargetID) {
		return nil, models.NewValidationError("Only members can be made admins")
	}
	return func() {
		granted := !room.Admins.Has(p.TargetID)
		if granted {
			room.Admins.Add(p.TargetID)
		} else {
			room.Admins.Remove(p.TargetID)
		}
		tx.emit(models.EventRoomAdminChanged, models.RoomTopic(room.ID), adminChanged{RoomID: room.ID, UserID: p.TargetID, IsAdmin: granted})
		tx.result = room.Clone()
	}, nil
}

// visibleRoom hides super secret rooms from non-members. Callers hold the lock.
func (s *Store) visibleRoom(viewerID, roomID string) (*models.ChatRoom, error) {
	room, err := s.st.room(roomID)
	if err != nil {
		return nil, err
	}
	if room.IsSuperSecret && !room.Members.Has(viewerID) {
		return nil, models.NewNotFoundError("Room", roomID)
	}
	return room, nil
}

// Room returns a room the viewer is allowed to see.
func (s *Store) Room(viewerID, roomID string) (*models.ChatRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, err := s.visibleRoom(viewerID, roomID)
	if err != nil {
		return nil, err
	}
	return room.Clone(), nil
}

// ListRooms returns every room the viewer may see, most recently active first.
func (s *Store) ListRooms(viewerID string) []models.ChatRoom {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ChatRoom, 0, len(s.st.rooms))
	for _, r := range s.st.rooms {
		if r.IsSuperSecret && !r.Members.Has(viewerID) {
			continue
		}
		out = append(out, *r.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastActivity.Equal(out[j].LastActivity) {
			return out[i].ID < out[j].ID
		}
		return out[i].LastActivity.After(out[j].LastActivity)
	})
	return out
}

// IsRoomMember reports whether userID currently belongs to roomID.
func (s *Store) IsRoomMember(userID, roomID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.st.rooms[roomID]
	return ok && r.Members.Has(userID)
}
