package store

import (
	"sort"
	"strings"

	"confide/internal/models"
)

type state struct {
	users     map[string]*models.User
	usernames map[string]string // lower(username) -> user id
	emails    map[string]string // lower(email) -> user id

	messages     map[string]*models.Message
	messageOrder []string

	rooms     map[string]*models.ChatRoom
	roomCodes map[string]string // room code -> room id

	confessions map[string]*models.Confession

	friendRequests map[string]*models.FriendRequest
	requestOrder   []string

	notifications     map[string]*models.Notification
	notificationOrder []string

	referrals     map[string]*models.ReferralLink
	referralCodes map[string]string // code -> link id
}

func newState() *state {
	return &state{
		users:          make(map[string]*models.User),
		usernames:      make(map[string]string),
		emails:         make(map[string]string),
		messages:       make(map[string]*models.Message),
		rooms:          make(map[string]*models.ChatRoom),
		roomCodes:      make(map[string]string),
		confessions:    make(map[string]*models.Confession),
		friendRequests: make(map[string]*models.FriendRequest),
		notifications:  make(map[string]*models.Notification),
		referrals:      make(map[string]*models.ReferralLink),
		referralCodes:  make(map[string]string),
	}
}

func (st *state) user(id string) (*models.User, error) {
	u, ok := st.users[id]
	if !ok {
		return nil, models.NewNotFoundError("User", id)
	}
	return u, nil
}

func (st *state) userByUsername(username string) (*models.User, bool) {
	id, ok := st.usernames[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return nil, false
	}
	return st.users[id], true
}

func (st *state) room(id string) (*models.ChatRoom, error) {
	r, ok := st.rooms[id]
	if !ok {
		return nil, models.NewNotFoundError("Room", id)
	}
	return r, nil
}

func (st *state) confession(id string) (*models.Confession, error) {
	c, ok := st.confessions[id]
	if !ok {
		return nil, models.NewNotFoundError("Confession", id)
	}
	return c, nil
}

func (st *state) friendRequest(id string) (*models.FriendRequest, error) {
	r, ok := st.friendRequests[id]
	if !ok {
		return nil, models.NewNotFoundError("Friend request", id)
	}
	return r, nil
}

// Snapshot is a deep copy of the whole store at one version.
type Snapshot struct {
	Version        uint64
	Users          []models.User
	Messages       []models.Message
	Rooms          []models.ChatRoom
	Confessions    []models.Confession
	FriendRequests []models.FriendRequest
	Notifications  []models.Notification
	ReferralLinks  []models.ReferralLink
}

// Snapshot copies every entity. Slices are ordered by creation.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.st
	snap := Snapshot{Version: s.version}

	for _, u := range st.users {
		snap.Users = append(snap.Users, *u.Clone())
	}
	sort.Slice(snap.Users, func(i, j int) bool {
		return lessByTime(snap.Users[i].JoinedAt, snap.Users[j].JoinedAt, snap.Users[i].ID, snap.Users[j].ID)
	})
	for _, id := range st.messageOrder {
		snap.Messages = append(snap.Messages, *st.messages[id].Clone())
	}
	for _, r := range st.rooms {
		snap.Rooms = append(snap.Rooms, *r.Clone())
	}
	sort.Slice(snap.Rooms, func(i, j int) bool {
		return lessByTime(snap.Rooms[i].CreatedAt, snap.Rooms[j].CreatedAt, snap.Rooms[i].ID, snap.Rooms[j].ID)
	})
	for _, c := range st.confessions {
		snap.Confessions = append(snap.Confessions, *c.Clone())
	}
	sort.Slice(snap.Confessions, func(i, j int) bool {
		return lessByTime(snap.Confessions[i].CreatedAt, snap.Confessions[j].CreatedAt, snap.Confessions[i].ID, snap.Confessions[j].ID)
	})
	for _, id := range st.requestOrder {
		snap.FriendRequests = append(snap.FriendRequests, *st.friendRequests[id].Clone())
	}
	for _, id := range st.notificationOrder {
		snap.Notifications = append(snap.Notifications, *st.notifications[id].Clone())
	}
	for _, l := range st.referrals {
		snap.ReferralLinks = append(snap.ReferralLinks, *l.Clone())
	}
	sort.Slice(snap.ReferralLinks, func(i, j int) bool {
		return lessByTime(snap.ReferralLinks[i].CreatedAt, snap.ReferralLinks[j].CreatedAt, snap.ReferralLinks[i].ID, snap.ReferralLinks[j].ID)
	})
	return snap
}
