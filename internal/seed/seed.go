// Package seed populates a store with demo data for development and
// testing. Every entity goes through the regular store operations, so the
// journal and the projection see seeded data like any other traffic.
package seed

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"confide/internal/models"
	"confide/internal/observability"
	"confide/internal/store"

	"github.com/brianvoe/gofakeit/v6"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password123"

// Options configuration for the seeder
type Options struct {
	NumUsers       int
	NumRooms       int
	NumConfessions int
	NumMessages    int
	// Seed makes the generated data reproducible. Zero picks a random seed.
	Seed int64
}

// DefaultOptions is a small but connected data set.
func DefaultOptions() Options {
	return Options{NumUsers: 20, NumRooms: 6, NumConfessions: 30, NumMessages: 60}
}

// Summary counts what a run created.
type Summary struct {
	Users       int
	Rooms       int
	Friendships int
	Messages    int
	Confessions int
	Comments    int
	Referrals   int
}

var (
	roomCategories = []models.RoomCategory{
		models.RoomCategoryGeneral, models.RoomCategoryGaming, models.RoomCategoryStudy,
		models.RoomCategoryWork, models.RoomCategoryEntertainment, models.RoomCategorySupport,
	}
	confessionCategories = []models.ConfessionCategory{
		models.ConfessionCategoryWork, models.ConfessionCategoryFamily, models.ConfessionCategorySchool,
		models.ConfessionCategoryRelationships, models.ConfessionCategoryHealth,
		models.ConfessionCategoryEntertainment, models.ConfessionCategoryOther,
	}
	nonWord = regexp.MustCompile(`\W+`)
)

// Seeder creates demo data through a store.
type Seeder struct {
	store *store.Store
	faker *gofakeit.Faker
	opts  Options
}

// NewSeeder creates a seeder bound to s.
func NewSeeder(s *store.Store, opts Options) *Seeder {
	return &Seeder{store: s, faker: gofakeit.New(opts.Seed), opts: opts}
}

// Run seeds users, a referral chain, friendships, rooms with messages, and
// the confession feed. The store is expected to be empty.
func (s *Seeder) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	users, err := s.seedUsers(ctx)
	if err != nil {
		return sum, err
	}
	sum.Users = len(users)
	if len(users) < 2 {
		return sum, nil
	}

	if sum.Referrals, err = s.seedReferrals(ctx, users); err != nil {
		return sum, err
	}
	if sum.Friendships, err = s.seedFriendships(ctx, users); err != nil {
		return sum, err
	}
	if sum.Rooms, sum.Messages, err = s.seedRooms(ctx, users); err != nil {
		return sum, err
	}
	if sum.Confessions, sum.Comments, err = s.seedConfessions(ctx, users); err != nil {
		return sum, err
	}

	observability.GlobalLogger.InfoContext(ctx, "seed complete",
		"users", sum.Users,
		"rooms", sum.Rooms,
		"friendships", sum.Friendships,
		"messages", sum.Messages,
		"confessions", sum.Confessions,
		"comments", sum.Comments,
		"referrals", sum.Referrals,
	)
	return sum, nil
}

func (s *Seeder) username(i int) string {
	base := nonWord.ReplaceAllString(s.faker.Username(), "")
	if len(base) > 20 {
		base = base[:20]
	}
	if base == "" {
		base = "user"
	}
	return fmt.Sprintf("%s_%d", base, i)
}

func (s *Seeder) seedUsers(ctx context.Context) ([]*models.User, error) {
	users := make([]*models.User, 0, s.opts.NumUsers)
	for i := 0; i < s.opts.NumUsers; i++ {
		name := s.username(i)
		u, err := s.store.Register(ctx, store.RegisterInput{
			Username: name,
			Email:    strings.ToLower(name) + "@example.com",
			Password: DefaultPassword,
		})
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", name, err)
		}
		users = append(users, u)
	}
	return users, nil
}

// seedReferrals gives the first user a link redeemed by every third user.
func (s *Seeder) seedReferrals(ctx context.Context, users []*models.User) (int, error) {
	link, err := s.store.GenerateReferralLink(ctx, users[0].ID, "")
	if err != nil {
		return 0, fmt.Errorf("referral link: %w", err)
	}
	redeemed := 0
	for i := 3; i < len(users); i += 3 {
		if _, err := s.store.UseReferralCode(ctx, users[i].ID, link.Code); err != nil {
			return redeemed, fmt.Errorf("redeem referral: %w", err)
		}
		redeemed++
	}
	return redeemed, nil
}

// seedFriendships links each user to the next one; every other request is
// accepted and the rest stay pending.
func (s *Seeder) seedFriendships(ctx context.Context, users []*models.User) (int, error) {
	accepted := 0
	for i := 0; i+1 < len(users); i++ {
		req, err := s.store.SendFriendRequest(ctx, users[i].ID, users[i+1].ID)
		if err != nil {
			return accepted, fmt.Errorf("friend request: %w", err)
		}
		if i%2 == 0 {
			if _, err := s.store.AcceptFriendRequest(ctx, users[i+1].ID, req.ID); err != nil {
				return accepted, fmt.Errorf("accept friend request: %w", err)
			}
			accepted++
		}
	}
	return accepted, nil
}

func (s *Seeder) seedRooms(ctx context.Context, users []*models.User) (int, int, error) {
	var rooms []*models.ChatRoom
	for i := 0; i < s.opts.NumRooms; i++ {
		owner := users[i%len(users)]
		in := store.CreateRoomInput{
			Name:        strings.TrimSpace(s.faker.HipsterWord() + " " + s.faker.Noun()),
			Description: s.faker.Sentence(8),
			Category:    roomCategories[i%len(roomCategories)],
		}
		price := models.CostPublicRoom
		switch i % 5 {
		case 3:
			in.IsPrivate = true
			price = models.CostPrivateRoom
		case 4:
			in.IsSuperSecret = true
			in.Password = DefaultPassword
			price = models.CostSuperSecretRoom
		}
		// Seeded owners are funded so room creation never fails on credits.
		if _, err := s.store.GrantCredits(ctx, owner.ID, price); err != nil {
			return len(rooms), 0, fmt.Errorf("fund room owner: %w", err)
		}
		room, err := s.store.CreateRoom(ctx, owner.ID, in)
		if err != nil {
			return len(rooms), 0, fmt.Errorf("create room %q: %w", in.Name, err)
		}
		rooms = append(rooms, room)
	}
	if len(rooms) == 0 {
		return 0, 0, nil
	}

	members := make(map[string][]string, len(rooms))
	for _, room := range rooms {
		members[room.ID] = []string{room.CreatorID}
		for _, u := range users {
			if u.ID == room.CreatorID || s.faker.Number(0, 2) != 0 {
				continue
			}
			var err error
			if room.IsSuperSecret {
				_, err = s.store.JoinSuperSecretRoom(ctx, u.ID, *room.RoomCode, DefaultPassword)
			} else {
				_, err = s.store.JoinRoom(ctx, u.ID, room.ID, "")
			}
			if err != nil {
				return len(rooms), 0, fmt.Errorf("join room: %w", err)
			}
			members[room.ID] = append(members[room.ID], u.ID)
		}
	}

	sent := 0
	for i := 0; i < s.opts.NumMessages; i++ {
		room := rooms[s.faker.Number(0, len(rooms)-1)]
		ids := members[room.ID]
		sender := ids[s.faker.Number(0, len(ids)-1)]
		_, err := s.store.SendRoomMessage(ctx, sender, room.ID, s.faker.HackerPhrase())
		if models.HasCode(err, models.CodeInsufficientCredits) {
			continue
		}
		if err != nil {
			return len(rooms), sent, fmt.Errorf("room message: %w", err)
		}
		sent++
	}
	return len(rooms), sent, nil
}

func (s *Seeder) seedConfessions(ctx context.Context, users []*models.User) (int, int, error) {
	created, comments := 0, 0
	for i := 0; i < s.opts.NumConfessions; i++ {
		author := users[s.faker.Number(0, len(users)-1)]
		c, err := s.store.CreateConfession(ctx, author.ID, store.CreateConfessionInput{
			Title:    s.faker.Sentence(4),
			Content:  s.faker.Paragraph(1, 3, 8, " "),
			Category: confessionCategories[i%len(confessionCategories)],
		})
		if err != nil {
			return created, comments, fmt.Errorf("confession: %w", err)
		}
		created++

		for _, u := range users {
			if u.ID == author.ID {
				continue
			}
			switch s.faker.Number(0, 9) {
			case 0:
				if _, err := s.store.AddComment(ctx, u.ID, c.ID, s.faker.Sentence(6)); err != nil {
					return created, comments, fmt.Errorf("comment: %w", err)
				}
				comments++
			case 1, 2:
				if _, err := s.store.LikeConfession(ctx, u.ID, c.ID); err != nil {
					return created, comments, fmt.Errorf("like: %w", err)
				}
			case 3:
				if _, err := s.store.SaveConfession(ctx, u.ID, c.ID); err != nil {
					return created, comments, fmt.Errorf("save: %w", err)
				}
			}
		}
	}
	return created, comments, nil
}
