package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"confide/internal/featureflags"
	"confide/internal/models"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type memJournal struct {
	mu   sync.Mutex
	cmds []Command
	err  error
}

func (j *memJournal) Append(_ context.Context, cmd Command) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.cmds = append(j.cmds, cmd)
	return nil
}

func (j *memJournal) all() []Command {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Command(nil), j.cmds...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev models.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) ofType(t models.EventType) []models.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.Event
	for _, ev := range p.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	store   *Store
	journal *memJournal
	events  *recordingPublisher
}

func newFixture(t *testing.T, flags string) *fixture {
	t.Helper()
	f := &fixture{journal: &memJournal{}, events: &recordingPublisher{}}
	clock := &stepClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	f.store = New(Options{
		Journal:    f.journal,
		Publisher:  f.events,
		Flags:      featureflags.NewManager(flags),
		Clock:      clock.Now,
		BcryptCost: bcrypt.MinCost,
	})
	return f
}

func (f *fixture) register(t *testing.T, username string) *models.User {
	t.Helper()
	u, err := f.store.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	return u
}

// setCredits rewrites a balance directly to build test preconditions.
func (f *fixture) setCredits(t *testing.T, userID string, credits int) {
	t.Helper()
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	u, err := f.store.st.user(userID)
	require.NoError(t, err)
	u.Credits = credits
}

func (f *fixture) balance(t *testing.T, userID string) int {
	t.Helper()
	b, err := f.store.Balance(userID)
	require.NoError(t, err)
	return b
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, models.ErrorCode(err), err.Error())
}

func TestRegisterStartsWithCredits(t *testing.T) {
	f := newFixture(t, "")
	u := f.register(t, "alice")

	assert.Equal(t, models.StartingCredits, u.Credits)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, models.DefaultPreferences(), u.Preferences)

	_, err := f.store.Register(context.Background(), RegisterInput{Username: "ALICE", Email: "other@example.com", Password: "secret123"})
	requireCode(t, err, models.CodeConflict)

	_, err = f.store.Register(context.Background(), RegisterInput{Username: "bob", Email: "alice@example.com", Password: "secret123"})
	requireCode(t, err, models.CodeConflict)

	_, err = f.store.Register(context.Background(), RegisterInput{Username: "b!", Email: "b@example.com", Password: "secret123"})
	requireCode(t, err, models.CodeValidation)

	_, err = f.store.Register(context.Background(), RegisterInput{Username: "bob", Email: "bob@example.com", Password: "123"})
	requireCode(t, err, models.CodeValidation)
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t, "")
	alice := f.register(t, "alice")

	got, err := f.store.Authenticate("ALICE@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	_, err = f.store.Authenticate("alice@example.com", "wrong")
	requireCode(t, err, models.CodeUnauthorized)

	_, err = f.store.Authenticate("nobody@example.com", "secret123")
	requireCode(t, err, models.CodeUnauthorized)
}

func TestRejectedCommandIsNotJournaled(t *testing.T) {
	f := newFixture(t, "")
	alice := f.register(t, "alice")
	before := len(f.journal.all())

	_, err := f.store.SendMessage(context.Background(), alice.ID, SendMessageInput{ReceiverID: "missing", Content: "hi"})
	requireCode(t, err, models.CodeNotFound)

	assert.Len(t, f.journal.all(), before)
}

func TestJournalFailureLeavesStateUntouched(t *testing.T) {
	f := newFixture(t, "")
	alice := f.register(t, "alice")
	version := f.store.Version()
	f.journal.err = errors.New("disk full")

	_, err := f.store.CreateRoom(context.Background(), alice.ID, CreateRoomInput{Name: "lobby"})
	requireCode(t, err, models.CodeInternal)

	assert.Equal(t, models.StartingCredits, f.balance(t, alice.ID))
	assert.Empty(t, f.store.ListRooms(alice.ID))
	assert.Equal(t, version, f.store.Version())
	assert.Empty(t, f.events.ofType(models.EventRoomCreated))
}

func TestCallersReceiveCopies(t *testing.T) {
	f := newFixture(t, "")
	alice := f.register(t, "alice")
	room, err := f.store.CreateRoom(context.Background(), alice.ID, CreateRoomInput{Name: "lobby"})
	require.NoError(t, err)

	room.Members = append(room.Members, "intruder")
	room.Name = "changed"

	again, err := f.store.Room(alice.ID, room.ID)
	require.NoError(t, err)
	assert.Equal(t, "lobby", again.Name)
	assert.Equal(t, models.IDSet{alice.ID}, again.Members)
}

func TestReplayReproducesState(t *testing.T) {
	f := newFixture(t, "mention_notifications=on")
	ctx := context.Background()

	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	carol := f.register(t, "carol")

	_, err := f.store.SendMessage(ctx, alice.ID, SendMessageInput{ReceiverID: bob.ID, Content: "hey"})
	require.NoError(t, err)
	secret, err := f.store.CreateRoom(ctx, alice.ID, CreateRoomInput{Name: "vault", IsSuperSecret: true, Password: "pw"})
	require.NoError(t, err)
	_, err = f.store.JoinSuperSecretRoom(ctx, bob.ID, *secret.RoomCode, "pw")
	require.NoError(t, err)
	_, err = f.store.JoinSuperSecretRoom(ctx, carol.ID, *secret.RoomCode, "pw")
	require.NoError(t, err)
	_, err = f.store.BanUserFromRoom(ctx, alice.ID, secret.ID, carol.ID)
	require.NoError(t, err)
	_, err = f.store.SendRoomMessage(ctx, bob.ID, secret.ID, "hello vault")
	require.NoError(t, err)
	req, err := f.store.SendFriendRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = f.store.AcceptFriendRequest(ctx, bob.ID, req.ID)
	require.NoError(t, err)
	conf, err := f.store.CreateConfession(ctx, bob.ID, CreateConfessionInput{Title: "t", Content: "c", Category: models.ConfessionCategoryWork})
	require.NoError(t, err)
	_, err = f.store.AddComment(ctx, alice.ID, conf.ID, "@bob @carol same")
	require.NoError(t, err)
	_, err = f.store.LikeConfession(ctx, carol.ID, conf.ID)
	require.NoError(t, err)
	link, err := f.store.GenerateReferralLink(ctx, alice.ID, "")
	require.NoError(t, err)
	_, err = f.store.UseReferralCode(ctx, carol.ID, link.Code)
	require.NoError(t, err)
	_, err = f.store.SetPresence(ctx, bob.ID, true)
	require.NoError(t, err)
	_, err = f.store.UpdatePreferences(ctx, carol.ID, models.PreferencesPatch{Theme: &models.ThemeSettings{IsDark: true, FontSize: models.FontSizeLarge}})
	require.NoError(t, err)
	_, err = f.store.TopUp(ctx, bob.ID, 40)
	require.NoError(t, err)

	replayed := New(Options{BcryptCost: bcrypt.MinCost})
	require.NoError(t, replayed.Replay(ctx, f.journal.all()))

	assert.Equal(t, f.store.Snapshot(), replayed.Snapshot())
}

func TestReplayRejectsUnknownOp(t *testing.T) {
	s := New(Options{})
	err := s.Replay(context.Background(), []Command{{ID: "x", Op: "bogus"}})
	require.Error(t, err)
}

func TestConcurrentDebitsNeverGoNegative(t *testing.T) {
	f := newFixture(t, "")
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	f.setCredits(t, alice.ID, 20)

	var wg sync.WaitGroup
	var mu sync.Mutex
	sent := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.store.SendMessage(context.Background(), alice.ID, SendMessageInput{ReceiverID: bob.ID, Content: "spam"}); err == nil {
				mu.Lock()
				sent++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, sent)
	assert.Equal(t, 0, f.balance(t, alice.ID))
	assert.Len(t, f.store.Conversation(alice.ID, bob.ID), 20)
}
