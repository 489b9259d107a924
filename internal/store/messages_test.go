package store

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"confide/internal/models"
)

func TestSendMessageDebitsOneCredit(t *testing.T) {
	f := newFixture(t, "")
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")

	msg, err := f.store.SendMessage(context.Background(), alice.ID, SendMessageInput{ReceiverID: bob.ID, Content: "hi"})
	require.NoError(t, err)

	assert.Equal(t, models.StartingCredits-1, f.balance(t, alice.ID))
	assert.Equal(t, models.StartingCredits, f.balance(t, bob.ID))
	assert.Equal(t, alice.ID, msg.SenderID)
	assert.Equal(t, bob.ID, msg.ReceiverID)
	assert.Equal(t, models.MessageTypeText, msg.Type)
	assert.Len(t, f.events.ofType(models.EventMessageReceived), 1)

	notes := f.store.Notifications(bob.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationMessage, notes[0].Type)
}

func TestSendMessageWithZeroBalanceIsRejected(t *testing.T) {
	f := newFixture(t, "")
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	f.setCredits(t, alice.ID, 0)

	_, err := f.store.SendMessage(context.Background(), alice.ID, SendMessageInput{ReceiverID: bob.ID, Content: "hi"})
	requireCode(t, err, models.CodeInsufficientCredits)

	assert.Equal(t, 0, f.balance(t, alice.ID))
	assert.Empty(t, f.store.Conversation(alice.ID, bob.ID))
}

func TestSendMessageValidation(t *testing.T) {
	f := newFixture(t, "")
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	ctx := context.Background()

	cases := []struct {
		name string
		in   SendMessageInput
		code string
	}{
		{"blank", SendMessageInput{ReceiverID: bob.ID, Content: "   "}, models.CodeValidation},
		{"too long", SendMessageInput{ReceiverID: bob.ID, Content: strings.Repeat("x", models.MaxMessageContentLength+1)}, models.CodeValidation},
		{"self", SendMessageInput{ReceiverID: alice.ID, Content: "me"}, models.CodeValidation},
		{"image without url", SendMessageInput{ReceiverID: bob.ID, Type: models.MessageTypeImage}, models.CodeValidation},
		{"unknown receiver", SendMessageInput{ReceiverID: "ghost", Content: "boo"}, models.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.store.SendMessage(ctx, alice.ID, tc.in)
			requireCode(t, err, tc.code)
		})
	}
	assert.Equal(t, models.StartingCredits, f.balance(t, alice.ID))

	img, err := f.store.SendMessage(ctx, alice.ID, SendMessageInput{ReceiverID: bob.ID, Type: models.MessageTypeImage, ImageURL: "https://img/x.png"})
	require.NoError(t, err)
	assert.Equal(t, models.MessageTypeImage, img.Type)
}

func TestThreeMessagesThenUnaffordableRoom(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	f.setCredits(t, alice.ID, 10)

	for i := 0; i < 3; i++ {
		_, err := f.store.SendMessage(ctx, alice.ID, SendMessageInput{ReceiverID: bob.ID, Content: "hello"})
		require.NoError(t, err)
	}
	assert.Equal(t, 7, f.balance(t, alice.ID))

	convo := f.store.Conversation(alice.ID, bob.ID)
	require.Len(t, convo, 3)
	for _, m := range convo {
		assert.Equal(t, alice.ID, m.SenderID)
		assert.Equal(t, bob.ID, m.ReceiverID)
	}

	_, err := f.store.CreateRoom(ctx, alice.ID, CreateRoomInput{Name: "my room"})
	requireCode(t, err, models.CodeInsufficientCredits)
	assert.Equal(t, 7, f.balance(t, alice.ID))
	assert.Empty(t, f.store.ListRooms(alice.ID))
}

func TestMarkMessageRead(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	msg, err := f.store.SendMessage(ctx, alice.ID, SendMessageInput{ReceiverID: bob.ID, Content: "hi"})
	require.NoError(t, err)

	_, err = f.store.MarkMessageRead(ctx, alice.ID, msg.ID)
	requireCode(t, err, models.CodeForbidden)

	read, err := f.store.MarkMessageRead(ctx, bob.ID, msg.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	version := f.store.Version()
	_, err = f.store.MarkMessageRead(ctx, bob.ID, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, version, f.store.Version())
}

func TestIngestMessageIgnoresDuplicates(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")

	msg := models.Message{
		ID:         "0b7a1a8e-0000-4000-8000-000000000001",
		SenderID:   alice.ID,
		ReceiverID: bob.ID,
		Content:    "from the wire",
		CreatedAt:  time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	added, err := f.store.IngestMessage(ctx, msg)
	require.NoError(t, err)
	assert.True(t, added)

	version := f.store.Version()
	journaled := len(f.journal.all())

	added, err = f.store.IngestMessage(ctx, msg)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, version, f.store.Version())
	assert.Len(t, f.journal.all(), journaled)

	assert.Len(t, f.store.Conversation(alice.ID, bob.ID), 1)
	assert.Equal(t, models.StartingCredits, f.balance(t, alice.ID), "ingest never charges")
}

func TestIngestMessageValidatesTarget(t *testing.T) {
	f := newFixture(t, "")
	alice := f.register(t, "alice")

	_, err := f.store.IngestMessage(context.Background(), models.Message{ID: "m1", SenderID: alice.ID, Content: "x"})
	requireCode(t, err, models.CodeValidation)

	_, err = f.store.IngestMessage(context.Background(), models.Message{ID: "m2", SenderID: alice.ID, RoomID: "nope", Content: "x"})
	requireCode(t, err, models.CodeNotFound)
}

func TestRoomMessagesRequireMembership(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	room, err := f.store.CreateRoom(ctx, alice.ID, CreateRoomInput{Name: "lobby"})
	require.NoError(t, err)

	_, err = f.store.SendRoomMessage(ctx, bob.ID, room.ID, "hi")
	requireCode(t, err, models.CodeForbidden)

	_, err = f.store.JoinRoom(ctx, bob.ID, room.ID, "")
	require.NoError(t, err)
	msg, err := f.store.SendRoomMessage(ctx, bob.ID, room.ID, "hi")
	require.NoError(t, err)
	assert.Equal(t, room.ID, msg.RoomID)
	assert.Equal(t, models.StartingCredits-1, f.balance(t, bob.ID))

	msgs, err := f.store.RoomMessages(alice.ID, room.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	after, err := f.store.Room(alice.ID, room.ID)
	require.NoError(t, err)
	assert.Equal(t, msg.CreatedAt, after.LastActivity)
	assert.Len(t, f.events.ofType(models.EventRoomMessage), 1)
}

func TestTopUpAndGrant(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	alice := f.register(t, "alice")

	_, err := f.store.TopUp(ctx, alice.ID, 0)
	requireCode(t, err, models.CodeValidation)
	_, err = f.store.TopUp(ctx, alice.ID, models.MaxTopUp+1)
	requireCode(t, err, models.CodeValidation)

	bal, err := f.store.TopUp(ctx, alice.ID, 25)
	require.NoError(t, err)
	assert.Equal(t, models.StartingCredits+25, bal)

	bal, err = f.store.GrantCredits(ctx, alice.ID, 5000)
	require.NoError(t, err)
	assert.Equal(t, models.StartingCredits+25+5000, bal)

	_, err = f.store.GrantCredits(ctx, "ghost", 5)
	requireCode(t, err, models.CodeNotFound)

	assert.Len(t, f.events.ofType(models.EventCreditsChanged), 2)
}

func TestDebitClampsAtZero(t *testing.T) {
	u := &models.User{ID: "u", Credits: 3}
	tx := &txn{cmd: Command{ID: "0b7a1a8e-0000-4000-8000-000000000002"}}
	tx.debit(u, 10, reasonMessage)
	assert.Equal(t, 0, u.Credits)
	require.Len(t, tx.moves, 1)
	assert.Equal(t, -3, tx.moves[0].amount)
}

func TestGrantCreditsRejectsOverflow(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	alice := f.register(t, "alice")
	version := f.store.Version()

	_, err := f.store.GrantCredits(ctx, alice.ID, math.MaxInt)
	requireCode(t, err, models.CodeValidation)
	assert.Equal(t, models.StartingCredits, f.balance(t, alice.ID))
	assert.Equal(t, version, f.store.Version())

	bal, err := f.store.GrantCredits(ctx, alice.ID, math.MaxInt-models.StartingCredits)
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt, bal)

	_, err = f.store.GrantCredits(ctx, alice.ID, 1)
	requireCode(t, err, models.CodeValidation)
	assert.Equal(t, math.MaxInt, f.balance(t, alice.ID))
}

func TestCreditSaturatesAtMaxInt(t *testing.T) {
	u := &models.User{ID: "u", Credits: math.MaxInt - 10}
	tx := &txn{cmd: Command{ID: "0b7a1a8e-0000-4000-8000-000000000003"}}
	tx.credit(u, models.ReferralBonus, reasonReferral)
	assert.Equal(t, math.MaxInt, u.Credits)
	require.Len(t, tx.moves, 1)
	assert.Equal(t, 10, tx.moves[0].amount)
}
