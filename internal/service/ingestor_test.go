package service

import (
	"context"
	"testing"
	"time"

	"confide/internal/models"
	"confide/internal/notifications"
	"confide/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoNodes returns a store that originated some users and a second store that
// replayed the same history.
func twoNodes(t *testing.T) (origin, replica *store.Store, rec *eventRecorder, alice, bob *models.User) {
	t.Helper()
	journal := &memJournal{}
	rec = &eventRecorder{}
	origin = newStore(store.Options{Journal: journal, Publisher: rec})
	alice = register(t, origin, "alice")
	bob = register(t, origin, "bob")

	replica = newStore(store.Options{})
	require.NoError(t, replica.Replay(context.Background(), journal.all()))
	return origin, replica, rec, alice, bob
}

func TestMessageIngestorStoresForeignMessagesOnce(t *testing.T) {
	ctx := context.Background()
	origin, replica, rec, alice, bob := twoNodes(t)

	_, err := origin.SendMessage(ctx, alice.ID, store.SendMessageInput{ReceiverID: bob.ID, Content: "hello"})
	require.NoError(t, err)
	events := rec.ofType(models.EventMessageReceived)
	require.Len(t, events, 1)

	ing := NewMessageIngestor(notifications.NewMemoryBus(), replica)
	assert.True(t, ing.Handle(ctx, events[0]))
	assert.False(t, ing.Handle(ctx, events[0]), "duplicate delivery")

	conv := replica.Conversation(bob.ID, alice.ID)
	require.Len(t, conv, 1)
	assert.Equal(t, "hello", conv[0].Content)

	// Ingesting never charges the sender.
	before, err := origin.Balance(alice.ID)
	require.NoError(t, err)
	after, err := replica.Balance(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, before+models.CostSendMessage, after)
}

func TestMessageIngestorIgnoresOtherEvents(t *testing.T) {
	ctx := context.Background()
	_, replica, _, alice, _ := twoNodes(t)
	ing := NewMessageIngestor(notifications.NewMemoryBus(), replica)

	ev := models.NewEvent("e1", models.EventCreditsChanged, models.UserTopic(alice.ID), map[string]int{"credits": 1}, time.Now())
	assert.False(t, ing.Handle(ctx, ev))

	bad := models.Event{ID: "e2", Type: models.EventMessageReceived, Payload: []byte("not json")}
	assert.False(t, ing.Handle(ctx, bad))
}

func TestMessageIngestorSubscribesToBus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	origin, replica, rec, alice, bob := twoNodes(t)

	bus := notifications.NewMemoryBus()
	require.NoError(t, NewMessageIngestor(bus, replica).Start(ctx))

	_, err := origin.SendMessage(ctx, alice.ID, store.SendMessageInput{ReceiverID: bob.ID, Content: "over the wire"})
	require.NoError(t, err)
	for _, ev := range rec.ofType(models.EventMessageReceived) {
		require.NoError(t, bus.Publish(ctx, ev))
	}

	assert.Eventually(t, func() bool {
		return len(replica.Conversation(alice.ID, bob.ID)) == 1
	}, time.Second, 10*time.Millisecond)
}
