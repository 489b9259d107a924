package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"confide/internal/models"
	"confide/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestJournalRepository_AppendAndLoadAll(t *testing.T) {
	repo := NewJournalRepository(newTestDB(t))
	ctx := context.Background()

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	first := store.Command{ID: "c1", Op: store.OpCredit, At: at, Payload: json.RawMessage(`{"user_id":"u1","amount":5}`)}
	second := store.Command{ID: "c2", Op: store.OpMarkAllNotification, ActorID: "u1", At: at.Add(time.Second)}

	require.NoError(t, repo.Append(ctx, first))
	require.NoError(t, repo.Append(ctx, second))

	err := repo.Append(ctx, first)
	require.Error(t, err, "command ids are unique")
	assert.True(t, models.HasCode(err, models.CodeInternal))

	cmds, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	assert.Equal(t, "c1", cmds[0].ID)
	assert.Equal(t, store.OpCredit, cmds[0].Op)
	assert.JSONEq(t, string(first.Payload), string(cmds[0].Payload))
	assert.True(t, at.Equal(cmds[0].At))
	assert.Equal(t, "u1", cmds[1].ActorID)
	assert.Nil(t, cmds[1].Payload)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestJournalRepository_ReplayRestoresStore(t *testing.T) {
	journal := NewJournalRepository(newTestDB(t))
	ctx := context.Background()

	live := store.New(store.Options{Journal: journal, BcryptCost: bcrypt.MinCost})
	alice, err := live.Register(ctx, store.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)
	bob, err := live.Register(ctx, store.RegisterInput{Username: "bob", Email: "bob@example.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = live.SendMessage(ctx, alice.ID, store.SendMessageInput{ReceiverID: bob.ID, Content: "hi @bob"})
	require.NoError(t, err)
	room, err := live.CreateRoom(ctx, bob.ID, store.CreateRoomInput{Name: "lobby", Category: models.RoomCategoryGeneral})
	require.NoError(t, err)
	_, err = live.JoinRoom(ctx, alice.ID, room.ID, "")
	require.NoError(t, err)

	cmds, err := journal.LoadAll(ctx)
	require.NoError(t, err)

	restored := store.New(store.Options{BcryptCost: bcrypt.MinCost})
	require.NoError(t, restored.Replay(ctx, cmds))

	assert.Equal(t, live.Snapshot(), restored.Snapshot())
}
