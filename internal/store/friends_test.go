package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"confide/internal/models"
)

func TestSendFriendRequestGuards(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")

	_, err := f.store.SendFriendRequest(ctx, alice.ID, alice.ID)
	requireCode(t, err, models.CodeValidation)

	_, err = f.store.SendFriendRequest(ctx, alice.ID, "ghost")
	requireCode(t, err, models.CodeNotFound)

	req, err := f.store.SendFriendRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FriendRequestPending, req.Status)
	assert.Equal(t, "alice", req.SenderUsername)

	_, err = f.store.SendFriendRequest(ctx, alice.ID, bob.ID)
	requireCode(t, err, models.CodeConflict)

	_, err = f.store.SendFriendRequest(ctx, bob.ID, alice.ID)
	requireCode(t, err, models.CodeConflict)

	notes := f.store.Notifications(bob.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationFriendRequest, notes[0].Type)
}

func TestFriendRequestPrivacy(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")

	_, err := f.store.UpdatePreferences(ctx, bob.ID, models.PreferencesPatch{
		Privacy: &models.PrivacySettings{ShowOnlineStatus: true, AllowFriendRequests: false},
	})
	require.NoError(t, err)

	_, err = f.store.SendFriendRequest(ctx, alice.ID, bob.ID)
	requireCode(t, err, models.CodeForbidden)
}

func TestAcceptAndDecline(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	carol := f.register(t, "carol")

	req, err := f.store.SendFriendRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = f.store.AcceptFriendRequest(ctx, alice.ID, req.ID)
	requireCode(t, err, models.CodeUnauthorized)

	accepted, err := f.store.AcceptFriendRequest(ctx, bob.ID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FriendRequestAccepted, accepted.Status)

	_, err = f.store.DeclineFriendRequest(ctx, bob.ID, req.ID)
	requireCode(t, err, models.CodeConflict)

	friends := f.store.Friends(alice.ID)
	require.Len(t, friends, 1)
	assert.Equal(t, bob.ID, friends[0].ID)

	_, err = f.store.SendFriendRequest(ctx, bob.ID, alice.ID)
	requireCode(t, err, models.CodeConflict)

	declinable, err := f.store.SendFriendRequest(ctx, carol.ID, alice.ID)
	require.NoError(t, err)
	incoming, _ := f.store.FriendRequests(alice.ID)
	require.Len(t, incoming, 1)

	declined, err := f.store.DeclineFriendRequest(ctx, alice.ID, declinable.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FriendRequestDeclined, declined.Status)
	incoming, _ = f.store.FriendRequests(alice.ID)
	assert.Empty(t, incoming)
	assert.Len(t, f.store.Friends(alice.ID), 1)
}

func TestAddFriendByUsername(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "Bob")

	_, err := f.store.AddFriendByUsername(ctx, alice.ID, "ALICE")
	requireCode(t, err, models.CodeValidation)

	_, err = f.store.AddFriendByUsername(ctx, alice.ID, "nobody")
	requireCode(t, err, models.CodeNotFound)

	req, err := f.store.AddFriendByUsername(ctx, alice.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, req.ReceiverID)

	_, err = f.store.DeclineFriendRequest(ctx, bob.ID, req.ID)
	require.NoError(t, err)

	_, err = f.store.AddFriendByUsername(ctx, alice.ID, "bob")
	requireCode(t, err, models.CodeConflict)

	_, outgoing := f.store.FriendRequests(alice.ID)
	assert.Empty(t, outgoing)
}
