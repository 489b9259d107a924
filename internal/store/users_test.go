package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"confide/internal/models"
)

func TestSetPresence(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")

	online, err := f.store.SetPresence(ctx, alice.ID, true)
	require.NoError(t, err)
	assert.True(t, online.IsOnline)

	offline, err := f.store.SetPresence(ctx, alice.ID, false)
	require.NoError(t, err)
	assert.False(t, offline.IsOnline)
	require.NotNil(t, offline.LastSeen)

	events := f.events.ofType(models.EventPresenceChanged)
	require.Len(t, events, 2)
	var payload presenceChanged
	require.NoError(t, json.Unmarshal(events[1].Payload, &payload))
	assert.Equal(t, presenceChanged{UserID: alice.ID, IsOnline: false}, payload)

	_, err = f.store.UpdatePreferences(ctx, bob.ID, models.PreferencesPatch{
		Privacy: &models.PrivacySettings{ShowOnlineStatus: false, AllowFriendRequests: true},
	})
	require.NoError(t, err)
	_, err = f.store.SetPresence(ctx, bob.ID, true)
	require.NoError(t, err)
	assert.Len(t, f.events.ofType(models.EventPresenceChanged), 2, "hidden users do not broadcast presence")

	version := f.store.Version()
	_, err = f.store.SetPresence(ctx, bob.ID, true)
	require.NoError(t, err)
	assert.Equal(t, version, f.store.Version())
}

func TestUpdatePreferences(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	alice := f.register(t, "alice")

	_, err := f.store.UpdatePreferences(ctx, alice.ID, models.PreferencesPatch{
		Theme: &models.ThemeSettings{FontSize: "huge"},
	})
	requireCode(t, err, models.CodeValidation)

	prefs, err := f.store.UpdatePreferences(ctx, alice.ID, models.PreferencesPatch{
		Theme: &models.ThemeSettings{IsDark: true, FontSize: models.FontSizeSmall},
	})
	require.NoError(t, err)
	assert.True(t, prefs.Theme.IsDark)
	assert.Equal(t, "en", prefs.Theme.Language)
	assert.Equal(t, models.DefaultPreferences().Privacy, prefs.Privacy)

	stored, err := f.store.Preferences(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, prefs, stored)
}

func TestNotificationReadState(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	carol := f.register(t, "carol")

	for _, u := range []*models.User{bob, carol} {
		_, err := f.store.SendFriendRequest(ctx, u.ID, alice.ID)
		require.NoError(t, err)
	}
	notes := f.store.Notifications(alice.ID)
	require.Len(t, notes, 2)
	assert.Equal(t, 2, f.store.UnreadNotificationCount(alice.ID))

	_, err := f.store.MarkNotificationRead(ctx, bob.ID, notes[0].ID)
	requireCode(t, err, models.CodeNotFound)

	read, err := f.store.MarkNotificationRead(ctx, alice.ID, notes[0].ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	assert.Equal(t, 1, f.store.UnreadNotificationCount(alice.ID))

	n, err := f.store.MarkAllNotificationsRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.store.MarkAllNotificationsRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, f.store.UnreadNotificationCount(alice.ID))
}

func TestCreditsNeverNegative(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	f.setCredits(t, alice.ID, 60)

	_, _ = f.store.CreateRoom(ctx, alice.ID, CreateRoomInput{Name: "a"})
	_, _ = f.store.CreateRoom(ctx, alice.ID, CreateRoomInput{Name: "b", IsPrivate: true})
	for i := 0; i < 20; i++ {
		_, _ = f.store.SendMessage(ctx, alice.ID, SendMessageInput{ReceiverID: bob.ID, Content: "x"})
	}
	_, _ = f.store.CreateRoom(ctx, alice.ID, CreateRoomInput{Name: "c", IsSuperSecret: true, Password: "pw"})

	for _, u := range f.store.Snapshot().Users {
		assert.GreaterOrEqual(t, u.Credits, 0, u.Username)
	}
	assert.Equal(t, 0, f.balance(t, alice.ID))
}
