/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type lobbyHarness struct {
	api        *fakeAPI
	lobby      *Lobby
	identities *IdentityStore
	sessions   *SessionCache
	nav        *mockNavigator
}

func newLobbyHarness(t *testing.T) *lobbyHarness {
	t.Helper()

	identities, sessions := newTestStores(t)
	h := &lobbyHarness{
		api:        newFakeAPI(t, ""),
		identities: identities,
		sessions:   sessions,
		nav:        &mockNavigator{},
	}
	h.lobby = NewLobby(h.api.client(), identities, sessions, h.nav, nopLog)

	return h
}

func TestCreateUserSavesAndNavigates(t *testing.T) {
	h := newLobbyHarness(t)
	h.nav.On("ToLobby").Return()

	user, err := h.lobby.CreateUser(context.Background(), "  Khoa ")
	require.NoError(t, err)

	assert.Equal(t, UserIdentity{ID: "u1", Name: "Khoa"}, user)
	assert.Equal(t, map[string]any{"name": "Khoa"}, h.api.last().Body)
	assert.Equal(t, &user, h.identities.Load())
	h.nav.AssertNumberOfCalls(t, "ToLobby", 1)
}

func TestCreateUserRejectsBlankName(t *testing.T) {
	h := newLobbyHarness(t)

	_, err := h.lobby.CreateUser(context.Background(), "   ")

	assert.ErrorIs(t, err, ErrEmptyName)
	assert.Zero(t, h.api.count())
	assert.Nil(t, h.identities.Load())
	h.nav.AssertNotCalled(t, "ToLobby")
}

func TestCreateOfflineUser(t *testing.T) {
	h := newLobbyHarness(t)
	h.nav.On("ToLobby").Return()

	user, err := h.lobby.CreateOfflineUser("Linh")
	require.NoError(t, err)

	assert.Equal(t, "Linh", user.Name)
	assert.NotEmpty(t, user.ID)
	assert.Zero(t, h.api.count())
	assert.Equal(t, &user, h.identities.Load())
}

func TestVerifyUser(t *testing.T) {
	t.Run("known", func(t *testing.T) {
		h := newLobbyHarness(t)
		require.NoError(t, h.identities.Save(UserIdentity{ID: "u1", Name: "Khoa"}))

		user, err := h.lobby.VerifyUser(context.Background())
		require.NoError(t, err)
		assert.Equal(t, &UserIdentity{ID: "u1", Name: "Khoa"}, user)
	})

	t.Run("unknown is cleared", func(t *testing.T) {
		h := newLobbyHarness(t)
		require.NoError(t, h.identities.Save(UserIdentity{ID: "u-gone", Name: "Khoa"}))

		user, err := h.lobby.VerifyUser(context.Background())
		assert.Nil(t, user)
		assert.ErrorIs(t, err, ErrNoIdentity)
		assert.Nil(t, h.identities.Load())
	})

	t.Run("renamed is updated", func(t *testing.T) {
		h := newLobbyHarness(t)
		require.NoError(t, h.identities.Save(UserIdentity{ID: "u-renamed", Name: "Khoa"}))

		user, err := h.lobby.VerifyUser(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Khoa Le", user.Name)
		assert.Equal(t, "Khoa Le", h.identities.Load().Name)
	})

	t.Run("server failure keeps saved user", func(t *testing.T) {
		h := newLobbyHarness(t)
		require.NoError(t, h.identities.Save(UserIdentity{ID: "u-broken", Name: "Khoa"}))

		user, err := h.lobby.VerifyUser(context.Background())
		assert.Error(t, err)
		assert.Equal(t, &UserIdentity{ID: "u-broken", Name: "Khoa"}, user)
		assert.NotNil(t, h.identities.Load())
	})

	t.Run("nothing saved", func(t *testing.T) {
		h := newLobbyHarness(t)

		_, err := h.lobby.VerifyUser(context.Background())
		assert.ErrorIs(t, err, ErrNoIdentity)
		assert.Zero(t, h.api.count())
	})
}

func TestCreateRoomStoresSession(t *testing.T) {
	h := newLobbyHarness(t)
	require.NoError(t, h.identities.Save(UserIdentity{ID: "u1", Name: "Khoa"}))

	grant, err := h.lobby.CreateRoom(context.Background(), 3, "pw")
	require.NoError(t, err)

	assert.Equal(t, "NEW1", grant.Room.Code)
	assert.Equal(t, map[string]any{"user_id": "u1", "max_players": float64(3), "password": "pw"}, h.api.last().Body)
	assert.Equal(t, SessionReference{RoomCode: "NEW1", PlayerID: "p1"}, h.sessions.Get())
}

func TestCreateRoomValidation(t *testing.T) {
	h := newLobbyHarness(t)

	_, err := h.lobby.CreateRoom(context.Background(), 4, "")
	assert.ErrorIs(t, err, ErrNoIdentity)

	require.NoError(t, h.identities.Save(UserIdentity{ID: "u1", Name: "Khoa"}))

	for _, n := range []int{0, 1, 5} {
		_, err := h.lobby.CreateRoom(context.Background(), n, "")
		assert.ErrorIs(t, err, ErrInvalidMaxPlayers, "players=%d", n)
	}
	assert.Zero(t, h.api.count())
}

func TestJoinRoom(t *testing.T) {
	h := newLobbyHarness(t)
	require.NoError(t, h.identities.Save(UserIdentity{ID: "u1", Name: "Khoa"}))

	grant, err := h.lobby.JoinRoom(context.Background(), " abcd ", "")
	require.NoError(t, err)

	assert.Equal(t, "/rooms/ABCD/join", h.api.last().Path)
	assert.Equal(t, "p2", grant.PlayerID)
	assert.Equal(t, SessionReference{RoomCode: "ABCD", PlayerID: "p2"}, h.sessions.Get())

	_, err = h.lobby.JoinRoom(context.Background(), "  ", "")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestJoinRoomFailureLeavesSession(t *testing.T) {
	h := newLobbyHarness(t)
	require.NoError(t, h.identities.Save(UserIdentity{ID: "u1", Name: "Khoa"}))

	_, err := h.lobby.JoinRoom(context.Background(), "ABCD", "bad")

	var rejection *ServerRejection
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, http.StatusForbidden, rejection.Status)
	assert.Equal(t, SessionReference{}, h.sessions.Get())
	h.nav.AssertNotCalled(t, "Notice", mock.Anything)
}
