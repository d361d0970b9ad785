/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

const (
	minPlayers = 2
	maxPlayers = 4
)

// UserAPI is the part of the HTTP API the lobby needs.
type UserAPI interface {
	CreateUser(ctx context.Context, name string) (UserIdentity, error)
	GetUser(ctx context.Context, id string) (UserIdentity, error)
	CreateRoom(ctx context.Context, req CreateRoomRequest) (RoomGrant, error)
	JoinRoom(ctx context.Context, code string, req JoinRoomRequest) (RoomGrant, error)
}

// Lobby covers everything before a room is mounted: picking a user, then
// creating or joining a room.
type Lobby struct {
	api        UserAPI
	identities *IdentityStore
	sessions   *SessionCache
	nav        Navigator
	log        zerolog.Logger
}

func NewLobby(api UserAPI, identities *IdentityStore, sessions *SessionCache, nav Navigator, log zerolog.Logger) *Lobby {
	return &Lobby{
		api:        api,
		identities: identities,
		sessions:   sessions,
		nav:        nav,
		log:        log,
	}
}

// CreateUser registers name with the server, saves the result, and moves on
// to the lobby.
func (l *Lobby) CreateUser(ctx context.Context, name string) (UserIdentity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return UserIdentity{}, ErrEmptyName
	}

	user, err := l.api.CreateUser(ctx, name)
	if err != nil {
		l.log.Error().Err(err).Msg("Create user failed")
		return UserIdentity{}, err
	}

	if err := l.identities.Save(user); err != nil {
		return UserIdentity{}, err
	}

	l.nav.ToLobby()

	return user, nil
}

// CreateOfflineUser makes an identity locally, without asking the server.
func (l *Lobby) CreateOfflineUser(name string) (UserIdentity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return UserIdentity{}, ErrEmptyName
	}

	user := UserIdentity{ID: NewUserID(), Name: name}
	if err := l.identities.Save(user); err != nil {
		return UserIdentity{}, err
	}

	l.nav.ToLobby()

	return user, nil
}

// VerifyUser checks the saved user against the server. A user the server
// has never heard of is forgotten; a renamed one is updated. Any other
// failure keeps the saved user as it is.
func (l *Lobby) VerifyUser(ctx context.Context) (*UserIdentity, error) {
	saved := l.identities.Load()
	if saved == nil {
		return nil, ErrNoIdentity
	}

	remote, err := l.api.GetUser(ctx, saved.ID)
	switch {
	case errors.Is(err, ErrNotFound):
		l.log.Info().Str("user", saved.ID).Msg("Saved user unknown to server, clearing")
		if err := l.identities.Clear(); err != nil {
			return nil, err
		}
		return nil, ErrNoIdentity
	case err != nil:
		l.log.Warn().Err(err).Msg("Verify user failed")
		return saved, err
	}

	if remote != *saved {
		if err := l.identities.Save(remote); err != nil {
			return saved, err
		}
		return &remote, nil
	}

	return saved, nil
}

func (l *Lobby) CreateRoom(ctx context.Context, players int, password string) (RoomGrant, error) {
	user := l.identities.Load()
	if user == nil {
		return RoomGrant{}, ErrNoIdentity
	}
	if players < minPlayers || players > maxPlayers {
		return RoomGrant{}, ErrInvalidMaxPlayers
	}

	grant, err := l.api.CreateRoom(ctx, CreateRoomRequest{
		UserID:     user.ID,
		MaxPlayers: players,
		Password:   password,
	})
	if err != nil {
		l.log.Error().Err(err).Msg("Create room failed")
		return RoomGrant{}, err
	}

	if err := l.sessions.Store(grant.Session()); err != nil {
		return RoomGrant{}, fmt.Errorf("create room: %w", err)
	}

	return grant, nil
}

func (l *Lobby) JoinRoom(ctx context.Context, code, password string) (RoomGrant, error) {
	user := l.identities.Load()
	if user == nil {
		return RoomGrant{}, ErrNoIdentity
	}

	code = normalizeRoomCode(code)
	if code == "" {
		return RoomGrant{}, fmt.Errorf("join room: %w", ErrInvalidRequest)
	}

	grant, err := l.api.JoinRoom(ctx, code, JoinRoomRequest{UserID: user.ID, Password: password})
	if err != nil {
		l.log.Error().Err(err).Str("room", code).Msg("Join room failed")
		return RoomGrant{}, err
	}

	if err := l.sessions.Store(grant.Session()); err != nil {
		return RoomGrant{}, fmt.Errorf("join room: %w", err)
	}

	return grant, nil
}

func normalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
