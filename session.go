/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

const (
	sessionRoomKey   = "tienlen.room_code"
	sessionPlayerKey = "tienlen.player_id"
)

// SessionUpdate is a partial SessionReference; nil fields are left alone.
type SessionUpdate struct {
	RoomCode *string
	PlayerID *string
}

// SessionCache holds the room code and player id for this process only.
// It is backed by volatile storage so a new process must rejoin explicitly.
type SessionCache struct {
	mu      sync.Mutex
	storage Storage
	log     zerolog.Logger
}

func NewSessionCache(storage Storage, log zerolog.Logger) *SessionCache {
	return &SessionCache{
		storage: storage,
		log:     log,
	}
}

func (c *SessionCache) Get() SessionReference {
	c.mu.Lock()
	defer c.mu.Unlock()

	return SessionReference{
		RoomCode: c.read(sessionRoomKey),
		PlayerID: c.read(sessionPlayerKey),
	}
}

func (c *SessionCache) read(key string) string {
	v, ok, err := c.storage.Get(key)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Reading session failed")
		return ""
	}
	if !ok {
		return ""
	}
	return v
}

// Set merges the given fields into the cached session. An empty string
// removes that field.
func (c *SessionCache) Set(update SessionUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if update.RoomCode != nil {
		errs = append(errs, c.write(sessionRoomKey, *update.RoomCode))
	}
	if update.PlayerID != nil {
		errs = append(errs, c.write(sessionPlayerKey, *update.PlayerID))
	}

	return errors.Join(errs...)
}

// Store replaces both fields.
func (c *SessionCache) Store(ref SessionReference) error {
	return c.Set(SessionUpdate{RoomCode: &ref.RoomCode, PlayerID: &ref.PlayerID})
}

func (c *SessionCache) write(key, value string) error {
	if value == "" {
		return c.storage.Remove(key)
	}
	return c.storage.Set(key, value)
}

func (c *SessionCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return errors.Join(
		c.storage.Remove(sessionRoomKey),
		c.storage.Remove(sessionPlayerKey),
	)
}
