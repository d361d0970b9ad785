/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const identityKey = "tienlen.user"

// IdentityStore caches the local user's identity in memory and writes it
// through to durable storage.
type IdentityStore struct {
	mu      sync.RWMutex
	storage Storage
	log     zerolog.Logger

	loaded bool
	user   *UserIdentity
}

func NewIdentityStore(storage Storage, log zerolog.Logger) *IdentityStore {
	return &IdentityStore{
		storage: storage,
		log:     log,
	}
}

// Load returns the saved identity, or nil. A stored value that fails to
// parse or lacks an id or name is deleted.
func (s *IdentityStore) Load() *UserIdentity {
	s.mu.RLock()
	if s.loaded {
		user := s.user
		s.mu.RUnlock()
		return cloneIdentity(user)
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		s.user = s.readLocked()
		s.loaded = true
	}

	return cloneIdentity(s.user)
}

func (s *IdentityStore) readLocked() *UserIdentity {
	raw, ok, err := s.storage.Get(identityKey)
	if err != nil {
		s.log.Warn().Err(err).Msg("Reading saved user failed")
		return nil
	}
	if !ok {
		return nil
	}

	var user UserIdentity
	if err := json.Unmarshal([]byte(raw), &user); err == nil && user.valid() {
		return &user
	}

	s.log.Debug().Msg("Discarding malformed saved user")
	if err := s.storage.Remove(identityKey); err != nil {
		s.log.Warn().Err(err).Msg("Removing malformed saved user failed")
	}

	return nil
}

// Save persists the identity first, then publishes it to readers.
func (s *IdentityStore) Save(user UserIdentity) error {
	if !user.valid() {
		return fmt.Errorf("save user: %w", ErrMalformed)
	}

	data, err := json.Marshal(user)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Set(identityKey, string(data)); err != nil {
		return fmt.Errorf("save user: %w", err)
	}

	s.user = &user
	s.loaded = true

	return nil
}

func (s *IdentityStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = nil
	s.loaded = true

	return s.storage.Remove(identityKey)
}

func cloneIdentity(u *UserIdentity) *UserIdentity {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// NewUserID returns a random UUID, or a time-based id with a random suffix
// if the system random source is unavailable.
func NewUserID() string {
	id, err := uuid.NewRandom()
	if err == nil {
		return id.String()
	}

	return fallbackUserID(time.Now())
}

func fallbackUserID(now time.Time) string {
	const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = base36[rand.IntN(len(base36))]
	}

	return "user_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + string(suffix)
}
