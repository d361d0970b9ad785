/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

var errRejoinStale = errors.New("stale rejoin result")

type RejoinResult struct {
	Attempt uint64
	UserID  string
	Grant   RoomGrant
	Err     error
}

// RejoinOrchestrator recovers a player id when only the room code survived.
// It makes at most one attempt per mount. It is driven from the room view's
// loop and needs no locking.
type RejoinOrchestrator struct {
	identities *IdentityStore
	api        RoomJoiner
	password   string
	log        zerolog.Logger

	attempted bool
	pending   uint64
	next      uint64
	cancel    context.CancelFunc
}

func NewRejoinOrchestrator(identities *IdentityStore, api RoomJoiner, password string, log zerolog.Logger) *RejoinOrchestrator {
	return &RejoinOrchestrator{
		identities: identities,
		api:        api,
		password:   password,
		log:        log,
	}
}

func (o *RejoinOrchestrator) Attempted() bool {
	return o.attempted
}

func (o *RejoinOrchestrator) Pending() bool {
	return o.pending != 0
}

// Start issues the join call in the background and reports its result
// through deliver. It returns false if this mount already tried. Without a
// saved user, it fails at once with ErrNoIdentity.
func (o *RejoinOrchestrator) Start(ctx context.Context, code string, deliver func(RejoinResult)) (bool, error) {
	if o.attempted {
		return false, nil
	}
	o.attempted = true

	user := o.identities.Load()
	if user == nil {
		return true, ErrNoIdentity
	}

	o.next++
	attempt := o.next
	o.pending = attempt

	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	o.log.Debug().Str("room", code).Uint64("attempt", attempt).Msg("Rejoining room")

	req := JoinRoomRequest{UserID: user.ID, Password: o.password}
	go func() {
		defer cancel()
		grant, err := o.api.JoinRoom(ctx, code, req)
		deliver(RejoinResult{Attempt: attempt, UserID: req.UserID, Grant: grant, Err: err})
	}()

	return true, nil
}

// Accept matches a delivered result against the pending attempt. Results
// from cancelled attempts come back as errRejoinStale and must be dropped.
// A result that arrives after the user was cleared or replaced is discarded
// and reported as ErrNoIdentity.
func (o *RejoinOrchestrator) Accept(res RejoinResult) (RoomGrant, error) {
	if o.pending == 0 || res.Attempt != o.pending {
		return RoomGrant{}, errRejoinStale
	}
	o.pending = 0
	o.cancel = nil

	if user := o.identities.Load(); user == nil || user.ID != res.UserID {
		o.log.Debug().Uint64("attempt", res.Attempt).Msg("Discarding rejoin, user no longer available")
		return RoomGrant{}, ErrNoIdentity
	}

	if res.Err != nil {
		return RoomGrant{}, res.Err
	}
	return res.Grant, nil
}

// Cancel abandons the pending attempt, if any.
func (o *RejoinOrchestrator) Cancel() {
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.pending = 0
}
