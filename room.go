/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const roomNotice = "This room is no longer available."

var errAlreadyMounted = errors.New("room view already mounted")

// RoomAPI is the part of the HTTP API a mounted room uses.
type RoomAPI interface {
	RoomJoiner
	LeaveRoom(ctx context.Context, code, playerID string) (*RoomSnapshot, error)
}

// ViewUpdate is what the renderer gets after every change.
type ViewUpdate struct {
	State    RoomState
	Phase    Phase
	Channel  ChannelState
	PlayerID string
	Err      error
}

type RoomViewDeps struct {
	Identities   *IdentityStore
	Sessions     *SessionCache
	API          RoomAPI
	Navigator    Navigator
	Dialer       *websocket.Dialer
	WebsocketURL string
	Password     string
	Log          zerolog.Logger
	OnChange     func(ViewUpdate)
}

type viewCommand struct {
	run   func() error
	reply chan error
}

// RoomView is one mounted room screen. Run is the mount; everything it owns
// is touched only from Run's goroutine, the same way a UI event queue would
// drive it.
type RoomView struct {
	identities *IdentityStore
	sessions   *SessionCache
	api        RoomAPI
	nav        Navigator
	log        zerolog.Logger
	onChange   func(ViewUpdate)

	channels *ChannelManager
	rejoin   *RejoinOrchestrator
	state    RoomState

	events  chan any
	done    chan struct{}
	mounted bool
	ended   bool
}

func NewRoomView(deps RoomViewDeps) *RoomView {
	v := &RoomView{
		identities: deps.Identities,
		sessions:   deps.Sessions,
		api:        deps.API,
		nav:        deps.Navigator,
		log:        deps.Log,
		onChange:   deps.OnChange,
		events:     make(chan any, 64),
		done:       make(chan struct{}),
	}

	v.channels = NewChannelManager(deps.Dialer, deps.WebsocketURL, deps.Log, func(d ChannelDelivery) {
		v.post(d)
	})
	v.rejoin = NewRejoinOrchestrator(deps.Identities, deps.API, deps.Password, deps.Log)

	return v
}

// Run mounts the view and blocks until the user leaves, the room turns out
// to be gone, or ctx is cancelled. Returning unmounts: the channel is closed
// and any pending rejoin is abandoned.
func (v *RoomView) Run(ctx context.Context) error {
	if v.mounted {
		return errAlreadyMounted
	}
	v.mounted = true

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer v.unmount()

	v.evaluate(ctx)

	for !v.ended {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-v.events:
			v.handle(ctx, ev)
		}
	}

	return nil
}

func (v *RoomView) unmount() {
	v.rejoin.Cancel()
	v.channels.Teardown()
	close(v.done)
}

func (v *RoomView) post(ev any) {
	select {
	case v.events <- ev:
	case <-v.done:
	}
}

func (v *RoomView) handle(ctx context.Context, ev any) {
	switch e := ev.(type) {
	case ChannelDelivery:
		if !v.channels.IsCurrent(e.Gen) {
			v.log.Debug().Uint64("gen", e.Gen).Msg("Dropping delivery from stale channel")
			return
		}
		if e.Frame == nil {
			v.publish(e.Err)
			return
		}
		switch v.state.Apply(e.Frame, v.log) {
		case OutcomeRoomMissing:
			v.recover(ErrNotFound)
		case OutcomeUpdated:
			v.publish(nil)
		}

	case RejoinResult:
		grant, err := v.rejoin.Accept(e)
		switch {
		case errors.Is(err, errRejoinStale):
			return
		case err != nil:
			v.log.Warn().Err(err).Msg("Rejoin failed")
			v.recover(err)
			return
		}
		if err := v.sessions.Store(grant.Session()); err != nil {
			v.recover(err)
			return
		}
		v.evaluate(ctx)

	case viewCommand:
		e.reply <- e.run()
	}
}

// evaluate brings the channel and rejoin in line with the session cache.
func (v *RoomView) evaluate(ctx context.Context) {
	if v.ended {
		return
	}

	ref := v.sessions.Get()

	switch {
	case ref.complete():
		v.channels.Ensure(ref)

	case ref.RoomCode != "":
		v.channels.Teardown()
		if v.rejoin.Pending() || v.rejoin.Attempted() {
			return
		}
		if _, err := v.rejoin.Start(ctx, ref.RoomCode, func(r RejoinResult) { v.post(r) }); err != nil {
			v.recover(err)
		}

	default:
		v.log.Debug().Msg("No room in session, returning to lobby")
		v.end()
		v.nav.ToLobby()
	}
}

func (v *RoomView) end() {
	v.ended = true
	v.rejoin.Cancel()
	v.channels.Teardown()
}

// recover is the one path out for a room that is gone, whatever noticed it
// first: clear the session, tell the user once, go to the lobby.
func (v *RoomView) recover(cause error) {
	if v.ended {
		return
	}
	v.log.Info().Err(cause).Msg("Room unavailable")

	v.end()
	if err := v.sessions.Clear(); err != nil {
		v.log.Warn().Err(err).Msg("Clearing session failed")
	}

	v.nav.Notice(roomNotice)
	v.nav.ToLobby()
}

func (v *RoomView) publish(err error) {
	if v.onChange == nil {
		return
	}

	state := v.state
	v.onChange(ViewUpdate{
		State:    state,
		Phase:    state.Phase(),
		Channel:  v.channels.State(),
		PlayerID: v.sessions.Get().PlayerID,
		Err:      err,
	})
}

// do runs fn on the view's goroutine.
func (v *RoomView) do(fn func() error) error {
	reply := make(chan error, 1)

	select {
	case v.events <- viewCommand{run: fn, reply: reply}:
	case <-v.done:
		return ErrChannelUnavailable
	}

	select {
	case err := <-reply:
		return err
	case <-v.done:
		return ErrChannelUnavailable
	}
}

func (v *RoomView) send(t EventType, payload func(SessionReference) any) error {
	return v.do(func() error {
		ref := v.sessions.Get()
		return v.channels.Send(t, payload(ref))
	})
}

func (v *RoomView) SetReady(ready bool) error {
	return v.send(EventPlayerReady, func(ref SessionReference) any {
		return readyPayload{Code: ref.RoomCode, PlayerID: ref.PlayerID, IsReady: ready}
	})
}

func (v *RoomView) StartGame(maxGames int) error {
	return v.send(EventGameStart, func(ref SessionReference) any {
		return startGamePayload{Code: ref.RoomCode, PlayerID: ref.PlayerID, MaxGames: maxGames}
	})
}

func (v *RoomView) PlayCards(cards []Card) error {
	return v.send(EventTurnPlay, func(ref SessionReference) any {
		return playPayload{Code: ref.RoomCode, PlayerID: ref.PlayerID, Cards: cards}
	})
}

func (v *RoomView) Pass() error {
	return v.send(EventTurnPass, func(ref SessionReference) any {
		return roomRef{Code: ref.RoomCode, PlayerID: ref.PlayerID}
	})
}

// Reconnect drops the current channel and opens a fresh one for the same
// session.
func (v *RoomView) Reconnect(ctx context.Context) error {
	return v.do(func() error {
		v.channels.Teardown()
		v.evaluate(ctx)
		return nil
	})
}

// Leave gives up our seat. Over an open channel the server removes us when it
// sees room:leave; otherwise the HTTP leave call does it.
func (v *RoomView) Leave(ctx context.Context) error {
	return v.do(func() error {
		ref := v.sessions.Get()

		if v.channels.State() == ChannelOpen {
			_ = v.channels.Send(EventRoomLeave, roomRef{Code: ref.RoomCode, PlayerID: ref.PlayerID})
		} else if ref.complete() {
			leaveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if _, err := v.api.LeaveRoom(leaveCtx, ref.RoomCode, ref.PlayerID); err != nil {
				v.log.Warn().Err(err).Msg("Leave request failed")
			}
			cancel()
		}

		v.end()
		if err := v.sessions.Clear(); err != nil {
			v.log.Warn().Err(err).Msg("Clearing session failed")
		}
		v.nav.ToLobby()

		return nil
	})
}

// Snapshot returns the current state from the view's goroutine.
func (v *RoomView) Snapshot() (RoomState, error) {
	var state RoomState
	err := v.do(func() error {
		state = v.state
		return nil
	})
	return state, err
}
