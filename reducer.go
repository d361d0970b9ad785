/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import "github.com/rs/zerolog"

// Outcome tells the owner what a frame did to the state.
type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeUpdated
	OutcomeRoomMissing
)

// RoomState holds the latest room and game snapshots exactly as the server
// sent them.
type RoomState struct {
	Room *RoomSnapshot
	Game *GameStateSnapshot
}

// Apply folds one inbound frame into the state. Every snapshot replaces the
// previous one outright.
func (s *RoomState) Apply(frame Inbound, log zerolog.Logger) Outcome {
	switch f := frame.(type) {
	case RoomUpdate:
		if f.Room == nil {
			return OutcomeRoomMissing
		}
		room := *f.Room
		s.Room = &room
		// A room back in the waiting state starts a fresh game.
		if room.Status == RoomWaiting {
			s.Game = nil
		}
		return OutcomeUpdated

	case GameEvent:
		game := f.State
		s.Game = &game
		return OutcomeUpdated

	case ServerError:
		if isNotFoundMessage(f.Message) {
			return OutcomeRoomMissing
		}
		log.Warn().Str("message", f.Message).Msg("Server reported an error")
		return OutcomeIgnored
	}

	log.Warn().Msgf("Ignoring unexpected frame %T", frame)
	return OutcomeIgnored
}

func (s RoomState) Phase() Phase {
	var (
		room RoomStatus
		game GameStatus
	)
	if s.Room != nil {
		room = s.Room.Status
	}
	if s.Game != nil {
		game = s.Game.Status
	}
	return EffectivePhase(room, game)
}

// EffectivePhase combines both statuses. A playing or finished game wins
// over whatever the room reports.
func EffectivePhase(room RoomStatus, game GameStatus) Phase {
	switch game {
	case GamePlaying:
		return PhaseInGame
	case GameFinished:
		return PhaseFinished
	}
	return Phase(room)
}
