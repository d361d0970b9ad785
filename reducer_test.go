/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectivePhase(t *testing.T) {
	cases := []struct {
		room RoomStatus
		game GameStatus
		want Phase
	}{
		{RoomWaiting, "", PhaseWaiting},
		{RoomReady, "", PhaseReady},
		{RoomInGame, "", PhaseInGame},
		{RoomFinished, "", PhaseFinished},
		{RoomWaiting, GamePlaying, PhaseInGame},
		{RoomReady, GamePlaying, PhaseInGame},
		{RoomInGame, GameFinished, PhaseFinished},
		{RoomReady, GameWaiting, PhaseReady},
		{"", GamePlaying, PhaseInGame},
		{"", "", PhaseUnknown},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, EffectivePhase(tc.room, tc.game), "room=%q game=%q", tc.room, tc.game)
	}
}

func TestApplyReplacesSnapshots(t *testing.T) {
	var s RoomState

	assert.Equal(t, OutcomeUpdated, s.Apply(RoomUpdate{Room: testRoom("ABCD", RoomWaiting)}, nopLog))
	assert.Equal(t, PhaseWaiting, s.Phase())

	room := testRoom("ABCD", RoomReady, PlayerSummary{ID: "p1", Name: "Khoa"})
	assert.Equal(t, OutcomeUpdated, s.Apply(RoomUpdate{Room: room}, nopLog))
	assert.Equal(t, PhaseReady, s.Phase())
	assert.Len(t, s.Room.Players, 1)

	// The state holds its own copy.
	room.Code = "ZZZZ"
	assert.Equal(t, "ABCD", s.Room.Code)
}

func TestGameStartWinsOverRoomStatus(t *testing.T) {
	var s RoomState

	s.Apply(RoomUpdate{Room: testRoom("ABCD", RoomReady)}, nopLog)
	require.Equal(t, PhaseReady, s.Phase())

	assert.Equal(t, OutcomeUpdated, s.Apply(GameEvent{Type: EventGameStart, State: testGame(GamePlaying)}, nopLog))
	assert.Equal(t, PhaseInGame, s.Phase())
	assert.Equal(t, RoomReady, s.Room.Status, "room snapshot is untouched")
}

func TestGameEndShowsResults(t *testing.T) {
	var s RoomState

	s.Apply(RoomUpdate{Room: testRoom("ABCD", RoomInGame)}, nopLog)
	s.Apply(GameEvent{Type: EventGameStart, State: testGame(GamePlaying)}, nopLog)
	s.Apply(GameEvent{Type: EventGameEnd, State: testGame(GameFinished)}, nopLog)

	assert.Equal(t, PhaseFinished, s.Phase())
}

func TestWaitingRoomDropsGame(t *testing.T) {
	var s RoomState

	s.Apply(GameEvent{Type: EventGameEnd, State: testGame(GameFinished)}, nopLog)
	s.Apply(RoomUpdate{Room: testRoom("ABCD", RoomWaiting)}, nopLog)

	assert.Nil(t, s.Game)
	assert.Equal(t, PhaseWaiting, s.Phase())
}

func TestApplyRoomMissing(t *testing.T) {
	var s RoomState
	s.Apply(RoomUpdate{Room: testRoom("ABCD", RoomWaiting)}, nopLog)

	assert.Equal(t, OutcomeRoomMissing, s.Apply(RoomUpdate{}, nopLog))
	assert.Equal(t, OutcomeRoomMissing, s.Apply(ServerError{Message: "Room not found"}, nopLog))
	assert.Equal(t, OutcomeRoomMissing, s.Apply(ServerError{Message: "Player NOT IN ROOM"}, nopLog))

	assert.NotNil(t, s.Room, "missing room leaves recovery to the owner")
}

func TestApplyOtherErrorsIgnored(t *testing.T) {
	var s RoomState
	s.Apply(RoomUpdate{Room: testRoom("ABCD", RoomReady)}, nopLog)

	assert.Equal(t, OutcomeIgnored, s.Apply(ServerError{Message: "Not your turn"}, nopLog))
	assert.Equal(t, PhaseReady, s.Phase())
}

func TestPhaseDependsOnlyOnFinalSnapshots(t *testing.T) {
	room := func(status RoomStatus) Inbound { return RoomUpdate{Room: testRoom("ABCD", status)} }
	game := func(typ EventType, status GameStatus) Inbound {
		return GameEvent{Type: typ, State: testGame(status)}
	}

	cases := []struct {
		name string
		a, b []Inbound
		want Phase
	}{
		{
			name: "playing",
			a:    []Inbound{room(RoomReady), game(EventGameStart, GamePlaying)},
			b: []Inbound{
				game(EventGameEnd, GameFinished), room(RoomInGame),
				game(EventTurnPlay, GamePlaying), room(RoomReady),
			},
			want: PhaseInGame,
		},
		{
			name: "finished",
			a:    []Inbound{room(RoomInGame), game(EventGameEnd, GameFinished)},
			b: []Inbound{
				room(RoomWaiting), game(EventGameStart, GamePlaying), room(RoomInGame),
				game(EventTurnPass, GamePlaying), game(EventGameEnd, GameFinished),
			},
			want: PhaseFinished,
		},
		{
			name: "back to waiting",
			a:    []Inbound{room(RoomWaiting)},
			b:    []Inbound{room(RoomInGame), game(EventGameStart, GamePlaying), room(RoomWaiting)},
			want: PhaseWaiting,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var a, b RoomState
			for _, f := range tc.a {
				a.Apply(f, nopLog)
			}
			for _, f := range tc.b {
				b.Apply(f, nopLog)
			}

			assert.Equal(t, tc.want, a.Phase())
			assert.Equal(t, a.Phase(), b.Phase())
			assert.Equal(t, a.Room.Status, b.Room.Status)
			assert.Equal(t, a.Game == nil, b.Game == nil)
		})
	}
}
