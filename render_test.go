/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCard(t *testing.T) {
	cases := map[string]Card{
		"3S":  {Rank: 3, Suit: Spades},
		"10h": {Rank: 10, Suit: Hearts},
		"jd":  {Rank: 11, Suit: Diamonds},
		"QC":  {Rank: 12, Suit: Clubs},
		"KS":  {Rank: 13, Suit: Spades},
		"AH":  {Rank: 14, Suit: Hearts},
		"2C":  {Rank: 15, Suit: Clubs},
	}

	for in, want := range cases {
		got, err := ParseCard(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "S", "1S", "11S", "3X", "ZS", "15H"} {
		_, err := ParseCard(bad)
		assert.ErrorIs(t, err, errBadCard, bad)
	}
}

func TestParseCards(t *testing.T) {
	cards, err := ParseCards([]string{"3S", "3C"})
	require.NoError(t, err)
	assert.Equal(t, []Card{{Rank: 3, Suit: Spades}, {Rank: 3, Suit: Clubs}}, cards)

	_, err = ParseCards([]string{"3S", "nope"})
	assert.ErrorIs(t, err, errBadCard)
}

func TestCardString(t *testing.T) {
	assert.Equal(t, "3♠", Card{Rank: 3, Suit: Spades}.String())
	assert.Equal(t, "10♥", Card{Rank: 10, Suit: Hearts}.String())
	assert.Equal(t, "2♣", Card{Rank: 15, Suit: Clubs}.String())
	assert.Equal(t, "A♦ K♠", formatCards([]Card{{Rank: 14, Suit: Diamonds}, {Rank: 13, Suit: Spades}}))
}

func renderString(u ViewUpdate) string {
	var b strings.Builder
	renderView(&b, u)
	return b.String()
}

func TestRenderWaitingRoom(t *testing.T) {
	room := testRoom("ABCD", RoomReady,
		PlayerSummary{ID: "p2", Name: "Khoa", Seat: 1, IsReady: true},
		PlayerSummary{ID: "p1", Name: "An", Seat: 0, IsHost: true, IsReady: true},
	)
	state := RoomState{Room: room}

	out := renderString(ViewUpdate{State: state, Phase: state.Phase(), Channel: ChannelOpen, PlayerID: "p1"})

	assert.Contains(t, out, "Room ABCD  2/4 players")
	assert.Less(t, strings.Index(out, "An"), strings.Index(out, "Khoa"), "players are listed by seat")
	assert.Contains(t, out, "An [host] [ready] (you)")
	assert.Contains(t, out, "Type \"start\" to deal.")
	assert.NotContains(t, out, "connecting")
}

func TestRenderOverCapacity(t *testing.T) {
	room := testRoom("ABCD", RoomWaiting,
		PlayerSummary{ID: "p1"}, PlayerSummary{ID: "p2"}, PlayerSummary{ID: "p3"},
	)
	room.MaxPlayers = 2

	out := renderString(ViewUpdate{State: RoomState{Room: room}, Phase: PhaseWaiting, Channel: ChannelOpen})

	assert.Contains(t, out, "3/2 players  (over capacity)")
}

func TestRenderTable(t *testing.T) {
	room := testRoom("ABCD", RoomInGame,
		PlayerSummary{ID: "p1", Name: "An", HandCount: 12},
		PlayerSummary{ID: "p2", Name: "Khoa", Seat: 1, HandCount: 13},
	)
	game := testGame(GamePlaying)
	game.LastPlay = &LastPlay{Type: "consecutive_pairs", Cards: []Card{{Rank: 5, Suit: Spades}, {Rank: 5, Suit: Hearts}}, ByPlayerID: "p2"}
	game.FirstTurnRequired = true
	state := RoomState{Room: room, Game: &game}

	out := renderString(ViewUpdate{State: state, Phase: state.Phase(), Channel: ChannelOpen, PlayerID: "p1"})

	assert.Contains(t, out, "An  12 cards  0 pts  <- turn")
	assert.Contains(t, out, "On the table: 5♠ 5♥ (consecutive pairs by Khoa)")
	assert.Contains(t, out, "Your turn")
	assert.Contains(t, out, "3♠")
}

func TestRenderResults(t *testing.T) {
	room := testRoom("ABCD", RoomFinished,
		PlayerSummary{ID: "p1", Name: "An", Score: 3},
		PlayerSummary{ID: "p2", Name: "Khoa", Score: 7},
	)
	room.MaxGames = 8
	room.GamesPlayed = 2
	game := testGame(GameFinished)
	game.WinnerID = "p2"
	state := RoomState{Room: room, Game: &game}

	out := renderString(ViewUpdate{State: state, Phase: state.Phase(), Channel: ChannelClosed})

	assert.Contains(t, out, "disconnected")
	assert.Contains(t, out, "Winner: Khoa")
	assert.Less(t, strings.Index(out, "Khoa "), strings.Index(out, "An "), "results are sorted by score")
	assert.Contains(t, out, "Games played: 2 of 8")
}

func TestRenderBeforeFirstSnapshot(t *testing.T) {
	out := renderString(ViewUpdate{Channel: ChannelConnecting})

	assert.Contains(t, out, "connecting")
	assert.Contains(t, out, "Waiting for room state")
}
