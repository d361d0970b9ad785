/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

var errBadCard = errors.New("unknown card")

var rankNames = map[int]string{
	11: "J",
	12: "Q",
	13: "K",
	14: "A",
	15: "2",
}

var suitSymbols = map[Suit]string{
	Spades:   "♠",
	Clubs:    "♣",
	Diamonds: "♦",
	Hearts:   "♥",
}

func (c Card) String() string {
	rank, ok := rankNames[c.Rank]
	if !ok {
		rank = strconv.Itoa(c.Rank)
	}
	symbol, ok := suitSymbols[c.Suit]
	if !ok {
		symbol = string(c.Suit)
	}
	return rank + symbol
}

// ParseCard reads the short form used at the prompt: rank then suit letter,
// for example 3S, 10H, QD or 2C.
func ParseCard(s string) (Card, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < 2 {
		return Card{}, fmt.Errorf("%w: %q", errBadCard, s)
	}

	suit := Suit(s[len(s)-1:])
	if _, ok := suitSymbols[suit]; !ok {
		return Card{}, fmt.Errorf("%w: %q", errBadCard, s)
	}

	rankText := s[:len(s)-1]
	rank := 0
	for r, name := range rankNames {
		if name == rankText {
			rank = r
		}
	}
	if rank == 0 {
		n, err := strconv.Atoi(rankText)
		if err != nil || n < 3 || n > 10 {
			return Card{}, fmt.Errorf("%w: %q", errBadCard, s)
		}
		rank = n
	}

	return Card{Rank: rank, Suit: suit}, nil
}

func ParseCards(fields []string) ([]Card, error) {
	cards := make([]Card, 0, len(fields))
	for _, f := range fields {
		c, err := ParseCard(f)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

func formatCards(cards []Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

// renderView draws the screen the effective phase calls for.
func renderView(w io.Writer, u ViewUpdate) {
	var b strings.Builder

	switch u.Channel {
	case ChannelConnecting, ChannelIdle:
		b.WriteString("-- connecting --\n")
	case ChannelClosing, ChannelClosed:
		b.WriteString("-- disconnected (type \"reconnect\" to retry) --\n")
	}

	room := u.State.Room
	if room != nil {
		fmt.Fprintf(&b, "TIEN LEN  Room %s  %d/%d players", room.Code, len(room.Players), room.MaxPlayers)
		if room.Overfull() {
			b.WriteString("  (over capacity)")
		}
		b.WriteString("\n")
	}

	switch u.Phase {
	case PhaseInGame:
		renderTable(&b, u)
	case PhaseFinished:
		renderResults(&b, u)
	case PhaseUnknown:
		b.WriteString("Waiting for room state...\n")
	default:
		renderWaitingRoom(&b, u)
	}

	_, _ = io.WriteString(w, b.String())
}

func playerName(room *RoomSnapshot, id string) string {
	if room != nil {
		if p, ok := room.Player(id); ok {
			return p.Name
		}
	}
	if id == "" {
		return "-"
	}
	return id
}

func renderWaitingRoom(b *strings.Builder, u ViewUpdate) {
	room := u.State.Room
	if room == nil {
		return
	}

	players := slices.Clone(room.Players)
	slices.SortFunc(players, func(a, b PlayerSummary) int { return a.Seat - b.Seat })

	for _, p := range players {
		marks := ""
		if p.IsHost {
			marks += " [host]"
		}
		if p.IsReady {
			marks += " [ready]"
		}
		if p.ID == u.PlayerID {
			marks += " (you)"
		}
		fmt.Fprintf(b, "  seat %d  %s%s\n", p.Seat+1, p.Name, marks)
	}

	if u.Phase == PhaseReady {
		b.WriteString("Everyone is ready.")
		if room.HostID == u.PlayerID {
			b.WriteString(" Type \"start\" to deal.")
		}
		b.WriteString("\n")
	}
}

func renderTable(b *strings.Builder, u ViewUpdate) {
	room, game := u.State.Room, u.State.Game
	if game == nil {
		return
	}

	for _, id := range game.PlayersOrder {
		line := "  " + playerName(room, id)
		if room != nil {
			if p, ok := room.Player(id); ok {
				line += fmt.Sprintf("  %d cards  %d pts", p.HandCount, p.Score)
			}
		}
		if id == game.CurrentTurn {
			line += "  <- turn"
		}
		b.WriteString(line + "\n")
	}

	if game.LastPlay != nil {
		fmt.Fprintf(b, "On the table: %s (%s by %s)\n",
			formatCards(game.LastPlay.Cards),
			strings.ReplaceAll(game.LastPlay.Type, "_", " "),
			playerName(room, game.LastPlay.ByPlayerID))
	} else {
		b.WriteString("On the table: nothing yet\n")
	}
	if game.PassCount > 0 {
		fmt.Fprintf(b, "Passes: %d\n", game.PassCount)
	}

	if game.CurrentTurn != "" && game.CurrentTurn == u.PlayerID {
		b.WriteString("Your turn: \"play <cards>\" or \"pass\".")
		if game.FirstTurnRequired {
			b.WriteString(" The opening play must include the 3♠.")
		}
		b.WriteString("\n")
	}
}

func renderResults(b *strings.Builder, u ViewUpdate) {
	room, game := u.State.Room, u.State.Game

	if game != nil && game.WinnerID != "" {
		fmt.Fprintf(b, "Winner: %s\n", playerName(room, game.WinnerID))
	} else {
		b.WriteString("Game over.\n")
	}

	if room == nil {
		return
	}

	players := slices.Clone(room.Players)
	slices.SortFunc(players, func(a, b PlayerSummary) int { return b.Score - a.Score })
	for _, p := range players {
		fmt.Fprintf(b, "  %-16s %d pts\n", p.Name, p.Score)
	}

	if room.MaxGames > 0 {
		fmt.Fprintf(b, "Games played: %d of %d\n", room.GamesPlayed, room.MaxGames)
	} else {
		fmt.Fprintf(b, "Games played: %d\n", room.GamesPlayed)
	}
}
