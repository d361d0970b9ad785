/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

// UserIdentity is the durable, client-side identity of the local user.
type UserIdentity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (u UserIdentity) valid() bool {
	return u.ID != "" && u.Name != ""
}

// SessionReference points at the room this process is currently part of.
// Either field may be empty; a channel is only opened when both are set.
type SessionReference struct {
	RoomCode string
	PlayerID string
}

func (s SessionReference) complete() bool {
	return s.RoomCode != "" && s.PlayerID != ""
}

type RoomStatus string

const (
	RoomWaiting  RoomStatus = "waiting"
	RoomReady    RoomStatus = "ready"
	RoomInGame   RoomStatus = "in_game"
	RoomFinished RoomStatus = "finished"
)

type GameStatus string

const (
	GameWaiting  GameStatus = "waiting"
	GamePlaying  GameStatus = "playing"
	GameFinished GameStatus = "finished"
)

// Phase is the UI-facing lifecycle stage, derived from both snapshots.
type Phase string

const (
	PhaseUnknown  Phase = ""
	PhaseWaiting  Phase = "waiting"
	PhaseReady    Phase = "ready"
	PhaseInGame   Phase = "in_game"
	PhaseFinished Phase = "finished"
)

type PlayerSummary struct {
	ID        string `json:"id" validate:"required"`
	UserID    string `json:"user_id,omitempty"`
	Name      string `json:"name"`
	Seat      int    `json:"seat" validate:"gte=0"`
	IsHost    bool   `json:"is_host"`
	IsReady   bool   `json:"is_ready"`
	HandCount int    `json:"hand_count" validate:"gte=0"`
	Score     int    `json:"score"`
	Status    string `json:"status"`
}

type RoomSnapshot struct {
	ID          string          `json:"id" validate:"required"`
	Code        string          `json:"code" validate:"required"`
	HostID      string          `json:"host_id"`
	Status      RoomStatus      `json:"status" validate:"required,oneof=waiting ready in_game finished"`
	MaxPlayers  int             `json:"max_players" validate:"gte=0"`
	MaxGames    int             `json:"max_games,omitempty" validate:"gte=0"`
	Players     []PlayerSummary `json:"players" validate:"dive"`
	CreatedAt   string          `json:"created_at"`
	GamesPlayed int             `json:"games_played" validate:"gte=0"`
}

// Overfull reports a player count above the room limit. The server enforces
// the limit, so this is only ever shown, never acted on.
func (r *RoomSnapshot) Overfull() bool {
	return r.MaxPlayers > 0 && len(r.Players) > r.MaxPlayers
}

func (r *RoomSnapshot) Player(id string) (PlayerSummary, bool) {
	for _, p := range r.Players {
		if p.ID == id {
			return p, true
		}
	}
	return PlayerSummary{}, false
}

type Suit string

const (
	Spades   Suit = "S"
	Clubs    Suit = "C"
	Diamonds Suit = "D"
	Hearts   Suit = "H"
)

// Card ranks run 3..15 with J=11, Q=12, K=13, A=14 and 2=15.
type Card struct {
	Rank int  `json:"rank" validate:"gte=3,lte=15"`
	Suit Suit `json:"suit" validate:"oneof=S C D H"`
}

type LastPlay struct {
	Type       string `json:"type" validate:"oneof=single pair triple straight consecutive_pairs four_kind"`
	Cards      []Card `json:"cards" validate:"dive"`
	ByPlayerID string `json:"by_player_id"`
}

type GameStateSnapshot struct {
	RoomID            string     `json:"room_id" validate:"required"`
	Status            GameStatus `json:"status" validate:"required,oneof=waiting playing finished"`
	PlayersOrder      []string   `json:"players_order"`
	CurrentTurn       string     `json:"current_turn"`
	LastPlay          *LastPlay  `json:"last_play"`
	PassCount         int        `json:"pass_count" validate:"gte=0"`
	WinnerID          string     `json:"winner_id"`
	FirstGame         bool       `json:"first_game"`
	FirstTurnRequired bool       `json:"first_turn_required"`
}
