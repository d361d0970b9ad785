/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

type EventType string

const (
	EventRoomJoin    EventType = "room:join"
	EventRoomLeave   EventType = "room:leave"
	EventRoomSync    EventType = "room:sync"
	EventRoomUpdate  EventType = "room:update"
	EventPlayerReady EventType = "player:ready"
	EventGameStart   EventType = "game:start"
	EventTurnPlay    EventType = "turn:play"
	EventTurnPass    EventType = "turn:pass"
	EventGameEnd     EventType = "game:end"
	EventError       EventType = "error"
)

// Envelope is the frame shape in both directions.
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Outbound payloads.

type roomRef struct {
	Code     string `json:"code"`
	PlayerID string `json:"player_id"`
}

type startGamePayload struct {
	Code     string `json:"code"`
	PlayerID string `json:"player_id"`
	MaxGames int    `json:"max_games"`
}

type readyPayload struct {
	Code     string `json:"code"`
	PlayerID string `json:"player_id"`
	IsReady  bool   `json:"is_ready"`
}

type playPayload struct {
	Code     string `json:"code"`
	PlayerID string `json:"player_id"`
	Cards    []Card `json:"cards"`
}

func encodeFrame(t EventType, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}

	return json.Marshal(Envelope{Type: t, Payload: raw})
}

// Inbound is one of RoomUpdate, GameEvent or ServerError.
type Inbound interface {
	EventType() EventType
}

// RoomUpdate with a nil Room means the room no longer exists.
type RoomUpdate struct {
	Room *RoomSnapshot
}

func (RoomUpdate) EventType() EventType { return EventRoomUpdate }

type GameEvent struct {
	Type  EventType
	State GameStateSnapshot
}

func (e GameEvent) EventType() EventType { return e.Type }

type ServerError struct {
	Message string
}

func (ServerError) EventType() EventType { return EventError }

type roomUpdatePayload struct {
	Room *RoomSnapshot `json:"room"`
}

type gameEventPayload struct {
	State *GameStateSnapshot `json:"state" validate:"required"`
}

type errorPayload struct {
	Message string `json:"message"`
}

var frameValidator = validator.New(validator.WithRequiredStructEnabled())

// DecodeInbound parses and validates a server frame. Errors wrap
// ErrMalformed or ErrUnknownFrame; the frame must then be dropped.
func DecodeInbound(data []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Type {
	case EventRoomUpdate:
		var p roomUpdatePayload
		if err := decodePayload(env.Payload, &p); err != nil {
			return nil, err
		}
		if p.Room != nil {
			if err := frameValidator.Struct(p.Room); err != nil {
				return nil, fmt.Errorf("%w: room: %v", ErrMalformed, err)
			}
		}
		return RoomUpdate{Room: p.Room}, nil

	case EventGameStart, EventTurnPlay, EventTurnPass, EventGameEnd:
		var p gameEventPayload
		if err := decodePayload(env.Payload, &p); err != nil {
			return nil, err
		}
		if err := frameValidator.Struct(p); err != nil {
			return nil, fmt.Errorf("%w: state: %v", ErrMalformed, err)
		}
		return GameEvent{Type: env.Type, State: *p.State}, nil

	case EventError:
		var p errorPayload
		if err := decodePayload(env.Payload, &p); err != nil {
			return nil, err
		}
		return ServerError{Message: p.Message}, nil

	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownFrame, env.Type)
}

// decodePayload treats a missing or null payload as an empty object.
func decodePayload(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: payload: %v", ErrMalformed, err)
	}
	return nil
}
