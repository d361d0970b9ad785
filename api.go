/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const maxResponseSize = 1 << 20

type CreateRoomRequest struct {
	UserID     string `json:"user_id"`
	MaxPlayers int    `json:"max_players"`
	Password   string `json:"password,omitempty"`
}

type JoinRoomRequest struct {
	UserID   string `json:"user_id"`
	Password string `json:"password,omitempty"`
}

// RoomGrant is returned by both create and join: the room and the seat the
// server assigned us in it.
type RoomGrant struct {
	Room     *RoomSnapshot `json:"room" validate:"required"`
	PlayerID string        `json:"player_id" validate:"required"`
}

func (g RoomGrant) Session() SessionReference {
	return SessionReference{RoomCode: g.Room.Code, PlayerID: g.PlayerID}
}

// RoomJoiner is the one call the rejoin path needs.
type RoomJoiner interface {
	JoinRoom(ctx context.Context, code string, req JoinRoomRequest) (RoomGrant, error)
}

type APIClient struct {
	base *url.URL
	http *http.Client
	log  zerolog.Logger
}

func NewAPIClient(base *url.URL, timeout time.Duration, log zerolog.Logger) *APIClient {
	return &APIClient{
		base: base,
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

type userEnvelope struct {
	User *UserIdentity `json:"user"`
}

func (c *APIClient) CreateUser(ctx context.Context, name string) (UserIdentity, error) {
	var out userEnvelope
	if err := c.do(ctx, "create user", http.MethodPost, "/users", map[string]string{"name": name}, &out); err != nil {
		return UserIdentity{}, err
	}
	if out.User == nil || !out.User.valid() {
		return UserIdentity{}, fmt.Errorf("create user: %w", ErrMalformed)
	}
	return *out.User, nil
}

func (c *APIClient) GetUser(ctx context.Context, id string) (UserIdentity, error) {
	var out userEnvelope
	if err := c.do(ctx, "get user", http.MethodGet, "/users/"+url.PathEscape(id), nil, &out); err != nil {
		return UserIdentity{}, err
	}
	if out.User == nil || !out.User.valid() {
		return UserIdentity{}, fmt.Errorf("get user: %w", ErrMalformed)
	}
	return *out.User, nil
}

func (c *APIClient) CreateRoom(ctx context.Context, req CreateRoomRequest) (RoomGrant, error) {
	return c.grant(ctx, "create room", "/rooms", req)
}

func (c *APIClient) JoinRoom(ctx context.Context, code string, req JoinRoomRequest) (RoomGrant, error) {
	return c.grant(ctx, "join room", "/rooms/"+url.PathEscape(code)+"/join", req)
}

func (c *APIClient) grant(ctx context.Context, op, path string, body any) (RoomGrant, error) {
	var out RoomGrant
	if err := c.do(ctx, op, http.MethodPost, path, body, &out); err != nil {
		return RoomGrant{}, err
	}
	if err := frameValidator.Struct(out); err != nil {
		return RoomGrant{}, fmt.Errorf("%s: %w: %v", op, ErrMalformed, err)
	}
	return out, nil
}

// LeaveRoom returns the room as it stands afterwards, or nil once the last
// player has left and the room is gone.
func (c *APIClient) LeaveRoom(ctx context.Context, code, playerID string) (*RoomSnapshot, error) {
	var out roomUpdatePayload
	body := map[string]string{"player_id": playerID}
	if err := c.do(ctx, "leave room", http.MethodPost, "/rooms/"+url.PathEscape(code)+"/leave", body, &out); err != nil {
		return nil, err
	}
	return out.Room, nil
}

func (c *APIClient) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	target := c.base.JoinPath(path)

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	startTime := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	c.log.Debug().
		Str("method", method).
		Str("path", target.Path).
		Int("status", resp.StatusCode).
		Str("size", humanReadableSize(int64(len(data)))).
		Dur("took", time.Since(startTime).Round(time.Microsecond)).
		Msg("API request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ServerRejection{Op: op, Status: resp.StatusCode, Reason: errorReason(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrMalformed, err)
	}

	return nil
}

// errorReason pulls a readable message out of {"error": ...}. The server
// sends either a string or a list of validation problems.
func errorReason(data []byte) string {
	var body struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil || len(body.Error) == 0 {
		return strings.TrimSpace(string(data))
	}

	var msg string
	if err := json.Unmarshal(body.Error, &msg); err == nil {
		return msg
	}

	var problems []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(body.Error, &problems); err == nil && len(problems) > 0 {
		parts := make([]string, 0, len(problems))
		for _, p := range problems {
			if len(p.Loc) > 0 {
				parts = append(parts, fmt.Sprintf("%v: %s", p.Loc[len(p.Loc)-1], p.Msg))
			} else {
				parts = append(parts, p.Msg)
			}
		}
		return strings.Join(parts, "; ")
	}

	return string(body.Error)
}

// describeError turns the API taxonomy into the line shown to the user.
func describeError(err error) string {
	var (
		rejection *ServerRejection
		network   *NetworkError
	)

	switch {
	case errors.Is(err, ErrBadPassword):
		return "wrong room password"
	case errors.Is(err, ErrRoomFull):
		return "room is full"
	case errors.Is(err, ErrNotFound):
		return "room not found"
	case errors.As(err, &rejection):
		if rejection.Reason != "" {
			return rejection.Reason
		}
		return fmt.Sprintf("server returned %d", rejection.Status)
	case errors.As(err, &network):
		return "cannot reach server: " + network.Err.Error()
	}

	return err.Error()
}
