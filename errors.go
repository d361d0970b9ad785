/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrMalformed          = errors.New("malformed payload")
	ErrUnknownFrame       = errors.New("unknown frame type")
	ErrChannelUnavailable = errors.New("not connected to room")
	ErrBadPassword        = errors.New("invalid room password")
	ErrRoomFull           = errors.New("room is full")
	ErrInvalidRequest     = errors.New("request rejected as invalid")
	ErrNoIdentity         = errors.New("no saved user")
	ErrEmptyName          = errors.New("name must not be empty")
	ErrInvalidMaxPlayers  = errors.New("max players must be between 2 and 4")
)

// NetworkError is a transport-level failure: the request never produced a
// response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ServerRejection is a non-2xx response. Reason carries the server's error
// body when it sent one.
type ServerRejection struct {
	Op     string
	Status int
	Reason string
}

func (e *ServerRejection) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: server returned %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %s (%d)", e.Op, e.Reason, e.Status)
}

// Is maps status codes onto the sentinels, so callers can use errors.Is
// without caring about HTTP.
func (e *ServerRejection) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrBadPassword:
		return e.Status == http.StatusForbidden
	case ErrRoomFull:
		return e.Status == http.StatusConflict
	case ErrInvalidRequest:
		return e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity
	}
	return false
}

// isNotFoundMessage reports whether a server error frame means the room, or
// our seat in it, is gone.
func isNotFoundMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "not found") || strings.Contains(msg, "not in room")
}

func newLogger(cfg *Config, out io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if cfg.verbose {
		level = zerolog.DebugLevel
	}

	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: logDate,
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}
