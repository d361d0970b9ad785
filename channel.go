/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait = 5 * time.Second

	// Largest inbound frame we accept; a full room snapshot is a few kB.
	maxFrameSize = 1 << 20
)

type ChannelState int

const (
	ChannelIdle ChannelState = iota
	ChannelConnecting
	ChannelOpen
	ChannelClosing
	ChannelClosed
)

func (s ChannelState) String() string {
	switch s {
	case ChannelIdle:
		return "idle"
	case ChannelConnecting:
		return "connecting"
	case ChannelOpen:
		return "open"
	case ChannelClosing:
		return "closing"
	case ChannelClosed:
		return "closed"
	}
	return fmt.Sprintf("ChannelState(%d)", int(s))
}

type channelEvent string

const (
	chanConnect       channelEvent = "connect"
	chanOpened        channelEvent = "opened"
	chanFrameReceived channelEvent = "frameReceived"
	chanClose         channelEvent = "close"
	chanError         channelEvent = "error"
)

// Every legal lifecycle step. Anything missing here is refused.
var channelTransitions = map[ChannelState]map[channelEvent]ChannelState{
	ChannelIdle: {
		chanConnect: ChannelConnecting,
	},
	ChannelConnecting: {
		chanOpened: ChannelOpen,
		chanClose:  ChannelClosing,
		chanError:  ChannelClosed,
	},
	ChannelOpen: {
		chanFrameReceived: ChannelOpen,
		chanClose:         ChannelClosing,
		chanError:         ChannelClosed,
	},
	ChannelClosing: {
		chanFrameReceived: ChannelClosing,
		chanClose:         ChannelClosed,
		chanError:         ChannelClosed,
	},
	ChannelClosed: {
		chanConnect: ChannelConnecting,
	},
}

func nextChannelState(from ChannelState, ev channelEvent) (ChannelState, bool) {
	to, ok := channelTransitions[from][ev]
	return to, ok
}

// ChannelDelivery is handed to the owner for each decoded frame and for the
// open and closed lifecycle changes. Gen identifies the channel it came from.
type ChannelDelivery struct {
	Gen   uint64
	State ChannelState
	Frame Inbound
	Err   error
}

type channel struct {
	gen    uint64
	ref    SessionReference
	state  ChannelState
	conn   *websocket.Conn
	cancel context.CancelFunc

	writeMu sync.Mutex
}

// ChannelManager keeps at most one websocket open, bound to one
// (room code, player id) pair.
type ChannelManager struct {
	dialer  *websocket.Dialer
	url     string
	log     zerolog.Logger
	deliver func(ChannelDelivery)

	mu  sync.Mutex
	gen uint64
	cur *channel
}

func NewChannelManager(dialer *websocket.Dialer, wsURL string, log zerolog.Logger, deliver func(ChannelDelivery)) *ChannelManager {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	return &ChannelManager{
		dialer:  dialer,
		url:     wsURL,
		log:     log,
		deliver: deliver,
	}
}

// websocketURL maps the API base onto its /ws endpoint.
func websocketURL(base *url.URL) string {
	u := *base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	u.RawQuery = ""
	u.Fragment = ""

	return u.String()
}

// Ensure binds the manager to ref. The same pair is a no-op; any other pair
// closes the current channel and, if ref is complete, opens a new one.
func (m *ChannelManager) Ensure(ref SessionReference) {
	m.mu.Lock()
	if m.cur != nil && m.cur.ref == ref {
		m.mu.Unlock()
		return
	}

	old := m.detachLocked()

	var (
		c   *channel
		ctx context.Context
	)
	if ref.complete() {
		m.gen++

		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(context.Background())

		c = &channel{gen: m.gen, ref: ref, state: ChannelIdle, cancel: cancel}
		m.transitionLocked(c, chanConnect)
		m.cur = c
	}
	m.mu.Unlock()

	if old != nil {
		m.closeChannel(old)
	}
	if c != nil {
		m.log.Debug().Str("room", ref.RoomCode).Uint64("gen", c.gen).Msg("Opening room channel")
		go m.run(ctx, c)
	}
}

// Teardown forgets the current channel, then closes it.
func (m *ChannelManager) Teardown() {
	m.mu.Lock()
	old := m.detachLocked()
	m.mu.Unlock()

	if old != nil {
		m.closeChannel(old)
	}
}

func (m *ChannelManager) detachLocked() *channel {
	old := m.cur
	m.cur = nil
	return old
}

func (m *ChannelManager) State() ChannelState {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cur == nil {
		return ChannelIdle
	}
	return m.cur.state
}

// IsCurrent reports whether gen belongs to the channel the manager still
// holds. Deliveries from any other generation are stale.
func (m *ChannelManager) IsCurrent(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.cur != nil && m.cur.gen == gen
}

// Send writes one frame if the channel is open. Otherwise nothing is written
// or queued and ErrChannelUnavailable is returned.
func (m *ChannelManager) Send(t EventType, payload any) error {
	m.mu.Lock()
	c := m.cur
	state := ChannelIdle
	if c != nil {
		state = c.state
	}
	m.mu.Unlock()

	if state != ChannelOpen {
		m.log.Warn().Str("type", string(t)).Stringer("state", state).Msg("Dropping outbound frame, channel not open")
		return ErrChannelUnavailable
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := m.writeLocked(c, t, payload); err != nil {
		go m.fail(c, err)
		return &NetworkError{Op: "send " + string(t), Err: err}
	}

	return nil
}

func (m *ChannelManager) writeLocked(c *channel, t EventType, payload any) error {
	data, err := encodeFrame(t, payload)
	if err != nil {
		return err
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (m *ChannelManager) transitionLocked(c *channel, ev channelEvent) bool {
	next, ok := nextChannelState(c.state, ev)
	if !ok {
		m.log.Debug().Stringer("state", c.state).Str("event", string(ev)).Uint64("gen", c.gen).Msg("Ignoring channel transition")
		return false
	}
	c.state = next
	return true
}

func (m *ChannelManager) post(d ChannelDelivery) {
	if m.deliver != nil {
		m.deliver(d)
	}
}

func (m *ChannelManager) run(ctx context.Context, c *channel) {
	conn, resp, err := m.dialer.DialContext(ctx, m.url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		m.fail(c, err)
		return
	}

	// Hold the write lock across the bootstrap so no other frame can go out
	// ahead of room:join and room:sync.
	c.writeMu.Lock()

	m.mu.Lock()
	if m.cur != c || !m.transitionLocked(c, chanOpened) {
		m.mu.Unlock()
		c.writeMu.Unlock()
		_ = conn.Close()
		return
	}
	conn.SetReadLimit(maxFrameSize)
	c.conn = conn
	m.mu.Unlock()

	ref := roomRef{Code: c.ref.RoomCode, PlayerID: c.ref.PlayerID}
	err = m.writeLocked(c, EventRoomJoin, ref)
	if err == nil {
		err = m.writeLocked(c, EventRoomSync, ref)
	}
	c.writeMu.Unlock()

	if err != nil {
		m.fail(c, err)
		return
	}

	m.log.Debug().Str("room", c.ref.RoomCode).Uint64("gen", c.gen).Msg("Room channel open")
	m.post(ChannelDelivery{Gen: c.gen, State: ChannelOpen})

	m.readLoop(c)
}

func (m *ChannelManager) readLoop(c *channel) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			m.fail(c, err)
			return
		}

		m.mu.Lock()
		current := m.cur == c
		if current {
			m.transitionLocked(c, chanFrameReceived)
		}
		m.mu.Unlock()

		if !current {
			continue
		}

		frame, err := DecodeInbound(data)
		if err != nil {
			m.log.Warn().Err(err).Uint64("gen", c.gen).Msg("Dropping inbound frame")
			continue
		}

		m.post(ChannelDelivery{Gen: c.gen, State: ChannelOpen, Frame: frame})
	}
}

// fail moves c to closed after a transport error. Only the current channel
// reports the error to the owner.
func (m *ChannelManager) fail(c *channel, err error) {
	m.mu.Lock()
	if c.state == ChannelClosed {
		m.mu.Unlock()
		return
	}
	ev := chanError
	if c.state == ChannelClosing {
		ev = chanClose
	}
	m.transitionLocked(c, ev)
	current := m.cur == c
	conn := c.conn
	m.mu.Unlock()

	c.cancel()
	if conn != nil {
		_ = conn.Close()
	}

	if !current {
		return
	}

	if errors.Is(err, context.Canceled) || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		m.log.Debug().Err(err).Uint64("gen", c.gen).Msg("Room channel closed")
	} else {
		m.log.Warn().Err(err).Uint64("gen", c.gen).Msg("Room channel failed")
	}

	m.post(ChannelDelivery{Gen: c.gen, State: ChannelClosed, Err: err})
}

func (m *ChannelManager) closeChannel(c *channel) {
	m.mu.Lock()
	m.transitionLocked(c, chanClose)
	conn := c.conn
	m.mu.Unlock()

	c.cancel()

	if conn == nil {
		return
	}

	c.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()

	_ = conn.Close()
}
