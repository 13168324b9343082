// Package client implements the session agent side of the room protocol:
// a reconnect loop with bounded exponential backoff, a local cache of room
// state, and helpers for the outbound events. There is no session
// resumption; every reconnect re-issues the join handshake and the server
// treats it as a fresh join.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
)

var ErrNotConnected = errors.New("not connected")

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outFrame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type Config struct {
	URL      string
	RoomId   string
	Username string
	PeerId   string

	MaxAttempts    uint64
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	Logger *slog.Logger
}

type Client struct {
	cfg    Config
	logger *slog.Logger
	dialer *websocket.Dialer
	events chan Event

	mu    sync.Mutex
	conn  *websocket.Conn
	state State
}

func New(cfg *Config) *Client {
	c := Client{
		cfg:    *cfg,
		logger: cfg.Logger,
		dialer: websocket.DefaultDialer,
		events: make(chan Event, 64),
	}

	if c.cfg.MaxAttempts == 0 {
		c.cfg.MaxAttempts = 5
	}
	if c.cfg.InitialBackoff == 0 {
		c.cfg.InitialBackoff = 500 * time.Millisecond
	}
	if c.cfg.MaxBackoff == 0 {
		c.cfg.MaxBackoff = 10 * time.Second
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	return &c
}

func (c *Client) Events() <-chan Event {
	return c.events
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := c.state
	state.Participants = append([]Participant(nil), c.state.Participants...)
	state.Messages = append([]Message(nil), c.state.Messages...)

	return state
}

// Run connects and serves events until the context is canceled or the
// reconnect attempt budget is exhausted.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := c.connect(ctx); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}

		err := c.readLoop()
		c.closeConn()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Debug("connection lost, reconnecting", "error", err)
	}
}

// connect dials and re-issues the join handshake, retrying with exponential
// backoff up to MaxAttempts total attempts per outage.
func (c *Client) connect(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialBackoff
	b.MaxInterval = c.cfg.MaxBackoff
	b.MaxElapsedTime = 0

	operation := func() error {
		conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
		if err != nil {
			c.logger.Debug("dial failed", "error", err)
			return err
		}

		if err := conn.WriteJSON(&outFrame{
			Type: "join_room",
			Payload: map[string]string{
				"room_id":  c.cfg.RoomId,
				"username": c.cfg.Username,
				"peer_id":  c.cfg.PeerId,
			},
		}); err != nil {
			conn.Close()
			return err
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()

		return nil
	}

	return backoff.Retry(operation, backoff.WithMaxRetries(backoff.WithContext(b, ctx), c.cfg.MaxAttempts-1))
}

func (c *Client) readLoop() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	for {
		var msg frame
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		c.handle(&msg)
	}
}

func (c *Client) handle(msg *frame) {
	switch msg.Type {
	case "join_room_success":
		var payload struct {
			Room         Room          `json:"room"`
			Participants []Participant `json:"participants"`
			Messages     []Message     `json:"messages"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			c.logger.Debug("malformed join_room_success", "error", err)
			return
		}
		c.mu.Lock()
		c.state.Room = payload.Room
		c.state.Participants = payload.Participants
		c.state.Messages = payload.Messages
		c.state.Joined = true
		c.mu.Unlock()
		c.emit(Event{Type: msg.Type})

	case "chat_message":
		var message Message
		if err := json.Unmarshal(msg.Payload, &message); err != nil {
			c.logger.Debug("malformed chat_message", "error", err)
			return
		}
		c.mu.Lock()
		c.state.Messages = append(c.state.Messages, message)
		c.mu.Unlock()
		c.emit(Event{Type: msg.Type, Message: &message})

	case "video_state":
		var playback Playback
		if err := json.Unmarshal(msg.Payload, &playback); err != nil {
			c.logger.Debug("malformed video_state", "error", err)
			return
		}
		c.mu.Lock()
		c.state.Playback = playback
		c.mu.Unlock()
		c.emit(Event{Type: msg.Type, Playback: &playback})

	case "new_peer":
		var peer Peer
		if err := json.Unmarshal(msg.Payload, &peer); err != nil {
			c.logger.Debug("malformed new_peer", "error", err)
			return
		}
		c.emit(Event{Type: msg.Type, Peer: &peer})

	case "peer_left":
		var payload struct {
			Username string `json:"username"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			c.logger.Debug("malformed peer_left", "error", err)
			return
		}
		c.mu.Lock()
		for i, participant := range c.state.Participants {
			if participant.Username == payload.Username {
				c.state.Participants = append(c.state.Participants[:i], c.state.Participants[i+1:]...)
				break
			}
		}
		c.mu.Unlock()
		c.emit(Event{Type: msg.Type, Username: payload.Username})

	case "error":
		var payload struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			c.logger.Debug("malformed error", "error", err)
			return
		}
		c.emit(Event{Type: msg.Type, Error: payload.Message})
	}
}

func (c *Client) emit(event Event) {
	select {
	case c.events <- event:
	default:
		c.logger.Debug("event buffer full, dropping", "type", event.Type)
	}
}

func (c *Client) SendChat(content string) error {
	return c.write(&outFrame{
		Type: "chat_message",
		Payload: map[string]string{
			"room_id":  c.cfg.RoomId,
			"username": c.cfg.Username,
			"content":  content,
		},
	})
}

func (c *Client) SetPlayback(isPlaying bool, currentTime int) error {
	return c.write(&outFrame{
		Type: "video_state",
		Payload: map[string]any{
			"room_id":      c.cfg.RoomId,
			"is_playing":   isPlaying,
			"current_time": currentTime,
		},
	})
}

func (c *Client) Leave() error {
	return c.write(&outFrame{
		Type: "leave_room",
		Payload: map[string]string{
			"room_id":  c.cfg.RoomId,
			"username": c.cfg.Username,
		},
	})
}

func (c *Client) write(msg *outFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}

	return c.conn.WriteJSON(msg)
}

func (c *Client) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}
