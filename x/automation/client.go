package automation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Config tunes the automation WebSocket client.
type Config struct {
	// WebSocket endpoint of the automation backend.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Reconnect backoff: exponential from Base up to Cap, at most
	// MaxAttempts tries before giving up.
	ReconnectBase time.Duration `mapstructure:"reconnect_base" yaml:"reconnect_base"`
	ReconnectCap  time.Duration `mapstructure:"reconnect_cap"  yaml:"reconnect_cap"`
	MaxAttempts   int           `mapstructure:"max_attempts"   yaml:"max_attempts"`

	// Recoverable error banners clear after this long.
	ErrorClearAfter time.Duration `mapstructure:"error_clear_after" yaml:"error_clear_after"`
}

func DefaultConfig() Config {
	return Config{
		ReconnectBase:   time.Second,
		ReconnectCap:    10 * time.Second,
		MaxAttempts:     5,
		ErrorClearAfter: 5 * time.Second,
	}
}

// SessionStatus is the client-observable automation session state.
type SessionStatus string

const (
	StatusDisconnected SessionStatus = "disconnected"
	StatusConnecting   SessionStatus = "connecting"
	StatusConnected    SessionStatus = "connected"
	StatusRunning      SessionStatus = "running"
	StatusError        SessionStatus = "error"
	StatusDone         SessionStatus = "done"
)

// ErrReconnectExhausted indicates the client gave up reconnecting.
var ErrReconnectExhausted = errors.New("automation: reconnect attempts exhausted")

// ErrNotConnected indicates a send on a closed session.
var ErrNotConnected = errors.New("automation: not connected")

// Client maintains an automation session over WebSocket with automatic
// reconnection. Incoming messages fan out on Messages(); session state
// is tracked internally and queryable via Status().
type Client struct {
	cfg    Config
	log    zerolog.Logger
	dialer *websocket.Dialer
	now    func() time.Time

	sessionID string
	messages  chan Message

	mu         sync.Mutex
	conn       *websocket.Conn
	status     SessionStatus
	lastError  string
	errorTimer *time.Timer
}

func NewClient(cfg Config, log zerolog.Logger) *Client {
	return &Client{
		cfg:       cfg,
		log:       log.With().Str("component", "automation-client").Logger(),
		dialer:    websocket.DefaultDialer,
		now:       time.Now,
		sessionID: uuid.NewString(),
		messages:  make(chan Message, 64),
		status:    StatusDisconnected,
	}
}

// SessionID returns the id attached to outgoing chat messages.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Messages returns the stream of server messages. Closed when Run exits.
func (c *Client) Messages() <-chan Message {
	return c.messages
}

// Status returns the current session status and the visible error text,
// if any.
func (c *Client) Status() (SessionStatus, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status, c.lastError
}

// Run connects and pumps messages until the context is canceled or the
// reconnect budget is exhausted. Backoff is exponential: base doubled
// per attempt, capped, with a bounded number of attempts.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.messages)
	defer c.setStatus(StatusDisconnected)

	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.setStatus(StatusConnecting)
		conn, _, err := c.dialer.DialContext(ctx, c.cfg.Endpoint, nil)
		if err != nil {
			attempt++
			if attempt >= c.cfg.MaxAttempts {
				c.log.Error().Err(err).Int("attempts", attempt).Msg("giving up on automation backend")
				return ErrReconnectExhausted
			}
			delay := c.backoff(attempt)
			c.log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("automation connect failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}

		attempt = 0
		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		c.setStatus(StatusConnected)
		c.log.Info().Str("endpoint", c.cfg.Endpoint).Str("session_id", c.sessionID).Msg("automation session connected")

		err = c.readPump(ctx, conn)
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn().Err(err).Msg("automation connection dropped, reconnecting")
	}
}

// SendChat sends a chat_message with the session id attached.
func (c *Client) SendChat(message string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	msg := Message{
		Type:      TypeChatMessage,
		Message:   message,
		SessionID: c.sessionID,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal chat message: %w", err)
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *Client) readPump(ctx context.Context, conn *websocket.Conn) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			c.log.Warn().Err(err).Msg("dropping malformed automation message")
			continue
		}

		c.handle(msg)

		select {
		case c.messages <- msg:
		default:
			c.log.Warn().Str("type", string(msg.Type)).Msg("message dropped, slow consumer")
		}
	}
}

// handle updates session state from a server message.
func (c *Client) handle(msg Message) {
	switch msg.Type {
	case TypeConnection:
		c.setStatus(StatusConnected)
	case TypeStepStart, TypeStepComplete, TypeStatusUpdate:
		c.setStatus(StatusRunning)
	case TypeTaskComplete:
		c.setStatus(StatusDone)
	case TypeError:
		c.setError(msg.Message, msg.Recoverable)
	}
}

func (c *Client) setStatus(status SessionStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
	if status != StatusError {
		c.lastError = ""
	}
}

// setError marks the session errored. Recoverable errors clear
// automatically after the configured delay.
func (c *Client) setError(message string, recoverable bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status = StatusError
	c.lastError = message
	if c.errorTimer != nil {
		c.errorTimer.Stop()
		c.errorTimer = nil
	}
	if recoverable {
		c.errorTimer = time.AfterFunc(c.cfg.ErrorClearAfter, func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.status == StatusError && c.lastError == message {
				c.status = StatusConnected
				c.lastError = ""
			}
		})
	}

	c.log.Warn().Str("error", message).Bool("recoverable", recoverable).Msg("automation error")
}

func (c *Client) backoff(attempt int) time.Duration {
	delay := c.cfg.ReconnectBase << (attempt - 1)
	if delay > c.cfg.ReconnectCap || delay <= 0 {
		delay = c.cfg.ReconnectCap
	}
	return delay
}
