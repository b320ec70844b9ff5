// Package bridge talks to the chat platform through a websocket RPC bridge.
// Requests are correlated to responses by id; reaction events arrive on the
// same connection.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eclassroom/eclass/internal/platform/timeouts"
	"github.com/eclassroom/eclass/internal/services/eclass/domain"
	"github.com/gorilla/websocket"
)

const (
	writeBuffer    = 64
	reactionBuffer = 64
	writeWait      = 5 * time.Second
)

var (
	// ErrClosed indicates the bridge connection is gone.
	ErrClosed = errors.New("bridge connection closed")
	// errNotFound is the bridge's not_found code before per-call mapping.
	errNotFound = errors.New("not found")
)

// RemoteError is a failure reported by the bridge.
type RemoteError struct {
	Op      string
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("bridge %s: %s: %s", e.Op, e.Code, e.Message)
}

// Unwrap exposes not_found so callers can map it to a domain sentinel.
func (e *RemoteError) Unwrap() error {
	if e.Code == codeNotFound {
		return errNotFound
	}
	return nil
}

// Client is a connected bridge session. It implements domain.Gateway and
// domain.Platform.
type Client struct {
	conn      *websocket.Conn
	writeCh   chan []byte
	reactions chan domain.Reaction
	callTO    time.Duration

	nextID  atomic.Uint64
	mu      sync.Mutex
	pending map[uint64]chan frame

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

var (
	_ domain.Gateway  = (*Client)(nil)
	_ domain.Platform = (*Client)(nil)
)

// Dial connects to the bridge at url and authenticates with token.
func Dial(ctx context.Context, url, token string) (*Client, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("bridge url is required")
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeouts.GatewayDial,
	}
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, resp, err := dialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial bridge: %w", err)
	}
	return newClient(conn, timeouts.GatewayCall), nil
}

func newClient(conn *websocket.Conn, callTimeout time.Duration) *Client {
	c := &Client{
		conn:      conn,
		writeCh:   make(chan []byte, writeBuffer),
		reactions: make(chan domain.Reaction, reactionBuffer),
		callTO:    callTimeout,
		pending:   make(map[uint64]chan frame),
		done:      make(chan struct{}),
	}
	go c.writeLoop()
	go c.readLoop()
	return c
}

// Reactions streams reaction events pushed by the bridge. The channel is
// closed when the connection ends.
func (c *Client) Reactions() <-chan domain.Reaction {
	return c.reactions
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the reason the connection ended, if it has.
func (c *Client) Err() error {
	select {
	case <-c.done:
		return c.closeErr
	default:
		return nil
	}
}

// Close ends the session.
func (c *Client) Close() error {
	c.shutdown(ErrClosed)
	return nil
}

func (c *Client) shutdown(reason error) {
	c.closeOnce.Do(func() {
		c.closeErr = reason
		close(c.done)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = c.conn.Close()

		c.mu.Lock()
		for id, ch := range c.pending {
			close(ch)
			delete(c.pending, id)
		}
		c.mu.Unlock()
	})
}

// writeLoop is the only goroutine writing to the socket.
func (c *Client) writeLoop() {
	for {
		select {
		case data := <-c.writeCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.shutdown(fmt.Errorf("set write deadline: %w", err))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.shutdown(fmt.Errorf("write: %w", err))
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) readLoop() {
	defer close(c.reactions)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.shutdown(ErrClosed)
			} else {
				c.shutdown(fmt.Errorf("read: %w", err))
			}
			return
		}
		var in frame
		if err := json.Unmarshal(data, &in); err != nil {
			log.Printf("[e-class:bridge] warn: drop malformed frame: %v", err)
			continue
		}
		if in.Event != "" {
			c.dispatchEvent(in)
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[in.ID]
		delete(c.pending, in.ID)
		c.mu.Unlock()
		if !ok {
			log.Printf("[e-class:bridge] warn: response for unknown request %d", in.ID)
			continue
		}
		ch <- in
	}
}

func (c *Client) dispatchEvent(in frame) {
	var added bool
	switch in.Event {
	case eventReactionAdd:
		added = true
	case eventReactionRemove:
	default:
		return
	}
	var event reactionEvent
	if err := json.Unmarshal(in.Payload, &event); err != nil {
		log.Printf("[e-class:bridge] warn: drop malformed %s event: %v", in.Event, err)
		return
	}
	reaction := domain.Reaction{
		MessageID: event.MessageID,
		UserID:    event.UserID,
		Emoji:     event.Emoji,
		Bot:       event.Bot,
		Added:     added,
	}
	select {
	case c.reactions <- reaction:
	default:
		log.Printf("[e-class:bridge] warn: reaction buffer full, dropping %s on %s", in.Event, event.MessageID)
	}
}

// call sends one request and decodes its result into out when non-nil.
func (c *Client) call(ctx context.Context, op string, payload, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, c.callTO)
	defer cancel()

	id := c.nextID.Add(1)
	data, err := json.Marshal(request{ID: id, Op: op, Payload: payload})
	if err != nil {
		return fmt.Errorf("encode %s: %w", op, err)
	}

	ch := make(chan frame, 1)
	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		return c.closeErr
	default:
	}
	c.pending[id] = ch
	c.mu.Unlock()
	forget := func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}

	select {
	case c.writeCh <- data:
	case <-ctx.Done():
		forget()
		return fmt.Errorf("bridge %s: %w", op, ctx.Err())
	case <-c.done:
		return c.closeErr
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return c.closeErr
		}
		if !resp.OK {
			remote := &RemoteError{Op: op, Code: "unknown"}
			if resp.Error != nil {
				remote.Code = resp.Error.Code
				remote.Message = resp.Error.Message
			}
			return remote
		}
		if out != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, out); err != nil {
				return fmt.Errorf("decode %s result: %w", op, err)
			}
		}
		return nil
	case <-ctx.Done():
		forget()
		return fmt.Errorf("bridge %s: %w", op, ctx.Err())
	case <-c.done:
		return c.closeErr
	}
}
