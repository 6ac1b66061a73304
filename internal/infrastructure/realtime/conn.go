package realtime

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pawhaus/boarding-api/internal/core/domain"
)

// ErrConnClosed is returned by Send once a connection has left the Open state.
var ErrConnClosed = errors.New("realtime: connection closed")

// Conn is a registry handle. Send must be safe for concurrent use.
type Conn interface {
	ID() string
	Identity() domain.Identity
	Send(ctx context.Context, msg []byte) error
	Close(reason string)
}

// State is the lifecycle of a socket connection:
//
//	Connecting → Open → (Closing | Failed) → Closed
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// WSConn adapts a coder/websocket connection to Conn.
type WSConn struct {
	id           string
	ws           *websocket.Conn
	identity     domain.Identity
	writeTimeout time.Duration
	state        atomic.Int32
	log          zerolog.Logger
}

// NewWSConn wraps an accepted socket and moves it to Open.
func NewWSConn(ws *websocket.Conn, identity domain.Identity, writeTimeout time.Duration, log zerolog.Logger) *WSConn {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	id := uuid.NewString()
	c := &WSConn{
		id:           id,
		ws:           ws,
		identity:     identity,
		writeTimeout: writeTimeout,
		log:          log.With().Str("conn_id", id).Int64("identity_id", identity.ID).Logger(),
	}
	c.state.Store(int32(StateConnecting))
	c.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen))
	return c
}

func (c *WSConn) ID() string { return c.id }
func (c *WSConn) Identity() domain.Identity { return c.identity }
func (c *WSConn) State() State { return State(c.state.Load()) }

// Send writes one text frame. A write error moves the connection to Failed.
func (c *WSConn) Send(ctx context.Context, msg []byte) error {
	if c.State() != StateOpen {
		return ErrConnClosed
	}
	ctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()

	if err := c.ws.Write(ctx, websocket.MessageText, msg); err != nil {
		c.state.CompareAndSwap(int32(StateOpen), int32(StateFailed))
		return err
	}
	return nil
}

// Close ends the connection. A failed connection is torn down without a
// close handshake.
func (c *WSConn) Close(reason string) {
	if c.state.CompareAndSwap(int32(StateOpen), int32(StateClosing)) {
		_ = c.ws.Close(websocket.StatusNormalClosure, reason)
		c.state.Store(int32(StateClosed))
		return
	}
	switch State(c.state.Swap(int32(StateClosed))) {
	case StateClosing, StateFailed:
		_ = c.ws.CloseNow()
	}
}

// ReadLoop consumes inbound frames until the peer goes away or ctx ends.
// Inbound payloads carry no meaning and are only logged.
func (c *WSConn) ReadLoop(ctx context.Context) error {
	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				c.state.CompareAndSwap(int32(StateOpen), int32(StateClosing))
			}
			return err
		}
		c.log.Debug().Int("type", int(typ)).Int("bytes", len(data)).Msg("inbound message ignored")
	}
}

// KeepAlive pings the peer every interval. A failed ping marks the
// connection Failed and returns, which lets the caller evict it.
func (c *WSConn) KeepAlive(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			pingCtx, cancel := context.WithTimeout(ctx, c.writeTimeout)
			err := c.ws.Ping(pingCtx)
			cancel()
			if err != nil {
				c.state.CompareAndSwap(int32(StateOpen), int32(StateFailed))
				return err
			}
		}
	}
}
