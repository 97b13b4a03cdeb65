// Package signal implements core.SDK as a client of the Voice websocket
// signaling protocol, publishing media over a pion peer connection.
package signal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dkeye/meet/internal/adapters/events"
	"github.com/dkeye/meet/internal/core"
	"github.com/dkeye/meet/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure   = errors.New("backpressure")
	ErrConnClosed     = errors.New("connection closed")
	ErrAlreadyJoined  = errors.New("already joined")
	ErrNotJoined      = core.ErrNotJoined
	ErrJoinRejected   = errors.New("join rejected")
	ErrUnexpectedDrop = errors.New("signaling connection dropped")
)

type Options struct {
	URL         string
	DisplayName string
	PingPeriod  time.Duration
	ReadLimit   int64
	ICEServers  []string
	Dialer      *websocket.Dialer
}

// Client is a single meeting connection. One Join at a time; Leave makes it
// reusable.
type Client struct {
	*events.Dispatcher

	opts Options

	mu      sync.Mutex
	conn    *wsSignalConn
	cancel  context.CancelFunc
	pending chan joinResult
	self    domain.UserID
	members map[domain.UserID]domain.RemoteUser
	track   *LocalTrack
	media   core.MediaConnection
}

var _ core.SDK = (*Client)(nil)

func NewClient(opts Options) *Client {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = 54 * time.Second
	}
	return &Client{
		Dispatcher: events.NewDispatcher(),
		opts:       opts,
	}
}

type wsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame
	// done is closed when the write pump exits.
	done chan struct{}

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(ws *websocket.Conn) *wsSignalConn {
	return &wsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 32),
		done: make(chan struct{}),
	}
}

var _ core.SignalConnection = (*wsSignalConn)(nil)

func (c *wsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

// drain stops accepting frames; the write pump flushes what is queued,
// sends a close frame and exits.
func (c *wsSignalConn) drain() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *wsSignalConn) Close() {
	c.drain()
	_ = c.conn.Close()
}

// Close leaves the current channel, if any, and stops event delivery.
func (cl *Client) Close() {
	if err := cl.Leave(context.Background()); err != nil && !errors.Is(err, ErrNotJoined) {
		log.Warn().Err(err).Str("module", "signal").Msg("leave on close")
	}
	cl.Dispatcher.Close()
}
