package gateway

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mdsim/ratedrps-go/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 16
)

// ErrClientClosed is returned by Send after the connection has shut down
var ErrClientClosed = errors.New("client connection closed")

// client owns one websocket connection. All writes go through the buffered
// send channel so concurrent senders (lobby broadcasts, session resolution)
// never interleave frames on the wire.
type client struct {
	conn   *websocket.Conn
	logger *slog.Logger

	send      chan protocol.Envelope
	closed    chan struct{}
	closeOnce sync.Once
}

var _ protocol.Sender = (*client)(nil)

func newClient(conn *websocket.Conn, logger *slog.Logger) *client {
	return &client{
		conn:   conn,
		logger: logger,
		send:   make(chan protocol.Envelope, sendBufferSize),
		closed: make(chan struct{}),
	}
}

// Send queues an envelope for delivery. Fails when the connection is closed
// or the client is too slow to drain its buffer.
func (c *client) Send(env protocol.Envelope) error {
	select {
	case <-c.closed:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- env:
		return nil
	case <-c.closed:
		return ErrClientClosed
	case <-time.After(writeWait):
		return errors.New("send buffer full")
	}
}

// writePump serializes all outbound frames and keeps the connection alive
// with periodic pings. Runs until the connection closes.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case env := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// readLoop yields inbound envelopes until the connection drops
func (c *client) readLoop(handle func(env protocol.Envelope)) {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var env protocol.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("unexpected websocket close", slog.Any("error", err))
			}
			return
		}
		handle(env)
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.conn.Close()
	})
}
