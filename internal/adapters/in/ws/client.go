package ws

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/services"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// Ping interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxFrameSize   = 4096
	sendBufferSize = 64
)

// ErrClientGone is returned by Send when the client's outbound buffer is
// full or the connection is already closed. The subscription manager treats
// it as a transient delivery failure.
var ErrClientGone = errors.New("websocket client gone")

// client is one upgraded websocket connection. It implements
// services.Connection: the subscription manager hands it event payloads via
// Send and tears it down via Close.
type client struct {
	id      string
	conn    *websocket.Conn
	manager *services.SubscriptionManager
	logger  *slog.Logger

	send      chan []byte
	closeOnce sync.Once
	closed    chan struct{}
}

func newClient(conn *websocket.Conn, manager *services.SubscriptionManager, logger *slog.Logger) *client {
	id := kernel.NewUUID().String()
	return &client{
		id:      id,
		conn:    conn,
		manager: manager,
		logger:  logger.With("connection_id", id),
		send:    make(chan []byte, sendBufferSize),
		closed:  make(chan struct{}),
	}
}

// ID uniquely identifies the connection for subscription bookkeeping.
func (c *client) ID() string {
	return c.id
}

// Send enqueues one event payload for the write pump. It never blocks: a
// full buffer means the peer is not keeping up, and the caller's retry
// policy decides whether the connection survives.
func (c *client) Send(payload []byte) error {
	select {
	case <-c.closed:
		return ErrClientGone
	default:
	}

	select {
	case c.send <- payload:
		return nil
	default:
		return ErrClientGone
	}
}

// Close tears the connection down. Idempotent.
func (c *client) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.conn.Close()
	})
	return nil
}

// readPump reads control frames from the peer until the connection dies,
// then releases every subscription the connection held.
func (c *client) readPump() {
	defer func() {
		c.manager.Drop(c)
		_ = c.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		c.handleFrame(message)
	}
}

// writePump moves enqueued event payloads onto the wire and keeps the
// connection alive with periodic pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case <-c.closed:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)

			// Flush whatever else is already queued into the same frame.
			n := len(c.send)
			for i := 0; i < n; i++ {
				_, _ = w.Write([]byte{'\n'})
				_, _ = w.Write(<-c.send)
			}

			if err = w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		}
	}
}
