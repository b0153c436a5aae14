package websocket

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Client adapts a gorilla connection to the hub's Transport. Outbound frames
// go through a bounded send buffer drained by writePump; inbound frames are
// read by readPump and handed to the hub.
type Client struct {
	connID string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	ping   chan struct{}
	logger *slog.Logger

	writeWait time.Duration
	readWait  time.Duration

	// Connection state management
	ctx         context.Context
	cancel      context.CancelFunc
	closed      int32 // atomic flag to track if client is closed
	closeCode   int
	closeReason string
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := hub.Config()

	bufferSize := cfg.SendBufferSize
	if bufferSize <= 0 {
		bufferSize = 256
	}
	writeWait := cfg.WriteWait
	if writeWait <= 0 {
		writeWait = 10 * time.Second
	}

	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, bufferSize),
		ping:      make(chan struct{}, 1),
		logger:    hub.logger,
		writeWait: writeWait,
		// Backstop for peers that vanish without the heartbeat noticing,
		// e.g. while the monitor is stopped during shutdown.
		readWait:  2 * (cfg.Heartbeat.PingInterval + cfg.Heartbeat.PongTimeout),
		ctx:       ctx,
		cancel:    cancel,
		closeCode: websocket.CloseNormalClosure,
	}
}

func (c *Client) isClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

// Send enqueues data without blocking.
func (c *Client) Send(data []byte) error {
	if c.isClosed() {
		return ErrClientDisconnected
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Ping asks writePump to emit a protocol ping. A ping already pending is enough.
func (c *Client) Ping() error {
	if c.isClosed() {
		return ErrClientDisconnected
	}
	select {
	case c.ping <- struct{}{}:
	default:
	}
	return nil
}

// Close records the close frame and stops the pumps. It never blocks on the
// network; writePump sends the close frame on its way out.
func (c *Client) Close(code int, reason string) error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	c.closeCode = code
	c.closeReason = reason
	c.cancel()
	return nil
}

func (c *Client) start() {
	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
			c.cancel()
		}
		c.hub.Disconnect(c.connID)
	}()

	if limit := c.hub.Config().MaxMessageSize; limit > 0 {
		c.conn.SetReadLimit(limit)
	}
	c.extendReadDeadline()
	c.conn.SetPongHandler(func(string) error {
		c.hub.Heartbeat().RecordPong(c.connID)
		c.extendReadDeadline()
		return nil
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) && !c.isClosed() {
				c.logger.Warn("WebSocket read error", "connID", c.connID, "error", err)
			} else {
				c.logger.Debug("WebSocket connection closed", "connID", c.connID, "error", err)
			}
			return
		}
		c.extendReadDeadline()

		if messageType != websocket.TextMessage {
			c.logger.Debug("Ignoring non-text frame", "connID", c.connID, "type", messageType)
			continue
		}
		c.hub.HandleMessage(c.connID, data)
	}
}

func (c *Client) writePump() {
	defer func() {
		if err := c.conn.Close(); err != nil {
			c.logger.Debug("Error closing connection", "connID", c.connID, "error", err)
		}
	}()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			// One JSON document per text frame; frames are never coalesced.
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("Error writing message", "connID", c.connID, "error", err)
				c.abort()
				return
			}

		case <-c.ping:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeWait)); err != nil {
				c.logger.Debug("Error sending ping", "connID", c.connID, "error", err)
				c.abort()
				return
			}

		case <-c.ctx.Done():
			msg := websocket.FormatCloseMessage(c.closeCode, c.closeReason)
			if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeWait)); err != nil {
				c.logger.Debug("Error sending close frame", "connID", c.connID, "error", err)
			}
			return
		}
	}
}

// abort marks the client closed after a write failure; readPump unblocks once
// writePump closes the socket.
func (c *Client) abort() {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		c.cancel()
	}
}

func (c *Client) extendReadDeadline() {
	if c.readWait > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.readWait))
	}
}
