package subscriber

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// GorillaTransport dials with github.com/gorilla/websocket.
type GorillaTransport struct {
	Dialer *websocket.Dialer
	// ReadLimit caps inbound frame size; zero means no limit.
	ReadLimit int64
}

func NewGorillaTransport() *GorillaTransport {
	return &GorillaTransport{Dialer: websocket.DefaultDialer}
}

func (t *GorillaTransport) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, &CloseError{Code: CloseAbnormal, Err: err}
	}
	if t.ReadLimit > 0 {
		conn.SetReadLimit(t.ReadLimit)
	}
	return &gorillaConn{conn: conn}, nil
}

type gorillaConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// Read ignores ctx; closing the connection is what unblocks it.
func (c *gorillaConn) Read(ctx context.Context) ([]byte, error) {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				return nil, &CloseError{Code: ce.Code, Reason: ce.Text, Err: err}
			}
			return nil, &CloseError{Code: CloseAbnormal, Err: err}
		}
		if messageType == websocket.TextMessage {
			return data, nil
		}
	}
}

func (c *gorillaConn) Write(ctx context.Context, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetWriteDeadline(deadline)
	} else {
		c.conn.SetWriteDeadline(time.Time{})
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *gorillaConn) Close(code int, reason string) error {
	c.writeMu.Lock()
	msg := websocket.FormatCloseMessage(code, reason)
	err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	c.writeMu.Unlock()

	if cerr := c.conn.Close(); err == nil {
		err = cerr
	}
	return err
}
