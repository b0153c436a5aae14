package subscriber

import (
	"context"
	"errors"
	"net/http"

	"github.com/coder/websocket"
)

// CoderTransport dials with github.com/coder/websocket.
type CoderTransport struct {
	HTTPClient *http.Client
	// ReadLimit caps inbound frame size; zero keeps the library default.
	ReadLimit int64
}

func NewCoderTransport() *CoderTransport {
	return &CoderTransport{}
}

func (t *CoderTransport) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPClient: t.HTTPClient,
		HTTPHeader: header,
	})
	if err != nil {
		return nil, &CloseError{Code: CloseAbnormal, Err: err}
	}
	if t.ReadLimit > 0 {
		conn.SetReadLimit(t.ReadLimit)
	}
	return &coderConn{conn: conn}, nil
}

type coderConn struct {
	conn *websocket.Conn
}

func (c *coderConn) Read(ctx context.Context) ([]byte, error) {
	for {
		messageType, data, err := c.conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != -1 {
				var reason string
				var ce websocket.CloseError
				if errors.As(err, &ce) {
					reason = ce.Reason
				}
				return nil, &CloseError{Code: int(status), Reason: reason, Err: err}
			}
			return nil, &CloseError{Code: CloseAbnormal, Err: err}
		}
		if messageType == websocket.MessageText {
			return data, nil
		}
	}
}

func (c *coderConn) Write(ctx context.Context, data []byte) error {
	return c.conn.Write(ctx, websocket.MessageText, data)
}

// Close performs the closing handshake; the library bounds how long it waits
// for the peer's close frame.
func (c *coderConn) Close(code int, reason string) error {
	return c.conn.Close(websocket.StatusCode(code), reason)
}
