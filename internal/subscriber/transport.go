package subscriber

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// WebSocket close codes the subscriber cares about.
const (
	CloseNormal   = 1000
	CloseAbnormal = 1006
)

// Transport opens connections. The subscriber's state machine is the same
// whichever library sits behind it.
type Transport interface {
	Dial(ctx context.Context, url string, header http.Header) (Conn, error)
}

// Conn is one open connection. Read blocks until a text frame arrives or the
// connection ends; it must return a *CloseError in the latter case. Write and
// Close are never called concurrently with each other.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close(code int, reason string) error
}

// CloseError reports how a connection ended. Code is CloseAbnormal when no
// close frame was received.
type CloseError struct {
	Code   int
	Reason string
	Err    error
}

func (e *CloseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("websocket closed (%d %s): %v", e.Code, e.Reason, e.Err)
	}
	return fmt.Sprintf("websocket closed (%d %s)", e.Code, e.Reason)
}

func (e *CloseError) Unwrap() error {
	return e.Err
}

// CloseCode extracts the close code from err, defaulting to CloseAbnormal.
func CloseCode(err error) int {
	var ce *CloseError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return CloseAbnormal
}
