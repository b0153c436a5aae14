package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"realtime-service/internal/backoff"

	"github.com/stretchr/testify/require"
)

// fakeTransport hands out fakeConns and can be told to fail dials.
type fakeTransport struct {
	mu       sync.Mutex
	dials    int
	failing  bool
	accepted chan *fakeConn
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{accepted: make(chan *fakeConn, 16)}
}

func (f *fakeTransport) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	f.mu.Lock()
	f.dials++
	failing := f.failing
	f.mu.Unlock()

	if failing {
		return nil, &CloseError{Code: CloseAbnormal, Err: errors.New("connection refused")}
	}
	conn := &fakeConn{
		inbound: make(chan []byte, 64),
		done:    make(chan struct{}),
		written: make(chan map[string]any, 64),
	}
	f.accepted <- conn
	return conn, nil
}

func (f *fakeTransport) setFailing(failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = failing
}

func (f *fakeTransport) dialCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dials
}

// accept waits for the next dial and completes the server handshake.
func (f *fakeTransport) accept(t *testing.T, connID string) *fakeConn {
	t.Helper()
	select {
	case conn := <-f.accepted:
		conn.push(t, map[string]any{"type": "connected", "connectionId": connID, "timestamp": 1})
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("no dial")
		return nil
	}
}

func (f *fakeTransport) assertNoDial(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case <-f.accepted:
		t.Fatal("unexpected dial")
	case <-time.After(wait):
	}
}

type fakeConn struct {
	inbound chan []byte
	written chan map[string]any

	mu          sync.Mutex
	done        chan struct{}
	closed      bool
	closeCode   int
	remoteClose *CloseError
}

func (c *fakeConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-c.inbound:
		return data, nil
	case <-c.done:
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.remoteClose != nil {
			return nil, c.remoteClose
		}
		return nil, &CloseError{Code: CloseAbnormal, Err: io.EOF}
	}
}

func (c *fakeConn) Write(ctx context.Context, data []byte) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return errors.New("write on closed connection")
	}
	var msg map[string]any
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	c.written <- msg
	return nil
}

func (c *fakeConn) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.closeCode = code
	close(c.done)
	return nil
}

// kill simulates the server ending the connection with code.
func (c *fakeConn) kill(code int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.remoteClose = &CloseError{Code: code}
	close(c.done)
}

func (c *fakeConn) localCloseCode() (bool, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed && c.remoteClose == nil, c.closeCode
}

func (c *fakeConn) push(t *testing.T, msg map[string]any) {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	c.inbound <- data
}

// expect waits for the next written message and checks its type.
func (c *fakeConn) expect(t *testing.T, msgType string) map[string]any {
	t.Helper()
	select {
	case msg := <-c.written:
		require.Equal(t, msgType, msg["type"], "unexpected message %v", msg)
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %q", msgType)
		return nil
	}
}

func (c *fakeConn) assertNothingWritten(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case msg := <-c.written:
		t.Fatalf("unexpected message %v", msg)
	case <-time.After(wait):
	}
}

// authenticate plays the server side of a successful auth for userID.
func (c *fakeConn) authenticate(t *testing.T, userID string) {
	t.Helper()
	msg := c.expect(t, "auth")
	require.Equal(t, userID, msg["userId"])
	c.push(t, map[string]any{"type": "auth_success", "userId": userID, "timestamp": 1})
}

func testConfig(transport Transport) Config {
	cfg := DefaultConfig("ws://realtime.test/api/v1/ws")
	cfg.Transport = transport
	cfg.Backoff = backoff.Policy{
		Base:        5 * time.Millisecond,
		Cap:         20 * time.Millisecond,
		MaxAttempts: 5,
		Cooldown:    50 * time.Millisecond,
	}
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return cfg
}

func newTestSubscriber(t *testing.T, transport Transport) *Subscriber {
	t.Helper()
	sub, err := New(testConfig(transport))
	require.NoError(t, err)
	t.Cleanup(func() { sub.Stop() })
	return sub
}

func waitForState(t *testing.T, sub *Subscriber, state State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return sub.State() == state
	}, 2*time.Second, 5*time.Millisecond, "want state %s", state)
}
