package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// mockTransport records everything the hub writes to a connection.
type mockTransport struct {
	mu          sync.Mutex
	messages    [][]byte
	pings       int
	closed      bool
	closeCode   int
	closeReason string
	full        bool
}

func (m *mockTransport) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClientDisconnected
	}
	if m.full {
		return ErrSendBufferFull
	}
	m.messages = append(m.messages, data)
	return nil
}

func (m *mockTransport) Ping() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pings++
	return nil
}

func (m *mockTransport) Close(code int, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.closeCode = code
	m.closeReason = reason
	return nil
}

func (m *mockTransport) setFull(full bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.full = full
}

func (m *mockTransport) getMessages() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([][]byte, len(m.messages))
	copy(result, m.messages)
	return result
}

func (m *mockTransport) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}

func (m *mockTransport) isClosed() (bool, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed, m.closeCode
}

func (m *mockTransport) pingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pings
}

// decoded returns every recorded message as a generic JSON object.
func (m *mockTransport) decoded(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, raw := range m.getMessages() {
		var v map[string]any
		require.NoError(t, json.Unmarshal(raw, &v))
		out = append(out, v)
	}
	return out
}

func (m *mockTransport) last(t *testing.T) map[string]any {
	t.Helper()
	msgs := m.decoded(t)
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1]
}

// fakePresence records presence transitions in order.
type fakePresence struct {
	mu     sync.Mutex
	events []string
}

func (f *fakePresence) SetUserOnline(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "online:"+userID)
	return nil
}

func (f *fakePresence) SetUserOffline(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "offline:"+userID)
	return nil
}

func (f *fakePresence) getEvents() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func createTestHub() *Hub {
	return NewHub(DefaultHubConfig(), nil, testLogger())
}

// createTestConn accepts a mock transport and clears the handshake message.
func createTestConn(t *testing.T, hub *Hub, identity string) (string, *mockTransport) {
	t.Helper()
	tr := &mockTransport{}
	id, err := hub.Accept(tr, identity)
	require.NoError(t, err)
	tr.reset()
	return id, tr
}

func createAuthedConn(t *testing.T, hub *Hub, userID string) (string, *mockTransport) {
	t.Helper()
	id, tr := createTestConn(t, hub, "")
	_, err := hub.Auth().Authenticate(id, userID)
	require.NoError(t, err)
	return id, tr
}
