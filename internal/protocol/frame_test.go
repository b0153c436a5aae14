package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFrame_EncodesChannelTypeAndPayload(t *testing.T) {
	f, err := NewFrame("conversation-42", "new-message", map[string]string{"id": "m1"})
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(f.Bytes(), &decoded))

	assert.JSONEq(t, `"conversation-42"`, string(decoded["channel"]))
	assert.JSONEq(t, `"new-message"`, string(decoded["type"]))
	assert.JSONEq(t, `{"id":"m1"}`, string(decoded["payload"]))
	assert.NotZero(t, f.TS())
}

func TestNewFrame_RejectsMissingFields(t *testing.T) {
	_, err := NewFrame("", "new-message", nil)
	assert.ErrorIs(t, err, ErrEmptyChannel)

	_, err = NewFrame("user-1", "", nil)
	assert.ErrorIs(t, err, ErrEmptyType)

	_, err = NewFrame("user-1", "x", json.RawMessage(`{broken`))
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestFrame_PayloadIsCopied(t *testing.T) {
	raw := json.RawMessage(`{"a":1}`)
	f, err := NewFrame("user-1", "x", raw)
	require.NoError(t, err)

	raw[2] = 'b'
	p := f.Payload()
	p[2] = 'c'

	assert.JSONEq(t, `{"a":1}`, string(f.Payload()))
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    MessageType
		wantErr bool
	}{
		{name: "auth", input: `{"type":"auth","userId":"u1"}`, want: TypeAuth},
		{name: "subscribe", input: `{"type":"subscribe","channel":"user-1"}`, want: TypeSubscribe},
		{name: "malformed", input: `{"type":`, wantErr: true},
		{name: "missing type", input: `{"channel":"x"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Decode([]byte(tt.input))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMessage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Type)
		})
	}
}

func TestMessage_Validate(t *testing.T) {
	online := true
	tests := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{name: "auth ok", msg: Message{Type: TypeAuth, UserID: "u1"}},
		{name: "auth without user", msg: Message{Type: TypeAuth}, wantErr: true},
		{name: "subscribe without channel", msg: Message{Type: TypeSubscribe}, wantErr: true},
		{name: "typing ok", msg: *NewTypingMessage("c1", "Ann", "")},
		{name: "typing without name", msg: Message{Type: TypeTyping, ConversationID: "c1"}, wantErr: true},
		{name: "typing stop ok", msg: Message{Type: TypeTypingStop, ConversationID: "c1"}},
		{name: "presence ok", msg: Message{Type: TypePresence, ConversationID: "c1", IsOnline: &online}},
		{name: "presence without flag", msg: Message{Type: TypePresence, ConversationID: "c1"}, wantErr: true},
		{name: "unknown types pass", msg: Message{Type: "something"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMessage)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
