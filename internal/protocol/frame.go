package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrInvalidMessage = errors.New("invalid message")
	ErrEmptyChannel   = errors.New("channel is required")
	ErrEmptyType      = errors.New("type is required")
)

// Frame is the unit of broadcast. It is immutable once constructed: the
// payload is marshalled in NewFrame and the wire bytes are produced once.
type Frame struct {
	channel string
	typ     string
	payload json.RawMessage
	ts      int64
	encoded []byte
}

type wireFrame struct {
	Channel string          `json:"channel"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	TS      int64           `json:"ts"`
}

// NewFrame builds a frame for channel with the given event type. payload may
// be any JSON-marshallable value, a json.RawMessage or nil.
func NewFrame(channel, eventType string, payload any) (*Frame, error) {
	if channel == "" {
		return nil, ErrEmptyChannel
	}
	if eventType == "" {
		return nil, ErrEmptyType
	}

	var raw json.RawMessage
	switch p := payload.(type) {
	case nil:
		raw = json.RawMessage("null")
	case json.RawMessage:
		if len(p) == 0 {
			raw = json.RawMessage("null")
			break
		}
		if !json.Valid(p) {
			return nil, fmt.Errorf("%w: payload is not valid JSON", ErrInvalidMessage)
		}
		raw = append(json.RawMessage(nil), p...)
	default:
		data, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		raw = data
	}

	f := &Frame{channel: channel, typ: eventType, payload: raw, ts: Now()}
	encoded, err := json.Marshal(wireFrame{Channel: f.channel, Type: f.typ, Payload: f.payload, TS: f.ts})
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	f.encoded = encoded
	return f, nil
}

func (f *Frame) Channel() string { return f.channel }
func (f *Frame) Type() string    { return f.typ }
func (f *Frame) TS() int64       { return f.ts }

// Payload returns a copy of the raw payload.
func (f *Frame) Payload() json.RawMessage {
	return append(json.RawMessage(nil), f.payload...)
}

// Bytes returns the encoded frame. Callers must not modify the slice; it is
// shared by every subscriber of a broadcast.
func (f *Frame) Bytes() []byte {
	return f.encoded
}

// Encode marshals a control message.
func Encode(m *Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s message: %w", m.Type, err)
	}
	return data, nil
}

// Decode parses a single JSON text frame. It does not validate type-specific
// fields; see Message.Validate.
func Decode(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if m.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrInvalidMessage)
	}
	return &m, nil
}
