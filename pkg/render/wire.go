package render

import (
	"github.com/goccy/go-json"
)

// Message types exchanged with browser hosts.
const (
	MessageFrame = "frame"
	MessageError = "error"
	MessageHello = "hello"
)

// Envelope wraps a frame or an error for the websocket wire.
type Envelope struct {
	Type  string `json:"type"`
	Frame *Frame `json:"frame,omitempty"`
	Error string `json:"error,omitempty"`
	// DurationMS mirrors Frame.Duration for clients.
	DurationMS int64 `json:"duration_ms,omitempty"`
}

// Wrap puts f into a frame envelope.
func Wrap(f Frame) Envelope {
	return Envelope{Type: MessageFrame, Frame: &f, DurationMS: f.Duration.Milliseconds()}
}

// Encode serialises a frame envelope.
func Encode(f Frame) ([]byte, error) {
	return json.Marshal(Wrap(f))
}

// EncodeError serialises an error envelope.
func EncodeError(err error) ([]byte, error) {
	return json.Marshal(Envelope{Type: MessageError, Error: err.Error()})
}

// Decode parses an envelope produced by [Encode] or [EncodeError].
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(data, &env)
	return env, err
}
