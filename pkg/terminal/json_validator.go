package terminal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/antibyte/pixelbasic/pkg/shared"
)

// Limits for inbound client messages.
const (
	MaxKeyNameLen = 32
)

var (
	ErrMessageTooLarge   = errors.New("message too large")
	ErrMessageMalformed  = errors.New("malformed message")
	ErrMessageNotAllowed = errors.New("message type not accepted from clients")
)

// JSONValidator prüft eingehende Client-Nachrichten
type JSONValidator struct {
	MaxMessageBytes int
	MaxProgramBytes int
}

// NewJSONValidator erstellt einen neuen JSON-Validator
func NewJSONValidator(maxMessageBytes, maxProgramBytes int) *JSONValidator {
	return &JSONValidator{
		MaxMessageBytes: maxMessageBytes,
		MaxProgramBytes: maxProgramBytes,
	}
}

// Validate decodes data strictly into a Message and checks that clients
// only send key events and program loads.
func (v *JSONValidator) Validate(data []byte) (shared.Message, error) {
	var msg shared.Message
	if v.MaxMessageBytes > 0 && len(data) > v.MaxMessageBytes {
		return msg, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(data))
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&msg); err != nil {
		return msg, fmt.Errorf("%w: %v", ErrMessageMalformed, err)
	}
	if decoder.More() {
		return msg, fmt.Errorf("%w: trailing data", ErrMessageMalformed)
	}

	switch msg.Type {
	case shared.MessageTypeKeyDown, shared.MessageTypeKeyUp:
		if msg.Key == "" || len(msg.Key) > MaxKeyNameLen || !utf8.ValidString(msg.Key) {
			return msg, fmt.Errorf("%w: bad key %q", ErrMessageMalformed, msg.Key)
		}
	case shared.MessageTypeLoad:
		if !utf8.ValidString(msg.Content) {
			return msg, fmt.Errorf("%w: program is not UTF-8", ErrMessageMalformed)
		}
		if v.MaxProgramBytes > 0 && len(msg.Content) > v.MaxProgramBytes {
			return msg, fmt.Errorf("%w: program of %d bytes", ErrMessageTooLarge, len(msg.Content))
		}
	default:
		return msg, fmt.Errorf("%w: %s", ErrMessageNotAllowed, msg.Type)
	}
	return msg, nil
}
