package chat

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Inbound and outbound event names on the wire.
const (
	EventDirect = "one-one-message"
	EventGroup  = "group-message"
	EventError  = "error"
	EventReply  = "reply"
)

// Frame is the envelope of every websocket message, inbound and
// outbound: an event name plus the event payload.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// DirectMessage is the validated payload of a one-one-message event.
type DirectMessage struct {
	RecipientID string
	SenderID    string
	Text        string
}

// BroadcastMessage is the validated payload of a group-message event.
// Addressing fields, if present, are ignored.
type BroadcastMessage struct {
	Text string
}

// Sender is the metadata block attached to a delivered message.
type Sender struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// DeliveredMessage is synthesized by the gateway at delivery time; the
// id and timestamp are per delivery, never persisted.
type DeliveredMessage struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	Sender    Sender    `json:"sender"`
}

// ErrorPayload is the data of an error event.
type ErrorPayload struct {
	Message string `json:"message"`
}

// ParseFrame decodes and validates the envelope. Unknown event names
// are rejected here so handlers only ever see the two inbound events.
func ParseFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "decode frame")
	}
	switch f.Event {
	case EventDirect, EventGroup:
		return &f, nil
	default:
		return nil, errors.Errorf("unknown event %q", f.Event)
	}
}

// payloadBytes unwraps the data field. Clients send the payload as a
// JSON-encoded string; a bare object is also accepted.
func payloadBytes(raw json.RawMessage) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("empty payload")
	}
	if trimmed[0] != '"' {
		return trimmed, nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return nil, errors.Wrap(err, "unquote payload")
	}
	return []byte(s), nil
}

// DecodeDirect validates a one-one-message payload. Both recieverId and
// recipientId spellings address the recipient. A missing recipient is
// not an error here; the dispatch layer reports it to the sender.
func DecodeDirect(raw json.RawMessage) (*DirectMessage, error) {
	b, err := payloadBytes(raw)
	if err != nil {
		return nil, err
	}
	var body struct {
		RecieverID  string `json:"recieverId"`
		RecipientID string `json:"recipientId"`
		SenderID    string `json:"senderId"`
		Message     string `json:"message"`
	}
	if err := json.Unmarshal(b, &body); err != nil {
		return nil, errors.Wrap(err, "decode direct payload")
	}
	recipient := body.RecieverID
	if recipient == "" {
		recipient = body.RecipientID
	}
	return &DirectMessage{
		RecipientID: recipient,
		SenderID:    body.SenderID,
		Text:        body.Message,
	}, nil
}

// DecodeBroadcast validates a group-message payload.
func DecodeBroadcast(raw json.RawMessage) (*BroadcastMessage, error) {
	b, err := payloadBytes(raw)
	if err != nil {
		return nil, err
	}
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(b, &body); err != nil {
		return nil, errors.Wrap(err, "decode group payload")
	}
	return &BroadcastMessage{Text: body.Message}, nil
}

// EncodeFrame marshals an outbound event envelope.
func EncodeFrame(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "encode payload")
	}
	return json.Marshal(Frame{Event: event, Data: data})
}

// EncodeError builds an error event frame.
func EncodeError(message string) []byte {
	b, _ := EncodeFrame(EventError, ErrorPayload{Message: message})
	return b
}
