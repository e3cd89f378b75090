// Package event defines the JSON frames shared by the gateway and the
// message pipeline. Every frame is a tagged union discriminated on "event".
package event

import (
	"encoding/json"

	"github.com/google/uuid"
)

const (
	MessageSend        = "MessageSend"
	MessageEdit        = "MessageEdit"
	MessageDelete      = "MessageDelete"
	ChannelSubscribe   = "ChannelSubscribe"
	ChannelUnsubscribe = "ChannelUnsubscribe"
	Error              = "Error"
)

type Envelope struct {
	Event  string          `json:"event"`
	Entity json.RawMessage `json:"entity"`
}

// New wraps an entity; it panics only on unmarshalable entities, which are
// programming errors.
func New(eventType string, entity any) Envelope {
	buf, err := json.Marshal(entity)
	if err != nil {
		panic(err)
	}
	return Envelope{Event: eventType, Entity: buf}
}

// ErrorEntity is delivered back to the offending client on its subscribed
// topic.
type ErrorEntity struct {
	Message string `json:"message"`
}

func NewError(message string) Envelope {
	return New(Error, ErrorEntity{Message: message})
}

// DeleteEntity is all a MessageDelete carries.
type DeleteEntity struct {
	ChannelUUID uuid.UUID `json:"channel_uuid"`
	UUID        uuid.UUID `json:"uuid"`
}

// Inbound client->server entities.

type SendEntity struct {
	ChannelUUID uuid.UUID  `json:"channel_uuid"`
	Text        string     `json:"text"`
	ReplyTo     *uuid.UUID `json:"reply_to,omitempty"`
}

type EditEntity struct {
	ChannelUUID uuid.UUID `json:"channel_uuid"`
	UUID        uuid.UUID `json:"uuid"`
	Text        string    `json:"text"`
}
