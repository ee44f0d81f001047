package wasender

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const EventMessagesUpsert = "messages.upsert"

var (
	// ErrNotAMessage marks events the relay does not process (status
	// updates, other event types, messages sent by the bot itself).
	ErrNotAMessage = errors.New("wasender: not an inbound message")
	// ErrNoSender marks upsert events missing the remote JID.
	ErrNoSender = errors.New("wasender: missing sender")
	// ErrUnsupportedContent marks messages without extractable text
	// (stickers, reactions, media without caption handling).
	ErrUnsupportedContent = errors.New("wasender: unsupported message content")
)

// WebhookEvent mirrors the WaSender messages.upsert payload far enough
// to pull out the sender and the text.
type WebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Messages struct {
			Key struct {
				RemoteJID string `json:"remoteJid"`
				FromMe    bool   `json:"fromMe"`
				ID        string `json:"id"`
			} `json:"key"`
			Message *struct {
				Conversation        string `json:"conversation"`
				ExtendedTextMessage *struct {
					Text string `json:"text"`
				} `json:"extendedTextMessage"`
			} `json:"message"`
		} `json:"messages"`
	} `json:"data"`
}

// Inbound is one decoded text message from a webhook call.
type Inbound struct {
	SenderJID string
	MessageID string
	Text      string
}

// DecodeInbound parses a webhook body and extracts the inbound text
// message, classifying everything else under the sentinel errors above.
func DecodeInbound(body []byte) (Inbound, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return Inbound{}, fmt.Errorf("decode webhook: %w", err)
	}
	return event.Inbound()
}

func (e WebhookEvent) Inbound() (Inbound, error) {
	if e.Event != EventMessagesUpsert {
		return Inbound{}, fmt.Errorf("%w: event %q", ErrNotAMessage, e.Event)
	}
	msg := e.Data.Messages
	if msg.Key.FromMe {
		return Inbound{}, fmt.Errorf("%w: self-sent %s", ErrNotAMessage, msg.Key.ID)
	}
	sender := strings.TrimSpace(msg.Key.RemoteJID)
	if sender == "" {
		return Inbound{}, ErrNoSender
	}

	var text string
	if msg.Message != nil {
		if msg.Message.Conversation != "" {
			text = msg.Message.Conversation
		} else if msg.Message.ExtendedTextMessage != nil {
			text = msg.Message.ExtendedTextMessage.Text
		}
	}
	if strings.TrimSpace(text) == "" {
		return Inbound{}, fmt.Errorf("%w: sender %s", ErrUnsupportedContent, sender)
	}

	return Inbound{
		SenderJID: sender,
		MessageID: msg.Key.ID,
		Text:      text,
	}, nil
}
