package messaging

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// WebhookIncomingMessage is the Green API webhook type for received messages.
const WebhookIncomingMessage = "incomingMessageReceived"

var (
	// ErrIgnoredWebhook is returned for webhook types other than incoming messages.
	ErrIgnoredWebhook = errors.New("messaging: webhook type not handled")
	// ErrNoSender is returned when the payload carries no sender.
	ErrNoSender = errors.New("messaging: webhook has no sender")
	// ErrNoText is the parse failure for payloads with no recognised text shape.
	ErrNoText = errors.New("messaging: webhook has no text")
)

// InboundMessage is a received text message, normalised across payload shapes.
type InboundMessage struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Sender     string `json:"sender"`
	SenderName string `json:"sender_name,omitempty"`
	Text       string `json:"text"`
	Timestamp  int64  `json:"timestamp,omitempty"`
	Shape      string `json:"shape,omitempty"`
}

type webhookEnvelope struct {
	TypeWebhook string `json:"typeWebhook"`
	IDMessage   string `json:"idMessage"`
	Timestamp   int64  `json:"timestamp"`
	SenderData  struct {
		ChatID     string `json:"chatId"`
		Sender     string `json:"sender"`
		SenderName string `json:"senderName"`
	} `json:"senderData"`
	MessageData json.RawMessage `json:"messageData"`
}

// textShape extracts message text from one known messageData layout.
type textShape struct {
	name    string
	extract func(raw json.RawMessage) (string, bool)
}

// textShapes are tried in order; the first non-empty extraction wins.
var textShapes = []textShape{
	{name: "textMessageData", extract: func(raw json.RawMessage) (string, bool) {
		var v struct {
			TextMessageData struct {
				TextMessage string `json:"textMessage"`
			} `json:"textMessageData"`
		}
		return decodeText(raw, &v, func() string { return v.TextMessageData.TextMessage })
	}},
	{name: "extendedTextMessageData", extract: func(raw json.RawMessage) (string, bool) {
		var v struct {
			ExtendedTextMessageData struct {
				Text string `json:"text"`
			} `json:"extendedTextMessageData"`
		}
		return decodeText(raw, &v, func() string { return v.ExtendedTextMessageData.Text })
	}},
	{name: "textMessage", extract: func(raw json.RawMessage) (string, bool) {
		var v struct {
			TextMessage string `json:"textMessage"`
		}
		return decodeText(raw, &v, func() string { return v.TextMessage })
	}},
	{name: "extendedTextMessage", extract: func(raw json.RawMessage) (string, bool) {
		var v struct {
			ExtendedTextMessage struct {
				Text string `json:"text"`
			} `json:"extendedTextMessage"`
		}
		return decodeText(raw, &v, func() string { return v.ExtendedTextMessage.Text })
	}},
	{name: "message.extendedTextMessage", extract: func(raw json.RawMessage) (string, bool) {
		var v struct {
			Message struct {
				ExtendedTextMessage struct {
					Text string `json:"text"`
				} `json:"extendedTextMessage"`
			} `json:"message"`
		}
		return decodeText(raw, &v, func() string { return v.Message.ExtendedTextMessage.Text })
	}},
	{name: "message.conversation", extract: func(raw json.RawMessage) (string, bool) {
		var v struct {
			Message struct {
				Conversation string `json:"conversation"`
			} `json:"message"`
		}
		return decodeText(raw, &v, func() string { return v.Message.Conversation })
	}},
	{name: "string", extract: func(raw json.RawMessage) (string, bool) {
		var v string
		return decodeText(raw, &v, func() string { return v })
	}},
}

// decodeText unmarshals raw into target; a type mismatch simply means the
// shape does not apply.
func decodeText(raw json.RawMessage, target any, get func() string) (string, bool) {
	if err := json.Unmarshal(raw, target); err != nil {
		return "", false
	}
	text := get()
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}

// ExtractText runs the shape matchers over a messageData document.
func ExtractText(messageData json.RawMessage) (text, shape string, err error) {
	if len(messageData) == 0 || string(messageData) == "null" {
		return "", "", ErrNoText
	}
	for _, s := range textShapes {
		if text, ok := s.extract(messageData); ok {
			return text, s.name, nil
		}
	}
	return "", "", ErrNoText
}

// ParseWebhook decodes a Green API webhook body into an InboundMessage.
func ParseWebhook(body []byte) (InboundMessage, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return InboundMessage{}, fmt.Errorf("messaging: decode webhook: %w", err)
	}
	msg := InboundMessage{
		ID:         env.IDMessage,
		Type:       env.TypeWebhook,
		SenderName: env.SenderData.SenderName,
		Timestamp:  env.Timestamp,
	}
	if env.TypeWebhook != WebhookIncomingMessage {
		return msg, ErrIgnoredWebhook
	}

	sender := env.SenderData.Sender
	if sender == "" {
		sender = env.SenderData.ChatID
	}
	msg.Sender = StripChatSuffix(sender)
	if msg.Sender == "" {
		return msg, ErrNoSender
	}

	text, shape, err := ExtractText(env.MessageData)
	if err != nil {
		return msg, err
	}
	msg.Text = text
	msg.Shape = shape
	return msg, nil
}
