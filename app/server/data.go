package server

import (
	"bytes"
	"encoding/json"
	"time"

	"scamtrap/app/service/session"
)

type honeypotRequest struct {
	SessionID           string        `json:"sessionId" validate:"required"`
	Message             wireMessage   `json:"message"`
	ConversationHistory []wireMessage `json:"conversationHistory" validate:"dive"`
	Metadata            *wireMetadata `json:"metadata"`
}

type wireMessage struct {
	Sender    string    `json:"sender" validate:"required,oneof=scammer victim user"`
	Text      string    `json:"text" validate:"required"`
	Timestamp Timestamp `json:"timestamp"`
}

type wireMetadata struct {
	Channel  string `json:"channel" validate:"omitempty,oneof=sms whatsapp email telegram web call"`
	Language string `json:"language"`
	Locale   string `json:"locale"`
}

type honeypotResponse struct {
	Status string `json:"status"`
	Reply  string `json:"reply"`
}

type errorResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// Some callers send "user" for the victim side; both spellings validate,
// one canonical form internally.
func (m wireMessage) toTurn() session.Message {
	sender := m.Sender
	if sender == "user" {
		sender = session.SenderVictim
	}

	return session.Message{
		Sender:    sender,
		Text:      m.Text,
		Timestamp: m.Timestamp.Time,
	}
}

// Timestamp accepts RFC3339 strings and epoch numbers (seconds, or
// milliseconds when the value is implausibly large for seconds).
// Unparseable input decodes to the zero value and is rejected later by
// request validation, so a bad timestamp yields a schema error rather
// than a generic body-parse failure.
type Timestamp struct {
	time.Time
}

const epochMillisCutoff = 1e12

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil
		}

		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
			if parsed, err := time.Parse(layout, raw); err == nil {
				t.Time = parsed
				return nil
			}
		}

		return nil
	}

	var epoch float64
	if err := json.Unmarshal(data, &epoch); err != nil {
		return nil
	}

	if epoch >= epochMillisCutoff {
		t.Time = time.UnixMilli(int64(epoch))
	} else {
		t.Time = time.Unix(int64(epoch), 0)
	}

	return nil
}
