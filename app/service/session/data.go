package session

import (
	"time"

	"scamtrap/app/service/intel"
)

const (
	SenderScammer = "scammer"
	SenderVictim  = "victim"
)

type Message struct {
	Sender    string
	Text      string
	Timestamp time.Time
}

// Snapshot is a point-in-time copy of one session's state. It shares no
// memory with the store, so callers may hold it across the model call
// without any lock.
type Snapshot struct {
	SessionID    string
	MessageCount int
	StartedAt    time.Time
	LastSeenAt   time.Time
	Intelligence intel.Intelligence
	Notes        string
	Transcript   []Message
}

func (s Snapshot) EngagementDuration() time.Duration {
	return s.LastSeenAt.Sub(s.StartedAt)
}

// ScammerTexts returns the raw text of every scammer-sent message in order.
func (s Snapshot) ScammerTexts() []string {
	texts := make([]string, 0, len(s.Transcript))
	for _, msg := range s.Transcript {
		if msg.Sender == SenderScammer {
			texts = append(texts, msg.Text)
		}
	}

	return texts
}
