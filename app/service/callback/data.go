package callback

import "scamtrap/app/service/intel"

// Payload is the intelligence report posted to the configured receiver.
type Payload struct {
	SessionID             string             `json:"sessionId"`
	ScamDetected          bool               `json:"scamDetected"`
	ExtractedIntelligence intel.Intelligence `json:"extractedIntelligence"`
	EngagementMetrics     Metrics            `json:"engagementMetrics"`
	AgentNotes            string             `json:"agentNotes"`
}

type Metrics struct {
	TotalMessagesExchanged    int `json:"totalMessagesExchanged"`
	EngagementDurationSeconds int `json:"engagementDurationSeconds"`
}
