package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"scamtrap/app/service/intel"
)

// Result is the adapter's output for one turn. It is always well-formed:
// when the model call or decode fails the adapter substitutes the safe
// default and sets Degraded.
type Result struct {
	IsScam       bool
	Confidence   float64
	Reply        string
	Notes        string
	Language     string
	Intelligence intel.Intelligence
	Degraded     bool
}

// Meta is the caller-supplied conversation metadata, passed through to the
// model prompt verbatim.
type Meta struct {
	Channel  string
	Language string
	Locale   string
}

type modelResponse struct {
	ScamDetected *bool              `json:"scamDetected"`
	Confidence   *float64           `json:"confidence"`
	AgentReply   string             `json:"agentReply"`
	AgentNotes   string             `json:"agentNotes"`
	Language     string             `json:"language"`
	Intelligence intel.Intelligence `json:"intelligence"`
}

// decodeModelOutput parses the model's JSON, tolerating markdown code
// fences but nothing else. Missing required fields or an out-of-range
// confidence count as malformed.
func decodeModelOutput(raw string) (*modelResponse, error) {
	raw = strings.Trim(raw, "`")
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "json")
	raw = strings.TrimSpace(raw)

	var response modelResponse
	if err := json.Unmarshal([]byte(raw), &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if response.ScamDetected == nil {
		return nil, fmt.Errorf("missing scamDetected field")
	}
	if response.Confidence == nil {
		return nil, fmt.Errorf("missing confidence field")
	}
	if *response.Confidence < 0 || *response.Confidence > 1 {
		return nil, fmt.Errorf("confidence %v out of range", *response.Confidence)
	}

	response.AgentReply = strings.TrimSpace(response.AgentReply)
	if response.AgentReply == "" {
		return nil, fmt.Errorf("empty agentReply")
	}

	return &response, nil
}
