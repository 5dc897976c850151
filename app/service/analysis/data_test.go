package analysis

import "testing"

func TestDecodeModelOutput(t *testing.T) {
	raw := `{"scamDetected":true,"confidence":0.9,"agentReply":"Which account?","agentNotes":"urgency","language":"en","intelligence":{"bankAccounts":["1234567890"]}}`

	response, err := decodeModelOutput(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !*response.ScamDetected || *response.Confidence != 0.9 {
		t.Fatalf("wrong classification: %+v", response)
	}
	if response.AgentReply != "Which account?" {
		t.Fatalf("reply: %q", response.AgentReply)
	}
	if len(response.Intelligence.BankAccounts) != 1 {
		t.Fatalf("intelligence: %+v", response.Intelligence)
	}
}

func TestDecodeModelOutputTrimsCodeFences(t *testing.T) {
	raw := "```json\n{\"scamDetected\":false,\"confidence\":0.1,\"agentReply\":\"ok\"}\n```"

	response, err := decodeModelOutput(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if *response.ScamDetected {
		t.Fatal("expected scamDetected=false")
	}
}

func TestDecodeModelOutputRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":              "sure, here is your analysis",
		"missing scamDetected":  `{"confidence":0.5,"agentReply":"ok"}`,
		"missing confidence":    `{"scamDetected":true,"agentReply":"ok"}`,
		"confidence too high":   `{"scamDetected":true,"confidence":1.5,"agentReply":"ok"}`,
		"confidence negative":   `{"scamDetected":true,"confidence":-0.1,"agentReply":"ok"}`,
		"empty reply":           `{"scamDetected":true,"confidence":0.5,"agentReply":"  "}`,
		"wrong field type":      `{"scamDetected":"yes","confidence":0.5,"agentReply":"ok"}`,
	}

	for name, raw := range cases {
		if _, err := decodeModelOutput(raw); err == nil {
			t.Errorf("%s: expected decode error", name)
		}
	}
}
