package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"scamtrap/app/config"
	"scamtrap/app/service/intel"
	"scamtrap/app/service/session"

	_ "embed"

	"github.com/samber/do"
	"github.com/sashabaranov/go-openai"
)

//go:embed system_prompt.txt
var systemPromptTemplate string

const (
	maxCompletionTokens = 1000
	maxReplyLength      = 500
)

type Service struct {
	cfg    *config.Config
	client *openai.Client
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Service{
		cfg:    cfg,
		client: createClient(cfg.OpenAI),
	}, nil
}

// Analyze runs exactly one model call for the turn. It never returns an
// error: any transport or decode failure collapses into the safe default
// result, so the caller always has a usable reply. No retries; per-request
// latency stays bounded by the configured timeout.
func (s *Service) Analyze(ctx context.Context, snap session.Snapshot, meta Meta) Result {
	prompt := s.buildPrompt(snap, meta)

	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.OpenAI.TimeoutSeconds)*time.Second)
	defer cancel()

	aiResponse, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.cfg.OpenAI.Model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxCompletionTokens: maxCompletionTokens,
			Temperature:         1,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)
	if err != nil {
		slog.Warn("Model call failed, degrading to fallback",
			"session_id", snap.SessionID,
			"error", err,
		)
		return s.fallback()
	}

	if len(aiResponse.Choices) == 0 {
		slog.Warn("Model returned no choices, degrading to fallback", "session_id", snap.SessionID)
		return s.fallback()
	}

	response, err := decodeModelOutput(aiResponse.Choices[0].Message.Content)
	if err != nil {
		slog.Warn("Model output rejected, degrading to fallback",
			"session_id", snap.SessionID,
			"error", err,
		)
		return s.fallback()
	}

	// Regex extraction over the scammer side of the transcript backs up
	// the model's own extraction; both are plausibility-filtered before
	// they can reach accumulated state.
	found := intel.Merge(
		intel.Normalize(response.Intelligence),
		intel.Extract(snap.ScammerTexts()),
	)

	return Result{
		IsScam:       *response.ScamDetected,
		Confidence:   *response.Confidence,
		Reply:        truncate(response.AgentReply, maxReplyLength),
		Notes:        strings.TrimSpace(response.AgentNotes),
		Language:     strings.TrimSpace(response.Language),
		Intelligence: found,
	}
}

func (s *Service) buildPrompt(snap session.Snapshot, meta Meta) string {
	var conversation strings.Builder
	for _, msg := range snap.Transcript {
		conversation.WriteString(fmt.Sprintf("[%s] %s: %s\n",
			msg.Timestamp.Format(time.RFC3339), msg.Sender, msg.Text))
	}

	templateValues := map[string]any{
		"session_id":   snap.SessionID,
		"channel":      meta.Channel,
		"language":     meta.Language,
		"locale":       meta.Locale,
		"conversation": conversation.String(),
	}

	prompt := systemPromptTemplate
	for key, value := range templateValues {
		prompt = strings.ReplaceAll(prompt, "{"+key+"}", fmt.Sprint(value))
	}

	return prompt
}

func (s *Service) fallback() Result {
	return Result{
		Reply:    s.cfg.Honeypot.FallbackReply,
		Degraded: true,
	}
}

func createClient(cfg config.OpenAI) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.Token)

	clientConfig.BaseURL = cfg.BaseURL
	clientConfig.HTTPClient = &http.Client{
		Timeout: time.Duration(cfg.TimeoutSeconds+5) * time.Second,
	}

	return openai.NewClientWithConfig(clientConfig)
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	return string(runes[:limit])
}
