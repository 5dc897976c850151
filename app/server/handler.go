package server

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"scamtrap/app/service/analysis"
	"scamtrap/app/service/session"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// handleHoneypot runs one conversation turn through the full pipeline:
// parse, validate, merge session state, analyze, commit intelligence,
// maybe enqueue a callback, reply. Once validation passes every branch
// ends in a 200 with a non-empty reply; analysis failure degrades inside
// the adapter and never surfaces here.
func (s *Service) handleHoneypot(c *fiber.Ctx) error {
	start := time.Now()
	requestID, _ := c.Locals(requestIDKey).(string)

	var req honeypotRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{
			Status: "error",
			Reason: fmt.Sprintf("malformed body: %v", err),
		})
	}

	if reason := s.validateRequest(&req); reason != "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(errorResponse{
			Status: "error",
			Reason: reason,
		})
	}

	history := make([]session.Message, 0, len(req.ConversationHistory))
	for _, msg := range req.ConversationHistory {
		history = append(history, msg.toTurn())
	}

	snap := s.sessionSvc.Observe(req.SessionID, req.Message.toTurn(), history)

	var meta analysis.Meta
	if req.Metadata != nil {
		meta = analysis.Meta{
			Channel:  req.Metadata.Channel,
			Language: req.Metadata.Language,
			Locale:   req.Metadata.Locale,
		}
	}

	result := s.analysisSvc.Analyze(c.UserContext(), snap, meta)

	snap = s.sessionSvc.CommitAnalysis(req.SessionID, result.Intelligence, result.Notes, session.Message{
		Sender:    session.SenderVictim,
		Text:      result.Reply,
		Timestamp: time.Now(),
	})

	s.callbackSvc.MaybeDispatch(result, snap)

	slog.Info("Processed turn",
		"request_id", requestID,
		"session_id", req.SessionID,
		"is_scam", result.IsScam,
		"confidence", result.Confidence,
		"degraded", result.Degraded,
		"intel_count", snap.Intelligence.Count(),
		"duration", time.Since(start),
	)

	return c.JSON(honeypotResponse{
		Status: "success",
		Reply:  result.Reply,
	})
}

func (s *Service) validateRequest(req *honeypotRequest) string {
	if err := s.validate.Struct(req); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			fe := fieldErrors[0]
			return fmt.Sprintf("invalid field %s: failed %s", fe.Namespace(), fe.Tag())
		}

		return "invalid request"
	}

	if strings.TrimSpace(req.Message.Text) == "" {
		return "invalid field message.text: failed required"
	}
	if req.Message.Timestamp.IsZero() {
		return "invalid field message.timestamp: missing or malformed"
	}

	for i, msg := range req.ConversationHistory {
		if strings.TrimSpace(msg.Text) == "" {
			return fmt.Sprintf("invalid field conversationHistory[%d].text: failed required", i)
		}
		if msg.Timestamp.IsZero() {
			return fmt.Sprintf("invalid field conversationHistory[%d].timestamp: missing or malformed", i)
		}
	}

	return ""
}
