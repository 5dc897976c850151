package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"scamtrap/app/config"
	"scamtrap/app/service/analysis"
	"scamtrap/app/service/session"

	"github.com/samber/do"
	"github.com/samber/oops"
)

const bufferSize = 64

var _ do.Shutdownable = (*Service)(nil)

// Service decides when a session's intelligence is worth reporting and
// delivers the report from a background worker, decoupled from request
// latency. Delivery is best-effort telemetry: failures are logged and
// never retried.
type Service struct {
	cfg        *config.Config
	sessionSvc *session.Service

	queue  chan Payload
	client *http.Client
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Service{
		cfg:        cfg,
		sessionSvc: do.MustInvoke[*session.Service](di),
		queue:      make(chan Payload, bufferSize),
		client: &http.Client{
			Timeout: time.Duration(cfg.Callback.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// MaybeDispatch enqueues a report when the turn's analysis confirms a scam
// with enough confidence and the session has either exchanged enough
// messages or yielded intelligence. The session store arbitrates the
// at-most-once-per-growth rule; re-dispatch happens only when accumulated
// intelligence has grown since the last report. Never blocks the reply path.
func (s *Service) MaybeDispatch(result analysis.Result, snap session.Snapshot) {
	if s.cfg.Callback.URL == "" {
		return
	}

	if !result.IsScam || result.Confidence < s.cfg.Honeypot.ConfidenceThreshold {
		return
	}

	if snap.MessageCount < s.cfg.Honeypot.MinTurns && snap.Intelligence.Empty() {
		return
	}

	if !s.sessionSvc.ClaimDispatch(snap.SessionID, snap.Intelligence.Count()) {
		slog.Debug("Callback suppressed, no intelligence growth", "session_id", snap.SessionID)
		return
	}

	s.enqueue(Payload{
		SessionID:             snap.SessionID,
		ScamDetected:          true,
		ExtractedIntelligence: snap.Intelligence,
		EngagementMetrics: Metrics{
			TotalMessagesExchanged:    snap.MessageCount,
			EngagementDurationSeconds: int(snap.EngagementDuration().Seconds()),
		},
		AgentNotes: snap.Notes,
	})
}

func (s *Service) enqueue(payload Payload) {
	defer func() {
		if r := recover(); r != nil {

		}
	}()

	select {
	case s.queue <- payload:
	default:
		slog.Warn("callback queue is full, report dropped", "session_id", payload.SessionID)
	}
}

// Run drains the queue until the context is cancelled or the queue closes.
func (s *Service) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-s.queue:
			if !ok {
				return
			}

			start := time.Now()
			if err := s.deliver(ctx, payload); err != nil {
				slog.Error("Callback delivery failed",
					"session_id", payload.SessionID,
					"error", err,
					"telegram", true,
				)
				continue
			}

			slog.Info("Callback delivered",
				"session_id", payload.SessionID,
				"intel_count", payload.ExtractedIntelligence.Count(),
				"duration", time.Since(start),
			)
		}
	}
}

func (s *Service) deliver(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return oops.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Callback.URL, bytes.NewReader(body))
	if err != nil {
		return oops.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return oops.Errorf("failed to post callback: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return oops.Errorf("callback receiver returned status %d", resp.StatusCode)
	}

	return nil
}

func (s *Service) Shutdown() error {
	close(s.queue)

	return nil
}
