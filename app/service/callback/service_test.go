package callback

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"scamtrap/app/config"
	"scamtrap/app/service/analysis"
	"scamtrap/app/service/intel"
	"scamtrap/app/service/session"
)

func testConfig(callbackURL string) *config.Config {
	return &config.Config{
		Callback: config.Callback{
			URL:            callbackURL,
			TimeoutSeconds: 2,
		},
		Honeypot: config.Honeypot{
			ConfidenceThreshold: 0.8,
			MinTurns:            3,
		},
	}
}

func newTestService(t *testing.T, callbackURL string) (*Service, *session.Service) {
	t.Helper()

	sessionSvc, err := session.New(nil)
	if err != nil {
		t.Fatalf("session service: %v", err)
	}

	cfg := testConfig(callbackURL)

	return &Service{
		cfg:        cfg,
		sessionSvc: sessionSvc,
		queue:      make(chan Payload, bufferSize),
		client:     &http.Client{Timeout: time.Duration(cfg.Callback.TimeoutSeconds) * time.Second},
	}, sessionSvc
}

func scamResult(confidence float64) analysis.Result {
	return analysis.Result{
		IsScam:     true,
		Confidence: confidence,
		Reply:      "which account?",
	}
}

func snapshotWithIntel(count int) session.Snapshot {
	accounts := make([]string, 0, count)
	for i := 0; i < count; i++ {
		accounts = append(accounts, "123456789"+string(rune('0'+i)))
	}

	return session.Snapshot{
		SessionID:    "s1",
		MessageCount: 1,
		StartedAt:    time.Now().Add(-30 * time.Second),
		LastSeenAt:   time.Now(),
		Intelligence: intel.Intelligence{BankAccounts: accounts},
		Notes:        "otp demand",
	}
}

func receivePayload(t *testing.T, payloads <-chan Payload) Payload {
	t.Helper()

	select {
	case payload := <-payloads:
		return payload
	case <-time.After(2 * time.Second):
		t.Fatal("no callback delivered")
		return Payload{}
	}
}

func assertNoPayload(t *testing.T, payloads <-chan Payload) {
	t.Helper()

	select {
	case payload := <-payloads:
		t.Fatalf("unexpected callback: %+v", payload)
	case <-time.After(200 * time.Millisecond):
	}
}

func startReceiver(t *testing.T) (*httptest.Server, chan Payload) {
	t.Helper()

	payloads := make(chan Payload, 8)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload Payload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		payloads <- payload
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(ts.Close)

	return ts, payloads
}

func TestDispatchDeliversPayload(t *testing.T) {
	ts, payloads := startReceiver(t)

	svc, _ := newTestService(t, ts.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	svc.MaybeDispatch(scamResult(0.9), snapshotWithIntel(1))

	payload := receivePayload(t, payloads)
	if payload.SessionID != "s1" || !payload.ScamDetected {
		t.Fatalf("payload: %+v", payload)
	}
	if len(payload.ExtractedIntelligence.BankAccounts) != 1 {
		t.Fatalf("intelligence: %+v", payload.ExtractedIntelligence)
	}
	if payload.EngagementMetrics.TotalMessagesExchanged != 1 {
		t.Fatalf("metrics: %+v", payload.EngagementMetrics)
	}
	if payload.EngagementMetrics.EngagementDurationSeconds < 29 {
		t.Fatalf("duration: %+v", payload.EngagementMetrics)
	}
	if payload.AgentNotes != "otp demand" {
		t.Fatalf("notes: %q", payload.AgentNotes)
	}
}

func TestDispatchSkipsIneligibleResults(t *testing.T) {
	ts, payloads := startReceiver(t)

	svc, _ := newTestService(t, ts.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	// not a scam
	svc.MaybeDispatch(analysis.Result{IsScam: false, Confidence: 0.99}, snapshotWithIntel(1))
	// below the confidence threshold
	svc.MaybeDispatch(scamResult(0.5), snapshotWithIntel(1))
	// neither enough turns nor any intelligence
	svc.MaybeDispatch(scamResult(0.9), session.Snapshot{SessionID: "s1", MessageCount: 1})

	assertNoPayload(t, payloads)
}

func TestDispatchEnoughTurnsWithoutIntel(t *testing.T) {
	ts, payloads := startReceiver(t)

	svc, _ := newTestService(t, ts.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	svc.MaybeDispatch(scamResult(0.9), session.Snapshot{SessionID: "s1", MessageCount: 3})

	payload := receivePayload(t, payloads)
	if payload.ExtractedIntelligence.Count() != 0 {
		t.Fatalf("expected empty intelligence: %+v", payload.ExtractedIntelligence)
	}
}

func TestDispatchAtMostOncePerGrowth(t *testing.T) {
	ts, payloads := startReceiver(t)

	svc, _ := newTestService(t, ts.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	svc.MaybeDispatch(scamResult(0.9), snapshotWithIntel(1))
	receivePayload(t, payloads)

	// same accumulated intelligence: suppressed
	svc.MaybeDispatch(scamResult(0.95), snapshotWithIntel(1))
	assertNoPayload(t, payloads)

	// growth: incremental report goes out
	svc.MaybeDispatch(scamResult(0.9), snapshotWithIntel(2))
	payload := receivePayload(t, payloads)
	if len(payload.ExtractedIntelligence.BankAccounts) != 2 {
		t.Fatalf("expected grown intelligence: %+v", payload.ExtractedIntelligence)
	}
}

func TestDeliveryFailureIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	t.Cleanup(ts.Close)

	svc, _ := newTestService(t, ts.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	svc.MaybeDispatch(scamResult(0.9), snapshotWithIntel(1))

	time.Sleep(300 * time.Millisecond)
	if hits.Load() != 1 {
		t.Fatalf("expected exactly one delivery attempt, got %d", hits.Load())
	}
}

func TestDispatchDisabledWithoutURL(t *testing.T) {
	svc, sessionSvc := newTestService(t, "")

	svc.MaybeDispatch(scamResult(0.9), snapshotWithIntel(1))

	if len(svc.queue) != 0 {
		t.Fatal("disabled dispatcher must not enqueue")
	}
	// and it must not burn the session's dispatch claim
	if !sessionSvc.ClaimDispatch("s1", 0) {
		t.Fatal("dispatch claim consumed while disabled")
	}
}

func TestEnqueueDropsOnOverflow(t *testing.T) {
	svc, _ := newTestService(t, "http://receiver.invalid")

	for i := 0; i < bufferSize+10; i++ {
		svc.enqueue(Payload{SessionID: "s1"})
	}

	if len(svc.queue) != bufferSize {
		t.Fatalf("queue length %d", len(svc.queue))
	}
}
