package session

import (
	"strconv"
	"sync"
	"time"

	"scamtrap/app/service/intel"

	"github.com/samber/do"
)

// Transcript kept for the model prompt is bounded; counters and the seen
// set are not.
const transcriptSize = 50

// Service is the in-memory session store. State is best-effort bookkeeping
// and lives until process exit. The map lock only guards session lookup;
// each session has its own mutex, so turns for different sessions never
// contend.
type Service struct {
	mu       sync.Mutex
	sessions map[string]*state
}

type state struct {
	mu sync.Mutex

	messageCount int
	startedAt    time.Time
	lastSeenAt   time.Time
	intelligence intel.Intelligence
	notes        string
	seen         map[string]struct{}
	transcript   []Message

	reported           bool
	reportedIntelCount int
}

func New(_ *do.Injector) (*Service, error) {
	return &Service{
		sessions: make(map[string]*state),
	}, nil
}

// Observe merges the caller-supplied history and the current turn into the
// session, deduplicating by exact text+timestamp so resent history never
// double-counts. Purely additive; caller data is never rejected here.
func (s *Service) Observe(sessionID string, turn Message, history []Message) Snapshot {
	st := s.get(sessionID)

	st.mu.Lock()
	defer st.mu.Unlock()

	for _, msg := range history {
		st.absorb(msg)
	}
	st.absorb(turn)

	st.lastSeenAt = time.Now()

	return st.snapshot(sessionID)
}

// CommitAnalysis unions the turn's normalized intelligence into the
// accumulated set (which only ever grows), records the latest agent notes
// and appends our own reply to the transcript.
func (s *Service) CommitAnalysis(sessionID string, found intel.Intelligence, notes string, reply Message) Snapshot {
	st := s.get(sessionID)

	st.mu.Lock()
	defer st.mu.Unlock()

	st.intelligence = intel.Merge(st.intelligence, found)
	if notes != "" {
		st.notes = notes
	}
	st.absorb(reply)

	return st.snapshot(sessionID)
}

// ClaimDispatch atomically decides whether a callback may be sent for this
// session. The first claim always wins; later claims win only if the
// accumulated intelligence has grown since the last successful claim.
func (s *Service) ClaimDispatch(sessionID string, intelCount int) bool {
	st := s.get(sessionID)

	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.reported {
		st.reported = true
		st.reportedIntelCount = intelCount
		return true
	}

	if intelCount > st.reportedIntelCount {
		st.reportedIntelCount = intelCount
		return true
	}

	return false
}

func (s *Service) get(sessionID string) *state {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		now := time.Now()
		st = &state{
			startedAt:  now,
			lastSeenAt: now,
			seen:       make(map[string]struct{}),
		}
		s.sessions[sessionID] = st
	}

	return st
}

func (st *state) absorb(msg Message) {
	key := msg.Text + "\x00" + strconv.FormatInt(msg.Timestamp.UnixNano(), 10)
	if _, ok := st.seen[key]; ok {
		return
	}

	st.seen[key] = struct{}{}
	st.messageCount++

	if len(st.transcript) >= transcriptSize {
		st.transcript = append(st.transcript[1:], msg)
	} else {
		st.transcript = append(st.transcript, msg)
	}
}

func (st *state) snapshot(sessionID string) Snapshot {
	transcript := make([]Message, len(st.transcript))
	copy(transcript, st.transcript)

	return Snapshot{
		SessionID:    sessionID,
		MessageCount: st.messageCount,
		StartedAt:    st.startedAt,
		LastSeenAt:   st.lastSeenAt,
		Intelligence: st.intelligence.Clone(),
		Notes:        st.notes,
		Transcript:   transcript,
	}
}
