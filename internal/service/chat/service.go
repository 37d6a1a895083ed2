package chat

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zhouzirui/madchat/backend/internal/model/chat"
)

// Service is the in-memory session store. Every structural change happens under
// the write lock, so appends to one session never interleave.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*chat.Record
	pins     map[string]int
	now      func() time.Time
}

// NewService bootstraps an empty store.
func NewService() *Service {
	return &Service{
		sessions: make(map[string]*chat.Record),
		pins:     make(map[string]int),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source; used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
	return s
}

// GetOrCreate resolves a session. An empty id mints a fresh one; an unknown id
// starts a new conversation under that name. The transcript is a copy.
func (s *Service) GetOrCreate(_ context.Context, sessionID string) (string, chat.Transcript) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.ensureLocked(sessionID)
	return record.ID, record.Transcript.Clone()
}

// AppendUser records a user turn, creating the session if needed.
func (s *Service) AppendUser(_ context.Context, sessionID, content string) chat.Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.ensureLocked(sessionID)
	s.appendLocked(record, chat.UserTurn(content))
	return record.Transcript.Clone()
}

// AppendAssistant records a model turn. Unknown sessions are skipped and false is
// returned.
func (s *Service) AppendAssistant(_ context.Context, sessionID, content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.sessions[sessionID]
	if !ok {
		log.Printf("[session] dropping assistant turn for missing session=%s", sessionID)
		return false
	}
	s.appendLocked(record, chat.AssistantTurn(content))
	return true
}

// Pin is GetOrCreate plus a pin: sweeps leave the session alone until release is
// called. release is idempotent.
func (s *Service) Pin(_ context.Context, sessionID string) (string, func()) {
	s.mu.Lock()
	record := s.ensureLocked(sessionID)
	id := record.ID
	s.pins[id]++
	s.mu.Unlock()

	var once sync.Once
	return id, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.pins[id] <= 1 {
				delete(s.pins, id)
				return
			}
			s.pins[id]--
		})
	}
}

// ListAll returns copies of every live transcript keyed by session id.
func (s *Service) ListAll(_ context.Context) map[string]chat.Transcript {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]chat.Transcript, len(s.sessions))
	for id, record := range s.sessions {
		out[id] = record.Transcript.Clone()
	}
	return out
}

// Count returns the number of live sessions.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Get returns a copy of one record.
func (s *Service) Get(_ context.Context, sessionID string) (chat.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.sessions[sessionID]
	if !ok {
		return chat.Record{}, false
	}
	copied := *record
	copied.Transcript = record.Transcript.Clone()
	return copied, true
}

// EvictOlderThan removes every session idle for at least maxAge and returns how
// many went. Pinned sessions are kept regardless of age.
func (s *Service) EvictOlderThan(_ context.Context, maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, record := range s.sessions {
		if s.pins[id] > 0 {
			continue
		}
		if now.Sub(record.LastActive) >= maxAge {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// StartSweeper evicts idle sessions every interval until ctx is done.
func (s *Service) StartSweeper(ctx context.Context, interval, maxAge time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := s.EvictOlderThan(ctx, maxAge); removed > 0 {
					log.Printf("[session] swept %d idle session(s), remaining=%d", removed, s.Count())
				}
			}
		}
	}()
}

func (s *Service) ensureLocked(sessionID string) *chat.Record {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	record, ok := s.sessions[sessionID]
	if !ok {
		record = &chat.Record{
			ID:         sessionID,
			Transcript: make(chat.Transcript, 0, 16),
			LastActive: s.now(),
		}
		s.sessions[sessionID] = record
	}
	return record
}

func (s *Service) appendLocked(record *chat.Record, turn chat.Turn) {
	record.Transcript = append(record.Transcript, turn)
	if now := s.now(); now.After(record.LastActive) {
		record.LastActive = now
	}
}
