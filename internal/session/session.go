// Package session owns the per-student state that survives between
// requests: conversation memory, the quiz awaiting submission and the
// current class and subject selection.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/tutor/internal/memory"
	"github.com/pavelanni/tutor/internal/model"
)

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = 2 * time.Hour

// DefaultMaxSessions bounds the number of live sessions.
const DefaultMaxSessions = 10000

// Session is one student's state. Memory has its own lock; the remaining
// fields are guarded by mu.
type Session struct {
	ID     string
	Memory *memory.Memory

	mu         sync.Mutex
	quiz       *model.Quiz
	classLevel string
	subject    string
	lastSeen   time.Time
}

// SetQuiz stores the quiz awaiting submission, replacing any earlier one.
func (s *Session) SetQuiz(q model.Quiz) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quiz = &q
}

// Quiz returns the pending quiz, if any.
func (s *Session) Quiz() (model.Quiz, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quiz == nil {
		return model.Quiz{}, false
	}
	return *s.quiz, true
}

// TakeQuiz returns the pending quiz and clears it.
func (s *Session) TakeQuiz() (model.Quiz, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quiz == nil {
		return model.Quiz{}, false
	}
	q := *s.quiz
	s.quiz = nil
	return q, true
}

// SetSelection remembers the class and subject last chosen. Blank values
// leave the current choice unchanged.
func (s *Session) SetSelection(classLevel, subject string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if classLevel != "" {
		s.classLevel = classLevel
	}
	if subject != "" {
		s.subject = subject
	}
}

// Selection returns the remembered class and subject.
func (s *Session) Selection() (classLevel, subject string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.classLevel, s.subject
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Manager indexes live sessions by ID.
type Manager struct {
	mu               sync.Mutex
	sessions         map[string]*Session
	ttl              time.Duration
	maxSessions      int
	maxConversations int
	defaultClass     string
	defaultSubject   string
	now              func() time.Time
}

// Options configures a Manager. Zero values select defaults.
type Options struct {
	TTL              time.Duration
	MaxSessions      int
	MaxConversations int
	DefaultClass     string
	DefaultSubject   string
}

// NewManager creates an empty Manager.
func NewManager(opts Options) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	return &Manager{
		sessions:         make(map[string]*Session),
		ttl:              opts.TTL,
		maxSessions:      opts.MaxSessions,
		maxConversations: opts.MaxConversations,
		defaultClass:     opts.DefaultClass,
		defaultSubject:   opts.DefaultSubject,
		now:              time.Now,
	}
}

// TTL returns the idle timeout.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Create starts a new session with a random ID. At capacity, expired
// sessions are dropped first, then the one idle the longest.
func (m *Manager) Create() *Session {
	now := m.now()
	s := &Session{
		ID:         uuid.NewString(),
		Memory:     memory.New(m.maxConversations),
		classLevel: m.defaultClass,
		subject:    m.defaultSubject,
		lastSeen:   now,
	}
	m.mu.Lock()
	if len(m.sessions) >= m.maxSessions {
		m.evictLocked(now)
	}
	m.sessions[s.ID] = s
	m.mu.Unlock()
	slog.Debug("session created", "session", s.ID)
	return s
}

// evictLocked makes room for one session. m.mu must be held.
func (m *Manager) evictLocked(now time.Time) {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, s := range m.sessions {
		seen := s.idleSince()
		if now.Sub(seen) > m.ttl {
			delete(m.sessions, id)
			continue
		}
		if oldestID == "" || seen.Before(oldest) {
			oldestID, oldest = id, seen
		}
	}
	if len(m.sessions) >= m.maxSessions && oldestID != "" {
		delete(m.sessions, oldestID)
		slog.Warn("session limit reached, evicted idle session", "session", oldestID, "limit", m.maxSessions)
	}
}

// Get returns a live session and marks it as used. Expired sessions are
// removed and reported as missing.
func (m *Manager) Get(id string) (*Session, bool) {
	now := m.now()
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok && now.Sub(s.idleSince()) > m.ttl {
		delete(m.sessions, id)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return nil, false
	}
	s.touch(now)
	return s, true
}

// GetOrCreate returns the session for id, or a fresh one when id is
// unknown or expired. created reports which.
func (m *Manager) GetOrCreate(id string) (s *Session, created bool) {
	if id != "" {
		if s, ok := m.Get(id); ok {
			return s, false
		}
	}
	return m.Create(), true
}

// Delete forgets a session.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len returns the number of tracked sessions, expired or not.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed.
func (m *Manager) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if now.Sub(s.idleSince()) > m.ttl {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = m.ttl / 4
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.Sweep(); n > 0 {
				slog.Info("expired sessions removed", "count", n, "remaining", m.Len())
			}
		}
	}
}
