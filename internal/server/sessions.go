package server

import (
	"context"
	"sync"
	"time"

	"resumecvpro/internal/errors"
	"resumecvpro/internal/flow"
	"resumecvpro/internal/observability"
	"resumecvpro/internal/types"

	"github.com/google/uuid"
)

// ControllerFactory builds the flow controller of a new session.
type ControllerFactory func(lang types.LanguageCode) *flow.Controller

type session struct {
	controller *flow.Controller
	created    time.Time
	lastSeen   time.Time
}

// SessionManager owns one flow controller per client session and expires idle ones.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*session
	factory  ControllerFactory
	ttl      time.Duration
	max      int
	now      func() time.Time
	done     chan struct{}
	closed   bool
	metrics  *observability.Metrics
	logger   *errors.Logger
}

// NewSessionManager starts the janitor. ttl <= 0 disables expiry; maxSessions <= 0 means unbounded.
func NewSessionManager(factory ControllerFactory, ttl, cleanupInterval time.Duration, maxSessions int, metrics *observability.Metrics, logger *errors.Logger) *SessionManager {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	m := &SessionManager{
		sessions: make(map[string]*session),
		factory:  factory,
		ttl:      ttl,
		max:      maxSessions,
		now:      time.Now,
		done:     make(chan struct{}),
		metrics:  metrics,
		logger:   logger,
	}
	if ttl > 0 {
		if cleanupInterval <= 0 {
			cleanupInterval = ttl
		}
		go m.cleanupRoutine(cleanupInterval)
	}
	return m
}

// Create opens a session.
func (m *SessionManager) Create(lang types.LanguageCode) (string, *flow.Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.max > 0 && len(m.sessions) >= m.max {
		return "", nil, errors.NewStateError(errors.ErrCodeTooManySessions, "session limit reached, try again later", nil).
			WithContext("max_sessions", m.max)
	}

	id := uuid.NewString()
	now := m.now()
	c := m.factory(lang)
	m.sessions[id] = &session{controller: c, created: now, lastSeen: now}
	m.metrics.SessionOpened(context.Background())
	m.logger.Debug("Session created", "session_id", id, "active_sessions", len(m.sessions))
	return id, c, nil
}

// Get returns the controller of a live session and marks it as used.
func (m *SessionManager) Get(id string) (*flow.Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	s.lastSeen = m.now()
	return s.controller, true
}

// Delete closes a session. It reports whether the session existed.
func (m *SessionManager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(id, "deleted")
}

func (m *SessionManager) removeLocked(id, reason string) bool {
	s, ok := m.sessions[id]
	if !ok {
		return false
	}
	delete(m.sessions, id)
	_ = s.controller.Close()
	m.metrics.SessionClosed(context.Background(), reason)
	return true
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// GetStats returns session statistics
func (m *SessionManager) GetStats() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	steps := map[flow.Step]int{}
	for _, s := range m.sessions {
		steps[s.controller.Snapshot().Step]++
	}
	return map[string]any{
		"active_sessions": len(m.sessions),
		"max_sessions":    m.max,
		"ttl_seconds":     m.ttl.Seconds(),
		"by_step":         steps,
	}
}

func (m *SessionManager) cleanupRoutine(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.done:
			return
		}
	}
}

// cleanup closes sessions idle for longer than the TTL. Sessions with an
// analysis in flight are kept.
func (m *SessionManager) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	expired := 0
	for id, s := range m.sessions {
		if now.Sub(s.lastSeen) <= m.ttl {
			continue
		}
		if s.controller.Snapshot().Step == flow.StepAnalyzing {
			continue
		}
		m.removeLocked(id, "expired")
		expired++
	}

	m.logger.Debug("Session cleanup completed",
		"expired", expired,
		"remaining_sessions", len(m.sessions))
}

// Close stops the janitor and closes every session.
func (m *SessionManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.done)
	for id := range m.sessions {
		m.removeLocked(id, "shutdown")
	}
}
