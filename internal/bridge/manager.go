package bridge

import (
	"log/slog"
	"sync"
	"time"

	"github.com/BuddhimaZ/twilio-agent/internal/metrics"
)

// Manager tracks the live call sessions of the process. Sessions share no
// state with each other; the registry exists for the monitoring API and
// process-wide metrics.
type Manager struct {
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu       sync.RWMutex
	sessions map[string]*CallSession
}

// NewManager creates an empty session registry
func NewManager(logger *slog.Logger, m *metrics.Metrics) *Manager {
	return &Manager{
		logger:   logger,
		metrics:  m,
		sessions: make(map[string]*CallSession),
	}
}

// Register adds a session at call start
func (m *Manager) Register(session *CallSession) {
	m.mu.Lock()
	m.sessions[session.ID] = session
	count := len(m.sessions)
	m.mu.Unlock()

	m.metrics.RecordSessionStarted()
	m.logger.Info("Call session registered",
		slog.String("session_id", session.ID),
		slog.Int("active_sessions", count),
	)
}

// Unregister removes a session at teardown and records its duration
func (m *Manager) Unregister(session *CallSession) {
	m.mu.Lock()
	delete(m.sessions, session.ID)
	count := len(m.sessions)
	m.mu.Unlock()

	duration := time.Since(session.StartTime)
	m.metrics.RecordSessionEnded(duration.Seconds())
	m.logger.Info("Call session unregistered",
		slog.String("session_id", session.ID),
		slog.Float64("duration_seconds", duration.Seconds()),
		slog.Int("active_sessions", count),
	)
}

// GetSession returns a session by its identifier
func (m *Manager) GetSession(id string) (*CallSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[id]
	return session, exists
}

// GetAllSessions returns all currently active sessions
func (m *Manager) GetAllSessions() []*CallSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*CallSession, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}

// GetActiveSessionCount returns the number of active sessions
func (m *Manager) GetActiveSessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
