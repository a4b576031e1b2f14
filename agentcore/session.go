package agentcore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionState represents the current lifecycle state of a session.
type SessionState string

const (
	StateIdle       SessionState = "idle"
	StateProcessing SessionState = "processing"
	StateClosed     SessionState = "closed"
)

// Session is one isolated conversation: identity, history, and the
// outbound event channel. History is owned exclusively by the session's
// loop; no other component mutates it.
type Session struct {
	id        string
	createdAt time.Time
	emitter   *EventEmitter

	// ctx is cancelled on destroy, tearing down any in-flight loop.
	ctx    context.Context
	cancel context.CancelFunc

	// runMu serializes loop invocations: at most one Orchestrator pass
	// mutates this session at a time.
	runMu sync.Mutex

	mu         sync.Mutex
	history    []Turn
	state      SessionState
	lastActive time.Time
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// CreatedAt returns the session creation time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Events returns the session's ordered event channel. A reconnecting
// client resumes reading the same channel; it never carries another
// session's events.
func (s *Session) Events() <-chan Event {
	return s.emitter.Events()
}

// State returns the current session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History returns a copy of the conversation history.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := make([]Turn, len(s.history))
	copy(h, s.history)
	return h
}

func (s *Session) appendTurn(t Turn) {
	s.mu.Lock()
	s.history = append(s.history, t)
	s.lastActive = time.Now()
	s.mu.Unlock()
}

func (s *Session) setState(state SessionState) {
	s.mu.Lock()
	s.state = state
	s.lastActive = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// SessionRegistry owns session identity and per-session event channel
// lifecycle. Destroying a session cancels its in-flight loop, rejects its
// pending approvals, and closes its channel.
type SessionRegistry struct {
	eventBuffer int
	idleTimeout time.Duration
	gate        *ApprovalGate
	logger      *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session

	stop     chan struct{}
	stopOnce sync.Once
}

// NewSessionRegistry creates a registry. If idleTimeout is positive a
// background sweeper destroys sessions idle for longer than that.
func NewSessionRegistry(eventBuffer int, idleTimeout time.Duration, gate *ApprovalGate, logger *slog.Logger) *SessionRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &SessionRegistry{
		eventBuffer: eventBuffer,
		idleTimeout: idleTimeout,
		gate:        gate,
		logger:      logger,
		sessions:    make(map[string]*Session),
		stop:        make(chan struct{}),
	}
	if idleTimeout > 0 {
		go r.sweep()
	}
	return r
}

// Create allocates a new session with a fresh identity and event channel.
func (r *SessionRegistry) Create() (*Session, error) {
	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	s := &Session{
		id:         uuid.New().String(),
		createdAt:  now,
		lastActive: now,
		emitter:    NewEventEmitter("", r.eventBuffer),
		ctx:        ctx,
		cancel:     cancel,
		state:      StateIdle,
	}
	s.emitter.sessionID = s.id

	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()

	r.logger.Debug("session created", "session_id", s.id)
	return s, nil
}

// Get returns a session by ID, or ErrSessionNotFound.
func (r *SessionRegistry) Get(sessionID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Destroy tears a session down: cancels any in-flight loop, rejects its
// pending approvals, and closes its event channel. Destroying an unknown
// session returns ErrSessionNotFound.
func (r *SessionRegistry) Destroy(sessionID string) error {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	if ok {
		delete(r.sessions, sessionID)
	}
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	s.setState(StateClosed)
	s.cancel()
	if r.gate != nil {
		r.gate.RejectSession(sessionID)
	}
	s.emitter.Close()

	r.logger.Debug("session destroyed", "session_id", sessionID)
	return nil
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close stops the sweeper and destroys all sessions.
func (r *SessionRegistry) Close() {
	r.stopOnce.Do(func() { close(r.stop) })

	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		_ = r.Destroy(id)
	}
}

// sweep destroys idle sessions on a fraction of the idle timeout.
func (r *SessionRegistry) sweep() {
	interval := r.idleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-r.idleTimeout)
			r.mu.Lock()
			var idle []string
			for id, s := range r.sessions {
				if s.State() != StateProcessing && s.idleSince().Before(cutoff) {
					idle = append(idle, id)
				}
			}
			r.mu.Unlock()
			for _, id := range idle {
				r.logger.Info("destroying idle session", "session_id", id)
				_ = r.Destroy(id)
			}
		}
	}
}
