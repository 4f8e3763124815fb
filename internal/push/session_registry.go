package push

import (
	"fmt"
	"sync"
	"time"

	"beacon/pkg/logging"
)

// Session ID validation constants.
const (
	// MaxSessionIDLength is the maximum allowed length for session IDs.
	// This prevents memory exhaustion using extremely long session IDs.
	MaxSessionIDLength = 256

	// DefaultMaxSessions is the default maximum number of concurrent
	// sessions. This bounds registry growth under connection floods.
	DefaultMaxSessions = 10000

	// DefaultIdleTimeout is how long a session may sit with no traffic
	// before the cleanup loop reclaims it. Streams whose peers vanished
	// without a proper disconnect would otherwise leak registry entries.
	DefaultIdleTimeout = 30 * time.Minute

	// cleanupInterval is how often the cleanup loop scans for idle sessions.
	cleanupInterval = time.Minute
)

// SessionRegistry maintains the live mapping of session IDs to their
// transports. One entry exists per open push connection; entries are inserted
// when a connection is accepted and removed synchronously when it closes, so
// no message can route to a transport that is being torn down.
//
// All access is mutex-guarded: an insert, lookup, or delete fully precedes or
// follows any other, never racing with a dereference.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*SessionTransport

	maxSessions int

	cleanupStop chan struct{}
	stopOnce    sync.Once
}

// NewSessionRegistry creates a session registry with the default session
// limit.
func NewSessionRegistry() *SessionRegistry {
	return NewSessionRegistryWithLimit(DefaultMaxSessions)
}

// NewSessionRegistryWithLimit creates a session registry with a custom
// session limit (0 = unlimited, not recommended).
func NewSessionRegistryWithLimit(maxSessions int) *SessionRegistry {
	if maxSessions < 0 {
		maxSessions = DefaultMaxSessions
	}
	return &SessionRegistry{
		sessions:    make(map[string]*SessionTransport),
		maxSessions: maxSessions,
		cleanupStop: make(chan struct{}),
	}
}

// StartCleanup launches the background loop that reclaims sessions idle
// longer than idleTimeout. A non-positive timeout disables cleanup. Stop
// ends the loop.
func (sr *SessionRegistry) StartCleanup(idleTimeout time.Duration) {
	if idleTimeout <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sr.cleanupStop:
				return
			case <-ticker.C:
				sr.reapIdle(idleTimeout)
			}
		}
	}()
}

// Stop terminates the cleanup loop. It does not close live sessions; use
// Shutdown for that.
func (sr *SessionRegistry) Stop() {
	sr.stopOnce.Do(func() {
		close(sr.cleanupStop)
	})
}

// reapIdle removes and closes sessions with no traffic since the cutoff.
func (sr *SessionRegistry) reapIdle(idleTimeout time.Duration) {
	cutoff := time.Now().Add(-idleTimeout)

	sr.mu.Lock()
	var idle []*SessionTransport
	for id, t := range sr.sessions {
		if t.LastActivity().Before(cutoff) {
			idle = append(idle, t)
			delete(sr.sessions, id)
		}
	}
	sr.mu.Unlock()

	for _, t := range idle {
		logging.Info("SessionRegistry", "Reclaiming idle session: %s (last activity %s)",
			logging.TruncateSessionID(t.SessionID()), t.LastActivity().Format(time.RFC3339))
		if err := t.Close(); err != nil {
			logging.Warn("SessionRegistry", "Error closing idle session %s: %v",
				logging.TruncateSessionID(t.SessionID()), err)
		}
	}
}

// ValidateSessionID checks if a session ID is structurally acceptable.
func ValidateSessionID(sessionID string) error {
	if sessionID == "" {
		return &InvalidSessionIDError{Reason: "session ID cannot be empty"}
	}
	if len(sessionID) > MaxSessionIDLength {
		return &InvalidSessionIDError{Reason: fmt.Sprintf("session ID exceeds maximum length of %d", MaxSessionIDLength)}
	}
	return nil
}

// Add inserts a transport under its session ID. It fails when the ID is
// invalid, when the session limit is reached, or when an entry with the same
// ID is already live (at most one live entry per session ID).
func (sr *SessionRegistry) Add(t *SessionTransport) error {
	sessionID := t.SessionID()
	if err := ValidateSessionID(sessionID); err != nil {
		logging.Warn("SessionRegistry", "Rejected invalid session ID: %v", err)
		return err
	}

	sr.mu.Lock()
	defer sr.mu.Unlock()

	if _, exists := sr.sessions[sessionID]; exists {
		return &DuplicateSessionError{SessionID: sessionID}
	}
	if sr.maxSessions > 0 && len(sr.sessions) >= sr.maxSessions {
		logging.Warn("SessionRegistry", "Session limit reached (%d), rejecting new session: %s",
			sr.maxSessions, logging.TruncateSessionID(sessionID))
		return &SessionLimitExceededError{Limit: sr.maxSessions, Current: len(sr.sessions)}
	}

	sr.sessions[sessionID] = t
	logging.Debug("SessionRegistry", "Registered session: %s (total: %d)",
		logging.TruncateSessionID(sessionID), len(sr.sessions))
	return nil
}

// Get returns the transport for a session ID.
func (sr *SessionRegistry) Get(sessionID string) (*SessionTransport, bool) {
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, false
	}

	sr.mu.RLock()
	defer sr.mu.RUnlock()

	t, exists := sr.sessions[sessionID]
	return t, exists
}

// Remove deletes a session entry and returns the removed transport, if any.
// Removal is synchronous so subsequent lookups miss immediately; closing the
// transport itself is the caller's (asynchronous, best-effort) job.
func (sr *SessionRegistry) Remove(sessionID string) (*SessionTransport, bool) {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	t, exists := sr.sessions[sessionID]
	if !exists {
		return nil, false
	}
	delete(sr.sessions, sessionID)
	logging.Debug("SessionRegistry", "Removed session: %s (total: %d)",
		logging.TruncateSessionID(sessionID), len(sr.sessions))
	return t, true
}

// CanAccept reports whether a new session would currently be admitted.
func (sr *SessionRegistry) CanAccept() bool {
	sr.mu.RLock()
	defer sr.mu.RUnlock()
	return sr.maxSessions == 0 || len(sr.sessions) < sr.maxSessions
}

// Count returns the number of live sessions.
func (sr *SessionRegistry) Count() int {
	sr.mu.RLock()
	defer sr.mu.RUnlock()
	return len(sr.sessions)
}

// Shutdown removes and closes every live session. Close errors are logged,
// never propagated.
func (sr *SessionRegistry) Shutdown() {
	sr.mu.Lock()
	transports := make([]*SessionTransport, 0, len(sr.sessions))
	for _, t := range sr.sessions {
		transports = append(transports, t)
	}
	sr.sessions = make(map[string]*SessionTransport)
	sr.mu.Unlock()

	for _, t := range transports {
		if err := t.Close(); err != nil {
			logging.Warn("SessionRegistry", "Error closing transport for session %s: %v",
				logging.TruncateSessionID(t.SessionID()), err)
		}
	}
	logging.Debug("SessionRegistry", "Session registry stopped")
}

// InvalidSessionIDError is returned when a session ID fails validation.
type InvalidSessionIDError struct {
	Reason string
}

func (e *InvalidSessionIDError) Error() string {
	return "invalid session ID: " + e.Reason
}

// DuplicateSessionError is returned when a session ID is already live.
type DuplicateSessionError struct {
	SessionID string
}

func (e *DuplicateSessionError) Error() string {
	return "session already registered: " + logging.TruncateSessionID(e.SessionID)
}

// SessionLimitExceededError is returned when the maximum session limit is
// reached.
type SessionLimitExceededError struct {
	Limit   int
	Current int
}

func (e *SessionLimitExceededError) Error() string {
	return fmt.Sprintf("session limit exceeded: %d/%d sessions", e.Current, e.Limit)
}
