package push

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSessionID(t *testing.T) {
	tests := []struct {
		name      string
		sessionID string
		wantErr   bool
	}{
		{"valid uuid-like", "550e8400-e29b-41d4-a716-446655440000", false},
		{"empty", "", true},
		{"at length limit", strings.Repeat("a", MaxSessionIDLength), false},
		{"over length limit", strings.Repeat("a", MaxSessionIDLength+1), true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := ValidateSessionID(test.sessionID)
			if test.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSessionRegistry_AddGetRemove(t *testing.T) {
	sr := NewSessionRegistry()
	tr := &SessionTransport{id: "session-1", done: make(chan struct{})}

	require.NoError(t, sr.Add(tr))
	assert.Equal(t, 1, sr.Count())

	got, ok := sr.Get("session-1")
	require.True(t, ok)
	assert.Same(t, tr, got)

	_, ok = sr.Get("session-2")
	assert.False(t, ok)

	removed, ok := sr.Remove("session-1")
	require.True(t, ok)
	assert.Same(t, tr, removed)
	assert.Equal(t, 0, sr.Count())

	_, ok = sr.Get("session-1")
	assert.False(t, ok)

	_, ok = sr.Remove("session-1")
	assert.False(t, ok)
}

func TestSessionRegistry_RejectsInvalidID(t *testing.T) {
	sr := NewSessionRegistry()

	err := sr.Add(&SessionTransport{id: "", done: make(chan struct{})})
	var invalidErr *InvalidSessionIDError
	require.ErrorAs(t, err, &invalidErr)

	err = sr.Add(&SessionTransport{id: strings.Repeat("x", MaxSessionIDLength+1), done: make(chan struct{})})
	require.ErrorAs(t, err, &invalidErr)

	assert.Equal(t, 0, sr.Count())
}

func TestSessionRegistry_RejectsDuplicateID(t *testing.T) {
	sr := NewSessionRegistry()

	require.NoError(t, sr.Add(&SessionTransport{id: "dup", done: make(chan struct{})}))
	err := sr.Add(&SessionTransport{id: "dup", done: make(chan struct{})})

	var dupErr *DuplicateSessionError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "dup", dupErr.SessionID)
	assert.Equal(t, 1, sr.Count())
}

func TestSessionRegistry_EnforcesLimit(t *testing.T) {
	sr := NewSessionRegistryWithLimit(2)

	require.NoError(t, sr.Add(&SessionTransport{id: "a", done: make(chan struct{})}))
	require.NoError(t, sr.Add(&SessionTransport{id: "b", done: make(chan struct{})}))
	assert.False(t, sr.CanAccept())

	err := sr.Add(&SessionTransport{id: "c", done: make(chan struct{})})
	var limitErr *SessionLimitExceededError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, 2, limitErr.Limit)

	// Removing one frees a slot.
	sr.Remove("a")
	assert.True(t, sr.CanAccept())
	assert.NoError(t, sr.Add(&SessionTransport{id: "c", done: make(chan struct{})}))
}

func TestSessionRegistry_ReapsIdleSessions(t *testing.T) {
	sr := NewSessionRegistry()

	stale := &SessionTransport{id: "stale", done: make(chan struct{})}
	stale.lastActivity.Store(time.Now().Add(-time.Hour).UnixNano())

	fresh := &SessionTransport{id: "fresh", done: make(chan struct{})}
	fresh.touch()

	require.NoError(t, sr.Add(stale))
	require.NoError(t, sr.Add(fresh))

	sr.reapIdle(30 * time.Minute)

	_, ok := sr.Get("stale")
	assert.False(t, ok)
	_, ok = sr.Get("fresh")
	assert.True(t, ok)
	assert.Equal(t, 1, sr.Count())
}
