package push

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmaxmax/go-sse"
)

const testBasePath = "/mcp"

func newTestHandler(t *testing.T) (*Handler, *SessionRegistry, *httptest.Server) {
	t.Helper()

	engine := server.NewMCPServer("push-test", "0.0.1",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, true),
		server.WithPromptCapabilities(true),
	)
	registry := NewSessionRegistry()
	handler := NewHandler(engine, registry, testBasePath)

	ts := httptest.NewServer(handler.Routes())
	t.Cleanup(ts.Close)
	t.Cleanup(registry.Shutdown)

	return handler, registry, ts
}

// openStream connects to the stream endpoint and returns a channel of events
// plus a cancel func that drops the connection.
func openStream(t *testing.T, baseURL string) (<-chan sse.Event, context.CancelFunc) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+testBasePath+"/sse", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	events := make(chan sse.Event, 10)
	go func() {
		defer resp.Body.Close()
		defer close(events)
		for ev, err := range sse.Read(resp.Body, nil) {
			if err != nil {
				return
			}
			events <- ev
		}
	}()

	return events, cancel
}

// waitEvent receives the next event or fails the test.
func waitEvent(t *testing.T, events <-chan sse.Event) sse.Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "stream closed before expected event")
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return sse.Event{}
	}
}

// sessionIDFromEndpoint extracts the session ID from an endpoint event URL.
func sessionIDFromEndpoint(t *testing.T, ev sse.Event) string {
	t.Helper()
	require.Equal(t, "endpoint", ev.Type)
	require.Contains(t, ev.Data, testBasePath+"/messages?sessionId=")
	parts := strings.SplitN(ev.Data, "sessionId=", 2)
	require.Len(t, parts, 2)
	return parts[1]
}

func TestHandler_OpenSessionAnnouncesEndpoint(t *testing.T) {
	_, registry, ts := newTestHandler(t)

	events, cancel := openStream(t, ts.URL)
	defer cancel()

	ev := waitEvent(t, events)
	sessionID := sessionIDFromEndpoint(t, ev)
	assert.NotEmpty(t, sessionID)

	assert.Eventually(t, func() bool { return registry.Count() == 1 }, time.Second, 10*time.Millisecond)
	_, ok := registry.Get(sessionID)
	assert.True(t, ok)
}

func TestHandler_ConcurrentSessionsGetUniqueIDs(t *testing.T) {
	_, registry, ts := newTestHandler(t)

	seen := make(map[string]bool)
	for i := 0; i < 3; i++ {
		events, cancel := openStream(t, ts.URL)
		defer cancel()
		id := sessionIDFromEndpoint(t, waitEvent(t, events))
		assert.False(t, seen[id], "session ID %s issued twice", id)
		seen[id] = true
	}

	assert.Eventually(t, func() bool { return registry.Count() == 3 }, time.Second, 10*time.Millisecond)
}

func TestHandler_PostMissingSessionID(t *testing.T) {
	_, registry, ts := newTestHandler(t)

	resp, err := http.Post(ts.URL+testBasePath+"/messages", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, registry.Count())
}

func TestHandler_PostUnknownSession(t *testing.T) {
	_, _, ts := newTestHandler(t)

	resp, err := http.Post(ts.URL+testBasePath+"/messages?sessionId=no-such-session",
		"application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_PostRoutesResponseToOwnStream(t *testing.T) {
	_, _, ts := newTestHandler(t)

	events, cancel := openStream(t, ts.URL)
	defer cancel()
	sessionID := sessionIDFromEndpoint(t, waitEvent(t, events))

	body := `{"jsonrpc":"2.0","id":1,"method":"ping"}`
	resp, err := http.Post(fmt.Sprintf("%s%s/messages?sessionId=%s", ts.URL, testBasePath, sessionID),
		"application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	// The POST only acknowledges; the response payload arrives on the stream.
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	ev := waitEvent(t, events)
	assert.Equal(t, "message", ev.Type)
	assert.Contains(t, ev.Data, `"jsonrpc":"2.0"`)
	assert.Contains(t, ev.Data, `"id":1`)
}

func TestHandler_SessionsCloseIndependently(t *testing.T) {
	_, registry, ts := newTestHandler(t)

	eventsA, cancelA := openStream(t, ts.URL)
	sessionA := sessionIDFromEndpoint(t, waitEvent(t, eventsA))

	eventsB, cancelB := openStream(t, ts.URL)
	defer cancelB()
	sessionB := sessionIDFromEndpoint(t, waitEvent(t, eventsB))

	cancelA()
	assert.Eventually(t, func() bool {
		_, ok := registry.Get(sessionA)
		return !ok
	}, 2*time.Second, 10*time.Millisecond)

	// Messages to the closed session are rejected.
	resp, err := http.Post(fmt.Sprintf("%s%s/messages?sessionId=%s", ts.URL, testBasePath, sessionA),
		"application/json", strings.NewReader(`{"jsonrpc":"2.0","id":2,"method":"ping"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// The surviving session is unaffected.
	resp, err = http.Post(fmt.Sprintf("%s%s/messages?sessionId=%s", ts.URL, testBasePath, sessionB),
		"application/json", strings.NewReader(`{"jsonrpc":"2.0","id":3,"method":"ping"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	ev := waitEvent(t, eventsB)
	assert.Equal(t, "message", ev.Type)
	assert.Contains(t, ev.Data, `"id":3`)
}

func TestHandler_SessionLimitRefusedBeforeStream(t *testing.T) {
	engine := server.NewMCPServer("push-test", "0.0.1")
	registry := NewSessionRegistryWithLimit(1)
	handler := NewHandler(engine, registry, testBasePath)
	ts := httptest.NewServer(handler.Routes())
	t.Cleanup(ts.Close)
	t.Cleanup(registry.Shutdown)

	events, cancel := openStream(t, ts.URL)
	defer cancel()
	sessionIDFromEndpoint(t, waitEvent(t, events))

	resp, err := http.Get(ts.URL + testBasePath + "/sse")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHandler_MissingEngineFailsBeforeStream(t *testing.T) {
	handler := NewHandler(nil, NewSessionRegistry(), testBasePath)
	ts := httptest.NewServer(handler.Routes())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + testBasePath + "/sse")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestHandler_Health(t *testing.T) {
	_, _, ts := newTestHandler(t)

	resp, err := http.Get(ts.URL + testBasePath + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var payload map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "ok", payload["status"])

	_, err = time.Parse(time.RFC3339, payload["timestamp"])
	assert.NoError(t, err)
}
