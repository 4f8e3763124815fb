package push

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"beacon/pkg/logging"

	"github.com/mark3labs/mcp-go/server"
	"github.com/tmaxmax/go-sse"
)

// Handler serves the push transport endpoints under a base path:
//
//	GET  {base}/sse       open a stream, announce the session endpoint
//	POST {base}/messages  submit a request correlated by sessionId
//	GET  {base}/health    liveness probe
//
// The handler multiplexes any number of independent sessions over one engine.
type Handler struct {
	engine   *server.MCPServer
	registry *SessionRegistry
	basePath string
}

// NewHandler creates a push handler routing into the given engine. basePath
// is the URL prefix the endpoints are mounted under, e.g. "/mcp".
func NewHandler(engine *server.MCPServer, registry *SessionRegistry, basePath string) *Handler {
	return &Handler{
		engine:   engine,
		registry: registry,
		basePath: basePath,
	}
}

// Routes returns the handler's endpoints mounted on a mux.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+h.basePath+"/sse", h.handleSSE)
	mux.HandleFunc("POST "+h.basePath+"/messages", h.handleMessage)
	mux.HandleFunc("GET "+h.basePath+"/health", h.handleHealth)
	return mux
}

// handleSSE accepts a new streaming connection. Setup order matters: the
// registry entry and the engine session are established before the handler
// blocks, so a POST arriving right after the endpoint event finds a routable
// session. On disconnect the registry entry is removed synchronously and the
// transport torn down in the background.
func (h *Handler) handleSSE(w http.ResponseWriter, r *http.Request) {
	// Refusals must happen before the stream starts; after the first flush
	// there is no way to change the status code.
	if h.engine == nil {
		logging.Error("Push", nil, "Streaming connection rejected: engine not initialized")
		http.Error(w, "server not ready", http.StatusInternalServerError)
		return
	}
	if !h.registry.CanAccept() {
		http.Error(w, "session limit reached", http.StatusServiceUnavailable)
		return
	}

	sess, err := sse.Upgrade(w, r)
	if err != nil {
		logging.Error("Push", err, "Failed to upgrade connection")
		http.Error(w, "failed to establish event stream", http.StatusInternalServerError)
		return
	}

	t := NewSessionTransport(h.engine, sess)
	if err := h.registry.Add(t); err != nil {
		logging.Error("Push", err, "Failed to register session %s", logging.TruncateSessionID(t.SessionID()))
		return
	}

	endpoint := fmt.Sprintf("%s/messages?sessionId=%s", h.basePath, t.SessionID())
	if err := t.SendEndpointEvent(endpoint); err != nil {
		logging.Warn("Push", "Failed to send endpoint event to session %s: %v",
			logging.TruncateSessionID(t.SessionID()), err)
		h.teardown(t)
		return
	}

	if err := h.engine.RegisterSession(r.Context(), t); err != nil {
		// The stream already started; no error payload can be sent.
		// Terminate the connection and let the client retry.
		logging.Error("Push", err, "Engine rejected session %s", logging.TruncateSessionID(t.SessionID()))
		h.teardown(t)
		return
	}

	logging.Info("Push", "Session opened: %s", logging.TruncateSessionID(t.SessionID()))

	t.Run(r.Context())

	logging.Info("Push", "Session closed: %s", logging.TruncateSessionID(t.SessionID()))
	h.teardown(t)
}

// teardown removes the session synchronously so no further message can route
// to it, then closes the transport asynchronously; teardown never blocks
// request handling and never propagates errors.
func (h *Handler) teardown(t *SessionTransport) {
	h.registry.Remove(t.SessionID())
	go func() {
		if err := t.Close(); err != nil {
			logging.Warn("Push", "Error closing session %s: %v", logging.TruncateSessionID(t.SessionID()), err)
		}
	}()
}

// handleMessage routes a POSTed request to its session's transport. Requests
// without a sessionId never touch the registry; unknown or expired sessions
// are a client error, not a server one.
func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		// Routing misses are expected traffic, not server faults.
		logging.Debug("Push", "Message without sessionId rejected")
		http.Error(w, "missing sessionId query parameter", http.StatusBadRequest)
		return
	}

	t, ok := h.registry.Get(sessionID)
	if !ok {
		logging.Debug("Push", "Message for unknown session rejected: %s", logging.TruncateSessionID(sessionID))
		http.Error(w, "session not found or expired", http.StatusNotFound)
		return
	}

	ww := &writeTracker{ResponseWriter: w}
	defer func() {
		if rec := recover(); rec != nil {
			logging.Error("Push", nil, "Panic handling message for session %s: %v",
				logging.TruncateSessionID(sessionID), rec)
			if !ww.wrote {
				http.Error(ww, "internal error", http.StatusInternalServerError)
			}
		}
	}()

	if err := t.HandlePostMessage(ww, r); err != nil {
		logging.Warn("Push", "Message handling failed for session %s: %v",
			logging.TruncateSessionID(sessionID), err)
	}
}

// writeTracker remembers whether any response bytes or status left already,
// so late failures do not try to rewrite the status line.
type writeTracker struct {
	http.ResponseWriter
	wrote bool
}

func (w *writeTracker) WriteHeader(code int) {
	w.wrote = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *writeTracker) Write(b []byte) (int, error) {
	w.wrote = true
	return w.ResponseWriter.Write(b)
}

// handleHealth reports liveness. The contract is a stable two-field JSON
// object so probes can parse it without versioning concerns.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	response := map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logging.Warn("Push", "Failed to write health response: %v", err)
	}
}
