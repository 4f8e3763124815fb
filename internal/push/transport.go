package push

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"beacon/pkg/logging"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/tmaxmax/go-sse"
)

// maxMessageSize bounds POST bodies so a single client cannot exhaust memory.
const maxMessageSize = 4 * 1024 * 1024

// SessionTransport binds one SSE stream to one engine session. It satisfies
// the engine's ClientSession contract so the engine can push notifications,
// and it correlates POSTed requests back to its own stream: the response to a
// message never leaves on another session's connection.
//
// All writes to the underlying stream are serialized through a mutex; the
// notification pump and concurrent POSTs never interleave partial events.
type SessionTransport struct {
	id     string
	engine *server.MCPServer
	sess   *sse.Session

	notifications chan mcp.JSONRPCNotification
	initialized   atomic.Bool
	lastActivity  atomic.Int64

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

// NewSessionTransport creates a transport for an upgraded stream with a fresh
// random session ID.
func NewSessionTransport(engine *server.MCPServer, sess *sse.Session) *SessionTransport {
	t := &SessionTransport{
		id:            uuid.New().String(),
		engine:        engine,
		sess:          sess,
		notifications: make(chan mcp.JSONRPCNotification, 100),
		done:          make(chan struct{}),
	}
	t.touch()
	return t
}

// touch records activity for idle-session accounting.
func (t *SessionTransport) touch() {
	t.lastActivity.Store(time.Now().UnixNano())
}

// LastActivity returns the time of the most recent event or message on this
// transport.
func (t *SessionTransport) LastActivity() time.Time {
	return time.Unix(0, t.lastActivity.Load())
}

// SessionID implements server.ClientSession.
func (t *SessionTransport) SessionID() string {
	return t.id
}

// Initialize implements server.ClientSession.
func (t *SessionTransport) Initialize() {
	t.initialized.Store(true)
}

// Initialized implements server.ClientSession.
func (t *SessionTransport) Initialized() bool {
	return t.initialized.Load()
}

// NotificationChannel implements server.ClientSession. The engine writes
// server-initiated notifications here; Run drains them onto the stream.
func (t *SessionTransport) NotificationChannel() chan<- mcp.JSONRPCNotification {
	return t.notifications
}

// SendEndpointEvent streams the per-session message endpoint URL as the first
// event, telling the client where to POST correlated requests.
func (t *SessionTransport) SendEndpointEvent(endpointURL string) error {
	return t.sendEvent("endpoint", endpointURL)
}

// Run pumps engine notifications onto the stream until the connection context
// is cancelled or the transport is closed. It blocks, keeping the HTTP
// handler (and thus the connection) alive.
func (t *SessionTransport) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.done:
			return
		case notification := <-t.notifications:
			data, err := json.Marshal(notification)
			if err != nil {
				logging.Error("Push", err, "Failed to marshal notification for session %s",
					logging.TruncateSessionID(t.id))
				continue
			}
			if err := t.sendEvent("message", string(data)); err != nil {
				logging.Warn("Push", "Failed to push notification to session %s: %v",
					logging.TruncateSessionID(t.id), err)
				return
			}
		}
	}
}

// HandlePostMessage processes one client request POSTed against this session:
// the raw body goes to the engine under this session's context, and any
// response is delivered over this session's stream. The POST itself is
// acknowledged with 202 Accepted; the payload travels on the stream.
func (t *SessionTransport) HandlePostMessage(w http.ResponseWriter, r *http.Request) error {
	t.touch()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageSize))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return fmt.Errorf("read message body for session %s: %w", logging.TruncateSessionID(t.id), err)
	}

	ctx := t.engine.WithContext(r.Context(), t)
	response := t.engine.HandleMessage(ctx, json.RawMessage(body))

	// Notifications produce no response; there is nothing to stream.
	if response != nil {
		data, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "failed to encode response", http.StatusInternalServerError)
			return fmt.Errorf("marshal response for session %s: %w", logging.TruncateSessionID(t.id), err)
		}
		if err := t.sendEvent("message", string(data)); err != nil {
			http.Error(w, "failed to deliver response", http.StatusInternalServerError)
			return fmt.Errorf("deliver response to session %s: %w", logging.TruncateSessionID(t.id), err)
		}
	}

	w.WriteHeader(http.StatusAccepted)
	return nil
}

// sendEvent writes a single event and flushes it. The mutex keeps concurrent
// senders from interleaving on the stream.
func (t *SessionTransport) sendEvent(eventType, data string) error {
	t.touch()

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	select {
	case <-t.done:
		return fmt.Errorf("session %s is closed", logging.TruncateSessionID(t.id))
	default:
	}

	msg := sse.Message{Type: sse.Type(eventType)}
	msg.AppendData(data)
	if err := t.sess.Send(&msg); err != nil {
		return fmt.Errorf("send event: %w", err)
	}
	if err := t.sess.Flush(); err != nil {
		return fmt.Errorf("flush event: %w", err)
	}
	return nil
}

// Close disconnects the transport from the engine and stops the pump. It is
// idempotent; teardown problems are reported, never panicked. The
// notification channel is left open so a late engine write cannot crash.
func (t *SessionTransport) Close() error {
	t.closeOnce.Do(func() {
		if t.engine != nil {
			t.engine.UnregisterSession(context.Background(), t.id)
		}
		close(t.done)
		logging.Debug("Push", "Closed transport for session %s", logging.TruncateSessionID(t.id))
	})
	return nil
}
