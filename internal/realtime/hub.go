// Package realtime tracks connected notification sessions and pushes events
// to them. The hub is process-wide state with explicit construction at start
// and drain on shutdown; the durable inbox, not this channel, is the
// correctness boundary for delivery.
package realtime

import (
	"sync"

	"go.uber.org/zap"
)

// Session is one connected client for a user. A user may hold several
// concurrent sessions (multiple tabs, devices).
type Session struct {
	UserID string

	send chan []byte
	once sync.Once
}

// Outbox exposes queued payloads for the transport write loop. The channel
// closes when the session is unregistered or the hub shuts down.
func (s *Session) Outbox() <-chan []byte {
	return s.send
}

func (s *Session) close() {
	s.once.Do(func() { close(s.send) })
}

// Hub is the connected-session registry, keyed by user id and guarded by its
// own lock. It has no lifecycle tie to any ticket.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*Session]struct{}
	buffer   int
	closed   bool
	logger   *zap.Logger
}

// NewHub creates the registry. buffer bounds each session's outbox.
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = 32
	}
	return &Hub{
		sessions: make(map[string]map[*Session]struct{}),
		buffer:   buffer,
		logger:   logger,
	}
}

// Register adds a session for the user. Returns nil after Shutdown.
func (h *Hub) Register(userID string) *Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	session := &Session{UserID: userID, send: make(chan []byte, h.buffer)}
	if h.sessions[userID] == nil {
		h.sessions[userID] = make(map[*Session]struct{})
	}
	h.sessions[userID][session] = struct{}{}
	return session
}

// Unregister removes the session and closes its outbox.
func (h *Hub) Unregister(session *Session) {
	if session == nil {
		return
	}
	h.mu.Lock()
	if set, ok := h.sessions[session.UserID]; ok {
		delete(set, session)
		if len(set) == 0 {
			delete(h.sessions, session.UserID)
		}
	}
	h.mu.Unlock()
	session.close()
}

// Connected reports whether the user has at least one active session.
func (h *Hub) Connected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID]) > 0
}

// Push delivers the payload to every session of the user without blocking.
// A session whose outbox is full misses the message; the client recovers it
// from the inbox on the next hydration. Returns true when at least one
// session accepted the payload.
func (h *Hub) Push(userID string, payload []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := false
	for session := range h.sessions[userID] {
		select {
		case session.send <- payload:
			delivered = true
		default:
			h.logger.Warn("session outbox full, dropping push", zap.String("user_id", userID))
		}
	}
	return delivered
}

// Shutdown drains the registry and closes every session outbox. Subsequent
// Register calls return nil.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]map[*Session]struct{})
	h.closed = true
	h.mu.Unlock()

	for _, set := range sessions {
		for session := range set {
			session.close()
		}
	}
}
