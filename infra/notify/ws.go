package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/veeo/driver-dispatch/core/model"
)

// ErrNoSession is returned when the recipient has no live WebSocket session.
var ErrNoSession = errors.New("no websocket session")

// wsSession serializes writes to one connection.
type wsSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *wsSession) send(n model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(n)
}

// WSProvider delivers notifications over live driver WebSocket sessions.
type WSProvider struct {
	mu       sync.RWMutex
	sessions map[string]*wsSession
}

func NewWSProvider() *WSProvider {
	return &WSProvider{sessions: make(map[string]*wsSession)}
}

// Register attaches a connection to a recipient id, replacing any previous
// session.
func (w *WSProvider) Register(recipientID string, conn *websocket.Conn) {
	w.mu.Lock()
	w.sessions[recipientID] = &wsSession{conn: conn}
	w.mu.Unlock()
}

// Unregister drops the session without closing the connection.
func (w *WSProvider) Unregister(recipientID string) {
	w.mu.Lock()
	delete(w.sessions, recipientID)
	w.mu.Unlock()
}

func (w *WSProvider) Send(_ context.Context, n model.Notification) (bool, error) {
	w.mu.RLock()
	s, ok := w.sessions[n.RecipientID]
	w.mu.RUnlock()
	if !ok {
		return false, ErrNoSession
	}
	if err := s.send(n); err != nil {
		return false, err
	}
	return true, nil
}
