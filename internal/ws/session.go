package ws

import (
	"errors"
	"sync"
)

// Conn is the subset of *websocket.Conn the hub uses; tests substitute a
// fake.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v any) error
	Close() error
}

var ErrNoSession = errors.New("no open session")

// Session is one connected party's duplex channel. Writes race between the
// read-loop replies and out-of-band notifies, so they serialize on mu.
type Session struct {
	Role string
	ID   string

	conn Conn
	mu   sync.Mutex
}

func (s *Session) Send(payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(payload)
}
