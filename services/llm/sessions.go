package llm

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrSessionUnknown indicates a query referenced a handle this adapter
// does not hold, typically a handle from a previous process.
var ErrSessionUnknown = errors.New("unknown session handle")

// sessionLog emulates server-side sessions for chat APIs that are
// stateless on the wire. Each handle maps to the full message history,
// which the adapter replays on every session-bound query.
type sessionLog struct {
	mu       sync.Mutex
	sessions map[string][]Message
}

func newSessionLog() *sessionLog {
	return &sessionLog{sessions: make(map[string][]Message)}
}

// create opens a new session seeded with the given messages and returns
// its handle.
func (s *sessionLog) create(seed ...Message) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = append([]Message(nil), seed...)
	s.mu.Unlock()
	return id
}

// history returns a copy of the session's messages.
func (s *sessionLog) history(id string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionUnknown
	}
	return append([]Message(nil), msgs...), nil
}

// append records turns onto an existing session.
func (s *sessionLog) append(id string, msgs ...Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrSessionUnknown
	}
	s.sessions[id] = append(s.sessions[id], msgs...)
	return nil
}

// drop discards a session. Dropping an unknown handle is a no-op.
func (s *sessionLog) drop(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}
