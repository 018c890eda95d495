package telegram

import (
	"sync"
	"time"
)

// DefaultSessionTTL is how long a pending dialogue waits for input
const DefaultSessionTTL = 15 * time.Minute

// State is where a chat is in the dialogue
type State int

const (
	StateIdle State = iota
	StateAwaitingTransaction
)

type session struct {
	state   State
	expires time.Time
}

// SessionStore maps chat ids to dialogue state. Safe for concurrent use.
// Entries expire after the TTL and read back as StateIdle.
type SessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[int64]session
}

// NewSessionStore creates an empty store; ttl <= 0 uses DefaultSessionTTL
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[int64]session),
	}
}

// Set puts the chat into state and restarts its expiry
func (s *SessionStore) Set(chatID int64, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state == StateIdle {
		delete(s.sessions, chatID)
		return
	}
	s.sessions[chatID] = session{state: state, expires: s.now().Add(s.ttl)}
}

// Get returns the chat's current state
func (s *SessionStore) Get(chatID int64) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[chatID]
	if !ok {
		return StateIdle
	}
	if !s.now().Before(sess.expires) {
		delete(s.sessions, chatID)
		return StateIdle
	}
	return sess.state
}

// Take returns the chat's current state and clears it
func (s *SessionStore) Take(chatID int64) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[chatID]
	delete(s.sessions, chatID)
	if !ok || !s.now().Before(sess.expires) {
		return StateIdle
	}
	return sess.state
}

// Clear returns the chat to StateIdle
func (s *SessionStore) Clear(chatID int64) {
	s.Set(chatID, StateIdle)
}

// Prune drops expired entries and returns how many were dropped
func (s *SessionStore) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	dropped := 0
	for id, sess := range s.sessions {
		if !now.Before(sess.expires) {
			delete(s.sessions, id)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of chats with a pending dialogue, expired or not
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
