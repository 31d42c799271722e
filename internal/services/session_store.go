package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionIdleTimeout drops sessions nobody has touched for a day
const DefaultSessionIdleTimeout = 24 * time.Hour

// Session holds per-visitor flags such as admin login and unlocked shares
type Session struct {
	ID string

	mu     sync.Mutex
	flags  map[string]bool
	isNew  bool
	seenAt time.Time
}

func (s *Session) Flag(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags[name]
}

func (s *Session) SetFlag(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[name] = true
}

// IsNew reports whether the session has never been saved
func (s *Session) IsNew() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isNew
}

// SessionStore keeps sessions in process memory. They do not survive a
// restart; the admin bearer token covers that case.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	idle     time.Duration
	now      func() time.Time
}

func NewSessionStore(idle time.Duration) *SessionStore {
	if idle <= 0 {
		idle = DefaultSessionIdleTimeout
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		idle:     idle,
		now:      time.Now,
	}
}

// Load returns the live session for id, or a fresh unsaved one
func (st *SessionStore) Load(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	if sess, ok := st.sessions[id]; ok {
		if now.Sub(sess.seenAt) <= st.idle {
			sess.seenAt = now
			return sess
		}
		delete(st.sessions, id)
	}
	return &Session{ID: uuid.NewString(), flags: make(map[string]bool), isNew: true, seenAt: now}
}

// Save registers the session and sweeps expired ones
func (st *SessionStore) Save(sess *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	sess.mu.Lock()
	sess.isNew = false
	sess.seenAt = now
	sess.mu.Unlock()
	st.sessions[sess.ID] = sess

	for id, s := range st.sessions {
		if now.Sub(s.seenAt) > st.idle {
			delete(st.sessions, id)
		}
	}
}

func (st *SessionStore) Destroy(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}
