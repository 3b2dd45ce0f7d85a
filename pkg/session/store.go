// Package session provides the in-memory, process-lifetime store of
// conversation histories, keyed by an opaque session id.
//
// The store is the only structure shared and mutated across concurrent
// request workers. Each session carries two locks: a short-lived mutex
// guarding the turn slice, and an exchange lock serializing the whole
// load-history, call-remote, append-turns sequence so that overlapping
// requests on one session id cannot interleave their histories.
package session

import (
	"sync"
	"time"

	"github.com/parleylabs/parley/pkg/chat"
)

// Store maps session ids to conversation histories. Sessions are created on
// first reference and live for the process lifetime unless swept.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// GetOrCreate returns the session for id, creating an empty one if it does
// not exist yet.
func (st *Store) GetOrCreate(id string) *Session {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if ok {
		return s
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[id]; ok {
		return s
	}
	s = &Session{now: st.now, lastActive: st.now()}
	st.sessions[id] = s
	return s
}

// Reset truncates the session's history to empty. Unknown ids get an empty
// session, so Reset is idempotent and never errors.
func (st *Store) Reset(id string) {
	st.GetOrCreate(id).Reset()
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep deletes every session for which evict returns true. It is the
// eviction hook for deployments that need to bound session growth; nothing
// in the relay calls it on its own.
func (st *Store) Sweep(evict func(id string, lastActive time.Time, turns int) bool) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, s := range st.sessions {
		lastActive, turns := s.stats()
		if evict(id, lastActive, turns) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// Session holds one ordered conversation history. The turn sequence strictly
// alternates user then assistant, starting with user; the persona preamble is
// never stored here.
type Session struct {
	exchangeMu sync.Mutex

	mu         sync.Mutex
	turns      []chat.Turn
	lastActive time.Time
	now        func() time.Time
}

// Exchange runs one full conversational exchange while holding the session's
// exchange lock: it snapshots the history, invokes call with it, and appends
// the user and assistant turns when call succeeds. The exchange lock is held
// across the remote call, so concurrent exchanges on the same session are
// serialized; Reset and History only contend for the short slice lock and are
// not blocked by an in-flight remote call.
func (s *Session) Exchange(userMessage string, call func(history []chat.Turn) (string, error)) (string, error) {
	s.exchangeMu.Lock()
	defer s.exchangeMu.Unlock()

	reply, err := call(s.History())
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns,
		chat.NewTurn(chat.RoleUser, userMessage),
		chat.NewTurn(chat.RoleAssistant, reply),
	)
	s.lastActive = s.now()
	return reply, nil
}

// History returns a copy of the stored turns in order.
func (s *Session) History() []chat.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]chat.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Reset truncates the history to empty.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
	s.lastActive = s.now()
}

// Len returns the number of stored turns.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

func (s *Session) stats() (time.Time, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive, len(s.turns)
}
