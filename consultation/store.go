package consultation

import "sync"

// Store holds the live sessions. Completed or abandoned sessions leave
// the map through Remove; their durable form lives in the repository.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

func (st *Store) Add(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.ID] = s
}

func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Remove drops the session and cancels any pending timers so no
// scheduled continuation fires after teardown.
func (st *Store) Remove(id string) (*Session, bool) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if ok {
		s.CancelTimers()
	}
	return s, ok
}
