package session

import (
	"sort"
	"sync"
	"time"
)

// DefaultMaxSessions bounds how many sessions a Store keeps in memory.
const DefaultMaxSessions = 64

type slot struct {
	mu sync.Mutex // held for the duration of an Update
	st State
}

// Store keeps session states in memory. Updates to one session are
// serialized; different sessions proceed independently.
type Store struct {
	mu    sync.Mutex
	slots map[string]*slot
	// Max is the session limit; the least recently updated session is
	// evicted when it is exceeded. Zero means DefaultMaxSessions.
	Max int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{slots: make(map[string]*slot)}
}

// Get returns a snapshot of the session state.
func (s *Store) Get(id string) (State, bool) {
	s.mu.Lock()
	sl, ok := s.slots[id]
	s.mu.Unlock()
	if !ok {
		return State{}, false
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.st, true
}

// New creates and stores a fresh session.
func (s *Store) New() State {
	st := NewState()
	s.put(st)
	return st
}

// Put replaces the state of a session, creating it if needed.
func (s *Store) Put(st State) {
	s.mu.Lock()
	sl, ok := s.slots[st.ID]
	s.mu.Unlock()
	if !ok {
		s.put(st)
		return
	}
	sl.mu.Lock()
	sl.st = st
	sl.mu.Unlock()
}

func (s *Store) put(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[st.ID] = &slot{st: st}
	s.evictLocked()
}

// Update runs fn on the current state of id and stores the result, even
// when fn returns an error, so failure notices reach the user. An unknown id
// starts a new session with that id.
func (s *Store) Update(id string, fn func(State) (State, error)) (State, error) {
	s.mu.Lock()
	sl, ok := s.slots[id]
	if !ok {
		st := NewState()
		st.ID = id
		sl = &slot{st: st}
		s.slots[id] = sl
		s.evictLocked()
	}
	s.mu.Unlock()

	sl.mu.Lock()
	defer sl.mu.Unlock()
	next, err := fn(sl.st)
	next.ID = id
	sl.st = next
	return next, err
}

// Delete forgets a session.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.slots, id)
	s.mu.Unlock()
}

// Len reports how many sessions are stored.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}

// Prune removes sessions not updated since before. It returns how many were
// removed.
func (s *Store) Prune(before time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sl := range s.slots {
		if sl.mu.TryLock() {
			stale := sl.st.UpdatedAt.Before(before)
			sl.mu.Unlock()
			if stale {
				delete(s.slots, id)
				n++
			}
		}
	}
	return n
}

// evictLocked drops the least recently updated idle sessions beyond Max.
// Callers hold s.mu.
func (s *Store) evictLocked() {
	limit := s.Max
	if limit <= 0 {
		limit = DefaultMaxSessions
	}
	if len(s.slots) <= limit {
		return
	}
	type aged struct {
		id string
		at time.Time
	}
	var idle []aged
	for id, sl := range s.slots {
		if sl.mu.TryLock() {
			idle = append(idle, aged{id, sl.st.UpdatedAt})
			sl.mu.Unlock()
		}
	}
	sort.Slice(idle, func(i, j int) bool { return idle[i].at.Before(idle[j].at) })
	for _, a := range idle {
		if len(s.slots) <= limit {
			break
		}
		delete(s.slots, a.id)
	}
}
