package core

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// pendingWork is the in-process half of a submitted work item: the function
// and arguments stay parked here while the fixed-size record travels through
// the dispatcher's data channel.
type pendingWork struct {
	fn          WorkFunc
	args        any
	replyTo     Identity
	notifyValue uint16
	submittedAt time.Time
}

// pendingStore keys parked work by the token inside the work record. One
// mutex suffices: entries live for exactly one Submit-to-execute round trip.
type pendingStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]*pendingWork
}

func newPendingStore() *pendingStore {
	return &pendingStore{
		items: make(map[uuid.UUID]*pendingWork),
	}
}

// park stores w under token.
func (s *pendingStore) park(token uuid.UUID, w *pendingWork) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[token] = w
}

// take removes and returns the entry parked under token. A miss means the
// record was forged, duplicated, or outlived a dispatcher restart.
func (s *pendingStore) take(token uuid.UUID) (*pendingWork, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.items[token]
	if ok {
		delete(s.items, token)
	}
	return w, ok
}

// remove discards a parked entry, used when the record send fails after
// parking.
func (s *pendingStore) remove(token uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, token)
}

// count returns the number of parked entries.
func (s *pendingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// drain empties the store and reports how many entries were dropped.
func (s *pendingStore) drain() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.items)
	s.items = make(map[uuid.UUID]*pendingWork)
	return n
}
