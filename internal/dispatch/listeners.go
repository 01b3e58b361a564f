package dispatch

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/samber/lo"
)

type listenerEntry[L any] struct {
	id       uint64
	listener L
}

// listenerSet is a copy-on-write list: delivery reads a snapshot without locking,
// registration replaces the whole slice.
type listenerSet[L any] struct {
	mu      sync.Mutex
	nextID  uint64
	current atomic.Pointer[[]listenerEntry[L]]
}

func (s *listenerSet[L]) snapshot() []listenerEntry[L] {
	if p := s.current.Load(); p != nil {
		return *p
	}
	return nil
}

func (s *listenerSet[L]) add(listener L) (remove func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID

	next := append(slices.Clone(s.snapshot()), listenerEntry[L]{id: id, listener: listener})
	s.current.Store(&next)

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

func (s *listenerSet[L]) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := lo.Reject(s.snapshot(), func(e listenerEntry[L], _ int) bool {
		return e.id == id
	})
	s.current.Store(&next)
}

func (s *listenerSet[L]) len() int {
	return len(s.snapshot())
}
