package keylock

import (
	"context"
	"sync"
)

// Map hands out one mutual-exclusion slot per key. Slots are created on
// first use and dropped when the last holder or waiter releases them.
type Map struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{} // capacity 1; holding the token means holding the lock
	refs int
}

func New() *Map {
	return &Map{slots: make(map[string]*slot)}
}

// Lock blocks until key is free or ctx is done. On success the returned
// func releases the lock.
func (m *Map) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	s, ok := m.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		m.slots[key] = s
	}
	s.refs++
	m.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
		return func() {
			<-s.ch
			m.release(key, s)
		}, nil
	case <-ctx.Done():
		m.release(key, s)
		return nil, ctx.Err()
	}
}

func (m *Map) release(key string, s *slot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(m.slots, key)
	}
}

// Len reports the number of live slots.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}
