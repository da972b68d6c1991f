package storage

import (
	"context"
	"sync"
)

type memoryStore struct {
	mutex  sync.Mutex
	values map[string]string
	closed bool
}

var _ Store = (*memoryStore)(nil)

// NewMemory returns a Store backed by a map. Values are lost when the
// process exits.
func NewMemory() Store {
	return &memoryStore{values: make(map[string]string)}
}

func (s *memoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return "", false, ErrClosed
	}
	val, ok := s.values[key]
	return val, ok, nil
}

func (s *memoryStore) Set(_ context.Context, key string, value string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.values[key] = value
	return nil
}

func (s *memoryStore) Close() error {
	s.mutex.Lock()
	s.closed = true
	s.mutex.Unlock()
	return nil
}
