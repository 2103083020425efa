package store

import (
	"context"
	"sync"
)

// MemorySlot keeps blobs in a map. Nothing survives the process.
type MemorySlot struct {
	mu     sync.Mutex
	values map[string][]byte
	puts   int
}

// NewMemorySlot returns an empty in-memory slot.
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{values: make(map[string][]byte)}
}

// Close is a no-op.
func (s *MemorySlot) Close() error {
	return nil
}

// Get returns a copy of the blob stored under key.
func (s *MemorySlot) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

// Put stores a copy of value under key.
func (s *MemorySlot) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = append([]byte{}, value...)
	s.puts++
	return nil
}

// Puts returns how many writes the slot has accepted.
func (s *MemorySlot) Puts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}
