package testutil

import (
	"context"
	"sync"
)

// FakeSource is an in-memory configuration source whose document and
// failure mode can be changed between reloads.
type FakeSource struct {
	mu    sync.Mutex
	data  []byte
	err   error
	loads int
}

// NewFakeSource returns a source serving doc.
func NewFakeSource(doc string) *FakeSource {
	return &FakeSource{data: []byte(doc)}
}

// Set replaces the served document and clears any configured error.
func (s *FakeSource) Set(doc string) {
	s.mu.Lock()
	s.data = []byte(doc)
	s.err = nil
	s.mu.Unlock()
}

// Fail makes subsequent loads return err.
func (s *FakeSource) Fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Loads returns how many times Load was called.
func (s *FakeSource) Loads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

// Load implements Source.
func (s *FakeSource) Load(context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out, nil
}
