package testutil

import (
	"fmt"
	"sync"

	"github.com/hmcts/cpp-context-progression-sub010/internal/event"
)

// IDSequence hands out event ids "<prefix>-1", "<prefix>-2", ... so that
// test runs produce byte-identical event logs.
//
// Thread-safety: all methods are safe for concurrent use.
type IDSequence struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewIDSequence creates a sequence. An empty prefix means "evt".
func NewIDSequence(prefix string) *IDSequence {
	if prefix == "" {
		prefix = "evt"
	}
	return &IDSequence{prefix: prefix}
}

// Next returns the next id.
func (s *IDSequence) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s-%d", s.prefix, s.n)
}

// Reset restarts the sequence at 1.
func (s *IDSequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n = 0
}

// Envelope builds an envelope for p carrying the next id.
func (s *IDSequence) Envelope(p event.Payload) (event.Envelope, error) {
	env, err := event.New(p)
	if err != nil {
		return event.Envelope{}, err
	}
	env.ID = s.Next()
	return env, nil
}
