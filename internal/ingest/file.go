package ingest

import (
	"fmt"
	"io"
	"os"

	"github.com/hmcts/cpp-context-progression-sub010/internal/event"
)

// Enqueuer accepts envelopes for asynchronous processing. *engine.Engine
// implements it.
type Enqueuer interface {
	Enqueue(env event.Envelope) bool
}

// ReadFile reads envelopes from path, or from stdin when path is "-".
func ReadFile(path string, stdin io.Reader) ([]event.Envelope, error) {
	if path == "-" {
		return event.Read(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open events: %w", err)
	}
	defer f.Close()

	envs, err := event.Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return envs, nil
}

// Feed enqueues envs in order and returns how many were accepted.
func Feed(q Enqueuer, envs []event.Envelope) (int, error) {
	for i, env := range envs {
		if !q.Enqueue(env) {
			return i, fmt.Errorf("engine stopped after %d of %d events", i, len(envs))
		}
	}
	return len(envs), nil
}
