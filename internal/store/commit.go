package store

import (
	"context"
	"fmt"

	"github.com/hmcts/cpp-context-progression-sub010/internal/event"
	"github.com/hmcts/cpp-context-progression-sub010/internal/reconcile"
)

var (
	_ reconcile.Documents = (*Store)(nil)
	_ reconcile.Index     = (*Store)(nil)
)

// Event log statuses.
const (
	StatusApplied = "applied"
	StatusFailed  = "failed"
)

// EventRecord is one row of the applied-event log.
type EventRecord struct {
	Envelope event.Envelope
	Seq      int64
	Status   string
	Error    string
}

// CommitStats summarizes what a commit wrote.
type CommitStats struct {
	HearingsWritten int
	CasesWritten    int

	// Unchanged counts documents skipped because their content hash did not
	// change.
	Unchanged int

	IndexOps int
}

// Commit persists one event's outcome and its log row in a single
// transaction. Re-committing the same envelope id leaves the first log row.
func (s *Store) Commit(ctx context.Context, env event.Envelope, seq int64, out *reconcile.Outcome) (CommitStats, error) {
	var stats CommitStats

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("commit %s: begin tx: %w", env.ID, err)
	}
	defer tx.Rollback() // No-op if committed

	if out != nil {
		for _, h := range out.Hearings {
			changed, err := writeHearing(ctx, tx, h, seq)
			if err != nil {
				return stats, fmt.Errorf("commit %s: %w", env.ID, err)
			}
			if changed {
				stats.HearingsWritten++
			} else {
				stats.Unchanged++
			}
		}
		for _, c := range out.Cases {
			changed, err := writeCase(ctx, tx, c, seq)
			if err != nil {
				return stats, fmt.Errorf("commit %s: %w", env.ID, err)
			}
			if changed {
				stats.CasesWritten++
			} else {
				stats.Unchanged++
			}
		}
		if err := applyIndexOps(ctx, tx, out.IndexOps); err != nil {
			return stats, fmt.Errorf("commit %s: %w", env.ID, err)
		}
		stats.IndexOps = len(out.IndexOps)
	}

	if err := writeEvent(ctx, tx, EventRecord{Envelope: env, Seq: seq, Status: StatusApplied}); err != nil {
		return stats, fmt.Errorf("commit %s: %w", env.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("commit %s: %w", env.ID, err)
	}
	return stats, nil
}

// RecordFailure logs an event that could not be applied. A later successful
// Commit of the same envelope id replaces the failure.
func (s *Store) RecordFailure(ctx context.Context, env event.Envelope, seq int64, cause error) error {
	rec := EventRecord{Envelope: env, Seq: seq, Status: StatusFailed, Error: cause.Error()}
	if err := writeEvent(ctx, s.db, rec); err != nil {
		return fmt.Errorf("record failure %s: %w", env.ID, err)
	}
	return nil
}

func writeEvent(ctx context.Context, db execer, rec EventRecord) error {
	payload := string(rec.Envelope.Payload)
	if payload == "" {
		payload = "null"
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO events (id, kind, routing_key, payload, seq, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			seq = excluded.seq,
			status = excluded.status,
			error = excluded.error
		WHERE events.status = 'failed'
	`,
		rec.Envelope.ID,
		string(rec.Envelope.Kind),
		rec.Envelope.Key,
		payload,
		rec.Seq,
		rec.Status,
		rec.Error,
	)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}
