package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hmcts/cpp-context-progression-sub010/internal/event"
)

// Events returns the event log ordered by seq.
func (s *Store) Events(ctx context.Context) ([]EventRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, routing_key, payload, seq, status, error
		FROM events
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var rec EventRecord
		var kind, payload string
		if err := rows.Scan(&rec.Envelope.ID, &kind, &rec.Envelope.Key, &payload, &rec.Seq, &rec.Status, &rec.Error); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		rec.Envelope.Kind = event.Kind(kind)
		rec.Envelope.Payload = json.RawMessage(payload)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

// LastSeq returns the highest logged seq, or 0 for an empty log. Used to
// resume the logical clock after restart.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM events`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("read last seq: %w", err)
	}
	return seq.Int64, nil
}
