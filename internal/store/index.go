package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hmcts/cpp-context-progression-sub010/internal/model"
)

const indexColumns = `kind, case_id, defendant_id, hearing_id, master_defendant_id`

const indexOrder = `ORDER BY case_id COLLATE BINARY ASC, defendant_id COLLATE BINARY ASC, hearing_id COLLATE BINARY ASC`

// RowsByHearing returns the index rows of kind pointing at hearingID.
func (s *Store) RowsByHearing(ctx context.Context, kind model.IndexKind, hearingID string) ([]model.IndexRow, error) {
	return s.queryRows(ctx, `
		SELECT `+indexColumns+` FROM index_rows
		WHERE kind = ? AND hearing_id = ?
		`+indexOrder, string(kind), hearingID)
}

// RowsByPair returns the index rows of kind for one (case, defendant) pair.
func (s *Store) RowsByPair(ctx context.Context, kind model.IndexKind, pair model.CaseDefendant) ([]model.IndexRow, error) {
	return s.queryRows(ctx, `
		SELECT `+indexColumns+` FROM index_rows
		WHERE kind = ? AND case_id = ? AND defendant_id = ?
		`+indexOrder, string(kind), pair.CaseID, pair.DefendantID)
}

// RowsByMaster returns every index row of kind carrying masterID.
func (s *Store) RowsByMaster(ctx context.Context, kind model.IndexKind, masterID string) ([]model.IndexRow, error) {
	return s.queryRows(ctx, `
		SELECT `+indexColumns+` FROM index_rows
		WHERE kind = ? AND master_defendant_id = ?
		`+indexOrder, string(kind), masterID)
}

// Rows returns every index row of kind.
func (s *Store) Rows(ctx context.Context, kind model.IndexKind) ([]model.IndexRow, error) {
	return s.queryRows(ctx, `
		SELECT `+indexColumns+` FROM index_rows
		WHERE kind = ?
		`+indexOrder, string(kind))
}

// ApplyIndexOps applies index operations outside of any event. Used when
// seeding documents.
func (s *Store) ApplyIndexOps(ctx context.Context, ops []model.IndexOp) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("apply index ops: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := applyIndexOps(ctx, tx, ops); err != nil {
		return fmt.Errorf("apply index ops: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("apply index ops: commit: %w", err)
	}
	return nil
}

// applyIndexOps writes ops in order. Inserts and updates are upserts so a
// replayed event converges on the same rows.
func applyIndexOps(ctx context.Context, db execer, ops []model.IndexOp) error {
	for _, op := range ops {
		r := op.Row
		var err error
		switch op.Op {
		case model.IndexInsert, model.IndexUpdate:
			_, err = db.ExecContext(ctx, `
				INSERT INTO index_rows (`+indexColumns+`)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT(kind, case_id, defendant_id, hearing_id) DO UPDATE SET
					master_defendant_id = excluded.master_defendant_id
			`, string(r.Kind), r.CaseID, r.DefendantID, r.HearingID, r.MasterDefendantID)
		case model.IndexDelete:
			_, err = db.ExecContext(ctx, `
				DELETE FROM index_rows
				WHERE kind = ? AND case_id = ? AND defendant_id = ? AND hearing_id = ?
			`, string(r.Kind), r.CaseID, r.DefendantID, r.HearingID)
		default:
			err = fmt.Errorf("unknown index op %q", op.Op)
		}
		if err != nil {
			return fmt.Errorf("%s index row %s/%s/%s: %w", op.Op, r.CaseID, r.DefendantID, r.HearingID, err)
		}
	}
	return nil
}

func (s *Store) queryRows(ctx context.Context, query string, args ...any) ([]model.IndexRow, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query index rows: %w", err)
	}
	defer rows.Close()

	var out []model.IndexRow
	for rows.Next() {
		r, err := scanIndexRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate index rows: %w", err)
	}
	return out, nil
}

func scanIndexRow(rows *sql.Rows) (model.IndexRow, error) {
	var r model.IndexRow
	var kind string
	if err := rows.Scan(&kind, &r.CaseID, &r.DefendantID, &r.HearingID, &r.MasterDefendantID); err != nil {
		return model.IndexRow{}, fmt.Errorf("scan index row: %w", err)
	}
	r.Kind = model.IndexKind(kind)
	return r, nil
}
