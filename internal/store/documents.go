package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hmcts/cpp-context-progression-sub010/internal/model"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Hearing returns the stored hearing document.
// Returns a model.ErrNotFound error if it does not exist.
func (s *Store) Hearing(ctx context.Context, id string) (*model.Hearing, error) {
	var h model.Hearing
	if err := s.readDocument(ctx, "hearings", "hearing", id, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// ProsecutionCase returns the stored case document.
// Returns a model.ErrNotFound error if it does not exist.
func (s *Store) ProsecutionCase(ctx context.Context, id string) (*model.ProsecutionCase, error) {
	var c model.ProsecutionCase
	if err := s.readDocument(ctx, "prosecution_cases", "prosecutionCase", id, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Hearings returns every stored hearing ordered by id.
func (s *Store) Hearings(ctx context.Context) ([]*model.Hearing, error) {
	var out []*model.Hearing
	err := s.readAll(ctx, "hearings", func(body string) error {
		var h model.Hearing
		if err := json.Unmarshal([]byte(body), &h); err != nil {
			return err
		}
		out = append(out, &h)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ProsecutionCases returns every stored case document ordered by id.
func (s *Store) ProsecutionCases(ctx context.Context) ([]*model.ProsecutionCase, error) {
	var out []*model.ProsecutionCase
	err := s.readAll(ctx, "prosecution_cases", func(body string) error {
		var c model.ProsecutionCase
		if err := json.Unmarshal([]byte(body), &c); err != nil {
			return err
		}
		out = append(out, &c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SaveHearing writes a hearing document outside of any event. Used to seed
// documents created elsewhere. Returns whether the row changed.
func (s *Store) SaveHearing(ctx context.Context, h *model.Hearing) (bool, error) {
	return writeHearing(ctx, s.db, h, 0)
}

// SaveProsecutionCase writes a case document outside of any event.
func (s *Store) SaveProsecutionCase(ctx context.Context, c *model.ProsecutionCase) (bool, error) {
	return writeCase(ctx, s.db, c, 0)
}

func writeHearing(ctx context.Context, db execer, h *model.Hearing, seq int64) (bool, error) {
	if h.ID == "" {
		return false, fmt.Errorf("write hearing: %w", model.MissingIdentity("hearing", ""))
	}
	changed, err := writeDocument(ctx, db, "hearings", model.DomainHearing, h.ID, h, seq)
	if err != nil {
		return false, fmt.Errorf("write hearing %s: %w", h.ID, err)
	}
	return changed, nil
}

func writeCase(ctx context.Context, db execer, c *model.ProsecutionCase, seq int64) (bool, error) {
	if c.ID == "" {
		return false, fmt.Errorf("write prosecution case: %w", model.MissingIdentity("prosecutionCase", ""))
	}
	changed, err := writeDocument(ctx, db, "prosecution_cases", model.DomainProsecutionCase, c.ID, c, seq)
	if err != nil {
		return false, fmt.Errorf("write prosecution case %s: %w", c.ID, err)
	}
	return changed, nil
}

// writeDocument upserts a document. The update only fires when the content
// hash differs, so RowsAffected is 0 for an unchanged document.
func writeDocument(ctx context.Context, db execer, table, domain, id string, doc any, seq int64) (bool, error) {
	body, err := model.MarshalCanonical(doc)
	if err != nil {
		return false, err
	}
	hash, err := model.ContentHash(domain, doc)
	if err != nil {
		return false, err
	}

	res, err := db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, body, content_hash, seq)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			body = excluded.body,
			content_hash = excluded.content_hash,
			seq = excluded.seq
		WHERE %s.content_hash != excluded.content_hash
	`, table, table), id, string(body), hash, seq)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) readDocument(ctx context.Context, table, kind, id string, dst any) error {
	var body string
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT body FROM %s WHERE id = ?`, table), id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NotFound(kind, id)
	}
	if err != nil {
		return fmt.Errorf("read %s %s: %w", kind, id, err)
	}
	if err := json.Unmarshal([]byte(body), dst); err != nil {
		return fmt.Errorf("decode %s %s: %w", kind, id, err)
	}
	return nil
}

func (s *Store) readAll(ctx context.Context, table string, each func(body string) error) error {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id, body FROM %s ORDER BY id COLLATE BINARY ASC`, table))
	if err != nil {
		return fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return fmt.Errorf("scan %s: %w", table, err)
		}
		if err := each(body); err != nil {
			return fmt.Errorf("decode %s %s: %w", table, id, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate %s: %w", table, err)
	}
	return nil
}

// documentHash returns the stored content hash and writing seq of a
// document. Used for testing.
func (s *Store) documentHash(ctx context.Context, table, id string) (string, int64, error) {
	var hash string
	var seq int64
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT content_hash, seq FROM %s WHERE id = ?`, table), id).Scan(&hash, &seq)
	if err != nil {
		return "", 0, err
	}
	return hash, seq, nil
}
