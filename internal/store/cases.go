package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Case statuses.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// Defaults for a freshly created draft.
const (
	draftTitle       = "New case"
	draftDescription = "No description yet"
)

// Case is one portfolio entry.
type Case struct {
	ID          int64
	Title       string
	Description string
	Status      string
	SortOrder   int
	Created     time.Time
	Updated     time.Time
}

// Fields an operator is allowed to update through the editor.
var allowedCaseFields = map[string]bool{
	"title":       true,
	"description": true,
	"status":      true,
	"sort_order":  true,
}

// CreateDraft inserts a new draft case and returns its id.
func (s *Store) CreateDraft(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO cases (title, description, status, sort_order) VALUES (?, ?, 'draft', 0)`,
		draftTitle, draftDescription,
	)
	if err != nil {
		return 0, fmt.Errorf("create draft: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create draft id: %w", err)
	}
	s.log.Info("case draft created", zap.Int64("case_id", id))
	return id, nil
}

// GetCase fetches a case by id. Returns ErrNotFound if it does not exist.
func (s *Store) GetCase(ctx context.Context, id int64) (Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var c Case
	err := s.db.QueryRowContext(ctx,
		`SELECT case_id, title, description, status, sort_order, created, updated
		 FROM cases WHERE case_id = ?`, id,
	).Scan(&c.ID, &c.Title, &c.Description, &c.Status, &c.SortOrder, &c.Created, &c.Updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Case{}, fmt.Errorf("case %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Case{}, fmt.Errorf("get case %d: %w", id, err)
	}
	return c, nil
}

// UpdateCaseField updates one allow-listed column and bumps the updated
// timestamp. Unknown fields are rejected before touching the database.
func (s *Store) UpdateCaseField(ctx context.Context, id int64, field string, value any) error {
	if !allowedCaseFields[field] {
		return fmt.Errorf("field %q not allowed", field)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		// field comes from the allow-list above, not from user input.
		fmt.Sprintf(`UPDATE cases SET %s = ?, updated = CURRENT_TIMESTAMP WHERE case_id = ?`, field),
		value, id,
	)
	if err != nil {
		return fmt.Errorf("update case %d field %s: %w", id, field, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("case %d: %w", id, ErrNotFound)
	}
	s.log.Debug("case field updated", zap.Int64("case_id", id), zap.String("field", field))
	return nil
}

// ListCases returns one page of cases ordered by sort_order, then recency,
// then id descending so ties break deterministically across pages. A
// non-empty status filters the listing. The result holds up to pageSize+1
// rows: the extra probe row, when present, tells the caller a following
// page exists without a separate count query.
func (s *Store) ListCases(ctx context.Context, status string, page, pageSize int) ([]Case, error) {
	if page < 0 {
		page = 0
	}
	if pageSize < 1 {
		pageSize = 1
	}
	offset := page * pageSize

	query := `SELECT case_id, title, description, status, sort_order, created, updated
		FROM cases`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY sort_order ASC, created DESC, case_id DESC LIMIT ? OFFSET ?`
	args = append(args, pageSize+1, offset)

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	var cases []Case
	for rows.Next() {
		var c Case
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Status, &c.SortOrder, &c.Created, &c.Updated); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

// CountCases counts cases, optionally by status.
func (s *Store) CountCases(ctx context.Context, status string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT COUNT(*) FROM cases`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cases: %w", err)
	}
	return n, nil
}
