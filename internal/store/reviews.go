package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ReviewItem is one element of a case's customer-review bundle. FileID is
// empty for text items; TextContent is empty for media items.
type ReviewItem struct {
	ID          int64
	FileID      string
	MediaType   string
	TextContent string
	Position    int
	Created     time.Time
}

// ReviewInput is an item to persist; position comes from slice order.
type ReviewInput struct {
	FileID      string
	MediaType   string
	TextContent string
}

// GetCaseReview returns the review items for a case in position order, or
// ErrNotFound if the case has no review bundle.
func (s *Store) GetCaseReview(ctx context.Context, caseID int64) ([]ReviewItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var reviewID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT review_id FROM case_reviews WHERE case_id = ?`, caseID,
	).Scan(&reviewID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("review for case %d: %w", caseID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT item_id, COALESCE(file_id, ''), media_type, COALESCE(text_content, ''), position, created
		 FROM case_review_items
		 WHERE review_id = ?
		 ORDER BY position ASC, item_id ASC`, reviewID)
	if err != nil {
		return nil, fmt.Errorf("get review items: %w", err)
	}
	defer rows.Close()

	var items []ReviewItem
	for rows.Next() {
		var it ReviewItem
		if err := rows.Scan(&it.ID, &it.FileID, &it.MediaType, &it.TextContent, &it.Position, &it.Created); err != nil {
			return nil, fmt.Errorf("scan review item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ReplaceCaseReview upserts the review row for a case and atomically swaps
// its items, preserving slice order as position 0..n-1.
func (s *Store) ReplaceCaseReview(ctx context.Context, caseID int64, items []ReviewInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace review begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO case_reviews (case_id, updated) VALUES (?, CURRENT_TIMESTAMP)
		 ON CONFLICT (case_id) DO UPDATE SET updated = CURRENT_TIMESTAMP`, caseID); err != nil {
		return fmt.Errorf("replace review upsert: %w", err)
	}

	var reviewID int64
	if err := tx.QueryRowContext(ctx,
		`SELECT review_id FROM case_reviews WHERE case_id = ?`, caseID,
	).Scan(&reviewID); err != nil {
		return fmt.Errorf("replace review id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM case_review_items WHERE review_id = ?`, reviewID); err != nil {
		return fmt.Errorf("replace review delete items: %w", err)
	}
	for i, item := range items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO case_review_items (review_id, file_id, media_type, text_content, position)
			 VALUES (?, NULLIF(?, ''), ?, NULLIF(?, ''), ?)`,
			reviewID, item.FileID, item.MediaType, item.TextContent, i,
		); err != nil {
			return fmt.Errorf("replace review insert item: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace review commit: %w", err)
	}
	s.log.Info("case review replaced", zap.Int64("case_id", caseID), zap.Int("items", len(items)))
	return nil
}
