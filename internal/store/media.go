package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Media is one album entry attached to a case.
type Media struct {
	ID        int64
	CaseID    int64
	FileID    string
	MediaType string
	Position  int
	IsCover   bool
	Created   time.Time
}

// MediaInput is an item to persist; position is assigned from slice order.
type MediaInput struct {
	FileID    string
	MediaType string
}

// GetCaseMedia returns a case's album ordered cover-first, then by
// position, then insertion order.
func (s *Store) GetCaseMedia(ctx context.Context, caseID int64) ([]Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT media_id, case_id, file_id, media_type, position, is_cover, created
		 FROM case_media
		 WHERE case_id = ?
		 ORDER BY is_cover DESC, position ASC, created ASC, media_id ASC`, caseID)
	if err != nil {
		return nil, fmt.Errorf("get case media: %w", err)
	}
	defer rows.Close()

	var media []Media
	for rows.Next() {
		var m Media
		if err := rows.Scan(&m.ID, &m.CaseID, &m.FileID, &m.MediaType, &m.Position, &m.IsCover, &m.Created); err != nil {
			return nil, fmt.Errorf("scan media: %w", err)
		}
		media = append(media, m)
	}
	return media, rows.Err()
}

// ReplaceCaseMedia atomically swaps the whole album: delete everything,
// insert the new items with positions 0..n-1. With firstIsCover the first
// item becomes the cover.
func (s *Store) ReplaceCaseMedia(ctx context.Context, caseID int64, items []MediaInput, firstIsCover bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace media begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM case_media WHERE case_id = ?`, caseID); err != nil {
		return fmt.Errorf("replace media delete: %w", err)
	}
	for i, item := range items {
		if item.FileID == "" {
			continue
		}
		mediaType := item.MediaType
		if mediaType == "" {
			mediaType = "photo"
		}
		isCover := firstIsCover && i == 0
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO case_media (case_id, file_id, media_type, position, is_cover)
			 VALUES (?, ?, ?, ?, ?)`,
			caseID, item.FileID, mediaType, i, isCover,
		); err != nil {
			return fmt.Errorf("replace media insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace media commit: %w", err)
	}
	s.log.Info("case media replaced", zap.Int64("case_id", caseID), zap.Int("items", len(items)))
	return nil
}

// CountMedia counts album entries across all cases.
func (s *Store) CountMedia(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM case_media`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count media: %w", err)
	}
	return n, nil
}
