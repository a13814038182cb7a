package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// CTA action types.
const (
	CTAContact = "contact"
	CTAURL     = "url"
)

// CTA is a case's call-to-action button configuration. ActionValue holds
// the target URL for CTAURL and is empty for CTAContact.
type CTA struct {
	CaseID      int64
	ButtonText  string
	ActionType  string
	ActionValue string
	Updated     time.Time
}

// GetCaseCTA returns the CTA for a case, or ErrNotFound when none was
// configured yet.
func (s *Store) GetCaseCTA(ctx context.Context, caseID int64) (CTA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var c CTA
	err := s.db.QueryRowContext(ctx,
		`SELECT case_id, button_text, action_type, COALESCE(action_value, ''), updated
		 FROM case_cta WHERE case_id = ?`, caseID,
	).Scan(&c.CaseID, &c.ButtonText, &c.ActionType, &c.ActionValue, &c.Updated)
	if errors.Is(err, sql.ErrNoRows) {
		return CTA{}, fmt.Errorf("cta for case %d: %w", caseID, ErrNotFound)
	}
	if err != nil {
		return CTA{}, fmt.Errorf("get cta: %w", err)
	}
	return c, nil
}

// UpsertCaseCTA stores the CTA button for a case, replacing any previous
// configuration.
func (s *Store) UpsertCaseCTA(ctx context.Context, caseID int64, buttonText, actionType, actionValue string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO case_cta (case_id, button_text, action_type, action_value, updated)
		 VALUES (?, ?, ?, NULLIF(?, ''), CURRENT_TIMESTAMP)
		 ON CONFLICT (case_id) DO UPDATE SET
		   button_text = excluded.button_text,
		   action_type = excluded.action_type,
		   action_value = excluded.action_value,
		   updated = CURRENT_TIMESTAMP`,
		caseID, buttonText, actionType, actionValue,
	)
	if err != nil {
		return fmt.Errorf("upsert cta: %w", err)
	}
	s.log.Info("case cta updated", zap.Int64("case_id", caseID), zap.String("type", actionType))
	return nil
}
