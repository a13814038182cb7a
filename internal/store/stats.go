package store

import (
	"context"
	"fmt"
	"time"
)

// MenuClick is one aggregated menu-button row for the statistics report.
type MenuClick struct {
	Context string
	Value   string
	Count   int
}

// CaseViews is one aggregated case-view row.
type CaseViews struct {
	CaseID int64
	Title  string
	Count  int
}

// FunnelStep maps an event type to the number of distinct users who fired it.
type FunnelStep struct {
	EventType string
	Users     int
}

// StuckPoint counts users who reached one funnel step but not the next.
type StuckPoint struct {
	Label string
	Users int
}

// RecentUser is a user with their last recorded activity.
type RecentUser struct {
	ID           int64
	Username     string
	FullName     string
	LastActivity time.Time
}

func sinceDays(days int) string {
	return fmt.Sprintf("-%d days", days)
}

// CountEvents counts events recorded within the last N days.
func (s *Store) CountEvents(ctx context.Context, days int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_events WHERE created_at >= datetime('now', ?)`,
		sinceDays(days),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// TopMenuClicks returns the most-clicked menu buttons over the last N days.
func (s *Store) TopMenuClicks(ctx context.Context, days, limit int) ([]MenuClick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(event_context, ''), COALESCE(event_value, ''), COUNT(*) AS cnt
		 FROM user_events
		 WHERE event_type = 'menu_click' AND created_at >= datetime('now', ?)
		 GROUP BY event_context, event_value
		 ORDER BY cnt DESC
		 LIMIT ?`, sinceDays(days), limit)
	if err != nil {
		return nil, fmt.Errorf("top menu clicks: %w", err)
	}
	defer rows.Close()

	var clicks []MenuClick
	for rows.Next() {
		var c MenuClick
		if err := rows.Scan(&c.Context, &c.Value, &c.Count); err != nil {
			return nil, fmt.Errorf("scan menu click: %w", err)
		}
		clicks = append(clicks, c)
	}
	return clicks, rows.Err()
}

// TopCases returns the most-viewed cases over the last N days.
func (s *Store) TopCases(ctx context.Context, days, limit int) ([]CaseViews, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT c.case_id, c.title, COUNT(*) AS cnt
		 FROM user_events e
		 JOIN cases c ON c.case_id = CAST(e.event_value AS INTEGER)
		 WHERE e.event_type = 'case_view'
		   AND e.event_value GLOB '[0-9]*'
		   AND e.created_at >= datetime('now', ?)
		 GROUP BY c.case_id, c.title
		 ORDER BY cnt DESC
		 LIMIT ?`, sinceDays(days), limit)
	if err != nil {
		return nil, fmt.Errorf("top cases: %w", err)
	}
	defer rows.Close()

	var views []CaseViews
	for rows.Next() {
		var v CaseViews
		if err := rows.Scan(&v.CaseID, &v.Title, &v.Count); err != nil {
			return nil, fmt.Errorf("scan case views: %w", err)
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// Funnel returns distinct-user counts for the start -> cases_open ->
// case_view -> contact_open funnel over the last N days.
func (s *Store) Funnel(ctx context.Context, days int) ([]FunnelStep, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT event_type, COUNT(DISTINCT user_id)
		 FROM user_events
		 WHERE event_type IN ('start', 'cases_open', 'case_view', 'contact_open')
		   AND created_at >= datetime('now', ?)
		 GROUP BY event_type`, sinceDays(days))
	if err != nil {
		return nil, fmt.Errorf("funnel: %w", err)
	}
	defer rows.Close()

	var steps []FunnelStep
	for rows.Next() {
		var f FunnelStep
		if err := rows.Scan(&f.EventType, &f.Users); err != nil {
			return nil, fmt.Errorf("scan funnel: %w", err)
		}
		steps = append(steps, f)
	}
	return steps, rows.Err()
}

// StuckPoints counts users who fired a step event in the last N days but
// never the following step.
func (s *Store) StuckPoints(ctx context.Context, days int) ([]StuckPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	transitions := []struct {
		from, to, label string
	}{
		{"start", "cases_open", "Started but never opened the case list"},
		{"cases_open", "case_view", "Opened the list but never a case"},
		{"case_view", "contact_open", "Viewed a case but never the contact screen"},
	}

	var points []StuckPoint
	for _, tr := range transitions {
		var users int
		err := s.db.QueryRowContext(ctx,
			`WITH recent AS (
			   SELECT user_id, event_type FROM user_events
			   WHERE created_at >= datetime('now', ?)
			 )
			 SELECT COUNT(DISTINCT r.user_id)
			 FROM recent r
			 WHERE r.event_type = ?
			   AND NOT EXISTS (
			     SELECT 1 FROM recent r2
			     WHERE r2.user_id = r.user_id AND r2.event_type = ?
			   )`, sinceDays(days), tr.from, tr.to,
		).Scan(&users)
		if err != nil {
			return nil, fmt.Errorf("stuck point %s: %w", tr.from, err)
		}
		points = append(points, StuckPoint{Label: tr.label, Users: users})
	}
	return points, nil
}

// RecentUsers returns users ordered by their most recent event.
func (s *Store) RecentUsers(ctx context.Context, limit int) ([]RecentUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT u.user_id, COALESCE(u.username, ''), COALESCE(u.full_name, ''), MAX(e.created_at)
		 FROM user_events e
		 JOIN users u ON u.user_id = e.user_id
		 GROUP BY u.user_id, u.username, u.full_name
		 ORDER BY MAX(e.created_at) DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent users: %w", err)
	}
	defer rows.Close()

	var users []RecentUser
	for rows.Next() {
		var u RecentUser
		var last string
		if err := rows.Scan(&u.ID, &u.Username, &u.FullName, &last); err != nil {
			return nil, fmt.Errorf("scan recent user: %w", err)
		}
		// MAX() strips the column's declared type, so the driver hands the
		// timestamp back as text.
		if ts, err := time.Parse("2006-01-02 15:04:05", last); err == nil {
			u.LastActivity = ts
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
