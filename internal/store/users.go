package store

import (
	"context"
	"fmt"
)

// User is a registered chat user.
type User struct {
	ID       int64
	FullName string
	Username string
}

// UpsertUser registers a user on first contact or refreshes their profile
// fields on later ones.
func (s *Store) UpsertUser(ctx context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (user_id, full_name, username)
		 VALUES (?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		   full_name = excluded.full_name,
		   username = excluded.username`,
		u.ID, u.FullName, u.Username,
	)
	if err != nil {
		return fmt.Errorf("upsert user %d: %w", u.ID, err)
	}
	return nil
}

// CountUsers returns the number of registered users.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
