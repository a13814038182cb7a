package store

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// LogEvent records one analytics event. It is fire-and-forget: failures
// are logged and swallowed so analytics can never break a workflow.
func (s *Store) LogEvent(ctx context.Context, userID int64, eventType, eventContext, eventValue string, payload map[string]any) {
	var payloadJSON any
	if payload != nil {
		data, err := json.Marshal(payload)
		if err == nil {
			payloadJSON = string(data)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_events (user_id, event_type, event_context, event_value, payload)
		 VALUES (?, ?, NULLIF(?, ''), NULLIF(?, ''), ?)`,
		userID, eventType, eventContext, eventValue, payloadJSON,
	)
	if err != nil {
		s.log.Debug("event insert failed",
			zap.String("type", eventType), zap.Int64("user_id", userID), zap.Error(err))
	}
}
