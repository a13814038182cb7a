// Package ui tracks the ephemeral messages that make up a chat screen so
// they can be wiped before the next render.
package ui

import (
	"context"

	"go.uber.org/zap"

	"casebot/internal/session"
)

// Deleter removes a single message from a chat.
type Deleter interface {
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// Tracker clears stale screen messages. Deletion is best-effort: messages
// already gone, or older than the Bot API allows to delete, will error and
// the error is dropped after logging.
type Tracker struct {
	deleter Deleter
	log     *zap.Logger
}

func NewTracker(deleter Deleter, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{deleter: deleter, log: log}
}

// Record replaces the session's tracked message set with refs.
func (t *Tracker) Record(s *session.Session, refs session.ScreenRefs) {
	s.Screen = refs
}

// Clear deletes every tracked message for the session's chat and resets the
// tracked set. The set is reset even when deletions fail, so a failed
// cleanup never blocks the next render.
func (t *Tracker) Clear(ctx context.Context, s *session.Session) {
	for _, id := range s.Screen.All() {
		if err := t.deleter.DeleteMessage(ctx, s.ChatID, id); err != nil {
			t.log.Debug("delete screen message",
				zap.Int64("chat_id", s.ChatID),
				zap.Int("message_id", id),
				zap.Error(err))
		}
	}
	s.Screen = session.ScreenRefs{}
}
