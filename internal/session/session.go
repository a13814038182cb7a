// Package session holds the per-conversation state the workflow engine
// reads and writes between turns: the active workflow step, its scratch
// fields, the tracked on-screen message ids, and the throttle record.
//
// Sessions for different chats are independent and may be touched
// concurrently; updates for one chat arrive serialized by the poller, so
// the Session struct itself is mutated by at most one goroutine at a time.
// Only the chat-id -> session map is guarded here.
package session

import (
	"sync"
	"time"
)

// State is the current step of a multi-turn workflow. Exactly one state is
// active per session.
type State int

const (
	// Idle means no edit is in progress.
	Idle State = iota
	// AwaitingFieldValue waits for a new title/description text or a
	// sequence of cover media messages.
	AwaitingFieldValue
	// AwaitingReviewItems collects mixed review items until "done".
	AwaitingReviewItems
	// AwaitingCtaText waits for the CTA button label.
	AwaitingCtaText
	// AwaitingCtaURL waits for the CTA target URL. The session already
	// carries the confirmed button label at this point.
	AwaitingCtaURL
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingFieldValue:
		return "awaiting_field_value"
	case AwaitingReviewItems:
		return "awaiting_review_items"
	case AwaitingCtaText:
		return "awaiting_cta_text"
	case AwaitingCtaURL:
		return "awaiting_cta_url"
	}
	return "unknown"
}

// Field names a case field under single-field edit.
type Field string

const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldCover       Field = "cover"
)

// MediaKind classifies a collected media or text item.
type MediaKind string

const (
	KindPhoto     MediaKind = "photo"
	KindVideo     MediaKind = "video"
	KindVoice     MediaKind = "voice"
	KindVideoNote MediaKind = "video_note"
	KindText      MediaKind = "text"
)

// Item is one collected media reference or text snippet. FileID is the
// transport's opaque file reference; Text is set only for KindText.
type Item struct {
	Kind   MediaKind
	FileID string
	Text   string
}

// ScreenRefs is the set of transient message ids currently on-screen for a
// session. Album ids come from a media group (or its single-photo
// placeholder); CardID is the control card; PromptID is an input prompt.
// Zero means absent.
type ScreenRefs struct {
	AlbumIDs []int
	CardID   int
	PromptID int
}

// All returns every tracked id, in no particular order.
func (r ScreenRefs) All() []int {
	ids := make([]int, 0, len(r.AlbumIDs)+2)
	ids = append(ids, r.AlbumIDs...)
	if r.CardID != 0 {
		ids = append(ids, r.CardID)
	}
	if r.PromptID != 0 {
		ids = append(ids, r.PromptID)
	}
	return ids
}

// Empty reports whether no ids are tracked.
func (r ScreenRefs) Empty() bool {
	return len(r.AlbumIDs) == 0 && r.CardID == 0 && r.PromptID == 0
}

// Session is the state for one conversation.
type Session struct {
	ChatID int64

	// Workflow step and its scratch fields. Scratch is only meaningful
	// for the state it belongs to and is zeroed on every reset.
	State         State
	Field         Field
	CaseID        int64
	ReturnPage    int
	PendingMedia  []Item
	PendingReview []Item
	CtaText       string

	// Screen is the ephemeral UI currently on display.
	Screen ScreenRefs

	// LastViewedCase is the last catalog entry shown to this chat,
	// attributed when the viewer follows up with a contact action.
	LastViewedCase int64

	// Throttle record: last named action and when it ran.
	LastAction   string
	LastActionAt time.Time
}

// ResetWorkflow returns the session to Idle and discards all scratch
// fields. Screen refs and the throttle record survive; the screen is
// cleaned up separately and throttling spans workflow boundaries.
func (s *Session) ResetWorkflow() {
	s.State = Idle
	s.Field = ""
	s.CaseID = 0
	s.ReturnPage = 0
	s.PendingMedia = nil
	s.PendingReview = nil
	s.CtaText = ""
}

// Manager maps chat ids to sessions, creating them on first access.
type Manager struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[int64]*Session)}
}

// Get returns the session for a chat, creating it if needed.
func (m *Manager) Get(chatID int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[chatID]
	if !ok {
		s = &Session{ChatID: chatID}
		m.sessions[chatID] = s
	}
	return s
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
