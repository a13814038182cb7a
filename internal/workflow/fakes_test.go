package workflow

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"casebot/internal/store"
	"casebot/internal/telegram"
)

const (
	testChatID  = int64(1000)
	testAdminID = int64(42)
	testUserID  = int64(77)
)

type sentMessage struct {
	ID     int
	ChatID int64
	Kind   string // "text", "photo", "voice", "video_note", "document"
	Text   string
	KB     *telegram.InlineKeyboardMarkup
}

// fakeTransport records every render call and hands out sequential
// message ids.
type fakeTransport struct {
	nextID  int64
	Sent    []sentMessage
	Albums  [][]telegram.InputMedia
	Deleted []int
	Edits   map[int]string
	Answers []string
	Alerts  []string
	Docs    []string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{Edits: make(map[int]string)}
}

func (f *fakeTransport) newID() int { return int(atomic.AddInt64(&f.nextID, 1)) }

func (f *fakeTransport) record(chatID int64, kind, text string, kb *telegram.InlineKeyboardMarkup) int {
	id := f.newID()
	f.Sent = append(f.Sent, sentMessage{ID: id, ChatID: chatID, Kind: kind, Text: text, KB: kb})
	return id
}

func (f *fakeTransport) SendMessage(_ context.Context, chatID int64, text string, kb *telegram.InlineKeyboardMarkup) (int, error) {
	return f.record(chatID, "text", text, kb), nil
}

func (f *fakeTransport) SendPhoto(_ context.Context, chatID int64, _, caption string, kb *telegram.InlineKeyboardMarkup) (int, error) {
	return f.record(chatID, "photo", caption, kb), nil
}

func (f *fakeTransport) SendMediaGroup(_ context.Context, chatID int64, media []telegram.InputMedia) ([]int, error) {
	f.Albums = append(f.Albums, media)
	ids := make([]int, len(media))
	for i := range media {
		ids[i] = f.record(chatID, "album", "", nil)
	}
	return ids, nil
}

func (f *fakeTransport) SendVoice(_ context.Context, chatID int64, fileID string) (int, error) {
	return f.record(chatID, "voice", fileID, nil), nil
}

func (f *fakeTransport) SendVideoNote(_ context.Context, chatID int64, fileID string) (int, error) {
	return f.record(chatID, "video_note", fileID, nil), nil
}

func (f *fakeTransport) SendDocument(_ context.Context, chatID int64, path, _ string) (int, error) {
	f.Docs = append(f.Docs, path)
	return f.record(chatID, "document", path, nil), nil
}

func (f *fakeTransport) DeleteMessage(_ context.Context, _ int64, messageID int) error {
	f.Deleted = append(f.Deleted, messageID)
	return nil
}

func (f *fakeTransport) EditMessageText(_ context.Context, _ int64, messageID int, text string) error {
	f.Edits[messageID] = text
	return nil
}

func (f *fakeTransport) EditMessageReplyMarkup(_ context.Context, _ int64, _ int, _ *telegram.InlineKeyboardMarkup) error {
	return nil
}

func (f *fakeTransport) AnswerCallback(_ context.Context, _ string, text string, showAlert bool) error {
	if showAlert {
		f.Alerts = append(f.Alerts, text)
	} else {
		f.Answers = append(f.Answers, text)
	}
	return nil
}

// lastSent returns the most recent message of the given kind.
func (f *fakeTransport) lastSent(t *testing.T, kind string) sentMessage {
	t.Helper()
	for i := len(f.Sent) - 1; i >= 0; i-- {
		if f.Sent[i].Kind == kind {
			return f.Sent[i]
		}
	}
	t.Fatalf("no %q message sent", kind)
	return sentMessage{}
}

type fakeReporter struct {
	path    string
	genErr  error
	deleted int
	kept    int
}

func (f *fakeReporter) Generate(context.Context) (string, error) { return f.path, f.genErr }

func (f *fakeReporter) Cleanup(time.Duration) (int, int, error) { return f.deleted, f.kept, nil }

type fakeSystem struct {
	restarted bool
}

func (f *fakeSystem) Status(context.Context) SystemStatus {
	return SystemStatus{Uptime: "00:01:00", GoVersion: "go1.24.0", PID: 123, DBOK: true}
}

func (f *fakeSystem) RequestRestart() { f.restarted = true }

func newTestDispatcher(t *testing.T) (*Dispatcher, *fakeTransport, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	tr := newFakeTransport()
	d := NewDispatcher(Options{AdminIDs: []int64{testAdminID}}, st, tr, &fakeReporter{path: "statistics_1.html"}, &fakeSystem{}, zap.NewNop())
	d.sleep = func(time.Duration) {}
	return d, tr, st
}

func callback(from int64, data string, messageID int) telegram.Update {
	return telegram.Update{CallbackQuery: &telegram.CallbackQuery{
		ID:      "cb",
		From:    telegram.User{ID: from},
		Data:    data,
		Message: &telegram.Message{MessageID: messageID, Chat: telegram.Chat{ID: testChatID}},
	}}
}

func textMessage(from int64, text string) telegram.Update {
	return telegram.Update{Message: &telegram.Message{
		MessageID: 900,
		From:      &telegram.User{ID: from},
		Chat:      telegram.Chat{ID: testChatID},
		Text:      text,
	}}
}

func photoMessage(from int64, fileID string) telegram.Update {
	upd := textMessage(from, "")
	upd.Message.Photo = []telegram.PhotoSize{{FileID: fileID}}
	return upd
}

func videoMessage(from int64, fileID string) telegram.Update {
	upd := textMessage(from, "")
	upd.Message.Video = &telegram.Video{FileID: fileID}
	return upd
}

func voiceMessage(from int64, fileID string) telegram.Update {
	upd := textMessage(from, "")
	upd.Message.Voice = &telegram.Voice{FileID: fileID}
	return upd
}
