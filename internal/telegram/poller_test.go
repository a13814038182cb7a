package telegram

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type scriptedUpdater struct {
	mu      sync.Mutex
	batches [][]Update
}

func (s *scriptedUpdater) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.batches) == 0 {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]
	return batch, nil
}

type recordingHandler struct {
	mu   sync.Mutex
	seen map[int64][]int64
	done chan struct{}
	want int
}

func (h *recordingHandler) HandleUpdate(ctx context.Context, upd Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen[upd.ChatID()] = append(h.seen[upd.ChatID()], upd.UpdateID)
	h.want--
	if h.want == 0 {
		close(h.done)
	}
}

func msgUpdate(updateID, chatID int64) Update {
	return Update{UpdateID: updateID, Message: &Message{Chat: Chat{ID: chatID}}}
}

func TestPollerPerChatOrdering(t *testing.T) {
	defer goleak.VerifyNone(t)

	api := &scriptedUpdater{batches: [][]Update{
		{msgUpdate(1, 5), msgUpdate(2, 9), msgUpdate(3, 5)},
		{msgUpdate(4, 9), msgUpdate(5, 5)},
	}}
	h := &recordingHandler{seen: make(map[int64][]int64), done: make(chan struct{}), want: 5}

	ctx, cancel := context.WithCancel(context.Background())
	p := NewPoller(api, h, zap.NewNop())
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()

	select {
	case <-h.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for updates")
	}
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Equal(t, []int64{1, 3, 5}, h.seen[5])
	assert.Equal(t, []int64{2, 4}, h.seen[9])
}

func TestPollerSkipsUpdatesWithoutChat(t *testing.T) {
	defer goleak.VerifyNone(t)

	api := &scriptedUpdater{batches: [][]Update{
		{{UpdateID: 1}, msgUpdate(2, 7)},
	}}
	h := &recordingHandler{seen: make(map[int64][]int64), done: make(chan struct{}), want: 1}

	ctx, cancel := context.WithCancel(context.Background())
	p := NewPoller(api, h, zap.NewNop())
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()

	select {
	case <-h.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for update")
	}
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Len(t, h.seen, 1)
	assert.Equal(t, []int64{2}, h.seen[7])
}
