package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManagerGetCreatesOnce(t *testing.T) {
	m := NewManager()
	a := m.Get(100)
	b := m.Get(100)
	assert.Same(t, a, b)
	assert.Equal(t, int64(100), a.ChatID)
	assert.Equal(t, 1, m.Len())
}

func TestManagerConcurrentAccess(t *testing.T) {
	m := NewManager()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(chat int64) {
			defer wg.Done()
			s := m.Get(chat % 10)
			_ = s.ChatID
		}(int64(i))
	}
	wg.Wait()
	assert.Equal(t, 10, m.Len())
}

func TestResetWorkflowKeepsScreenAndThrottle(t *testing.T) {
	s := &Session{
		ChatID:        7,
		State:         AwaitingReviewItems,
		Field:         FieldCover,
		CaseID:        42,
		ReturnPage:    3,
		PendingMedia:  []Item{{Kind: KindPhoto, FileID: "f1"}},
		PendingReview: []Item{{Kind: KindVoice, FileID: "v1"}},
		CtaText:       "Call me",
		Screen:        ScreenRefs{AlbumIDs: []int{1, 2}, CardID: 3, PromptID: 4},
		LastAction:    "publish",
		LastActionAt:  time.Now(),
	}

	s.ResetWorkflow()

	assert.Equal(t, Idle, s.State)
	assert.Empty(t, s.Field)
	assert.Zero(t, s.CaseID)
	assert.Zero(t, s.ReturnPage)
	assert.Nil(t, s.PendingMedia)
	assert.Nil(t, s.PendingReview)
	assert.Empty(t, s.CtaText)

	// Screen and throttle survive a workflow reset.
	assert.Equal(t, []int{1, 2}, s.Screen.AlbumIDs)
	assert.Equal(t, "publish", s.LastAction)
}

func TestScreenRefsAll(t *testing.T) {
	refs := ScreenRefs{AlbumIDs: []int{10, 11}, CardID: 12}
	assert.ElementsMatch(t, []int{10, 11, 12}, refs.All())
	assert.False(t, refs.Empty())
	assert.True(t, ScreenRefs{}.Empty())
}
