package workflow

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casebot/internal/session"
	"casebot/internal/store"
)

func TestTitleEditEndToEnd(t *testing.T) {
	d, tr, st := newTestDispatcher(t)
	ctx := context.Background()

	d.HandleUpdate(ctx, callback(testAdminID, "admin:cases:new", 1))
	c, err := st.GetCase(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, store.StatusDraft, c.Status)

	d.HandleUpdate(ctx, callback(testAdminID, "admin:cases:edit_title:1|0", 2))
	s := d.sessions.Get(testChatID)
	assert.Equal(t, session.AwaitingFieldValue, s.State)
	assert.Equal(t, session.FieldTitle, s.Field)
	assert.Equal(t, int64(1), s.CaseID)
	assert.Equal(t, 0, s.ReturnPage)

	d.HandleUpdate(ctx, textMessage(testAdminID, "Hello"))

	c, err = st.GetCase(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Hello", c.Title)
	assert.Equal(t, session.Idle, s.State)

	card := tr.lastSent(t, "text")
	assert.Contains(t, card.Text, "Hello")
	require.NotNil(t, card.KB)
	lastRow := card.KB.InlineKeyboard[len(card.KB.InlineKeyboard)-1]
	assert.Equal(t, "admin:cases:list:0", lastRow[0].CallbackData)
}

func TestTitleValidationKeepsState(t *testing.T) {
	d, tr, st := newTestDispatcher(t)
	ctx := context.Background()

	_, err := st.CreateDraft(ctx)
	require.NoError(t, err)
	d.HandleUpdate(ctx, callback(testAdminID, "admin:cases:edit_title:1|0", 1))
	s := d.sessions.Get(testChatID)

	d.HandleUpdate(ctx, textMessage(testAdminID, "   "))
	assert.Equal(t, session.AwaitingFieldValue, s.State)
	assert.Contains(t, tr.lastSent(t, "text").Text, "cannot be empty")

	d.HandleUpdate(ctx, textMessage(testAdminID, strings.Repeat("x", 256)))
	assert.Equal(t, session.AwaitingFieldValue, s.State)
	assert.Contains(t, tr.lastSent(t, "text").Text, "too long")

	c, err := st.GetCase(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "New case", c.Title)
}

func TestCoverAlbumCapAtTen(t *testing.T) {
	d, tr, st := newTestDispatcher(t)
	ctx := context.Background()

	_, err := st.CreateDraft(ctx)
	require.NoError(t, err)
	d.HandleUpdate(ctx, callback(testAdminID, "admin:cases:edit_cover:1|0", 1))
	s := d.sessions.Get(testChatID)

	for i := 0; i < 10; i++ {
		d.HandleUpdate(ctx, photoMessage(testAdminID, fmt.Sprintf("photo-%d", i)))
	}
	require.Len(t, s.PendingMedia, 10)

	d.HandleUpdate(ctx, photoMessage(testAdminID, "photo-overflow"))
	assert.Len(t, s.PendingMedia, 10)
	assert.Contains(t, tr.lastSent(t, "text").Text, "limited to 10")
}

func TestCoverRejectsNonMediaInput(t *testing.T) {
	d, tr, st := newTestDispatcher(t)
	ctx := context.Background()

	_, err := st.CreateDraft(ctx)
	require.NoError(t, err)
	d.HandleUpdate(ctx, callback(testAdminID, "admin:cases:edit_cover:1|0", 1))
	s := d.sessions.Get(testChatID)

	d.HandleUpdate(ctx, textMessage(testAdminID, "not a photo"))
	assert.Empty(t, s.PendingMedia)
	assert.Contains(t, tr.lastSent(t, "text").Text, "photo or video")
}

func TestCoverDonePersistsAlbum(t *testing.T) {
	d, _, st := newTestDispatcher(t)
	ctx := context.Background()

	_, err := st.CreateDraft(ctx)
	require.NoError(t, err)
	d.HandleUpdate(ctx, callback(testAdminID, "admin:cases:edit_cover:1|0", 1))

	d.HandleUpdate(ctx, photoMessage(testAdminID, "p1"))
	d.HandleUpdate(ctx, videoMessage(testAdminID, "v1"))
	d.HandleUpdate(ctx, callback(testAdminID, "admin:cases:cover_done:1|0", 2))

	media, err := st.GetCaseMedia(ctx, 1)
	require.NoError(t, err)
	require.Len(t, media, 2)
	assert.Equal(t, "p1", media[0].FileID)
	assert.True(t, media[0].IsCover)
	assert.Equal(t, "v1", media[1].FileID)
	assert.False(t, media[1].IsCover)

	assert.Equal(t, session.Idle, d.sessions.Get(testChatID).State)
}

func TestCoverDoneWithoutMediaIsRejected(t *testing.T) {
	d, tr, st := newTestDispatcher(t)
	ctx := context.Background()

	_, err := st.CreateDraft(ctx)
	require.NoError(t, err)
	d.HandleUpdate(ctx, callback(testAdminID, "admin:cases:edit_cover:1|0", 1))
	d.HandleUpdate(ctx, callback(testAdminID, "admin:cases:cover_done:1|0", 2))

	assert.Equal(t, []string{"You have not added any media yet"}, tr.Alerts)
	assert.Equal(t, session.AwaitingFieldValue, d.sessions.Get(testChatID).State)
}

func TestReviewWorkflowEndToEnd(t *testing.T) {
	d, _, st := newTestDispatcher(t)
	ctx := context.Background()

	_, err := st.CreateDraft(ctx)
	require.NoError(t, err)
	d.HandleUpdate(ctx, callback(testAdminID, "admin:cases:review:1|0", 1))
	s := d.sessions.Get(testChatID)
	assert.Equal(t, session.AwaitingReviewItems, s.State)

	d.HandleUpdate(ctx, photoMessage(testAdminID, "r1"))
	d.HandleUpdate(ctx, photoMessage(testAdminID, "r2"))
	d.HandleUpdate(ctx, voiceMessage(testAdminID, "r3"))
	d.HandleUpdate(ctx, textMessage(testAdminID, "nice"))
	d.HandleUpdate(ctx, callback(testAdminID, "admin:cases:review_done:1|0", 2))

	items, err := st.GetCaseReview(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 4)

	voices := 0
	for i, item := range items {
		assert.Equal(t, i, item.Position)
		if item.MediaType == "voice" {
			voices++
		}
	}
	assert.Equal(t, 1, voices)
	assert.Equal(t, "photo", items[0].MediaType)
	assert.Equal(t, "photo", items[1].MediaType)
	assert.Equal(t, "voice", items[2].MediaType)
	assert.Equal(t, "text", items[3].MediaType)
	assert.Equal(t, "nice", items[3].TextContent)

	assert.Equal(t, session.Idle, s.State)
}

func TestReviewSingletonVoiceRejected(t *testing.T) {
	d, tr, st := newTestDispatcher(t)
	ctx := context.Background()

	_, err := st.CreateDraft(ctx)
	require.NoError(t, err)
	d.HandleUpdate(ctx, callback(testAdminID, "admin:cases:review:1|0", 1))
	s := d.sessions.Get(testChatID)

	d.HandleUpdate(ctx, voiceMessage(testAdminID, "first"))
	d.HandleUpdate(ctx, voiceMessage(testAdminID, "second"))

	require.Len(t, s.PendingReview, 1)
	assert.Equal(t, "first", s.PendingReview[0].FileID)
	assert.Contains(t, tr.lastSent(t, "text").Text, "one voice message")
}

func TestReviewDoneWithoutItemsIsRejected(t *testing.T) {
	d, tr, st := newTestDispatcher(t)
	ctx := context.Background()

	_, err := st.CreateDraft(ctx)
	require.NoError(t, err)
	d.HandleUpdate(ctx, callback(testAdminID, "admin:cases:review:1|0", 1))
	d.HandleUpdate(ctx, callback(testAdminID, "admin:cases:review_done:1|0", 2))

	assert.Equal(t, []string{"You have not added a review yet"}, tr.Alerts)
}

func TestReviewCancelDiscardsItems(t *testing.T) {
	d, _, st := newTestDispatcher(t)
	ctx := context.Background()

	_, err := st.CreateDraft(ctx)
	require.NoError(t, err)
	d.HandleUpdate(ctx, callback(testAdminID, "admin:cases:review:1|0", 1))
	d.HandleUpdate(ctx, photoMessage(testAdminID, "r1"))
	d.HandleUpdate(ctx, callback(testAdminID, "admin:cases:review_cancel:1|0", 2))

	s := d.sessions.Get(testChatID)
	assert.Equal(t, session.Idle, s.State)
	assert.Empty(t, s.PendingReview)

	_, err = st.GetCaseReview(ctx, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCtaContactFlow(t *testing.T) {
	d, tr, st := newTestDispatcher(t)
	ctx := context.Background()

	_, err := st.CreateDraft(ctx)
	require.NoError(t, err)
	d.HandleUpdate(ctx, callback(testAdminID, "admin:cases:cta:1|0", 1))
	s := d.sessions.Get(testChatID)
	assert.Equal(t, session.AwaitingCtaText, s.State)

	d.HandleUpdate(ctx, textMessage(testAdminID, "Talk to me"))
	assert.Equal(t, "Talk to me", s.CtaText)
	prompt := tr.lastSent(t, "text")
	assert.Equal(t, "Choose the button action:", prompt.Text)
	require.NotNil(t, prompt.KB)
	assert.Equal(t, "admin:cases:cta_type:contact:1|0", prompt.KB.InlineKeyboard[0][0].CallbackData)

	d.HandleUpdate(ctx, callback(testAdminID, "admin:cases:cta_type:contact:1|0", prompt.ID))

	cta, err := st.GetCaseCTA(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Talk to me", cta.ButtonText)
	assert.Equal(t, store.CTAContact, cta.ActionType)
	assert.Empty(t, cta.ActionValue)
	assert.Equal(t, session.Idle, s.State)
}

func TestCtaURLFlow(t *testing.T) {
	d, tr, st := newTestDispatcher(t)
	ctx := context.Background()

	_, err := st.CreateDraft(ctx)
	require.NoError(t, err)
	d.HandleUpdate(ctx, callback(testAdminID, "admin:cases:cta:1|0", 1))
	d.HandleUpdate(ctx, textMessage(testAdminID, "Open the site"))
	d.HandleUpdate(ctx, callback(testAdminID, "admin:cases:cta_type:url:1|0", 2))

	s := d.sessions.Get(testChatID)
	assert.Equal(t, session.AwaitingCtaURL, s.State)

	d.HandleUpdate(ctx, textMessage(testAdminID, "ftp://nope"))
	assert.Equal(t, session.AwaitingCtaURL, s.State)
	assert.Contains(t, tr.lastSent(t, "text").Text, "http://")

	d.HandleUpdate(ctx, textMessage(testAdminID, "https://example.com"))

	cta, err := st.GetCaseCTA(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Open the site", cta.ButtonText)
	assert.Equal(t, store.CTAURL, cta.ActionType)
	assert.Equal(t, "https://example.com", cta.ActionValue)
	assert.Equal(t, session.Idle, s.State)
}

func TestCtaTypeWithoutLabelRejected(t *testing.T) {
	d, tr, st := newTestDispatcher(t)
	ctx := context.Background()

	_, err := st.CreateDraft(ctx)
	require.NoError(t, err)
	d.HandleUpdate(ctx, callback(testAdminID, "admin:cases:cta_type:contact:1|0", 1))

	assert.Equal(t, []string{"Set the button label first"}, tr.Alerts)
	_, err = st.GetCaseCTA(ctx, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCtaLabelTooLongRejected(t *testing.T) {
	d, tr, st := newTestDispatcher(t)
	ctx := context.Background()

	_, err := st.CreateDraft(ctx)
	require.NoError(t, err)
	d.HandleUpdate(ctx, callback(testAdminID, "admin:cases:cta:1|0", 1))
	s := d.sessions.Get(testChatID)

	d.HandleUpdate(ctx, textMessage(testAdminID, strings.Repeat("y", 65)))
	assert.Equal(t, session.AwaitingCtaText, s.State)
	assert.Empty(t, s.CtaText)
	assert.Contains(t, tr.lastSent(t, "text").Text, "too long")
}

func TestNavigationActionAbandonsWorkflow(t *testing.T) {
	d, _, st := newTestDispatcher(t)
	ctx := context.Background()

	_, err := st.CreateDraft(ctx)
	require.NoError(t, err)
	d.HandleUpdate(ctx, callback(testAdminID, "admin:cases:edit_title:1|0", 1))
	s := d.sessions.Get(testChatID)
	require.Equal(t, session.AwaitingFieldValue, s.State)

	d.HandleUpdate(ctx, callback(testAdminID, "admin:main", 2))
	assert.Equal(t, session.Idle, s.State)

	// The stale edit must not swallow a later message.
	d.HandleUpdate(ctx, textMessage(testAdminID, "not a title"))
	c, err := st.GetCase(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "New case", c.Title)
}

func TestNonAdminMessageDropsWorkflow(t *testing.T) {
	d, _, st := newTestDispatcher(t)
	ctx := context.Background()

	_, err := st.CreateDraft(ctx)
	require.NoError(t, err)
	d.HandleUpdate(ctx, callback(testAdminID, "admin:cases:edit_title:1|0", 1))

	// Another account writing into the same chat must not edit the case.
	d.HandleUpdate(ctx, textMessage(testUserID, "Hijacked"))

	c, err := st.GetCase(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "New case", c.Title)
}
