package workflow

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"casebot/internal/session"
	"casebot/internal/store"
	"casebot/internal/telegram"
)

const (
	maxTitleLen    = 255
	maxDescLen     = 2000
	maxCtaLabelLen = 64
	maxAlbumItems  = 10
	maxReviewItems = 10
)

// classify picks a message's single recognized content kind. Precedence is
// fixed: voice, video note, photo, video, then text.
func classify(msg *telegram.Message) (session.Item, bool) {
	switch {
	case msg.Voice != nil:
		return session.Item{Kind: session.KindVoice, FileID: msg.Voice.FileID}, true
	case msg.VideoNote != nil:
		return session.Item{Kind: session.KindVideoNote, FileID: msg.VideoNote.FileID}, true
	case len(msg.Photo) > 0:
		return session.Item{Kind: session.KindPhoto, FileID: msg.LargestPhoto()}, true
	case msg.Video != nil:
		return session.Item{Kind: session.KindVideo, FileID: msg.Video.FileID}, true
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return session.Item{}, false
	}
	return session.Item{Kind: session.KindText, Text: text}, true
}

func (d *Dispatcher) sendNotice(ctx context.Context, chatID int64, text string) {
	if _, err := d.transport.SendMessage(ctx, chatID, text, nil); err != nil {
		d.log.Debug("send notice", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// handleFieldInput consumes one turn of an AwaitingFieldValue edit: a text
// value for title/description, or one more media item for a cover album.
func (d *Dispatcher) handleFieldInput(ctx context.Context, s *session.Session, msg *telegram.Message) {
	if !d.isAdmin(msg.From.ID) {
		s.ResetWorkflow()
		return
	}
	if s.CaseID == 0 || (s.Field != session.FieldTitle && s.Field != session.FieldDescription && s.Field != session.FieldCover) {
		s.ResetWorkflow()
		d.sendNotice(ctx, s.ChatID, "Editing state was lost, open the case again")
		return
	}

	if s.Field == session.FieldCover {
		d.collectCoverItem(ctx, s, msg)
		return
	}

	value := strings.TrimSpace(msg.Text)
	if value == "" {
		d.sendNotice(ctx, s.ChatID, "The value cannot be empty. Send text or press ✖️ Cancel.")
		return
	}
	if s.Field == session.FieldTitle && len([]rune(value)) > maxTitleLen {
		d.sendNotice(ctx, s.ChatID, "The title is too long (255 max). Send a shorter one or press ✖️ Cancel.")
		return
	}
	if s.Field == session.FieldDescription && len([]rune(value)) > maxDescLen {
		d.sendNotice(ctx, s.ChatID, "The description is too long (2000 max). Send a shorter one or press ✖️ Cancel.")
		return
	}

	caseID, returnPage := s.CaseID, s.ReturnPage
	if err := d.store.UpdateCaseField(ctx, caseID, string(s.Field), value); err != nil {
		d.log.Error("update case field",
			zap.Int64("case_id", caseID),
			zap.String("field", string(s.Field)),
			zap.Error(err))
		s.ResetWorkflow()
		d.sendNotice(ctx, s.ChatID, "Could not save the value, open the case again")
		return
	}

	d.deleteQuiet(ctx, s.ChatID, msg.MessageID)
	s.ResetWorkflow()
	d.renderCaseEditor(ctx, s, caseID, returnPage, "")
}

// collectCoverItem appends one photo or video to the pending album,
// enforcing the ten-item cap at insertion time.
func (d *Dispatcher) collectCoverItem(ctx context.Context, s *session.Session, msg *telegram.Message) {
	item, ok := classify(msg)
	if !ok || (item.Kind != session.KindPhoto && item.Kind != session.KindVideo) {
		d.sendNotice(ctx, s.ChatID, "Send a photo or video for the album, or press ✖️ Cancel.")
		return
	}
	if len(s.PendingMedia) >= maxAlbumItems {
		d.sendNotice(ctx, s.ChatID, "The album is limited to 10 items")
		return
	}
	s.PendingMedia = append(s.PendingMedia, item)
	d.deleteQuiet(ctx, s.ChatID, msg.MessageID)
}

// handleReviewInput consumes one turn of review collection. Invalid input
// draws a short-lived warning; the raw message is removed either way.
func (d *Dispatcher) handleReviewInput(ctx context.Context, s *session.Session, msg *telegram.Message) {
	if !d.isAdmin(msg.From.ID) {
		s.ResetWorkflow()
		return
	}
	if s.CaseID == 0 {
		s.ResetWorkflow()
		d.warnAndDismiss(ctx, s.ChatID, "Editing state was lost, open the case again", msg.MessageID)
		return
	}
	if len(s.PendingReview) >= maxReviewItems {
		d.warnAndDismiss(ctx, s.ChatID, "A review is limited to 10 items", msg.MessageID)
		return
	}

	item, ok := classify(msg)
	if !ok {
		d.warnAndDismiss(ctx, s.ChatID, "Send text or media for the review", msg.MessageID)
		return
	}
	switch item.Kind {
	case session.KindVoice:
		if hasKind(s.PendingReview, session.KindVoice) {
			d.warnAndDismiss(ctx, s.ChatID, "Only one voice message is allowed", msg.MessageID)
			return
		}
	case session.KindVideoNote:
		if hasKind(s.PendingReview, session.KindVideoNote) {
			d.warnAndDismiss(ctx, s.ChatID, "Only one video note is allowed", msg.MessageID)
			return
		}
	}

	s.PendingReview = append(s.PendingReview, item)
	d.deleteQuiet(ctx, s.ChatID, msg.MessageID)
}

func hasKind(items []session.Item, kind session.MediaKind) bool {
	for _, item := range items {
		if item.Kind == kind {
			return true
		}
	}
	return false
}

// handleCtaTextInput stores the button label and advances to the action
// type choice.
func (d *Dispatcher) handleCtaTextInput(ctx context.Context, s *session.Session, msg *telegram.Message) {
	if !d.isAdmin(msg.From.ID) {
		s.ResetWorkflow()
		return
	}
	if s.CaseID == 0 {
		s.ResetWorkflow()
		d.sendNotice(ctx, s.ChatID, "Editing state was lost, open the case again")
		return
	}

	value := strings.TrimSpace(msg.Text)
	if value == "" {
		d.sendNotice(ctx, s.ChatID, "The value cannot be empty. Send text or press ✖️ Cancel.")
		return
	}
	if len([]rune(value)) > maxCtaLabelLen {
		d.sendNotice(ctx, s.ChatID, "The label is too long (64 max). Send a shorter one.")
		return
	}

	s.CtaText = value
	d.deleteQuiet(ctx, s.ChatID, s.Screen.PromptID)
	s.Screen.PromptID = 0
	d.deleteQuiet(ctx, s.ChatID, msg.MessageID)

	id, err := d.transport.SendMessage(ctx, s.ChatID, "Choose the button action:", ctaTypeKB(s.CaseID, s.ReturnPage))
	if err != nil {
		d.log.Warn("send cta type prompt", zap.Error(err))
		return
	}
	s.Screen.PromptID = id
}

// handleCtaURLInput validates the link and persists the URL-type CTA.
func (d *Dispatcher) handleCtaURLInput(ctx context.Context, s *session.Session, msg *telegram.Message) {
	if !d.isAdmin(msg.From.ID) {
		s.ResetWorkflow()
		return
	}
	if s.CaseID == 0 || s.CtaText == "" {
		s.ResetWorkflow()
		d.sendNotice(ctx, s.ChatID, "Editing state was lost, open the case again")
		return
	}

	url := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		d.sendNotice(ctx, s.ChatID, "That link does not look right. It must start with http:// or https://")
		return
	}

	caseID, returnPage := s.CaseID, s.ReturnPage
	if err := d.store.UpsertCaseCTA(ctx, caseID, s.CtaText, store.CTAURL, url); err != nil {
		d.log.Error("upsert cta", zap.Int64("case_id", caseID), zap.Error(err))
		s.ResetWorkflow()
		d.sendNotice(ctx, s.ChatID, "Could not save the button, open the case again")
		return
	}

	d.deleteQuiet(ctx, s.ChatID, msg.MessageID)
	s.ResetWorkflow()
	d.renderCaseEditor(ctx, s, caseID, returnPage, "✅ Button updated")
}
