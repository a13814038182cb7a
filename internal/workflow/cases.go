package workflow

import (
	"context"

	"go.uber.org/zap"

	"casebot/internal/session"
	"casebot/internal/store"
	"casebot/internal/telegram"
	"casebot/internal/token"
)

func (d *Dispatcher) handleAdminCases(ctx context.Context, s *session.Session, cb *telegram.CallbackQuery, tok token.Token) {
	action := tok.Action
	if action == "" {
		action = "list"
	}

	switch action {
	case "list":
		d.store.LogEvent(ctx, cb.From.ID, "admin_nav", "cases", action, map[string]any{"callback": cb.Data})
		page, err := token.ParsePage(tok.Payload)
		if err != nil {
			page = 0
		}
		d.clearScreen(ctx, s, cb)
		d.renderAdminCaseList(ctx, s, page)
		d.answer(ctx, cb.ID)

	case "new":
		d.clearScreen(ctx, s, cb)
		caseID, err := d.store.CreateDraft(ctx)
		if err != nil {
			d.log.Error("create draft", zap.Error(err))
			d.alert(ctx, cb.ID, "Could not create the case")
			return
		}
		d.renderCaseEditor(ctx, s, caseID, 0, "")
		d.answer(ctx, cb.ID)

	case "view":
		ref, err := token.ParseEntity(tok.Payload)
		if err != nil {
			d.alert(ctx, cb.ID, "Invalid case")
			return
		}
		d.store.LogEvent(ctx, cb.From.ID, "admin_nav", "cases", action, map[string]any{"case_id": ref.CaseID})
		d.clearScreen(ctx, s, cb)
		d.renderCaseEditor(ctx, s, ref.CaseID, ref.ReturnPage, "")
		d.answer(ctx, cb.ID)

	case "edit_title", "edit_desc", "edit_cover":
		d.beginFieldEdit(ctx, s, cb, tok, action)

	case "edit_cancel":
		ref, err := token.ParseEntity(tok.Payload)
		if err != nil {
			d.alert(ctx, cb.ID, "Invalid data")
			return
		}
		d.store.LogEvent(ctx, cb.From.ID, "admin_case_edit", "edit_cancel", action, map[string]any{"case_id": ref.CaseID})
		s.ResetWorkflow()
		d.clearScreen(ctx, s, cb)
		d.renderCaseEditor(ctx, s, ref.CaseID, ref.ReturnPage, "")
		d.answerText(ctx, cb.ID, "Cancelled")

	case "cover_done":
		d.finishCoverEdit(ctx, s, cb, tok)

	case "review":
		d.beginReviewEdit(ctx, s, cb, tok)

	case "review_cancel":
		ref, err := token.ParseEntity(tok.Payload)
		if err != nil {
			d.alert(ctx, cb.ID, "Invalid data")
			return
		}
		s.ResetWorkflow()
		d.clearScreen(ctx, s, cb)
		d.renderCaseEditor(ctx, s, ref.CaseID, ref.ReturnPage, "")
		d.answerText(ctx, cb.ID, "Cancelled")

	case "review_done":
		d.finishReviewEdit(ctx, s, cb, tok)

	case "cta":
		d.beginCtaEdit(ctx, s, cb, tok)

	case "cta_type":
		d.chooseCtaType(ctx, s, cb, tok)

	case "cta_cancel":
		ref, err := token.ParseEntity(tok.Payload)
		if err != nil {
			d.alert(ctx, cb.ID, "Invalid data")
			return
		}
		s.ResetWorkflow()
		d.clearScreen(ctx, s, cb)
		d.renderCaseEditor(ctx, s, ref.CaseID, ref.ReturnPage, "")
		d.answerText(ctx, cb.ID, "Cancelled")

	case "publish", "unpublish":
		d.changeCaseStatus(ctx, s, cb, tok, action)

	default:
		d.alert(ctx, cb.ID, "Unknown command")
	}
}

// beginFieldEdit enters AwaitingFieldValue for a title, description, or
// cover edit and shows the matching input prompt.
func (d *Dispatcher) beginFieldEdit(ctx context.Context, s *session.Session, cb *telegram.CallbackQuery, tok token.Token, action string) {
	ref, err := token.ParseEntity(tok.Payload)
	if err != nil {
		d.alert(ctx, cb.ID, "Invalid data")
		return
	}
	d.store.LogEvent(ctx, cb.From.ID, "admin_case_edit", "edit", action, map[string]any{"case_id": ref.CaseID, "action": action})

	if _, err := d.store.GetCase(ctx, ref.CaseID); err != nil {
		d.alert(ctx, cb.ID, "Case not found")
		return
	}

	var (
		field  session.Field
		prompt string
	)
	switch action {
	case "edit_title":
		field = session.FieldTitle
		prompt = "✏️ Send the new title as a single message:"
	case "edit_desc":
		field = session.FieldDescription
		prompt = "✏️ Send the new description as a single message:"
	default:
		field = session.FieldCover
		prompt = "Send the new album: just send me photos or videos, up to 10."
	}

	d.clearScreen(ctx, s, cb)

	s.ResetWorkflow()
	s.State = session.AwaitingFieldValue
	s.Field = field
	s.CaseID = ref.CaseID
	s.ReturnPage = ref.ReturnPage

	d.answer(ctx, cb.ID)

	showDone := field == session.FieldCover
	id, err := d.transport.SendMessage(ctx, s.ChatID, prompt, editCancelKB(ref.CaseID, ref.ReturnPage, showDone))
	if err != nil {
		d.log.Warn("send edit prompt", zap.Error(err))
		return
	}
	s.Screen.PromptID = id
}

// finishCoverEdit replaces the case album with the accumulated media, the
// first item becoming the cover.
func (d *Dispatcher) finishCoverEdit(ctx context.Context, s *session.Session, cb *telegram.CallbackQuery, tok token.Token) {
	ref, err := token.ParseEntity(tok.Payload)
	if err != nil {
		d.alert(ctx, cb.ID, "Invalid data")
		return
	}
	d.store.LogEvent(ctx, cb.From.ID, "admin_case_edit", "cover_done", "cover_done", map[string]any{"case_id": ref.CaseID})

	if len(s.PendingMedia) == 0 {
		d.alert(ctx, cb.ID, "You have not added any media yet")
		return
	}

	items := make([]store.MediaInput, 0, len(s.PendingMedia))
	for _, item := range s.PendingMedia {
		items = append(items, store.MediaInput{FileID: item.FileID, MediaType: string(item.Kind)})
	}
	if err := d.store.ReplaceCaseMedia(ctx, ref.CaseID, items, true); err != nil {
		d.log.Error("replace case media", zap.Int64("case_id", ref.CaseID), zap.Error(err))
		s.ResetWorkflow()
		d.alert(ctx, cb.ID, "Could not save the album")
		return
	}

	s.ResetWorkflow()
	d.clearScreen(ctx, s, cb)
	d.renderCaseEditor(ctx, s, ref.CaseID, ref.ReturnPage, "🖼 Album updated ✅")
	d.answerText(ctx, cb.ID, "Saved")
}

func (d *Dispatcher) beginReviewEdit(ctx context.Context, s *session.Session, cb *telegram.CallbackQuery, tok token.Token) {
	ref, err := token.ParseEntity(tok.Payload)
	if err != nil {
		d.alert(ctx, cb.ID, "Invalid data")
		return
	}

	d.clearScreen(ctx, s, cb)

	s.ResetWorkflow()
	s.State = session.AwaitingReviewItems
	s.CaseID = ref.CaseID
	s.ReturnPage = ref.ReturnPage

	d.answer(ctx, cb.ID)

	prompt := "Send review content: text, photos, videos, a voice message or a video note.\n" +
		"Photos and videos: up to 10.\n" +
		"Voice and video note: one each.\n" +
		"Press Done when finished."
	id, err := d.transport.SendMessage(ctx, s.ChatID, prompt, reviewCancelKB(ref.CaseID, ref.ReturnPage, true))
	if err != nil {
		d.log.Warn("send review prompt", zap.Error(err))
		return
	}
	s.Screen.PromptID = id
}

// finishReviewEdit atomically replaces the case's review bundle with the
// collected items, preserving arrival order as position.
func (d *Dispatcher) finishReviewEdit(ctx context.Context, s *session.Session, cb *telegram.CallbackQuery, tok token.Token) {
	ref, err := token.ParseEntity(tok.Payload)
	if err != nil {
		d.alert(ctx, cb.ID, "Invalid data")
		return
	}
	if len(s.PendingReview) == 0 {
		d.alert(ctx, cb.ID, "You have not added a review yet")
		return
	}

	items := make([]store.ReviewInput, 0, len(s.PendingReview))
	for _, item := range s.PendingReview {
		items = append(items, store.ReviewInput{
			FileID:      item.FileID,
			MediaType:   string(item.Kind),
			TextContent: item.Text,
		})
	}
	if err := d.store.ReplaceCaseReview(ctx, ref.CaseID, items); err != nil {
		d.log.Error("replace review", zap.Int64("case_id", ref.CaseID), zap.Error(err))
		s.ResetWorkflow()
		d.alert(ctx, cb.ID, "Could not save the review")
		return
	}

	s.ResetWorkflow()
	d.clearScreen(ctx, s, cb)
	d.renderCaseEditor(ctx, s, ref.CaseID, ref.ReturnPage, "✅ Review updated")
	d.answerText(ctx, cb.ID, "Saved")
}

func (d *Dispatcher) beginCtaEdit(ctx context.Context, s *session.Session, cb *telegram.CallbackQuery, tok token.Token) {
	ref, err := token.ParseEntity(tok.Payload)
	if err != nil {
		d.alert(ctx, cb.ID, "Invalid data")
		return
	}

	prompt := "Send the button label (64 characters max) as a single message."
	if cta, err := d.store.GetCaseCTA(ctx, ref.CaseID); err == nil && cta.ButtonText != "" {
		prompt += "\nCurrent label: " + cta.ButtonText
	}

	d.clearScreen(ctx, s, cb)

	s.ResetWorkflow()
	s.State = session.AwaitingCtaText
	s.CaseID = ref.CaseID
	s.ReturnPage = ref.ReturnPage

	d.answer(ctx, cb.ID)

	id, err := d.transport.SendMessage(ctx, s.ChatID, prompt, ctaCancelKB(ref.CaseID, ref.ReturnPage))
	if err != nil {
		d.log.Warn("send cta prompt", zap.Error(err))
		return
	}
	s.Screen.PromptID = id
}

// chooseCtaType finalizes a contact-type CTA immediately, or advances to
// AwaitingCtaURL for a link-type one.
func (d *Dispatcher) chooseCtaType(ctx context.Context, s *session.Session, cb *telegram.CallbackQuery, tok token.Token) {
	if tok.Variant == "" {
		d.alert(ctx, cb.ID, "Invalid data")
		return
	}
	ref, err := token.ParseEntity(tok.Payload)
	if err != nil {
		d.alert(ctx, cb.ID, "Invalid data")
		return
	}
	if s.CtaText == "" {
		d.alert(ctx, cb.ID, "Set the button label first")
		return
	}

	switch tok.Variant {
	case store.CTAContact:
		if err := d.store.UpsertCaseCTA(ctx, ref.CaseID, s.CtaText, store.CTAContact, ""); err != nil {
			d.log.Error("upsert cta", zap.Int64("case_id", ref.CaseID), zap.Error(err))
			s.ResetWorkflow()
			d.alert(ctx, cb.ID, "Could not save the button")
			return
		}
		s.ResetWorkflow()
		d.clearScreen(ctx, s, cb)
		d.renderCaseEditor(ctx, s, ref.CaseID, ref.ReturnPage, "✅ Button updated")
		d.answerText(ctx, cb.ID, "Saved")

	case store.CTAURL:
		d.clearScreen(ctx, s, cb)
		s.State = session.AwaitingCtaURL
		s.CaseID = ref.CaseID
		s.ReturnPage = ref.ReturnPage
		id, err := d.transport.SendMessage(ctx, s.ChatID,
			"Send the button link (it must start with http:// or https://).",
			ctaCancelKB(ref.CaseID, ref.ReturnPage))
		if err == nil {
			s.Screen.PromptID = id
		}
		d.answer(ctx, cb.ID)

	default:
		d.alert(ctx, cb.ID, "Invalid type")
	}
}

// changeCaseStatus publishes or hides a case, debounced so a double-tap
// does not flip it twice.
func (d *Dispatcher) changeCaseStatus(ctx context.Context, s *session.Session, cb *telegram.CallbackQuery, tok token.Token, action string) {
	ref, err := token.ParseEntity(tok.Payload)
	if err != nil {
		d.alert(ctx, cb.ID, "Invalid data")
		return
	}
	d.store.LogEvent(ctx, cb.From.ID, "admin_case_status", "status_change", action, map[string]any{"case_id": ref.CaseID, "action": action})

	if _, err := d.store.GetCase(ctx, ref.CaseID); err != nil {
		d.alert(ctx, cb.ID, "Case not found")
		return
	}

	if d.throttle.ShouldThrottle(s, action, d.opts.PublishCooldown) {
		d.answer(ctx, cb.ID)
		return
	}

	// Drop the keyboard under the pressed button so it cannot fire again
	// while the editor re-renders.
	if err := d.transport.EditMessageReplyMarkup(ctx, cb.Message.Chat.ID, cb.Message.MessageID, nil); err != nil {
		d.log.Debug("strip keyboard", zap.Error(err))
	}

	newStatus := store.StatusPublished
	note := "Case published"
	if action == "unpublish" {
		newStatus = store.StatusDraft
		note = "Case hidden"
	}
	if err := d.store.UpdateCaseField(ctx, ref.CaseID, "status", newStatus); err != nil {
		d.log.Error("update case status", zap.Int64("case_id", ref.CaseID), zap.Error(err))
		d.alert(ctx, cb.ID, "Could not update the case")
		return
	}

	d.clearScreen(ctx, s, cb)
	d.renderCaseEditor(ctx, s, ref.CaseID, ref.ReturnPage, note)
	d.answer(ctx, cb.ID)
}
