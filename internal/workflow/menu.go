package workflow

import (
	"context"
	"strconv"

	"casebot/internal/session"
	"casebot/internal/telegram"
	"casebot/internal/token"
)

// handleMenu serves the public navigation surface: the main menu, static
// pages, and the published-case catalog.
func (d *Dispatcher) handleMenu(ctx context.Context, s *session.Session, cb *telegram.CallbackQuery, tok token.Token) {
	// A public click while the chat is mid-edit abandons the edit; the
	// stale workflow must never swallow the next text message.
	s.ResetWorkflow()

	lastViewedCase := s.LastViewedCase

	if !d.isAdmin(cb.From.ID) && d.maintenanceEnabled(ctx) {
		d.clearScreen(ctx, s, cb)
		d.sendNotice(ctx, s.ChatID, "The bot is under maintenance, please come back later")
		d.answer(ctx, cb.ID)
		return
	}

	d.store.LogEvent(ctx, cb.From.ID, "menu_click", "main_menu", tok.Section, map[string]any{"callback": cb.Data})
	if tok.Section == "contact" && lastViewedCase != 0 {
		d.store.LogEvent(ctx, cb.From.ID, "case_contact_click", "case_cta",
			strconv.FormatInt(lastViewedCase, 10), map[string]any{"source": "case_view"})
	}

	switch tok.Section {
	case "main":
		d.store.LogEvent(ctx, cb.From.ID, "menu_open", "main_menu", "", nil)
		s.LastViewedCase = 0
		d.clearScreen(ctx, s, cb)
		d.renderMainMenu(ctx, s, cb.From.ID, "")
		d.answer(ctx, cb.ID)

	case "contact":
		s.LastViewedCase = 0
		d.clearScreen(ctx, s, cb)
		d.renderContact(ctx, s, cb.From.ID)
		d.answer(ctx, cb.ID)

	case "about":
		d.store.LogEvent(ctx, cb.From.ID, "about_open", "about_page", "", nil)
		s.LastViewedCase = 0
		d.clearScreen(ctx, s, cb)
		d.sendCard(ctx, s, d.opts.AboutImageID, d.opts.AboutText, d.contactKB())
		d.answer(ctx, cb.ID)

	case "steps":
		d.store.LogEvent(ctx, cb.From.ID, "steps_open", "steps_page", "", nil)
		s.LastViewedCase = 0
		d.clearScreen(ctx, s, cb)
		d.sendCard(ctx, s, d.opts.StepsImageID, d.opts.StepsText, d.contactKB())
		d.answer(ctx, cb.ID)

	case "cases":
		d.handleMenuCases(ctx, s, cb, tok)

	default:
		d.alert(ctx, cb.ID, "Unknown command")
	}
}

func (d *Dispatcher) handleMenuCases(ctx context.Context, s *session.Session, cb *telegram.CallbackQuery, tok token.Token) {
	action := tok.Action
	if action == "" {
		action = "list"
	}

	switch action {
	case "list":
		page, err := token.ParsePage(tok.Payload)
		if err != nil {
			page = 0
		}
		d.store.LogEvent(ctx, cb.From.ID, "cases_open", "cases_list", strconv.Itoa(page), map[string]any{"page": page})
		s.LastViewedCase = 0
		d.clearScreen(ctx, s, cb)
		d.renderPublicCaseList(ctx, s, page)
		d.answer(ctx, cb.ID)

	case "view":
		ref, err := token.ParseEntity(tok.Payload)
		if err != nil {
			d.alert(ctx, cb.ID, "Invalid case")
			return
		}
		d.store.LogEvent(ctx, cb.From.ID, "case_view", "case_view",
			strconv.FormatInt(ref.CaseID, 10), map[string]any{"case_id": ref.CaseID, "back_page": ref.ReturnPage})
		d.clearScreen(ctx, s, cb)
		d.renderPublicCaseView(ctx, s, ref.CaseID, ref.ReturnPage)
		d.answer(ctx, cb.ID)

	case "review":
		ref, err := token.ParseEntity(tok.Payload)
		if err != nil {
			d.alert(ctx, cb.ID, "Invalid case")
			return
		}
		d.store.LogEvent(ctx, cb.From.ID, "review_open", "case_review",
			strconv.FormatInt(ref.CaseID, 10), map[string]any{"case_id": ref.CaseID})
		d.clearScreen(ctx, s, cb)
		d.renderPublicReview(ctx, s, ref.CaseID, ref.ReturnPage)
		d.answer(ctx, cb.ID)

	case "review_cta":
		ref, ctaIndex, err := token.ParseTriple(tok.Payload)
		if err != nil {
			d.alert(ctx, cb.ID, "Invalid case")
			return
		}
		ctaText := ""
		if ctaIndex >= 0 && ctaIndex < len(d.opts.CTALabels) {
			ctaText = d.opts.CTALabels[ctaIndex]
		}
		caseValue := strconv.FormatInt(ref.CaseID, 10)
		d.store.LogEvent(ctx, cb.From.ID, "cta_click", "case_review", caseValue,
			map[string]any{"cta_index": ctaIndex, "cta_text": ctaText})
		d.store.LogEvent(ctx, cb.From.ID, "case_contact_click", "case_cta", caseValue,
			map[string]any{"source": "review_cta", "cta_index": ctaIndex, "cta_text": ctaText})
		s.LastViewedCase = 0
		d.clearScreen(ctx, s, cb)
		d.renderContact(ctx, s, cb.From.ID)
		d.answer(ctx, cb.ID)

	default:
		d.alert(ctx, cb.ID, "Unknown command")
	}
}
