package workflow

import (
	"fmt"

	"casebot/internal/store"
	"casebot/internal/telegram"
	"casebot/internal/token"
)

type row = []telegram.InlineKeyboardButton

func btn(text, data string) telegram.InlineKeyboardButton {
	return telegram.InlineKeyboardButton{Text: text, CallbackData: data}
}

func urlBtn(text, url string) telegram.InlineKeyboardButton {
	return telegram.InlineKeyboardButton{Text: text, URL: url}
}

func markup(rows ...row) *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func adminTok(section, action, payload string) string {
	return token.Encode(token.Token{
		Namespace: token.NamespaceAdmin,
		Section:   section,
		Action:    action,
		Payload:   payload,
	})
}

func menuTok(section string) string {
	return token.Encode(token.Token{Namespace: token.NamespaceMenu, Section: section})
}

func menuCasesTok(action, payload string) string {
	return token.Encode(token.Token{
		Namespace: token.NamespaceMenu,
		Section:   "cases",
		Action:    action,
		Payload:   payload,
	})
}

func (d *Dispatcher) mainMenuKB(userID int64) *telegram.InlineKeyboardMarkup {
	rows := []row{
		{btn("Contact me", menuTok("contact")), urlBtn("Telegram channel", d.opts.ChannelURL)},
		{btn("About me", menuTok("about")), btn("Cases", menuCasesTok("list", "0"))},
		{btn("How I work", menuTok("steps"))},
	}
	if d.isAdmin(userID) {
		rows = append(rows, row{btn("Admin panel", adminTok("main", "", ""))})
	}
	return markup(rows...)
}

func adminPanelKB(usersCount int) *telegram.InlineKeyboardMarkup {
	return markup(
		row{btn(fmt.Sprintf("Users: %d", usersCount), adminTok("main", "", ""))},
		row{btn("Statistics", adminTok("stats", "", "")), btn("Bot settings", adminTok("settings", "", ""))},
		row{btn("Manage cases", adminTok("cases", "list", "0"))},
		row{btn("← Main menu", menuTok("main"))},
	)
}

func confirmKB(confirmData, cancelData string) *telegram.InlineKeyboardMarkup {
	return markup(row{btn("Yes", confirmData), btn("Cancel", cancelData)})
}

func settingsKB(maintenanceOn bool) *telegram.InlineKeyboardMarkup {
	maintText := "🚧 Maintenance: OFF"
	if maintenanceOn {
		maintText = "🚧 Maintenance: ON"
	}
	return markup(
		row{btn("📊 System status", adminTok("settings", "status", "")), btn(maintText, adminTok("settings", "maint_toggle", ""))},
		row{btn("🧹 Clean up statistics reports", adminTok("settings", "reports_cleanup", ""))},
		row{btn("♻️ Restart bot", adminTok("settings", "restart", ""))},
		row{btn("← Back to admin menu", adminTok("main", "", ""))},
	)
}

func adminCasesKB(cases []store.Case, page int, hasPrev, hasNext bool) *telegram.InlineKeyboardMarkup {
	rows := []row{
		{btn("Create case", adminTok("cases", "new", ""))},
	}
	for _, c := range cases {
		title := c.Title
		if title == "" {
			title = "Untitled"
		}
		rows = append(rows, row{btn(title, adminTok("cases", "view", token.FormatEntity(c.ID, page)))})
	}
	var nav row
	if hasPrev && page > 0 {
		nav = append(nav, btn("Prev", adminTok("cases", "list", fmt.Sprintf("%d", page-1))))
	}
	if hasNext {
		nav = append(nav, btn("Next", adminTok("cases", "list", fmt.Sprintf("%d", page+1))))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, row{btn("Back to menu", adminTok("main", "", ""))})
	return markup(rows...)
}

func caseEditorKB(caseID int64, status string, backPage int) *telegram.InlineKeyboardMarkup {
	ref := token.FormatEntity(caseID, backPage)
	rows := []row{
		{btn("Title", adminTok("cases", "edit_title", ref)), btn("Description", adminTok("cases", "edit_desc", ref))},
		{btn("Cover", adminTok("cases", "edit_cover", ref))},
		{btn("Reviews", adminTok("cases", "review", ref)), btn("Contact button", adminTok("cases", "cta", ref))},
	}
	if status == store.StatusPublished {
		rows = append(rows, row{btn("Hide", adminTok("cases", "unpublish", ref))})
	} else {
		rows = append(rows, row{btn("Publish", adminTok("cases", "publish", ref))})
	}
	rows = append(rows, row{btn("← Back to list", adminTok("cases", "list", fmt.Sprintf("%d", backPage)))})
	return markup(rows...)
}

func editCancelKB(caseID int64, backPage int, showDone bool) *telegram.InlineKeyboardMarkup {
	ref := token.FormatEntity(caseID, backPage)
	r := row{btn("✖️ Cancel", adminTok("cases", "edit_cancel", ref))}
	if showDone {
		r = append(r, btn("✅ Done", adminTok("cases", "cover_done", ref)))
	}
	return markup(r)
}

func reviewCancelKB(caseID int64, backPage int, showDone bool) *telegram.InlineKeyboardMarkup {
	ref := token.FormatEntity(caseID, backPage)
	r := row{btn("✖️ Cancel", adminTok("cases", "review_cancel", ref))}
	if showDone {
		r = append(r, btn("✅ Done", adminTok("cases", "review_done", ref)))
	}
	return markup(r)
}

func ctaCancelKB(caseID int64, backPage int) *telegram.InlineKeyboardMarkup {
	return markup(row{btn("✖️ Cancel", adminTok("cases", "cta_cancel", token.FormatEntity(caseID, backPage)))})
}

func ctaTypeKB(caseID int64, backPage int) *telegram.InlineKeyboardMarkup {
	ref := token.FormatEntity(caseID, backPage)
	return markup(row{
		btn("Open contacts", token.Encode(token.Token{
			Namespace: token.NamespaceAdmin, Section: "cases", Action: "cta_type",
			Variant: store.CTAContact, Payload: ref,
		})),
		btn("Open a link", token.Encode(token.Token{
			Namespace: token.NamespaceAdmin, Section: "cases", Action: "cta_type",
			Variant: store.CTAURL, Payload: ref,
		})),
	})
}

func publicCasesKB(cases []store.Case, page int, hasPrev, hasNext bool) *telegram.InlineKeyboardMarkup {
	var rows []row
	for _, c := range cases {
		title := c.Title
		if title == "" {
			title = "Untitled"
		}
		rows = append(rows, row{btn(title, menuCasesTok("view", token.FormatEntity(c.ID, page)))})
	}
	var nav row
	if hasPrev && page > 0 {
		nav = append(nav, btn("Prev", menuCasesTok("list", fmt.Sprintf("%d", page-1))))
	}
	if hasNext {
		nav = append(nav, btn("Next", menuCasesTok("list", fmt.Sprintf("%d", page+1))))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, row{btn("← Main menu", menuTok("main"))})
	return markup(rows...)
}

func publicCaseViewKB(caseID int64, backPage int, cta *store.CTA) *telegram.InlineKeyboardMarkup {
	buttonText := "Contact me"
	actionType := store.CTAContact
	actionValue := ""
	if cta != nil {
		if cta.ButtonText != "" {
			buttonText = cta.ButtonText
		}
		if cta.ActionType != "" {
			actionType = cta.ActionType
		}
		actionValue = cta.ActionValue
	}

	rows := []row{
		{btn("⭐ View review", menuCasesTok("review", token.FormatEntity(caseID, backPage)))},
	}
	if actionType == store.CTAURL && actionValue != "" {
		rows = append(rows, row{urlBtn(buttonText, actionValue)})
	} else {
		rows = append(rows, row{btn(buttonText, menuTok("contact"))})
	}
	rows = append(rows, row{
		btn("← Back to list", menuCasesTok("list", fmt.Sprintf("%d", backPage))),
		btn("← Main menu", menuTok("main")),
	})
	return markup(rows...)
}

func publicReviewKB(caseID int64, backPage int, ctaText string, ctaIndex int) *telegram.InlineKeyboardMarkup {
	return markup(
		row{btn(ctaText, menuCasesTok("review_cta", token.FormatTriple(caseID, backPage, ctaIndex)))},
		row{btn("← Back to case", menuCasesTok("view", token.FormatEntity(caseID, backPage)))},
		row{
			btn("To case list", menuCasesTok("list", fmt.Sprintf("%d", backPage))),
			btn("← Main menu", menuTok("main")),
		},
	)
}

func publicReviewEmptyKB(caseID int64, backPage int) *telegram.InlineKeyboardMarkup {
	return markup(
		row{btn("← Back to case", menuCasesTok("view", token.FormatEntity(caseID, backPage)))},
		row{
			btn("To case list", menuCasesTok("list", fmt.Sprintf("%d", backPage))),
			btn("← Main menu", menuTok("main")),
		},
	)
}

func (d *Dispatcher) contactKB() *telegram.InlineKeyboardMarkup {
	return markup(
		row{urlBtn("Write to me", d.opts.ContactURL), urlBtn("My channel", d.opts.ChannelURL)},
		row{btn("← Main menu", menuTok("main"))},
	)
}
