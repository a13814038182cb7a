package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"casebot/internal/session"
	"casebot/internal/telegram"
	"casebot/internal/token"
)

// inWorkflowActions are the case actions that belong to an active edit
// flow. Any other admin action forces the workflow back to Idle before it
// runs, so stale scratch state never leaks into an unrelated screen.
var inWorkflowActions = map[string]bool{
	"edit_title":    true,
	"edit_desc":     true,
	"edit_cancel":   true,
	"edit_cover":    true,
	"cover_done":    true,
	"review":        true,
	"review_done":   true,
	"review_cancel": true,
	"cta":           true,
	"cta_type":      true,
	"cta_cancel":    true,
}

func (d *Dispatcher) handleAdmin(ctx context.Context, s *session.Session, cb *telegram.CallbackQuery, tok token.Token) {
	if !d.isAdmin(cb.From.ID) {
		d.alert(ctx, cb.ID, "No access")
		return
	}

	if !(tok.Section == "cases" && inWorkflowActions[tok.Action]) {
		s.ResetWorkflow()
	}

	switch tok.Section {
	case "main":
		d.store.LogEvent(ctx, cb.From.ID, "admin_open", "admin_main", "", nil)
		d.clearScreen(ctx, s, cb)
		d.renderAdminPanel(ctx, s, "Administrator menu")
		d.answer(ctx, cb.ID)
	case "stats":
		d.store.LogEvent(ctx, cb.From.ID, "admin_nav", "stats", tok.Action, map[string]any{"callback": cb.Data})
		d.clearScreen(ctx, s, cb)
		d.handleStatsReport(ctx, s)
		d.answer(ctx, cb.ID)
	case "settings":
		d.store.LogEvent(ctx, cb.From.ID, "admin_nav", "settings", tok.Action, map[string]any{"callback": cb.Data})
		d.handleAdminSettings(ctx, s, cb, tok.Action)
	case "cases":
		d.handleAdminCases(ctx, s, cb, tok)
	default:
		d.alert(ctx, cb.ID, "Unknown command")
	}
}

// handleStatsReport builds and delivers the statistics report, narrating
// progress through an editable status message.
func (d *Dispatcher) handleStatsReport(ctx context.Context, s *session.Session) {
	progressID, err := d.transport.SendMessage(ctx, s.ChatID, "Building the report…", nil)
	if err != nil {
		d.log.Warn("send progress message", zap.Error(err))
	}

	path, err := d.reporter.Generate(ctx)
	if err != nil {
		d.log.Error("generate statistics report", zap.Error(err))
		d.editQuiet(ctx, s.ChatID, progressID, "Report failed, check the logs")
	} else {
		if _, err := d.transport.SendDocument(ctx, s.ChatID, path, "Statistics report"); err != nil {
			d.log.Error("send statistics report", zap.String("path", path), zap.Error(err))
			d.editQuiet(ctx, s.ChatID, progressID, "Report failed, check the logs")
		} else {
			d.editQuiet(ctx, s.ChatID, progressID, "Report is ready ✅")
			d.deleteQuiet(ctx, s.ChatID, progressID)
		}
	}

	d.renderAdminPanel(ctx, s, "Statistics")
}

func (d *Dispatcher) handleAdminSettings(ctx context.Context, s *session.Session, cb *telegram.CallbackQuery, action string) {
	d.clearScreen(ctx, s, cb)

	switch action {
	case "":
		d.renderSettings(ctx, s)
		d.answer(ctx, cb.ID)

	case "status":
		if d.throttle.ShouldThrottle(s, "status", d.opts.SettingsCooldown) {
			d.answer(ctx, cb.ID)
			return
		}
		progressID, _ := d.transport.SendMessage(ctx, s.ChatID, "Working…", nil)
		st := d.system.Status(ctx)
		db := "FAIL"
		if st.DBOK {
			db = "OK"
		}
		text := fmt.Sprintf(
			"Done ✅\n\nUptime: <code>%s</code>\nGo: <code>%s</code>\nPID: <code>%d</code>\nDB: <code>%s</code>",
			st.Uptime, st.GoVersion, st.PID, db,
		)
		d.editQuiet(ctx, s.ChatID, progressID, text)
		d.renderSettings(ctx, s)
		d.answer(ctx, cb.ID)

	case "restart":
		id, err := d.transport.SendMessage(ctx, s.ChatID, "Confirm bot restart?", confirmKB(
			adminTok("settings", "restart_confirm", ""),
			adminTok("settings", "restart_cancel", ""),
		))
		if err == nil {
			s.Screen.PromptID = id
		}
		d.answer(ctx, cb.ID)

	case "restart_confirm":
		if d.throttle.ShouldThrottle(s, "restart_confirm", d.opts.SettingsCooldown) {
			d.answer(ctx, cb.ID)
			return
		}
		if _, err := d.transport.SendMessage(ctx, s.ChatID, "Restarting…", nil); err != nil {
			d.log.Warn("send restart notice", zap.Error(err))
		}
		d.system.RequestRestart()
		d.answer(ctx, cb.ID)

	case "restart_cancel":
		if _, err := d.transport.SendMessage(ctx, s.ChatID, "Cancelled", nil); err != nil {
			d.log.Debug("send cancel notice", zap.Error(err))
		}
		d.renderSettings(ctx, s)
		d.answer(ctx, cb.ID)

	case "maint_toggle":
		if d.throttle.ShouldThrottle(s, "maint_toggle", d.opts.SettingsCooldown) {
			d.answer(ctx, cb.ID)
			return
		}
		progressID, _ := d.transport.SendMessage(ctx, s.ChatID, "Working…", nil)
		current, err := d.store.GetSetting(ctx, "maintenance", "0")
		if err == nil {
			next := "1"
			if current == "1" {
				next = "0"
			}
			err = d.store.SetSetting(ctx, "maintenance", next)
		}
		if err != nil {
			d.log.Error("toggle maintenance", zap.Error(err))
			d.editQuiet(ctx, s.ChatID, progressID, "Failed ❌")
		} else {
			// Invalidate the public-side cache so the flip is visible at
			// once rather than after the TTL.
			d.invalidateMaintenance()
			d.editQuiet(ctx, s.ChatID, progressID, "Done ✅")
		}
		d.renderSettings(ctx, s)
		d.answer(ctx, cb.ID)

	case "reports_cleanup":
		id, err := d.transport.SendMessage(ctx, s.ChatID, "Clean up statistics reports?", confirmKB(
			adminTok("settings", "reports_cleanup_confirm", ""),
			adminTok("settings", "reports_cleanup_cancel", ""),
		))
		if err == nil {
			s.Screen.PromptID = id
		}
		d.answer(ctx, cb.ID)

	case "reports_cleanup_confirm":
		if d.throttle.ShouldThrottle(s, "reports_cleanup_confirm", d.opts.SettingsCooldown) {
			d.answer(ctx, cb.ID)
			return
		}
		progressID, _ := d.transport.SendMessage(ctx, s.ChatID, "Working…", nil)
		deleted, kept, err := d.reporter.Cleanup(d.opts.ReportMaxAge)
		if err != nil {
			d.log.Error("cleanup reports", zap.Error(err))
			d.editQuiet(ctx, s.ChatID, progressID, "Failed ❌")
		} else {
			d.editQuiet(ctx, s.ChatID, progressID, fmt.Sprintf("Done ✅\nDeleted: %d\nKept: %d", deleted, kept))
		}
		d.renderSettings(ctx, s)
		d.answer(ctx, cb.ID)

	case "reports_cleanup_cancel":
		if _, err := d.transport.SendMessage(ctx, s.ChatID, "Cancelled", nil); err != nil {
			d.log.Debug("send cancel notice", zap.Error(err))
		}
		d.renderSettings(ctx, s)
		d.answer(ctx, cb.ID)

	default:
		d.alert(ctx, cb.ID, "Unknown command")
	}
}

func (d *Dispatcher) editQuiet(ctx context.Context, chatID int64, messageID int, text string) {
	if messageID == 0 {
		return
	}
	if err := d.transport.EditMessageText(ctx, chatID, messageID, text); err != nil {
		d.log.Debug("edit message", zap.Int("message_id", messageID), zap.Error(err))
	}
}
