package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"casebot/internal/pager"
	"casebot/internal/session"
	"casebot/internal/store"
	"casebot/internal/telegram"
)

// sendCard clears the tracked screen and puts up a single card message,
// with a photo header when a file id is configured. The card becomes the
// session's tracked screen.
func (d *Dispatcher) sendCard(ctx context.Context, s *session.Session, imageID, caption string, kb *telegram.InlineKeyboardMarkup) {
	d.tracker.Clear(ctx, s)

	var (
		id  int
		err error
	)
	if imageID != "" {
		id, err = d.transport.SendPhoto(ctx, s.ChatID, imageID, caption, kb)
	} else {
		id, err = d.transport.SendMessage(ctx, s.ChatID, caption, kb)
	}
	if err != nil {
		d.log.Warn("send card", zap.Int64("chat_id", s.ChatID), zap.Error(err))
		return
	}
	d.tracker.Record(s, session.ScreenRefs{CardID: id})
}

func (d *Dispatcher) renderMainMenu(ctx context.Context, s *session.Session, userID int64, caption string) {
	if caption == "" {
		caption = "Main menu"
	}
	d.sendCard(ctx, s, d.opts.MenuImageID, caption, d.mainMenuKB(userID))
}

func (d *Dispatcher) renderAdminPanel(ctx context.Context, s *session.Session, caption string) {
	count, err := d.store.CountUsers(ctx)
	if err != nil {
		d.log.Warn("count users", zap.Error(err))
	}
	d.sendCard(ctx, s, d.opts.AdminImageID, caption, adminPanelKB(count))
}

func (d *Dispatcher) renderSettings(ctx context.Context, s *session.Session) {
	value, err := d.store.GetSetting(ctx, "maintenance", "0")
	if err != nil {
		d.log.Warn("read maintenance flag", zap.Error(err))
		value = "0"
	}
	on := value == "1"
	state := "OFF"
	if on {
		state = "ON"
	}
	caption := fmt.Sprintf("<b>Bot settings</b>\n\nMaintenance: <b>%s</b>", state)
	d.sendCard(ctx, s, d.opts.AdminImageID, caption, settingsKB(on))
}

func (d *Dispatcher) renderAdminCaseList(ctx context.Context, s *session.Session, page int) {
	window, err := pager.FetchPage(ctx, d.store, "", page, d.opts.PageSize)
	if err != nil {
		d.log.Error("fetch case page", zap.Int("page", page), zap.Error(err))
		d.sendCard(ctx, s, "", "Could not load the case list", adminPanelKBFallback())
		return
	}
	kb := adminCasesKB(window.Cases, window.Page, window.HasPrev, window.HasNext)
	d.sendCard(ctx, s, d.opts.AdminImageID, "Manage cases", kb)
}

func adminPanelKBFallback() *telegram.InlineKeyboardMarkup {
	return markup(row{btn("Back to menu", adminTok("main", "", ""))})
}

func caseEditorCaption(c store.Case, note string) string {
	caption := fmt.Sprintf(
		"<b>Case editor</b>\n\nID: <code>%d</code>\nStatus: <b>%s</b>\n\n<b>%s</b>\n\n%s",
		c.ID, c.Status, c.Title, c.Description,
	)
	if note != "" {
		caption += "\n\n" + note
	}
	return caption
}

// renderCaseEditor shows the album (or a placeholder) followed by the
// editor card. The previous screen is wiped first so the chat never holds
// two editors at once.
func (d *Dispatcher) renderCaseEditor(ctx context.Context, s *session.Session, caseID int64, backPage int, note string) {
	d.tracker.Clear(ctx, s)

	c, err := d.store.GetCase(ctx, caseID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			d.log.Error("load case", zap.Int64("case_id", caseID), zap.Error(err))
		}
		d.sendCard(ctx, s, "", "Case not found", adminPanelKBFallback())
		return
	}

	media, err := d.store.GetCaseMedia(ctx, caseID)
	if err != nil {
		d.log.Warn("load case media", zap.Int64("case_id", caseID), zap.Error(err))
	}

	albumIDs := d.sendAlbum(ctx, s.ChatID, media, d.opts.AdminImageID, "No case media yet")

	cardID, err := d.transport.SendMessage(ctx, s.ChatID, caseEditorCaption(c, note), caseEditorKB(c.ID, c.Status, backPage))
	if err != nil {
		d.log.Warn("send editor card", zap.Int64("case_id", caseID), zap.Error(err))
	}
	d.tracker.Record(s, session.ScreenRefs{AlbumIDs: albumIDs, CardID: cardID})
}

// sendAlbum sends up to ten media items as a group, or a placeholder when
// the case has none. A single item goes out as a standalone photo/video
// message since media groups need at least two entries.
func (d *Dispatcher) sendAlbum(ctx context.Context, chatID int64, media []store.Media, placeholderImage, placeholderText string) []int {
	if len(media) == 0 {
		var (
			id  int
			err error
		)
		if placeholderImage != "" {
			id, err = d.transport.SendPhoto(ctx, chatID, placeholderImage, placeholderText, nil)
		} else {
			id, err = d.transport.SendMessage(ctx, chatID, placeholderText, nil)
		}
		if err != nil {
			d.log.Warn("send album placeholder", zap.Int64("chat_id", chatID), zap.Error(err))
			return nil
		}
		return []int{id}
	}

	if len(media) > 10 {
		media = media[:10]
	}
	if len(media) == 1 {
		id, err := d.transport.SendPhoto(ctx, chatID, media[0].FileID, "", nil)
		if err != nil {
			d.log.Warn("send single media", zap.Int64("chat_id", chatID), zap.Error(err))
			return nil
		}
		return []int{id}
	}

	group := make([]telegram.InputMedia, 0, len(media))
	for _, m := range media {
		mediaType := m.MediaType
		if mediaType != "video" {
			mediaType = "photo"
		}
		group = append(group, telegram.InputMedia{Type: mediaType, Media: m.FileID})
	}
	ids, err := d.transport.SendMediaGroup(ctx, chatID, group)
	if err != nil {
		d.log.Warn("send album", zap.Int64("chat_id", chatID), zap.Error(err))
		return nil
	}
	return ids
}

func (d *Dispatcher) renderPublicCaseList(ctx context.Context, s *session.Session, page int) {
	window, err := pager.FetchPage(ctx, d.store, store.StatusPublished, page, d.opts.PageSize)
	if err != nil {
		d.log.Error("fetch public case page", zap.Int("page", page), zap.Error(err))
		d.sendCard(ctx, s, "", "Could not load cases", markup(row{btn("← Main menu", menuTok("main"))}))
		return
	}
	kb := publicCasesKB(window.Cases, window.Page, window.HasPrev, window.HasNext)
	d.sendCard(ctx, s, d.opts.CasesImageID, "Cases", kb)
}

func (d *Dispatcher) renderPublicCaseView(ctx context.Context, s *session.Session, caseID int64, backPage int) {
	d.tracker.Clear(ctx, s)

	c, err := d.store.GetCase(ctx, caseID)
	if err != nil || c.Status != store.StatusPublished {
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			d.log.Error("load public case", zap.Int64("case_id", caseID), zap.Error(err))
		}
		d.sendCard(ctx, s, "", "Case not found", markup(row{btn("← Main menu", menuTok("main"))}))
		return
	}

	media, err := d.store.GetCaseMedia(ctx, caseID)
	if err != nil {
		d.log.Warn("load case media", zap.Int64("case_id", caseID), zap.Error(err))
	}
	albumIDs := d.sendAlbum(ctx, s.ChatID, media, d.opts.CasesImageID, "No media yet")

	var cta *store.CTA
	if got, err := d.store.GetCaseCTA(ctx, caseID); err == nil {
		cta = &got
	}

	caption := fmt.Sprintf("<b>%s</b>\n\n%s", c.Title, c.Description)
	cardID, err := d.transport.SendMessage(ctx, s.ChatID, caption, publicCaseViewKB(caseID, backPage, cta))
	if err != nil {
		d.log.Warn("send case card", zap.Int64("case_id", caseID), zap.Error(err))
	}
	d.tracker.Record(s, session.ScreenRefs{AlbumIDs: albumIDs, CardID: cardID})
	s.LastViewedCase = caseID
}

// renderPublicReview lays the bundle out in a fixed order: video note,
// voice, media album, then the joined text items, with a CTA card at the
// bottom.
func (d *Dispatcher) renderPublicReview(ctx context.Context, s *session.Session, caseID int64, backPage int) {
	d.tracker.Clear(ctx, s)

	items, err := d.store.GetCaseReview(ctx, caseID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		d.log.Error("load review", zap.Int64("case_id", caseID), zap.Error(err))
	}
	if len(items) == 0 {
		d.sendCard(ctx, s, "", "No review for this case yet", publicReviewEmptyKB(caseID, backPage))
		return
	}

	var (
		ids        []int
		texts      []string
		mediaItems []store.ReviewItem
		voiceID    string
		noteID     string
	)
	for _, item := range items {
		switch item.MediaType {
		case "text":
			if item.TextContent != "" {
				texts = append(texts, item.TextContent)
			}
		case "voice":
			if voiceID == "" {
				voiceID = item.FileID
			}
		case "video_note":
			if noteID == "" {
				noteID = item.FileID
			}
		case "photo", "video":
			mediaItems = append(mediaItems, item)
		}
	}

	if noteID != "" {
		if id, err := d.transport.SendVideoNote(ctx, s.ChatID, noteID); err == nil {
			ids = append(ids, id)
		}
	}
	if voiceID != "" {
		if id, err := d.transport.SendVoice(ctx, s.ChatID, voiceID); err == nil {
			ids = append(ids, id)
		}
	}
	if len(mediaItems) > 0 {
		media := make([]store.Media, 0, len(mediaItems))
		for _, item := range mediaItems {
			media = append(media, store.Media{FileID: item.FileID, MediaType: item.MediaType})
		}
		ids = append(ids, d.sendAlbum(ctx, s.ChatID, media, "", "")...)
	}
	if len(texts) > 0 {
		if id, err := d.transport.SendMessage(ctx, s.ChatID, strings.Join(texts, "\n\n"), nil); err == nil {
			ids = append(ids, id)
		}
	}

	ctaIndex := d.randIndex(len(d.opts.CTALabels))
	ctaText := d.opts.CTALabels[ctaIndex]
	cardID, err := d.transport.SendMessage(ctx, s.ChatID, "Choose an action:", publicReviewKB(caseID, backPage, ctaText, ctaIndex))
	if err != nil {
		d.log.Warn("send review card", zap.Int64("case_id", caseID), zap.Error(err))
	}
	d.tracker.Record(s, session.ScreenRefs{AlbumIDs: ids, CardID: cardID})
}

func (d *Dispatcher) renderContact(ctx context.Context, s *session.Session, userID int64) {
	d.store.LogEvent(ctx, userID, "contact_open", "contact_page", "", nil)
	d.sendCard(ctx, s, d.opts.ContactImageID, d.opts.ContactText, d.contactKB())
}
