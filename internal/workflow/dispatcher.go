package workflow

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"casebot/internal/session"
	"casebot/internal/store"
	"casebot/internal/telegram"
	"casebot/internal/throttle"
	"casebot/internal/token"
	"casebot/internal/ui"
)

// Dispatcher routes inbound updates: callback tokens to screen handlers,
// free-form messages to the active workflow state.
type Dispatcher struct {
	opts      Options
	store     Store
	transport Transport
	reporter  Reporter
	system    SystemControl
	sessions  *session.Manager
	tracker   *ui.Tracker
	throttle  *throttle.Throttle
	log       *zap.Logger

	admins map[int64]bool

	now       func() time.Time
	sleep     func(time.Duration)
	randIndex func(n int) int

	maintMu    sync.Mutex
	maintValue string
	maintAt    time.Time
}

func NewDispatcher(opts Options, st Store, tr Transport, rep Reporter, sys SystemControl, log *zap.Logger) *Dispatcher {
	opts.withDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	admins := make(map[int64]bool, len(opts.AdminIDs))
	for _, id := range opts.AdminIDs {
		admins[id] = true
	}
	return &Dispatcher{
		opts:      opts,
		store:     st,
		transport: tr,
		reporter:  rep,
		system:    sys,
		sessions:  session.NewManager(),
		tracker:   ui.NewTracker(tr, log),
		throttle:  throttle.New(),
		log:       log,
		admins:    admins,
		now:       time.Now,
		sleep:     time.Sleep,
		randIndex: rand.Intn,
	}
}

func (d *Dispatcher) isAdmin(userID int64) bool { return d.admins[userID] }

// HandleUpdate implements telegram.Handler.
func (d *Dispatcher) HandleUpdate(ctx context.Context, upd telegram.Update) {
	switch {
	case upd.CallbackQuery != nil:
		d.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		d.handleMessage(ctx, upd.Message)
	}
}

func (d *Dispatcher) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	if cb.Message == nil {
		d.answer(ctx, cb.ID)
		return
	}
	tok, err := token.Decode(cb.Data)
	if err != nil {
		d.log.Debug("malformed callback token", zap.String("data", cb.Data), zap.Error(err))
		d.alert(ctx, cb.ID, "Invalid action")
		return
	}

	s := d.sessions.Get(cb.Message.Chat.ID)
	switch tok.Namespace {
	case token.NamespaceAdmin:
		d.handleAdmin(ctx, s, cb, tok)
	case token.NamespaceMenu:
		d.handleMenu(ctx, s, cb, tok)
	default:
		d.alert(ctx, cb.ID, "Unknown command")
	}
}

func (d *Dispatcher) handleMessage(ctx context.Context, msg *telegram.Message) {
	if msg.From == nil {
		return
	}
	s := d.sessions.Get(msg.Chat.ID)

	switch strings.TrimSpace(msg.Text) {
	case "/start":
		d.handleStart(ctx, s, msg)
		return
	case "/restart":
		d.deleteQuiet(ctx, msg.Chat.ID, msg.MessageID)
		d.renderMainMenu(ctx, s, msg.From.ID, "")
		return
	}

	switch s.State {
	case session.AwaitingFieldValue:
		d.handleFieldInput(ctx, s, msg)
	case session.AwaitingReviewItems:
		d.handleReviewInput(ctx, s, msg)
	case session.AwaitingCtaText:
		d.handleCtaTextInput(ctx, s, msg)
	case session.AwaitingCtaURL:
		d.handleCtaURLInput(ctx, s, msg)
	}
}

func (d *Dispatcher) handleStart(ctx context.Context, s *session.Session, msg *telegram.Message) {
	from := msg.From
	d.store.LogEvent(ctx, from.ID, "start", "system", "", map[string]any{
		"username":  from.Username,
		"full_name": from.FullName(),
	})
	if err := d.store.UpsertUser(ctx, storeUser(from)); err != nil {
		d.log.Warn("upsert user", zap.Int64("user_id", from.ID), zap.Error(err))
	}
	d.renderMainMenu(ctx, s, from.ID, "")
}

func storeUser(u *telegram.User) store.User {
	return store.User{ID: u.ID, FullName: u.FullName(), Username: u.Username}
}

// maintenanceEnabled reads the maintenance flag through a short-lived
// cache so the settings table is not hit on every public click. The
// cache is shared across all per-chat workers, hence the mutex.
func (d *Dispatcher) maintenanceEnabled(ctx context.Context) bool {
	d.maintMu.Lock()
	defer d.maintMu.Unlock()
	if d.now().Sub(d.maintAt) > d.opts.MaintenanceTTL {
		value, err := d.store.GetSetting(ctx, "maintenance", "0")
		if err != nil {
			value = "0"
		}
		d.maintValue = value
		d.maintAt = d.now()
	}
	return d.maintValue == "1"
}

// invalidateMaintenance expires the cached flag so the next public
// click re-reads it from the settings table.
func (d *Dispatcher) invalidateMaintenance() {
	d.maintMu.Lock()
	d.maintAt = time.Time{}
	d.maintMu.Unlock()
}

// clearScreen wipes the tracked ephemeral messages plus the message the
// pressed button lived on, so the next render starts from a clean chat.
func (d *Dispatcher) clearScreen(ctx context.Context, s *session.Session, cb *telegram.CallbackQuery) {
	d.tracker.Clear(ctx, s)
	if cb != nil && cb.Message != nil {
		d.deleteQuiet(ctx, cb.Message.Chat.ID, cb.Message.MessageID)
	}
}

func (d *Dispatcher) deleteQuiet(ctx context.Context, chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if err := d.transport.DeleteMessage(ctx, chatID, messageID); err != nil {
		d.log.Debug("delete message",
			zap.Int64("chat_id", chatID),
			zap.Int("message_id", messageID),
			zap.Error(err))
	}
}

func (d *Dispatcher) answer(ctx context.Context, callbackID string) {
	d.answerText(ctx, callbackID, "")
}

func (d *Dispatcher) answerText(ctx context.Context, callbackID, text string) {
	if err := d.transport.AnswerCallback(ctx, callbackID, text, false); err != nil {
		d.log.Debug("answer callback", zap.Error(err))
	}
}

func (d *Dispatcher) alert(ctx context.Context, callbackID, text string) {
	if err := d.transport.AnswerCallback(ctx, callbackID, text, true); err != nil {
		d.log.Debug("answer callback", zap.Error(err))
	}
}

// warnAndDismiss shows a short-lived warning, removes it after the
// configured delay, then removes the triggering message. The pause runs on
// this chat's worker, which is exactly the aim: the warning stays readable
// before the cleanup.
func (d *Dispatcher) warnAndDismiss(ctx context.Context, chatID int64, text string, triggerID int) {
	warnID, err := d.transport.SendMessage(ctx, chatID, text, nil)
	if err == nil {
		d.sleep(d.opts.WarnDismiss)
		d.deleteQuiet(ctx, chatID, warnID)
	}
	d.deleteQuiet(ctx, chatID, triggerID)
}
