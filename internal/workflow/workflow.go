// Package workflow is the conversational engine behind the bot: it routes
// decoded callback tokens and free-form messages into screen renders and
// multi-turn field-editing flows, one session per chat.
package workflow

import (
	"context"
	"time"

	"casebot/internal/store"
	"casebot/internal/telegram"
)

// Transport is the slice of the chat client the workflow renders through.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string, kb *telegram.InlineKeyboardMarkup) (int, error)
	SendPhoto(ctx context.Context, chatID int64, fileID, caption string, kb *telegram.InlineKeyboardMarkup) (int, error)
	SendMediaGroup(ctx context.Context, chatID int64, media []telegram.InputMedia) ([]int, error)
	SendVoice(ctx context.Context, chatID int64, fileID string) (int, error)
	SendVideoNote(ctx context.Context, chatID int64, fileID string) (int, error)
	SendDocument(ctx context.Context, chatID int64, path, caption string) (int, error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string) error
	EditMessageReplyMarkup(ctx context.Context, chatID int64, messageID int, kb *telegram.InlineKeyboardMarkup) error
	AnswerCallback(ctx context.Context, callbackID, text string, showAlert bool) error
}

// Store is the persistence surface the workflow drives.
type Store interface {
	CreateDraft(ctx context.Context) (int64, error)
	GetCase(ctx context.Context, id int64) (store.Case, error)
	UpdateCaseField(ctx context.Context, id int64, field string, value any) error
	ListCases(ctx context.Context, status string, page, pageSize int) ([]store.Case, error)
	GetCaseMedia(ctx context.Context, caseID int64) ([]store.Media, error)
	ReplaceCaseMedia(ctx context.Context, caseID int64, items []store.MediaInput, firstIsCover bool) error
	GetCaseReview(ctx context.Context, caseID int64) ([]store.ReviewItem, error)
	ReplaceCaseReview(ctx context.Context, caseID int64, items []store.ReviewInput) error
	GetCaseCTA(ctx context.Context, caseID int64) (store.CTA, error)
	UpsertCaseCTA(ctx context.Context, caseID int64, buttonText, actionType, actionValue string) error
	GetSetting(ctx context.Context, key, def string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	UpsertUser(ctx context.Context, u store.User) error
	CountUsers(ctx context.Context) (int, error)
	LogEvent(ctx context.Context, userID int64, eventType, eventContext, eventValue string, payload map[string]any)
}

// Reporter builds statistics report files and prunes old ones.
type Reporter interface {
	Generate(ctx context.Context) (string, error)
	Cleanup(maxAge time.Duration) (deleted, kept int, err error)
}

// SystemStatus is a point-in-time health snapshot for the status screen.
type SystemStatus struct {
	Uptime    string
	GoVersion string
	PID       int
	DBOK      bool
}

// SystemControl exposes process-level operations to the settings screen.
type SystemControl interface {
	Status(ctx context.Context) SystemStatus
	RequestRestart()
}

// Options configures a Dispatcher. Zero-value durations and counts fall
// back to the defaults below.
type Options struct {
	AdminIDs []int64

	PageSize         int
	SettingsCooldown time.Duration
	PublishCooldown  time.Duration
	WarnDismiss      time.Duration
	MaintenanceTTL   time.Duration
	ReportMaxAge     time.Duration

	// Optional transport file ids used as screen headers. A screen whose
	// image is unset is sent as plain text.
	MenuImageID    string
	AdminImageID   string
	CasesImageID   string
	ContactImageID string
	AboutImageID   string
	StepsImageID   string

	ContactURL string
	ChannelURL string

	AboutText   string
	StepsText   string
	ContactText string

	// CTALabels is the pool the review screen picks a random button label
	// from; the picked index travels inside the callback token so the
	// click can be attributed to the exact label shown.
	CTALabels []string
}

const (
	defaultPageSize         = 8
	defaultSettingsCooldown = 1500 * time.Millisecond
	defaultPublishCooldown  = 2 * time.Second
	defaultWarnDismiss      = 1200 * time.Millisecond
	defaultMaintenanceTTL   = 10 * time.Second
	defaultReportMaxAge     = 7 * 24 * time.Hour
)

func (o *Options) withDefaults() {
	if o.PageSize <= 0 {
		o.PageSize = defaultPageSize
	}
	if o.SettingsCooldown <= 0 {
		o.SettingsCooldown = defaultSettingsCooldown
	}
	if o.PublishCooldown <= 0 {
		o.PublishCooldown = defaultPublishCooldown
	}
	if o.WarnDismiss <= 0 {
		o.WarnDismiss = defaultWarnDismiss
	}
	if o.MaintenanceTTL <= 0 {
		o.MaintenanceTTL = defaultMaintenanceTTL
	}
	if o.ReportMaxAge <= 0 {
		o.ReportMaxAge = defaultReportMaxAge
	}
	if len(o.CTALabels) == 0 {
		o.CTALabels = defaultCTALabels
	}
}

var defaultCTALabels = []string{
	"Start a project",
	"Discuss an idea",
	"Book a call",
	"I want the same",
	"Let's build it",
	"Get a quote",
	"I need a consultation",
	"Request a breakdown",
	"Let's talk",
	"Launch my project",
}
