// Package stats builds the HTML statistics report an administrator can
// download from the panel, and manages the lifecycle of report files on
// disk.
package stats

import (
	"context"
	_ "embed"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"casebot/internal/store"
)

//go:embed template.html
var defaultTemplate string

// Aggregation window and row limits for the report.
const (
	windowDays     = 30
	topMenuLimit   = 15
	topCasesLimit  = 10
	recentUsersLim = 100

	reportPrefix = "statistics_"
	reportSuffix = ".html"
)

var placeholderRe = regexp.MustCompile(`\{\{[a-zA-Z0-9_]+\}\}`)

// Queries is the slice of the store the reporter reads from.
type Queries interface {
	CountUsers(ctx context.Context) (int, error)
	CountCases(ctx context.Context, status string) (int, error)
	CountMedia(ctx context.Context) (int, error)
	CountEvents(ctx context.Context, days int) (int, error)
	TopMenuClicks(ctx context.Context, days, limit int) ([]store.MenuClick, error)
	TopCases(ctx context.Context, days, limit int) ([]store.CaseViews, error)
	Funnel(ctx context.Context, days int) ([]store.FunnelStep, error)
	StuckPoints(ctx context.Context, days int) ([]store.StuckPoint, error)
	RecentUsers(ctx context.Context, limit int) ([]store.RecentUser, error)
}

// Reporter renders statistics reports into outDir. A custom template path
// overrides the embedded default.
type Reporter struct {
	db           Queries
	outDir       string
	templatePath string
	log          *zap.Logger

	now func() time.Time
}

func NewReporter(db Queries, outDir, templatePath string, log *zap.Logger) *Reporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reporter{
		db:           db,
		outDir:       outDir,
		templatePath: templatePath,
		log:          log,
		now:          time.Now,
	}
}

// Generate builds the report and writes it to a timestamped file, returning
// the file path.
func (r *Reporter) Generate(ctx context.Context) (string, error) {
	tmpl := defaultTemplate
	if r.templatePath != "" {
		raw, err := os.ReadFile(r.templatePath)
		if err != nil {
			return "", fmt.Errorf("read template: %w", err)
		}
		tmpl = string(raw)
	}

	vars, err := r.buildContext(ctx)
	if err != nil {
		return "", err
	}
	page := render(tmpl, vars)

	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	name := fmt.Sprintf("%s%d%s", reportPrefix, r.now().Unix(), reportSuffix)
	path := filepath.Join(r.outDir, name)
	if err := os.WriteFile(path, []byte(page), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	r.log.Info("statistics report written", zap.String("path", path))
	return path, nil
}

// Cleanup removes report files older than maxAge. Files that fail to delete
// are counted as kept.
func (r *Reporter) Cleanup(maxAge time.Duration) (deleted, kept int, err error) {
	entries, err := os.ReadDir(r.outDir)
	if os.IsNotExist(err) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("read report dir: %w", err)
	}

	cutoff := r.now().Add(-maxAge)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, reportPrefix) || !strings.HasSuffix(name, reportSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(r.outDir, name)); err != nil {
				r.log.Warn("remove report", zap.String("name", name), zap.Error(err))
				kept++
				continue
			}
			deleted++
		} else {
			kept++
		}
	}
	return deleted, kept, nil
}

func (r *Reporter) buildContext(ctx context.Context) (map[string]string, error) {
	usersTotal, err := r.db.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	casesTotal, err := r.db.CountCases(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("count cases: %w", err)
	}
	casesPublished, err := r.db.CountCases(ctx, store.StatusPublished)
	if err != nil {
		return nil, fmt.Errorf("count published: %w", err)
	}
	casesDraft, err := r.db.CountCases(ctx, store.StatusDraft)
	if err != nil {
		return nil, fmt.Errorf("count drafts: %w", err)
	}
	casesArchived, err := r.db.CountCases(ctx, store.StatusArchived)
	if err != nil {
		return nil, fmt.Errorf("count archived: %w", err)
	}
	mediaTotal, err := r.db.CountMedia(ctx)
	if err != nil {
		return nil, fmt.Errorf("count media: %w", err)
	}
	eventsTotal, err := r.db.CountEvents(ctx, windowDays)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}

	topMenu, err := r.db.TopMenuClicks(ctx, windowDays, topMenuLimit)
	if err != nil {
		return nil, fmt.Errorf("top menu: %w", err)
	}
	topCases, err := r.db.TopCases(ctx, windowDays, topCasesLimit)
	if err != nil {
		return nil, fmt.Errorf("top cases: %w", err)
	}
	funnel, err := r.db.Funnel(ctx, windowDays)
	if err != nil {
		return nil, fmt.Errorf("funnel: %w", err)
	}
	stuck, err := r.db.StuckPoints(ctx, windowDays)
	if err != nil {
		return nil, fmt.Errorf("stuck points: %w", err)
	}
	recent, err := r.db.RecentUsers(ctx, recentUsersLim)
	if err != nil {
		return nil, fmt.Errorf("recent users: %w", err)
	}

	var menuRows [][]string
	for _, m := range topMenu {
		label := m.Value
		if label == "" {
			label = m.Context
		}
		if label == "" {
			label = "(unnamed)"
		}
		menuRows = append(menuRows, []string{html.EscapeString(label), strconv.Itoa(m.Count)})
	}

	var caseRows [][]string
	for _, c := range topCases {
		title := c.Title
		if title == "" {
			title = fmt.Sprintf("Case #%d", c.CaseID)
		}
		caseRows = append(caseRows, []string{html.EscapeString(title), strconv.Itoa(c.Count)})
	}

	funnelUsers := make(map[string]int, len(funnel))
	for _, step := range funnel {
		funnelUsers[step.EventType] = step.Users
	}
	funnelSteps := []struct{ key, label string }{
		{"start", "Started the bot"},
		{"cases_open", "Opened the case list"},
		{"case_view", "Viewed a case"},
		{"contact_open", "Opened contacts"},
	}
	var funnelRows [][]string
	for _, step := range funnelSteps {
		funnelRows = append(funnelRows, []string{
			html.EscapeString(step.label),
			strconv.Itoa(funnelUsers[step.key]),
		})
	}

	var stuckRows [][]string
	for _, sp := range stuck {
		stuckRows = append(stuckRows, []string{html.EscapeString(sp.Label), strconv.Itoa(sp.Users)})
	}

	var userRows [][]string
	for _, u := range recent {
		name := u.FullName
		if name == "" {
			name = "—"
		}
		usernameText := "—"
		link := "—"
		if u.Username != "" {
			usernameText = html.EscapeString("@" + u.Username)
			link = fmt.Sprintf(`<a href="https://t.me/%s">@%s</a>`,
				html.EscapeString(u.Username), html.EscapeString(u.Username))
		}
		lastActivity := "—"
		if !u.LastActivity.IsZero() {
			lastActivity = u.LastActivity.Format("2006-01-02 15:04")
		}
		userRows = append(userRows, []string{
			html.EscapeString(name), usernameText, html.EscapeString(lastActivity), link,
		})
	}

	return map[string]string{
		"generated_at":     r.now().Format("2006-01-02 15:04"),
		"users_total":      strconv.Itoa(usersTotal),
		"cases_total":      strconv.Itoa(casesTotal),
		"cases_published":  strconv.Itoa(casesPublished),
		"cases_draft":      strconv.Itoa(casesDraft),
		"cases_archived":   strconv.Itoa(casesArchived),
		"media_total":      strconv.Itoa(mediaTotal),
		"events_total":     strconv.Itoa(eventsTotal),
		"top_buttons_rows": tableRows(menuRows, 2),
		"top_cases_rows":   tableRows(caseRows, 2),
		"funnel_rows":      tableRows(funnelRows, 2),
		"stuck_rows":       tableRows(stuckRows, 2),
		"users_rows":       tableRows(userRows, 4),
	}, nil
}

// tableRows renders pre-escaped cells into <tr> markup, with a "no data"
// row spanning the table when empty.
func tableRows(rows [][]string, colspan int) string {
	if len(rows) == 0 {
		return fmt.Sprintf(`<tr><td colspan="%d">no data</td></tr>`, colspan)
	}
	var b strings.Builder
	for _, cells := range rows {
		b.WriteString("<tr>")
		for _, cell := range cells {
			b.WriteString("<td>")
			b.WriteString(cell)
			b.WriteString("</td>")
		}
		b.WriteString("</tr>")
	}
	return b.String()
}

// render substitutes {{key}} placeholders and strips any the context does
// not cover, so a stale template never leaks raw markers.
func render(tmpl string, vars map[string]string) string {
	for key, value := range vars {
		tmpl = strings.ReplaceAll(tmpl, "{{"+key+"}}", value)
	}
	return placeholderRe.ReplaceAllString(tmpl, "")
}
