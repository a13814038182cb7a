package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all casebot configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Telegram transport
	Bot BotConfig `yaml:"bot"`

	// SQLite storage
	Database DatabaseConfig `yaml:"database"`

	// Case catalog behavior
	Catalog CatalogConfig `yaml:"catalog"`

	// Statistics reports
	Reports ReportsConfig `yaml:"reports"`

	// Menu screen content
	Content ContentConfig `yaml:"content"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// BotConfig configures the Telegram connection and the admin whitelist.
type BotConfig struct {
	Token    string  `yaml:"token"`
	AdminIDs []int64 `yaml:"admin_ids"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// CatalogConfig tunes paging, throttling, and the maintenance cache.
type CatalogConfig struct {
	PageSize         int    `yaml:"page_size"`
	SettingsCooldown string `yaml:"settings_cooldown"`
	PublishCooldown  string `yaml:"publish_cooldown"`
	WarnDismiss      string `yaml:"warn_dismiss"`
	MaintenanceTTL   string `yaml:"maintenance_ttl"`
}

// ReportsConfig configures statistics report generation and cleanup.
type ReportsConfig struct {
	Dir          string `yaml:"dir"`
	TemplatePath string `yaml:"template_path"`
	MaxAgeDays   int    `yaml:"max_age_days"`
}

// ContentConfig carries the static screen texts, link targets, and the
// Telegram file IDs used as screen covers. Empty file IDs degrade the
// screen to plain text.
type ContentConfig struct {
	ContactURL string `yaml:"contact_url"`
	ChannelURL string `yaml:"channel_url"`

	AboutText   string `yaml:"about_text"`
	StepsText   string `yaml:"steps_text"`
	ContactText string `yaml:"contact_text"`

	MenuImageID    string `yaml:"menu_image_id"`
	AdminImageID   string `yaml:"admin_image_id"`
	CasesImageID   string `yaml:"cases_image_id"`
	ContactImageID string `yaml:"contact_image_id"`
	AboutImageID   string `yaml:"about_image_id"`
	StepsImageID   string `yaml:"steps_image_id"`

	CTALabels []string `yaml:"cta_labels"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	File   string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "casebot",
		Version: "1.0.0",

		Database: DatabaseConfig{
			Path: "data/casebot.db",
		},

		Catalog: CatalogConfig{
			PageSize:         8,
			SettingsCooldown: "1.5s",
			PublishCooldown:  "2s",
			WarnDismiss:      "1.2s",
			MaintenanceTTL:   "10s",
		},

		Reports: ReportsConfig{
			Dir:        "data/reports",
			MaxAgeDays: 7,
		},

		Content: ContentConfig{
			AboutText:   "About me",
			StepsText:   "How I work",
			ContactText: "Contacts",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "casebot.log",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Validate checks that the configuration is complete enough to start.
func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return fmt.Errorf("bot token is required (set bot.token or CASEBOT_TOKEN)")
	}
	if len(c.Bot.AdminIDs) == 0 {
		return fmt.Errorf("at least one admin id is required (set bot.admin_ids or CASEBOT_ADMINS)")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if token := os.Getenv("CASEBOT_TOKEN"); token != "" {
		c.Bot.Token = token
	}
	if token := os.Getenv("BOT_TOKEN"); c.Bot.Token == "" && token != "" {
		c.Bot.Token = token
	}

	if raw := os.Getenv("CASEBOT_ADMINS"); raw != "" {
		if ids := parseAdminIDs(raw); len(ids) > 0 {
			c.Bot.AdminIDs = ids
		}
	}

	if path := os.Getenv("CASEBOT_DB"); path != "" {
		c.Database.Path = path
	}
	if dir := os.Getenv("CASEBOT_REPORTS_DIR"); dir != "" {
		c.Reports.Dir = dir
	}
}

// parseAdminIDs parses a comma-separated id list, skipping malformed entries.
func parseAdminIDs(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// GetSettingsCooldown returns the settings action cooldown as a duration.
func (c *Config) GetSettingsCooldown() time.Duration {
	d, err := time.ParseDuration(c.Catalog.SettingsCooldown)
	if err != nil {
		return 1500 * time.Millisecond
	}
	return d
}

// GetPublishCooldown returns the publish toggle cooldown as a duration.
func (c *Config) GetPublishCooldown() time.Duration {
	d, err := time.ParseDuration(c.Catalog.PublishCooldown)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// GetWarnDismiss returns the warning self-dismiss delay as a duration.
func (c *Config) GetWarnDismiss() time.Duration {
	d, err := time.ParseDuration(c.Catalog.WarnDismiss)
	if err != nil {
		return 1200 * time.Millisecond
	}
	return d
}

// GetMaintenanceTTL returns the maintenance flag cache TTL as a duration.
func (c *Config) GetMaintenanceTTL() time.Duration {
	d, err := time.ParseDuration(c.Catalog.MaintenanceTTL)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetReportMaxAge returns the report retention window as a duration.
func (c *Config) GetReportMaxAge() time.Duration {
	if c.Reports.MaxAgeDays <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(c.Reports.MaxAgeDays) * 24 * time.Hour
}
