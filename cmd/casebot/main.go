package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"casebot/internal/config"
	"casebot/internal/logging"
	"casebot/internal/stats"
	"casebot/internal/store"
	"casebot/internal/system"
	"casebot/internal/telegram"
	"casebot/internal/workflow"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "casebot",
	Short: "casebot - Telegram case portfolio bot with an admin panel",
	Long: `casebot serves a case portfolio over Telegram: visitors browse
published cases, reviews, and contacts, while administrators manage the
catalog, statistics reports, and bot settings from an inline panel.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; real deployments set the environment directly
		_ = godotenv.Load()

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		logCfg := cfg.Logging
		if verbose {
			logCfg.Level = "debug"
		}
		logger, err = logging.New(logCfg)
		if err != nil {
			return err
		}
		cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runBot,
}

// reportCmd builds one statistics report without starting the bot.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a statistics report and print its path",
	RunE:  runReport,
}

type configKey struct{}

func configFrom(cmd *cobra.Command) *config.Config {
	return cmd.Context().Value(configKey{}).(*config.Config)
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg := configFrom(cmd)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.Database.Path, logger.Named("store"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	client := telegram.NewClient(cfg.Bot.Token, logger.Named("telegram"))
	reporter := stats.NewReporter(st, cfg.Reports.Dir, cfg.Reports.TemplatePath, logger.Named("stats"))
	control := system.NewControl(st, logger.Named("system"))

	dispatcher := workflow.NewDispatcher(workflow.Options{
		AdminIDs:         cfg.Bot.AdminIDs,
		PageSize:         cfg.Catalog.PageSize,
		SettingsCooldown: cfg.GetSettingsCooldown(),
		PublishCooldown:  cfg.GetPublishCooldown(),
		WarnDismiss:      cfg.GetWarnDismiss(),
		MaintenanceTTL:   cfg.GetMaintenanceTTL(),
		ReportMaxAge:     cfg.GetReportMaxAge(),

		MenuImageID:    cfg.Content.MenuImageID,
		AdminImageID:   cfg.Content.AdminImageID,
		CasesImageID:   cfg.Content.CasesImageID,
		ContactImageID: cfg.Content.ContactImageID,
		AboutImageID:   cfg.Content.AboutImageID,
		StepsImageID:   cfg.Content.StepsImageID,

		ContactURL:  cfg.Content.ContactURL,
		ChannelURL:  cfg.Content.ChannelURL,
		AboutText:   cfg.Content.AboutText,
		StepsText:   cfg.Content.StepsText,
		ContactText: cfg.Content.ContactText,
		CTALabels:   cfg.Content.CTALabels,
	}, st, client, reporter, control, logger.Named("workflow"))

	poller := telegram.NewPoller(client, dispatcher, logger.Named("poller"))

	logger.Info("casebot starting",
		zap.String("version", cfg.Version),
		zap.String("db", cfg.Database.Path),
		zap.Int("admins", len(cfg.Bot.AdminIDs)))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return poller.Run(ctx)
	})
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}

	logger.Info("casebot stopped")
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg := configFrom(cmd)

	st, err := store.Open(cfg.Database.Path, logger.Named("store"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	reporter := stats.NewReporter(st, cfg.Reports.Dir, cfg.Reports.TemplatePath, logger.Named("stats"))
	path, err := reporter.Generate(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(reportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if logger != nil {
			logger.Error("fatal", zap.Error(err))
			_ = logger.Sync()
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
