package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fauli/photocat/internal/catalog"
	"github.com/fauli/photocat/internal/plan"
	"github.com/fauli/photocat/internal/report"
	"github.com/fauli/photocat/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Resolve folder dates and assign target paths",
	Long: `Runs the Planner stage: resolves a date for every source folder by path
signal or statistical consensus over file metadata, then assigns each file
a target path under a dated Y/Y_M/YYYYMMDD[-annotation] layout.

This stage is informational only — no file is copied or moved. Rerunning
replaces the previous plan for the session.`,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().String("source", "", "source root of the session to plan (defaults to the most recently started session)")
	planCmd.Flags().Float64("min-coverage", 0, "minimum dated-image share before a folder buckets as mixed_dates (default 0.30)")
	planCmd.Flags().Float64("min-prevalence", 0, "minimum prevalent-date share to adopt it as the folder date (default 0.80)")
	planCmd.Flags().Int("max-span", 0, "maximum calendar-month date spread before a folder buckets as mixed_dates (default 3)")
	planCmd.Flags().Bool("case-insensitive-targets", false, "treat target filenames as colliding regardless of case (auto-detected from the catalog's filesystem when unset)")
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPath := viper.GetString("db")
	verbose := viper.GetBool("verbose")
	quiet := viper.GetBool("quiet")
	util.SetVerbose(verbose)
	util.SetQuiet(quiet)

	store, err := catalog.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer store.Close()

	source, _ := cmd.Flags().GetString("source")
	session, err := resolveSession(store, source)
	if err != nil {
		return err
	}

	cfg := plan.DefaultConfig()
	if v, _ := cmd.Flags().GetFloat64("min-coverage"); v > 0 {
		cfg.MinCoverage = v
	}
	if v, _ := cmd.Flags().GetFloat64("min-prevalence"); v > 0 {
		cfg.MinPrevalence = v
	}
	if v, _ := cmd.Flags().GetInt("max-span"); v > 0 {
		cfg.MaxSpanMonths = v
	}
	if v, _ := cmd.Flags().GetBool("case-insensitive-targets"); v {
		cfg.CaseSensitiveTargets = false
	} else if sensitive, err := util.DetectFilesystemCaseSensitivity(filepath.Dir(dbPath)); err == nil {
		cfg.CaseSensitiveTargets = sensitive
	}

	logLevel := report.LevelInfo
	if quiet {
		logLevel = report.LevelWarning
	} else if verbose {
		logLevel = report.LevelDebug
	}
	logger, err := report.NewEventLogger("artifacts", logLevel)
	if err != nil {
		util.WarnLog("Failed to create event logger: %v", err)
		logger = report.NullLogger()
	}
	defer logger.Close()

	planner := plan.New(store, cfg, logger)

	start := time.Now()
	result, err := planner.Plan(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("planning failed: %w", err)
	}
	duration := time.Since(start)

	util.SuccessLog("Planning complete in %v", duration.Round(time.Millisecond))
	util.InfoLog("  Folders planned: %d", result.FoldersPlanned)
	util.InfoLog("  Files planned: %d", result.FilesPlanned)
	util.InfoLog("  Potential duplicates: %d", result.Duplicates)
	util.InfoLog("  Sidecars: %d", result.Sidecars)
	for bucket, count := range result.BucketCounts {
		if bucket == "" {
			continue
		}
		util.InfoLog("  Bucket %s: %d folders", bucket, count)
	}

	summary, err := report.GeneratePlanSummary(store, session.ID, duration, logger.Path())
	if err == nil {
		if err := report.WriteMarkdownReport(summary, "artifacts/plan-summary.md"); err != nil {
			util.WarnLog("Failed to write plan summary: %v", err)
		}
	}

	util.InfoLog("")
	util.InfoLog("Next step: photocat stats --source %s", session.SourceRoot)

	return nil
}
