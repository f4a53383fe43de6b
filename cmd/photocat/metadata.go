package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fauli/photocat/internal/catalog"
	"github.com/fauli/photocat/internal/meta"
	"github.com/fauli/photocat/internal/report"
	"github.com/fauli/photocat/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var extractMetadataCmd = &cobra.Command{
	Use:   "extract-metadata",
	Short: "Extract EXIF/video metadata for files discovered by scan",
	Long: `Runs the MetadataExtractor stage over the most recent scan session,
invoking an exiftool-compatible external tool in batches and writing one
file_metadata row per processed file.`,
	RunE: runExtractMetadata,
}

func init() {
	rootCmd.AddCommand(extractMetadataCmd)
	extractMetadataCmd.Flags().String("source", "", "source root of the session to extract (defaults to the most recently started session)")
	extractMetadataCmd.Flags().String("strategy", "full", "selection strategy: full or selective")
	extractMetadataCmd.Flags().Int("batch-size", 100, "files per tool invocation")
	extractMetadataCmd.Flags().Int("limit", 0, "cap files processed this run (0 = unlimited)")
	extractMetadataCmd.Flags().String("tool", "", "external metadata tool binary (default exiftool)")
}

func runExtractMetadata(cmd *cobra.Command, args []string) error {
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

	strategyFlag, _ := cmd.Flags().GetString("strategy")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	limit, _ := cmd.Flags().GetInt("limit")
	toolBinary, _ := cmd.Flags().GetString("tool")

	cfg := meta.DefaultConfig()
	if strategyFlag == string(meta.SelectionSelective) {
		cfg.Strategy = meta.SelectionSelective
	}
	if batchSize > 0 {
		cfg.BatchSize = batchSize
	}
	cfg.Limit = limit

	tool, err := meta.NewExecTool(toolBinary)
	if err != nil {
		return fmt.Errorf("metadata tool unavailable: %w", err)
	}
	util.InfoLog("Using tool: %s", tool.Version())

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

	extractor := meta.New(store, tool, cfg, logger)

	start := time.Now()
	result, err := extractor.Extract(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("metadata extraction failed: %w", err)
	}
	duration := time.Since(start)

	util.SuccessLog("Metadata extraction complete in %v", duration.Round(time.Millisecond))
	util.InfoLog("  Files selected: %d", result.FilesSelected)
	util.InfoLog("  Success: %d", result.Success)
	util.InfoLog("  Skipped: %d", result.Skipped)
	util.InfoLog("  Failed: %d", result.Failed)

	summary, err := report.GenerateMetadataSummary(store, session.ID, duration, logger.Path())
	if err == nil {
		if err := report.WriteMarkdownReport(summary, "artifacts/metadata-summary.md"); err != nil {
			util.WarnLog("Failed to write metadata summary: %v", err)
		}
	}

	util.InfoLog("")
	util.InfoLog("Next step: photocat plan")

	return nil
}

// resolveSession looks up the session for source, or the most recently
// started session across the catalog when source is empty.
func resolveSession(store *catalog.Store, source string) (*catalog.ScanSession, error) {
	if source != "" {
		session, err := store.GetSessionByRoot(source)
		if err != nil {
			return nil, fmt.Errorf("look up session for %s: %w", source, err)
		}
		if session == nil {
			return nil, fmt.Errorf("no session found for %s", source)
		}
		return session, nil
	}

	session, err := store.GetLatestSession()
	if err != nil {
		return nil, fmt.Errorf("look up latest session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("no scan sessions found; run 'photocat scan <root>' first")
	}
	return session, nil
}
