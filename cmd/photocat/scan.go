package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fauli/photocat/internal/catalog"
	"github.com/fauli/photocat/internal/pathdate"
	"github.com/fauli/photocat/internal/report"
	"github.com/fauli/photocat/internal/scan"
	"github.com/fauli/photocat/internal/util"
	"github.com/fauli/photocat/internal/uuidoracle"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var scanCmd = &cobra.Command{
	Use:   "scan <root>",
	Short: "Inventory a source directory and extract path-embedded dates",
	Long: `Scan walks the source directory and records every file in the catalog,
then runs the path-date extractor over the freshly scanned session.

This command performs two stages:
1. Scanner: walks the source directory and writes a resumable file inventory
2. PathDateExtractor: parses folder/filename/hierarchy dates from each path

The scan is resumable: interrupted runs pick back up at the last completed
directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().Bool("resume", false, "resume the most recent incomplete session for this root")
	scanCmd.Flags().Bool("status", false, "print session status and exit without scanning")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	source := args[0]

	dbPath := viper.GetString("db")
	verbose := viper.GetBool("verbose")
	quiet := viper.GetBool("quiet")
	util.SetVerbose(verbose)
	util.SetQuiet(quiet)

	if _, err := os.Stat(source); os.IsNotExist(err) {
		return fmt.Errorf("source directory does not exist: %s", source)
	}

	util.InfoLog("Opening catalog: %s", dbPath)
	store, err := catalog.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer store.Close()

	showStatus, _ := cmd.Flags().GetBool("status")
	if showStatus {
		return printSessionStatus(store, source)
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
	if logger.Path() != "" {
		util.InfoLog("Event log: %s", logger.Path())
	}

	util.InfoLog("=== Stage 1: Scanner ===")
	util.InfoLog("Source: %s", source)

	scanner := scan.New(store, uuidoracle.New(), scan.DefaultConfig(), logger)

	start := time.Now()
	scanResult, err := scanner.Scan(ctx, source)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	scanDuration := time.Since(start)

	util.SuccessLog("Scanner complete in %v", scanDuration.Round(time.Millisecond))
	util.InfoLog("  Files scanned: %d", scanResult.FilesScanned)
	util.InfoLog("  Directories walked: %d", scanResult.DirectoriesWalked)
	util.InfoLog("  Bytes: %s", util.HumanBytes(scanResult.BytesTotal))

	session, err := store.GetSessionByID(scanResult.SessionID)
	if err != nil {
		return fmt.Errorf("reload session: %w", err)
	}
	summary := report.GenerateScanSummary(store, session, scanDuration, logger.Path())
	if err := report.WriteMarkdownReport(summary, "artifacts/scan-summary.md"); err != nil {
		util.WarnLog("Failed to write scan summary: %v", err)
	}

	util.InfoLog("")
	util.InfoLog("=== Stage 2: PathDateExtractor ===")

	extractor := pathdate.New(store)
	pdStart := time.Now()
	pdResult, err := extractor.Extract(ctx, scanResult.SessionID)
	if err != nil {
		return fmt.Errorf("path-date extraction failed: %w", err)
	}
	pdDuration := time.Since(pdStart)

	util.SuccessLog("PathDateExtractor complete in %v", pdDuration.Round(time.Millisecond))
	util.InfoLog("  Files processed: %d", pdResult.FilesProcessed)
	util.InfoLog("  Hierarchy dates: %d", pdResult.WithHierarchy)
	util.InfoLog("  Folder dates: %d", pdResult.WithFolder)
	util.InfoLog("  Filename dates: %d", pdResult.WithFilename)

	util.InfoLog("")
	util.SuccessLog("=== Scan Summary ===")
	util.InfoLog("Session: %d", scanResult.SessionID)
	util.InfoLog("Total time: %v", (scanDuration + pdDuration).Round(time.Millisecond))
	util.InfoLog("")
	util.InfoLog("Next step: photocat extract-metadata")

	return nil
}

func printSessionStatus(store *catalog.Store, source string) error {
	session, err := store.GetSessionByRoot(source)
	if err != nil {
		return fmt.Errorf("look up session: %w", err)
	}
	if session == nil {
		util.InfoLog("No session found for %s", source)
		return nil
	}
	util.InfoLog("Session %d for %s", session.ID, source)
	util.InfoLog("  Status: %s", session.Status)
	util.InfoLog("  Files: %d", session.FilesCount)
	util.InfoLog("  Directories: %d", session.DirectoriesCount)
	return nil
}
