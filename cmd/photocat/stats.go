package main

import (
	"fmt"

	"github.com/fauli/photocat/internal/catalog"
	"github.com/fauli/photocat/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print catalog counters without mutating anything",
	Long: `Prints scan, metadata, and plan counters for a session. Read-only: never
writes to the catalog.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().String("source", "", "source root of the session to report on (defaults to the most recently started session)")
}

func runStats(cmd *cobra.Command, args []string) error {
	dbPath := viper.GetString("db")
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))

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

	util.InfoLog("=== Session %d ===", session.ID)
	util.InfoLog("Source: %s", session.SourceRoot)
	util.InfoLog("Drive UUID: %s", session.SourceDriveUUID)
	util.InfoLog("Status: %s", session.Status)
	util.InfoLog("Files: %d", session.FilesCount)
	util.InfoLog("Directories: %d", session.DirectoriesCount)
	util.InfoLog("Bytes: %s", util.HumanBytes(session.BytesTotal))

	success, skipped, failed, err := store.CountMetadataOutcomes(session.ID)
	if err == nil {
		util.InfoLog("")
		util.InfoLog("=== Metadata ===")
		util.InfoLog("Success: %d", success)
		util.InfoLog("Skipped: %d", skipped)
		util.InfoLog("Failed: %d", failed)
	}

	byBucket, err := store.CountFolderPlansByBucket(session.ID)
	if err == nil && len(byBucket) > 0 {
		util.InfoLog("")
		util.InfoLog("=== Folder plans ===")
		for bucket, count := range byBucket {
			label := bucket
			if label == "" {
				label = "(dated)"
			}
			util.InfoLog("  %s: %d", label, count)
		}
	}

	total, duplicates, sidecars, err := store.CountFilePlans(session.ID)
	if err == nil && total > 0 {
		util.InfoLog("")
		util.InfoLog("=== File plans ===")
		util.InfoLog("Total: %d", total)
		util.InfoLog("Potential duplicates: %d", duplicates)
		util.InfoLog("Sidecars: %d", sidecars)
	}

	return nil
}
