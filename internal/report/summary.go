package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fauli/photocat/internal/catalog"
	"github.com/fauli/photocat/internal/util"
)

// SummaryReport is a completed pipeline run's statistics, rendered as both
// the structured fields below and a Markdown report (§7 "stage-completion
// summary").
type SummaryReport struct {
	GeneratedAt time.Time
	Duration    time.Duration

	SourceRoot string
	Stage      string // "scan", "pathdate", "metadata", "plan"

	FilesScanned      int
	DirectoriesWalked int
	BytesTotal        int64

	MetadataSuccess int
	MetadataSkipped int
	MetadataFailed  int

	FolderPlansByBucket map[string]int
	FolderPlansBySource map[string]int
	FilePlansTotal      int
	FilePlansDuplicate  int
	FilePlansSidecar    int

	TopErrors []ErrorSummary
	Conflicts []ConflictInfo

	DatabasePath string
	EventLogPath string
}

// ErrorSummary is an error message and how many files hit it.
type ErrorSummary struct {
	Error string
	Count int
}

// ConflictInfo is a target-path collision the Planner resolved.
type ConflictInfo struct {
	SrcPath  string
	DestPath string
	Reason   string
}

// GenerateScanSummary builds a report for a completed Scanner run.
func GenerateScanSummary(store *catalog.Store, session *catalog.ScanSession, duration time.Duration, eventLogPath string) *SummaryReport {
	return &SummaryReport{
		GeneratedAt:       time.Now(),
		Duration:          duration,
		Stage:             "scan",
		SourceRoot:        session.SourceRoot,
		FilesScanned:      int(session.FilesCount),
		DirectoriesWalked: int(session.DirectoriesCount),
		BytesTotal:        session.BytesTotal,
		EventLogPath:      eventLogPath,
	}
}

// GenerateMetadataSummary builds a report for a completed MetadataExtractor run.
func GenerateMetadataSummary(store *catalog.Store, sessionID int64, duration time.Duration, eventLogPath string) (*SummaryReport, error) {
	success, skipped, failed, err := store.CountMetadataOutcomes(sessionID)
	if err != nil {
		return nil, fmt.Errorf("count metadata outcomes: %w", err)
	}

	return &SummaryReport{
		GeneratedAt:     time.Now(),
		Duration:        duration,
		Stage:           "metadata",
		MetadataSuccess: success,
		MetadataSkipped: skipped,
		MetadataFailed:  failed,
		EventLogPath:    eventLogPath,
	}, nil
}

// GeneratePlanSummary builds a report for a completed Planner run.
func GeneratePlanSummary(store *catalog.Store, sessionID int64, duration time.Duration, eventLogPath string) (*SummaryReport, error) {
	byBucket, err := store.CountFolderPlansByBucket(sessionID)
	if err != nil {
		return nil, fmt.Errorf("count folder plans by bucket: %w", err)
	}
	bySource, err := store.CountFolderPlansBySource(sessionID)
	if err != nil {
		return nil, fmt.Errorf("count folder plans by source: %w", err)
	}
	total, duplicates, sidecars, err := store.CountFilePlans(sessionID)
	if err != nil {
		return nil, fmt.Errorf("count file plans: %w", err)
	}

	return &SummaryReport{
		GeneratedAt:         time.Now(),
		Duration:            duration,
		Stage:               "plan",
		FolderPlansByBucket: byBucket,
		FolderPlansBySource: bySource,
		FilePlansTotal:      total,
		FilePlansDuplicate:  duplicates,
		FilePlansSidecar:    sidecars,
		EventLogPath:        eventLogPath,
	}, nil
}

// WriteMarkdownReport writes the summary report as Markdown.
func WriteMarkdownReport(report *SummaryReport, outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var md strings.Builder

	md.WriteString("# Photo Catalog - Summary Report\n\n")
	md.WriteString(fmt.Sprintf("**Stage:** %s\n\n", report.Stage))
	md.WriteString(fmt.Sprintf("**Generated:** %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05")))

	if report.DatabasePath != "" {
		md.WriteString(fmt.Sprintf("**Database:** `%s`\n\n", report.DatabasePath))
	}
	if report.EventLogPath != "" {
		md.WriteString(fmt.Sprintf("**Event Log:** `%s`\n\n", report.EventLogPath))
	}
	if report.Duration > 0 {
		md.WriteString(fmt.Sprintf("**Duration:** %s\n\n", report.Duration.Round(time.Second)))
	}

	md.WriteString("---\n\n")

	if report.FilesScanned > 0 || report.DirectoriesWalked > 0 {
		md.WriteString("## Scan\n\n")
		md.WriteString("| Metric | Value |\n")
		md.WriteString("|--------|-------|\n")
		md.WriteString(fmt.Sprintf("| Source Root | `%s` |\n", report.SourceRoot))
		md.WriteString(fmt.Sprintf("| Files Scanned | %d |\n", report.FilesScanned))
		md.WriteString(fmt.Sprintf("| Directories Walked | %d |\n", report.DirectoriesWalked))
		md.WriteString(fmt.Sprintf("| Total Size | %s |\n", util.HumanBytes(report.BytesTotal)))
		md.WriteString("\n")
	}

	if report.MetadataSuccess+report.MetadataSkipped+report.MetadataFailed > 0 {
		md.WriteString("## Metadata Extraction\n\n")
		md.WriteString("| Metric | Value |\n")
		md.WriteString("|--------|-------|\n")
		md.WriteString(fmt.Sprintf("| Extracted | %d |\n", report.MetadataSuccess))
		md.WriteString(fmt.Sprintf("| Skipped | %d |\n", report.MetadataSkipped))
		md.WriteString(fmt.Sprintf("| Failed | %d |\n", report.MetadataFailed))
		md.WriteString("\n")
	}

	if report.FilePlansTotal > 0 {
		md.WriteString("## Planning\n\n")
		md.WriteString("| Metric | Value |\n")
		md.WriteString("|--------|-------|\n")
		md.WriteString(fmt.Sprintf("| Files Placed | %d |\n", report.FilePlansTotal))
		md.WriteString(fmt.Sprintf("| Potential Duplicates | %d |\n", report.FilePlansDuplicate))
		md.WriteString(fmt.Sprintf("| Sidecars | %d |\n", report.FilePlansSidecar))
		md.WriteString("\n")

		if len(report.FolderPlansBySource) > 0 {
			md.WriteString("### Resolution Source\n\n")
			md.WriteString("| Source | Folders |\n")
			md.WriteString("|--------|--------|\n")
			for _, src := range sortedKeys(report.FolderPlansBySource) {
				label := src
				if label == "" {
					label = "(unresolved)"
				}
				md.WriteString(fmt.Sprintf("| %s | %d |\n", label, report.FolderPlansBySource[src]))
			}
			md.WriteString("\n")
		}

		if len(report.FolderPlansByBucket) > 0 {
			md.WriteString("### Buckets\n\n")
			md.WriteString("| Bucket | Folders |\n")
			md.WriteString("|--------|--------|\n")
			for _, bucket := range sortedKeys(report.FolderPlansByBucket) {
				label := bucket
				if label == "" {
					label = "(dated)"
				}
				md.WriteString(fmt.Sprintf("| %s | %d |\n", label, report.FolderPlansByBucket[bucket]))
			}
			md.WriteString("\n")
		}
	}

	if len(report.TopErrors) > 0 {
		md.WriteString("## Top Errors\n\n")
		md.WriteString("| Count | Error |\n")
		md.WriteString("|-------|-------|\n")
		for _, e := range report.TopErrors {
			md.WriteString(fmt.Sprintf("| %d | %s |\n", e.Count, e.Error))
		}
		md.WriteString("\n")
	}

	if len(report.Conflicts) > 0 {
		md.WriteString("## Conflicts\n\n")
		md.WriteString("| Source | Destination | Reason |\n")
		md.WriteString("|--------|-------------|--------|\n")
		for _, c := range report.Conflicts {
			md.WriteString(fmt.Sprintf("| `%s` | `%s` | %s |\n",
				truncatePath(c.SrcPath, 40),
				truncatePath(c.DestPath, 40),
				c.Reason))
		}
		md.WriteString("\n")
	}

	md.WriteString("---\n\n")

	if err := os.WriteFile(outputPath, []byte(md.String()), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// truncatePath truncates a file path to a maximum length, keeping start and
// end around an ellipsis.
func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	start := maxLen/2 - 2
	end := len(path) - (maxLen/2 - 2)
	return path[:start] + "..." + path[end:]
}
