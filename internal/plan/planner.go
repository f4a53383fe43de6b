// Package plan implements the Planner stage: folder-centric date
// resolution and target-path assignment over one scan session's files and
// metadata, written as a complete folder_plan/file_plan set.
package plan

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/fauli/photocat/internal/catalog"
	"github.com/fauli/photocat/internal/report"
	"github.com/fauli/photocat/internal/util"
)

// Config holds Planner configuration (SPEC_FULL.md §9 "Globals for
// configuration").
type Config struct {
	MinCoverage          float64
	MinPrevalence        float64
	MaxSpanMonths        int
	MaxAnnotationLength  int
	ImageExtensions      []string
	SidecarExtensions    []string
	CaseSensitiveTargets bool
}

// DefaultConfig returns the Planner's default configuration (§4.4/§9).
// CaseSensitiveTargets assumes a case-sensitive destination (ext4/xfs/btrfs);
// callers with a concrete destination should probe it with
// util.DetectFilesystemCaseSensitivity and override.
func DefaultConfig() Config {
	return Config{
		MinCoverage:          0.30,
		MinPrevalence:        0.80,
		MaxSpanMonths:        3,
		MaxAnnotationLength:  10,
		ImageExtensions:      []string{"arw", "jpg", "jpeg", "nef", "dng", "tif", "tiff", "heic", "cr2", "srw", "png", "psd", "bmp", "gif"},
		SidecarExtensions:    []string{"xmp", "json", "xml", "thm", "aae"},
		CaseSensitiveTargets: true,
	}
}

// Planner runs the Planner stage.
type Planner struct {
	store  *catalog.Store
	cfg    Config
	events *report.EventLogger

	imageExtSet   map[string]bool
	sidecarExtSet map[string]bool
}

// New creates a Planner.
func New(store *catalog.Store, cfg Config, events *report.EventLogger) *Planner {
	if events == nil {
		events = report.NullLogger()
	}
	if cfg.MaxAnnotationLength <= 0 {
		cfg.MaxAnnotationLength = 10
	}
	if len(cfg.ImageExtensions) == 0 {
		cfg.ImageExtensions = DefaultConfig().ImageExtensions
	}
	if len(cfg.SidecarExtensions) == 0 {
		cfg.SidecarExtensions = DefaultConfig().SidecarExtensions
	}
	return &Planner{
		store:         store,
		cfg:           cfg,
		events:        events,
		imageExtSet:   toExtSet(cfg.ImageExtensions),
		sidecarExtSet: toExtSet(cfg.SidecarExtensions),
	}
}

// Result summarizes one Plan run, for the stage-completion summary (§7).
type Result struct {
	FoldersPlanned int
	FilesPlanned   int
	Duplicates     int
	Sidecars       int
	BucketCounts   map[string]int
}

// Plan produces a complete folder_plan/file_plan set for sessionID,
// deleting any prior plan rows for the session first (§4.4 "Contract").
func (p *Planner) Plan(ctx context.Context, sessionID int64) (*Result, error) {
	util.InfoLog("Starting planning for session %d", sessionID)

	files, err := p.store.FilesInSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load files for session %d: %w", sessionID, err)
	}
	util.InfoLog("Loaded %d files", len(files))

	dateOriginal, err := p.store.AllMetadataDateOriginal(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load metadata dates: %w", err)
	}

	fileDates := make(map[int64]fileDateInfo, len(files))
	folderFiles := make(map[string][]*catalog.File)
	for _, f := range files {
		var original *int
		if ymd, ok := dateOriginal[f.ID]; ok {
			v := ymd
			original = &v
		}
		fileDates[f.ID] = resolveFileDate(f, original)
		folderFiles[f.DirectoryPath] = append(folderFiles[f.DirectoryPath], f)
	}

	folders := foldersAscending(folderFiles)
	util.InfoLog("Resolving %d folders", len(folders))

	result := &Result{BucketCounts: make(map[string]int)}

	err = p.store.Transaction(func(tx *sql.Tx) error {
		if err := catalog.ClearPlansTx(tx, sessionID); err != nil {
			return err
		}

		resolved := make(map[string]*catalog.FolderPlan, len(folders))
		usedNames := make(map[string]map[string]bool)

		for _, folder := range folders {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			folderFilesList := folderFiles[folder]
			fp := p.resolveFolderPlan(sessionID, folder, folderFilesList, fileDates, resolved)

			id, err := catalog.InsertFolderPlanTx(tx, fp)
			if err != nil {
				return err
			}
			fp.ID = id
			resolved[folder] = fp

			result.FoldersPlanned++
			bucketKey := ""
			if fp.Bucket != nil {
				bucketKey = *fp.Bucket
			}
			result.BucketCounts[bucketKey]++

			for _, f := range folderFilesList {
				filePlan := p.buildFilePlan(f, fp, fileDates[f.ID], folderFilesList, usedNames)
				if err := catalog.InsertFilePlanTx(tx, filePlan); err != nil {
					return err
				}

				result.FilesPlanned++
				if filePlan.IsPotentialDuplicate {
					result.Duplicates++
				}
				if filePlan.IsSidecar {
					result.Sidecars++
				}
				p.events.LogPlan(f.ID, f.SourcePath, filePlan.TargetPath, "planned", filePlan.ResolutionReason)
			}
		}

		return nil
	})
	if err != nil {
		return result, fmt.Errorf("plan session %d: %w", sessionID, err)
	}

	util.SuccessLog("Planning complete: %d folders, %d files (%d potential duplicates, %d sidecars)",
		result.FoldersPlanned, result.FilesPlanned, result.Duplicates, result.Sidecars)

	return result, nil
}

// foldersAscending returns every folder to resolve — every folder holding
// files, plus every ancestor of those folders up to the root — ordered by
// ascending depth then byte-wise ascending path (§4.4/§5 "Folder resolution
// order").
func foldersAscending(folderFiles map[string][]*catalog.File) []string {
	seen := make(map[string]bool)
	for folder := range folderFiles {
		for p, ok := folder, true; ok; p, ok = parentOf(p) {
			if seen[p] {
				break
			}
			seen[p] = true
		}
	}

	folders := make([]string, 0, len(seen))
	for f := range seen {
		folders = append(folders, f)
	}
	sort.Slice(folders, func(i, j int) bool {
		di, dj := folderDepth(folders[i]), folderDepth(folders[j])
		if di != dj {
			return di < dj
		}
		return folders[i] < folders[j]
	})
	return folders
}

func toExtSet(list []string) map[string]bool {
	set := make(map[string]bool, len(list))
	for _, v := range list {
		set[v] = true
	}
	return set
}
