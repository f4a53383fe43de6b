// Package meta implements the MetadataExtractor stage: batched invocation
// of an external metadata tool over selected catalog files.
package meta

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fauli/photocat/internal/catalog"
	"github.com/fauli/photocat/internal/report"
	"github.com/fauli/photocat/internal/util"
)

// SelectionStrategy chooses which files a run processes (§4.3 "Selection
// strategies").
type SelectionStrategy string

const (
	// SelectionFull processes every supported file with no metadata row.
	SelectionFull SelectionStrategy = "full"
	// SelectionSelective further restricts to files with no path-derived
	// date signal, since those are the ones the Planner cannot date any
	// other way without the tool.
	SelectionSelective SelectionStrategy = "selective"
)

// supportedImageExtensions and supportedVideoExtensions are §4.3's
// supported-extension set, lowercase and without the leading dot.
var (
	supportedImageExtensions = []string{"arw", "jpg", "jpeg", "nef", "dng", "tif", "tiff", "heic", "cr2", "srw"}
	supportedVideoExtensions = []string{"mp4", "m4v", "mov", "mkv", "avi"}
)

func supportedExtensions() []string {
	return append(append([]string{}, supportedImageExtensions...), supportedVideoExtensions...)
}

// Config holds MetadataExtractor configuration.
type Config struct {
	Strategy         SelectionStrategy
	BatchSize        int
	MinFileSizeBytes int64
	Limit            int // cap files processed this run; 0 means unlimited
}

// DefaultConfig returns the MetadataExtractor's default configuration.
func DefaultConfig() Config {
	return Config{
		Strategy:         SelectionFull,
		BatchSize:        100,
		MinFileSizeBytes: 10240,
	}
}

// Extractor runs the MetadataExtractor stage.
type Extractor struct {
	store  *catalog.Store
	tool   Tool
	cfg    Config
	events *report.EventLogger
}

// New creates a MetadataExtractor. tool must already have completed its
// preflight version probe (§4.3 "Preflight").
func New(store *catalog.Store, tool Tool, cfg Config, events *report.EventLogger) *Extractor {
	if events == nil {
		events = report.NullLogger()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Extractor{store: store, tool: tool, cfg: cfg, events: events}
}

// Result summarizes one Extract run, for the stage-completion summary (§7).
type Result struct {
	FilesSelected int
	Success       int
	Skipped       int
	Failed        int
}

// Extract processes every file the configured selection strategy returns
// for sessionID (§4.3 contract): writes exactly one file_metadata row per
// input file, never raising past a per-file error.
func (e *Extractor) Extract(ctx context.Context, sessionID int64) (*Result, error) {
	session, err := e.store.GetSessionByID(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %d: %w", sessionID, err)
	}
	if session == nil {
		return nil, fmt.Errorf("session %d not found", sessionID)
	}

	files, err := e.store.FilesNeedingMetadata(sessionID, supportedExtensions())
	if err != nil {
		return nil, fmt.Errorf("select files needing metadata: %w", err)
	}
	if e.cfg.Strategy == SelectionSelective {
		files = selectiveFilter(files)
	}
	if e.cfg.Limit > 0 && len(files) > e.cfg.Limit {
		files = files[:e.cfg.Limit]
	}

	result := &Result{FilesSelected: len(files)}
	if len(files) == 0 {
		util.InfoLog("No files selected for metadata extraction")
		return result, nil
	}

	util.InfoLog("Extracting metadata for %d files (tool %s)", len(files), e.tool.Version())

	var toProcess []*catalog.File
	for _, f := range files {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		if f.SizeBytes < e.cfg.MinFileSizeBytes {
			if err := e.writeSkip(f, fmt.Sprintf("file_too_small:%d_bytes", f.SizeBytes)); err != nil {
				return result, err
			}
			result.Skipped++
			continue
		}
		toProcess = append(toProcess, f)
	}

	for start := 0; start < len(toProcess); start += e.cfg.BatchSize {
		end := start + e.cfg.BatchSize
		if end > len(toProcess) {
			end = len(toProcess)
		}
		batch := toProcess[start:end]

		if err := e.processBatch(ctx, session.SourceRoot, batch, result); err != nil {
			return result, err
		}
	}

	util.SuccessLog("Metadata extraction complete: %d succeeded, %d skipped, %d failed",
		result.Success, result.Skipped, result.Failed)

	return result, nil
}

// selectiveFilter implements the `selective` strategy: restrict to files
// lacking both date_path_folder and date_path_filename (§4.3).
func selectiveFilter(files []*catalog.File) []*catalog.File {
	out := make([]*catalog.File, 0, len(files))
	for _, f := range files {
		if f.DatePathFolder == nil && f.DatePathFilename == nil {
			out = append(out, f)
		}
	}
	return out
}

// processBatch invokes the tool over batch's absolute paths under a
// per-batch deadline, running it once more if that deadline is hit; a batch
// that still fails triggers single-file fallback (§4.3 "Invocation").
func (e *Extractor) processBatch(ctx context.Context, sourceRoot string, batch []*catalog.File, result *Result) error {
	const batchTimeout = 10 * time.Minute

	byPath := make(map[string]*catalog.File, len(batch))
	paths := make([]string, 0, len(batch))
	for _, f := range batch {
		abs := filepath.Join(sourceRoot, f.SourcePath)
		byPath[abs] = f
		paths = append(paths, abs)
	}

	batchCtx, cancel := context.WithTimeout(ctx, batchTimeout)
	results, err := e.tool.RunBatch(batchCtx, paths)
	timedOut := batchCtx.Err() == context.DeadlineExceeded
	cancel()
	if err != nil && timedOut {
		util.WarnLog("batch metadata extraction timed out (%d files), retrying once", len(batch))
		batchCtx, cancel = context.WithTimeout(ctx, batchTimeout)
		results, err = e.tool.RunBatch(batchCtx, paths)
		cancel()
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		util.WarnLog("batch metadata extraction failed (%d files), falling back to single-file mode: %v", len(batch), err)
		return e.processSingly(ctx, byPath, paths, result)
	}

	matched := make(map[string]bool, len(results))
	for _, raw := range results {
		sourceFile, _ := raw["SourceFile"].(string)
		f, ok := byPath[sourceFile]
		if !ok {
			continue
		}
		matched[sourceFile] = true
		if err := e.writeSuccess(f, raw); err != nil {
			return err
		}
		result.Success++
	}

	for path, f := range byPath {
		if matched[path] {
			continue
		}
		if err := e.writeError(f, fmt.Errorf("no result returned by metadata tool")); err != nil {
			return err
		}
		result.Failed++
	}

	return nil
}

// processSingly re-invokes the tool one file at a time after a whole-batch
// crash, recording the per-file error for any file that still fails.
func (e *Extractor) processSingly(ctx context.Context, byPath map[string]*catalog.File, paths []string, result *Result) error {
	for _, path := range paths {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f := byPath[path]

		results, err := e.tool.RunBatch(ctx, []string{path})
		if err != nil || len(results) == 0 {
			if err == nil {
				err = fmt.Errorf("no result returned by metadata tool")
			}
			if writeErr := e.writeError(f, err); writeErr != nil {
				return writeErr
			}
			result.Failed++
			continue
		}

		if err := e.writeSuccess(f, results[0]); err != nil {
			return err
		}
		result.Success++
	}
	return nil
}

func (e *Extractor) writeSuccess(f *catalog.File, raw map[string]interface{}) error {
	now := time.Now()
	m := deriveMetadata(f.ID, raw, e.tool.Version(), epochOf(now), now.Unix())
	if err := e.store.Transaction(func(tx *sql.Tx) error {
		return catalog.InsertFileMetadataTx(tx, m)
	}); err != nil {
		return fmt.Errorf("write metadata for file %d: %w", f.ID, err)
	}
	e.events.LogMeta(f.ID, f.SourcePath, "", nil)
	return nil
}

func (e *Extractor) writeSkip(f *catalog.File, reason string) error {
	now := time.Now()
	m := &catalog.FileMetadata{
		FileID:           f.ID,
		SkipReason:       &reason,
		ExtractedAtEpoch: epochOf(now),
		ExtractedAtUnix:  now.Unix(),
		ExtractorVersion: e.tool.Version(),
	}
	if err := e.store.Transaction(func(tx *sql.Tx) error {
		return catalog.InsertFileMetadataTx(tx, m)
	}); err != nil {
		return fmt.Errorf("write skip for file %d: %w", f.ID, err)
	}
	e.events.LogMeta(f.ID, f.SourcePath, reason, nil)
	return nil
}

func (e *Extractor) writeError(f *catalog.File, cause error) error {
	now := time.Now()
	msg := cause.Error()
	m := &catalog.FileMetadata{
		FileID:           f.ID,
		ExtractionError:  &msg,
		ExtractedAtEpoch: epochOf(now),
		ExtractedAtUnix:  now.Unix(),
		ExtractorVersion: e.tool.Version(),
	}
	if err := e.store.Transaction(func(tx *sql.Tx) error {
		return catalog.InsertFileMetadataTx(tx, m)
	}); err != nil {
		return fmt.Errorf("write error for file %d: %w", f.ID, err)
	}
	e.events.LogMeta(f.ID, f.SourcePath, "", cause)
	util.WarnLog("metadata extraction failed for %s: %v", f.SourcePath, cause)
	return nil
}

func epochOf(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
