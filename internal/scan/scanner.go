// Package scan implements the Scanner stage: a resumable, deterministic
// filesystem inventory of one source root into the catalog.
package scan

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fauli/photocat/internal/catalog"
	"github.com/fauli/photocat/internal/report"
	"github.com/fauli/photocat/internal/util"
	"github.com/schollz/progressbar/v3"
)

// DriveUUIDOracle identifies the physical/logical volume a scan root lives
// on. The real detector is an external collaborator (SPEC_FULL.md §6); this
// interface is the contract it must satisfy.
type DriveUUIDOracle interface {
	UUIDFor(mountPoint string) (string, error)
}

// Config holds Scanner configuration (SPEC_FULL.md §9 "Globals for
// configuration": an immutable struct, not package globals).
type Config struct {
	ProgressInterval    int           // emit a status line every N files scanned (default 1000)
	StatsUpdateInterval time.Duration // accepted but not read; the Scanner emits no idle "scanning <dir>" indicator
	RetryIOErrors       bool          // retry once on transient I/O before skipping a file
	MaxPathLength       int           // directory entries whose absolute path exceeds this are skipped
}

// DefaultConfig returns the Scanner's default configuration.
func DefaultConfig() Config {
	return Config{
		ProgressInterval:    1000,
		StatsUpdateInterval: 5 * time.Second,
		RetryIOErrors:       true,
		MaxPathLength:       4096,
	}
}

// Scanner walks a source root and produces a resumable File inventory.
type Scanner struct {
	store  *catalog.Store
	oracle DriveUUIDOracle
	cfg    Config
	events *report.EventLogger
}

// New creates a Scanner.
func New(store *catalog.Store, oracle DriveUUIDOracle, cfg Config, events *report.EventLogger) *Scanner {
	if events == nil {
		events = report.NullLogger()
	}
	return &Scanner{store: store, oracle: oracle, cfg: cfg, events: events}
}

// Result summarizes one Scan run, for the stage-completion summary (§7).
type Result struct {
	SessionID         int64
	FilesScanned      int
	DirectoriesWalked int
	BytesTotal        int64
	Duration          time.Duration
}

// Scan walks sourceRoot and writes a complete File inventory into the
// catalog (§4.1).
func (s *Scanner) Scan(ctx context.Context, sourceRoot string) (*Result, error) {
	start := time.Now()

	absRoot, err := filepath.Abs(sourceRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve source root: %w", err)
	}

	driveUUID, err := s.oracle.UUIDFor(absRoot)
	if err != nil || driveUUID == "" {
		return nil, fmt.Errorf("%w: %v", util.ErrUUIDOracleFailed, err)
	}

	session, err := s.store.BeginSession(absRoot, driveUUID, epochNow())
	if err != nil {
		return nil, fmt.Errorf("begin scan session: %w", err)
	}

	completed, err := s.store.CompletedDirectorySet(session.ID)
	if err != nil {
		return nil, fmt.Errorf("load completed directories: %w", err)
	}

	util.InfoLog("Scanning %s (session %d, %d directories already completed)", absRoot, session.ID, len(completed))

	result := &Result{SessionID: session.ID}

	var bar *progressbar.ProgressBar
	if util.IsTerminal(os.Stdout.Fd()) && !util.IsQuiet() {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("Scanning"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("files"),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}

	w := &walker{s: s, ctx: ctx, session: session, completed: completed, result: result, bar: bar}

	walkErr := w.walkDir(absRoot, "")
	if walkErr == context.Canceled {
		s.store.CompleteSession(session.ID, catalog.SessionInterrupted, epochNow(), "interrupted by signal")
		if bar != nil {
			bar.Finish()
		}
		return result, walkErr
	}
	if walkErr != nil {
		s.store.CompleteSession(session.ID, catalog.SessionFailed, epochNow(), walkErr.Error())
		if bar != nil {
			bar.Finish()
		}
		return result, fmt.Errorf("scan failed: %w", walkErr)
	}

	if err := s.store.CompleteSession(session.ID, catalog.SessionCompleted, epochNow(), ""); err != nil {
		return result, fmt.Errorf("complete scan session: %w", err)
	}

	if bar != nil {
		bar.Finish()
	}
	result.Duration = time.Since(start)

	util.SuccessLog("Scan complete: %d files, %d directories, %s, in %s",
		result.FilesScanned, result.DirectoriesWalked, util.HumanBytes(result.BytesTotal), result.Duration.Round(time.Millisecond))

	return result, nil
}

// walker holds the mutable state of one recursive traversal.
type walker struct {
	s         *Scanner
	ctx       context.Context
	session   *catalog.ScanSession
	completed map[string]bool
	result    *Result
	bar       *progressbar.ProgressBar
}

// walkDir visits one directory, deterministically ascending by entry name
// (§4.1 "Traversal"), and recurses into subdirectories depth-first. relDir
// is the directory's path relative to the scan root ("" for the root
// itself, per §3's CompletedDirectory convention).
func (w *walker) walkDir(absDir, relDir string) error {
	select {
	case <-w.ctx.Done():
		return context.Canceled
	default:
	}

	if w.completed[relDir] {
		return w.recurseOnly(absDir, relDir)
	}

	// Resuming a directory that was listed but never committed: any rows
	// it partially wrote must be removed before it is rescanned (§4.1
	// "Resume").
	if err := w.s.store.Transaction(func(tx *sql.Tx) error {
		return catalog.DeleteDirectoryFilesTx(tx, w.session.ID, relDir)
	}); err != nil {
		return fmt.Errorf("clear partial directory %s: %w", relDir, err)
	}

	if len(absDir) > w.s.cfg.MaxPathLength {
		util.WarnLog("skipping directory, path too long: %s", absDir)
		return nil
	}

	entries, err := readDirSorted(absDir)
	if err != nil {
		if os.IsPermission(err) {
			util.WarnLog("permission denied: %s", absDir)
			return nil
		}
		util.WarnLog("cannot list directory %s: %v", absDir, err)
		return nil
	}

	var files []*catalog.File
	var subdirs []os.DirEntry

	for _, entry := range entries {
		if isSymlink(entry) {
			continue
		}
		if entry.IsDir() {
			subdirs = append(subdirs, entry)
			continue
		}

		absPath := filepath.Join(absDir, entry.Name())
		if len(absPath) > w.s.cfg.MaxPathLength {
			util.WarnLog("skipping entry, path too long: %s", absPath)
			continue
		}

		f, err := w.buildFile(entry, absDir, relDir)
		if err != nil {
			if os.IsNotExist(err) {
				util.WarnLog("file vanished before stat: %s", absPath)
				continue
			}
			util.WarnLog("cannot stat %s: %v", absPath, err)
			continue
		}
		files = append(files, f)
	}

	now := epochNow()
	if err := w.s.store.Transaction(func(tx *sql.Tx) error {
		if err := catalog.InsertFilesTx(tx, files); err != nil {
			return err
		}
		return catalog.InsertCompletedDirectoryTx(tx, w.session.ID, relDir, len(files), now)
	}); err != nil {
		return fmt.Errorf("commit directory %s: %w", relDir, err)
	}

	if err := w.s.store.IncrementSessionCounters(w.session.ID, int64(len(files)), 1, sumSizes(files)); err != nil {
		util.WarnLog("failed to update session counters: %v", err)
	}

	w.result.DirectoriesWalked++
	w.result.FilesScanned += len(files)
	w.result.BytesTotal += sumSizes(files)
	w.maybeReportProgress()

	for _, entry := range subdirs {
		if err := w.walkDir(filepath.Join(absDir, entry.Name()), filepath.Join(relDir, entry.Name())); err != nil {
			return err
		}
	}

	return nil
}

// recurseOnly is used when a directory's own commit already landed on a
// prior run; only its subdirectories still need visiting.
func (w *walker) recurseOnly(absDir, relDir string) error {
	entries, err := readDirSorted(absDir)
	if err != nil {
		util.WarnLog("cannot re-list completed directory %s: %v", relDir, err)
		return nil
	}
	for _, entry := range entries {
		if entry.IsDir() && !isSymlink(entry) {
			if err := w.walkDir(filepath.Join(absDir, entry.Name()), filepath.Join(relDir, entry.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

func sumSizes(files []*catalog.File) int64 {
	var total int64
	for _, f := range files {
		total += f.SizeBytes
	}
	return total
}

func (w *walker) maybeReportProgress() {
	if w.bar != nil {
		w.bar.Describe(fmt.Sprintf("Scanning | %d files | %d dirs", w.result.FilesScanned, w.result.DirectoriesWalked))
		w.bar.Add(1)
		return
	}
	interval := w.s.cfg.ProgressInterval
	if interval <= 0 {
		interval = 1000
	}
	if w.result.FilesScanned > 0 && w.result.FilesScanned%interval < 32 {
		util.InfoLog("scanning: %d files, %d directories so far", w.result.FilesScanned, w.result.DirectoriesWalked)
	}
}

func epochNow() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

func readDirSorted(path string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	return entries, nil
}

func isSymlink(entry os.DirEntry) bool {
	return entry.Type()&os.ModeSymlink != 0
}

// buildFile constructs a catalog.File for one directory entry, retrying
// once on transient I/O per §4.1's failure model.
func (w *walker) buildFile(entry os.DirEntry, absDir, relDir string) (*catalog.File, error) {
	var info os.FileInfo
	var err error

	statOp := func() (os.FileInfo, error) { return entry.Info() }

	if w.s.cfg.RetryIOErrors {
		retryCfg := util.DefaultRetryConfig()
		retryCfg.MaxAttempts = 2 // the first try plus one retry
		info, err = util.RetryWithBackoff(retryCfg, statOp, fmt.Sprintf("stat(%s)", entry.Name()))
	} else {
		info, err = statOp()
	}
	if err != nil {
		return nil, err
	}

	base, ext := splitExtension(entry.Name())
	sourcePath := filepath.Join(relDir, entry.Name())
	mtime := info.ModTime()

	f := &catalog.File{
		ScanSessionID:  w.session.ID,
		DirectoryPath:  relDir,
		SourcePath:     sourcePath,
		FilenameFull:   entry.Name(),
		FilenameBase:   base,
		Extension:      ext,
		SizeBytes:      info.Size(),
		MtimeEpoch:     float64(mtime.UnixNano()) / 1e9,
		MtimeUnix:      mtime.Unix(),
		ScannedAtEpoch: epochNow(),
		ScannedAtUnix:  time.Now().Unix(),
	}
	applyPlatformTimes(f, info)
	return f, nil
}

// splitExtension implements §4.1's filename-parsing rule: the extension is
// the substring after the last dot, lowercased; null when there is no dot,
// the string ends in a dot, or the only dot is the first character.
func splitExtension(name string) (base string, ext *string) {
	lastDot := strings.LastIndexByte(name, '.')
	if lastDot <= 0 {
		return name, nil
	}
	if lastDot == len(name)-1 {
		return name[:lastDot], nil
	}
	e := strings.ToLower(name[lastDot+1:])
	return name[:lastDot], &e
}
