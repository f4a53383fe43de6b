package meta

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/fauli/photocat/internal/catalog"
)

type fakeTool struct {
	version string
	byPath  map[string]map[string]interface{}
	failFor map[string]bool // paths that should make a batch call error
}

func (f *fakeTool) Version() string { return f.version }

func (f *fakeTool) RunBatch(ctx context.Context, paths []string) ([]map[string]interface{}, error) {
	for _, p := range paths {
		if f.failFor[p] {
			return nil, fmt.Errorf("simulated batch crash")
		}
	}
	var results []map[string]interface{}
	for _, p := range paths {
		if raw, ok := f.byPath[p]; ok {
			results = append(results, raw)
		}
	}
	return results, nil
}

func openTestStore(t *testing.T) *catalog.Store {
	t.Helper()
	store, err := catalog.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestExtract_SizeGateSkipsSmallFiles(t *testing.T) {
	store := openTestStore(t)
	session, err := store.BeginSession("/photos", "drive-1", 1000)
	if err != nil {
		t.Fatalf("BeginSession failed: %v", err)
	}

	files := []*catalog.File{
		{ScanSessionID: session.ID, SourcePath: "tiny.jpg", FilenameFull: "tiny.jpg", FilenameBase: "tiny", Extension: strPtr("jpg"), SizeBytes: 100},
	}
	if err := store.Transaction(func(tx *sql.Tx) error {
		return catalog.InsertFilesTx(tx, files)
	}); err != nil {
		t.Fatalf("insert files failed: %v", err)
	}

	tool := &fakeTool{version: "12.70"}
	extractor := New(store, tool, DefaultConfig(), nil)

	result, err := extractor.Extract(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if result.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", result.Skipped)
	}

	meta, err := store.GetFileMetadata(files[0].ID)
	if err != nil {
		t.Fatalf("GetFileMetadata failed: %v", err)
	}
	if meta == nil || meta.SkipReason == nil || *meta.SkipReason != "file_too_small:100_bytes" {
		t.Errorf("expected skip reason file_too_small:100_bytes, got %+v", meta)
	}
}

func TestExtract_SuccessWritesMetadata(t *testing.T) {
	store := openTestStore(t)
	session, err := store.BeginSession("/photos", "drive-1", 1000)
	if err != nil {
		t.Fatalf("BeginSession failed: %v", err)
	}

	files := []*catalog.File{
		{ScanSessionID: session.ID, SourcePath: "a.jpg", FilenameFull: "a.jpg", FilenameBase: "a", Extension: strPtr("jpg"), SizeBytes: 50000},
	}
	if err := store.Transaction(func(tx *sql.Tx) error {
		return catalog.InsertFilesTx(tx, files)
	}); err != nil {
		t.Fatalf("insert files failed: %v", err)
	}

	absPath := filepath.Join(session.SourceRoot, "a.jpg")
	tool := &fakeTool{
		version: "12.70",
		byPath: map[string]map[string]interface{}{
			absPath: {
				"SourceFile":            absPath,
				"EXIF:DateTimeOriginal": "2023:05:14 09:30:00",
				"EXIF:Make":             "Canon",
			},
		},
	}
	extractor := New(store, tool, DefaultConfig(), nil)

	result, err := extractor.Extract(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if result.Success != 1 {
		t.Errorf("Success = %d, want 1", result.Success)
	}

	meta, err := store.GetFileMetadata(files[0].ID)
	if err != nil {
		t.Fatalf("GetFileMetadata failed: %v", err)
	}
	if meta == nil || meta.DateOriginalYMD == nil || *meta.DateOriginalYMD != 20230514 {
		t.Fatalf("expected DateOriginalYMD 20230514, got %+v", meta)
	}
	if meta.Make == nil || *meta.Make != "Canon" {
		t.Errorf("expected Make Canon, got %v", meta.Make)
	}
}

func TestExtract_BatchCrashFallsBackToSingleFile(t *testing.T) {
	store := openTestStore(t)
	session, err := store.BeginSession("/photos", "drive-1", 1000)
	if err != nil {
		t.Fatalf("BeginSession failed: %v", err)
	}

	files := []*catalog.File{
		{ScanSessionID: session.ID, SourcePath: "a.jpg", FilenameFull: "a.jpg", FilenameBase: "a", Extension: strPtr("jpg"), SizeBytes: 50000},
		{ScanSessionID: session.ID, SourcePath: "b.jpg", FilenameFull: "b.jpg", FilenameBase: "b", Extension: strPtr("jpg"), SizeBytes: 50000},
	}
	if err := store.Transaction(func(tx *sql.Tx) error {
		return catalog.InsertFilesTx(tx, files)
	}); err != nil {
		t.Fatalf("insert files failed: %v", err)
	}

	aPath := filepath.Join(session.SourceRoot, "a.jpg")
	bPath := filepath.Join(session.SourceRoot, "b.jpg")

	// The batch call (both paths together) "crashes"; the single-file
	// fallback calls RunBatch with one path at a time, which succeeds.
	tool := &batchThenSingleTool{
		version: "12.70",
		byPath: map[string]map[string]interface{}{
			aPath: {"SourceFile": aPath, "EXIF:DateTimeOriginal": "2023:05:14 09:30:00"},
			bPath: {"SourceFile": bPath, "EXIF:DateTimeOriginal": "2023:05:15 09:30:00"},
		},
	}
	extractor := New(store, tool, DefaultConfig(), nil)

	result, err := extractor.Extract(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if result.Success != 2 {
		t.Errorf("Success = %d, want 2", result.Success)
	}
	if result.Failed != 0 {
		t.Errorf("Failed = %d, want 0", result.Failed)
	}
}

// batchThenSingleTool fails any call with more than one path, succeeding
// only on single-file fallback calls.
type batchThenSingleTool struct {
	version string
	byPath  map[string]map[string]interface{}
}

func (t *batchThenSingleTool) Version() string { return t.version }

func (t *batchThenSingleTool) RunBatch(ctx context.Context, paths []string) ([]map[string]interface{}, error) {
	if len(paths) > 1 {
		return nil, fmt.Errorf("simulated whole-batch crash")
	}
	var results []map[string]interface{}
	for _, p := range paths {
		if raw, ok := t.byPath[p]; ok {
			results = append(results, raw)
		}
	}
	return results, nil
}

func strPtr(s string) *string { return &s }
