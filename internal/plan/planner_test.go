package plan

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/fauli/photocat/internal/catalog"
)

func openTestStore(t *testing.T) *catalog.Store {
	t.Helper()
	store, err := catalog.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func insertFiles(t *testing.T, store *catalog.Store, files []*catalog.File) {
	t.Helper()
	if err := store.Transaction(func(tx *sql.Tx) error {
		return catalog.InsertFilesTx(tx, files)
	}); err != nil {
		t.Fatalf("insert files failed: %v", err)
	}
	for _, f := range files {
		if f.DatePathFolder != nil || f.DatePathFilename != nil || f.DatePathHierarchy != nil {
			if err := store.UpdatePathDates(f); err != nil {
				t.Fatalf("update path dates failed: %v", err)
			}
		}
	}
}

func mtimeFor(ymd int) int64 {
	y, m, d := ymd/10000, (ymd/100)%100, ymd%100
	return time.Date(y, time.Month(m), d, 12, 0, 0, 0, time.UTC).Unix()
}

func baseFile(session int64, dir, name string, mtimeYMD int) *catalog.File {
	ext := ""
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			ext = name[i+1:]
			break
		}
	}
	return &catalog.File{
		ScanSessionID: session,
		DirectoryPath: dir,
		SourcePath:    filepath.Join(dir, name),
		FilenameFull:  name,
		FilenameBase:  name[:len(name)-len(ext)-1],
		Extension:     strPtr(ext),
		SizeBytes:     50000,
		MtimeEpoch:    float64(mtimeFor(mtimeYMD)),
		MtimeUnix:     mtimeFor(mtimeYMD),
	}
}

func TestResolveFileDate_Priority(t *testing.T) {
	f := baseFile(1, "a", "img.jpg", 20200101)
	f.DatePathFolder = intPtr(20230514)
	f.DatePathFilename = intPtr(20220202)

	fd := resolveFileDate(f, intPtr(20210101))
	if *fd.date != 20230514 || fd.source != "path_folder" {
		t.Errorf("expected path_folder priority, got %d/%s", *fd.date, fd.source)
	}

	f.DatePathFolder = nil
	fd = resolveFileDate(f, intPtr(20210101))
	if *fd.date != 20220202 || fd.source != "path_filename" {
		t.Errorf("expected path_filename priority, got %d/%s", *fd.date, fd.source)
	}

	f.DatePathFilename = nil
	fd = resolveFileDate(f, intPtr(20210101))
	if *fd.date != 20210101 || fd.source != "exif" {
		t.Errorf("expected exif priority, got %d/%s", *fd.date, fd.source)
	}

	fd = resolveFileDate(f, nil)
	if *fd.date != 20200101 || fd.source != "fs_modified" {
		t.Errorf("expected fs_modified fallback, got %d/%s", *fd.date, fd.source)
	}
}

func TestPlan_PathFolderTakesPriority(t *testing.T) {
	store := openTestStore(t)
	session, err := store.BeginSession("/photos", "drive-1", 1000)
	if err != nil {
		t.Fatalf("BeginSession failed: %v", err)
	}

	f := baseFile(session.ID, "2023-05-14_vacation", "a.jpg", 19990101)
	f.DatePathFolder = intPtr(20230514)
	f.DatePathFolderSource = strPtr("2023-05-14_vacation")
	insertFiles(t, store, []*catalog.File{f})

	planner := New(store, DefaultConfig(), nil)
	result, err := planner.Plan(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	// The session root "" is planned too, as the folder's ancestor.
	if result.FoldersPlanned != 2 {
		t.Fatalf("FoldersPlanned = %d, want 2", result.FoldersPlanned)
	}

	fp, err := store.GetFolderPlanBySourceFolder(session.ID, "2023-05-14_vacation")
	if err != nil || fp == nil {
		t.Fatalf("GetFolderPlanBySourceFolder failed: %v", err)
	}
	if fp.ResolvedDate == nil || *fp.ResolvedDate != 20230514 {
		t.Fatalf("expected resolved date 20230514, got %v", fp.ResolvedDate)
	}
	if fp.ResolvedDateSource == nil || *fp.ResolvedDateSource != "path_folder" {
		t.Fatalf("expected source path_folder, got %v", fp.ResolvedDateSource)
	}
	if fp.TargetFolder == nil || *fp.TargetFolder != filepath.Join("2023", "2023_05", "20230514-vacation") {
		t.Fatalf("unexpected target folder %v", fp.TargetFolder)
	}
}

func TestPlan_EmptyOfImagesBucketsNonMedia(t *testing.T) {
	store := openTestStore(t)
	session, _ := store.BeginSession("/photos", "drive-1", 1000)

	f := baseFile(session.ID, "docs", "readme.txt", 20230101)
	insertFiles(t, store, []*catalog.File{f})

	planner := New(store, DefaultConfig(), nil)
	if _, err := planner.Plan(context.Background(), session.ID); err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	fp, _ := store.GetFolderPlanBySourceFolder(session.ID, "docs")
	if fp.Bucket == nil || *fp.Bucket != "non_media" {
		t.Fatalf("expected non_media bucket, got %v", fp.Bucket)
	}
	if fp.ResolvedDate != nil {
		t.Errorf("expected nil resolved date for bucketed folder, got %v", *fp.ResolvedDate)
	}
	if fp.TargetFolder == nil || *fp.TargetFolder != filepath.Join("_non_media", "docs") {
		t.Fatalf("unexpected target folder %v", fp.TargetFolder)
	}
}

func TestPlan_HighPrevalenceAdoptsDate(t *testing.T) {
	store := openTestStore(t)
	session, _ := store.BeginSession("/photos", "drive-1", 1000)

	files := []*catalog.File{
		baseFile(session.ID, "event", "a.jpg", 20230601),
		baseFile(session.ID, "event", "b.jpg", 20230601),
		baseFile(session.ID, "event", "c.jpg", 20230601),
		baseFile(session.ID, "event", "d.jpg", 20230602),
		baseFile(session.ID, "event", "e.jpg", 20230601),
	}
	insertFiles(t, store, files)

	planner := New(store, DefaultConfig(), nil)
	if _, err := planner.Plan(context.Background(), session.ID); err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	fp, _ := store.GetFolderPlanBySourceFolder(session.ID, "event")
	if fp.ResolvedDateSource == nil || *fp.ResolvedDateSource != "metadata_prevalent" {
		t.Fatalf("expected metadata_prevalent, got %v", fp.ResolvedDateSource)
	}
	if fp.ResolvedDate == nil || *fp.ResolvedDate != 20230601 {
		t.Fatalf("expected prevalent date 20230601, got %v", fp.ResolvedDate)
	}
}

func TestPlan_UnanimousDateAdopted(t *testing.T) {
	store := openTestStore(t)
	session, _ := store.BeginSession("/photos", "drive-1", 1000)

	files := []*catalog.File{
		baseFile(session.ID, "mix", "a.jpg", 20230101),
		baseFile(session.ID, "mix", "b.jpg", 20230101),
	}
	insertFiles(t, store, files)

	// A unanimous folder's prevalence is 100%, so under the default
	// thresholds the prevalence step claims it first; MinPrevalence above 1
	// lets resolution reach the unanimous step.
	cfg := DefaultConfig()
	cfg.MinPrevalence = 1.01
	planner := New(store, cfg, nil)
	if _, err := planner.Plan(context.Background(), session.ID); err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	// All files share the same fs_modified date, so the folder has exactly
	// one unique date.
	fp, _ := store.GetFolderPlanBySourceFolder(session.ID, "mix")
	if fp.ResolvedDateSource == nil || *fp.ResolvedDateSource != "metadata_unanimous" {
		t.Fatalf("expected metadata_unanimous, got %v", fp.ResolvedDateSource)
	}
}

// Low coverage only arises when file_resolved_date is null for some images —
// fs_modified is the last-resort signal and is set for every scanned file, so
// this bucket is exercised directly against resolveFolderPlan rather than
// through a full Plan() run.
func TestResolveFolderPlan_LowCoverageBucketsMixedDates(t *testing.T) {
	store := openTestStore(t)
	session, _ := store.BeginSession("/photos", "drive-1", 1000)

	dated := baseFile(session.ID, "mix", "a.jpg", 20230101)
	undated1 := baseFile(session.ID, "mix", "b.jpg", 20230101)
	undated2 := baseFile(session.ID, "mix", "c.jpg", 20230101)
	undated3 := baseFile(session.ID, "mix", "d.jpg", 20230101)
	insertFiles(t, store, []*catalog.File{dated, undated1, undated2, undated3})

	// 1 dated image of 4 is 25% coverage, below the default 30%.
	planner := New(store, DefaultConfig(), nil)
	fileDates := map[int64]fileDateInfo{
		dated.ID:    {date: intPtr(20230101), source: "exif"},
		undated1.ID: {date: nil, source: ""},
		undated2.ID: {date: nil, source: ""},
		undated3.ID: {date: nil, source: ""},
	}

	fp := planner.resolveFolderPlan(session.ID, "mix", []*catalog.File{dated, undated1, undated2, undated3}, fileDates, map[string]*catalog.FolderPlan{})
	if fp.Bucket == nil || *fp.Bucket != "mixed_dates" {
		t.Fatalf("expected mixed_dates bucket, got %v", fp.Bucket)
	}
	if fp.ResolvedDateSource == nil || *fp.ResolvedDateSource != "low_coverage" {
		t.Fatalf("expected low_coverage, got %v", fp.ResolvedDateSource)
	}
}

func TestComputeFolderStats_LowCoverage(t *testing.T) {
	session := int64(1)
	dated := baseFile(session, "mix", "a.jpg", 20230101)
	undated1 := baseFile(session, "mix", "b.jpg", 20230101)
	undated2 := baseFile(session, "mix", "c.jpg", 20230101)
	// These files are never inserted, so give them distinct IDs by hand.
	dated.ID, undated1.ID, undated2.ID = 1, 2, 3

	fileDates := map[int64]fileDateInfo{
		dated.ID:    {date: intPtr(20230101), source: "exif"},
		undated1.ID: {date: nil, source: ""},
		undated2.ID: {date: nil, source: ""},
	}
	imageExt := map[string]bool{"jpg": true}

	stats := computeFolderStats([]*catalog.File{dated, undated1, undated2}, fileDates, imageExt)
	if stats.imageCount != 3 {
		t.Fatalf("imageCount = %d, want 3", stats.imageCount)
	}
	if stats.withDateCount != 1 {
		t.Fatalf("withDateCount = %d, want 1", stats.withDateCount)
	}
}

func TestPlan_WideSpreadBucketsMixedDates(t *testing.T) {
	store := openTestStore(t)
	session, _ := store.BeginSession("/photos", "drive-1", 1000)

	files := []*catalog.File{
		baseFile(session.ID, "spread", "a.jpg", 20220101),
		baseFile(session.ID, "spread", "b.jpg", 20230601),
	}
	insertFiles(t, store, files)

	planner := New(store, DefaultConfig(), nil)
	if _, err := planner.Plan(context.Background(), session.ID); err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	fp, _ := store.GetFolderPlanBySourceFolder(session.ID, "spread")
	if fp.Bucket == nil || *fp.Bucket != "mixed_dates" {
		t.Fatalf("expected mixed_dates bucket, got %v", fp.Bucket)
	}
	if fp.ResolvedDateSource == nil || *fp.ResolvedDateSource != "mixed_dates_wide_spread" {
		t.Fatalf("expected mixed_dates_wide_spread, got %v", fp.ResolvedDateSource)
	}
}

func TestPlan_InheritanceFromParent(t *testing.T) {
	store := openTestStore(t)
	session, _ := store.BeginSession("/photos", "drive-1", 1000)

	parentDir := "2023-05-14_vacation"
	childDir := filepath.Join(parentDir, "edited")

	parentFile := baseFile(session.ID, parentDir, "a.jpg", 19990101)
	parentFile.DatePathFolder = intPtr(20230514)
	parentFile.DatePathFolderSource = strPtr(parentDir)

	childFile := baseFile(session.ID, childDir, "b.jpg", 19990101)

	insertFiles(t, store, []*catalog.File{parentFile, childFile})

	planner := New(store, DefaultConfig(), nil)
	if _, err := planner.Plan(context.Background(), session.ID); err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	childFP, err := store.GetFolderPlanBySourceFolder(session.ID, childDir)
	if err != nil || childFP == nil {
		t.Fatalf("GetFolderPlanBySourceFolder failed: %v", err)
	}
	if !childFP.IsSubfolder {
		t.Fatal("expected child folder to be marked as subfolder")
	}
	if childFP.ResolvedDateSource == nil || *childFP.ResolvedDateSource != "inherited" {
		t.Fatalf("expected inherited source, got %v", childFP.ResolvedDateSource)
	}
	if childFP.ResolvedDate == nil || *childFP.ResolvedDate != 20230514 {
		t.Fatalf("expected inherited date 20230514, got %v", childFP.ResolvedDate)
	}
	if childFP.TargetFolder == nil || *childFP.TargetFolder != filepath.Join("2023", "2023_05", "20230514-vacation", "edited") {
		t.Fatalf("unexpected child target folder %v", *childFP.TargetFolder)
	}
}

func TestPlan_DuplicateFilenameRenamed(t *testing.T) {
	store := openTestStore(t)
	session, _ := store.BeginSession("/photos", "drive-1", 1000)

	// Two unrelated source folders, both dated 2023-05-14 with no
	// annotation remainder, resolve to the same target folder — so their
	// identically-named files collide there and the newcomer is renamed.
	f1 := baseFile(session.ID, "cardA/2023-05-14", "img.jpg", 19990101)
	f1.DatePathFolder = intPtr(20230514)
	f1.DatePathFolderSource = strPtr("2023-05-14")

	f2 := baseFile(session.ID, "cardB/2023-05-14", "img.jpg", 19990101)
	f2.DatePathFolder = intPtr(20230514)
	f2.DatePathFolderSource = strPtr("2023-05-14")

	insertFiles(t, store, []*catalog.File{f1, f2})

	planner := New(store, DefaultConfig(), nil)
	result, err := planner.Plan(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	fp1, _ := store.GetFolderPlanBySourceFolder(session.ID, "cardA/2023-05-14")
	fp2, _ := store.GetFolderPlanBySourceFolder(session.ID, "cardB/2023-05-14")
	if fp1 == nil || fp2 == nil {
		t.Fatal("expected both folders to resolve")
	}
	if *fp1.TargetFolder != *fp2.TargetFolder {
		t.Fatalf("expected both folders to share a target folder, got %s and %s", *fp1.TargetFolder, *fp2.TargetFolder)
	}
	if result.Duplicates != 1 {
		t.Fatalf("Duplicates = %d, want 1", result.Duplicates)
	}
}

func TestPlan_SidecarDetection(t *testing.T) {
	store := openTestStore(t)
	session, _ := store.BeginSession("/photos", "drive-1", 1000)

	img := baseFile(session.ID, "roll", "a.jpg", 20230101)
	sidecar := baseFile(session.ID, "roll", "a.xmp", 20230101)
	orphan := baseFile(session.ID, "roll", "b.xmp", 20230101)

	insertFiles(t, store, []*catalog.File{img, sidecar, orphan})

	planner := New(store, DefaultConfig(), nil)
	if _, err := planner.Plan(context.Background(), session.ID); err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	fp, _ := store.GetFolderPlanBySourceFolder(session.ID, "roll")

	total, _, sidecars, err := store.CountFilePlans(session.ID)
	if err != nil {
		t.Fatalf("CountFilePlans failed: %v", err)
	}
	if total != 3 {
		t.Fatalf("total file plans = %d, want 3", total)
	}
	if sidecars != 1 {
		t.Fatalf("sidecar count = %d, want 1", sidecars)
	}
	_ = fp
}

func TestExtractAnnotation(t *testing.T) {
	tests := []struct {
		name     string
		seed     string
		date     string
		maxLen   int
		expected string
	}{
		{"plain date only", "20230514", "20230514", 10, ""},
		{"date with suffix", "20230514_vacation", "20230514", 10, "vacation"},
		{"dashed date with suffix", "2023-05-14-vacation", "20230514", 10, "vacation"},
		{"truncated to max length", "20230514_a_very_long_trip_name", "20230514", 10, "a_very_lon"},
		{"no date token present", "random_folder", "20230514", 10, "random_fol"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := extractAnnotation(tc.seed, tc.date, tc.maxLen)
			if got != tc.expected {
				t.Errorf("extractAnnotation(%q, %q, %d) = %q, want %q", tc.seed, tc.date, tc.maxLen, got, tc.expected)
			}
		})
	}
}

func TestPlan_Idempotent(t *testing.T) {
	store := openTestStore(t)
	session, _ := store.BeginSession("/photos", "drive-1", 1000)

	files := []*catalog.File{
		baseFile(session.ID, "event", "a.jpg", 20230601),
		baseFile(session.ID, "event", "b.jpg", 20230601),
	}
	insertFiles(t, store, files)

	planner := New(store, DefaultConfig(), nil)
	first, err := planner.Plan(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("first Plan failed: %v", err)
	}
	second, err := planner.Plan(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("second Plan failed: %v", err)
	}
	if first.FoldersPlanned != second.FoldersPlanned || first.FilesPlanned != second.FilesPlanned {
		t.Fatalf("plan not idempotent: %+v vs %+v", first, second)
	}
}
