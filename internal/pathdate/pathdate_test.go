package pathdate

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/fauli/photocat/internal/catalog"
)

func TestFindHierarchy(t *testing.T) {
	testCases := []struct {
		name      string
		dir       string
		wantYMD   int
		wantFound bool
	}{
		{"deepest wins", "archive/2019/06/01/2023/05/14", 20230514, true},
		{"single match", "photos/2023/05/14", 20230514, true},
		{"no match", "photos/vacation/beach", 0, false},
		{"invalid calendar date rejected", "photos/2023/02/30", 0, false},
		{"leap day accepted", "photos/2024/02/29", 20240229, true},
		{"non leap day rejected", "photos/2023/02/29", 0, false},
		{"wrong segment widths", "photos/23/5/14", 0, false},
		{"empty path", "", 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ymd, _, ok := findHierarchy(tc.dir)
			if ok != tc.wantFound {
				t.Fatalf("findHierarchy(%q) ok = %v, want %v", tc.dir, ok, tc.wantFound)
			}
			if ok && ymd != tc.wantYMD {
				t.Errorf("findHierarchy(%q) = %d, want %d", tc.dir, ymd, tc.wantYMD)
			}
		})
	}
}

func TestFindFolder(t *testing.T) {
	testCases := []struct {
		name      string
		dir       string
		wantYMD   int
		wantMatch string
		wantFound bool
	}{
		{"dash separated", "photos/2023-05-14-vacation", 20230514, "2023-05-14-vacation", true},
		{"underscore separated", "photos/2023_05_14", 20230514, "2023_05_14", true},
		{"no separator", "photos/20230514", 20230514, "20230514", true},
		{"deepest folder wins", "events/2022-01-01/2023-05-14-trip", 20230514, "2023-05-14-trip", true},
		{"embedded in word rejected", "photos/v20230514", 0, "", false},
		{"trailing word rejected", "photos/20230514notes", 0, "", false},
		{"invalid calendar date rejected", "photos/2023-02-30", 0, "", false},
		{"no digits", "photos/vacation", 0, "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ymd, matched, ok := findFolder(tc.dir)
			if ok != tc.wantFound {
				t.Fatalf("findFolder(%q) ok = %v, want %v", tc.dir, ok, tc.wantFound)
			}
			if !ok {
				return
			}
			if ymd != tc.wantYMD {
				t.Errorf("findFolder(%q) ymd = %d, want %d", tc.dir, ymd, tc.wantYMD)
			}
			if matched != tc.wantMatch {
				t.Errorf("findFolder(%q) matched = %q, want %q", tc.dir, matched, tc.wantMatch)
			}
		})
	}
}

func TestFindFilename(t *testing.T) {
	testCases := []struct {
		name      string
		filename  string
		wantYMD   int
		wantFound bool
	}{
		{"dash separated prefix", "2023-05-14-beach.jpg", 20230514, true},
		{"IMG style with trailing time", "IMG_20230514_120000.jpg", 20230514, true},
		{"leftmost of two wins", "2023-05-14_vs_2024-01-01.jpg", 20230514, true},
		{"embedded in word rejected", "photo20230514.jpg", 0, false},
		{"prefixed by letter rejected", "v20230514.jpg", 0, false},
		{"no date", "holiday.jpg", 0, false},
		{"dot boundary rejected", "IMG_2023-05-14.jpg", 0, false},
		{"invalid calendar date rejected", "notes_2023-13-01_x.jpg", 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ymd, _, ok := findFilename(tc.filename)
			if ok != tc.wantFound {
				t.Fatalf("findFilename(%q) ok = %v, want %v", tc.filename, ok, tc.wantFound)
			}
			if ok && ymd != tc.wantYMD {
				t.Errorf("findFilename(%q) = %d, want %d", tc.filename, ymd, tc.wantYMD)
			}
		})
	}
}

func TestValidCalendarDate(t *testing.T) {
	testCases := []struct {
		name      string
		y, m, d   string
		wantValid bool
	}{
		{"ordinary date", "2023", "05", "14", true},
		{"leap day", "2024", "02", "29", true},
		{"non leap day", "2023", "02", "29", false},
		{"year too low", "1899", "01", "01", false},
		{"year too high", "2100", "01", "01", false},
		{"month zero", "2023", "00", "01", false},
		{"month thirteen", "2023", "13", "01", false},
		{"day zero", "2023", "01", "00", false},
		{"day thirty two", "2023", "01", "32", false},
		{"april thirty one rejected", "2023", "04", "31", false},
		{"non numeric", "20ab", "05", "14", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, valid := validCalendarDate(tc.y, tc.m, tc.d)
			if valid != tc.wantValid {
				t.Errorf("validCalendarDate(%q, %q, %q) = %v, want %v", tc.y, tc.m, tc.d, valid, tc.wantValid)
			}
		})
	}
}

func TestExtract_Idempotent(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := catalog.Open(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	session, err := store.BeginSession("/photos/source", "drive-uuid-1", 1000)
	if err != nil {
		t.Fatalf("BeginSession failed: %v", err)
	}

	files := []*catalog.File{
		{
			ScanSessionID: session.ID,
			DirectoryPath: "2023/05/14",
			SourcePath:    "2023/05/14/IMG_0001.jpg",
			FilenameFull:  "IMG_0001.jpg",
			FilenameBase:  "IMG_0001",
		},
		{
			ScanSessionID: session.ID,
			DirectoryPath: "vacation/2023-05-14-beach",
			SourcePath:    "vacation/2023-05-14-beach/DSC_9999.jpg",
			FilenameFull:  "DSC_9999.jpg",
			FilenameBase:  "DSC_9999",
		},
		{
			ScanSessionID: session.ID,
			DirectoryPath: "vacation/misc",
			SourcePath:    "vacation/misc/holiday.jpg",
			FilenameFull:  "holiday.jpg",
			FilenameBase:  "holiday",
		},
	}
	if err := store.Transaction(func(tx *sql.Tx) error {
		return catalog.InsertFilesTx(tx, files)
	}); err != nil {
		t.Fatalf("insert files failed: %v", err)
	}

	extractor := New(store)

	result, err := extractor.Extract(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if result.FilesProcessed != 3 {
		t.Errorf("FilesProcessed = %d, want 3", result.FilesProcessed)
	}
	if result.WithHierarchy != 1 {
		t.Errorf("WithHierarchy = %d, want 1", result.WithHierarchy)
	}
	if result.WithFolder != 1 {
		t.Errorf("WithFolder = %d, want 1", result.WithFolder)
	}

	reloaded, err := store.FilesInSession(session.ID)
	if err != nil {
		t.Fatalf("FilesInSession failed: %v", err)
	}
	byPath := map[string]*catalog.File{}
	for _, f := range reloaded {
		byPath[f.SourcePath] = f
	}

	hierarchyFile := byPath["2023/05/14/IMG_0001.jpg"]
	if hierarchyFile.DatePathHierarchy == nil || *hierarchyFile.DatePathHierarchy != 20230514 {
		t.Errorf("expected hierarchy date 20230514, got %v", hierarchyFile.DatePathHierarchy)
	}

	folderFile := byPath["vacation/2023-05-14-beach/DSC_9999.jpg"]
	if folderFile.DatePathFolder == nil || *folderFile.DatePathFolder != 20230514 {
		t.Errorf("expected folder date 20230514, got %v", folderFile.DatePathFolder)
	}

	plainFile := byPath["vacation/misc/holiday.jpg"]
	if plainFile.DatePathHierarchy != nil || plainFile.DatePathFolder != nil || plainFile.DatePathFilename != nil {
		t.Errorf("expected no path-date signals for holiday.jpg, got h=%v f=%v n=%v",
			plainFile.DatePathHierarchy, plainFile.DatePathFolder, plainFile.DatePathFilename)
	}

	// Rerunning must overwrite with identical results (§4.2 idempotence).
	result2, err := extractor.Extract(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("second Extract failed: %v", err)
	}
	if *result2 != *result {
		t.Errorf("second run result %+v differs from first %+v", result2, result)
	}
}
