// Package pathdate computes independent path-derived date signals for
// catalog files: hierarchy, folder, and filename strategies, each stored
// with its literal source substring.
package pathdate

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fauli/photocat/internal/catalog"
	"github.com/fauli/photocat/internal/util"
)

// boundedDate matches Y{4}[sep]?M{2}[sep]?D{2}; boundary acceptability
// (string start/end or a '-'/'_' separator) is checked separately by
// matchBoundedDate, since RE2 has no lookaround.
var boundedDate = regexp.MustCompile(`(\d{4})([-_]?)(\d{2})([-_]?)(\d{2})`)

// Extractor computes the three path-date signals for every file in a
// session and writes them back to the catalog (§4.2).
type Extractor struct {
	store *catalog.Store
}

// New creates a PathDateExtractor.
func New(store *catalog.Store) *Extractor {
	return &Extractor{store: store}
}

// Result summarizes one Extract run.
type Result struct {
	FilesProcessed int
	WithHierarchy  int
	WithFolder     int
	WithFilename   int
}

// Extract computes path-date signals for every file in sessionID.
// Idempotent: rerunning overwrites with identical results on identical
// input (§4.2 "Side effects").
func (e *Extractor) Extract(ctx context.Context, sessionID int64) (*Result, error) {
	files, err := e.store.FilesInSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load files for session %d: %w", sessionID, err)
	}

	result := &Result{}

	for _, f := range files {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		if ymd, source, ok := findHierarchy(f.DirectoryPath); ok {
			f.DatePathHierarchy = &ymd
			f.DatePathHierarchySource = &source
			result.WithHierarchy++
		}
		if ymd, source, ok := findFolder(f.DirectoryPath); ok {
			f.DatePathFolder = &ymd
			f.DatePathFolderSource = &source
			result.WithFolder++
		}
		if ymd, source, ok := findFilename(f.FilenameFull); ok {
			f.DatePathFilename = &ymd
			f.DatePathFilenameSource = &source
			result.WithFilename++
		}

		if err := e.store.UpdatePathDates(f); err != nil {
			return result, fmt.Errorf("write path dates for file %d: %w", f.ID, err)
		}
		result.FilesProcessed++
	}

	util.SuccessLog("Path-date extraction complete: %d files (%d hierarchy, %d folder, %d filename)",
		result.FilesProcessed, result.WithHierarchy, result.WithFolder, result.WithFilename)

	return result, nil
}

// findHierarchy implements Strategy 1: consecutive yyyy/mm/dd path
// components, deepest match wins.
func findHierarchy(directoryPath string) (ymd int, source string, ok bool) {
	if directoryPath == "" {
		return 0, "", false
	}
	segments := strings.Split(filepath.ToSlash(directoryPath), "/")

	for i := len(segments) - 3; i >= 0; i-- {
		y, m, d := segments[i], segments[i+1], segments[i+2]
		if len(y) != 4 || len(m) != 2 || len(d) != 2 {
			continue
		}
		if !allDigits(y) || !allDigits(m) || !allDigits(d) {
			continue
		}
		value, valid := validCalendarDate(y, m, d)
		if !valid {
			continue
		}
		return value, y + "/" + m + "/" + d, true
	}
	return 0, "", false
}

// findFolder implements Strategy 2: each directory name tested for a
// boundary-anchored date substring, deepest match wins. The stored source
// is the full directory name, not the matched date substring, since the
// Planner reuses it as an annotation seed (§4.4 "Target path construction").
func findFolder(directoryPath string) (ymd int, source string, ok bool) {
	if directoryPath == "" {
		return 0, "", false
	}
	segments := strings.Split(filepath.ToSlash(directoryPath), "/")

	for i := len(segments) - 1; i >= 0; i-- {
		if value, _, found := matchBoundedDate(segments[i]); found {
			return value, segments[i], true
		}
	}
	return 0, "", false
}

// findFilename implements Strategy 3: the filename tested with the same
// bounded pattern, leftmost match wins. The stored source is the full
// filename, not the matched date substring, for the same reason as
// findFolder above.
func findFilename(filename string) (ymd int, source string, ok bool) {
	value, _, found := matchBoundedDate(filename)
	if !found {
		return 0, "", false
	}
	return value, filename, true
}

// matchBoundedDate finds the leftmost boundary-anchored Y[-_]?M[-_]?D match
// in s — the match must begin and end at a string boundary or a '-'/'_'
// separator, which rejects "v20230514" and "photo20230514.jpg" — and
// validates it as a real calendar date.
func matchBoundedDate(s string) (ymd int, matched string, ok bool) {
	for _, loc := range boundedDate.FindAllStringSubmatchIndex(s, -1) {
		start, end := loc[0], loc[1]
		if !isDateBoundary(s, start, true) || !isDateBoundary(s, end, false) {
			continue
		}

		groups := extractGroups(s, loc)
		y, m, d := groups[0], groups[2], groups[4]

		value, valid := validCalendarDate(y, m, d)
		if !valid {
			continue
		}
		return value, s[start:end], true
	}
	return 0, "", false
}

// isDateBoundary reports whether position pos in s is an acceptable
// boundary for a bounded-date match: string start/end, or a '-'/'_'
// separator on the outside of the match.
func isDateBoundary(s string, pos int, before bool) bool {
	if before {
		if pos == 0 {
			return true
		}
		c := s[pos-1]
		return c == '-' || c == '_'
	}
	if pos == len(s) {
		return true
	}
	c := s[pos]
	return c == '-' || c == '_'
}

// extractGroups returns the five capture groups (year, sep, month, sep, day)
// of a boundedDate match.
func extractGroups(s string, loc []int) [5]string {
	var out [5]string
	for i := 0; i < 5; i++ {
		start, end := loc[2+2*i], loc[3+2*i]
		if start >= 0 && end >= 0 {
			out[i] = s[start:end]
		}
	}
	return out
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// validCalendarDate parses y/m/d strings, validates the range and that the
// tuple forms a real calendar date (including leap years), and returns the
// YYYYMMDD integer.
func validCalendarDate(y, m, d string) (int, bool) {
	yi, err := strconv.Atoi(y)
	if err != nil || yi < 1900 || yi > 2099 {
		return 0, false
	}
	mi, err := strconv.Atoi(m)
	if err != nil || mi < 1 || mi > 12 {
		return 0, false
	}
	di, err := strconv.Atoi(d)
	if err != nil || di < 1 || di > 31 {
		return 0, false
	}

	t := time.Date(yi, time.Month(mi), di, 0, 0, 0, 0, time.UTC)
	if t.Year() != yi || int(t.Month()) != mi || t.Day() != di {
		return 0, false
	}

	return yi*10000 + mi*100 + di, true
}
