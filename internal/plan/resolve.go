package plan

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/fauli/photocat/internal/catalog"
)

// fileDateInfo is one File's own resolved date signal (§4.4 "Per-file
// date"), independent of its folder's resolution.
type fileDateInfo struct {
	date   *int
	source string
}

// resolveFileDate implements the per-file date priority list: path_folder,
// path_filename, exif(date_original), fs_modified. Hierarchy is
// deliberately excluded (§9 Open Question 1).
func resolveFileDate(f *catalog.File, dateOriginal *int) fileDateInfo {
	if f.DatePathFolder != nil {
		return fileDateInfo{f.DatePathFolder, "path_folder"}
	}
	if f.DatePathFilename != nil {
		return fileDateInfo{f.DatePathFilename, "path_filename"}
	}
	if dateOriginal != nil {
		return fileDateInfo{dateOriginal, "exif"}
	}
	t := time.Unix(f.MtimeUnix, 0).UTC()
	ymd := t.Year()*10000 + int(t.Month())*100 + t.Day()
	return fileDateInfo{&ymd, "fs_modified"}
}

// folderStats is the statistical summary over one folder's dated images
// (§4.4 "Folder resolution" step 3).
type folderStats struct {
	totalCount     int
	imageCount     int
	withDateCount  int
	prevalentDate  int
	prevalentCount int
	uniqueCount    int
	minDate        int
	maxDate        int
}

// computeFolderStats gathers per-folder statistics over files whose
// extension is an image extension and whose file_resolved_date is set.
// Ties in prevalence are broken by the lowest date, for determinism
// (§8 "Planner determinism").
func computeFolderStats(files []*catalog.File, fileDates map[int64]fileDateInfo, imageExt map[string]bool) folderStats {
	var stats folderStats
	stats.totalCount = len(files)

	counts := make(map[int]int)
	for _, f := range files {
		ext := ""
		if f.Extension != nil {
			ext = *f.Extension
		}
		if !imageExt[ext] {
			continue
		}
		stats.imageCount++

		fd := fileDates[f.ID]
		if fd.date == nil {
			continue
		}
		stats.withDateCount++
		d := *fd.date
		counts[d]++
		if stats.minDate == 0 || d < stats.minDate {
			stats.minDate = d
		}
		if stats.maxDate == 0 || d > stats.maxDate {
			stats.maxDate = d
		}
	}

	stats.uniqueCount = len(counts)
	for date, count := range counts {
		if count > stats.prevalentCount || (count == stats.prevalentCount && date < stats.prevalentDate) {
			stats.prevalentCount = count
			stats.prevalentDate = date
		}
	}

	return stats
}

// monthSpan computes the calendar-month span between two YYYYMMDD dates
// (§4.4/GLOSSARY "Calendar-month span").
func monthSpan(minDate, maxDate int) int {
	minY, minM := minDate/10000, (minDate/100)%100
	maxY, maxM := maxDate/10000, (maxDate/100)%100
	return (maxY-minY)*12 + (maxM - minM)
}

// resolveFolderPlan computes one folder's FolderPlan row: own-resolution
// by path date or statistical consensus, then inheritance from an
// already-resolved parent (§4.4 "Folder resolution", "Inheritance").
func (p *Planner) resolveFolderPlan(sessionID int64, folder string, files []*catalog.File, fileDates map[int64]fileDateInfo, resolved map[string]*catalog.FolderPlan) *catalog.FolderPlan {
	fp := &catalog.FolderPlan{
		ScanSessionID:          sessionID,
		SourceFolder:           folder,
		MinCoverageThreshold:   p.cfg.MinCoverage,
		MinPrevalenceThreshold: p.cfg.MinPrevalence,
		MaxSpanThreshold:       p.cfg.MaxSpanMonths,
	}

	var annotationSeed string
	ownResolved := false

	for _, f := range files {
		if f.DatePathFolder == nil {
			continue
		}
		d := *f.DatePathFolder
		src := "path_folder"
		fp.ResolvedDate = &d
		fp.ResolvedDateSource = &src
		if f.DatePathFolderSource != nil {
			annotationSeed = *f.DatePathFolderSource
		}
		ownResolved = true
		break
	}

	stats := computeFolderStats(files, fileDates, p.imageExtSet)
	fp.TotalFileCount = stats.totalCount
	fp.ImageFileCount = stats.imageCount
	fp.ImagesWithDateCount = stats.withDateCount
	if stats.imageCount > 0 {
		fp.CoveragePercent = float64(stats.withDateCount) / float64(stats.imageCount)
	}
	if stats.withDateCount > 0 {
		pd := stats.prevalentDate
		fp.PrevalentDate = &pd
		fp.PrevalentCount = stats.prevalentCount
		fp.PrevalentPercent = float64(stats.prevalentCount) / float64(stats.withDateCount)
		fp.UniqueDateCount = stats.uniqueCount
		mn, mx := stats.minDate, stats.maxDate
		fp.MinDate = &mn
		fp.MaxDate = &mx
		span := monthSpan(mn, mx)
		fp.DateSpanMonths = &span
	}

	if !ownResolved {
		switch {
		case stats.imageCount == 0:
			b := "non_media"
			fp.Bucket = &b
		case fp.CoveragePercent < p.cfg.MinCoverage:
			b, src := "mixed_dates", "low_coverage"
			fp.Bucket, fp.ResolvedDateSource = &b, &src
		case fp.DateSpanMonths != nil && *fp.DateSpanMonths >= p.cfg.MaxSpanMonths:
			b, src := "mixed_dates", "mixed_dates_wide_spread"
			fp.Bucket, fp.ResolvedDateSource = &b, &src
		case fp.PrevalentPercent >= p.cfg.MinPrevalence:
			d, src := *fp.PrevalentDate, "metadata_prevalent"
			fp.ResolvedDate, fp.ResolvedDateSource = &d, &src
			ownResolved = true
		case fp.UniqueDateCount == 1:
			d, src := *fp.PrevalentDate, "metadata_unanimous"
			fp.ResolvedDate, fp.ResolvedDateSource = &d, &src
			ownResolved = true
		default:
			b, src := "mixed_dates", "no_consensus"
			fp.Bucket, fp.ResolvedDateSource = &b, &src
		}
	}

	isSubfolder := false
	var parentFP *catalog.FolderPlan
	if parentPath, ok := parentOf(folder); ok {
		parentFP = resolved[parentPath]
	}
	sourceIsPathFolder := fp.ResolvedDateSource != nil && *fp.ResolvedDateSource == "path_folder"
	if !sourceIsPathFolder && parentFP != nil && parentFP.ResolvedDate != nil {
		d := *parentFP.ResolvedDate
		src := "inherited"
		fp.ResolvedDate = &d
		fp.ResolvedDateSource = &src
		fp.Bucket = nil
		fp.InheritedFromFolderID = &parentFP.ID
		isSubfolder = true
	}
	fp.IsSubfolder = isSubfolder

	switch {
	case fp.Bucket != nil:
		target := filepath.Join("_"+*fp.Bucket, folder)
		fp.TargetFolder = &target
	case isSubfolder:
		rel, err := filepath.Rel(parentFP.SourceFolder, folder)
		if err != nil {
			rel = filepath.Base(folder)
		}
		target := filepath.Join(*parentFP.TargetFolder, rel)
		fp.TargetFolder = &target
	case fp.ResolvedDate != nil:
		seed := annotationSeed
		if seed == "" {
			seed = filepath.Base(folder)
		}
		target := buildDatedTargetFolder(*fp.ResolvedDate, seed, p.cfg.MaxAnnotationLength)
		fp.TargetFolder = &target
	}

	return fp
}

// parentOf returns folder's parent folder path, or ("", false) when folder
// is the session root ("").
func parentOf(folder string) (string, bool) {
	if folder == "" {
		return "", false
	}
	parent := filepath.Dir(folder)
	if parent == "." {
		parent = ""
	}
	return parent, true
}

// folderDepth counts folder's path components; the root ("") has depth 0.
func folderDepth(folder string) int {
	if folder == "" {
		return 0
	}
	return strings.Count(filepath.ToSlash(folder), "/") + 1
}
