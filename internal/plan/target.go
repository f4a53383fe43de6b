package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fauli/photocat/internal/catalog"
	"github.com/fauli/photocat/internal/util"
	"github.com/rivo/uniseg"
)

// buildDatedTargetFolder constructs a resolved folder's target path:
// Y/Y_M/YYYYMMDD, or Y/Y_M/YYYYMMDD-<annotation> when seed yields one
// (§4.4 "Target path construction").
func buildDatedTargetFolder(resolvedDate int, seed string, maxAnnotationLen int) string {
	dateStr := fmt.Sprintf("%08d", resolvedDate)
	y, m := dateStr[0:4], dateStr[4:6]

	leaf := dateStr
	if annotation := extractAnnotation(seed, dateStr, maxAnnotationLen); annotation != "" {
		leaf = dateStr + "-" + annotation
	}

	return filepath.Join(y, y+"_"+m, leaf)
}

// extractAnnotation strips a leading or embedded date token matching
// dateStr in any of YYYYMMDD, YYYY_MM_DD, YYYY-MM-DD form (plus one
// adjacent separator) from seed, then truncates the remainder to
// maxLen grapheme clusters. Returns "" if nothing remains or
// the remainder is the date itself.
func extractAnnotation(seed, dateStr string, maxLen int) string {
	y, m, d := dateStr[0:4], dateStr[4:6], dateStr[6:8]
	candidates := []string{dateStr, y + "_" + m + "_" + d, y + "-" + m + "-" + d}

	remainder := seed
	for _, token := range candidates {
		idx := strings.Index(remainder, token)
		if idx < 0 {
			continue
		}
		start, end := idx, idx+len(token)
		if start > 0 && isDateSeparator(remainder[start-1]) {
			start--
		}
		if end < len(remainder) && isDateSeparator(remainder[end]) {
			end++
		}
		remainder = remainder[:start] + remainder[end:]
		break
	}

	remainder = strings.Trim(remainder, "-_ .")
	if remainder == "" || remainder == dateStr {
		return ""
	}
	return truncateGraphemes(remainder, maxLen)
}

func isDateSeparator(b byte) bool {
	return b == '-' || b == '_'
}

// truncateGraphemes truncates s to at most maxLen grapheme clusters,
// never splitting a multi-byte rune or a combined character (§9 Open
// Question 4).
func truncateGraphemes(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	gr := uniseg.NewGraphemes(s)
	var b strings.Builder
	for count := 0; count < maxLen && gr.Next(); count++ {
		b.WriteString(gr.Str())
	}
	return b.String()
}

// buildFilePlan assigns one file's target path within its resolved folder,
// renaming it on a filename collision and flagging sidecars (§4.4
// "Duplicate handling", "Sidecar detection").
func (p *Planner) buildFilePlan(f *catalog.File, fp *catalog.FolderPlan, fd fileDateInfo, siblings []*catalog.File, usedNames map[string]map[string]bool) *catalog.FilePlan {
	targetFolder := ""
	if fp.TargetFolder != nil {
		targetFolder = *fp.TargetFolder
	}

	used := usedNames[targetFolder]
	if used == nil {
		used = make(map[string]bool)
		usedNames[targetFolder] = used
	}

	targetFilename := f.FilenameFull
	isDuplicate := false
	var dupHash *string

	// Collision keys are normalized per CaseSensitiveTargets so a
	// case-insensitive destination (as probed by the plan command's
	// DetectFilesystemCaseSensitivity call) still catches "IMG_1.JPG" vs
	// "img_1.jpg" colliding on disk even though they differ byte-for-byte.
	key := util.NormalizePath(targetFilename, p.cfg.CaseSensitiveTargets)
	if used[key] {
		isDuplicate = true
		sum := sha256.Sum256([]byte(f.DirectoryPath))
		hash6 := hex.EncodeToString(sum[:])[:6]
		dupHash = &hash6
		targetFilename = fmt.Sprintf("pot_dupe_%s_%s", hash6, f.FilenameFull)
		key = util.NormalizePath(targetFilename, p.cfg.CaseSensitiveTargets)
		p.events.LogDuplicate(f.ID, f.SourcePath, hash6)
	}
	used[key] = true

	sidecar := p.isSidecar(f, siblings)

	reason := fmt.Sprintf("folder dated via %s, file dated via %s", sourceOf(fp.ResolvedDateSource), fd.source)
	if isDuplicate {
		reason += ", renamed for name collision"
	}
	if sidecar {
		reason += ", sidecar"
	}

	return &catalog.FilePlan{
		FileID:               f.ID,
		FolderPlanID:         fp.ID,
		ResolvedDate:         fd.date,
		ResolvedDateSource:   &fd.source,
		TargetPath:           filepath.Join(targetFolder, targetFilename),
		TargetFilename:       targetFilename,
		IsPotentialDuplicate: isDuplicate,
		DuplicateSourceHash:  dupHash,
		IsSidecar:            sidecar,
		ResolutionReason:     reason,
	}
}

// isSidecar reports whether f is a sidecar of an image file in the same
// folder: its own extension is in the sidecar set, and some sibling shares
// its filename_base with an image extension.
func (p *Planner) isSidecar(f *catalog.File, siblings []*catalog.File) bool {
	if f.Extension == nil || !p.sidecarExtSet[*f.Extension] {
		return false
	}
	for _, s := range siblings {
		if s.ID == f.ID {
			continue
		}
		if s.Extension != nil && p.imageExtSet[*s.Extension] && s.FilenameBase == f.FilenameBase {
			return true
		}
	}
	return false
}

func sourceOf(source *string) string {
	if source == nil {
		return "none"
	}
	return *source
}
