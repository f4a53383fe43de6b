package meta

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fauli/photocat/internal/catalog"
)

// Priority lists for the date columns (§4.3 "Normalization"): first
// non-empty tag wins.
var (
	dateOriginalPriority  = []string{"EXIF:DateTimeOriginal", "QuickTime:CreateDate", "XMP:DateTimeOriginal"}
	dateDigitizedPriority = []string{"EXIF:DateTimeDigitized", "QuickTime:MediaCreateDate", "XMP:CreateDate"}
	dateModifyPriority    = []string{"EXIF:ModifyDate", "QuickTime:ModifyDate", "XMP:ModifyDate"}

	makePriority        = []string{"EXIF:Make", "QuickTime:Make", "XMP:Make"}
	modelPriority       = []string{"EXIF:Model", "QuickTime:Model", "XMP:Model"}
	lensModelPriority   = []string{"EXIF:LensModel", "XMP:LensModel"}
	widthPriority       = []string{"EXIF:ExifImageWidth", "QuickTime:ImageWidth", "File:ImageWidth"}
	heightPriority      = []string{"EXIF:ExifImageHeight", "QuickTime:ImageHeight", "File:ImageHeight"}
	orientationPriority = []string{"EXIF:Orientation", "XMP:Orientation"}
	durationPriority    = []string{"QuickTime:Duration", "EXIF:Duration"}
	frameRatePriority   = []string{"QuickTime:VideoFrameRate"}
	latitudePriority    = []string{"EXIF:GPSLatitude", "XMP:GPSLatitude"}
	longitudePriority   = []string{"EXIF:GPSLongitude", "XMP:GPSLongitude"}
	altitudePriority    = []string{"EXIF:GPSAltitude", "XMP:GPSAltitude"}
	mimeTypePriority    = []string{"File:MIMEType"}
)

// metadataJSONDenylist excludes binary/thumbnail tags and the path fields
// already captured as columns elsewhere (§4.3 "metadata_json").
var metadataJSONDenylist = map[string]bool{
	"SourceFile":                 true,
	"File:Directory":             true,
	"File:FileName":              true,
	"EXIF:PreviewImage":          true,
	"EXIF:ThumbnailImage":        true,
	"EXIF:ThumbnailOffset":       true,
	"EXIF:ThumbnailLength":       true,
	"MakerNotes:JpgFromRaw":      true,
	"MakerNotes:PreviewImage":    true,
	"ICC_Profile:ProfileCMMType": true,
}

// deriveMetadata builds the catalog row for one tool result, applying the
// priority-list normalization and metadata_json filtering from §4.3.
func deriveMetadata(fileID int64, raw map[string]interface{}, toolVersion string, extractedAtEpoch float64, extractedAtUnix int64) *catalog.FileMetadata {
	m := &catalog.FileMetadata{
		FileID:           fileID,
		ExtractedAtEpoch: extractedAtEpoch,
		ExtractedAtUnix:  extractedAtUnix,
		ExtractorVersion: toolVersion,
	}

	if epoch, ymd, ok := firstDate(raw, dateOriginalPriority); ok {
		m.DateOriginalEpoch = &epoch
		m.DateOriginalYMD = &ymd
	}
	if epoch, ymd, ok := firstDate(raw, dateDigitizedPriority); ok {
		m.DateDigitizedEpoch = &epoch
		m.DateDigitizedYMD = &ymd
	}
	if epoch, ymd, ok := firstDate(raw, dateModifyPriority); ok {
		m.DateModifyEpoch = &epoch
		m.DateModifyYMD = &ymd
	}

	m.Make = firstString(raw, makePriority)
	m.Model = firstString(raw, modelPriority)
	m.LensModel = firstString(raw, lensModelPriority)
	m.Width = firstInt(raw, widthPriority)
	m.Height = firstInt(raw, heightPriority)
	m.Orientation = firstInt(raw, orientationPriority)
	m.DurationSeconds = firstFloat(raw, durationPriority)
	m.VideoFrameRate = firstFloat(raw, frameRatePriority)
	m.GPSLatitude = firstFloat(raw, latitudePriority)
	m.GPSLongitude = firstFloat(raw, longitudePriority)
	m.GPSAltitude = firstFloat(raw, altitudePriority)
	m.MimeType = firstString(raw, mimeTypePriority)

	families := groupZeroPrefixes(raw)
	if families != "" {
		m.MetadataFamilies = &families
	}

	if blob := buildMetadataJSON(raw); blob != "" {
		m.MetadataJSON = &blob
	}

	return m
}

// firstDate returns the first present tag in priority, parsed as an
// exiftool-format date string, as (fractional epoch, YYYYMMDD, ok).
func firstDate(raw map[string]interface{}, priority []string) (float64, int, bool) {
	for _, tag := range priority {
		v, ok := raw[tag]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok || s == "" {
			continue
		}
		t, ok := parseEXIFDate(s)
		if !ok {
			continue
		}
		epoch := float64(t.UnixNano()) / 1e9
		ymd := t.Year()*10000 + int(t.Month())*100 + t.Day()
		return epoch, ymd, true
	}
	return 0, 0, false
}

// parseEXIFDate parses "YYYY:MM:DD HH:MM:SS" optionally suffixed by "Z" or
// "±HH:MM" (§4.3 "Date strings").
func parseEXIFDate(s string) (time.Time, bool) {
	layouts := []string{
		"2006:01:02 15:04:05Z07:00",
		"2006:01:02 15:04:05Z",
		"2006:01:02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func firstString(raw map[string]interface{}, priority []string) *string {
	for _, tag := range priority {
		v, ok := raw[tag]
		if !ok {
			continue
		}
		s, ok := stringify(v)
		if !ok || s == "" {
			continue
		}
		return &s
	}
	return nil
}

func firstInt(raw map[string]interface{}, priority []string) *int {
	for _, tag := range priority {
		v, ok := raw[tag]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			i := int(n)
			return &i
		case string:
			if i, err := strconv.Atoi(n); err == nil {
				return &i
			}
		}
	}
	return nil
}

func firstFloat(raw map[string]interface{}, priority []string) *float64 {
	for _, tag := range priority {
		v, ok := raw[tag]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return &n
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

func stringify(v interface{}) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	default:
		return "", false
	}
}

// groupZeroPrefixes returns the sorted, comma-joined set of GROUP prefixes
// observed in raw's keys (§4.3 "metadata_families"), excluding SourceFile.
func groupZeroPrefixes(raw map[string]interface{}) string {
	seen := map[string]bool{}
	for key := range raw {
		if key == "SourceFile" {
			continue
		}
		idx := strings.IndexByte(key, ':')
		if idx <= 0 {
			continue
		}
		seen[key[:idx]] = true
	}
	if len(seen) == 0 {
		return ""
	}
	families := make([]string, 0, len(seen))
	for g := range seen {
		families = append(families, g)
	}
	sort.Strings(families)
	return strings.Join(families, ",")
}

// buildMetadataJSON serializes every non-binary, non-denylisted field as a
// shallow GROUP:TAG object (§4.3 "metadata_json").
func buildMetadataJSON(raw map[string]interface{}) string {
	filtered := make(map[string]interface{}, len(raw))
	for key, v := range raw {
		if metadataJSONDenylist[key] {
			continue
		}
		if s, ok := v.(string); ok {
			if strings.HasPrefix(s, "base64:") || strings.HasPrefix(s, "(Binary data") {
				continue
			}
		}
		filtered[key] = v
	}
	if len(filtered) == 0 {
		return ""
	}
	blob, err := json.Marshal(filtered)
	if err != nil {
		return ""
	}
	return string(blob)
}
