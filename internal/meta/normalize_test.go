package meta

import (
	"strings"
	"testing"
)

func TestDeriveMetadata_DatePriority(t *testing.T) {
	raw := map[string]interface{}{
		"SourceFile":          "/photos/a.jpg",
		"QuickTime:CreateDate": "2023:05:14 10:00:00",
		"EXIF:DateTimeOriginal": "2023:05:14 09:30:00",
	}

	m := deriveMetadata(1, raw, "12.70", 1000, 1000)
	if m.DateOriginalYMD == nil || *m.DateOriginalYMD != 20230514 {
		t.Fatalf("expected DateOriginalYMD 20230514, got %v", m.DateOriginalYMD)
	}
}

func TestDeriveMetadata_FallsBackThroughPriorityList(t *testing.T) {
	raw := map[string]interface{}{
		"SourceFile":           "/videos/a.mov",
		"QuickTime:CreateDate": "2022:01:02 03:04:05",
	}

	m := deriveMetadata(1, raw, "12.70", 1000, 1000)
	if m.DateOriginalYMD == nil || *m.DateOriginalYMD != 20220102 {
		t.Fatalf("expected fallback to QuickTime:CreateDate, got %v", m.DateOriginalYMD)
	}
}

func TestDeriveMetadata_TimezoneSuffix(t *testing.T) {
	raw := map[string]interface{}{
		"EXIF:DateTimeOriginal": "2023:05:14 09:30:00+02:00",
	}

	m := deriveMetadata(1, raw, "12.70", 1000, 1000)
	if m.DateOriginalYMD == nil || *m.DateOriginalYMD != 20230514 {
		t.Fatalf("expected date parsed with timezone suffix, got %v", m.DateOriginalYMD)
	}
}

func TestDeriveMetadata_NoDateLeavesNil(t *testing.T) {
	raw := map[string]interface{}{
		"File:MIMEType": "image/jpeg",
	}

	m := deriveMetadata(1, raw, "12.70", 1000, 1000)
	if m.DateOriginalYMD != nil {
		t.Errorf("expected nil DateOriginalYMD, got %v", *m.DateOriginalYMD)
	}
	if m.MimeType == nil || *m.MimeType != "image/jpeg" {
		t.Errorf("expected MimeType image/jpeg, got %v", m.MimeType)
	}
}

func TestGroupZeroPrefixes(t *testing.T) {
	raw := map[string]interface{}{
		"SourceFile":            "/a.jpg",
		"EXIF:Make":             "Canon",
		"EXIF:Model":            "EOS R5",
		"QuickTime:CreateDate":  "2023:05:14 09:30:00",
		"File:MIMEType":         "image/jpeg",
		"malformed-key-no-colon": "x",
	}

	families := groupZeroPrefixes(raw)
	if families != "EXIF,File,QuickTime" {
		t.Errorf("groupZeroPrefixes = %q, want %q", families, "EXIF,File,QuickTime")
	}
}

func TestBuildMetadataJSON_ExcludesDenylistAndBinary(t *testing.T) {
	raw := map[string]interface{}{
		"SourceFile":          "/a.jpg",
		"File:Directory":      "/photos",
		"File:FileName":       "a.jpg",
		"EXIF:ThumbnailImage": "base64:AAAA",
		"EXIF:Make":           "Canon",
		"MakerNotes:Foo":      "(Binary data 512 bytes)",
	}

	blob := buildMetadataJSON(raw)
	if blob == "" {
		t.Fatal("expected non-empty metadata_json")
	}
	for _, excluded := range []string{"SourceFile", "File:Directory", "File:FileName", "ThumbnailImage", "Binary data"} {
		if strings.Contains(blob, excluded) {
			t.Errorf("metadata_json contains excluded field %q: %s", excluded, blob)
		}
	}
	if !strings.Contains(blob, "Canon") {
		t.Errorf("expected metadata_json to retain EXIF:Make, got %s", blob)
	}
}
