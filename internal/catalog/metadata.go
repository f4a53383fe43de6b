package catalog

import (
	"database/sql"
	"fmt"
)

// InsertFileMetadataTx writes exactly one file_metadata row, as success,
// skip, or error — never raising past a per-file outcome (§4.3 contract).
func InsertFileMetadataTx(tx *sql.Tx, m *FileMetadata) error {
	_, err := tx.Exec(`
		INSERT INTO file_metadata (
			file_id,
			date_original_epoch, date_original_ymd,
			date_digitized_epoch, date_digitized_ymd,
			date_modify_epoch, date_modify_ymd,
			make, model, lens_model, width, height, orientation,
			duration_seconds, video_frame_rate,
			gps_latitude, gps_longitude, gps_altitude,
			mime_type, metadata_families, metadata_json,
			extracted_at_epoch, extracted_at_unix, extractor_version,
			extraction_error, skip_reason
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (file_id) DO UPDATE SET
			date_original_epoch = excluded.date_original_epoch,
			date_original_ymd = excluded.date_original_ymd,
			date_digitized_epoch = excluded.date_digitized_epoch,
			date_digitized_ymd = excluded.date_digitized_ymd,
			date_modify_epoch = excluded.date_modify_epoch,
			date_modify_ymd = excluded.date_modify_ymd,
			make = excluded.make,
			model = excluded.model,
			lens_model = excluded.lens_model,
			width = excluded.width,
			height = excluded.height,
			orientation = excluded.orientation,
			duration_seconds = excluded.duration_seconds,
			video_frame_rate = excluded.video_frame_rate,
			gps_latitude = excluded.gps_latitude,
			gps_longitude = excluded.gps_longitude,
			gps_altitude = excluded.gps_altitude,
			mime_type = excluded.mime_type,
			metadata_families = excluded.metadata_families,
			metadata_json = excluded.metadata_json,
			extracted_at_epoch = excluded.extracted_at_epoch,
			extracted_at_unix = excluded.extracted_at_unix,
			extractor_version = excluded.extractor_version,
			extraction_error = excluded.extraction_error,
			skip_reason = excluded.skip_reason
	`,
		m.FileID,
		m.DateOriginalEpoch, m.DateOriginalYMD,
		m.DateDigitizedEpoch, m.DateDigitizedYMD,
		m.DateModifyEpoch, m.DateModifyYMD,
		m.Make, m.Model, m.LensModel, m.Width, m.Height, m.Orientation,
		m.DurationSeconds, m.VideoFrameRate,
		m.GPSLatitude, m.GPSLongitude, m.GPSAltitude,
		m.MimeType, m.MetadataFamilies, m.MetadataJSON,
		m.ExtractedAtEpoch, m.ExtractedAtUnix, m.ExtractorVersion,
		m.ExtractionError, m.SkipReason,
	)
	if err != nil {
		return fmt.Errorf("insert file metadata for file %d: %w", m.FileID, err)
	}
	return nil
}

// GetFileMetadata returns the metadata row for a file, or nil if absent.
func (s *Store) GetFileMetadata(fileID int64) (*FileMetadata, error) {
	m := &FileMetadata{FileID: fileID}
	err := s.db.QueryRow(`
		SELECT date_original_epoch, date_original_ymd,
		       date_digitized_epoch, date_digitized_ymd,
		       date_modify_epoch, date_modify_ymd,
		       make, model, lens_model, width, height, orientation,
		       duration_seconds, video_frame_rate,
		       gps_latitude, gps_longitude, gps_altitude,
		       mime_type, metadata_families, metadata_json,
		       extracted_at_epoch, extracted_at_unix, extractor_version,
		       extraction_error, skip_reason
		FROM file_metadata WHERE file_id = ?
	`, fileID).Scan(
		&m.DateOriginalEpoch, &m.DateOriginalYMD,
		&m.DateDigitizedEpoch, &m.DateDigitizedYMD,
		&m.DateModifyEpoch, &m.DateModifyYMD,
		&m.Make, &m.Model, &m.LensModel, &m.Width, &m.Height, &m.Orientation,
		&m.DurationSeconds, &m.VideoFrameRate,
		&m.GPSLatitude, &m.GPSLongitude, &m.GPSAltitude,
		&m.MimeType, &m.MetadataFamilies, &m.MetadataJSON,
		&m.ExtractedAtEpoch, &m.ExtractedAtUnix, &m.ExtractorVersion,
		&m.ExtractionError, &m.SkipReason,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file metadata %d: %w", fileID, err)
	}
	return m, nil
}

// AllMetadataDateOriginal returns, for every file in a session that has a
// file_metadata row with date_original set, the resolved YYYYMMDD value —
// used by the Planner's per-file date priority step 3 (§4.4).
func (s *Store) AllMetadataDateOriginal(sessionID int64) (map[int64]int, error) {
	rows, err := s.db.Query(`
		SELECT fm.file_id, fm.date_original_ymd
		FROM file_metadata fm
		JOIN files f ON f.id = fm.file_id
		WHERE f.scan_session_id = ? AND fm.date_original_ymd IS NOT NULL
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query date_original map: %w", err)
	}
	defer rows.Close()

	result := make(map[int64]int)
	for rows.Next() {
		var fileID int64
		var ymd int
		if err := rows.Scan(&fileID, &ymd); err != nil {
			return nil, fmt.Errorf("scan date_original row: %w", err)
		}
		result[fileID] = ymd
	}
	return result, rows.Err()
}

// CountMetadataOutcomes returns counts of success/skipped/failed rows for a
// session, for the MetadataExtractor's completion summary (§7).
func (s *Store) CountMetadataOutcomes(sessionID int64) (success, skipped, failed int, err error) {
	err = s.db.QueryRow(`
		SELECT
			COUNT(*) FILTER (WHERE fm.extraction_error IS NULL AND fm.skip_reason IS NULL),
			COUNT(*) FILTER (WHERE fm.skip_reason IS NOT NULL),
			COUNT(*) FILTER (WHERE fm.extraction_error IS NOT NULL)
		FROM file_metadata fm
		JOIN files f ON f.id = fm.file_id
		WHERE f.scan_session_id = ?
	`, sessionID).Scan(&success, &skipped, &failed)
	if err != nil {
		err = fmt.Errorf("count metadata outcomes: %w", err)
	}
	return
}
