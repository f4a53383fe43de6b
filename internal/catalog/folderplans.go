package catalog

import (
	"database/sql"
	"fmt"
)

// ClearPlansTx deletes every folder_plan and file_plan row for a session —
// the Planner's "always begins by deleting prior plan rows" step (§4.4).
// file_plan cascades from folder_plan, so one delete suffices.
func ClearPlansTx(tx *sql.Tx, sessionID int64) error {
	_, err := tx.Exec(`DELETE FROM folder_plan WHERE scan_session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("clear folder plans: %w", err)
	}
	return nil
}

// InsertFolderPlanTx inserts one folder_plan row and returns its assigned ID.
func InsertFolderPlanTx(tx *sql.Tx, fp *FolderPlan) (int64, error) {
	result, err := tx.Exec(`
		INSERT INTO folder_plan (
			scan_session_id, source_folder,
			resolved_date, resolved_date_source, target_folder, bucket,
			total_file_count, image_file_count, images_with_date_count, coverage_percent,
			prevalent_date, prevalent_count, prevalent_percent, unique_date_count,
			min_date, max_date, date_span_months,
			inherited_from_folder_id, is_subfolder,
			min_coverage_threshold, min_prevalence_threshold, max_span_threshold
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		fp.ScanSessionID, fp.SourceFolder,
		fp.ResolvedDate, fp.ResolvedDateSource, fp.TargetFolder, fp.Bucket,
		fp.TotalFileCount, fp.ImageFileCount, fp.ImagesWithDateCount, fp.CoveragePercent,
		fp.PrevalentDate, fp.PrevalentCount, fp.PrevalentPercent, fp.UniqueDateCount,
		fp.MinDate, fp.MaxDate, fp.DateSpanMonths,
		fp.InheritedFromFolderID, boolToInt(fp.IsSubfolder),
		fp.MinCoverageThreshold, fp.MinPrevalenceThreshold, fp.MaxSpanThreshold,
	)
	if err != nil {
		return 0, fmt.Errorf("insert folder plan %s: %w", fp.SourceFolder, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("folder plan id: %w", err)
	}
	fp.ID = id
	return id, nil
}

// GetFolderPlanBySourceFolder looks up a folder_plan row already written in
// this Planner run, by exact source folder path — used to find a parent
// folder's resolution during inheritance.
func (s *Store) GetFolderPlanBySourceFolder(sessionID int64, sourceFolder string) (*FolderPlan, error) {
	fp := &FolderPlan{}
	err := s.db.QueryRow(`
		SELECT id, scan_session_id, source_folder,
		       resolved_date, resolved_date_source, target_folder, bucket,
		       total_file_count, image_file_count, images_with_date_count, coverage_percent,
		       prevalent_date, prevalent_count, prevalent_percent, unique_date_count,
		       min_date, max_date, date_span_months,
		       inherited_from_folder_id, is_subfolder,
		       min_coverage_threshold, min_prevalence_threshold, max_span_threshold
		FROM folder_plan WHERE scan_session_id = ? AND source_folder = ?
	`, sessionID, sourceFolder).Scan(
		&fp.ID, &fp.ScanSessionID, &fp.SourceFolder,
		&fp.ResolvedDate, &fp.ResolvedDateSource, &fp.TargetFolder, &fp.Bucket,
		&fp.TotalFileCount, &fp.ImageFileCount, &fp.ImagesWithDateCount, &fp.CoveragePercent,
		&fp.PrevalentDate, &fp.PrevalentCount, &fp.PrevalentPercent, &fp.UniqueDateCount,
		&fp.MinDate, &fp.MaxDate, &fp.DateSpanMonths,
		&fp.InheritedFromFolderID, &fp.IsSubfolder,
		&fp.MinCoverageThreshold, &fp.MinPrevalenceThreshold, &fp.MaxSpanThreshold,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get folder plan %s: %w", sourceFolder, err)
	}
	return fp, nil
}

// CountFolderPlansByBucket returns, per bucket (empty string = no bucket,
// i.e. dated), the number of folders — for the Planner's completion
// summary (§7).
func (s *Store) CountFolderPlansByBucket(sessionID int64) (map[string]int, error) {
	rows, err := s.db.Query(`
		SELECT COALESCE(bucket, ''), COUNT(*)
		FROM folder_plan WHERE scan_session_id = ?
		GROUP BY COALESCE(bucket, '')
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("count folder plans by bucket: %w", err)
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var bucket string
		var count int
		if err := rows.Scan(&bucket, &count); err != nil {
			return nil, fmt.Errorf("scan bucket count: %w", err)
		}
		result[bucket] = count
	}
	return result, rows.Err()
}

// CountFolderPlansBySource returns, per resolved_date_source, the number of
// folders — for the Planner's completion summary (§7).
func (s *Store) CountFolderPlansBySource(sessionID int64) (map[string]int, error) {
	rows, err := s.db.Query(`
		SELECT COALESCE(resolved_date_source, ''), COUNT(*)
		FROM folder_plan WHERE scan_session_id = ?
		GROUP BY COALESCE(resolved_date_source, '')
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("count folder plans by source: %w", err)
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("scan source count: %w", err)
		}
		result[source] = count
	}
	return result, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
