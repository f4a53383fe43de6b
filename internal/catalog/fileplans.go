package catalog

import (
	"database/sql"
	"fmt"
)

// InsertFilePlanTx inserts one file_plan row within the Planner's
// enclosing transaction (§5 "one enclosing transaction for the whole
// Planner run").
func InsertFilePlanTx(tx *sql.Tx, fp *FilePlan) error {
	_, err := tx.Exec(`
		INSERT INTO file_plan (
			file_id, folder_plan_id,
			resolved_date, resolved_date_source, target_path, target_filename,
			is_potential_duplicate, duplicate_source_hash, is_sidecar,
			resolution_reason
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		fp.FileID, fp.FolderPlanID,
		fp.ResolvedDate, fp.ResolvedDateSource, fp.TargetPath, fp.TargetFilename,
		boolToInt(fp.IsPotentialDuplicate), fp.DuplicateSourceHash, boolToInt(fp.IsSidecar),
		fp.ResolutionReason,
	)
	if err != nil {
		return fmt.Errorf("insert file plan for file %d: %w", fp.FileID, err)
	}
	return nil
}

// CountFilePlans returns total, potential-duplicate, and sidecar counts for
// a session — for the Planner's completion summary (§7).
func (s *Store) CountFilePlans(sessionID int64) (total, duplicates, sidecars int, err error) {
	err = s.db.QueryRow(`
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE fp.is_potential_duplicate = 1),
			COUNT(*) FILTER (WHERE fp.is_sidecar = 1)
		FROM file_plan fp
		JOIN folder_plan folp ON folp.id = fp.folder_plan_id
		WHERE folp.scan_session_id = ?
	`, sessionID).Scan(&total, &duplicates, &sidecars)
	if err != nil {
		err = fmt.Errorf("count file plans: %w", err)
	}
	return
}
