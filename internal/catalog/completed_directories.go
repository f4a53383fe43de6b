package catalog

import (
	"database/sql"
	"fmt"
)

// CompletedDirectorySet returns the set of directory paths already
// committed for a session, for the Scanner's resume walk (§4.1 "Resume").
func (s *Store) CompletedDirectorySet(sessionID int64) (map[string]bool, error) {
	rows, err := s.db.Query(`
		SELECT directory_path FROM completed_directories WHERE scan_session_id = ?
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query completed directories: %w", err)
	}
	defer rows.Close()

	set := make(map[string]bool)
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("scan completed directory: %w", err)
		}
		set[path] = true
	}
	return set, rows.Err()
}

// InsertCompletedDirectoryTx records a directory's commit within the same
// transaction that inserted its files, per §4.1's one-transaction-per-directory
// commit discipline.
func InsertCompletedDirectoryTx(tx *sql.Tx, sessionID int64, directoryPath string, fileCount int, completedAtEpoch float64) error {
	_, err := tx.Exec(`
		INSERT INTO completed_directories (scan_session_id, directory_path, file_count, completed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (scan_session_id, directory_path) DO UPDATE SET
			file_count = excluded.file_count,
			completed_at = excluded.completed_at
	`, sessionID, directoryPath, fileCount, completedAtEpoch)
	if err != nil {
		return fmt.Errorf("insert completed directory: %w", err)
	}
	return nil
}

// DeleteDirectoryFilesTx removes any file rows already committed for a
// directory that is about to be rescanned — used on resume when a
// directory has no completed_directories row (§4.1: "any partial rows in
// a directory not present in completed_directories are deleted before
// that directory is rescanned").
func DeleteDirectoryFilesTx(tx *sql.Tx, sessionID int64, directoryPath string) error {
	_, err := tx.Exec(`
		DELETE FROM files WHERE scan_session_id = ? AND directory_path = ?
	`, sessionID, directoryPath)
	if err != nil {
		return fmt.Errorf("delete partial directory files: %w", err)
	}
	return nil
}
