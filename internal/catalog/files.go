package catalog

import (
	"database/sql"
	"fmt"
)

// InsertFilesTx inserts every File belonging to one directory inside the
// caller's transaction, matching §4.1's "insert all file rows belonging to
// that directory" commit step.
func InsertFilesTx(tx *sql.Tx, files []*File) error {
	if len(files) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(`
		INSERT INTO files (
			scan_session_id, directory_path, source_path, filename_full, filename_base,
			extension, size_bytes,
			mtime_epoch, mtime_unix, ctime_epoch, ctime_unix,
			birthtime_epoch, birthtime_unix, atime_epoch, atime_unix,
			metadata_json, scanned_at_epoch, scanned_at_unix
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (scan_session_id, source_path) DO UPDATE SET
			size_bytes = excluded.size_bytes,
			mtime_epoch = excluded.mtime_epoch,
			mtime_unix = excluded.mtime_unix,
			ctime_epoch = excluded.ctime_epoch,
			ctime_unix = excluded.ctime_unix,
			birthtime_epoch = excluded.birthtime_epoch,
			birthtime_unix = excluded.birthtime_unix,
			atime_epoch = excluded.atime_epoch,
			atime_unix = excluded.atime_unix,
			scanned_at_epoch = excluded.scanned_at_epoch,
			scanned_at_unix = excluded.scanned_at_unix
	`)
	if err != nil {
		return fmt.Errorf("prepare file insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range files {
		result, err := stmt.Exec(
			f.ScanSessionID, f.DirectoryPath, f.SourcePath, f.FilenameFull, f.FilenameBase,
			f.Extension, f.SizeBytes,
			f.MtimeEpoch, f.MtimeUnix, f.CtimeEpoch, f.CtimeUnix,
			f.BirthtimeEpoch, f.BirthtimeUnix, f.AtimeEpoch, f.AtimeUnix,
			f.MetadataJSON, f.ScannedAtEpoch, f.ScannedAtUnix,
		)
		if err != nil {
			return fmt.Errorf("insert file %s: %w", f.SourcePath, err)
		}
		if id, err := result.LastInsertId(); err == nil && id != 0 {
			f.ID = id
		}
	}

	return nil
}

// GetFileByID retrieves a file by its ID.
func (s *Store) GetFileByID(id int64) (*File, error) {
	return s.scanOneFile(s.db.QueryRow(fileSelectColumns+` WHERE id = ?`, id))
}

// FilesInSession streams every file belonging to a session, ordered for
// deterministic downstream processing (PathDateExtractor, Planner).
func (s *Store) FilesInSession(sessionID int64) ([]*File, error) {
	rows, err := s.db.Query(fileSelectColumns+` WHERE scan_session_id = ? ORDER BY directory_path, source_path`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query files in session: %w", err)
	}
	defer rows.Close()
	return scanFiles(rows)
}

// FilesNeedingMetadata returns files in a session with no file_metadata row,
// restricted to extensions the MetadataExtractor supports, ordered
// deterministically. Implements the `full` selection strategy (§4.3); the
// `selective` strategy further filters the result in-process.
func (s *Store) FilesNeedingMetadata(sessionID int64, extensions []string) ([]*File, error) {
	if len(extensions) == 0 {
		return nil, nil
	}
	placeholders := make([]interface{}, 0, len(extensions)+1)
	placeholders = append(placeholders, sessionID)
	q := fileSelectColumns + `
		WHERE scan_session_id = ?
		AND extension IN (`
	for i, ext := range extensions {
		if i > 0 {
			q += ","
		}
		q += "?"
		placeholders = append(placeholders, ext)
	}
	q += `)
		AND id NOT IN (SELECT file_id FROM file_metadata)
		ORDER BY directory_path, source_path`

	rows, err := s.db.Query(q, placeholders...)
	if err != nil {
		return nil, fmt.Errorf("query files needing metadata: %w", err)
	}
	defer rows.Close()
	return scanFiles(rows)
}

const fileSelectColumns = `
	SELECT id, scan_session_id, directory_path, source_path, filename_full, filename_base,
	       extension, size_bytes,
	       mtime_epoch, mtime_unix, ctime_epoch, ctime_unix,
	       birthtime_epoch, birthtime_unix, atime_epoch, atime_unix,
	       hash_quick_start, hash_full, classification, metadata_json,
	       date_path_hierarchy, date_path_hierarchy_source,
	       date_path_folder, date_path_folder_source,
	       date_path_filename, date_path_filename_source,
	       scanned_at_epoch, scanned_at_unix
	FROM files
`

func scanFiles(rows *sql.Rows) ([]*File, error) {
	var files []*File
	for rows.Next() {
		f, err := scanFileRow(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *Store) scanOneFile(row rowScanner) (*File, error) {
	f, err := scanFileRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return f, err
}

func scanFileRow(row rowScanner) (*File, error) {
	f := &File{}
	err := row.Scan(
		&f.ID, &f.ScanSessionID, &f.DirectoryPath, &f.SourcePath, &f.FilenameFull, &f.FilenameBase,
		&f.Extension, &f.SizeBytes,
		&f.MtimeEpoch, &f.MtimeUnix, &f.CtimeEpoch, &f.CtimeUnix,
		&f.BirthtimeEpoch, &f.BirthtimeUnix, &f.AtimeEpoch, &f.AtimeUnix,
		&f.HashQuickStart, &f.HashFull, &f.Classification, &f.MetadataJSON,
		&f.DatePathHierarchy, &f.DatePathHierarchySource,
		&f.DatePathFolder, &f.DatePathFolderSource,
		&f.DatePathFilename, &f.DatePathFilenameSource,
		&f.ScannedAtEpoch, &f.ScannedAtUnix,
	)
	if err != nil {
		return nil, fmt.Errorf("scan file row: %w", err)
	}
	return f, nil
}

// UpdatePathDates writes the PathDateExtractor's six date_path_* columns
// for one file (§4.2 "Side effects").
func (s *Store) UpdatePathDates(f *File) error {
	_, err := s.db.Exec(`
		UPDATE files SET
			date_path_hierarchy = ?, date_path_hierarchy_source = ?,
			date_path_folder = ?, date_path_folder_source = ?,
			date_path_filename = ?, date_path_filename_source = ?
		WHERE id = ?
	`,
		f.DatePathHierarchy, f.DatePathHierarchySource,
		f.DatePathFolder, f.DatePathFolderSource,
		f.DatePathFilename, f.DatePathFilenameSource,
		f.ID,
	)
	if err != nil {
		return fmt.Errorf("update path dates for file %d: %w", f.ID, err)
	}
	return nil
}
