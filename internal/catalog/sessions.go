package catalog

import (
	"database/sql"
	"fmt"
)

// BeginSession starts a new scan session for sourceRoot. If a completed
// session already exists for the same root it is deleted first (cascading
// away its files and completed directories) per §4.1's "previously
// completed session ... is deleted and replaced". A running or interrupted
// session is left in place for the caller to resume against instead.
func (s *Store) BeginSession(sourceRoot, driveUUID string, startedAtEpoch float64) (*ScanSession, error) {
	existing, err := s.GetSessionByRoot(sourceRoot)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		if existing.Status == SessionCompleted {
			if _, err := s.db.Exec(`DELETE FROM scan_sessions WHERE id = ?`, existing.ID); err != nil {
				return nil, fmt.Errorf("replace completed session: %w", err)
			}
		} else {
			return existing, nil
		}
	}

	result, err := s.db.Exec(`
		INSERT INTO scan_sessions (source_root, source_drive_uuid, status, started_at)
		VALUES (?, ?, ?, ?)
	`, sourceRoot, driveUUID, SessionRunning, startedAtEpoch)
	if err != nil {
		return nil, fmt.Errorf("insert scan session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("scan session id: %w", err)
	}

	return &ScanSession{
		ID:              id,
		SourceRoot:      sourceRoot,
		SourceDriveUUID: driveUUID,
		Status:          SessionRunning,
		StartedAtEpoch:  startedAtEpoch,
	}, nil
}

// GetSessionByRoot returns the session for sourceRoot, or nil if none exists.
func (s *Store) GetSessionByRoot(sourceRoot string) (*ScanSession, error) {
	return s.scanOneSession(`WHERE source_root = ?`, sourceRoot)
}

// GetSessionByID returns the session by its ID, or nil if none exists; used
// by downstream stages (MetadataExtractor, Planner) to resolve a session's
// source root given only its ID.
func (s *Store) GetSessionByID(sessionID int64) (*ScanSession, error) {
	return s.scanOneSession(`WHERE id = ?`, sessionID)
}

// GetLatestSession returns the most recently started session across the
// whole catalog, or nil if none exists — used by CLI commands that default
// to "the session from the last scan" when no source root is given.
func (s *Store) GetLatestSession() (*ScanSession, error) {
	return s.scanOneSession(`ORDER BY started_at DESC LIMIT 1`)
}

func (s *Store) scanOneSession(where string, args ...interface{}) (*ScanSession, error) {
	sess := &ScanSession{}
	var completedAt sql.NullFloat64
	var errMsg sql.NullString

	err := s.db.QueryRow(`
		SELECT id, source_root, source_drive_uuid, status, started_at, completed_at,
		       files_count, directories_count, bytes_total, COALESCE(error_message, '')
		FROM scan_sessions `+where,
		args...,
	).Scan(
		&sess.ID, &sess.SourceRoot, &sess.SourceDriveUUID, &sess.Status,
		&sess.StartedAtEpoch, &completedAt,
		&sess.FilesCount, &sess.DirectoriesCount, &sess.BytesTotal, &errMsg,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get scan session: %w", err)
	}

	if completedAt.Valid {
		sess.CompletedAtEpoch = &completedAt.Float64
	}
	sess.ErrorMessage = errMsg.String
	return sess, nil
}

// IncrementSessionCounters bumps the running files/directories/bytes
// counters on a session row. Called once per committed directory.
func (s *Store) IncrementSessionCounters(sessionID int64, filesDelta, directoriesDelta int64, bytesDelta int64) error {
	_, err := s.db.Exec(`
		UPDATE scan_sessions
		SET files_count = files_count + ?,
		    directories_count = directories_count + ?,
		    bytes_total = bytes_total + ?
		WHERE id = ?
	`, filesDelta, directoriesDelta, bytesDelta, sessionID)
	if err != nil {
		return fmt.Errorf("increment session counters: %w", err)
	}
	return nil
}

// CompleteSession transitions a session to a terminal status.
func (s *Store) CompleteSession(sessionID int64, status string, completedAtEpoch float64, errorMessage string) error {
	_, err := s.db.Exec(`
		UPDATE scan_sessions
		SET status = ?, completed_at = ?, error_message = ?
		WHERE id = ?
	`, status, completedAtEpoch, errorMessage, sessionID)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	return nil
}
