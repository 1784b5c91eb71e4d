package store

import (
	"database/sql"
	"errors"
	"fmt"

	"luongimport/internal/model"
)

// ErrSessionNotFound unknown import session id
var ErrSessionNotFound = errors.New("import session not found")

// CreateImportSession records the start of an import run in status processing
func (s *Store) CreateImportSession(sess model.ImportSession) error {
	_, err := s.db.Exec(`
		INSERT INTO import_sessions (id, kind, filenames, actor, status, started_at)
		VALUES (?, ?, ?, ?, 'processing', ?)
	`, sess.ID, string(sess.Kind), sess.Filenames, sess.Actor, sess.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create import session: %w", err)
	}
	if err := s.SetSetting(SettingLastSessionID, sess.ID); err != nil {
		return err
	}
	return nil
}

// FinishImportSession stores the outcome of a run
func (s *Store) FinishImportSession(id, status string, totalRecords, errorCount, warningCount int, errorMessage string) error {
	res, err := s.db.Exec(`
		UPDATE import_sessions SET
			status = ?,
			total_records = ?,
			error_count = ?,
			warning_count = ?,
			error_message = ?,
			completed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, status, totalRecords, errorCount, warningCount, errorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to update import session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// GetImportSession loads one session
func (s *Store) GetImportSession(id string) (*model.ImportSession, error) {
	var sess model.ImportSession
	var kind string
	var completed sql.NullTime
	err := s.db.QueryRow(`
		SELECT id, kind, filenames, actor, status, total_records, error_count,
			warning_count, error_message, started_at, completed_at
		FROM import_sessions WHERE id = ?
	`, id).Scan(&sess.ID, &kind, &sess.Filenames, &sess.Actor, &sess.Status, &sess.TotalRecords,
		&sess.ErrorCount, &sess.WarningCount, &sess.ErrorMessage, &sess.StartedAt, &completed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, fmt.Errorf("failed to get import session: %w", err)
	}
	sess.Kind = model.ImportKind(kind)
	if completed.Valid {
		t := completed.Time
		sess.CompletedAt = &t
	}
	return &sess, nil
}

// CountImportSessions sessions per status
func (s *Store) CountImportSessions() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM import_sessions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count import sessions: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}
