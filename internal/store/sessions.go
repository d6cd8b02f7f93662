package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const sessionColumns = "id, file, cursor_offset, language, search_query, backend, status, thread_count, created_at"

// --- Session operations ---

// InsertSession stores s, assigning a new UUID when s.ID is empty and the
// current time when s.CreatedAt is zero.
func (s *Store) InsertSession(sess *Session) (string, error) {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	if sess.Status == "" {
		sess.Status = StatusOK
	}
	_, err := s.db.Exec(
		"INSERT INTO sessions ("+sessionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		sess.ID, sess.File, sess.Offset, sess.Language, sess.Query, sess.Backend,
		sess.Status, sess.ThreadCount, sess.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return sess.ID, nil
}

// InsertSessionThreads stores the ordered search results of a session in a
// single transaction and updates the session's thread count.
func (s *Store) InsertSessionThreads(sessionID string, threads []SessionThread) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("insert session threads: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		"INSERT INTO session_threads (session_id, ordinal, thread_id, title, link, answer_count) VALUES (?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("insert session threads: prepare: %w", err)
	}
	defer stmt.Close()

	for i, th := range threads {
		if _, err := stmt.Exec(sessionID, i, th.ThreadID, th.Title, th.Link, th.AnswerCount); err != nil {
			return fmt.Errorf("insert session thread %d: %w", th.ThreadID, err)
		}
	}
	if _, err := tx.Exec("UPDATE sessions SET thread_count = ? WHERE id = ?", len(threads), sessionID); err != nil {
		return fmt.Errorf("insert session threads: update count: %w", err)
	}
	return tx.Commit()
}

func (s *Store) SessionByID(id string) (*Session, error) {
	sess, err := scanSession(s.db.QueryRow("SELECT "+sessionColumns+" FROM sessions WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session by id: %w", err)
	}
	return sess, nil
}

// RecentSessions returns up to limit sessions, newest first.
func (s *Store) RecentSessions(limit int) ([]*Session, error) {
	rows, err := s.db.Query(
		"SELECT "+sessionColumns+" FROM sessions ORDER BY created_at DESC, rowid DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent sessions: %w", err)
	}
	defer rows.Close()
	var out []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// SessionThreads returns a session's threads in search order.
func (s *Store) SessionThreads(sessionID string) ([]*SessionThread, error) {
	rows, err := s.db.Query(
		"SELECT session_id, ordinal, thread_id, title, link, answer_count FROM session_threads WHERE session_id = ? ORDER BY ordinal",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("session threads: %w", err)
	}
	defer rows.Close()
	var out []*SessionThread
	for rows.Next() {
		th := &SessionThread{}
		if err := rows.Scan(&th.SessionID, &th.Ordinal, &th.ThreadID, &th.Title, &th.Link, &th.AnswerCount); err != nil {
			return nil, fmt.Errorf("scan session thread: %w", err)
		}
		out = append(out, th)
	}
	return out, rows.Err()
}

// DeleteSessions removes sessions and, by cascade, their threads and clicks.
func (s *Store) DeleteSessions(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.Exec("DELETE FROM sessions WHERE id IN ("+placeholderList(len(ids))+")", stringsToArgs(ids)...)
	if err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (*Session, error) {
	sess := &Session{}
	var language, query, backend sql.NullString
	err := r.Scan(&sess.ID, &sess.File, &sess.Offset, &language, &query, &backend,
		&sess.Status, &sess.ThreadCount, &sess.CreatedAt)
	if err != nil {
		return nil, err
	}
	sess.Language, sess.Query, sess.Backend = language.String, query.String, backend.String
	return sess, nil
}

// --- Click operations ---

func (s *Store) RecordClick(c *Click) (int64, error) {
	if c.ClickedAt.IsZero() {
		c.ClickedAt = time.Now().UTC()
	}
	res, err := s.db.Exec(
		"INSERT INTO clicks (session_id, thread_id, answer_id, clicked_at) VALUES (?, ?, ?, ?)",
		c.SessionID, c.ThreadID, nullableInt64(c.AnswerID), c.ClickedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("record click: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	c.ID = id
	return id, nil
}

func (s *Store) ClicksBySession(sessionID string) ([]*Click, error) {
	rows, err := s.db.Query(
		"SELECT id, session_id, thread_id, answer_id, clicked_at FROM clicks WHERE session_id = ? ORDER BY id",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("clicks by session: %w", err)
	}
	defer rows.Close()
	var out []*Click
	for rows.Next() {
		c := &Click{}
		var answerID sql.NullInt64
		if err := rows.Scan(&c.ID, &c.SessionID, &c.ThreadID, &answerID, &c.ClickedAt); err != nil {
			return nil, fmt.Errorf("scan click: %w", err)
		}
		if answerID.Valid {
			v := answerID.Int64
			c.AnswerID = &v
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// TopQueries returns the most frequent successful queries.
func (s *Store) TopQueries(limit int) ([]QueryCount, error) {
	rows, err := s.db.Query(
		`SELECT search_query, COUNT(*) AS n FROM sessions
		 WHERE status = ? AND search_query IS NOT NULL AND search_query != ''
		 GROUP BY search_query ORDER BY n DESC, search_query LIMIT ?`,
		StatusOK, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top queries: %w", err)
	}
	defer rows.Close()
	var out []QueryCount
	for rows.Next() {
		var qc QueryCount
		if err := rows.Scan(&qc.Query, &qc.Count); err != nil {
			return nil, fmt.Errorf("scan query count: %w", err)
		}
		out = append(out, qc)
	}
	return out, rows.Err()
}
