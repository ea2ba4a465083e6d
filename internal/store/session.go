package store

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

// Session is one journaled try-on run.
type Session struct {
	ID              string    `json:"id"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	Outcome         string    `json:"outcome"`
	ErrorReason     string    `json:"error_reason,omitempty"`
	FramesSubmitted int       `json:"frames_submitted"`
	HandFrames      int       `json:"hand_frames"`
}

// Duration is how long the session ran.
func (s *Session) Duration() time.Duration {
	return s.EndedAt.Sub(s.StartedAt)
}

// SessionRepository records finished try-on sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a finished session.
func (r *SessionRepository) Create(sess *Session) error {
	_, err := r.db.Exec(
		`INSERT INTO sessions (id, started_at, ended_at, outcome, error_reason, frames_submitted, hand_frames)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.StartedAt, sess.EndedAt, sess.Outcome, sess.ErrorReason, sess.FramesSubmitted, sess.HandFrames,
	)
	return errors.Wrapf(err, "insert session %s", sess.ID)
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	sess := &Session{}
	err := r.db.QueryRow(
		`SELECT id, started_at, ended_at, outcome, error_reason, frames_submitted, hand_frames
		 FROM sessions WHERE id = ?`,
		id,
	).Scan(&sess.ID, &sess.StartedAt, &sess.EndedAt, &sess.Outcome, &sess.ErrorReason, &sess.FramesSubmitted, &sess.HandFrames)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// List returns up to limit sessions, newest first. limit <= 0 returns all.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT id, started_at, ended_at, outcome, error_reason, frames_submitted, hand_frames
		 FROM sessions ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess := &Session{}
		err := rows.Scan(&sess.ID, &sess.StartedAt, &sess.EndedAt, &sess.Outcome, &sess.ErrorReason, &sess.FramesSubmitted, &sess.HandFrames)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// DeleteBefore removes sessions that started before t and returns how many.
func (r *SessionRepository) DeleteBefore(t time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM sessions WHERE started_at < ?`, t)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
