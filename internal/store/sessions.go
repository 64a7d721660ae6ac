package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session statuses.
const (
	StatusIdle      = "idle"
	StatusActive    = "active"
	StatusPaused    = "paused"
	StatusCompleted = "completed"
)

// Score bounds. The score is clamped into this range on every update.
const (
	MinScore      = 0
	MaxScore      = 100
	BaselineScore = 50
)

// Session is one candidate's end-to-end interview attempt.
type Session struct {
	ID              string
	ResumeText      string
	JobTitle        string
	CompanyName     string
	JobRequirements string
	SystemPrompt    string
	Status          string
	Score           int
	StartedAt       *time.Time
	EndedAt         *time.Time
}

// SessionParams is the immutable interview context captured at creation.
type SessionParams struct {
	ResumeText      string
	JobTitle        string
	CompanyName     string
	JobRequirements string
	SystemPrompt    string
}

// SessionUpdate carries partial fields for UpdateSession. Nil fields are left
// unchanged.
type SessionUpdate struct {
	Status    *string
	Score     *int
	StartedAt *time.Time
	EndedAt   *time.Time
}

func clampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// CreateSession inserts a new session with status idle and the baseline score.
func (s *Store) CreateSession(p SessionParams) (*Session, error) {
	session := &Session{
		ID:              uuid.New().String(),
		ResumeText:      p.ResumeText,
		JobTitle:        p.JobTitle,
		CompanyName:     p.CompanyName,
		JobRequirements: p.JobRequirements,
		SystemPrompt:    p.SystemPrompt,
		Status:          StatusIdle,
		Score:           BaselineScore,
	}
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, resume_text, job_title, company_name, job_requirements, system_prompt, status, score)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.ResumeText, session.JobTitle, session.CompanyName,
		session.JobRequirements, session.SystemPrompt, session.Status, session.Score,
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// GetSession returns the session or (nil, nil) when the id is unknown.
func (s *Store) GetSession(id string) (*Session, error) {
	row := s.db.QueryRow(
		`SELECT id, resume_text, job_title, company_name, job_requirements, system_prompt, status, score, started_at, ended_at
		 FROM sessions WHERE id = ?`, id,
	)
	var sess Session
	var startedAt, endedAt sql.NullString
	err := row.Scan(&sess.ID, &sess.ResumeText, &sess.JobTitle, &sess.CompanyName,
		&sess.JobRequirements, &sess.SystemPrompt, &sess.Status, &sess.Score,
		&startedAt, &endedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if t, ok := parseTimestamp(startedAt); ok {
		sess.StartedAt = &t
	}
	if t, ok := parseTimestamp(endedAt); ok {
		sess.EndedAt = &t
	}
	return &sess, nil
}

// UpdateSession merges the given fields into the session. Returns (nil, nil)
// when the id is unknown; no row is written in that case.
func (s *Store) UpdateSession(id string, u SessionUpdate) (*Session, error) {
	sess, err := s.GetSession(id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}

	if u.Status != nil {
		sess.Status = *u.Status
	}
	if u.Score != nil {
		sess.Score = clampScore(*u.Score)
	}
	if u.StartedAt != nil {
		sess.StartedAt = u.StartedAt
	}
	if u.EndedAt != nil {
		sess.EndedAt = u.EndedAt
	}

	_, err = s.db.Exec(
		`UPDATE sessions SET status = ?, score = ?, started_at = ?, ended_at = ? WHERE id = ?`,
		sess.Status, sess.Score, formatTimestamp(sess.StartedAt), formatTimestamp(sess.EndedAt), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	return sess, nil
}

const timestampLayout = "2006-01-02 15:04:05.999999999"

func formatTimestamp(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(v sql.NullString) (time.Time, bool) {
	if !v.Valid || v.String == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(timestampLayout, v.String)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
