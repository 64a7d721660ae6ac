package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Speakers for transcript messages.
const (
	SpeakerInterviewer = "interviewer"
	SpeakerCandidate   = "candidate"
)

// Feedback kinds.
const (
	FeedbackStrength    = "strength"
	FeedbackMistake     = "mistake"
	FeedbackObservation = "observation"
)

// TranscriptMessage is one utterance in a session. Append-only; listing order
// is insertion order.
type TranscriptMessage struct {
	ID        string
	SessionID string
	Speaker   string
	Text      string
	Timestamp time.Time
}

// FeedbackItem is one scored observation about a candidate turn. Append-only.
type FeedbackItem struct {
	ID        string
	SessionID string
	Kind      string
	Text      string
	Timestamp time.Time
}

func (s *Store) CreateMessage(sessionID, speaker, text string) (*TranscriptMessage, error) {
	msg := &TranscriptMessage{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Speaker:   speaker,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO transcript_messages (id, session_id, speaker, text, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, msg.Speaker, msg.Text, msg.Timestamp.Format(timestampLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	return msg, nil
}

func (s *Store) ListMessages(sessionID string) ([]*TranscriptMessage, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, speaker, text, created_at FROM transcript_messages
		 WHERE session_id = ? ORDER BY seq ASC`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var result []*TranscriptMessage
	for rows.Next() {
		var m TranscriptMessage
		var created string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Speaker, &m.Text, &created); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Timestamp, _ = time.Parse(timestampLayout, created)
		result = append(result, &m)
	}
	return result, rows.Err()
}

func (s *Store) CreateFeedback(sessionID, kind, text string) (*FeedbackItem, error) {
	item := &FeedbackItem{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Kind:      kind,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO feedback_items (id, session_id, kind, text, created_at) VALUES (?, ?, ?, ?, ?)`,
		item.ID, item.SessionID, item.Kind, item.Text, item.Timestamp.Format(timestampLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("create feedback: %w", err)
	}
	return item, nil
}

func (s *Store) ListFeedback(sessionID string) ([]*FeedbackItem, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, kind, text, created_at FROM feedback_items
		 WHERE session_id = ? ORDER BY seq ASC`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	var result []*FeedbackItem
	for rows.Next() {
		var f FeedbackItem
		var created string
		if err := rows.Scan(&f.ID, &f.SessionID, &f.Kind, &f.Text, &created); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		f.Timestamp, _ = time.Parse(timestampLayout, created)
		result = append(result, &f)
	}
	return result, rows.Err()
}
