package ws

// Message types for the interview WebSocket protocol.
const (
	// Client → Server
	TypeStart             = "start"
	TypeCandidateResponse = "candidate_response"

	// Server → Client
	TypeTranscript = "transcript"
	TypeFeedback   = "feedback"
	TypeScore      = "score"
	TypeStatus     = "status"
	TypeError      = "error"
)

// Envelope wraps every WebSocket message with a type field for routing.
type Envelope struct {
	Type string `json:"type"`
}

// Start binds a freshly opened channel to a session.
type Start struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

// CandidateResponse carries one candidate utterance.
type CandidateResponse struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Text      string `json:"text"`
}

// Transcript announces a persisted transcript message.
type Transcript struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	Speaker   string `json:"speaker"` // "interviewer" | "candidate"
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"` // RFC 3339
}

// Feedback announces a persisted feedback item.
type Feedback struct {
	Type         string `json:"type"`
	ID           string `json:"id"`
	FeedbackType string `json:"feedbackType"` // "strength" | "mistake" | "observation"
	Text         string `json:"text"`
	Timestamp    string `json:"timestamp"`
}

// Score announces the session's running score after a turn.
type Score struct {
	Type  string `json:"type"`
	Score int    `json:"score"`
}

// Status announces a session status change.
type Status struct {
	Type   string `json:"type"`
	Status string `json:"status"` // "idle" | "active" | "paused" | "completed"
}

// ErrorMsg is sent for protocol errors. The channel stays open.
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
