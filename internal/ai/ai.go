package ai

import "context"

// Exchange roles. These mirror the transcript speakers; the Gemini adapter
// maps them to the vendor's role names.
const (
	RoleInterviewer = "interviewer"
	RoleCandidate   = "candidate"
)

// InterviewContext is the immutable context a session is conducted against.
type InterviewContext struct {
	ResumeText      string
	JobTitle        string
	CompanyName     string
	JobRequirements string
	SystemPrompt    string
}

// Exchange is one role-tagged utterance of the conversation history.
type Exchange struct {
	Role string
	Text string
}

// Assessment is the schema-constrained judgment of one candidate turn.
// Kind is empty when the model had no specific feedback.
type Assessment struct {
	Kind       string
	Text       string
	ScoreDelta int
}

// Model is the narrow capability the orchestration core depends on. It keeps
// the core free of any vendor calling convention and trivially fakeable in
// tests.
type Model interface {
	// ComposeOpening produces the interviewer's opening statement and first
	// question. An empty string with nil error means the model returned no
	// text.
	ComposeOpening(ctx context.Context, ic InterviewContext) (string, error)

	// ComposeReply produces the interviewer's next utterance given the
	// conversation so far.
	ComposeReply(ctx context.Context, ic InterviewContext, history []Exchange) (string, error)

	// ScoreTurn judges the candidate's latest response.
	ScoreTurn(ctx context.Context, candidateText string, ic InterviewContext, history []Exchange) (Assessment, error)
}
