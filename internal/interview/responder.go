package interview

import (
	"context"

	"github.com/prepdeck/prepdeck/internal/ai"
	"github.com/prepdeck/prepdeck/internal/logger"
)

// Canned lines used when the model fails or returns nothing. The interview
// must keep moving.
const (
	fallbackOpening = "Hello! Thank you for joining this interview. Let's begin by discussing your background."
	fallbackReply   = "I apologize, I'm having trouble processing that. Could you please rephrase?"
	emptyReply      = "I understand. Please continue."
)

// Responder composes the interviewer's utterances. It never returns an error:
// model failures degrade to professional filler lines.
type Responder struct {
	model ai.Model
}

func NewResponder(model ai.Model) *Responder {
	return &Responder{model: model}
}

// OpeningLine produces the interviewer's opening statement and first question.
func (r *Responder) OpeningLine(ctx context.Context, ic ai.InterviewContext) string {
	text, err := r.model.ComposeOpening(ctx, ic)
	if err != nil {
		logger.Warn("opening generation failed, using fallback", "error", err)
		return fallbackOpening
	}
	if text == "" {
		return fallbackOpening
	}
	return text
}

// NextLine produces the interviewer's next utterance for the conversation so
// far.
func (r *Responder) NextLine(ctx context.Context, ic ai.InterviewContext, history []ai.Exchange) string {
	text, err := r.model.ComposeReply(ctx, ic, history)
	if err != nil {
		logger.Warn("reply generation failed, using fallback", "error", err)
		return fallbackReply
	}
	if text == "" {
		return emptyReply
	}
	return text
}
