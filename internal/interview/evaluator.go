// Package interview wraps the generative model behind the failure policy the
// product demands: assessment is best-effort and conversation continuity wins
// over omniscience, so no external failure ever surfaces to the candidate.
package interview

import (
	"context"

	"github.com/prepdeck/prepdeck/internal/ai"
	"github.com/prepdeck/prepdeck/internal/logger"
)

// Score delta bounds for a single turn.
const (
	MinScoreDelta = -3
	MaxScoreDelta = 3
)

// Evaluator judges candidate turns. Any failure of the underlying model is
// swallowed and mapped to a neutral assessment so the turn continues.
type Evaluator struct {
	model ai.Model
}

func NewEvaluator(model ai.Model) *Evaluator {
	return &Evaluator{model: model}
}

// Evaluate returns the assessment for the candidate's latest utterance. On
// model failure it returns the neutral zero assessment.
func (e *Evaluator) Evaluate(ctx context.Context, candidateText string, ic ai.InterviewContext, history []ai.Exchange) ai.Assessment {
	a, err := e.model.ScoreTurn(ctx, candidateText, ic, history)
	if err != nil {
		logger.Warn("turn assessment failed, continuing without feedback", "error", err)
		return ai.Assessment{}
	}
	a.ScoreDelta = clampDelta(a.ScoreDelta)
	if !validFeedbackKind(a.Kind) {
		a.Kind = ""
		a.Text = ""
	}
	return a
}

func clampDelta(d int) int {
	if d < MinScoreDelta {
		return MinScoreDelta
	}
	if d > MaxScoreDelta {
		return MaxScoreDelta
	}
	return d
}

func validFeedbackKind(kind string) bool {
	switch kind {
	case "strength", "mistake", "observation":
		return true
	}
	return false
}
