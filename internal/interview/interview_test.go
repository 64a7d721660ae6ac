package interview

import (
	"context"
	"errors"
	"testing"

	"github.com/prepdeck/prepdeck/internal/ai"
)

// scriptedModel is a fake ai.Model with per-method behavior.
type scriptedModel struct {
	opening    string
	reply      string
	assessment ai.Assessment
	err        error
}

func (m *scriptedModel) ComposeOpening(ctx context.Context, ic ai.InterviewContext) (string, error) {
	return m.opening, m.err
}

func (m *scriptedModel) ComposeReply(ctx context.Context, ic ai.InterviewContext, history []ai.Exchange) (string, error) {
	return m.reply, m.err
}

func (m *scriptedModel) ScoreTurn(ctx context.Context, text string, ic ai.InterviewContext, history []ai.Exchange) (ai.Assessment, error) {
	return m.assessment, m.err
}

func TestEvaluateNeutralOnModelFailure(t *testing.T) {
	e := NewEvaluator(&scriptedModel{err: errors.New("timeout")})

	a := e.Evaluate(context.Background(), "answer", ai.InterviewContext{}, nil)
	if a.Kind != "" || a.Text != "" || a.ScoreDelta != 0 {
		t.Errorf("expected neutral assessment on failure, got %+v", a)
	}
}

func TestEvaluateClampsDelta(t *testing.T) {
	for _, tc := range []struct{ in, want int }{
		{10, 3}, {-10, -3}, {2, 2}, {0, 0},
	} {
		e := NewEvaluator(&scriptedModel{assessment: ai.Assessment{ScoreDelta: tc.in}})
		a := e.Evaluate(context.Background(), "answer", ai.InterviewContext{}, nil)
		if a.ScoreDelta != tc.want {
			t.Errorf("delta %d clamped to %d, want %d", tc.in, a.ScoreDelta, tc.want)
		}
	}
}

func TestEvaluateDropsUnknownFeedbackKind(t *testing.T) {
	e := NewEvaluator(&scriptedModel{assessment: ai.Assessment{Kind: "rant", Text: "no", ScoreDelta: 1}})

	a := e.Evaluate(context.Background(), "answer", ai.InterviewContext{}, nil)
	if a.Kind != "" || a.Text != "" {
		t.Errorf("unknown kind should be dropped, got %+v", a)
	}
	if a.ScoreDelta != 1 {
		t.Errorf("delta = %d, want 1", a.ScoreDelta)
	}
}

func TestOpeningLineFallbacks(t *testing.T) {
	r := NewResponder(&scriptedModel{err: errors.New("boom")})
	if got := r.OpeningLine(context.Background(), ai.InterviewContext{}); got != fallbackOpening {
		t.Errorf("got %q, want fallback opening", got)
	}

	r = NewResponder(&scriptedModel{opening: ""})
	if got := r.OpeningLine(context.Background(), ai.InterviewContext{}); got != fallbackOpening {
		t.Errorf("got %q, want fallback opening on empty text", got)
	}

	r = NewResponder(&scriptedModel{opening: "Welcome! Tell me about yourself."})
	if got := r.OpeningLine(context.Background(), ai.InterviewContext{}); got != "Welcome! Tell me about yourself." {
		t.Errorf("got %q", got)
	}
}

func TestNextLineFallbacks(t *testing.T) {
	r := NewResponder(&scriptedModel{err: errors.New("boom")})
	if got := r.NextLine(context.Background(), ai.InterviewContext{}, nil); got != fallbackReply {
		t.Errorf("got %q, want fallback reply", got)
	}

	r = NewResponder(&scriptedModel{reply: ""})
	if got := r.NextLine(context.Background(), ai.InterviewContext{}, nil); got != emptyReply {
		t.Errorf("got %q, want empty-text filler", got)
	}
}
