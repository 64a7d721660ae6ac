package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GeminiConfig configures the Gemini-backed Model.
type GeminiConfig struct {
	APIKey         string
	BaseURL        string // e.g. https://generativelanguage.googleapis.com/v1beta
	ResponderModel string // used for opening and reply composition
	EvaluatorModel string // used for turn scoring
	Timeout        time.Duration
}

// Gemini implements Model over the generateContent REST endpoint.
type Gemini struct {
	token          string
	baseURL        string
	responderModel string
	evaluatorModel string
	client         *http.Client
}

func NewGemini(cfg GeminiConfig) *Gemini {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Gemini{
		token:          cfg.APIKey,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		responderModel: cfg.ResponderModel,
		evaluatorModel: cfg.EvaluatorModel,
		client:         &http.Client{Timeout: timeout},
	}
}

func (g *Gemini) ComposeOpening(ctx context.Context, ic InterviewContext) (string, error) {
	payload := geminiRequest{
		SystemInstruction: systemContent(openingInstruction(ic)),
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{{Text: fmt.Sprintf("Candidate Resume:\n%s\n\nJob Requirements:\n%s",
				ic.ResumeText, ic.JobRequirements)}},
		}},
	}
	return g.generate(ctx, g.responderModel, payload)
}

func (g *Gemini) ComposeReply(ctx context.Context, ic InterviewContext, history []Exchange) (string, error) {
	payload := geminiRequest{
		SystemInstruction: systemContent(interviewerInstruction(ic)),
		Contents:          toGeminiContents(history),
	}
	return g.generate(ctx, g.responderModel, payload)
}

// evaluatorHistoryWindow bounds how much conversation the assessor sees.
const evaluatorHistoryWindow = 5

func (g *Gemini) ScoreTurn(ctx context.Context, candidateText string, ic InterviewContext, history []Exchange) (Assessment, error) {
	recent := history
	if len(recent) > evaluatorHistoryWindow {
		recent = recent[len(recent)-evaluatorHistoryWindow:]
	}
	var b strings.Builder
	for _, ex := range recent {
		fmt.Fprintf(&b, "%s: %s\n", ex.Role, ex.Text)
	}

	payload := geminiRequest{
		SystemInstruction: systemContent(assessorInstruction(ic)),
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{{Text: fmt.Sprintf("Recent conversation:\n%s\nLatest response to analyze: %s",
				b.String(), candidateText)}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   assessmentSchema,
		},
	}

	raw, err := g.generate(ctx, g.evaluatorModel, payload)
	if err != nil {
		return Assessment{}, err
	}

	var out struct {
		FeedbackType    *string `json:"feedbackType"`
		FeedbackText    *string `json:"feedbackText"`
		ScoreAdjustment float64 `json:"scoreAdjustment"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return Assessment{}, fmt.Errorf("decode assessment: %w", err)
	}

	a := Assessment{ScoreDelta: int(out.ScoreAdjustment)}
	if out.FeedbackType != nil && out.FeedbackText != nil {
		a.Kind = *out.FeedbackType
		a.Text = *out.FeedbackText
	}
	return a, nil
}

// assessmentSchema constrains the evaluator output to the fields the turn
// pipeline understands.
var assessmentSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"feedbackType": map[string]any{
			"type":     "STRING",
			"enum":     []string{"strength", "mistake", "observation"},
			"nullable": true,
		},
		"feedbackText": map[string]any{
			"type":     "STRING",
			"nullable": true,
		},
		"scoreAdjustment": map[string]any{
			"type": "NUMBER",
		},
	},
	"required": []string{"scoreAdjustment"},
}

func (g *Gemini) generate(ctx context.Context, model string, payload geminiRequest) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, model, url.QueryEscape(g.token))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("gemini: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("gemini: empty candidates")
	}

	parts := make([]string, 0, len(out.Candidates[0].Content.Parts))
	for _, p := range out.Candidates[0].Content.Parts {
		if strings.TrimSpace(p.Text) != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n")), nil
}

type geminiRequest struct {
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseMIMEType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func systemContent(text string) *geminiContent {
	return &geminiContent{Parts: []geminiPart{{Text: text}}}
}

// toGeminiContents maps interviewer turns to the "model" role and candidate
// turns to "user".
func toGeminiContents(history []Exchange) []geminiContent {
	out := make([]geminiContent, 0, len(history))
	for _, ex := range history {
		role := "user"
		if ex.Role == RoleInterviewer {
			role = "model"
		}
		out = append(out, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: ex.Text}},
		})
	}
	return out
}
