package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prepdeck/prepdeck/internal/ai"
	"github.com/prepdeck/prepdeck/internal/store"
)

// fakeModel is a scripted ai.Model for orchestration tests.
type fakeModel struct {
	mu         sync.Mutex
	opening    string
	reply      string
	assessment ai.Assessment
	scoreErr   error

	// When set, ScoreTurn signals scoreStarted and blocks until scoreRelease
	// closes, so a test can act while the model call is in flight.
	scoreStarted chan struct{}
	scoreRelease chan struct{}
}

func (m *fakeModel) ComposeOpening(ctx context.Context, ic ai.InterviewContext) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opening, nil
}

func (m *fakeModel) ComposeReply(ctx context.Context, ic ai.InterviewContext, history []ai.Exchange) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reply, nil
}

func (m *fakeModel) ScoreTurn(ctx context.Context, text string, ic ai.InterviewContext, history []ai.Exchange) (ai.Assessment, error) {
	m.mu.Lock()
	started, release := m.scoreStarted, m.scoreRelease
	a, err := m.assessment, m.scoreErr
	m.mu.Unlock()
	if started != nil {
		started <- struct{}{}
		<-release
	}
	return a, err
}

func (m *fakeModel) setScoreErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scoreErr = err
}

// blockScoring arms the ScoreTurn rendezvous and returns both channels.
func (m *fakeModel) blockScoring() (started, release chan struct{}) {
	started = make(chan struct{})
	release = make(chan struct{})
	m.mu.Lock()
	m.scoreStarted, m.scoreRelease = started, release
	m.mu.Unlock()
	return started, release
}

func defaultFakeModel() *fakeModel {
	return &fakeModel{
		opening: "Welcome! Tell me about your background.",
		reply:   "Interesting, tell me more about that.",
		assessment: ai.Assessment{
			Kind:       "strength",
			Text:       "Great! You demonstrated leadership.",
			ScoreDelta: 2,
		},
	}
}

func testServer(t *testing.T) (*Server, *fakeModel, *httptest.Server) {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	model := defaultFakeModel()
	srv := NewServer(st, model)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return srv, model, ts
}

// startInterview starts a session over HTTP and returns its id.
func startInterview(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/interview/start", "application/json",
		strings.NewReader(`{
			"resumeText": "Experienced backend engineer...",
			"jobTitle": "Backend Engineer",
			"companyName": "Acme",
			"jobRequirements": "Go, distributed systems"
		}`))
	if err != nil {
		t.Fatalf("POST /api/interview/start: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("start status = %d", resp.StatusCode)
	}
	var body struct {
		SessionID string `json:"sessionId"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if body.SessionID == "" {
		t.Fatal("expected sessionId")
	}
	return body.SessionID
}

func postLifecycle(t *testing.T, ts *httptest.Server, id, action string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/interview/"+id+"/"+action, "application/json", nil)
	if err != nil {
		t.Fatalf("POST %s: %v", action, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	_, _, ts := testServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		OK             bool `json:"ok"`
		ActiveSessions int  `json:"activeSessions"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if !body.OK {
		t.Error("expected ok=true")
	}
	if body.ActiveSessions != 0 {
		t.Errorf("activeSessions = %d, want 0", body.ActiveSessions)
	}

	startInterview(t, ts)

	resp2, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp2.Body.Close()
	json.NewDecoder(resp2.Body).Decode(&body)
	if body.ActiveSessions != 1 {
		t.Errorf("activeSessions = %d, want 1", body.ActiveSessions)
	}
}

func TestStartInterviewValidation(t *testing.T) {
	_, _, ts := testServer(t)

	resp, err := http.Post(ts.URL+"/api/interview/start", "application/json",
		strings.NewReader(`{"resumeText":"","jobTitle":"Engineer","companyName":"Acme"}`))
	if err != nil {
		t.Fatalf("POST start: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 400 {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestStartInterviewActivatesSession(t *testing.T) {
	srv, _, ts := testServer(t)

	id := startInterview(t, ts)

	sess, err := srv.Store.GetSession(id)
	if err != nil || sess == nil {
		t.Fatalf("get session: %v, %v", sess, err)
	}
	if sess.Status != store.StatusActive {
		t.Errorf("status = %q, want active", sess.Status)
	}
	if sess.Score != store.BaselineScore {
		t.Errorf("score = %d, want baseline", sess.Score)
	}
	if sess.StartedAt == nil {
		t.Error("expected startedAt")
	}
	if sess.SystemPrompt != ai.DefaultSystemPrompt {
		t.Error("empty systemPrompt should resolve to default")
	}

	if srv.Registry.Get(id) == nil {
		t.Error("expected registry entry")
	}
}

func TestStartInterviewPresetPrompt(t *testing.T) {
	srv, _, ts := testServer(t)

	resp, err := http.Post(ts.URL+"/api/interview/start", "application/json",
		strings.NewReader(`{
			"resumeText": "resume",
			"jobTitle": "Engineer",
			"companyName": "Acme",
			"systemPrompt": "behavioral"
		}`))
	if err != nil {
		t.Fatalf("POST start: %v", err)
	}
	defer resp.Body.Close()
	var body struct {
		SessionID string `json:"sessionId"`
	}
	json.NewDecoder(resp.Body).Decode(&body)

	sess, _ := srv.Store.GetSession(body.SessionID)
	if !strings.Contains(sess.SystemPrompt, "STAR method") {
		t.Errorf("preset id not resolved, prompt = %q", sess.SystemPrompt)
	}
}

func TestPauseResumeStop(t *testing.T) {
	srv, _, ts := testServer(t)
	id := startInterview(t, ts)

	if resp := postLifecycle(t, ts, id, "pause"); resp.StatusCode != 200 {
		t.Fatalf("pause status = %d", resp.StatusCode)
	}
	sess, _ := srv.Store.GetSession(id)
	if sess.Status != store.StatusPaused {
		t.Errorf("status = %q, want paused", sess.Status)
	}

	if resp := postLifecycle(t, ts, id, "resume"); resp.StatusCode != 200 {
		t.Fatalf("resume status = %d", resp.StatusCode)
	}
	sess, _ = srv.Store.GetSession(id)
	if sess.Status != store.StatusActive {
		t.Errorf("status = %q, want active", sess.Status)
	}

	if resp := postLifecycle(t, ts, id, "stop"); resp.StatusCode != 200 {
		t.Fatalf("stop status = %d", resp.StatusCode)
	}
	sess, _ = srv.Store.GetSession(id)
	if sess.Status != store.StatusCompleted {
		t.Errorf("status = %q, want completed", sess.Status)
	}
	if sess.EndedAt == nil {
		t.Error("expected endedAt")
	}
	if srv.Registry.Get(id) != nil {
		t.Error("expected registry entry removed after stop")
	}
}

func TestLifecycleUnknownSession(t *testing.T) {
	srv, _, ts := testServer(t)

	for _, action := range []string{"pause", "resume", "stop"} {
		resp := postLifecycle(t, ts, "nope", action)
		if resp.StatusCode != 404 {
			t.Errorf("%s on unknown id: status = %d, want 404", action, resp.StatusCode)
		}
	}

	// Stop on an unknown id must not mutate the store.
	var count int
	srv.Store.DB().QueryRow("SELECT COUNT(*) FROM sessions").Scan(&count)
	if count != 0 {
		t.Errorf("sessions table has %d rows, want 0", count)
	}
}

func TestGetInterview(t *testing.T) {
	srv, _, ts := testServer(t)
	id := startInterview(t, ts)

	srv.Store.CreateMessage(id, store.SpeakerInterviewer, "Welcome.")
	srv.Store.CreateMessage(id, store.SpeakerCandidate, "Thanks.")
	srv.Store.CreateFeedback(id, store.FeedbackStrength, "Good opener.")

	resp, err := http.Get(ts.URL + "/api/interview/" + id)
	if err != nil {
		t.Fatalf("GET interview: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body struct {
		Session struct {
			ID     string `json:"id"`
			Status string `json:"status"`
			Score  int    `json:"score"`
		} `json:"session"`
		Transcript []struct {
			Speaker string `json:"speaker"`
			Text    string `json:"text"`
		} `json:"transcript"`
		Feedback []struct {
			Type string `json:"type"`
		} `json:"feedback"`
	}
	json.NewDecoder(resp.Body).Decode(&body)

	if body.Session.ID != id || body.Session.Status != store.StatusActive {
		t.Errorf("session = %+v", body.Session)
	}
	if len(body.Transcript) != 2 || body.Transcript[0].Speaker != "interviewer" {
		t.Errorf("transcript = %+v", body.Transcript)
	}
	if len(body.Feedback) != 1 || body.Feedback[0].Type != "strength" {
		t.Errorf("feedback = %+v", body.Feedback)
	}
}

func TestGetInterviewUnknown(t *testing.T) {
	_, _, ts := testServer(t)

	resp, err := http.Get(ts.URL + "/api/interview/nope")
	if err != nil {
		t.Fatalf("GET interview: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 404 {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestListPrompts(t *testing.T) {
	_, _, ts := testServer(t)

	resp, err := http.Get(ts.URL + "/api/prompts")
	if err != nil {
		t.Fatalf("GET /api/prompts: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Default string              `json:"default"`
		Presets []ai.PromptTemplate `json:"presets"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Default == "" {
		t.Error("expected default prompt")
	}
	if len(body.Presets) != 4 {
		t.Errorf("got %d presets, want 4", len(body.Presets))
	}
}

func uploadResume(t *testing.T, ts *httptest.Server, filename, contentType string, data []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{`form-data; name="file"; filename="` + filename + `"`}
	hdr["Content-Type"] = []string{contentType}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write(data)
	mw.Close()

	resp, err := http.Post(ts.URL+"/api/parse-resume", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST /api/parse-resume: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestParseResumeText(t *testing.T) {
	_, _, ts := testServer(t)

	resp := uploadResume(t, ts, "resume.txt", "text/plain", []byte("Experienced backend engineer..."))
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["text"] != "Experienced backend engineer..." {
		t.Errorf("text = %q", body["text"])
	}
}

func TestParseResumeUnsupportedType(t *testing.T) {
	_, _, ts := testServer(t)

	resp := uploadResume(t, ts, "resume.docx", "application/msword", []byte("doc"))
	if resp.StatusCode != 400 {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestParseResumeEmpty(t *testing.T) {
	_, _, ts := testServer(t)

	resp := uploadResume(t, ts, "resume.txt", "text/plain", []byte("   "))
	if resp.StatusCode != 400 {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestParseResumeTooLarge(t *testing.T) {
	_, _, ts := testServer(t)

	resp := uploadResume(t, ts, "resume.txt", "text/plain", bytes.Repeat([]byte("a"), maxResumeUpload+1))
	if resp.StatusCode != 400 {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if !strings.Contains(body["error"], "too large") {
		t.Errorf("error = %q, want size rejection", body["error"])
	}
}

func TestParseResumeNoFile(t *testing.T) {
	_, _, ts := testServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.Close()
	resp, err := http.Post(ts.URL+"/api/parse-resume", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 400 {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

var errModelDown = errors.New("model unavailable")
