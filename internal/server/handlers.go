package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/prepdeck/prepdeck/internal/ai"
	"github.com/prepdeck/prepdeck/internal/logger"
	"github.com/prepdeck/prepdeck/internal/resume"
	"github.com/prepdeck/prepdeck/internal/store"
)

const maxResumeUpload = 10 << 20 // 10 MiB

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":             true,
		"activeSessions": s.Registry.Count(),
	})
}

func (s *Server) handleStartInterview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ResumeText      string `json:"resumeText"`
		JobTitle        string `json:"jobTitle"`
		CompanyName     string `json:"companyName"`
		JobRequirements string `json:"jobRequirements"`
		SystemPrompt    string `json:"systemPrompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.ResumeText == "" || req.JobTitle == "" || req.CompanyName == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	prompt := ai.ResolveSystemPrompt(req.SystemPrompt)

	sess, err := s.Store.CreateSession(store.SessionParams{
		ResumeText:      req.ResumeText,
		JobTitle:        req.JobTitle,
		CompanyName:     req.CompanyName,
		JobRequirements: req.JobRequirements,
		SystemPrompt:    prompt,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := store.StatusActive
	now := time.Now().UTC()
	if _, err := s.Store.UpdateSession(sess.ID, store.SessionUpdate{Status: &status, StartedAt: &now}); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.Registry.Add(sess.ID, ai.InterviewContext{
		ResumeText:      req.ResumeText,
		JobTitle:        req.JobTitle,
		CompanyName:     req.CompanyName,
		JobRequirements: req.JobRequirements,
		SystemPrompt:    prompt,
	})

	logger.Info("interview started", "session", sess.ID, "job", req.JobTitle, "company", req.CompanyName)

	writeJSON(w, http.StatusOK, map[string]string{"sessionId": sess.ID})
}

func (s *Server) handleStopInterview(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	status := store.StatusCompleted
	now := time.Now().UTC()
	sess, err := s.Store.UpdateSession(id, store.SessionUpdate{Status: &status, EndedAt: &now})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	// Tell the connected client before the entry (and its channel binding)
	// goes away.
	if entry := s.Registry.Get(id); entry != nil {
		s.pushStatus(entry, store.StatusCompleted)
	}
	s.Registry.Remove(id)

	logger.Info("interview stopped", "session", id)

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handlePauseInterview(w http.ResponseWriter, r *http.Request) {
	s.setStatus(w, r, store.StatusPaused)
}

func (s *Server) handleResumeInterview(w http.ResponseWriter, r *http.Request) {
	s.setStatus(w, r, store.StatusActive)
}

// setStatus is the shared pause/resume path. It deliberately does not guard
// against transitions like pausing a completed session; the status update
// always succeeds when the id exists.
func (s *Server) setStatus(w http.ResponseWriter, r *http.Request, status string) {
	id := r.PathValue("id")

	sess, err := s.Store.UpdateSession(id, store.SessionUpdate{Status: &status})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	if entry := s.Registry.Get(id); entry != nil {
		s.pushStatus(entry, status)
	}

	logger.Info("interview status changed", "session", id, "status", status)

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleGetInterview(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	sess, err := s.Store.GetSession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	msgs, err := s.Store.ListMessages(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	feedback, err := s.Store.ListFeedback(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type messageOut struct {
		ID        string `json:"id"`
		Speaker   string `json:"speaker"`
		Text      string `json:"text"`
		Timestamp string `json:"timestamp"`
	}
	type feedbackOut struct {
		ID        string `json:"id"`
		Type      string `json:"type"`
		Text      string `json:"text"`
		Timestamp string `json:"timestamp"`
	}

	outMsgs := make([]messageOut, len(msgs))
	for i, m := range msgs {
		outMsgs[i] = messageOut{m.ID, m.Speaker, m.Text, m.Timestamp.Format(time.RFC3339)}
	}
	outFeedback := make([]feedbackOut, len(feedback))
	for i, f := range feedback {
		outFeedback[i] = feedbackOut{f.ID, f.Kind, f.Text, f.Timestamp.Format(time.RFC3339)}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session": map[string]any{
			"id":          sess.ID,
			"jobTitle":    sess.JobTitle,
			"companyName": sess.CompanyName,
			"status":      sess.Status,
			"score":       sess.Score,
		},
		"transcript": outMsgs,
		"feedback":   outFeedback,
	})
}

func (s *Server) handleParseResume(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxResumeUpload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxResumeUpload+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	if len(data) > maxResumeUpload {
		writeError(w, http.StatusBadRequest, "File is too large. Maximum size is 10MB.")
		return
	}

	text, err := resume.Extract(header.Header.Get("Content-Type"), data)
	switch {
	case errors.Is(err, resume.ErrUnsupportedType):
		writeError(w, http.StatusBadRequest, "Unsupported file type. Please upload PDF or TXT.")
		return
	case errors.Is(err, resume.ErrEmptyExtraction):
		writeError(w, http.StatusBadRequest, "No text could be extracted from the file.")
		return
	case err != nil:
		logger.Warn("resume parse failed", "file", header.Filename, "error", err)
		writeError(w, http.StatusBadRequest, "Failed to parse PDF. Please use a .txt file instead.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (s *Server) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"default": ai.DefaultSystemPrompt,
		"presets": ai.PresetPrompts,
	})
}
