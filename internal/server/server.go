package server

import (
	"encoding/json"
	"net/http"

	"github.com/prepdeck/prepdeck/internal/ai"
	"github.com/prepdeck/prepdeck/internal/interview"
	"github.com/prepdeck/prepdeck/internal/store"
)

// Server is the interview backend: the lifecycle HTTP API plus the WebSocket
// orchestrator.
type Server struct {
	Store    *store.Store
	Registry *Registry

	responder *interview.Responder
	evaluator *interview.Evaluator

	mux *http.ServeMux
}

func NewServer(st *store.Store, model ai.Model) *Server {
	s := &Server{
		Store:     st,
		Registry:  NewRegistry(),
		responder: interview.NewResponder(model),
		evaluator: interview.NewEvaluator(model),
		mux:       http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /api/interview/start", s.handleStartInterview)
	s.mux.HandleFunc("POST /api/interview/{id}/stop", s.handleStopInterview)
	s.mux.HandleFunc("POST /api/interview/{id}/pause", s.handlePauseInterview)
	s.mux.HandleFunc("POST /api/interview/{id}/resume", s.handleResumeInterview)
	s.mux.HandleFunc("GET /api/interview/{id}", s.handleGetInterview)
	s.mux.HandleFunc("POST /api/parse-resume", s.handleParseResume)
	s.mux.HandleFunc("GET /api/prompts", s.handleListPrompts)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /ws", s.handleInterviewWS)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Helpers

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
