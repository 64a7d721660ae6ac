package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/time/rate"

	"github.com/prepdeck/prepdeck/internal/ai"
	"github.com/prepdeck/prepdeck/internal/logger"
	"github.com/prepdeck/prepdeck/internal/store"
	"github.com/prepdeck/prepdeck/internal/ws"
)

const (
	writeTimeout = 5 * time.Second

	// Inbound message budget per connection. One candidate turn per prior
	// interviewer line is the expected cadence; this only guards against a
	// client hammering the model quota.
	inboundRate  = rate.Limit(2)
	inboundBurst = 8
)

// handleInterviewWS handles the client WebSocket for an interview session.
func (s *Server) handleInterviewWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	limiter := rate.NewLimiter(inboundRate, inboundBurst)

	// Entries this channel bound, for unbinding on disconnect. Closing the
	// channel never ends the session; only lifecycle stop removes the entry.
	var bound []*Entry
	defer func() {
		for _, entry := range bound {
			entry.UnbindConn(conn)
		}
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		if !limiter.Allow() {
			s.sendError(conn, "too many messages, slow down")
			continue
		}

		var env ws.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.sendError(conn, "An error occurred processing your message")
			continue
		}

		switch env.Type {
		case ws.TypeStart:
			var start ws.Start
			if err := json.Unmarshal(data, &start); err != nil || start.SessionID == "" {
				s.sendError(conn, "An error occurred processing your message")
				continue
			}
			if entry := s.bindChannel(conn, start.SessionID); entry != nil {
				bound = append(bound, entry)
			}

		case ws.TypeCandidateResponse:
			var msg ws.CandidateResponse
			if err := json.Unmarshal(data, &msg); err != nil || msg.SessionID == "" || msg.Text == "" {
				s.sendError(conn, "An error occurred processing your message")
				continue
			}
			s.handleTurn(msg.SessionID, msg.Text)

		default:
			s.sendError(conn, "An error occurred processing your message")
		}
	}
}

// bindChannel attaches a channel to a session entry. A fresh session gets an
// opening line; a session with prior transcript gets a replay instead, so a
// reconnecting client catches up on missed events.
func (s *Server) bindChannel(conn *websocket.Conn, sessionID string) *Entry {
	entry := s.Registry.Get(sessionID)
	if entry == nil {
		s.sendError(conn, "Session not found")
		return nil
	}

	if prev := entry.BindConn(conn); prev != nil && prev != conn {
		// Superseded channel is closed so the old client notices, rather
		// than silently going deaf.
		prev.Close(websocket.StatusNormalClosure, "superseded by new connection")
		logger.Info("channel superseded", "session", sessionID)
	}

	sess, err := s.Store.GetSession(sessionID)
	if err != nil || sess == nil {
		s.sendError(conn, "Session not found")
		entry.UnbindConn(conn)
		return nil
	}

	s.emit(entry, ws.Status{Type: ws.TypeStatus, Status: sess.Status})

	msgs, err := s.Store.ListMessages(sessionID)
	if err != nil {
		logger.Error("list messages for bind failed", "session", sessionID, "error", err)
		return entry
	}

	if len(msgs) > 0 {
		s.replay(entry, sess, msgs)
		return entry
	}

	opening := s.responder.OpeningLine(entry.Ctx(), entry.Context)
	if entry.Ctx().Err() != nil {
		// Session was stopped while the opening was in flight.
		return entry
	}
	stored, err := s.Store.CreateMessage(sessionID, store.SpeakerInterviewer, opening)
	if err != nil {
		logger.Error("persist opening failed", "session", sessionID, "error", err)
		return entry
	}
	entry.AppendExchange(ai.RoleInterviewer, opening)
	s.emitTranscript(entry, stored)

	logger.Info("channel bound", "session", sessionID)
	return entry
}

// replay pushes the persisted transcript, feedback and current score to a
// rebinding channel.
func (s *Server) replay(entry *Entry, sess *store.Session, msgs []*store.TranscriptMessage) {
	for _, m := range msgs {
		s.emitTranscript(entry, m)
	}
	feedback, err := s.Store.ListFeedback(sess.ID)
	if err == nil {
		for _, f := range feedback {
			s.emit(entry, ws.Feedback{
				Type:         ws.TypeFeedback,
				ID:           f.ID,
				FeedbackType: f.Kind,
				Text:         f.Text,
				Timestamp:    f.Timestamp.Format(time.RFC3339),
			})
		}
	}
	s.emit(entry, ws.Score{Type: ws.TypeScore, Score: sess.Score})
}

// handleTurn runs one candidate turn through the fixed pipeline: persist the
// utterance, score it, persist feedback, compose the reply. Steps are never
// pipelined; the client sees score and feedback before the next interviewer
// line.
func (s *Server) handleTurn(sessionID, text string) {
	entry := s.Registry.Get(sessionID)
	if entry == nil {
		return
	}

	entry.turnMu.Lock()
	defer entry.turnMu.Unlock()

	sess, err := s.Store.GetSession(sessionID)
	if err != nil || sess == nil || sess.Status != store.StatusActive {
		// Not active: the utterance is dropped silently.
		return
	}

	candidateMsg, err := s.Store.CreateMessage(sessionID, store.SpeakerCandidate, text)
	if err != nil {
		logger.Error("persist candidate message failed", "session", sessionID, "error", err)
		return
	}
	entry.AppendExchange(ai.RoleCandidate, text)
	s.emitTranscript(entry, candidateMsg)

	assessment := s.evaluator.Evaluate(entry.Ctx(), text, entry.Context, entry.History())

	// The session may have been paused or stopped while the model call was
	// in flight; in that case the turn's results are discarded.
	sess, err = s.Store.GetSession(sessionID)
	if err != nil || sess == nil || sess.Status != store.StatusActive {
		return
	}

	newScore := sess.Score + assessment.ScoreDelta
	updated, err := s.Store.UpdateSession(sessionID, store.SessionUpdate{Score: &newScore})
	if err != nil || updated == nil {
		logger.Error("update score failed", "session", sessionID, "error", err)
		return
	}
	s.emit(entry, ws.Score{Type: ws.TypeScore, Score: updated.Score})

	if assessment.Kind != "" && assessment.Text != "" {
		item, err := s.Store.CreateFeedback(sessionID, assessment.Kind, assessment.Text)
		if err != nil {
			logger.Error("persist feedback failed", "session", sessionID, "error", err)
		} else {
			s.emit(entry, ws.Feedback{
				Type:         ws.TypeFeedback,
				ID:           item.ID,
				FeedbackType: item.Kind,
				Text:         item.Text,
				Timestamp:    item.Timestamp.Format(time.RFC3339),
			})
		}
	}

	reply := s.responder.NextLine(entry.Ctx(), entry.Context, entry.History())

	sess, err = s.Store.GetSession(sessionID)
	if err != nil || sess == nil || sess.Status != store.StatusActive {
		return
	}

	replyMsg, err := s.Store.CreateMessage(sessionID, store.SpeakerInterviewer, reply)
	if err != nil {
		logger.Error("persist reply failed", "session", sessionID, "error", err)
		return
	}
	entry.AppendExchange(ai.RoleInterviewer, reply)
	s.emitTranscript(entry, replyMsg)
}

// Emit helpers. All writes go to the entry's currently bound channel; a
// detached session just drops events.

func (s *Server) emitTranscript(entry *Entry, m *store.TranscriptMessage) {
	s.emit(entry, ws.Transcript{
		Type:      ws.TypeTranscript,
		ID:        m.ID,
		Speaker:   m.Speaker,
		Text:      m.Text,
		Timestamp: m.Timestamp.Format(time.RFC3339),
	})
}

func (s *Server) pushStatus(entry *Entry, status string) {
	s.emit(entry, ws.Status{Type: ws.TypeStatus, Status: status})
}

func (s *Server) emit(entry *Entry, v any) {
	conn := entry.Conn()
	if conn == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	conn.Write(ctx, websocket.MessageText, data)
}

func (s *Server) sendError(conn *websocket.Conn, msg string) {
	data, err := json.Marshal(ws.ErrorMsg{Type: ws.TypeError, Message: msg})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	conn.Write(ctx, websocket.MessageText, data)
}
