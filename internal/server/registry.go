package server

import (
	"context"
	"sync"

	"github.com/coder/websocket"

	"github.com/prepdeck/prepdeck/internal/ai"
)

// Entry is the orchestrator-local state for one active session: the interview
// context snapshot, the in-memory conversation mirror used for prompting, and
// the live channel handle. One entry per session id; created by lifecycle
// start, removed only by lifecycle stop.
type Entry struct {
	ID      string
	Context ai.InterviewContext

	ctx    context.Context
	cancel context.CancelFunc

	// turnMu serializes turn handling for this session. A second
	// candidate_response arriving before the first finishes queues behind it
	// instead of racing on the history.
	turnMu sync.Mutex

	mu      sync.Mutex // guards conn and history
	conn    *websocket.Conn
	history []ai.Exchange
}

// Ctx is cancelled when the session is stopped; in-flight model calls abort.
func (e *Entry) Ctx() context.Context { return e.ctx }

// BindConn attaches a channel to the entry and returns the handle it
// replaced, if any.
func (e *Entry) BindConn(conn *websocket.Conn) *websocket.Conn {
	e.mu.Lock()
	defer e.mu.Unlock()
	prev := e.conn
	e.conn = conn
	return prev
}

// UnbindConn clears the handle only if it still belongs to the given channel.
// A superseded channel closing late must not detach its replacement.
func (e *Entry) UnbindConn(conn *websocket.Conn) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn == conn {
		e.conn = nil
	}
}

// Conn returns the currently bound channel, or nil.
func (e *Entry) Conn() *websocket.Conn {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn
}

// AppendExchange records an utterance in the in-memory history mirror. Called
// only after the corresponding transcript message was persisted, so the
// mirror stays a prefix-consistent copy of the store.
func (e *Entry) AppendExchange(role, text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = append(e.history, ai.Exchange{Role: role, Text: text})
}

// History returns a copy of the conversation mirror.
func (e *Entry) History() []ai.Exchange {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]ai.Exchange, len(e.history))
	copy(out, e.history)
	return out
}

// Registry tracks active sessions. It is injected into the server at startup;
// there is no process-global session table.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Entry // session id -> entry
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Entry),
	}
}

func (r *Registry) Add(id string, ictx ai.InterviewContext) *Entry {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Entry{
		ID:      id,
		Context: ictx,
		ctx:     ctx,
		cancel:  cancel,
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = e
	return e
}

func (r *Registry) Get(id string) *Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// Remove drops the entry and cancels its context.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	e := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if e != nil {
		e.cancel()
	}
}

// Count returns the number of active entries.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
