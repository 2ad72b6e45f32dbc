package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"recruit_sandbox/chat"
	"recruit_sandbox/generator"
	"recruit_sandbox/sandbox"
)

const defaultTimeout = 120 * time.Second

// Options tunes a Server. Zero values pick defaults.
type Options struct {
	Timeout     time.Duration
	ChatOptions []chat.Option
	Logger      logrus.FieldLogger
}

type Server struct {
	agent    sandbox.Generator
	llm      chat.Streamer
	chatOpts []chat.Option
	timeout  time.Duration
	log      logrus.FieldLogger
	store    *sandboxStore
}

type sandboxStore struct {
	mu        sync.Mutex
	sandboxes map[string]*sandbox.Sandbox
}

func newStore() *sandboxStore {
	return &sandboxStore{sandboxes: make(map[string]*sandbox.Sandbox)}
}

func (s *sandboxStore) set(id string, sb *sandbox.Sandbox) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sandboxes[id] = sb
}

func (s *sandboxStore) get(id string) (*sandbox.Sandbox, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sb, ok := s.sandboxes[id]
	return sb, ok
}

func New(agent sandbox.Generator, llm chat.Streamer, opts Options) (*Server, error) {
	if agent == nil {
		return nil, errors.New("generator agent required")
	}
	if llm == nil {
		return nil, errors.New("llm client required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Server{
		agent:    agent,
		llm:      llm,
		chatOpts: opts.ChatOptions,
		timeout:  opts.Timeout,
		log:      opts.Logger,
		store:    newStore(),
	}, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/sandboxes", s.handleSandboxCreate)
	mux.HandleFunc("GET /api/sandboxes/{id}", s.withSandbox(s.handleSandboxGet))
	mux.HandleFunc("POST /api/sandboxes/{id}/generate", s.withSandbox(s.handleSandboxGenerate))
	mux.HandleFunc("POST /api/sandboxes/{id}/chat", s.withSandbox(s.handleChat))
	mux.HandleFunc("POST /api/sandboxes/{id}/chat/open", s.withSandbox(s.handleChatVisibility(true)))
	mux.HandleFunc("POST /api/sandboxes/{id}/chat/close", s.withSandbox(s.handleChatVisibility(false)))
	mux.HandleFunc("POST /api/sandboxes/{id}/revision/apply", s.withSandbox(s.handleApplyRevision))
	return logMiddleware(s.log, mux)
}

// --- Handlers ---

type notesReq struct {
	Notes string `json:"notes"`
}

type chatReq struct {
	Message string `json:"message"`
}

type sandboxResp struct {
	SandboxID string `json:"sandbox_id"`
	sandbox.Snapshot
}

type errorResp struct {
	Error  string           `json:"error"`
	Reason generator.Reason `json:"reason,omitempty"`
}

type deltaEvent struct {
	Text string `json:"text"`
}

type doneEvent struct {
	State    chat.State              `json:"state"`
	Reply    string                  `json:"reply"`
	Revision *chat.RevisionCandidate `json:"revision,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleGenerate is the stateless notes -> artifact call.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req notesReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	art, err := s.agent.Generate(ctx, req.Notes)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, art)
}

func (s *Server) handleSandboxCreate(w http.ResponseWriter, r *http.Request) {
	var req notesReq
	// an empty body creates a sandbox without notes
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	session, err := chat.NewSession(s.llm, append([]chat.Option{chat.WithLogger(s.log)}, s.chatOpts...)...)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sb, err := sandbox.New(s.agent, session, s.log)
	if err != nil {
		s.writeError(w, err)
		return
	}
	id := uuid.NewString()

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	if _, err := sb.Generate(ctx, req.Notes); err != nil {
		s.writeError(w, err)
		return
	}
	s.store.set(id, sb)
	writeJSON(w, http.StatusCreated, sandboxResp{SandboxID: id, Snapshot: sb.Snapshot()})
}

func (s *Server) withSandbox(h func(http.ResponseWriter, *http.Request, string, *sandbox.Sandbox)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		sb, ok := s.store.get(id)
		if !ok {
			writeJSON(w, http.StatusNotFound, errorResp{Error: "sandbox not found"})
			return
		}
		h(w, r, id, sb)
	}
}

func (s *Server) handleSandboxGet(w http.ResponseWriter, r *http.Request, id string, sb *sandbox.Sandbox) {
	writeJSON(w, http.StatusOK, sandboxResp{SandboxID: id, Snapshot: sb.Snapshot()})
}

func (s *Server) handleSandboxGenerate(w http.ResponseWriter, r *http.Request, id string, sb *sandbox.Sandbox) {
	var req notesReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	if _, err := sb.Generate(ctx, req.Notes); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sandboxResp{SandboxID: id, Snapshot: sb.Snapshot()})
}

// handleChat streams the reply as server-sent events: one "delta" per
// received fragment carrying the text so far, then a single "done".
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, id string, sb *sandbox.Sandbox) {
	var req chatReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	flusher, _ := w.(http.Flusher)
	started := false
	emit := func(event string, v any) {
		if !started {
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		data, err := json.Marshal(v)
		if err != nil {
			s.log.WithError(err).Error("encode chat event")
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
		if flusher != nil {
			flusher.Flush()
		}
	}

	out, err := sb.SendChat(ctx, req.Message, func(text string) {
		emit("delta", deltaEvent{Text: text})
	})
	// Send only fails on its preconditions, before any event has been written.
	if err != nil {
		s.writeError(w, err)
		return
	}
	emit("done", doneEvent{State: out.State, Reply: out.Reply, Revision: out.Revision})
}

func (s *Server) handleChatVisibility(open bool) func(http.ResponseWriter, *http.Request, string, *sandbox.Sandbox) {
	return func(w http.ResponseWriter, r *http.Request, id string, sb *sandbox.Sandbox) {
		if open {
			sb.OpenChat()
		} else {
			sb.CloseChat()
		}
		writeJSON(w, http.StatusOK, sandboxResp{SandboxID: id, Snapshot: sb.Snapshot()})
	}
}

func (s *Server) handleApplyRevision(w http.ResponseWriter, r *http.Request, id string, sb *sandbox.Sandbox) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	if _, err := sb.ApplyRevision(ctx); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sandboxResp{SandboxID: id, Snapshot: sb.Snapshot()})
}

// --- Helpers ---

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var ge *generator.GenerationError
	switch {
	case errors.As(err, &ge):
		status := http.StatusBadGateway
		if ge.Reason == generator.ReasonEmptyInput {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, errorResp{Error: ge.Message, Reason: ge.Reason})
	case errors.Is(err, chat.ErrEmptyMessage):
		writeJSON(w, http.StatusBadRequest, errorResp{Error: err.Error()})
	case errors.Is(err, chat.ErrExchangeInFlight), errors.Is(err, sandbox.ErrNoPendingRevision):
		writeJSON(w, http.StatusConflict, errorResp{Error: err.Error()})
	default:
		s.log.WithError(err).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, errorResp{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func logMiddleware(log logrus.FieldLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Info("http request")
	})
}
