// Package httpd exposes menu sessions over HTTP: one session per actor key,
// driven by posting input lines. Display text is buffered per actor and
// returned in the response to the request that produced it.
package httpd

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/espalierhq/espalier"
	"github.com/espalierhq/espalier/internal/logging"
	"github.com/espalierhq/espalier/pkg/domain"
	"github.com/espalierhq/espalier/pkg/session"
)

// Server drives menu sessions for HTTP clients. Menu sources are registered
// at construction; sessions are created and addressed by actor key.
type Server struct {
	menus    map[string]any
	registry *session.Registry
	buffer   *outputBuffer
	logger   *slog.Logger
	promReg  *prometheus.Registry

	mu      sync.Mutex
	engines map[string]*espalier.Engine
	locks   map[string]*sync.Mutex
}

// NewServer builds a server over the given menu sources (menu ID -> source
// accepted by Open).
func NewServer(menus map[string]any, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	promReg := prometheus.NewRegistry()
	return &Server{
		menus:    menus,
		registry: session.NewRegistry(session.WithLogger(logger)),
		buffer:   newOutputBuffer(),
		logger:   logger,
		promReg:  promReg,
		engines:  make(map[string]*espalier.Engine),
		locks:    make(map[string]*sync.Mutex),
	}
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.promReg, promhttp.HandlerOpts{}))

	r.Post("/sessions", s.createSession)
	r.Get("/sessions/{actor}", s.getSession)
	r.Post("/sessions/{actor}/input", s.postInput)
	r.Delete("/sessions/{actor}", s.deleteSession)

	return r
}

type createRequest struct {
	Actor     string `json:"actor"`
	Menu      string `json:"menu"`
	StartNode string `json:"start_node,omitempty"`
}

type inputRequest struct {
	Input string `json:"input"`
}

type sessionResponse struct {
	Actor  string   `json:"actor"`
	Node   string   `json:"node,omitempty"`
	Closed bool     `json:"closed"`
	Output []string `json:"output,omitempty"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var body createRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if body.Actor == "" {
		http.Error(w, "actor is required", http.StatusBadRequest)
		return
	}
	source, ok := s.menus[body.Menu]
	if !ok {
		http.Error(w, "unknown menu", http.StatusNotFound)
		return
	}

	lock := s.actorLock(body.Actor)
	lock.Lock()
	defer lock.Unlock()

	actor := domain.ActorKey(body.Actor)
	opts := []espalier.Option{
		espalier.WithTransport(s.buffer),
		espalier.WithRegistry(s.registry),
		espalier.WithMetrics(s.promReg),
		espalier.WithLogger(s.logger),
		espalier.WithExitCommand(""),
	}
	if body.StartNode != "" {
		opts = append(opts, espalier.WithStartNode(body.StartNode))
	}

	eng, err := espalier.Open(actor, source, opts...)
	if err != nil {
		var cfgErr *domain.ConfigError
		if errors.As(err, &cfgErr) {
			http.Error(w, cfgErr.Error(), http.StatusUnprocessableEntity)
			return
		}
		s.logger.Error("failed to open session", "actor", body.Actor, "err", err)
		http.Error(w, "failed to open session", http.StatusInternalServerError)
		return
	}

	s.track(body.Actor, eng)
	s.respond(w, http.StatusCreated, body.Actor, eng)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "actor")
	lock := s.actorLock(key)
	lock.Lock()
	defer lock.Unlock()

	eng := s.lookup(key)
	if eng == nil {
		http.Error(w, "no session for actor", http.StatusNotFound)
		return
	}
	s.respond(w, http.StatusOK, key, eng)
}

func (s *Server) postInput(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "actor")

	// the engine is not safe for concurrent use; serialize every request
	// driving this actor's session, drain included
	lock := s.actorLock(key)
	lock.Lock()
	defer lock.Unlock()

	eng := s.lookup(key)
	if eng == nil {
		http.Error(w, "no session for actor", http.StatusNotFound)
		return
	}

	var body inputRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := eng.ParseInput(body.Input); err != nil {
		s.logger.Error("input dispatch failed", "actor", key, "err", err)
		http.Error(w, "input dispatch failed", http.StatusInternalServerError)
		return
	}
	s.respond(w, http.StatusOK, key, eng)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "actor")
	lock := s.actorLock(key)
	lock.Lock()
	defer lock.Unlock()

	eng := s.lookup(key)
	if eng == nil {
		http.Error(w, "no session for actor", http.StatusNotFound)
		return
	}
	if err := eng.Close(); err != nil {
		s.logger.Error("failed to close session", "actor", key, "err", err)
	}
	s.respond(w, http.StatusOK, key, eng)
}

// respond drains the actor's buffered output into the response and drops
// sessions that reached a terminal node.
func (s *Server) respond(w http.ResponseWriter, status int, key string, eng *espalier.Engine) {
	resp := sessionResponse{
		Actor:  key,
		Closed: eng.Closed(),
		Output: s.buffer.Drain(key),
	}
	if !resp.Closed {
		resp.Node = eng.Node()
	} else {
		s.untrack(key)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("failed to encode response", "err", err)
	}
}

func (s *Server) track(key string, eng *espalier.Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engines[key] = eng
}

func (s *Server) untrack(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.engines, key)
}

func (s *Server) lookup(key string) *espalier.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engines[key]
}

// actorLock returns the mutex serializing requests for one actor key. Locks
// outlive their session so a recreate reuses the same one.
func (s *Server) actorLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

// outputBuffer collects display text per actor until the next response
// drains it. It is the Transport of every HTTP-driven session.
type outputBuffer struct {
	mu    sync.Mutex
	lines map[string][]string
}

func newOutputBuffer() *outputBuffer {
	return &outputBuffer{lines: make(map[string][]string)}
}

func (b *outputBuffer) Send(actor domain.Actor, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines[actor.Key()] = append(b.lines[actor.Key()], text)
	return nil
}

func (b *outputBuffer) Drain(key string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.lines[key]
	delete(b.lines, key)
	return out
}
