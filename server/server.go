// Package server exposes the review workflow and clone management over HTTP.
//
// Routes:
//
//	POST   /api/ping/
//	POST   /api/llm/prompt/
//	POST   /api/agent/analyze/{kind}/
//	POST   /api/agent/analyze/{kind}/stream/
//	POST   /api/clone/
//	DELETE /api/clone/
//	GET    /api/clone/list/
//	GET    /api/session/{id}/
//
// Errors are returned as {"error": "..."} with a 4xx or 5xx status.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/smallnest/reviewgraph/llms"
	"github.com/smallnest/reviewgraph/log"
	"github.com/smallnest/reviewgraph/repo"
	"github.com/smallnest/reviewgraph/store"
	"github.com/smallnest/reviewgraph/workflow"
)

// MaxPingLength is the longest text /api/ping/ and /api/llm/prompt/ accept.
const MaxPingLength = 1024

// Runner runs one kind of analysis. *workflow.Workflow implements it.
type Runner interface {
	Run(ctx context.Context, task string, maxRevisions int, sessionID string) (workflow.Result, error)
	Stream(ctx context.Context, task string, maxRevisions int, sessionID string) (<-chan workflow.Event, string, error)
}

var _ Runner = (*workflow.Workflow)(nil)

// Server holds the HTTP handlers.
type Server struct {
	repos        *repo.Manager
	runners      map[workflow.Kind]Runner
	store        store.CheckpointStore
	llm          llms.Client
	maxRevisions int
	logger       log.Logger
	mux          *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithStore enables the session endpoint.
func WithStore(s store.CheckpointStore) Option {
	return func(srv *Server) { srv.store = s }
}

// WithLLM enables /api/llm/prompt/.
func WithLLM(c llms.Client) Option {
	return func(srv *Server) { srv.llm = c }
}

// WithLogger sets the request logger.
func WithLogger(l log.Logger) Option {
	return func(srv *Server) { srv.logger = l }
}

// WithMaxRevisions sets the revision budget used when a request omits it.
func WithMaxRevisions(n int) Option {
	return func(srv *Server) { srv.maxRevisions = n }
}

// New builds a server over a clone manager and one runner per kind.
func New(repos *repo.Manager, runners map[workflow.Kind]Runner, opts ...Option) *Server {
	s := &Server{
		repos:        repos,
		runners:      runners,
		maxRevisions: 2,
		logger:       log.GetDefaultLogger(),
		mux:          http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/ping/{$}", s.handlePing)
	s.mux.HandleFunc("POST /api/llm/prompt/{$}", s.handlePrompt)
	s.mux.HandleFunc("POST /api/agent/analyze/{kind}/{$}", s.handleAnalyze)
	s.mux.HandleFunc("POST /api/agent/analyze/{kind}/stream/{$}", s.handleAnalyzeStream)
	s.mux.HandleFunc("POST /api/clone/{$}", s.handleCloneCreate)
	s.mux.HandleFunc("DELETE /api/clone/{$}", s.handleCloneDelete)
	s.mux.HandleFunc("GET /api/clone/list/{$}", s.handleCloneList)
	s.mux.HandleFunc("GET /api/session/{id}/{$}", s.handleSession)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.mux.ServeHTTP(w, r)
	s.logger.Debug("%s %s (%v)", r.Method, r.URL.Path, time.Since(start))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// decodeBody reads a JSON object into v. An empty body is reported as such.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return errEmptyBody
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

var errEmptyBody = errors.New("empty request body")

// sendJSONResponse sends a JSON response.
func sendJSONResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// sendJSONError sends a JSON error response.
func sendJSONError(w http.ResponseWriter, status int, message string) {
	sendJSONResponse(w, status, map[string]string{"error": message})
}
