package server

import (
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/smallnest/reviewgraph/llms"
	"github.com/smallnest/reviewgraph/repo"
	"github.com/smallnest/reviewgraph/report"
	"github.com/smallnest/reviewgraph/store"
	"github.com/smallnest/reviewgraph/workflow"
)

type pingRequest struct {
	Text string `json:"text"`
}

type pingResponse struct {
	Text     string `json:"text"`
	Reversed string `json:"reversed"`
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	text, ok := readText(w, r)
	if !ok {
		return
	}
	sendJSONResponse(w, http.StatusOK, pingResponse{Text: text, Reversed: reverse(text)})
}

// readText validates a {"text": ...} body of at most MaxPingLength characters.
func readText(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req pingRequest
	if err := decodeBody(r, &req); err != nil {
		sendJSONError(w, http.StatusBadRequest, "Please provide text in the request body")
		return "", false
	}
	if req.Text == "" {
		sendJSONError(w, http.StatusBadRequest, "Text parameter is required")
		return "", false
	}
	if len([]rune(req.Text)) > MaxPingLength {
		sendJSONError(w, http.StatusBadRequest, "Text exceeds maximum length of 1024 characters")
		return "", false
	}
	return req.Text, true
}

type promptResponse struct {
	Text     string `json:"text"`
	Response string `json:"response"`
}

func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	if s.llm == nil {
		sendJSONError(w, http.StatusServiceUnavailable, "text generation is not configured")
		return
	}
	text, ok := readText(w, r)
	if !ok {
		return
	}

	out, err := s.llm.Generate(r.Context(), []llms.Message{llms.User(text)})
	if err != nil {
		s.logger.Error("prompt failed: %v", err)
		sendJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sendJSONResponse(w, http.StatusOK, promptResponse{Text: text, Response: out})
}

func reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

type analyzeRequest struct {
	Repo         string `json:"repo"`
	MaxRevisions int    `json:"max_revisions,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
	// Format "html" adds the rendered report and its outline.
	Format string `json:"format,omitempty"`
	// WritePath, when set, stores the draft inside the clone, e.g. "docs/ai/codereview.md".
	WritePath string `json:"write_path,omitempty"`
}

type analyzeResponse struct {
	Status         string           `json:"status"`
	Content        string           `json:"content"`
	SessionID      string           `json:"session_id"`
	RevisionNumber int              `json:"revision_number"`
	HTML           string           `json:"html,omitempty"`
	Outline        []report.Heading `json:"outline,omitempty"`
	Written        string           `json:"written,omitempty"`
}

// prepare validates an analyze request and builds the task text.
// It writes the error response itself and returns ok=false on failure.
func (s *Server) prepare(w http.ResponseWriter, r *http.Request) (runner Runner, req analyzeRequest, ref repo.Ref, task string, ok bool) {
	kind, err := workflow.ParseKind(r.PathValue("kind"))
	if err != nil {
		sendJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	runner, found := s.runners[kind]
	if !found {
		sendJSONError(w, http.StatusNotFound, "analysis kind not configured: "+string(kind))
		return
	}

	if err := decodeBody(r, &req); err != nil {
		sendJSONError(w, http.StatusBadRequest, "Please provide repository string in the request body")
		return
	}
	if req.Repo == "" {
		sendJSONError(w, http.StatusBadRequest, "Repository parameter is required")
		return
	}
	ref, err = repo.ParseRepository(req.Repo)
	if err != nil {
		sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.MaxRevisions == 0 {
		req.MaxRevisions = s.maxRevisions
	}

	files, err := s.repos.FormatFiles(ref)
	if errors.Is(err, repo.ErrCloneNotFound) {
		sendJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		sendJSONError(w, http.StatusInternalServerError, "Failed to read files: "+err.Error())
		return
	}
	return runner, req, ref, workflow.BuildTask(kind, files), true
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	runner, req, ref, task, ok := s.prepare(w, r)
	if !ok {
		return
	}

	res, err := runner.Run(r.Context(), task, req.MaxRevisions, req.SessionID)
	if err != nil {
		var inputErr *workflow.InputError
		if errors.As(err, &inputErr) {
			sendJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("analyze %s failed: %v", ref, err)
		sendJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if res.Draft == "" {
		sendJSONError(w, http.StatusInternalServerError, "Analyze content not found")
		return
	}

	resp := analyzeResponse{
		Status:         "success",
		Content:        res.Draft,
		SessionID:      res.SessionID,
		RevisionNumber: res.RevisionNumber,
	}
	if strings.EqualFold(req.Format, "html") {
		resp.HTML = report.Render(res.Draft)
		outline, err := report.Outline(resp.HTML)
		if err != nil {
			sendJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Outline = outline
	}
	if req.WritePath != "" {
		dir, name := path.Split(req.WritePath)
		written, err := s.repos.WriteFile(ref, dir, name, res.Draft)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, repo.ErrPathEscape) {
				status = http.StatusBadRequest
			}
			sendJSONError(w, status, err.Error())
			return
		}
		resp.Written = written
	}
	sendJSONResponse(w, http.StatusOK, resp)
}

type cloneRequest struct {
	Repo string `json:"repo"`
}

func (s *Server) parseCloneRequest(w http.ResponseWriter, r *http.Request) (repo.Ref, bool) {
	var req cloneRequest
	if err := decodeBody(r, &req); err != nil {
		sendJSONError(w, http.StatusBadRequest, "Please provide repository string in the request body")
		return repo.Ref{}, false
	}
	if req.Repo == "" {
		sendJSONError(w, http.StatusBadRequest, "Repository parameter is required")
		return repo.Ref{}, false
	}
	ref, err := repo.ParseRepository(req.Repo)
	if err != nil {
		sendJSONError(w, http.StatusBadRequest, err.Error())
		return repo.Ref{}, false
	}
	return ref, true
}

func (s *Server) handleCloneCreate(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.parseCloneRequest(w, r)
	if !ok {
		return
	}
	if _, err := s.repos.Clone(r.Context(), ref); err != nil {
		s.logger.Error("clone %s failed: %v", ref, err)
		sendJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sendJSONResponse(w, http.StatusCreated, map[string]string{
		"status": "success",
		"owner":  ref.Owner,
		"repo":   ref.Repo,
		"branch": ref.Branch,
	})
}

func (s *Server) handleCloneDelete(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.parseCloneRequest(w, r)
	if !ok {
		return
	}
	dir, err := s.repos.Delete(ref)
	if errors.Is(err, repo.ErrCloneNotFound) {
		sendJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		sendJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sendJSONResponse(w, http.StatusOK, map[string]string{
		"status":     "success",
		"repository": ref.String(),
		"path":       dir,
	})
}

func (s *Server) handleCloneList(w http.ResponseWriter, _ *http.Request) {
	clones, err := s.repos.List()
	if err != nil {
		sendJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if clones == nil {
		clones = []string{}
	}
	sendJSONResponse(w, http.StatusOK, map[string]any{"clones": clones})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		sendJSONError(w, http.StatusNotFound, "checkpointing is disabled")
		return
	}
	id := r.PathValue("id")
	steps, err := workflow.Trace(r.Context(), s.store, id)
	if err != nil {
		sendJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(steps) == 0 {
		sendJSONError(w, http.StatusNotFound, store.ErrNotFound.Error())
		return
	}
	sendJSONResponse(w, http.StatusOK, map[string]any{"session_id": id, "steps": steps})
}
