package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/complyline/kbengine/internal/core/domain"
	"github.com/complyline/kbengine/internal/core/ports/driving"
	"github.com/complyline/kbengine/internal/logger"
)

// Server exposes the engine's operations over a JSON API.
type Server struct {
	sync       driving.SyncService
	retrieval  driving.RetrievalService
	answers    driving.AnswerService
	defaultOrg string
}

// NewServer creates the API server. Requests may select an organisation via
// the org query parameter; defaultOrg applies when they do not.
func NewServer(
	sync driving.SyncService,
	retrieval driving.RetrievalService,
	answers driving.AnswerService,
	defaultOrg string,
) *Server {
	return &Server{
		sync:       sync,
		retrieval:  retrieval,
		answers:    answers,
		defaultOrg: defaultOrg,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sync", s.handleStartSync)
	mux.HandleFunc("GET /api/sync/jobs/{id}", s.handleJobStatus)
	mux.HandleFunc("GET /api/kb/status", s.handleKBStatus)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("POST /api/ask", s.handleAsk)
	mux.HandleFunc("GET /api/records/{id}/similar", s.handleFindSimilar)
	return mux
}

func (s *Server) org(r *http.Request) string {
	if org := r.URL.Query().Get("org"); org != "" {
		return org
	}
	return s.defaultOrg
}

// ==================== Handlers ====================

type startSyncRequest struct {
	Kind string `json:"kind"`
	Mode string `json:"mode"`
}

type startSyncResponse struct {
	JobID string `json:"job_id"`
}

func (s *Server) handleStartSync(w http.ResponseWriter, r *http.Request) {
	var req startSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mode := domain.SyncMode(req.Mode)
	if req.Mode == "" {
		mode = domain.SyncIncremental
	}

	jobID, err := s.sync.StartSync(r.Context(), s.org(r), domain.RecordKind(req.Kind), mode)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, startSyncResponse{JobID: jobID})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.sync.JobStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobJSON(job))
}

type kbStatusResponse struct {
	IndexedRecords int      `json:"indexed_records"`
	TotalChunks    int      `json:"total_chunks"`
	LastSync       *jobJSON `json:"last_sync,omitempty"`
	IncompleteSync *jobJSON `json:"incomplete_sync,omitempty"`
}

func (s *Server) handleKBStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.sync.KBStatus(r.Context(), s.org(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	resp := kbStatusResponse{
		IndexedRecords: status.IndexedRecords,
		TotalChunks:    status.TotalChunks,
	}
	if status.LastSync != nil {
		resp.LastSync = toJobJSON(status.LastSync)
	}
	if status.IncompleteSync != nil {
		resp.IncompleteSync = toJobJSON(status.IncompleteSync)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := domain.SearchOptions{
		Limit:    queryInt(q.Get("limit")),
		Kind:     domain.RecordKind(q.Get("kind")),
		Status:   q.Get("status"),
		Category: q.Get("category"),
		Team:     q.Get("team"),
	}

	results, err := s.retrieval.Search(r.Context(), s.org(r), q.Get("q"), opts)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResultsJSON(results))
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer  string       `json:"answer"`
	Sources []sourceJSON `json:"sources"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answer, err := s.answers.Ask(r.Context(), s.org(r), req.Question)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	resp := askResponse{Answer: answer.Text, Sources: make([]sourceJSON, 0, len(answer.Sources))}
	for _, src := range answer.Sources {
		resp.Sources = append(resp.Sources, sourceJSON{
			RecordID:   src.RecordID,
			Title:      src.Title,
			Similarity: src.Similarity,
			Snippet:    src.Snippet,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFindSimilar(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r.URL.Query().Get("limit"))

	results, err := s.retrieval.FindSimilar(r.Context(), s.org(r), r.PathValue("id"), limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResultsJSON(results))
}

// ==================== Wire Types ====================

type jobJSON struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Mode       string `json:"mode,omitempty"`
	Status     string `json:"status"`
	Total      int    `json:"total"`
	Progress   int    `json:"progress"`
	Message    string `json:"message,omitempty"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
}

func toJobJSON(job *domain.SyncJob) *jobJSON {
	j := &jobJSON{
		ID:        job.ID,
		Kind:      string(job.Kind),
		Mode:      string(job.Mode),
		Status:    string(job.Status),
		Total:     job.Total,
		Progress:  job.Progress,
		Message:   job.Message,
		StartedAt: job.StartedAt.UTC().Format(time.RFC3339),
	}
	if !job.FinishedAt.IsZero() {
		j.FinishedAt = job.FinishedAt.UTC().Format(time.RFC3339)
	}
	return j
}

type sourceJSON struct {
	RecordID   string  `json:"record_id"`
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
	Snippet    string  `json:"snippet"`
}

type resultJSON struct {
	RecordID   string  `json:"record_id"`
	ChunkIndex int     `json:"chunk_index"`
	Title      string  `json:"title"`
	Kind       string  `json:"kind"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

type searchResponse struct {
	Results []resultJSON `json:"results"`
}

func toResultsJSON(results []domain.SearchResult) searchResponse {
	out := searchResponse{Results: make([]resultJSON, 0, len(results))}
	for _, res := range results {
		out.Results = append(out.Results, resultJSON{
			RecordID:   res.Chunk.RecordID,
			ChunkIndex: res.Chunk.Index,
			Title:      res.Chunk.Meta.Title,
			Kind:       string(res.Chunk.Meta.Kind),
			Content:    res.Chunk.Content,
			Similarity: res.Similarity,
		})
	}
	return out
}

type errorResponse struct {
	Error string `json:"error"`
}

// ==================== Helpers ====================

// writeServiceError maps domain errors onto HTTP status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	var cooldown *domain.CooldownError
	switch {
	case errors.As(err, &cooldown):
		w.Header().Set("Retry-After", strconv.Itoa(int(cooldown.Remaining.Seconds())+1))
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrSyncInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrEmbeddingUnavailable), errors.Is(err, domain.ErrLLMUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		logger.Warn("api error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn("encoding response: %v", err)
	}
}

func queryInt(raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
