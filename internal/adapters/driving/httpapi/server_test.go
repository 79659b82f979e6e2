package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complyline/kbengine/internal/core/domain"
)

// ==================== Stub Services ====================

type stubSyncService struct {
	jobID    string
	startErr error
	job      *domain.SyncJob
	jobErr   error
	status   *domain.KBStatus

	gotOrg  string
	gotKind domain.RecordKind
	gotMode domain.SyncMode
}

func (s *stubSyncService) StartSync(_ context.Context, orgID string, kind domain.RecordKind, mode domain.SyncMode) (string, error) {
	s.gotOrg = orgID
	s.gotKind = kind
	s.gotMode = mode
	return s.jobID, s.startErr
}

func (s *stubSyncService) JobStatus(_ context.Context, _ string) (*domain.SyncJob, error) {
	return s.job, s.jobErr
}

func (s *stubSyncService) KBStatus(_ context.Context, _ string) (*domain.KBStatus, error) {
	return s.status, nil
}

type stubRetrievalService struct {
	results []domain.SearchResult
	err     error

	gotQuery  string
	gotRecord string
	gotLimit  int
}

func (s *stubRetrievalService) Search(_ context.Context, _, query string, _ domain.SearchOptions) ([]domain.SearchResult, error) {
	s.gotQuery = query
	return s.results, s.err
}

func (s *stubRetrievalService) FindSimilar(_ context.Context, _, recordID string, limit int) ([]domain.SearchResult, error) {
	s.gotRecord = recordID
	s.gotLimit = limit
	return s.results, s.err
}

type stubAnswerService struct {
	answer *domain.Answer
	err    error
}

func (s *stubAnswerService) Ask(_ context.Context, _, _ string) (*domain.Answer, error) {
	return s.answer, s.err
}

func testServer(sync *stubSyncService, retrieval *stubRetrievalService, answers *stubAnswerService) *httptest.Server {
	if sync == nil {
		sync = &stubSyncService{}
	}
	if retrieval == nil {
		retrieval = &stubRetrievalService{}
	}
	if answers == nil {
		answers = &stubAnswerService{}
	}
	return httptest.NewServer(NewServer(sync, retrieval, answers, "org-default").Handler())
}

func decode(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}

// ==================== Tests ====================

func TestStartSync_Accepted(t *testing.T) {
	sync := &stubSyncService{jobID: "job-42"}
	srv := testServer(sync, nil, nil)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/sync?org=acme", "application/json",
		strings.NewReader(`{"kind": "document", "mode": "full"}`))
	require.NoError(t, err)

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	var body struct {
		JobID string `json:"job_id"`
	}
	decode(t, resp, &body)
	assert.Equal(t, "job-42", body.JobID)

	assert.Equal(t, "acme", sync.gotOrg)
	assert.Equal(t, domain.KindDocument, sync.gotKind)
	assert.Equal(t, domain.SyncFull, sync.gotMode)
}

func TestStartSync_DefaultsToIncremental(t *testing.T) {
	sync := &stubSyncService{jobID: "job-1"}
	srv := testServer(sync, nil, nil)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/sync", "application/json",
		strings.NewReader(`{"kind": "ticket"}`))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, domain.SyncIncremental, sync.gotMode)
	assert.Equal(t, "org-default", sync.gotOrg)
}

func TestStartSync_CooldownMapsTo429(t *testing.T) {
	sync := &stubSyncService{startErr: &domain.CooldownError{Remaining: 12 * time.Second}}
	srv := testServer(sync, nil, nil)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/sync", "application/json",
		strings.NewReader(`{"kind": "document"}`))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "13", resp.Header.Get("Retry-After"))
}

func TestStartSync_InvalidBody(t *testing.T) {
	srv := testServer(nil, nil, nil)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/sync", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestJobStatus_NotFound(t *testing.T) {
	sync := &stubSyncService{jobErr: domain.ErrNotFound}
	srv := testServer(sync, nil, nil)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/sync/jobs/ghost")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestJobStatus_ReturnsJob(t *testing.T) {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sync := &stubSyncService{job: &domain.SyncJob{
		ID:        "job-7",
		Kind:      domain.KindDocument,
		Mode:      domain.SyncFull,
		Status:    domain.JobRunning,
		Total:     500,
		Progress:  120,
		StartedAt: started,
		UpdatedAt: started,
	}}
	srv := testServer(sync, nil, nil)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/sync/jobs/job-7")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body jobJSON
	decode(t, resp, &body)
	assert.Equal(t, "job-7", body.ID)
	assert.Equal(t, "full", body.Mode)
	assert.Equal(t, "running", body.Status)
	assert.Equal(t, 120, body.Progress)
	assert.Equal(t, "2026-03-01T12:00:00Z", body.StartedAt)
	assert.Empty(t, body.FinishedAt)
}

func TestKBStatus(t *testing.T) {
	sync := &stubSyncService{status: &domain.KBStatus{
		IndexedRecords: 42,
		TotalChunks:    480,
		LastSync: &domain.SyncJob{
			ID:         "job-9",
			Status:     domain.JobCompleted,
			FinishedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}}
	srv := testServer(sync, nil, nil)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/kb/status")
	require.NoError(t, err)

	var body kbStatusResponse
	decode(t, resp, &body)
	assert.Equal(t, 42, body.IndexedRecords)
	assert.Equal(t, 480, body.TotalChunks)
	require.NotNil(t, body.LastSync)
	assert.Equal(t, "job-9", body.LastSync.ID)
	assert.Nil(t, body.IncompleteSync)
}

func TestSearch_ReturnsResults(t *testing.T) {
	retrieval := &stubRetrievalService{results: []domain.SearchResult{{
		Chunk: domain.Chunk{
			RecordID: "rec-1",
			Index:    0,
			Content:  "retention is 90 days",
			Meta:     domain.ChunkMeta{Kind: domain.KindDocument, Title: "Retention Policy"},
		},
		Similarity: 0.93,
	}}}
	srv := testServer(nil, retrieval, nil)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/search?q=retention")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body searchResponse
	decode(t, resp, &body)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "rec-1", body.Results[0].RecordID)
	assert.Equal(t, "Retention Policy", body.Results[0].Title)
	assert.InDelta(t, 0.93, body.Results[0].Similarity, 1e-9)

	assert.Equal(t, "retention", retrieval.gotQuery)
}

func TestAsk_ReturnsAnswerAndSources(t *testing.T) {
	answers := &stubAnswerService{answer: &domain.Answer{
		Text: "Backups are retained for 90 days [Source 1].",
		Sources: []domain.AnswerSource{{
			RecordID:   "rec-1",
			Title:      "Backup Policy",
			Similarity: 0.91,
			Snippet:    "Backups are retained...",
		}},
	}}
	srv := testServer(nil, nil, answers)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/ask", "application/json",
		strings.NewReader(`{"question": "how long are backups retained?"}`))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body askResponse
	decode(t, resp, &body)
	assert.Contains(t, body.Answer, "90 days")
	require.Len(t, body.Sources, 1)
	assert.Equal(t, "Backup Policy", body.Sources[0].Title)
}

func TestAsk_LLMUnavailable(t *testing.T) {
	answers := &stubAnswerService{err: domain.ErrLLMUnavailable}
	srv := testServer(nil, nil, answers)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/ask", "application/json",
		strings.NewReader(`{"question": "anything"}`))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestFindSimilar_PassesPathAndLimit(t *testing.T) {
	retrieval := &stubRetrievalService{}
	srv := testServer(nil, retrieval, nil)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/records/rec-123/similar?limit=3")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "rec-123", retrieval.gotRecord)
	assert.Equal(t, 3, retrieval.gotLimit)
}
