package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complyline/kbengine/internal/core/domain"
	"github.com/complyline/kbengine/internal/core/ports/driven"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		BaseURL:           server.URL,
		APIToken:          "secret-token",
		RequestsPerSecond: 1000, // don't throttle tests
	})
	require.NoError(t, err)
	return client, server
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{})

	assert.Error(t, err)
}

func TestCount(t *testing.T) {
	var gotURL string
	var gotAuth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"count": 1234}`)
	})

	after := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	count, err := client.Count(context.Background(), driven.RecordQuery{
		OrgID:         "org-1",
		Kind:          domain.KindTicket,
		ModifiedAfter: &after,
	})

	require.NoError(t, err)
	assert.Equal(t, 1234, count)
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Contains(t, gotURL, "/api/v1/records/count?")
	assert.Contains(t, gotURL, "org=org-1")
	assert.Contains(t, gotURL, "kind=ticket")
	assert.Contains(t, gotURL, "modified_after=2026-03-01T12%3A00%3A00Z")
}

func TestFetchPage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/records", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("page"))
		assert.Equal(t, "500", r.URL.Query().Get("limit"))
		fmt.Fprint(w, `{"records": [
			{"id": "doc-9", "title": "Access policy", "body": "<p>hello</p>",
			 "status": "approved", "category": "security", "team": "grc",
			 "modified_at": "2026-02-10T08:30:00Z"}
		]}`)
	})

	records, err := client.FetchPage(context.Background(), driven.RecordQuery{
		OrgID: "org-1",
		Kind:  domain.KindDocument,
	}, 3, 500)

	require.NoError(t, err)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "doc-9", rec.ExternalID)
	assert.Equal(t, "org-1", rec.OrgID)
	assert.Equal(t, domain.KindDocument, rec.Kind)
	assert.Equal(t, "Access policy", rec.Title)
	assert.Equal(t, "<p>hello</p>", rec.Body)
	assert.Equal(t, "approved", rec.Status)
	assert.Equal(t, "grc", rec.Team)
	assert.Equal(t, time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC), rec.ModifiedAt)
}

func TestFetchPage_InvalidPage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := client.FetchPage(context.Background(), driven.RecordQuery{}, 0, 500)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGet_ErrorStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	_, err := client.Count(context.Background(), driven.RecordQuery{OrgID: "org-1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestGet_NotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := client.Count(context.Background(), driven.RecordQuery{OrgID: "org-1"})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
