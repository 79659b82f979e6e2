package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complyline/kbengine/internal/core/ports/driven"
)

// newChatServer returns a fake OpenAI chat-completions endpoint that records
// the last request body and answers with a fixed reply.
func newChatServer(t *testing.T, lastReq *chatCompletionRequest, status int, body string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(lastReq))
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
}

func newTestLLM(t *testing.T, baseURL string) *LLMService {
	t.Helper()

	svc, err := NewLLMService(Config{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Model:   "gpt-4o-mini",
	})
	require.NoError(t, err)
	return svc
}

func TestNewLLMService_RequiresAPIKey(t *testing.T) {
	_, err := NewLLMService(Config{})

	assert.Error(t, err)
}

func TestChat_SendsMessagesAndOptions(t *testing.T) {
	var lastReq chatCompletionRequest
	server := newChatServer(t, &lastReq, http.StatusOK,
		`{"choices":[{"message":{"content":"the reply"},"finish_reason":"stop"}]}`)
	defer server.Close()

	svc := newTestLLM(t, server.URL)

	reply, err := svc.Chat(context.Background(), []driven.ChatMessage{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "question"},
	}, driven.ChatOptions{MaxTokens: 256, Temperature: 0.4})

	require.NoError(t, err)
	assert.Equal(t, "the reply", reply)
	assert.Equal(t, "gpt-4o-mini", lastReq.Model)
	require.Len(t, lastReq.Messages, 2)
	assert.Equal(t, "system", lastReq.Messages[0].Role)
	assert.Equal(t, "be brief", lastReq.Messages[0].Content)
	assert.Equal(t, 256, lastReq.MaxTokens)
	assert.InDelta(t, 0.4, lastReq.Temperature, 1e-9)
}

func TestChat_APIError(t *testing.T) {
	var lastReq chatCompletionRequest
	server := newChatServer(t, &lastReq, http.StatusTooManyRequests,
		`{"error":{"message":"rate limited","type":"rate_limit_error"}}`)
	defer server.Close()

	svc := newTestLLM(t, server.URL)

	_, err := svc.Chat(context.Background(), []driven.ChatMessage{
		{Role: "user", Content: "question"},
	}, driven.ChatOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestChat_NoChoices(t *testing.T) {
	var lastReq chatCompletionRequest
	server := newChatServer(t, &lastReq, http.StatusOK, `{"choices":[]}`)
	defer server.Close()

	svc := newTestLLM(t, server.URL)

	_, err := svc.Chat(context.Background(), []driven.ChatMessage{
		{Role: "user", Content: "question"},
	}, driven.ChatOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestModelName_Default(t *testing.T) {
	svc, err := NewLLMService(Config{APIKey: "test-key"})

	require.NoError(t, err)
	assert.Equal(t, DefaultModel, svc.ModelName())
}
