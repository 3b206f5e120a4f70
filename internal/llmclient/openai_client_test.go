package llmclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/webgym/internal/config"
)

const openAISuccessBody = `{
	"id": "chatcmpl-1", "object": "chat.completion", "created": 1700000000, "model": "gpt-3.5-turbo",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"action\": {\"name\": \"click\"}}"}, "finish_reason": "stop"}],
	"usage": {"prompt_tokens": 20, "completion_tokens": 6, "total_tokens": 26}
}`

func setupOpenAIClient(t *testing.T, cfg config.LLMConfig, handler http.HandlerFunc) (*OpenAIClient, *observer.ObservedLogs) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	loggerCore, observedLogs := observer.New(zap.InfoLevel)
	cfg.Provider = config.ProviderOpenAI
	cfg.Endpoint = server.URL + "/v1/"

	client, err := NewOpenAIClient(cfg, zap.New(loggerCore))
	require.NoError(t, err)
	client.requester.backoffFactory = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return client, observedLogs
}

func TestNewOpenAIClient(t *testing.T) {
	cfg := getValidLLMConfig()
	cfg.Endpoint = ""
	client, err := NewOpenAIClient(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, defaultOpenAIBaseURL, client.baseURL)

	cfg.APIKey = ""
	_, err = NewOpenAIClient(cfg, nil)
	assert.ErrorContains(t, err, "OpenAI API key is required")
}

func TestOpenAIBuildParams(t *testing.T) {
	client, _ := setupOpenAIClient(t, getValidLLMConfig(), countingHandler(new(int32), http.StatusOK, openAISuccessBody))

	params := client.buildParams(createTestRequest())
	assert.Len(t, params.Messages.Value, 2)
	assert.Equal(t, "test-model", params.Model.Value)
	assert.InDelta(t, 0.2, params.Temperature.Value, 1e-9)
	assert.InDelta(t, 0.9, params.TopP.Value, 1e-6)
	assert.EqualValues(t, 256, params.MaxTokens.Value)

	req := createTestRequest()
	req.SystemPrompt = ""
	assert.Len(t, client.buildParams(req).Messages.Value, 1)
}

func TestOpenAIGenerate_Success(t *testing.T) {
	var calls int32
	var gotPath, gotAuth string
	handler := func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, openAISuccessBody)
	}
	client, observedLogs := setupOpenAIClient(t, getValidLLMConfig(), handler)

	out, err := client.Generate(context.Background(), createTestRequest())
	require.NoError(t, err)
	assert.Equal(t, `{"action": {"name": "click"}}`, out)
	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Equal(t, "Bearer test-api-key", gotAuth)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	require.Equal(t, 1, observedLogs.Len())
	assert.EqualValues(t, 26, observedLogs.All()[0].ContextMap()["total_tokens"])
}

func TestOpenAIGenerate_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCalls int32
	}{
		{name: "rate limited is retried", status: http.StatusTooManyRequests, body: `{"error": {"message": "slow down", "type": "rate_limit"}}`, wantCalls: 3},
		{name: "bad request is permanent", status: http.StatusBadRequest, body: `{"error": {"message": "bad", "type": "invalid_request_error"}}`, wantCalls: 1},
		{name: "no choices is permanent", status: http.StatusOK, body: `{"id": "x", "object": "chat.completion", "choices": []}`, wantCalls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			cfg := getValidLLMConfig()
			cfg.MaxRetries = 2
			client, _ := setupOpenAIClient(t, cfg, countingHandler(&calls, tt.status, tt.body))

			_, err := client.Generate(context.Background(), createTestRequest())
			assert.Error(t, err)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
		})
	}
}
