package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/embedgate/internal/pkg/errs"
)

func newOpenAIServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(handler)
}

func TestOpenAIChat_Success(t *testing.T) {
	server := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"content": "Paris."}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
		}`))
	})
	defer server.Close()

	provider := &openAIProvider{apiKey: "test-key", baseURL: server.URL, client: http.DefaultClient}
	reply, err := provider.Chat(context.Background(), "gpt-4", "What is the capital of France?", ChatOptions{Temperature: 0.7, MaxTokens: 256})
	require.NoError(t, err)
	require.Equal(t, "Paris.", reply.Message)
	require.Equal(t, uint32(12), reply.Usage.PromptTokens)
	require.Equal(t, uint32(3), reply.Usage.CompletionTokens)
	require.Equal(t, uint32(15), reply.Usage.TotalTokens)
}

func TestOpenAIChat_MissingUsageDefaultsToZero(t *testing.T) {
	server := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "ok"}}]}`))
	})
	defer server.Close()

	provider := &openAIProvider{apiKey: "test-key", baseURL: server.URL, client: http.DefaultClient}
	reply, err := provider.Chat(context.Background(), "gpt-4", "hi", ChatOptions{})
	require.NoError(t, err)
	require.Equal(t, "ok", reply.Message)
	require.Zero(t, reply.Usage.PromptTokens)
	require.Zero(t, reply.Usage.CompletionTokens)
	require.Zero(t, reply.Usage.TotalTokens)
}

func TestOpenAIChat_NoChoicesIsMalformed(t *testing.T) {
	server := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	})
	defer server.Close()

	provider := &openAIProvider{apiKey: "test-key", baseURL: server.URL, client: http.DefaultClient}
	_, err := provider.Chat(context.Background(), "gpt-4", "hi", ChatOptions{})
	require.ErrorIs(t, err, errs.ErrMalformedUpstream)
}

func TestOpenAIChat_UpstreamError(t *testing.T) {
	server := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "quota exceeded"}`, http.StatusTooManyRequests)
	})
	defer server.Close()

	provider := &openAIProvider{apiKey: "test-key", baseURL: server.URL, client: http.DefaultClient}
	_, err := provider.Chat(context.Background(), "gpt-4", "hi", ChatOptions{})
	require.ErrorIs(t, err, errs.ErrUpstreamChat)
	require.Contains(t, err.Error(), "429")
}

func TestOpenAIChat_TimeoutClassified(t *testing.T) {
	server := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	})
	defer server.Close()

	provider := &openAIProvider{apiKey: "test-key", baseURL: server.URL, client: http.DefaultClient}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := provider.Chat(ctx, "gpt-4", "hi", ChatOptions{})
	require.ErrorIs(t, err, errs.ErrUpstreamTimeout)
}

func TestOpenAIChat_NoKeyUnavailable(t *testing.T) {
	provider := &openAIProvider{apiKey: "", baseURL: defaultOpenAIBaseURL, client: http.DefaultClient}
	_, err := provider.Chat(context.Background(), "gpt-4", "hi", ChatOptions{})
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestOpenAIEmbed_Success(t *testing.T) {
	server := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		_, _ = w.Write([]byte(`{"data": [{"embedding": [0.1, 0.2, 0.3]}]}`))
	})
	defer server.Close()

	provider := &openAIEmbedProvider{apiKey: "test-key", baseURL: server.URL, client: http.DefaultClient}
	vec, err := provider.Embed(context.Background(), "text-embedding-3-large", "hello world")
	require.NoError(t, err)
	require.InDeltaSlice(t, []float32{0.1, 0.2, 0.3}, vec, 1e-6)
}

func TestOpenAIEmbed_NoDataIsMalformed(t *testing.T) {
	server := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": []}`))
	})
	defer server.Close()

	provider := &openAIEmbedProvider{apiKey: "test-key", baseURL: server.URL, client: http.DefaultClient}
	_, err := provider.Embed(context.Background(), "text-embedding-3-large", "hello")
	require.ErrorIs(t, err, errs.ErrMalformedUpstream)
}

func TestOpenAIEmbed_UpstreamError(t *testing.T) {
	server := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	defer server.Close()

	provider := &openAIEmbedProvider{apiKey: "test-key", baseURL: server.URL, client: http.DefaultClient}
	_, err := provider.Embed(context.Background(), "text-embedding-3-large", "hello")
	require.ErrorIs(t, err, errs.ErrUpstreamEmbedding)
}

func TestNewChatProvider_Unknown(t *testing.T) {
	_, err := NewChatProvider("unknown", map[string]interface{}{})
	require.Error(t, err)
}

func TestNewEmbedProvider_Registered(t *testing.T) {
	provider, err := NewEmbedProvider("openai", map[string]interface{}{"api_key": "k"})
	require.NoError(t, err)
	require.Equal(t, "openai", provider.Name())
}
