package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGoogleProvider(t *testing.T, baseURL string) *GoogleProvider {
	t.Helper()
	t.Setenv(googleEnvKey, "test-key")
	p := NewGoogleProvider(Settings{ID: "google", BaseURL: baseURL})
	require.NoError(t, p.Initialize(context.Background()))
	return p
}

func TestGoogleInitializeRequiresKey(t *testing.T) {
	t.Setenv(googleEnvKey, "")
	p := NewGoogleProvider(Settings{ID: "google"})
	err := p.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), googleEnvKey)
}

func TestGoogleModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		fmt.Fprint(w, `{"models": [
			{"name": "models/gemini-2.0-flash", "displayName": "Gemini 2.0 Flash",
			 "inputTokenLimit": 1048576, "supportedGenerationMethods": ["generateContent"]},
			{"name": "models/embedding-001", "displayName": "Embedding",
			 "inputTokenLimit": 2048, "supportedGenerationMethods": ["embedContent"]}
		]}`)
	}))
	defer server.Close()

	p := newGoogleProvider(t, server.URL)
	models, err := p.Models(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "gemini-2.0-flash", models[0].ID)
	assert.Equal(t, "Gemini 2.0 Flash", models[0].Name)
	assert.Equal(t, 1048576, models[0].ContextLength)
}

func TestGoogleModelsBadKeyFailsLoudly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": {"message": "API key not valid", "status": "INVALID_ARGUMENT"}}`)
	}))
	defer server.Close()

	p := newGoogleProvider(t, server.URL)
	_, err := p.Models(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key not valid")
}

func TestGoogleStreamChat(t *testing.T) {
	var gotReq googleChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.0-flash:streamGenerateContent", r.URL.Path)
		assert.Equal(t, "sse", r.URL.Query().Get("alt"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":\"Hello\"}]}}]}\n\n")
		fmt.Fprint(w, "data: {\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":\" from Gemini\"}]}}]}\n\n")
	}))
	defer server.Close()

	p := newGoogleProvider(t, server.URL)
	ch, err := p.StreamChat(context.Background(), "gemini-2.0-flash", []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
		{Role: RoleUser, Content: "again"},
	}, ChatOptions{Temperature: 0.7, MaxTokens: 64})
	require.NoError(t, err)

	got, err := collectStream(t, ch)
	require.NoError(t, err)
	assert.Equal(t, "Hello from Gemini", got)

	// System prompt becomes systemInstruction, assistant turns map to
	// the "model" role.
	require.NotNil(t, gotReq.SystemInstruction)
	assert.Equal(t, "be brief", gotReq.SystemInstruction.Parts[0].Text)
	require.Len(t, gotReq.Contents, 3)
	assert.Equal(t, "user", gotReq.Contents[0].Role)
	assert.Equal(t, "model", gotReq.Contents[1].Role)
}
