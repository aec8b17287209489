package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completion = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "gemini-2.0-flash",
	"choices": [{
		"index": 0,
		"finish_reason": "stop",
		"message": {"role": "assistant", "content": "Status: YES\nEvidence: Delaware\nRemediation: N/A"}
	}]
}`

func TestJudge_SendsPromptAndReturnsReply(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completion))
	}))
	defer srv.Close()

	j := New(Config{BaseURL: srv.URL + "/", APIKey: "test-key", Model: "models/gemini-2.0-flash"})
	out, err := j.Judge(context.Background(), "Is it compliant?")
	require.NoError(t, err)
	assert.Equal(t, "Status: YES\nEvidence: Delaware\nRemediation: N/A", out)

	assert.Equal(t, "gemini-2.0-flash", body["model"])
	assert.InDelta(t, 0.3, body["temperature"], 1e-9)
	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 1)
	msg := msgs[0].(map[string]any)
	assert.Equal(t, "user", msg["role"])
	assert.Equal(t, "Is it compliant?", msg["content"])
}

func TestJudge_ServerErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": {"message": "overloaded"}}`))
	}))
	defer srv.Close()

	j := New(Config{BaseURL: srv.URL + "/", APIKey: "k"})
	_, err := j.Judge(context.Background(), "prompt")
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestJudge_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "object": "chat.completion", "choices": []}`))
	}))
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL + "/", APIKey: "k"}).Judge(context.Background(), "prompt")
	assert.ErrorContains(t, err, "no choices")
}

func TestNew_Defaults(t *testing.T) {
	j := New(Config{APIKey: "k"})
	assert.Equal(t, DefaultModel, j.Model())
	assert.InDelta(t, DefaultTemperature, j.temperature, 1e-9)
}
