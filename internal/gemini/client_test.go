package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUpstream(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerate_ReturnsFirstCandidateText(t *testing.T) {
	var got map[string]any
	var gotPath, gotKey string
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"Answer"}]}}]}`)
	})

	c := NewClient(Config{APIKey: "secret", BaseURL: srv.URL, Model: "gemini-test"})
	text, err := c.Generate(context.Background(), Request{Prompt: "hello", System: "be brief"})
	require.NoError(t, err)
	assert.Equal(t, "Answer", text)

	assert.Equal(t, "/models/gemini-test:generateContent", gotPath)
	assert.Equal(t, "secret", gotKey)

	contents := got["contents"].([]any)
	require.Len(t, contents, 1)
	first := contents[0].(map[string]any)
	assert.Equal(t, "user", first["role"])
	assert.Equal(t, "hello", first["parts"].([]any)[0].(map[string]any)["text"])

	sys := got["systemInstruction"].(map[string]any)
	assert.Equal(t, "be brief", sys["parts"].([]any)[0].(map[string]any)["text"])
	_, hasConfig := got["generationConfig"]
	assert.False(t, hasConfig)
}

func TestGenerate_SchemaRequestsJSON(t *testing.T) {
	var got map[string]any
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &got))
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"{\"ok\":true}"}]}}]}`)
	})

	schema := &Schema{
		Type:       "OBJECT",
		Properties: map[string]*Schema{"ok": {Type: "BOOLEAN"}},
		Required:   []string{"ok"},
	}
	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL})
	text, err := c.Generate(context.Background(), Request{Prompt: "p", Schema: schema})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, text)

	cfg := got["generationConfig"].(map[string]any)
	assert.Equal(t, "application/json", cfg["responseMimeType"])
	rs := cfg["responseSchema"].(map[string]any)
	assert.Equal(t, "OBJECT", rs["type"])
	_, hasSystem := got["systemInstruction"]
	assert.False(t, hasSystem)
}

func TestGenerate_UpstreamErrorMessage(t *testing.T) {
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"quota exceeded"}}`)
	})

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL})
	_, err := c.Generate(context.Background(), Request{Prompt: "p"})
	require.Error(t, err)
	assert.Equal(t, "quota exceeded", err.Error())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
}

func TestGenerate_UpstreamErrorWithoutBody(t *testing.T) {
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "<html>bad gateway</html>")
	})

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL})
	_, err := c.Generate(context.Background(), Request{Prompt: "p"})
	require.Error(t, err)
	assert.Equal(t, "API request failed with status: 502", err.Error())
}

func TestGenerate_MalformedResponses(t *testing.T) {
	bodies := map[string]string{
		"no candidates": `{"candidates":[]}`,
		"no parts":      `{"candidates":[{"content":{"parts":[]}}]}`,
		"empty text":    `{"candidates":[{"content":{"parts":[{"text":""}]}}]}`,
		"blocked":       `{"promptFeedback":{"blockReason":"SAFETY"}}`,
		"not json":      `candidates`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body)
			})
			c := NewClient(Config{APIKey: "k", BaseURL: srv.URL})
			_, err := c.Generate(context.Background(), Request{Prompt: "p"})
			require.ErrorIs(t, err, ErrMalformedResponse)
			assert.Contains(t, err.Error(), "empty or malformed response")
		})
	}
}

func TestGenerate_MissingKeySkipsUpstream(t *testing.T) {
	var hits atomic.Int32
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})

	c := NewClient(Config{BaseURL: srv.URL})
	assert.False(t, c.Configured())
	_, err := c.Generate(context.Background(), Request{Prompt: "p"})
	require.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Zero(t, hits.Load())
}

func TestGenerate_TransportErrorHidesKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	c := NewClient(Config{APIKey: "super-secret-key", BaseURL: base})
	_, err := c.Generate(context.Background(), Request{Prompt: "p"})
	require.Error(t, err)
	assert.False(t, strings.Contains(err.Error(), "super-secret-key"), err.Error())
}

func TestGenerate_HonoursContext(t *testing.T) {
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL})
	_, err := c.Generate(ctx, Request{Prompt: "p"})
	require.ErrorIs(t, err, context.Canceled)
}
