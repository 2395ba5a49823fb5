package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"shorts-pipeline/internal/config"
	"shorts-pipeline/internal/provider"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaGenerate(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]string{"response": "  Honey never spoils.  "})
	}))
	defer srv.Close()

	o := NewOllama(srv.URL+"/", "qwen2.5:32b", 0.7, srv.Client())
	text, err := o.Generate(context.Background(), "a fact about honey")
	require.NoError(t, err)
	assert.Equal(t, "Honey never spoils.", text)
	assert.Equal(t, "qwen2.5:32b", got["model"])
	assert.Equal(t, "a fact about honey", got["prompt"])
	assert.Equal(t, false, got["stream"])
}

func TestOllamaNon200IsBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewOllama(srv.URL, "m", 0, srv.Client()).Generate(context.Background(), "p")
	require.Error(t, err)
	assert.True(t, errors.Is(err, provider.ErrBackend))
}

func TestOllamaEmptyResponseIsBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response": "   "}`))
	}))
	defer srv.Close()

	_, err := NewOllama(srv.URL, "m", 0, srv.Client()).Generate(context.Background(), "p")
	assert.True(t, errors.Is(err, provider.ErrBackend))
}

func TestGroqGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gsk_test", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Octopuses have three hearts."}}]}`))
	}))
	defer srv.Close()

	g := NewGroq(srv.URL, "gsk_test", "llama", 0.5, srv.Client())
	text, err := g.Generate(context.Background(), "octopus")
	require.NoError(t, err)
	assert.Equal(t, "Octopuses have three hearts.", text)
}

func TestGroqErrorPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"message":"model overloaded"}}`))
	}))
	defer srv.Close()

	_, err := NewGroq(srv.URL, "k", "m", 0, srv.Client()).Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestNewSelectsBackend(t *testing.T) {
	log := logrus.NewEntry(logrus.New())

	assert.Equal(t, "ollama", New(config.TextConfig{Provider: "ollama"}, log).Name())
	assert.Nil(t, New(config.TextConfig{Provider: "groq"}, log))
	assert.Equal(t, "groq", New(config.TextConfig{Provider: "groq", GroqAPIKey: "k"}, log).Name())
	assert.Nil(t, New(config.TextConfig{Provider: "gpt-at-home"}, log))
}

type memCache struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memCache) GetText(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) PutText(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

type countingGen struct{ calls int }

func (c *countingGen) Name() string { return "counting" }

func (c *countingGen) Generate(ctx context.Context, prompt string) (string, error) {
	c.calls++
	return "answer to " + prompt, nil
}

func TestWithCacheReusesByPrompt(t *testing.T) {
	inner := &countingGen{}
	gen := WithCache(inner, &memCache{data: map[string]string{}}, logrus.NewEntry(logrus.New()))

	a, err := gen.Generate(context.Background(), "gravity")
	require.NoError(t, err)
	b, err := gen.Generate(context.Background(), "gravity")
	require.NoError(t, err)
	_, err = gen.Generate(context.Background(), "magnetism")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, 2, inner.calls)
}
