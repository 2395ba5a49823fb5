package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"shorts-pipeline/internal/provider"

	"github.com/pkg/errors"
)

// Ollama talks to a local Ollama server's /api/generate endpoint
type Ollama struct {
	host        string
	model       string
	temperature float64
	httpClient  *http.Client
}

// NewOllama creates an Ollama generator
func NewOllama(host, model string, temperature float64, client *http.Client) *Ollama {
	return &Ollama{
		host:        strings.TrimRight(host, "/"),
		model:       model,
		temperature: temperature,
		httpClient:  client,
	}
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

func (o *Ollama) Name() string { return "ollama" }

// Generate sends a non-streaming generate request
func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:   o.model,
		Prompt:  prompt,
		Stream:  false,
		Options: ollamaOptions{Temperature: o.temperature},
	})
	if err != nil {
		return "", errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", provider.BackendErr(o.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusErr(o.Name(), resp.StatusCode)
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", provider.BackendErr(o.Name(), errors.Wrap(err, "parse ollama response"))
	}

	text := strings.TrimSpace(out.Response)
	if text == "" {
		return "", provider.BackendErr(o.Name(), errors.New("empty response"))
	}
	return text, nil
}
