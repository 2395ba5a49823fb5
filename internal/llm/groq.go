package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"shorts-pipeline/internal/provider"

	"github.com/pkg/errors"
)

const groqEndpoint = "https://api.groq.com/openai/v1/chat/completions"

// Groq generates text through Groq's OpenAI-compatible chat API
type Groq struct {
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	httpClient  *http.Client
}

// NewGroq creates a Groq generator
func NewGroq(endpoint, apiKey, model string, temperature float64, client *http.Client) *Groq {
	return &Groq{
		endpoint:    endpoint,
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		httpClient:  client,
	}
}

type groqRequest struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *Groq) Name() string { return "groq" }

// Generate sends the prompt as a single user message
func (g *Groq) Generate(ctx context.Context, prompt string) (string, error) {
	if g.apiKey == "" {
		return "", provider.Unavailable(g.Name(), "GROQ_API_KEY not set")
	}

	body, err := json.Marshal(groqRequest{
		Model:       g.model,
		Messages:    []groqMessage{{Role: "user", Content: prompt}},
		Temperature: g.temperature,
		MaxTokens:   1024,
	})
	if err != nil {
		return "", errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", provider.BackendErr(g.Name(), err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", provider.BackendErr(g.Name(), err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", statusErr(g.Name(), resp.StatusCode)
	}

	var out groqResponse
	if err := json.Unmarshal(respBytes, &out); err != nil {
		return "", provider.BackendErr(g.Name(), errors.Wrap(err, "parse groq response"))
	}
	if out.Error != nil {
		return "", provider.BackendErr(g.Name(), errors.New(out.Error.Message))
	}
	if len(out.Choices) == 0 {
		return "", provider.BackendErr(g.Name(), errors.New("groq returned no choices"))
	}

	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", provider.BackendErr(g.Name(), errors.New("empty response"))
	}
	return text, nil
}
