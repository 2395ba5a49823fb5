package llm

import (
	"context"
	"net/http"
	"time"

	"shorts-pipeline/internal/config"
	"shorts-pipeline/internal/provider"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Generator turns a prompt into text
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Cache stores generated text under a content id
type Cache interface {
	GetText(ctx context.Context, key string) (string, bool, error)
	PutText(ctx context.Context, key, value string) error
}

// New selects the text backend named in configuration. It returns nil when the
// backend cannot be used (unknown name or missing credential); fact and script
// stages have no fallback, so a nil generator fails those stages.
func New(cfg config.TextConfig, log *logrus.Entry) Generator {
	client := &http.Client{Timeout: cfg.Timeout}
	if cfg.Timeout <= 0 {
		client.Timeout = 60 * time.Second
	}

	switch cfg.Provider {
	case "ollama", "":
		return NewOllama(cfg.OllamaHost, cfg.OllamaModel, cfg.Temperature, client)
	case "groq":
		if cfg.GroqAPIKey == "" {
			log.Warn("GROQ_API_KEY not set, text generation disabled")
			return nil
		}
		return NewGroq(groqEndpoint, cfg.GroqAPIKey, cfg.GroqModel, cfg.Temperature, client)
	default:
		log.WithField("provider", cfg.Provider).Warn("Unknown text provider")
		return nil
	}
}

type cached struct {
	next  Generator
	cache Cache
	log   *logrus.Entry
}

// WithCache memoizes responses by prompt content id. Cache errors are logged
// and never fail the call.
func WithCache(next Generator, cache Cache, log *logrus.Entry) Generator {
	if next == nil || cache == nil {
		return next
	}
	return &cached{next: next, cache: cache, log: log}
}

func (c *cached) Name() string { return c.next.Name() }

func (c *cached) Generate(ctx context.Context, prompt string) (string, error) {
	key := c.next.Name() + ":" + provider.ContentID(prompt)
	if text, ok, err := c.cache.GetText(ctx, key); err != nil {
		c.log.WithError(err).Warn("Text cache lookup failed")
	} else if ok {
		c.log.WithField("key", key).Debug("Reusing cached text")
		return text, nil
	}

	text, err := c.next.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if err := c.cache.PutText(ctx, key, text); err != nil {
		c.log.WithError(err).Warn("Text cache write failed")
	}
	return text, nil
}

func statusErr(backend string, code int) error {
	return provider.BackendErr(backend, errors.Errorf("HTTP %d", code))
}
