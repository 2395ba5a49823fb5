package fact

import (
	"context"
	"fmt"
	"strings"

	"shorts-pipeline/internal/llm"
	"shorts-pipeline/internal/provider"
	"shorts-pipeline/internal/types"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const promptTemplate = `Find an interesting, little-known and verified fact about: %s

Criteria:
- Surprising
- Can be explained in 30-60 seconds
- Verified information
- Easy to visualise

Answer briefly, in 2-3 sentences.`

// Generator turns a topic into a single fact through a text backend
type Generator struct {
	llm llm.Generator
	log *logrus.Entry
}

// NewGenerator wraps a text backend
func NewGenerator(gen llm.Generator, log *logrus.Entry) *Generator {
	return &Generator{llm: gen, log: log}
}

func (g *Generator) Name() string { return g.llm.Name() }

// Produce asks the text backend for a fact about topic
func (g *Generator) Produce(ctx context.Context, topic types.Topic) (types.Fact, error) {
	if strings.TrimSpace(topic.Text) == "" {
		return types.Fact{}, errors.New("empty topic")
	}

	text, err := g.llm.Generate(ctx, Prompt(topic))
	if err != nil {
		return types.Fact{}, err
	}
	g.log.WithField("chars", len(text)).Info("Fact generated")
	return types.Fact{Text: text, Topic: topic}, nil
}

// Prompt renders the fact request for topic
func Prompt(topic types.Topic) string {
	p := fmt.Sprintf(promptTemplate, topic.Text)
	if topic.Language != "" && topic.Language != "en" {
		p += fmt.Sprintf("\nRespond in language: %s.", topic.Language)
	}
	return p
}

// NewAdapter builds the fact stage. There is no local substitute for a fact,
// so a missing text backend fails the stage.
func NewAdapter(gen llm.Generator, log *logrus.Entry) *provider.Adapter[types.Topic, types.Fact] {
	var primary provider.Backend[types.Topic, types.Fact]
	if gen != nil {
		primary = NewGenerator(gen, log.WithField("component", "fact"))
	}
	return provider.NewAdapter[types.Topic, types.Fact]("fact", primary, nil, log)
}
