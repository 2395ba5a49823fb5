package script

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shorts-pipeline/internal/llm"
	"shorts-pipeline/internal/provider"
	"shorts-pipeline/internal/types"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// WordsPerSecond is the narration pace every duration estimate uses
const WordsPerSecond = 2.5

const promptTemplate = `Write a script for a short video (%d seconds):

Fact: %s

Structure:
1. Hook (3 seconds) - grab attention
2. Main part - explain the fact
3. Call to action

Style: %s, conversational
Length: ~%d words

Only the script text, no comments.`

// Request is the input of the script stage
type Request struct {
	Fact     types.Fact
	Duration time.Duration
	Style    string
}

// Writer turns a fact into narration through a text backend
type Writer struct {
	llm          llm.Generator
	defaultStyle string
	log          *logrus.Entry
}

// NewWriter wraps a text backend. defaultStyle is used when a request has none.
func NewWriter(gen llm.Generator, defaultStyle string, log *logrus.Entry) *Writer {
	return &Writer{llm: gen, defaultStyle: defaultStyle, log: log}
}

func (w *Writer) Name() string { return w.llm.Name() }

func (w *Writer) Produce(ctx context.Context, req Request) (types.Script, error) {
	if strings.TrimSpace(req.Fact.Text) == "" {
		return types.Script{}, errors.New("empty fact")
	}
	style := req.Style
	if style == "" {
		style = w.defaultStyle
	}

	text, err := w.llm.Generate(ctx, Prompt(req.Fact.Text, req.Duration, style))
	if err != nil {
		return types.Script{}, err
	}
	text = clean(text)
	if text == "" {
		return types.Script{}, provider.BackendErr(w.Name(), errors.New("empty script"))
	}

	w.log.WithFields(logrus.Fields{
		"words":  len(strings.Fields(text)),
		"budget": WordBudget(req.Duration),
	}).Info("Script written")
	return types.Script{Text: text, TargetDuration: req.Duration, Style: style}, nil
}

// WordBudget is the number of narration words that fit in d
func WordBudget(d time.Duration) int {
	return int(d.Seconds() * WordsPerSecond)
}

// EstimateDuration is how long text takes to read aloud
func EstimateDuration(text string) time.Duration {
	words := len(strings.Fields(text))
	return time.Duration(float64(words) / WordsPerSecond * float64(time.Second))
}

// Prompt renders the script request
func Prompt(fact string, d time.Duration, style string) string {
	return fmt.Sprintf(promptTemplate, int(d.Seconds()), fact, style, WordBudget(d))
}

// clean strips markdown fences some models wrap plain answers in
func clean(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```text")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// NewAdapter builds the script stage, which has no local substitute
func NewAdapter(gen llm.Generator, defaultStyle string, log *logrus.Entry) *provider.Adapter[Request, types.Script] {
	var primary provider.Backend[Request, types.Script]
	if gen != nil {
		primary = NewWriter(gen, defaultStyle, log.WithField("component", "script"))
	}
	return provider.NewAdapter[Request, types.Script]("script", primary, nil, log)
}
