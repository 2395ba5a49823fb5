package fact

import (
	"context"
	"testing"

	"shorts-pipeline/internal/provider"
	"shorts-pipeline/internal/types"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func testLog() *logrus.Entry { return logrus.NewEntry(logrus.New()) }

func TestFactProduced(t *testing.T) {
	gen := &fakeLLM{reply: "Light bends around the sun."}
	a := NewAdapter(gen, testLog())

	fact, res := a.Produce(context.Background(), types.Topic{Text: "gravity"})
	require.True(t, res.OK())
	assert.Equal(t, provider.Produced, res.Outcome)
	assert.Equal(t, "Light bends around the sun.", fact.Text)
	assert.Equal(t, "gravity", fact.Topic.Text)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "about: gravity")
	assert.Contains(t, gen.prompts[0], "2-3 sentences")
}

func TestFactWithoutBackendFails(t *testing.T) {
	fact, res := NewAdapter(nil, testLog()).Produce(context.Background(), types.Topic{Text: "gravity"})
	assert.False(t, res.OK())
	assert.Empty(t, fact.Text)
	assert.True(t, errors.Is(res.Err, provider.ErrBackendUnavailable))
}

func TestFactBackendErrorIsFatal(t *testing.T) {
	gen := &fakeLLM{err: provider.BackendErr("fake", errors.New("HTTP 500"))}
	_, res := NewAdapter(gen, testLog()).Produce(context.Background(), types.Topic{Text: "gravity"})
	assert.False(t, res.OK())
	assert.True(t, errors.Is(res.Err, provider.ErrBackend))
}

func TestPromptLanguage(t *testing.T) {
	assert.NotContains(t, Prompt(types.Topic{Text: "space"}), "Respond in language")
	assert.Contains(t, Prompt(types.Topic{Text: "space", Language: "ru"}), "Respond in language: ru.")
}
