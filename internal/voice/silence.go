package voice

import (
	"context"
	"os"
	"time"

	"shorts-pipeline/internal/provider"
	"shorts-pipeline/internal/script"
	"shorts-pipeline/internal/types"
)

// Silence is the local substitute for speech: a silent track as long as the
// narration would take to read, so compose still gets an audio stream.
type Silence struct {
	dir          string
	sampleRate   int
	cacheEnabled bool
}

func NewSilence(dir string, sampleRate int, cacheEnabled bool) *Silence {
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	return &Silence{dir: dir, sampleRate: sampleRate, cacheEnabled: cacheEnabled}
}

func (s *Silence) Name() string { return "silence" }

func (s *Silence) Produce(ctx context.Context, sc types.Script) (types.AudioAsset, error) {
	d := script.EstimateDuration(sc.Text)
	if d < time.Second {
		d = time.Second
	}
	path := provider.ArtifactPath(s.dir, "silence", sc.Text, "wav")
	asset := types.AudioAsset{Path: path, SampleRate: s.sampleRate, Duration: d}

	if provider.Reusable(path, s.cacheEnabled) {
		return asset, nil
	}
	if err := ctx.Err(); err != nil {
		return types.AudioAsset{}, err
	}
	err := provider.WriteAtomic(path, func(f *os.File) error {
		return writeSilence(f, s.sampleRate, d)
	})
	if err != nil {
		return types.AudioAsset{}, err
	}
	return asset, nil
}
