package video

import (
	"context"
	"strings"

	"shorts-pipeline/internal/media"
	"shorts-pipeline/internal/provider"
	"shorts-pipeline/internal/types"

	"github.com/pkg/errors"
)

const captionLen = 30

// Placeholder renders a solid-colour clip with the prompt as caption.
// The colour comes from the prompt's content id, so the same prompt always
// renders the same clip.
type Placeholder struct {
	dir          string
	frame        Frame
	cacheEnabled bool
	enc          media.Encoder
}

func NewPlaceholder(dir string, frame Frame, cacheEnabled bool, enc media.Encoder) *Placeholder {
	return &Placeholder{dir: dir, frame: frame, cacheEnabled: cacheEnabled, enc: enc}
}

func (p *Placeholder) Name() string { return "placeholder" }

func (p *Placeholder) Produce(ctx context.Context, req Request) (types.VideoAsset, error) {
	if req.Duration <= 0 {
		return types.VideoAsset{}, errors.New("placeholder duration must be positive")
	}
	path := provider.ArtifactPath(p.dir, "placeholder", req.Prompt, "mp4")
	asset := types.VideoAsset{Path: path, Width: p.frame.Width, Height: p.frame.Height, Duration: req.Duration}
	if provider.Reusable(path, p.cacheEnabled) {
		return asset, nil
	}

	err := p.enc.RenderPlaceholder(ctx, media.Placeholder{
		Width:    p.frame.Width,
		Height:   p.frame.Height,
		FPS:      p.frame.FPS,
		Duration: req.Duration,
		Color:    Color(req.Prompt),
		Caption:  Caption(req.Prompt),
	}, path)
	if err != nil {
		return types.VideoAsset{}, err
	}
	return asset, nil
}

// Color derives an ffmpeg colour literal from the prompt's content id
func Color(prompt string) string {
	return "0x" + provider.ContentID(prompt)[:6]
}

// Caption is the overlay text of a placeholder clip
func Caption(prompt string) string {
	r := []rune(strings.TrimSpace(prompt))
	if len(r) > captionLen {
		return "AI Video: " + string(r[:captionLen]) + "..."
	}
	return "AI Video: " + string(r)
}
