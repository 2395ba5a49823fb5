package media

import (
	"context"
	"time"
)

// Placeholder describes a locally rendered stand-in clip
type Placeholder struct {
	Width    int
	Height   int
	FPS      int
	Duration time.Duration
	// Color is an ffmpeg colour literal such as 0x3a7bd5
	Color   string
	Caption string
}

// Clip describes a still image turned into a video track
type Clip struct {
	Width    int
	Height   int
	FPS      int
	Duration time.Duration
}

// Encoder is the media-encoding collaborator of the video and compose stages.
// Every method writes out atomically: a failed call never leaves a file at out.
type Encoder interface {
	RenderPlaceholder(ctx context.Context, p Placeholder, out string) error
	StillToVideo(ctx context.Context, image string, c Clip, out string) error
	Mux(ctx context.Context, video, audio, out string) error
	BurnSubtitles(ctx context.Context, video, srt, out string) error
	Probe(ctx context.Context, path string) (time.Duration, error)
}
