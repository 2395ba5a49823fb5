package video

import (
	"net/http"
	"time"

	"shorts-pipeline/internal/config"
	"shorts-pipeline/internal/media"
	"shorts-pipeline/internal/provider"
	"shorts-pipeline/internal/types"

	"github.com/sirupsen/logrus"
)

// Request is the input of the video stage
type Request struct {
	// Prompt is the fact text the clip illustrates
	Prompt   string
	Duration time.Duration
}

// Frame is the output geometry every video backend targets
type Frame struct {
	Width  int
	Height int
	FPS    int
}

func frameOf(cfg config.VideoConfig) Frame {
	f := Frame{Width: cfg.Width, Height: cfg.Height, FPS: cfg.FPS}
	if f.Width <= 0 || f.Height <= 0 {
		f.Width, f.Height = 1080, 1920
	}
	if f.FPS <= 0 {
		f.FPS = 30
	}
	return f
}

// Primary picks the remote clip backend named by the video provider setting
func Primary(cfg *config.Config, enc media.Encoder, log *logrus.Entry) provider.Backend[Request, types.VideoAsset] {
	dir := cfg.StageDir("video")
	frame := frameOf(cfg.Video)
	log = log.WithField("component", "video")

	switch cfg.Video.Provider {
	case "replicate", "":
		if cfg.Video.ReplicateAPIToken == "" {
			log.Info("REPLICATE_API_TOKEN not set, using placeholder video")
			return nil
		}
		return NewReplicate(ReplicateOptions{
			Token:        cfg.Video.ReplicateAPIToken,
			Model:        cfg.Video.ReplicateModel,
			Dir:          dir,
			Frame:        frame,
			CacheEnabled: cfg.Features.CacheEnabled,
			HTTPClient:   &http.Client{Timeout: 10 * time.Minute},
		}, log)
	case "pollinations":
		return NewPollinations(PollinationsOptions{
			Dir:          dir,
			Frame:        frame,
			CacheEnabled: cfg.Features.CacheEnabled,
			HTTPClient:   &http.Client{Timeout: 90 * time.Second},
		}, enc, log)
	case "library":
		return NewLibrary(cfg.Video.LibraryDir, frame, enc, log)
	case "placeholder":
		return nil
	default:
		log.WithField("provider", cfg.Video.Provider).Warn("Unknown video provider")
		return nil
	}
}

// NewAdapter builds the video stage with the locally rendered placeholder as substitute
func NewAdapter(cfg *config.Config, enc media.Encoder, log *logrus.Entry) *provider.Adapter[Request, types.VideoAsset] {
	fallback := NewPlaceholder(cfg.StageDir("video"), frameOf(cfg.Video), cfg.Features.CacheEnabled, enc)
	return provider.NewAdapter[Request, types.VideoAsset]("video", Primary(cfg, enc, log), fallback, log)
}
