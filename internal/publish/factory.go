package publish

import (
	"shorts-pipeline/internal/config"
	"shorts-pipeline/internal/types"

	"github.com/sirupsen/logrus"
)

// New wires every platform to its uploader. YouTube goes straight to the Data
// API when OAuth credentials are configured, everything else through Blotato.
func New(cfg *config.Config, log *logrus.Entry) *Publisher {
	var defaults []types.Platform
	for _, name := range cfg.Platforms() {
		if p, ok := types.ParsePlatform(name); ok {
			defaults = append(defaults, p)
		}
	}

	blotato := NewBlotato(cfg.Publish.BlotatoURL, cfg.Publish.BlotatoAPIKey, cfg.Publish.RatePerMinute, nil)
	pub := NewPublisher(defaults, log).
		Route(types.PlatformTikTok, blotato).
		Route(types.PlatformInstagram, blotato).
		Route(types.PlatformYouTube, blotato)

	yt := NewYouTube(cfg.Publish.YouTubeClientID, cfg.Publish.YouTubeClientSecret,
		cfg.Publish.YouTubeRefreshToken, cfg.Publish.YouTubeVisibility, log.WithField("component", "youtube"))
	if yt.Configured() {
		pub.Route(types.PlatformYouTube, yt)
	}
	return pub
}
