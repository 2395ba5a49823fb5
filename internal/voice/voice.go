package voice

import (
	"net/http"
	"time"

	"shorts-pipeline/internal/config"
	"shorts-pipeline/internal/provider"
	"shorts-pipeline/internal/types"

	"github.com/sirupsen/logrus"
)

// Primary picks the speech backend named by the voice provider setting.
// It returns nil when that backend has no credential or program to run.
func Primary(cfg *config.Config, log *logrus.Entry) provider.Backend[types.Script, types.AudioAsset] {
	dir := cfg.StageDir("audio")
	log = log.WithField("component", "voice")

	switch cfg.Voice.Provider {
	case "elevenlabs":
		if cfg.Voice.ElevenLabsAPIKey == "" {
			log.Info("ELEVENLABS_API_KEY not set, narration will be silent")
			return nil
		}
		return NewElevenLabs(ElevenLabsOptions{
			APIKey:       cfg.Voice.ElevenLabsAPIKey,
			VoiceID:      cfg.Voice.ElevenLabsVoiceID,
			Model:        cfg.Voice.ElevenLabsModel,
			Dir:          dir,
			CacheEnabled: cfg.Features.CacheEnabled,
			HTTPClient:   &http.Client{Timeout: 120 * time.Second},
		}, log)
	case "command", "silero", "edge-tts", "":
		cmd := NewCommand(cfg.Voice.Command, dir, cfg.Features.CacheEnabled, log)
		if cmd == nil {
			log.Info("No TTS command configured and edge-tts not found, narration will be silent")
			return nil
		}
		return cmd
	default:
		log.WithField("provider", cfg.Voice.Provider).Warn("Unknown TTS provider")
		return nil
	}
}

// NewAdapter builds the voice stage with the silent-track substitute
func NewAdapter(cfg *config.Config, log *logrus.Entry) *provider.Adapter[types.Script, types.AudioAsset] {
	fallback := NewSilence(cfg.StageDir("audio"), cfg.Voice.SampleRate, cfg.Features.CacheEnabled)
	return provider.NewAdapter[types.Script, types.AudioAsset]("voice", Primary(cfg, log), fallback, log)
}
