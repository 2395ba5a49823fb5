package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"shorts-pipeline/internal/provider"
	"shorts-pipeline/internal/types"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const elevenLabsURL = "https://api.elevenlabs.io"

// ElevenLabs synthesizes speech through the ElevenLabs text-to-speech API
type ElevenLabs struct {
	baseURL      string
	apiKey       string
	voiceID      string
	model        string
	dir          string
	cacheEnabled bool
	httpClient   *http.Client
	log          *logrus.Entry
}

type ElevenLabsOptions struct {
	BaseURL      string
	APIKey       string
	VoiceID      string
	Model        string
	Dir          string
	CacheEnabled bool
	HTTPClient   *http.Client
}

func NewElevenLabs(opts ElevenLabsOptions, log *logrus.Entry) *ElevenLabs {
	if opts.BaseURL == "" {
		opts.BaseURL = elevenLabsURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	return &ElevenLabs{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		apiKey:       opts.APIKey,
		voiceID:      opts.VoiceID,
		model:        opts.Model,
		dir:          opts.Dir,
		cacheEnabled: opts.CacheEnabled,
		httpClient:   opts.HTTPClient,
		log:          log,
	}
}

func (e *ElevenLabs) Name() string { return "elevenlabs" }

type ttsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id,omitempty"`
}

func (e *ElevenLabs) Produce(ctx context.Context, sc types.Script) (types.AudioAsset, error) {
	if e.apiKey == "" {
		return types.AudioAsset{}, provider.Unavailable(e.Name(), "ELEVENLABS_API_KEY not set")
	}

	path := provider.ArtifactPath(e.dir, "audio", sc.Text, "mp3")
	if provider.Reusable(path, e.cacheEnabled) {
		e.log.WithField("path", path).Debug("Reusing synthesized audio")
		return e.asset(path)
	}

	body, err := json.Marshal(ttsRequest{Text: sc.Text, ModelID: e.model})
	if err != nil {
		return types.AudioAsset{}, errors.Wrap(err, "marshal request")
	}
	url := fmt.Sprintf("%s/v1/text-to-speech/%s", e.baseURL, e.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return types.AudioAsset{}, err
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return types.AudioAsset{}, provider.BackendErr(e.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return types.AudioAsset{}, provider.BackendErr(e.Name(),
			errors.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}

	err = provider.WriteAtomic(path, func(f *os.File) error {
		_, err := io.Copy(f, resp.Body)
		return err
	})
	if err != nil {
		return types.AudioAsset{}, provider.BackendErr(e.Name(), err)
	}
	return e.asset(path)
}

func (e *ElevenLabs) asset(path string) (types.AudioAsset, error) {
	d, _, err := Duration(path)
	if err != nil {
		os.Remove(path)
		return types.AudioAsset{}, provider.BackendErr(e.Name(), errors.Wrap(err, "invalid audio"))
	}
	return types.AudioAsset{Path: path, SampleRate: 44100, Duration: d}, nil
}
