package video

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"shorts-pipeline/internal/media"
	"shorts-pipeline/internal/provider"
	"shorts-pipeline/internal/types"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const pollinationsURL = "https://image.pollinations.ai"

// minImageBytes rejects error pages served with a 200
const minImageBytes = 100

// Pollinations generates a still with Pollinations.ai (no key needed) and
// turns it into a clip of the requested length
type Pollinations struct {
	baseURL      string
	dir          string
	frame        Frame
	cacheEnabled bool
	httpClient   *http.Client
	enc          media.Encoder
	log          *logrus.Entry
}

type PollinationsOptions struct {
	BaseURL      string
	Dir          string
	Frame        Frame
	CacheEnabled bool
	HTTPClient   *http.Client
}

func NewPollinations(opts PollinationsOptions, enc media.Encoder, log *logrus.Entry) *Pollinations {
	if opts.BaseURL == "" {
		opts.BaseURL = pollinationsURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	return &Pollinations{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		dir:          opts.Dir,
		frame:        opts.Frame,
		cacheEnabled: opts.CacheEnabled,
		httpClient:   opts.HTTPClient,
		enc:          enc,
		log:          log,
	}
}

func (p *Pollinations) Name() string { return "pollinations" }

func (p *Pollinations) Produce(ctx context.Context, req Request) (types.VideoAsset, error) {
	path := provider.ArtifactPath(p.dir, "pollinations", req.Prompt, "mp4")
	asset := types.VideoAsset{Path: path, Width: p.frame.Width, Height: p.frame.Height, Duration: req.Duration}
	if provider.Reusable(path, p.cacheEnabled) {
		return asset, nil
	}

	image := provider.ArtifactPath(p.dir, "pollinations", req.Prompt, "jpg")
	if !provider.Reusable(image, p.cacheEnabled) {
		p.log.WithField("prompt", truncate(req.Prompt, 60)).Info("Generating still with Pollinations")
		if err := p.downloadImage(ctx, p.imageURL(req.Prompt), image); err != nil {
			return types.VideoAsset{}, provider.BackendErr(p.Name(), err)
		}
	}

	err := p.enc.StillToVideo(ctx, image, media.Clip{
		Width:    p.frame.Width,
		Height:   p.frame.Height,
		FPS:      p.frame.FPS,
		Duration: req.Duration,
	}, path)
	if err != nil {
		return types.VideoAsset{}, provider.BackendErr(p.Name(), err)
	}
	return asset, nil
}

// imageURL builds the request; the seed comes from the prompt so retries of
// the same prompt ask for the same picture
func (p *Pollinations) imageURL(prompt string) string {
	seed, _ := strconv.ParseUint(provider.ContentID(prompt)[:8], 16, 32)
	q := url.Values{}
	q.Set("width", strconv.Itoa(p.frame.Width))
	q.Set("height", strconv.Itoa(p.frame.Height))
	q.Set("nologo", "true")
	q.Set("model", "flux")
	q.Set("seed", strconv.FormatUint(seed, 10))
	return fmt.Sprintf("%s/prompt/%s?%s", p.baseURL, url.PathEscape(enhancePrompt(prompt)), q.Encode())
}

func (p *Pollinations) downloadImage(ctx context.Context, imageURL, out string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; ShortsPipeline/1.0)")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("HTTP %d from Pollinations", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if len(data) < minImageBytes {
		return errors.Errorf("response too small (%d bytes)", len(data))
	}
	return provider.WriteAtomic(out, func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
}

func enhancePrompt(base string) string {
	return base + ", vertical composition, vivid colors, cinematic lighting, photorealistic, no text, no watermark"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
