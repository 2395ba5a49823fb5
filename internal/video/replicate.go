package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"shorts-pipeline/internal/provider"
	"shorts-pipeline/internal/types"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const replicateURL = "https://api.replicate.com"

// Replicate generates clips with a text-to-video model hosted on Replicate
type Replicate struct {
	baseURL      string
	token        string
	model        string
	dir          string
	frame        Frame
	cacheEnabled bool
	pollInterval time.Duration
	httpClient   *http.Client
	log          *logrus.Entry
}

type ReplicateOptions struct {
	BaseURL      string
	Token        string
	Model        string
	Dir          string
	Frame        Frame
	CacheEnabled bool
	PollInterval time.Duration
	HTTPClient   *http.Client
}

func NewReplicate(opts ReplicateOptions, log *logrus.Entry) *Replicate {
	if opts.BaseURL == "" {
		opts.BaseURL = replicateURL
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	return &Replicate{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		token:        opts.Token,
		model:        opts.Model,
		dir:          opts.Dir,
		frame:        opts.Frame,
		cacheEnabled: opts.CacheEnabled,
		pollInterval: opts.PollInterval,
		httpClient:   opts.HTTPClient,
		log:          log,
	}
}

func (r *Replicate) Name() string { return "replicate" }

type predictionInput struct {
	Prompt   string `json:"prompt"`
	Duration int    `json:"duration"`
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  interface{}     `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

func (p *prediction) terminal() bool {
	switch p.Status {
	case "succeeded", "failed", "canceled":
		return true
	}
	return false
}

// outputURL accepts both a single URL and a list of URLs
func (p *prediction) outputURL() (string, error) {
	var one string
	if err := json.Unmarshal(p.Output, &one); err == nil && one != "" {
		return one, nil
	}
	var many []string
	if err := json.Unmarshal(p.Output, &many); err == nil && len(many) > 0 {
		return many[0], nil
	}
	return "", errors.Errorf("prediction %s has no output url", p.ID)
}

func (r *Replicate) Produce(ctx context.Context, req Request) (types.VideoAsset, error) {
	if r.token == "" {
		return types.VideoAsset{}, provider.Unavailable(r.Name(), "REPLICATE_API_TOKEN not set")
	}

	path := provider.ArtifactPath(r.dir, "video", req.Prompt, "mp4")
	asset := types.VideoAsset{Path: path, Width: r.frame.Width, Height: r.frame.Height, Duration: req.Duration}
	if provider.Reusable(path, r.cacheEnabled) {
		r.log.WithField("path", path).Debug("Reusing generated video")
		return asset, nil
	}

	pred, err := r.create(ctx, req)
	if err != nil {
		return types.VideoAsset{}, provider.BackendErr(r.Name(), err)
	}
	r.log.WithFields(logrus.Fields{"prediction": pred.ID, "status": pred.Status}).Info("Replicate prediction created")

	// status polling until the prediction settles
	for !pred.terminal() {
		select {
		case <-ctx.Done():
			return types.VideoAsset{}, ctx.Err()
		case <-time.After(r.pollInterval):
		}
		if pred, err = r.get(ctx, pred.URLs.Get); err != nil {
			return types.VideoAsset{}, provider.BackendErr(r.Name(), err)
		}
	}
	if pred.Status != "succeeded" {
		return types.VideoAsset{}, provider.BackendErr(r.Name(),
			errors.Errorf("prediction %s %s: %v", pred.ID, pred.Status, pred.Error))
	}

	url, err := pred.outputURL()
	if err != nil {
		return types.VideoAsset{}, provider.BackendErr(r.Name(), err)
	}
	if err := r.download(ctx, url, path); err != nil {
		return types.VideoAsset{}, provider.BackendErr(r.Name(), err)
	}
	r.log.WithField("path", path).Info("Video generated")
	return asset, nil
}

func (r *Replicate) create(ctx context.Context, req Request) (*prediction, error) {
	body, err := json.Marshal(map[string]interface{}{
		"input": predictionInput{Prompt: req.Prompt, Duration: int(req.Duration.Seconds())},
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal prediction")
	}
	url := fmt.Sprintf("%s/v1/models/%s/predictions", r.baseURL, r.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Prefer", "wait")
	return r.do(httpReq)
}

func (r *Replicate) get(ctx context.Context, url string) (*prediction, error) {
	if url == "" {
		return nil, errors.New("prediction has no status url")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return r.do(httpReq)
}

func (r *Replicate) do(req *http.Request) (*prediction, error) {
	req.Header.Set("Authorization", "Bearer "+r.token)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var p prediction
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, errors.Wrap(err, "parse prediction")
	}
	return &p, nil
}

func (r *Replicate) download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("download HTTP %d", resp.StatusCode)
	}
	return provider.WriteAtomic(path, func(f *os.File) error {
		n, err := io.Copy(f, resp.Body)
		if err == nil && n == 0 {
			return errors.New("empty video download")
		}
		return err
	})
}
