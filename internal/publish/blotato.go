package publish

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shorts-pipeline/internal/provider"
	"shorts-pipeline/internal/types"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// Blotato uploads through the Blotato multi-platform API
type Blotato struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewBlotato paces uploads at perMinute requests per minute; 0 disables pacing
func NewBlotato(baseURL, apiKey string, perMinute int, client *http.Client) *Blotato {
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if perMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(perMinute)/60, 1)
	}
	return &Blotato{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: client,
		limiter:    limiter,
	}
}

func (b *Blotato) Name() string { return "blotato" }

func (b *Blotato) Upload(ctx context.Context, video string, platform types.Platform, meta Metadata) error {
	if b.apiKey == "" {
		return provider.Unavailable(b.Name(), "BLOTATO_API_KEY not set")
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}

	f, err := os.Open(video)
	if err != nil {
		return errors.Wrap(err, "open video")
	}
	defer f.Close()

	// stream the multipart body instead of buffering the whole video
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(form, f, filepath.Base(video), platform, meta))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v1/upload", pr)
	if err != nil {
		pr.Close()
		return err
	}
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := b.httpClient.Do(req)
	if err != nil {
		pr.Close()
		return provider.BackendErr(b.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return provider.BackendErr(b.Name(), errors.Errorf("%s: HTTP %d: %s", platform, resp.StatusCode, strings.TrimSpace(string(msg))))
	}
	return nil
}

func writeForm(form *multipart.Writer, video io.Reader, name string, platform types.Platform, meta Metadata) error {
	part, err := form.CreateFormFile("video", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, video); err != nil {
		return err
	}
	fields := map[string]string{
		"title":       meta.Title,
		"description": meta.Description,
		"platform":    string(platform),
	}
	for k, v := range fields {
		if err := form.WriteField(k, v); err != nil {
			return err
		}
	}
	return form.Close()
}
