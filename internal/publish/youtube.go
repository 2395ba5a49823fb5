package publish

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"shorts-pipeline/internal/provider"
	"shorts-pipeline/internal/types"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// shortsCategory is "People & Blogs"
const shortsCategory = "22"

// YouTube uploads directly through the YouTube Data API v3 with a stored
// refresh token
type YouTube struct {
	clientID     string
	clientSecret string
	refreshToken string
	visibility   string
	log          *logrus.Entry
}

func NewYouTube(clientID, clientSecret, refreshToken, visibility string, log *logrus.Entry) *YouTube {
	if visibility == "" {
		visibility = "public"
	}
	return &YouTube{
		clientID:     clientID,
		clientSecret: clientSecret,
		refreshToken: refreshToken,
		visibility:   visibility,
		log:          log,
	}
}

func (y *YouTube) Name() string { return "youtube-api" }

// Configured reports whether all three OAuth credentials are present
func (y *YouTube) Configured() bool {
	return y.clientID != "" && y.clientSecret != "" && y.refreshToken != ""
}

func (y *YouTube) Upload(ctx context.Context, video string, platform types.Platform, meta Metadata) error {
	if !y.Configured() {
		return provider.Unavailable(y.Name(), "YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET, or YOUTUBE_REFRESH_TOKEN not set")
	}

	svc, err := youtube.NewService(ctx, option.WithHTTPClient(y.oauthClient(ctx)))
	if err != nil {
		return errors.Wrap(err, "youtube service")
	}

	f, err := os.Open(video)
	if err != nil {
		return errors.Wrap(err, "open video")
	}
	defer f.Close()

	if fi, err := f.Stat(); err == nil {
		y.log.WithFields(logrus.Fields{
			"title":   meta.Title,
			"size_mb": fmt.Sprintf("%.1f", float64(fi.Size())/1024/1024),
		}).Info("Uploading to YouTube")
	}

	upload := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryId:  shortsCategory,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           y.visibility,
			SelfDeclaredMadeForKids: false,
		},
	}

	call := svc.Videos.Insert([]string{"snippet", "status"}, upload).Context(ctx)
	call.Media(f)

	uploaded, err := call.Do()
	if err != nil {
		return provider.BackendErr(y.Name(), err)
	}
	y.log.WithField("url", "https://www.youtube.com/shorts/"+uploaded.Id).Info("YouTube upload complete")
	return nil
}

func (y *YouTube) oauthClient(ctx context.Context) *http.Client {
	conf := &oauth2.Config{
		ClientID:     y.clientID,
		ClientSecret: y.clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeScope},
	}
	token := &oauth2.Token{
		RefreshToken: y.refreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}
	return oauth2.NewClient(ctx, conf.TokenSource(ctx, token))
}
