package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"

	"shorts-pipeline/internal/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Config points the archive at an S3-compatible bucket
type Config struct {
	AccessKey string
	SecretKey string
	Region    string
	Endpoint  string
	Bucket    string
}

// Archive copies finished runs to object storage
type Archive struct {
	client *s3.Client
	bucket string
	log    *logrus.Entry
}

// New returns nil when no bucket is configured
func New(ctx context.Context, cfg Config, log *logrus.Entry) (*Archive, error) {
	if cfg.Bucket == "" {
		return nil, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &Archive{client: client, bucket: cfg.Bucket, log: log.WithField("component", "archive")}, nil
}

// Store uploads the final video, its subtitles and the run record under
// runs/<date>/<run id>/ and returns the video's object URL
func (a *Archive) Store(ctx context.Context, run *types.RunState, video *types.ComposedVideo) (string, error) {
	prefix := path.Join("runs", run.StartedAt.UTC().Format("2006-01-02"), run.RunID)

	videoKey := path.Join(prefix, filepath.Base(video.Path))
	if err := a.putFile(ctx, videoKey, video.Path); err != nil {
		return "", err
	}
	if video.Subtitles != "" {
		if err := a.putFile(ctx, path.Join(prefix, filepath.Base(video.Subtitles)), video.Subtitles); err != nil {
			a.log.WithError(err).Warn("Could not archive subtitles")
		}
	}

	url := fmt.Sprintf("s3://%s/%s", a.bucket, videoKey)
	record := *run
	record.ArchiveURL = url
	data, err := json.MarshalIndent(&record, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "marshal run")
	}
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(path.Join(prefix, "run.json")),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", errors.Wrap(err, "archive run record")
	}

	a.log.WithField("url", url).Info("Run archived")
	return url, nil
}

func (a *Archive) putFile(ctx context.Context, key, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return errors.Wrap(err, "open artifact")
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(file))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	return errors.Wrapf(err, "archive %s", key)
}
