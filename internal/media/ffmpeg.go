package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"shorts-pipeline/internal/provider"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// FFmpeg shells out to the ffmpeg and ffprobe binaries
type FFmpeg struct {
	bin   string
	probe string
	log   *logrus.Entry
}

// NewFFmpeg uses bin for encoding and the ffprobe next to it for probing
func NewFFmpeg(bin string, log *logrus.Entry) *FFmpeg {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpeg{bin: bin, probe: probeBinary(bin), log: log}
}

func probeBinary(ffmpeg string) string {
	dir, name := filepath.Split(ffmpeg)
	return dir + strings.Replace(name, "ffmpeg", "ffprobe", 1)
}

// Available reports whether the ffmpeg binary can be found
func (f *FFmpeg) Available() bool {
	_, err := exec.LookPath(f.bin)
	return err == nil
}

func (f *FFmpeg) RenderPlaceholder(ctx context.Context, p Placeholder, out string) error {
	src := fmt.Sprintf("color=c=%s:s=%dx%d:r=%d:d=%s",
		p.Color, p.Width, p.Height, p.FPS, seconds(p.Duration))

	args := []string{"-f", "lavfi", "-i", src}
	if p.Caption != "" {
		args = append(args, "-vf", fmt.Sprintf(
			"drawtext=text='%s':fontcolor=white:fontsize=%d:x=(w-text_w)/2:y=(h-text_h)/2",
			escapeDrawtext(p.Caption), p.Width/20))
	}
	args = append(args,
		"-c:v", "libx264",
		"-preset", "fast",
		"-pix_fmt", "yuv420p",
		"-an",
	)
	return f.run(ctx, "placeholder", out, args)
}

func (f *FFmpeg) StillToVideo(ctx context.Context, image string, c Clip, out string) error {
	scale := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,setsar=1",
		c.Width, c.Height, c.Width, c.Height)
	args := []string{
		"-loop", "1",
		"-i", image,
		"-t", seconds(c.Duration),
		"-vf", scale,
		"-r", strconv.Itoa(c.FPS),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-pix_fmt", "yuv420p",
		"-an",
	}
	return f.run(ctx, "still", out, args)
}

func (f *FFmpeg) Mux(ctx context.Context, video, audio, out string) error {
	args := []string{
		"-i", video,
		"-i", audio,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "libx264",
		"-preset", "fast",
		"-b:v", "5000k",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-movflags", "+faststart",
	}
	return f.run(ctx, "mux", out, args)
}

func (f *FFmpeg) BurnSubtitles(ctx context.Context, video, srt, out string) error {
	filter := fmt.Sprintf(
		"subtitles=%s:force_style='FontName=Arial,FontSize=14,Bold=1,PrimaryColour=&H00FFFFFF,OutlineColour=&H00000000,Outline=2,Alignment=2,MarginV=60'",
		escapeSubtitlePath(srt))
	args := []string{
		"-i", video,
		"-vf", filter,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "20",
		"-c:a", "copy",
	}
	return f.run(ctx, "subtitles", out, args)
}

// Probe returns the container duration reported by ffprobe
func (f *FFmpeg) Probe(ctx context.Context, path string) (time.Duration, error) {
	out, err := exec.CommandContext(ctx, f.probe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return 0, errors.Wrap(err, "ffprobe")
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, errors.Wrap(err, "parse ffprobe duration")
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// run encodes into a temp sibling of out and promotes it on success
func (f *FFmpeg) run(ctx context.Context, op, out string, args []string) error {
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return errors.Wrap(err, "create output dir")
	}
	tmp := provider.TempSibling(out)

	full := append([]string{"-y", "-hide_banner", "-loglevel", "error"}, args...)
	full = append(full, tmp)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.bin, full...)
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "ffmpeg %s: %s", op, strings.TrimSpace(stderr.String()))
	}
	f.log.WithFields(logrus.Fields{
		"op":      op,
		"path":    out,
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Debug("ffmpeg finished")
	return provider.Promote(tmp, out)
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

// escapeSubtitlePath escapes the characters the subtitles filter treats as separators
func escapeSubtitlePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.ReplaceAll(path, ":", "\\:")
	return strings.ReplaceAll(path, "'", "\\'")
}

func escapeDrawtext(s string) string {
	r := strings.NewReplacer("\\", "\\\\", "'", "\u2019", ":", "\\:", "%", "\\%")
	return r.Replace(s)
}
