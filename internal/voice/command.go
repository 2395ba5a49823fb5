package voice

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"shorts-pipeline/internal/provider"
	"shorts-pipeline/internal/types"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const edgeTTSVoice = "en-US-GuyNeural"

// Command runs an external TTS program.
// The program accepts --text "..." --output path; edge-tts uses its own flags
// and a .py command is run with python3.
type Command struct {
	command      string
	dir          string
	cacheEnabled bool
	log          *logrus.Entry
}

// NewCommand returns a command backend, or nil when no TTS program is
// configured and edge-tts is not on PATH
func NewCommand(command, dir string, cacheEnabled bool, log *logrus.Entry) *Command {
	command = strings.TrimSpace(command)
	if command == "" {
		if _, err := exec.LookPath("edge-tts"); err != nil {
			return nil
		}
		command = "edge-tts"
	}
	return &Command{command: command, dir: dir, cacheEnabled: cacheEnabled, log: log}
}

func (c *Command) Name() string { return "command" }

func (c *Command) Produce(ctx context.Context, sc types.Script) (types.AudioAsset, error) {
	path := provider.ArtifactPath(c.dir, "audio", sc.Text, "mp3")
	if provider.Reusable(path, c.cacheEnabled) {
		return c.asset(path)
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return types.AudioAsset{}, errors.Wrap(err, "create audio dir")
	}

	tmp := provider.TempSibling(path)
	var stderr bytes.Buffer
	cmd := c.build(ctx, sc.Text, tmp)
	cmd.Stderr = &stderr

	c.log.WithField("command", c.command).Debug("Running TTS command")
	if err := cmd.Run(); err != nil {
		os.Remove(tmp)
		return types.AudioAsset{}, provider.BackendErr(c.Name(),
			errors.Wrapf(err, "%s: %s", c.command, strings.TrimSpace(stderr.String())))
	}
	if err := provider.Promote(tmp, path); err != nil {
		return types.AudioAsset{}, provider.BackendErr(c.Name(), err)
	}
	return c.asset(path)
}

func (c *Command) build(ctx context.Context, text, out string) *exec.Cmd {
	switch {
	case c.command == "edge-tts":
		return exec.CommandContext(ctx, "edge-tts",
			"--voice", edgeTTSVoice,
			"--text", text,
			"--write-media", out,
		)
	case strings.HasSuffix(c.command, ".py"):
		return exec.CommandContext(ctx, "python3", c.command, "--text", text, "--output", out)
	default:
		return exec.CommandContext(ctx, c.command, "--text", text, "--output", out)
	}
}

func (c *Command) asset(path string) (types.AudioAsset, error) {
	asset := types.AudioAsset{Path: path}
	d, rate, err := Duration(path)
	if err != nil {
		// some engines write wav regardless of the extension; the file is
		// still usable by ffmpeg, only the measurement is lost
		c.log.WithError(err).Warn("Could not measure audio duration")
		return asset, nil
	}
	asset.Duration, asset.SampleRate = d, rate
	return asset, nil
}
