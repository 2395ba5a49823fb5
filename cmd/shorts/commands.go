package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shorts-pipeline/internal/config"
	"shorts-pipeline/internal/scheduler"
	"shorts-pipeline/internal/types"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	root := fs.String("dir", ".", "project directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return initProject(*root)
}

// initProject lays out a fresh project. Existing .env and settings files are
// left untouched.
func initProject(root string) error {
	dirs := []string{
		"output", "logs", "models", "cache", "temp", "config",
		filepath.Join("output", "audio"),
		filepath.Join("output", "video"),
		filepath.Join("output", "final"),
		filepath.Join("output", "runs"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0755); err != nil {
			return errors.Wrapf(err, "create %s", d)
		}
	}

	envPath := filepath.Join(root, ".env")
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		if err := godotenv.Write(config.DefaultEnv(), envPath); err != nil {
			return errors.Wrap(err, "write .env")
		}
		fmt.Println("Created", envPath)
	}

	settingsPath := filepath.Join(root, config.DefaultSettingsPath)
	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		data, err := yaml.Marshal(config.Default())
		if err != nil {
			return errors.Wrap(err, "encode settings")
		}
		if err := os.WriteFile(settingsPath, data, 0644); err != nil {
			return errors.Wrap(err, "write settings")
		}
		fmt.Println("Created", settingsPath)
	}

	fmt.Println("Project initialised. Fill in API keys in .env to enable remote backends.")
	return nil
}

func runGenerate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	settings := fs.String("config", config.DefaultSettingsPath, "settings file")
	topic := fs.String("topic", "", "video topic (default from settings)")
	seconds := fs.Int("duration", 0, "target length in seconds (default from settings)")
	style := fs.String("style", "", "narration style (default from settings)")
	publishFlag := fs.Bool("publish", false, "publish to the configured platforms")
	subreddits := fs.String("subreddit", "", "comma-separated subreddits to pick the topic from")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(ctx, *settings, func(cfg *config.Config) {
		if *seconds != 0 {
			cfg.Defaults.Duration = *seconds
		}
		if *style != "" {
			cfg.Defaults.Style = *style
		}
	})
	if err != nil {
		return err
	}
	defer a.Close()

	text := *topic
	if text == "" {
		text = a.cfg.Defaults.Topic
	}
	if src := a.topicSource(splitList(*subreddits)); src != nil {
		if picked, err := src.Pick(ctx, text); err != nil {
			a.log.WithError(err).Warn("Topic discovery failed, using given topic")
		} else {
			text = picked
		}
	}

	video, run, err := a.pipeline.Generate(ctx,
		types.Topic{Text: text, Language: a.cfg.Defaults.Language},
		time.Duration(a.cfg.Defaults.Duration)*time.Second)
	if err != nil {
		return errors.Wrapf(err, "run %s", run.RunID)
	}
	fmt.Println(video.Path)

	if *publishFlag || a.cfg.Features.AutoPublish {
		if !a.pipeline.PublishDefaults(ctx, video) {
			return errors.New("video was not published to any platform")
		}
	}
	return nil
}

func runPublish(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("publish", flag.ContinueOnError)
	settings := fs.String("config", config.DefaultSettingsPath, "settings file")
	videoPath := fs.String("video", "", "video file to upload")
	platformList := fs.String("platforms", "", "comma-separated platforms (default from settings)")
	topic := fs.String("topic", "", "topic used for tags")
	description := fs.String("fact", "", "fact used as the description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *videoPath == "" {
		return errors.New("-video is required")
	}

	a, err := newApp(ctx, *settings, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	video := &types.ComposedVideo{
		Path: *videoPath,
		Fact: types.Fact{Text: *description, Topic: types.Topic{Text: *topic}},
	}

	var ok bool
	if *platformList == "" {
		ok = a.pipeline.PublishDefaults(ctx, video)
	} else {
		platforms, err := parsePlatforms(*platformList)
		if err != nil {
			return err
		}
		ok = a.pipeline.Publish(ctx, video, platforms)
	}
	if !ok {
		return errors.New("video was not published to any platform")
	}
	fmt.Println("Published", *videoPath)
	return nil
}

func runSchedule(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("schedule", flag.ContinueOnError)
	settings := fs.String("config", config.DefaultSettingsPath, "settings file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(ctx, *settings, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := scheduler.FromConfig(a.cfg, a.pipeline, a.log)
	if err != nil {
		return err
	}
	if src := a.topicSource(a.cfg.Topics.Subreddits); src != nil {
		s.WithTopicSource(src)
	}

	if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.log.Info("Scheduler stopped")
	return nil
}

func runHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	settings := fs.String("config", config.DefaultSettingsPath, "settings file")
	limit := fs.Int("limit", 10, "number of runs to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(ctx, *settings, nil)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.store == nil {
		return errors.New("run history is unavailable")
	}

	runs, err := a.store.RecentRuns(ctx, *limit)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Run", "Started", "Status", "Topic", "Output")
	for _, r := range runs {
		out := r.FinalFile
		if out == "" {
			out = r.Error
		}
		if err := table.Append(r.RunID, r.StartedAt.Local().Format("2006-01-02 15:04"), r.Status, r.Topic.Text, out); err != nil {
			return err
		}
	}
	return table.Render()
}

func parsePlatforms(list string) ([]types.Platform, error) {
	var out []types.Platform
	for _, name := range splitList(list) {
		p, ok := types.ParsePlatform(strings.ToLower(name))
		if !ok {
			return nil, errors.Errorf("unknown platform %q", name)
		}
		out = append(out, p)
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
