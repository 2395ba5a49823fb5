package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"shorts-pipeline/internal/config"

	"github.com/pkg/errors"
)

const usage = `usage: shorts [command] [flags]

commands:
  init        create directories, .env and config/settings.yaml
  generate    produce one video
  publish     upload an existing video
  schedule    run the scheduler until interrupted
  history     list recent runs

without a command, shorts schedules when SCHEDULING_ENABLED is set and
generates one video otherwise`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cmd := ""
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "init":
		return runInit(args)
	case "generate":
		return runGenerate(ctx, args)
	case "publish":
		return runPublish(ctx, args)
	case "schedule":
		return runSchedule(ctx, args)
	case "history":
		return runHistory(ctx, args)
	case "help":
		fmt.Println(usage)
		return nil
	case "":
		cfg, err := config.Load(config.DefaultSettingsPath)
		if err != nil {
			return err
		}
		if cfg.Schedule.Enabled {
			return runSchedule(ctx, args)
		}
		return runGenerate(ctx, args)
	default:
		fmt.Fprintln(os.Stderr, usage)
		return errors.Errorf("unknown command %q", cmd)
	}
}
