// Command agent is the on-device time clock.
//
// Usage:
//
//	agent run                               keep the replay worker and watchers alive
//	agent punch -action clock-in -job ID    record one punch
//	agent sync                              replay queued punches now
//	agent status                            print local state as JSON
//	agent jobs                              refresh and list cached jobs
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"axiapac.com/timeclock/agent"
	"axiapac.com/timeclock/config"
	"axiapac.com/timeclock/core"
	"axiapac.com/timeclock/infrastructure/devops"
	"axiapac.com/timeclock/model"
	"github.com/joho/godotenv"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx)
	if err != nil {
		log.Fatal(err)
	}
	logger := core.NewLogger(cfg.Log)

	a, err := agent.New(cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	if err := a.Start(ctx); err != nil {
		log.Fatal(err)
	}

	if err := dispatch(ctx, a, os.Args[1], os.Args[2:]); err != nil {
		logger.Error("command failed", slog.String("command", os.Args[1]), slog.String("error", err.Error()))
		a.Close()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: agent <run|punch|sync|status|jobs> [flags]")
}

// loadConfig reads local config and applies the SSM overlay when one is named.
func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Remote.Parameter == "" {
		return cfg, nil
	}

	remote, err := devops.LoadRemoteSettings(ctx, cfg.Remote.Parameter)
	if err != nil {
		return nil, fmt.Errorf("remote settings: %w", err)
	}
	if err := remote.Apply(cfg); err != nil {
		return nil, fmt.Errorf("remote settings: %w", err)
	}
	return cfg, nil
}

func dispatch(ctx context.Context, a *agent.Agent, command string, args []string) error {
	switch command {
	case "run":
		a.Log.Info("agent running", "user", a.Config.User.ID, "api", a.Config.API.BaseURL)
		return a.Run(ctx)

	case "punch":
		fs := flag.NewFlagSet("punch", flag.ExitOnError)
		action := fs.String("action", "", "clock-in, clock-out, break-start or break-end")
		jobID := fs.String("job", "", "job id")
		fs.Parse(args)

		t, err := model.ParseEventType(*action)
		if err != nil {
			return err
		}
		res, err := a.Punch(ctx, t, *jobID)
		if err != nil {
			return err
		}
		return printJSON(res)

	case "sync":
		res, err := a.Sync(ctx)
		if err != nil {
			return err
		}
		return printJSON(res)

	case "status":
		status, err := a.Status(ctx)
		if err != nil {
			return err
		}
		return printJSON(status)

	case "jobs":
		if _, err := a.Service.RefreshJobs(ctx); err != nil {
			a.Log.Warn("showing cached jobs", "error", err)
		}
		jobs, err := a.Service.Jobs(ctx)
		if err != nil {
			return err
		}
		return printJSON(jobs)
	}

	usage()
	return fmt.Errorf("unknown command %q", command)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
