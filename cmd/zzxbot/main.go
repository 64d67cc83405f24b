package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "zzxbot",
		Usage:   "group chat moderation bot (OneBot v11)",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (eg: warn, info, debug)",
			Value:   "info",
			EnvVars: []string{"ZZXBOT_LOG_LEVEL", "LOG_LEVEL"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

func configLogger(cctx *cli.Context) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cctx.String("log-level"))); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger, nil
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "connect to the OneBot implementation and moderate",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "onebot-url",
			Usage:   "forward websocket URL of the OneBot v11 implementation",
			Value:   "ws://127.0.0.1:3001",
			EnvVars: []string{"ZZXBOT_ONEBOT_URL"},
		},
		&cli.StringFlag{
			Name:    "onebot-token",
			Usage:   "access token for the OneBot connection",
			EnvVars: []string{"ZZXBOT_ONEBOT_TOKEN"},
		},
		&cli.Float64Flag{
			Name:    "onebot-rate-limit",
			Usage:   "max outbound OneBot actions per second",
			Value:   10,
			EnvVars: []string{"ZZXBOT_ONEBOT_RATE_LIMIT"},
		},
		&cli.StringFlag{
			Name:    "config-dir",
			Usage:   "directory holding config.json and black-list.json",
			Value:   "config",
			EnvVars: []string{"ZZXBOT_CONFIG_DIR"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL for counters and the nickname cache (optional)",
			EnvVars: []string{"ZZXBOT_REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "slack-webhook-url",
			Usage:   "full URL of slack webhook for moderation notices",
			EnvVars: []string{"SLACK_WEBHOOK_URL"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3998",
			EnvVars: []string{"ZZXBOT_METRICS_LISTEN"},
		},
		&cli.DurationFlag{
			Name:    "rename-delay",
			Usage:   "pause between member renames during /renameall",
			Value:   2 * time.Second,
			EnvVars: []string{"ZZXBOT_RENAME_DELAY"},
		},
		&cli.BoolFlag{
			Name:    "reban-keep-timestamp",
			Usage:   "keep the original ban time when an already blacklisted user is banned again",
			EnvVars: []string{"ZZXBOT_REBAN_KEEP_TIMESTAMP"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger, err := configLogger(cctx)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cctx.Context, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		shutdownOTEL := configOTEL(ctx, "zzxbot")
		defer shutdownOTEL()

		srv, err := NewServer(ctx, Config{
			OneBotURL:          cctx.String("onebot-url"),
			OneBotToken:        cctx.String("onebot-token"),
			OneBotRateLimit:    cctx.Float64("onebot-rate-limit"),
			ConfigDir:          cctx.String("config-dir"),
			RedisURL:           cctx.String("redis-url"),
			SlackWebhookURL:    cctx.String("slack-webhook-url"),
			RenameDelay:        cctx.Duration("rename-delay"),
			RebanKeepTimestamp: cctx.Bool("reban-keep-timestamp"),
			Logger:             logger,
		})
		if err != nil {
			return err
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			if err := srv.RunMetrics(ctx, cctx.String("metrics-listen")); err != nil {
				return fmt.Errorf("failed to run metrics endpoint: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			return srv.RunClient(ctx)
		})
		g.Go(func() error {
			return srv.Consume(ctx)
		})

		err = g.Wait()
		logger.Info("shutting down")
		srv.Shutdown()
		if err != nil {
			return fmt.Errorf("failed to run zzxbot: %w", err)
		}
		return nil
	},
}
