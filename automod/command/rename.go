package command

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/cubewhy/ZzxBot/automod/rename"

	"github.com/spf13/pflag"
)

const finalReplyTimeout = 10 * time.Second

func renameFlags() (*pflag.FlagSet, *bool, *bool) {
	fs := pflag.NewFlagSet("renameall", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	reset := fs.Bool("reset", false, "clear the group card of every member")
	cancel := fs.Bool("cancel", false, "stop the running bulk rename")
	return fs, reset, cancel
}

func renameUsage() string {
	fs, _, _ := renameFlags()
	return "/renameall [--reset] [--cancel] <prefix>\n" + strings.TrimRight(fs.FlagUsages(), "\n")
}

func renameCommand() *Command {
	return &Command{
		Name:      "renameall",
		Usage:     renameUsage(),
		GroupOnly: true,
		Run: func(ctx context.Context, inv *Invocation) error {
			fs, reset, cancel := renameFlags()
			if err := fs.Parse(inv.Args); err != nil {
				return malformed("%v", err)
			}
			runner := inv.router.Engine.Renames

			if *cancel {
				ok, err := inv.IsAdmin(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
				if err := runner.Cancel(); errors.Is(err, rename.ErrNotRunning) {
					inv.Reply(ctx, "[Rename] no rename is running")
					return nil
				} else if err != nil {
					return err
				}
				inv.Reply(ctx, "[Rename] cancelling")
				return nil
			}

			prefix := strings.Join(fs.Args(), " ")
			if prefix == "" && !*reset {
				return malformed("missing prefix")
			}
			job, err := runner.Start(ctx, rename.Request{
				GroupID:     inv.GroupID,
				RequesterID: inv.UserID,
				SelfID:      inv.SelfID,
				Prefix:      prefix,
				Reset:       *reset,
			})
			switch {
			case errors.Is(err, rename.ErrNotAdmin):
				return nil
			case errors.Is(err, rename.ErrAlreadyRunning):
				inv.Reply(ctx, "[Rename] a rename is already running; use /renameall --cancel to stop it")
				return nil
			case err != nil:
				return err
			}
			inv.Replyf(ctx, "[Rename] started, estimated time: %ds", int(job.Estimate/time.Second))

			inv.router.goJob(func(jobCtx context.Context) {
				res := runner.Run(jobCtx, job)
				// the final report still goes out when the job was stopped by shutdown
				replyCtx, done := context.WithTimeout(context.WithoutCancel(jobCtx), finalReplyTimeout)
				defer done()
				if res.Cancelled {
					inv.Replyf(replyCtx, "[Rename] cancelled after %d member(s), %s", res.Renamed, res.Elapsed.Round(time.Second))
					return
				}
				inv.Replyf(replyCtx, "[Rename] done in %s (%d renamed, %d failed)", res.Elapsed.Round(time.Second), res.Renamed, res.Failed)
			})
			return nil
		},
	}
}
