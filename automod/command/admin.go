package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cubewhy/ZzxBot/automod/countstore"
	"github.com/cubewhy/ZzxBot/automod/policystore"
	"github.com/cubewhy/ZzxBot/automod/rules"
)

var BotBanner = fmt.Sprintf("%s\nBy LunarCN dev\nType /help for more information", rules.BotName)

func botCommand() *Command {
	return &Command{
		Name:  "bot",
		Usage: "/bot",
		Run: func(ctx context.Context, inv *Invocation) error {
			inv.Reply(ctx, BotBanner)
			return nil
		},
	}
}

func helpCommand(r *Router) *Command {
	return &Command{
		Name:  "help",
		Usage: "/help",
		Run: func(ctx context.Context, inv *Invocation) error {
			inv.Reply(ctx, "[Help]\n"+strings.Join(r.Usages(), "\n"))
			return nil
		},
	}
}

func toggleCommand() *Command {
	return &Command{
		Name:      "toggle",
		Usage:     "/toggle <module>",
		AdminOnly: true,
		Run: func(ctx context.Context, inv *Invocation) error {
			if len(inv.Args) != 1 {
				return malformed("expected a module name")
			}
			ps := inv.router.Engine.Policies
			module := inv.Args[0]
			cur, err := ps.GetEnabled(ctx, module)
			if errors.Is(err, policystore.ErrModuleNotFound) {
				inv.Replyf(ctx, "[Toggle] module %s does not exist", module)
				return nil
			}
			if err != nil {
				return err
			}
			if err := ps.SetEnabled(ctx, module, !cur); err != nil {
				return err
			}
			state := "enabled"
			if cur {
				state = "disabled"
			}
			inv.Replyf(ctx, "[Toggle] module %s is now %s", module, state)
			return nil
		},
	}
}

func modstatsCommand() *Command {
	return &Command{
		Name:      "modstats",
		Usage:     "/modstats <uid>",
		AdminOnly: true,
		Run: func(ctx context.Context, inv *Invocation) error {
			if len(inv.Args) != 1 {
				return malformed("expected a user ID")
			}
			uid := inv.Args[0]
			counters := inv.router.Engine.Counters
			mutes, err := countstore.Summarize(ctx, counters, rules.CounterMute, uid)
			if err != nil {
				return err
			}
			deletes, err := countstore.Summarize(ctx, counters, rules.CounterDelete, uid)
			if err != nil {
				return err
			}
			groups, err := inv.router.Engine.GetCountDistinct(ctx, rules.CounterMuteGroups, uid, countstore.PeriodTotal)
			if err != nil {
				return err
			}
			inv.Replyf(ctx, "[ModStats] %s\nmutes: %d total, %d today, %d this hour\ndeleted messages: %d total, %d today, %d this hour\nmuted in %d groups",
				uid,
				mutes.Total, mutes.Day, mutes.Hour,
				deletes.Total, deletes.Day, deletes.Hour,
				groups,
			)
			return nil
		},
	}
}
