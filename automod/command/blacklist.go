package command

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cubewhy/ZzxBot/automod/blacklist"
)

const blacklistUsage = "/bl add <uid> [reason] | /bl remove <uid> | /bl get <uid> | /bl list"

// "get" is open to everyone; every other sub-command is admin only.
func blacklistCommand() *Command {
	return &Command{
		Name:  "bl",
		Usage: blacklistUsage,
		Run: func(ctx context.Context, inv *Invocation) error {
			if len(inv.Args) == 0 {
				return malformed("missing sub-command")
			}
			sub := inv.Args[0]
			if sub != "get" {
				ok, err := inv.IsAdmin(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
			}
			bl := inv.router.Engine.Blacklist
			switch sub {
			case "add":
				if len(inv.Args) < 2 {
					return malformed("missing uid")
				}
				uid := inv.Args[1]
				existed, err := bl.Contains(ctx, uid)
				if err != nil {
					return err
				}
				e, err := bl.Add(ctx, uid, inv.Rest(2))
				if err != nil {
					return err
				}
				if existed {
					inv.Replyf(ctx, "[BlackList] updated ban reason of %s: %s", uid, e.Reason)
				} else {
					inv.Replyf(ctx, "[BlackList] added %s to the blacklist: %s", uid, e.Reason)
				}
			case "remove":
				if len(inv.Args) != 2 {
					return malformed("expected one uid")
				}
				uid := inv.Args[1]
				err := bl.Remove(ctx, uid)
				if errors.Is(err, blacklist.ErrNotFound) {
					inv.Replyf(ctx, "[BlackList] %s is not on the blacklist", uid)
					return nil
				}
				if err != nil {
					return err
				}
				inv.Replyf(ctx, "[BlackList] removed %s from the blacklist", uid)
			case "get":
				if len(inv.Args) != 2 {
					return malformed("expected one uid")
				}
				uid := inv.Args[1]
				e, err := bl.Get(ctx, uid)
				if errors.Is(err, blacklist.ErrNotFound) {
					inv.Replyf(ctx, "[BlackList] %s is not on the blacklist", uid)
					return nil
				}
				if err != nil {
					return err
				}
				inv.Replyf(ctx, "[BlackList] lookup result\nUID: %s\nREASON: %s\nSINCE: %s", uid, e.Reason, e.AddedAt.Format(time.DateTime))
			case "list":
				entries, err := bl.List(ctx)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					inv.Reply(ctx, "[BlackList] the blacklist is empty")
					return nil
				}
				lines := make([]string, 0, len(entries)+1)
				lines = append(lines, "[BlackList] blacklisted users:")
				for _, e := range entries {
					lines = append(lines, e.UserID+": "+e.Reason)
				}
				inv.Reply(ctx, strings.Join(lines, "\n"))
			default:
				return malformed("unknown sub-command %q", sub)
			}
			return nil
		},
	}
}
