package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/cubewhy/ZzxBot/automod/policystore"
	"github.com/cubewhy/ZzxBot/automod/rules"
)

// aborts a settings update without changing anything
var errNoChange = errors.New("no change")

// Read-modify-write of a module's per-group map, under the policy store's write lock.
func updateGroups[T any](ctx context.Context, ps policystore.PolicyStore, module string, fn func(groups map[string]T) error) error {
	return ps.UpdateSetting(ctx, module, "groups", func(cur json.RawMessage) (any, error) {
		groups := map[string]T{}
		if cur != nil {
			if err := json.Unmarshal(cur, &groups); err != nil {
				return nil, fmt.Errorf("decoding %s groups: %w", module, err)
			}
		}
		if groups == nil {
			groups = map[string]T{}
		}
		if err := fn(groups); err != nil {
			return nil, err
		}
		return groups, nil
	})
}

// Adds or removes a single value of a list setting. Returns errNoChange if the value was already present (add) or absent (remove).
func editList(ctx context.Context, ps policystore.PolicyStore, module, key, op, val string) error {
	return ps.UpdateSetting(ctx, module, key, func(cur json.RawMessage) (any, error) {
		list := []string{}
		if cur != nil {
			if err := json.Unmarshal(cur, &list); err != nil {
				return nil, fmt.Errorf("decoding %s/%s: %w", module, key, err)
			}
		}
		idx := slices.Index(list, val)
		switch op {
		case "add":
			if idx >= 0 {
				return nil, errNoChange
			}
			list = append(list, val)
		case "remove":
			if idx < 0 {
				return nil, errNoChange
			}
			list = slices.Delete(list, idx, idx+1)
		default:
			return nil, malformed("unknown operation %q", op)
		}
		if list == nil {
			list = []string{}
		}
		return list, nil
	})
}

func replyListEdit(ctx context.Context, inv *Invocation, tag, op, val string, err error) error {
	if errors.Is(err, errNoChange) {
		if op == "add" {
			inv.Replyf(ctx, "[%s] %q is already present", tag, val)
		} else {
			inv.Replyf(ctx, "[%s] %q is not present", tag, val)
		}
		return nil
	}
	if err != nil {
		return err
	}
	if op == "add" {
		inv.Replyf(ctx, "[%s] added %q", tag, val)
	} else {
		inv.Replyf(ctx, "[%s] removed %q", tag, val)
	}
	return nil
}

func acceptCommand() *Command {
	return &Command{
		Name:      "accept",
		Usage:     "/accept mode <group> accept|reject|invite-code | /accept mode <group> include <text> | /accept code add|remove <group> <code...> | /accept code list <group>",
		AdminOnly: true,
		Run: func(ctx context.Context, inv *Invocation) error {
			ps := inv.router.Engine.Policies
			if len(inv.Args) < 3 {
				return malformed("missing arguments")
			}
			switch inv.Args[0] {
			case "mode":
				gid, mode := inv.Args[1], rules.JoinMode(inv.Args[2])
				if !mode.Valid() {
					return malformed("unknown mode %q", mode)
				}
				target := inv.Rest(3)
				if mode == rules.JoinInclude && target == "" {
					return malformed("include mode requires a target text")
				}
				err := updateGroups(ctx, ps, rules.ModuleAutoAccept, func(groups map[string]rules.GroupJoinPolicy) error {
					p := groups[gid]
					p.Mode = mode
					p.Target = target
					groups[gid] = p
					return nil
				})
				if err != nil {
					return err
				}
				inv.Replyf(ctx, "[AutoAccept] group %s now uses mode %s", gid, mode)
			case "code":
				return acceptCodes(ctx, inv, ps)
			default:
				return malformed("unknown sub-command %q", inv.Args[0])
			}
			return nil
		},
	}
}

func acceptCodes(ctx context.Context, inv *Invocation, ps policystore.PolicyStore) error {
	op, gid := inv.Args[1], inv.Args[2]
	switch op {
	case "list":
		var cfg rules.AcceptConfig
		if err := ps.Decode(ctx, rules.ModuleAutoAccept, &cfg); err != nil {
			return err
		}
		codes := cfg.Groups[gid].Codes
		if len(codes) == 0 {
			inv.Replyf(ctx, "[AutoAccept] group %s has no invite codes", gid)
			return nil
		}
		inv.Replyf(ctx, "[AutoAccept] invite codes of group %s:\n%s", gid, strings.Join(codes, "\n"))
		return nil
	case "add", "remove":
		codes := inv.Args[3:]
		if len(codes) == 0 {
			return malformed("missing codes")
		}
		changed := 0
		err := updateGroups(ctx, ps, rules.ModuleAutoAccept, func(groups map[string]rules.GroupJoinPolicy) error {
			p, ok := groups[gid]
			if !ok {
				if op == "remove" {
					return errNoChange
				}
				p.Mode = rules.JoinInviteCode
			}
			for _, c := range codes {
				idx := slices.Index(p.Codes, c)
				if op == "add" && idx < 0 {
					p.Codes = append(p.Codes, c)
					changed++
				} else if op == "remove" && idx >= 0 {
					p.Codes = slices.Delete(p.Codes, idx, idx+1)
					changed++
				}
			}
			groups[gid] = p
			return nil
		})
		if err != nil && !errors.Is(err, errNoChange) {
			return err
		}
		verb := "added"
		if op == "remove" {
			verb = "removed"
		}
		inv.Replyf(ctx, "[AutoAccept] %s %d invite code(s) for group %s", verb, changed, gid)
		return nil
	default:
		return malformed("unknown code operation %q", op)
	}
}

func welcomeCommand() *Command {
	return &Command{
		Name:      "welcome",
		Usage:     "/welcome set <group> <template> | /welcome unset <group> | /welcome leave <template> | /welcome kick on|off",
		AdminOnly: true,
		Run: func(ctx context.Context, inv *Invocation) error {
			ps := inv.router.Engine.Policies
			if len(inv.Args) < 2 {
				return malformed("missing arguments")
			}
			switch inv.Args[0] {
			case "set":
				gid, tmpl := inv.Args[1], inv.Rest(2)
				if tmpl == "" {
					return malformed("missing template")
				}
				err := updateGroups(ctx, ps, rules.ModuleAutoWelcome, func(groups map[string]string) error {
					groups[gid] = tmpl
					return nil
				})
				if err != nil {
					return err
				}
				inv.Replyf(ctx, "[AutoWelcome] welcome message of group %s set", gid)
			case "unset":
				gid := inv.Args[1]
				err := updateGroups(ctx, ps, rules.ModuleAutoWelcome, func(groups map[string]string) error {
					if _, ok := groups[gid]; !ok {
						return errNoChange
					}
					delete(groups, gid)
					return nil
				})
				if errors.Is(err, errNoChange) {
					inv.Replyf(ctx, "[AutoWelcome] group %s has no welcome message", gid)
					return nil
				}
				if err != nil {
					return err
				}
				inv.Replyf(ctx, "[AutoWelcome] welcome message of group %s removed", gid)
			case "leave":
				if err := ps.SetSetting(ctx, rules.ModuleAutoWelcome, "leave-message", inv.Rest(1)); err != nil {
					return err
				}
				inv.Reply(ctx, "[AutoWelcome] leave message set")
			case "kick":
				on, err := parseOnOff(inv.Args[1])
				if err != nil {
					return err
				}
				if err := ps.SetSetting(ctx, rules.ModuleAutoWelcome, "auto-kick", on); err != nil {
					return err
				}
				inv.Replyf(ctx, "[AutoWelcome] auto-kick of blacklisted members: %s", inv.Args[1])
			default:
				return malformed("unknown sub-command %q", inv.Args[0])
			}
			return nil
		},
	}
}

func filterCommand() *Command {
	return &Command{
		Name:      "filter",
		Usage:     "/filter word|pattern|phrase add|remove <value> | /filter whitelist add|remove <uid> | /filter lines <n> | /filter bypass <n> | /filter mute filter|blacklist|long <minutes>",
		AdminOnly: true,
		Run: func(ctx context.Context, inv *Invocation) error {
			ps := inv.router.Engine.Policies
			if len(inv.Args) < 2 {
				return malformed("missing arguments")
			}
			listKeys := map[string]string{
				"word":      "blocked-words",
				"pattern":   "blocked-pattern",
				"phrase":    "blocked-words-full-match",
				"whitelist": "white-list",
			}
			sub := inv.Args[0]
			if key, ok := listKeys[sub]; ok {
				op, val := inv.Args[1], inv.Rest(2)
				if val == "" {
					return malformed("missing value")
				}
				if sub == "pattern" && op == "add" {
					if _, err := regexp.Compile(val); err != nil {
						return malformed("invalid pattern: %v", err)
					}
				}
				if op != "add" && op != "remove" {
					return malformed("unknown operation %q", op)
				}
				err := editList(ctx, ps, rules.ModuleAutoMute, key, op, val)
				return replyListEdit(ctx, inv, "AutoMute", op, val, err)
			}

			var key string
			args := inv.Args[1:]
			switch sub {
			case "lines":
				key = "long-message-lines"
			case "bypass":
				key = "bypass-long"
			case "mute":
				if len(args) < 2 {
					return malformed("missing duration")
				}
				switch args[0] {
				case "filter":
					key = "mute-time"
				case "blacklist":
					key = "mute-time-blocked"
				case "long":
					key = "mute-time-long-message"
				default:
					return malformed("unknown mute kind %q", args[0])
				}
				args = args[1:]
			default:
				return malformed("unknown sub-command %q", sub)
			}
			if len(args) != 1 {
				return malformed("expected a single number")
			}
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return malformed("not a number: %q", args[0])
			}
			if sub == "mute" && n < 0 {
				return malformed("durations can not be negative")
			}
			if err := ps.SetSetting(ctx, rules.ModuleAutoMute, key, n); err != nil {
				return err
			}
			inv.Replyf(ctx, "[AutoMute] %s set to %d", key, n)
			return nil
		},
	}
}

func recallCommand() *Command {
	return &Command{
		Name:      "recall",
		Usage:     "/recall add|remove <group>",
		AdminOnly: true,
		Run: func(ctx context.Context, inv *Invocation) error {
			if len(inv.Args) != 2 {
				return malformed("expected an operation and a group")
			}
			op, gid := inv.Args[0], inv.Args[1]
			if op != "add" && op != "remove" {
				return malformed("unknown operation %q", op)
			}
			err := editList(ctx, inv.router.Engine.Policies, rules.ModuleRecall, "groups", op, gid)
			return replyListEdit(ctx, inv, "Recall", op, gid, err)
		},
	}
}

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, malformed("expected on or off, got %q", s)
}
