package rules

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/cubewhy/ZzxBot/automod"
	"github.com/cubewhy/ZzxBot/automod/blacklist"
	"github.com/cubewhy/ZzxBot/automod/event"
	"github.com/cubewhy/ZzxBot/automod/policystore"
)

// Outcome of an access request. Reason is passed back to the platform (and may be shown to the requester).
type Decision struct {
	Approve bool
	Reason  string
}

const (
	ReasonBlacklisted     = "blacklisted"
	ReasonAccepted        = "accepted"
	ReasonClosed          = "joining this group is closed"
	ReasonMissingTarget   = "request comment does not contain the required text"
	ReasonInvalidCode     = "invalid or already used invite code"
	ReasonNotConfigured   = "group does not accept join requests"
	ReasonInviteForbidden = "only bot admins may invite the bot"

	inviteDeniedMessage = "You attempted to invite the bot, but this bot doesn't allow invitations"
)

var errCodeRejected = errors.New("invite code rejected")

func DecideFriend(ctx context.Context, bl blacklist.BlacklistStore, req *event.FriendRequestEvent) (Decision, error) {
	banned, err := bl.Contains(ctx, req.UserID)
	if err != nil {
		return Decision{}, err
	}
	if banned {
		return Decision{Approve: false, Reason: ReasonBlacklisted}, nil
	}
	return Decision{Approve: true, Reason: ReasonAccepted}, nil
}

// Decides a request by a user to join a group. Invite codes are consumed as part of an approving decision.
func DecideGroupAdd(ctx context.Context, ps policystore.PolicyStore, bl blacklist.BlacklistStore, req *event.GroupRequestEvent) (Decision, error) {
	for _, uid := range []string{req.UserID, req.InviterID} {
		if uid == "" {
			continue
		}
		banned, err := bl.Contains(ctx, uid)
		if err != nil {
			return Decision{}, err
		}
		if banned {
			return Decision{Approve: false, Reason: ReasonBlacklisted}, nil
		}
	}

	var cfg AcceptConfig
	if err := ps.Decode(ctx, ModuleAutoAccept, &cfg); err != nil {
		return Decision{}, err
	}
	policy, ok := cfg.Groups[req.GroupID]
	if !ok {
		return Decision{Approve: false, Reason: ReasonNotConfigured}, nil
	}
	switch policy.Mode {
	case JoinAccept:
		return Decision{Approve: true, Reason: ReasonAccepted}, nil
	case JoinReject:
		return Decision{Approve: false, Reason: ReasonClosed}, nil
	case JoinInclude:
		if policy.Target != "" && strings.Contains(req.Comment, policy.Target) {
			return Decision{Approve: true, Reason: ReasonAccepted}, nil
		}
		return Decision{Approve: false, Reason: ReasonMissingTarget}, nil
	case JoinInviteCode:
		code := ExtractInviteCode(req.Comment)
		if code == "" {
			return Decision{Approve: false, Reason: ReasonInvalidCode}, nil
		}
		err := ConsumeInviteCode(ctx, ps, req.GroupID, code)
		if errors.Is(err, errCodeRejected) {
			return Decision{Approve: false, Reason: ReasonInvalidCode}, nil
		}
		if err != nil {
			return Decision{}, err
		}
		return Decision{Approve: true, Reason: ReasonAccepted}, nil
	default:
		return Decision{Approve: false, Reason: ReasonNotConfigured}, nil
	}
}

// Decides an invitation of the bot itself in to a group.
func DecideGroupInvite(ctx context.Context, ps policystore.PolicyStore, req *event.GroupRequestEvent) (Decision, error) {
	ok, err := ps.IsAdmin(ctx, req.UserID)
	if err != nil {
		return Decision{}, err
	}
	if ok {
		return Decision{Approve: true, Reason: ReasonAccepted}, nil
	}
	return Decision{Approve: false, Reason: ReasonInviteForbidden}, nil
}

// The code is the text following the last full-width or ASCII colon of the comment (eg, "答案：ABC"). A comment without a colon carries no code.
func ExtractInviteCode(comment string) string {
	idx := max(strings.LastIndex(comment, "："), strings.LastIndex(comment, ":"))
	if idx < 0 {
		return ""
	}
	rest := comment[idx:]
	if strings.HasPrefix(rest, "：") {
		rest = rest[len("："):]
	} else {
		rest = rest[1:]
	}
	return strings.TrimSpace(rest)
}

// Atomically removes `code` from the group's activation codes. Returns an error wrapping errCodeRejected (and changes nothing) if the code is not present.
func ConsumeInviteCode(ctx context.Context, ps policystore.PolicyStore, groupID, code string) error {
	return ps.UpdateSetting(ctx, ModuleAutoAccept, "groups", func(cur json.RawMessage) (any, error) {
		groups := map[string]GroupJoinPolicy{}
		if cur != nil {
			if err := json.Unmarshal(cur, &groups); err != nil {
				return nil, err
			}
		}
		policy, ok := groups[groupID]
		if !ok || policy.Mode != JoinInviteCode {
			return nil, fmt.Errorf("%w: group %s", errCodeRejected, groupID)
		}
		idx := slices.Index(policy.Codes, code)
		if idx < 0 {
			return nil, errCodeRejected
		}
		policy.Codes = slices.Delete(policy.Codes, idx, idx+1)
		groups[groupID] = policy
		return groups, nil
	})
}

var _ automod.FriendRequestRuleFunc = AutoAcceptFriendRule

func AutoAcceptFriendRule(c *automod.FriendRequestContext) error {
	if !c.ModuleEnabled(ModuleAutoAccept) {
		return nil
	}
	d, err := DecideFriend(c.Ctx, c.Blacklist(), &c.Request)
	if err != nil {
		return err
	}
	c.Logger.Info("friend request decided", "approve", d.Approve, "reason", d.Reason)
	c.Respond(d.Approve)
	return nil
}

var _ automod.GroupRequestRuleFunc = AutoAcceptGroupRule

func AutoAcceptGroupRule(c *automod.GroupRequestContext) error {
	if !c.ModuleEnabled(ModuleAutoAccept) {
		return nil
	}
	var (
		d   Decision
		err error
	)
	switch c.Request.SubType {
	case event.GroupRequestInvite:
		d, err = DecideGroupInvite(c.Ctx, c.Policies(), &c.Request)
	case event.GroupRequestAdd:
		d, err = DecideGroupAdd(c.Ctx, c.Policies(), c.Blacklist(), &c.Request)
	default:
		c.Logger.Warn("unhandled group request sub-type")
		return nil
	}
	if err != nil {
		return err
	}
	c.Logger.Info("group request decided", "approve", d.Approve, "reason", d.Reason)
	c.Respond(d.Approve, d.Reason)
	if c.Request.SubType == event.GroupRequestInvite && !d.Approve {
		c.SendDirectMessage(c.Request.UserID, inviteDeniedMessage)
	}
	return nil
}
