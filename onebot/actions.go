package onebot

import (
	"context"
	"fmt"
	"time"

	"github.com/cubewhy/ZzxBot/automod/engine"
	"github.com/cubewhy/ZzxBot/automod/identity"
)

var _ engine.ActionSink = (*Client)(nil)
var _ identity.Directory = (*Client)(nil)

func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	mid, err := parseID(messageID)
	if err != nil {
		return err
	}
	return c.Call(ctx, "delete_msg", map[string]any{"message_id": mid}, nil)
}

// Durations are rounded up to whole seconds; zero lifts a mute.
func (c *Client) MuteUser(ctx context.Context, groupID, userID string, d time.Duration) error {
	gid, err := parseID(groupID)
	if err != nil {
		return err
	}
	uid, err := parseID(userID)
	if err != nil {
		return err
	}
	secs := int64((d + time.Second - 1) / time.Second)
	return c.Call(ctx, "set_group_ban", map[string]any{"group_id": gid, "user_id": uid, "duration": secs}, nil)
}

func (c *Client) KickUser(ctx context.Context, groupID, userID string) error {
	gid, err := parseID(groupID)
	if err != nil {
		return err
	}
	uid, err := parseID(userID)
	if err != nil {
		return err
	}
	return c.Call(ctx, "set_group_kick", map[string]any{"group_id": gid, "user_id": uid, "reject_add_request": false}, nil)
}

// Text may contain CQ codes (eg, mentions); use cqcode.Escape for literal text.
func (c *Client) SendGroupMessage(ctx context.Context, groupID, text string) error {
	gid, err := parseID(groupID)
	if err != nil {
		return err
	}
	return c.Call(ctx, "send_group_msg", map[string]any{"group_id": gid, "message": text}, nil)
}

func (c *Client) SendDirectMessage(ctx context.Context, userID, text string) error {
	uid, err := parseID(userID)
	if err != nil {
		return err
	}
	return c.Call(ctx, "send_private_msg", map[string]any{"user_id": uid, "message": text}, nil)
}

func (c *Client) ApproveFriendRequest(ctx context.Context, flag string, approve bool) error {
	return c.Call(ctx, "set_friend_add_request", map[string]any{"flag": flag, "approve": approve}, nil)
}

func (c *Client) ApproveGroupRequest(ctx context.Context, flag, subType string, approve bool, reason string) error {
	params := map[string]any{"flag": flag, "sub_type": subType, "type": subType, "approve": approve}
	if !approve && reason != "" {
		params["reason"] = reason
	}
	return c.Call(ctx, "set_group_add_request", params, nil)
}

func (c *Client) RenameMember(ctx context.Context, groupID, userID, card string) error {
	gid, err := parseID(groupID)
	if err != nil {
		return err
	}
	uid, err := parseID(userID)
	if err != nil {
		return err
	}
	return c.Call(ctx, "set_group_card", map[string]any{"group_id": gid, "user_id": uid, "card": card}, nil)
}

func (c *Client) ListMembers(ctx context.Context, groupID string) ([]string, error) {
	gid, err := parseID(groupID)
	if err != nil {
		return nil, err
	}
	var members []struct {
		UserID int64 `json:"user_id"`
	}
	if err := c.Call(ctx, "get_group_member_list", map[string]any{"group_id": gid}, &members); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, formatID(m.UserID))
	}
	return out, nil
}

// Fetches the user's nickname from the platform, bypassing the OneBot implementation's own cache.
func (c *Client) LookupName(ctx context.Context, userID string) (string, error) {
	uid, err := parseID(userID)
	if err != nil {
		return "", err
	}
	var info struct {
		Nickname string `json:"nickname"`
	}
	if err := c.Call(ctx, "get_stranger_info", map[string]any{"user_id": uid, "no_cache": true}, &info); err != nil {
		return "", err
	}
	if info.Nickname == "" {
		return "", fmt.Errorf("%w: %s", identity.ErrUserNotFound, userID)
	}
	return info.Nickname, nil
}

// Nothing is cached at this layer.
func (c *Client) Purge(ctx context.Context, userID string) error {
	return nil
}
