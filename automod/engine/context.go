package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cubewhy/ZzxBot/automod/blacklist"
	"github.com/cubewhy/ZzxBot/automod/event"
	"github.com/cubewhy/ZzxBot/automod/policystore"
)

// The primary interface exposed to rules. All other contexts derive from this "base" struct.
type BaseContext struct {
	// Actual golang "context.Context", if needed for timeouts etc
	Ctx context.Context
	// Any errors encountered while processing methods on this struct (or sub-types) get rolled up in this nullable field
	Err error
	// slog logger handle, with event-specific structured fields pre-populated. Pointer, but expected to never be nil.
	Logger *slog.Logger
	// ID of the bot account handling this event
	SelfID string

	engine  *Engine // NOTE: pointer, but expected never to be nil
	effects *Effects
}

// A group or direct message.
type MessageContext struct {
	BaseContext

	Message event.MessageEvent
	// Set by the moderation pipeline.
	Verdict Verdict
}

type GroupJoinContext struct {
	BaseContext

	Join event.GroupJoinEvent
}

type GroupLeaveContext struct {
	BaseContext

	Leave event.GroupLeaveEvent
}

type FriendRequestContext struct {
	BaseContext

	Request event.FriendRequestEvent
}

type GroupRequestContext struct {
	BaseContext

	Request event.GroupRequestEvent
}

type BanNoticeContext struct {
	BaseContext

	Notice event.BanNoticeEvent
}

func newBaseContext(ctx context.Context, eng *Engine, meta event.Base, logger *slog.Logger) BaseContext {
	return BaseContext{
		Ctx:     ctx,
		Logger:  logger,
		SelfID:  meta.SelfID,
		engine:  eng,
		effects: &Effects{},
	}
}

func NewMessageContext(ctx context.Context, eng *Engine, evt event.MessageEvent) MessageContext {
	logger := eng.Logger.With("event", "message", "group", evt.GroupID, "user", evt.UserID, "msg", evt.MessageID)
	return MessageContext{
		BaseContext: newBaseContext(ctx, eng, evt.Base, logger),
		Message:     evt,
	}
}

func NewGroupJoinContext(ctx context.Context, eng *Engine, evt event.GroupJoinEvent) GroupJoinContext {
	logger := eng.Logger.With("event", "group-join", "group", evt.GroupID, "user", evt.UserID)
	return GroupJoinContext{
		BaseContext: newBaseContext(ctx, eng, evt.Base, logger),
		Join:        evt,
	}
}

func NewGroupLeaveContext(ctx context.Context, eng *Engine, evt event.GroupLeaveEvent) GroupLeaveContext {
	logger := eng.Logger.With("event", "group-leave", "group", evt.GroupID, "user", evt.UserID, "subType", evt.SubType)
	return GroupLeaveContext{
		BaseContext: newBaseContext(ctx, eng, evt.Base, logger),
		Leave:       evt,
	}
}

func NewFriendRequestContext(ctx context.Context, eng *Engine, evt event.FriendRequestEvent) FriendRequestContext {
	logger := eng.Logger.With("event", "friend-request", "user", evt.UserID)
	return FriendRequestContext{
		BaseContext: newBaseContext(ctx, eng, evt.Base, logger),
		Request:     evt,
	}
}

func NewGroupRequestContext(ctx context.Context, eng *Engine, evt event.GroupRequestEvent) GroupRequestContext {
	logger := eng.Logger.With("event", "group-request", "group", evt.GroupID, "user", evt.UserID, "subType", evt.SubType)
	return GroupRequestContext{
		BaseContext: newBaseContext(ctx, eng, evt.Base, logger),
		Request:     evt,
	}
}

func NewBanNoticeContext(ctx context.Context, eng *Engine, evt event.BanNoticeEvent) BanNoticeContext {
	logger := eng.Logger.With("event", "ban-notice", "group", evt.GroupID, "user", evt.UserID)
	return BanNoticeContext{
		BaseContext: newBaseContext(ctx, eng, evt.Base, logger),
		Notice:      evt,
	}
}

func (c *BaseContext) setErr(err error) {
	if c.Err == nil {
		c.Err = err
	}
}

// Access to the engine's policy store, for rules which need more than the helpers below (eg, atomic updates).
func (c *BaseContext) Policies() policystore.PolicyStore {
	return c.engine.Policies
}

func (c *BaseContext) Blacklist() blacklist.BlacklistStore {
	return c.engine.Blacklist
}

// Whether a moderation module is enabled. Unknown modules count as disabled, and roll up an error.
func (c *BaseContext) ModuleEnabled(module string) bool {
	ok, err := c.engine.Policies.GetEnabled(c.Ctx, module)
	if err != nil {
		c.setErr(err)
		return false
	}
	return ok
}

// Decodes a module's settings in to `out`. Returns false (and rolls up an error) on failure.
func (c *BaseContext) LoadConfig(module string, out any) bool {
	if err := c.engine.Policies.Decode(c.Ctx, module, out); err != nil {
		c.setErr(err)
		return false
	}
	return true
}

func (c *BaseContext) IsAdmin(userID string) bool {
	ok, err := c.engine.Policies.IsAdmin(c.Ctx, userID)
	if err != nil {
		c.setErr(err)
		return false
	}
	return ok
}

func (c *BaseContext) InBlacklist(userID string) bool {
	if userID == "" {
		return false
	}
	ok, err := c.engine.Blacklist.Contains(c.Ctx, userID)
	if err != nil {
		c.setErr(err)
		return false
	}
	return ok
}

// Returns nil if the user is not blacklisted.
func (c *BaseContext) BlacklistEntry(userID string) *blacklist.Entry {
	e, err := c.engine.Blacklist.Get(c.Ctx, userID)
	if errors.Is(err, blacklist.ErrNotFound) {
		return nil
	}
	if err != nil {
		c.setErr(err)
		return nil
	}
	return e
}

// Resolves a display name. Lookup failures are logged, not rolled up: an empty string is returned.
func (c *BaseContext) LookupName(userID string) string {
	if c.engine.Directory == nil {
		return ""
	}
	name, err := c.engine.Directory.LookupName(c.Ctx, userID)
	if err != nil {
		c.Logger.Warn("failed to resolve display name", "user", userID, "err", err)
		return ""
	}
	return name
}

// Drops any cached display name of the user, eg once they leave and the name can no longer be refreshed from group membership.
func (c *BaseContext) PurgeName(userID string) {
	if err := c.engine.PurgeUserCaches(c.Ctx, userID); err != nil {
		c.Logger.Warn("failed to purge cached display name", "user", userID, "err", err)
	}
}

// Stops any further rules from running for this event. Effects enqueued so far are still persisted.
func (c *BaseContext) Halt() {
	c.effects.Halted = true
}

func (c *BaseContext) Increment(name, val string) {
	c.effects.Increment(name, val)
}

func (c *BaseContext) IncrementDistinct(name, bucket, val string) {
	c.effects.IncrementDistinct(name, bucket, val)
}

func (c *BaseContext) NotifyAdmins(n ModNotice) {
	c.effects.NotifyAdmins(n)
}

func (c *BaseContext) DeleteMessage(messageID string) {
	c.effects.enqueue(Action{Kind: ActionDelete, MessageID: messageID})
}

func (c *BaseContext) Mute(groupID, userID string, d time.Duration) {
	c.effects.enqueue(Action{Kind: ActionMute, GroupID: groupID, UserID: userID, Duration: d})
}

func (c *BaseContext) Kick(groupID, userID string) {
	c.effects.enqueue(Action{Kind: ActionKick, GroupID: groupID, UserID: userID})
}

func (c *BaseContext) SendGroupMessage(groupID, text string) {
	c.effects.enqueue(Action{Kind: ActionGroupMessage, GroupID: groupID, Text: text})
}

func (c *BaseContext) SendDirectMessage(userID, text string) {
	c.effects.enqueue(Action{Kind: ActionDirectMessage, UserID: userID, Text: text})
}

func (c *FriendRequestContext) Respond(approve bool) {
	c.effects.enqueue(Action{Kind: ActionFriendRequest, Flag: c.Request.Flag, UserID: c.Request.UserID, Approve: approve})
}

func (c *GroupRequestContext) Respond(approve bool, reason string) {
	c.effects.enqueue(Action{
		Kind:    ActionGroupRequest,
		Flag:    c.Request.Flag,
		SubType: c.Request.SubType,
		GroupID: c.Request.GroupID,
		UserID:  c.Request.UserID,
		Approve: approve,
		Text:    reason,
	})
}

func (c *BaseContext) halted() bool {
	return c.effects.Halted
}
