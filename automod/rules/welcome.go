package rules

import (
	"fmt"
	"strings"

	"github.com/cubewhy/ZzxBot/automod"
	"github.com/cubewhy/ZzxBot/onebot/cqcode"
)

const (
	BotName = "ZzxBot"

	namePlaceholder = "%name%"
)

var SelfIntroduction = fmt.Sprintf("[AutoWelcome] I am %s. Make me a group admin to enable moderation, welcome messages and join request handling.", BotName)

// Renders a welcome template for a joining member: the placeholder becomes a mention.
func RenderWelcome(template, userID string) string {
	return strings.ReplaceAll(template, namePlaceholder, cqcode.At(userID)+" ")
}

// Renders a leave template. An empty name falls back to the bare user ID. The name is escaped, the template (admin-authored) is not.
func RenderLeave(template, userID, name string) string {
	who := cqcode.Escape(userID)
	if name != "" {
		who = fmt.Sprintf("%s (%s)", cqcode.Escape(name), who)
	}
	return strings.ReplaceAll(template, namePlaceholder, who)
}

var _ automod.GroupJoinRuleFunc = AutoWelcomeJoinRule

func AutoWelcomeJoinRule(c *automod.GroupJoinContext) error {
	if !c.ModuleEnabled(ModuleAutoWelcome) {
		return nil
	}
	gid, uid := c.Join.GroupID, c.Join.UserID
	if uid == c.SelfID {
		c.SendGroupMessage(gid, SelfIntroduction)
		c.Halt()
		return nil
	}
	var cfg WelcomeConfig
	if !c.LoadConfig(ModuleAutoWelcome, &cfg) {
		return nil
	}
	template, ok := cfg.Groups[gid]
	if !ok {
		return nil
	}
	if cfg.AutoKick && c.InBlacklist(uid) {
		c.Logger.Info("kicking blacklisted member on join")
		c.Kick(gid, uid)
	}
	c.SendGroupMessage(gid, RenderWelcome(template, uid))
	return nil
}

var _ automod.GroupLeaveRuleFunc = AutoWelcomeLeaveRule

func AutoWelcomeLeaveRule(c *automod.GroupLeaveContext) error {
	if !c.ModuleEnabled(ModuleAutoWelcome) {
		return nil
	}
	// the bot itself was removed; it can no longer post in the group
	if c.Leave.SubType == "kick_me" || c.Leave.UserID == c.SelfID {
		return nil
	}
	var cfg WelcomeConfig
	if !c.LoadConfig(ModuleAutoWelcome, &cfg) {
		return nil
	}
	name := c.LookupName(c.Leave.UserID)
	c.PurgeName(c.Leave.UserID)
	c.SendGroupMessage(c.Leave.GroupID, RenderLeave(cfg.LeaveMessage, c.Leave.UserID, name))
	return nil
}
