package rules

import (
	"github.com/cubewhy/ZzxBot/automod"
)

var _ automod.BanNoticeRuleFunc = BanNoticeRule

// Records mutes applied by anyone other than the bot. Takes no action.
func BanNoticeRule(c *automod.BanNoticeContext) error {
	n := c.Notice
	if n.OperatorID == c.SelfID {
		return nil
	}
	if n.UserID == c.SelfID {
		c.Logger.Warn("bot was muted in group", "operator", n.OperatorID, "duration", n.Duration)
		c.Increment(CounterBanNotice, "self")
		return nil
	}
	c.Logger.Info("member muted by group admin", "operator", n.OperatorID, "duration", n.Duration)
	c.Increment(CounterBanNotice, n.GroupID)
	return nil
}
