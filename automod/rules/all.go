package rules

import (
	"github.com/cubewhy/ZzxBot/automod"
)

func DefaultRules() automod.RuleSet {
	rules := automod.RuleSet{
		MessageRules: []automod.MessageRuleFunc{
			AutoMuteMessageRule,
		},
		GroupJoinRules: []automod.GroupJoinRuleFunc{
			AutoWelcomeJoinRule,
		},
		GroupLeaveRules: []automod.GroupLeaveRuleFunc{
			AutoWelcomeLeaveRule,
		},
		FriendRequestRules: []automod.FriendRequestRuleFunc{
			AutoAcceptFriendRule,
		},
		GroupRequestRules: []automod.GroupRequestRuleFunc{
			AutoAcceptGroupRule,
		},
		BanNoticeRules: []automod.BanNoticeRuleFunc{
			BanNoticeRule,
		},
	}
	return rules
}
