package engine

// Holds configuration of which rules of various types should be run, and helps dispatch events to those rules.
//
// Rules of a given type run in order. A rule returning an error, or calling `Halt()`, stops processing of the remaining rules for that event.
type RuleSet struct {
	MessageRules       []MessageRuleFunc
	GroupJoinRules     []GroupJoinRuleFunc
	GroupLeaveRules    []GroupLeaveRuleFunc
	FriendRequestRules []FriendRequestRuleFunc
	GroupRequestRules  []GroupRequestRuleFunc
	BanNoticeRules     []BanNoticeRuleFunc
}

// Generic dispatch helper. `halted` is checked before each rule.
func callRules[C any](c C, halted func() bool, rules []func(C) error) error {
	for _, f := range rules {
		if halted() {
			return nil
		}
		if err := f(c); err != nil {
			return err
		}
	}
	return nil
}

func (r *RuleSet) CallMessageRules(c *MessageContext) error {
	return callRules(c, c.halted, r.MessageRules)
}

func (r *RuleSet) CallGroupJoinRules(c *GroupJoinContext) error {
	return callRules(c, c.halted, r.GroupJoinRules)
}

func (r *RuleSet) CallGroupLeaveRules(c *GroupLeaveContext) error {
	return callRules(c, c.halted, r.GroupLeaveRules)
}

func (r *RuleSet) CallFriendRequestRules(c *FriendRequestContext) error {
	return callRules(c, c.halted, r.FriendRequestRules)
}

func (r *RuleSet) CallGroupRequestRules(c *GroupRequestContext) error {
	return callRules(c, c.halted, r.GroupRequestRules)
}

func (r *RuleSet) CallBanNoticeRules(c *BanNoticeContext) error {
	return callRules(c, c.halted, r.BanNoticeRules)
}
