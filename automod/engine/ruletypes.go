package engine

type MessageRuleFunc = func(c *MessageContext) error
type GroupJoinRuleFunc = func(c *GroupJoinContext) error
type GroupLeaveRuleFunc = func(c *GroupLeaveContext) error
type FriendRequestRuleFunc = func(c *FriendRequestContext) error
type GroupRequestRuleFunc = func(c *GroupRequestContext) error
type BanNoticeRuleFunc = func(c *BanNoticeContext) error
