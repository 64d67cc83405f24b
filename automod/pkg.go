package automod

import (
	"github.com/cubewhy/ZzxBot/automod/countstore"
	"github.com/cubewhy/ZzxBot/automod/engine"
)

type Engine = engine.Engine
type RuleSet = engine.RuleSet
type ActionSink = engine.ActionSink
type ModNotice = engine.ModNotice
type Verdict = engine.Verdict

type Notifier = engine.Notifier
type SlackNotifier = engine.SlackNotifier
type GroupNotifier = engine.GroupNotifier

type MessageContext = engine.MessageContext
type GroupJoinContext = engine.GroupJoinContext
type GroupLeaveContext = engine.GroupLeaveContext
type FriendRequestContext = engine.FriendRequestContext
type GroupRequestContext = engine.GroupRequestContext
type BanNoticeContext = engine.BanNoticeContext

type MessageRuleFunc = engine.MessageRuleFunc
type GroupJoinRuleFunc = engine.GroupJoinRuleFunc
type GroupLeaveRuleFunc = engine.GroupLeaveRuleFunc
type FriendRequestRuleFunc = engine.FriendRequestRuleFunc
type GroupRequestRuleFunc = engine.GroupRequestRuleFunc
type BanNoticeRuleFunc = engine.BanNoticeRuleFunc

var (
	VerdictNone             = engine.VerdictNone
	VerdictDelete           = engine.VerdictDelete
	VerdictDeleteMute       = engine.VerdictDeleteMute
	VerdictDeleteMuteNotify = engine.VerdictDeleteMuteNotify

	ErrActionRejected = engine.ErrActionRejected

	PeriodTotal = countstore.PeriodTotal
	PeriodDay   = countstore.PeriodDay
	PeriodHour  = countstore.PeriodHour
)
