package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cubewhy/ZzxBot/automod/countstore"
	"github.com/cubewhy/ZzxBot/automod/event"
	"github.com/cubewhy/ZzxBot/automod/policystore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msgEvent(text string) *event.MessageEvent {
	return &event.MessageEvent{
		Base:      event.Base{SelfID: "999"},
		MessageID: "m1",
		GroupID:   "g1",
		UserID:    "10001",
		Text:      text,
	}
}

func TestEngineBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	eng.Rules = RuleSet{
		MessageRules: []MessageRuleFunc{
			func(c *MessageContext) error {
				if c.Message.Text == "bad" {
					c.DeleteMessage(c.Message.MessageID)
					c.Mute(c.Message.GroupID, c.Message.UserID, 10*time.Minute)
					c.Increment("automod-mute", c.Message.UserID)
					c.Verdict = VerdictDeleteMute
				}
				return nil
			},
		},
	}
	sink := FixtureSink(&eng)

	assert.NoError(eng.ProcessEvent(ctx, msgEvent("fine")))
	assert.Empty(sink.Methods())

	assert.NoError(eng.ProcessEvent(ctx, msgEvent("bad")))
	assert.Equal([]string{"DeleteMessage", "MuteUser"}, sink.Methods())
	assert.Equal(10*time.Minute, sink.CallsTo("MuteUser")[0].Duration)

	n, err := eng.GetCount(ctx, "automod-mute", "10001", countstore.PeriodTotal)
	assert.NoError(err)
	assert.Equal(1, n)
}

func TestEngineHalt(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	secondRan := false
	eng.Rules = RuleSet{
		GroupJoinRules: []GroupJoinRuleFunc{
			func(c *GroupJoinContext) error {
				c.SendGroupMessage(c.Join.GroupID, "hi")
				c.Halt()
				return nil
			},
			func(c *GroupJoinContext) error {
				secondRan = true
				return nil
			},
		},
	}
	assert.NoError(eng.ProcessEvent(ctx, &event.GroupJoinEvent{GroupID: "g1", UserID: "5"}))
	assert.False(secondRan)
	assert.Equal([]string{"SendGroupMessage"}, FixtureSink(&eng).Methods())
}

func TestEngineRejectedActionsContinue(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	sink := FixtureSink(&eng)
	sink.Reject["DeleteMessage"] = true
	eng.Rules = RuleSet{
		MessageRules: []MessageRuleFunc{
			func(c *MessageContext) error {
				c.DeleteMessage(c.Message.MessageID)
				c.Mute(c.Message.GroupID, c.Message.UserID, time.Minute)
				c.SendDirectMessage(c.Message.UserID, "no")
				return nil
			},
		},
	}
	assert.NoError(eng.ProcessEvent(ctx, msgEvent("x")))
	assert.Equal([]string{"DeleteMessage", "MuteUser", "SendDirectMessage"}, sink.Methods())
}

func TestEngineRuleError(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	boom := errors.New("boom")
	eng.Rules = RuleSet{
		FriendRequestRules: []FriendRequestRuleFunc{
			func(c *FriendRequestContext) error {
				c.Respond(true)
				return boom
			},
		},
	}
	err := eng.ProcessEvent(ctx, &event.FriendRequestEvent{UserID: "1", Flag: "f"})
	assert.True(errors.Is(err, boom))
	// nothing executed when rules fail
	assert.Empty(FixtureSink(&eng).Methods())
}

func TestEnginePanicRecovered(t *testing.T) {
	ctx := context.Background()
	eng := EngineTestFixture()
	eng.Rules = RuleSet{
		BanNoticeRules: []BanNoticeRuleFunc{
			func(c *BanNoticeContext) error {
				panic("rule bug")
			},
		},
	}
	assert.NotPanics(t, func() {
		_ = eng.ProcessEvent(ctx, &event.BanNoticeEvent{GroupID: "g", UserID: "u"})
	})
}

func TestGroupNotifier(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	sink := FixtureSink(&eng)
	ps := eng.Policies.(interface {
		SetNotifyGroups(ctx context.Context, groups []string) error
	})
	require.NoError(ps.SetNotifyGroups(ctx, []string{"admins-1", "admins-2"}))
	eng.Notifiers = []Notifier{&GroupNotifier{Sink: sink, Policies: eng.Policies}}
	eng.Rules = RuleSet{
		MessageRules: []MessageRuleFunc{
			func(c *MessageContext) error {
				c.NotifyAdmins(ModNotice{GroupID: "g1", UserID: "10001", Rule: "blocked-word", Verdict: VerdictDeleteMuteNotify})
				return nil
			},
		},
	}
	require.NoError(eng.ProcessEvent(ctx, msgEvent("x")))
	calls := sink.CallsTo("SendGroupMessage")
	require.Len(calls, 2)
	require.Equal("admins-1", calls[0].GroupID)
	require.Contains(calls[0].Text, "blocked-word")
}

func TestGroupNotifierEscapesText(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	sink := NewMockSink()
	policies := policystore.NewMemPolicyStore()
	assert.NoError(policies.SetNotifyGroups(ctx, []string{"admins"}))

	n := &GroupNotifier{Sink: sink, Policies: policies}
	assert.NoError(n.SendNotice(ctx, ModNotice{
		GroupID: "g1",
		UserID:  "10001",
		Rule:    "blocked-word",
		Verdict: VerdictDeleteMuteNotify,
		Text:    "[CQ:at,qq=all] badword",
	}))
	calls := sink.CallsTo("SendGroupMessage")
	assert.Len(calls, 1)
	assert.Contains(calls[0].Text, "\n&#91;CQ:at,qq=all&#93; badword")
	assert.NotContains(calls[0].Text, "[CQ:")
}

func TestContextHelpers(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	_, err := eng.Blacklist.Add(ctx, "666", "spam")
	assert.NoError(err)

	c := NewMessageContext(ctx, &eng, *msgEvent("x"))
	assert.True(c.InBlacklist("666"))
	assert.False(c.InBlacklist("10001"))
	assert.Equal("spam", c.BlacklistEntry("666").Reason)
	assert.Nil(c.BlacklistEntry("10001"))
	assert.Equal("alice", c.LookupName("10001"))
	assert.Equal("", c.LookupName("404"))
	assert.NoError(c.Err)

	// unknown module: disabled, and rolled up as an error
	assert.False(c.ModuleEnabled("nope"))
	assert.Error(c.Err)

	c.Kick("g1", "666")
	assert.Equal([]string{"kick"}, ExtractEffects(&c.BaseContext).ActionKinds())
}
