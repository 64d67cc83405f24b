package rules

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cubewhy/ZzxBot/automod/event"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addRequest(uid, comment string) *event.GroupRequestEvent {
	return &event.GroupRequestEvent{
		Base:    event.Base{SelfID: testSelfID},
		GroupID: testGroupID,
		UserID:  uid,
		SubType: event.GroupRequestAdd,
		Comment: comment,
		Flag:    "flag-" + uid,
	}
}

func TestExtractInviteCode(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("ABC", ExtractInviteCode("验证：ABC"))
	assert.Equal("ABC", ExtractInviteCode("问题：邀请码\n答案： ABC "))
	assert.Equal("xyz", ExtractInviteCode("code:xyz"))
	assert.Equal("", ExtractInviteCode("  plain "))
	assert.Equal("", ExtractInviteCode("验证："))
}

func TestInviteCodeSingleUse(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	eng, sink := engineFixture(t)
	setSetting(t, eng, ModuleAutoAccept, "groups", map[string]GroupJoinPolicy{
		testGroupID: {Mode: JoinInviteCode, Codes: []string{"ABC", "DEF"}},
	})

	require.NoError(eng.ProcessEvent(ctx, addRequest("1", "验证：ABC")))
	require.NoError(eng.ProcessEvent(ctx, addRequest("2", "验证：ABC")))
	calls := sink.CallsTo("ApproveGroupRequest")
	require.Len(calls, 2)
	require.True(calls[0].Approve)
	require.False(calls[1].Approve)
	require.Equal(ReasonInvalidCode, calls[1].Text)

	var cfg AcceptConfig
	require.NoError(eng.Policies.Decode(ctx, ModuleAutoAccept, &cfg))
	require.Equal([]string{"DEF"}, cfg.Groups[testGroupID].Codes)
}

func TestInviteCodeRequiresDelimiter(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	eng, _ := engineFixture(t)
	setSetting(t, eng, ModuleAutoAccept, "groups", map[string]GroupJoinPolicy{
		testGroupID: {Mode: JoinInviteCode, Codes: []string{"ABC"}},
	})

	d, err := DecideGroupAdd(ctx, eng.Policies, eng.Blacklist, addRequest("1", "ABC"))
	require.NoError(err)
	require.False(d.Approve)

	var cfg AcceptConfig
	require.NoError(eng.Policies.Decode(ctx, ModuleAutoAccept, &cfg))
	require.Equal([]string{"ABC"}, cfg.Groups[testGroupID].Codes)
}

func TestInviteCodeConcurrentRequests(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	eng, _ := engineFixture(t)
	setSetting(t, eng, ModuleAutoAccept, "groups", map[string]GroupJoinPolicy{
		testGroupID: {Mode: JoinInviteCode, Codes: []string{"ABC", "DEF"}},
	})

	var (
		wg       sync.WaitGroup
		approved atomic.Int32
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := DecideGroupAdd(ctx, eng.Policies, eng.Blacklist, addRequest(fmt.Sprintf("%d", 2000+i), "验证：ABC"))
			if err != nil {
				t.Error(err)
				return
			}
			if d.Approve {
				approved.Add(1)
			}
		}(i)
	}
	wg.Wait()
	require.Equal(int32(1), approved.Load())

	var cfg AcceptConfig
	require.NoError(eng.Policies.Decode(ctx, ModuleAutoAccept, &cfg))
	require.Equal([]string{"DEF"}, cfg.Groups[testGroupID].Codes)
}

func TestBlacklistedRequesterDeniedUnderEveryMode(t *testing.T) {
	ctx := context.Background()
	for _, policy := range []GroupJoinPolicy{
		{Mode: JoinAccept},
		{Mode: JoinReject},
		{Mode: JoinInclude, Target: "hello"},
		{Mode: JoinInviteCode, Codes: []string{"ABC"}},
	} {
		eng, _ := engineFixture(t)
		setSetting(t, eng, ModuleAutoAccept, "groups", map[string]GroupJoinPolicy{testGroupID: policy})
		_, err := eng.Blacklist.Add(ctx, "666", "spam")
		require.NoError(t, err)

		d, err := DecideGroupAdd(ctx, eng.Policies, eng.Blacklist, addRequest("666", "hello 验证：ABC"))
		require.NoError(t, err)
		assert.False(t, d.Approve, "mode %s", policy.Mode)
		assert.Equal(t, ReasonBlacklisted, d.Reason)

		// relayed by a blacklisted inviter
		req := addRequest("777", "hello 验证：ABC")
		req.InviterID = "666"
		d, err = DecideGroupAdd(ctx, eng.Policies, eng.Blacklist, req)
		require.NoError(t, err)
		assert.False(t, d.Approve, "mode %s", policy.Mode)

		// the code must not have been consumed by a denied request
		var cfg AcceptConfig
		require.NoError(t, eng.Policies.Decode(ctx, ModuleAutoAccept, &cfg))
		assert.Equal(t, policy.Codes, cfg.Groups[testGroupID].Codes)
	}
}

func TestGroupAddModes(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, _ := engineFixture(t)

	// unconfigured group is closed
	d, err := DecideGroupAdd(ctx, eng.Policies, eng.Blacklist, addRequest("1", "hi"))
	assert.NoError(err)
	assert.False(d.Approve)

	setSetting(t, eng, ModuleAutoAccept, "groups", map[string]GroupJoinPolicy{
		testGroupID: {Mode: JoinInclude, Target: "minecraft"},
	})
	d, err = DecideGroupAdd(ctx, eng.Policies, eng.Blacklist, addRequest("1", "I play minecraft"))
	assert.NoError(err)
	assert.True(d.Approve)
	d, err = DecideGroupAdd(ctx, eng.Policies, eng.Blacklist, addRequest("1", "hi"))
	assert.NoError(err)
	assert.False(d.Approve)

	setSetting(t, eng, ModuleAutoAccept, "groups", map[string]GroupJoinPolicy{testGroupID: {Mode: "bogus"}})
	d, err = DecideGroupAdd(ctx, eng.Policies, eng.Blacklist, addRequest("1", "hi"))
	assert.NoError(err)
	assert.False(d.Approve)
}

func TestGroupInvite(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, sink := engineFixture(t)

	invite := func(uid string) *event.GroupRequestEvent {
		req := addRequest(uid, "")
		req.SubType = event.GroupRequestInvite
		return req
	}
	assert.NoError(eng.ProcessEvent(ctx, invite(testAdminID)))
	assert.Equal([]string{"ApproveGroupRequest"}, sink.Methods())
	assert.True(sink.CallsTo("ApproveGroupRequest")[0].Approve)

	sink.Reset()
	assert.NoError(eng.ProcessEvent(ctx, invite("42")))
	assert.Equal([]string{"ApproveGroupRequest", "SendDirectMessage"}, sink.Methods())
	assert.False(sink.CallsTo("ApproveGroupRequest")[0].Approve)
	assert.Equal("42", sink.CallsTo("SendDirectMessage")[0].UserID)
}

func TestFriendRequest(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, sink := engineFixture(t)
	_, err := eng.Blacklist.Add(ctx, "666", "")
	assert.NoError(err)

	assert.NoError(eng.ProcessEvent(ctx, &event.FriendRequestEvent{UserID: "1", Flag: "a"}))
	assert.NoError(eng.ProcessEvent(ctx, &event.FriendRequestEvent{UserID: "666", Flag: "b"}))
	calls := sink.CallsTo("ApproveFriendRequest")
	assert.Len(calls, 2)
	assert.True(calls[0].Approve)
	assert.False(calls[1].Approve)
}

func TestAutoAcceptDisabledLeavesRequestsPending(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, sink := engineFixture(t)
	assert.NoError(eng.Policies.SetEnabled(ctx, ModuleAutoAccept, false))

	assert.NoError(eng.ProcessEvent(ctx, &event.FriendRequestEvent{UserID: "1", Flag: "a"}))
	assert.NoError(eng.ProcessEvent(ctx, addRequest("1", "hi")))
	assert.Empty(sink.Methods())
}
