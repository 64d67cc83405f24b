package rules

import (
	"context"
	"testing"

	"github.com/cubewhy/ZzxBot/automod"
	"github.com/cubewhy/ZzxBot/automod/engine"
	"github.com/cubewhy/ZzxBot/automod/event"
	"github.com/cubewhy/ZzxBot/automod/policystore"

	"github.com/stretchr/testify/require"
)

const (
	testSelfID  = "999"
	testAdminID = "1001"
	testGroupID = "5555"
)

// Engine with every module registered with defaults, one admin, and the default rules.
func engineFixture(t *testing.T) (*automod.Engine, *engine.MockSink) {
	t.Helper()
	ctx := context.Background()
	eng := engine.EngineTestFixture()
	eng.Rules = DefaultRules()
	require.NoError(t, RegisterModules(ctx, eng.Policies))
	ps := eng.Policies.(*policystore.JSONPolicyStore)
	require.NoError(t, ps.SetAdmins(ctx, []string{testAdminID}))
	return &eng, engine.FixtureSink(&eng)
}

func setSetting(t *testing.T, eng *automod.Engine, module, key string, val any) {
	t.Helper()
	require.NoError(t, eng.Policies.SetSetting(context.Background(), module, key, val))
}

func groupMsg(uid, text string) *event.MessageEvent {
	return &event.MessageEvent{
		Base:      event.Base{SelfID: testSelfID},
		MessageID: "msg-1",
		GroupID:   testGroupID,
		UserID:    uid,
		Text:      text,
	}
}
