package command

import (
	"context"
	"testing"

	"github.com/cubewhy/ZzxBot/automod/policystore"
	"github.com/cubewhy/ZzxBot/automod/rules"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcceptCommands(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	f := newRouterFixture(t)

	require.True(f.run(testAdmin, "/accept mode 123 include I play minecraft"))
	var cfg rules.AcceptConfig
	require.NoError(f.eng.Policies.Decode(ctx, rules.ModuleAutoAccept, &cfg))
	require.Equal(rules.JoinInclude, cfg.Groups["123"].Mode)
	require.Equal("I play minecraft", cfg.Groups["123"].Target)

	require.True(f.run(testAdmin, "/accept mode 123 include"))
	require.Contains(f.out.last(), "usage: ")
	require.True(f.run(testAdmin, "/accept mode 123 bogus"))
	require.Contains(f.out.last(), "usage: ")

	require.True(f.run(testAdmin, "/accept code add 456 AAA BBB AAA"))
	require.Contains(f.out.last(), "added 2")
	require.True(f.run(testAdmin, "/accept code remove 456 AAA"))
	require.True(f.run(testAdmin, "/accept code list 456"))
	require.Contains(f.out.last(), "BBB")
	require.NotContains(f.out.last(), "AAA")

	cfg = rules.AcceptConfig{}
	require.NoError(f.eng.Policies.Decode(ctx, rules.ModuleAutoAccept, &cfg))
	require.Equal(rules.JoinInviteCode, cfg.Groups["456"].Mode)
	require.Equal([]string{"BBB"}, cfg.Groups["456"].Codes)
}

func TestWelcomeCommands(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	f := newRouterFixture(t)

	require.True(f.run(testAdmin, "/welcome set 123 Welcome %name%!\nRead the rules."))
	var cfg rules.WelcomeConfig
	require.NoError(f.eng.Policies.Decode(ctx, rules.ModuleAutoWelcome, &cfg))
	require.Equal("Welcome %name%!\nRead the rules.", cfg.Groups["123"])

	require.True(f.run(testAdmin, "/welcome kick off"))
	require.True(f.run(testAdmin, "/welcome leave bye %name%"))
	require.True(f.run(testAdmin, "/welcome unset 123"))
	cfg = rules.WelcomeConfig{}
	require.NoError(f.eng.Policies.Decode(ctx, rules.ModuleAutoWelcome, &cfg))
	require.False(cfg.AutoKick)
	require.Equal("bye %name%", cfg.LeaveMessage)
	require.Empty(cfg.Groups)

	require.True(f.run(testAdmin, "/welcome unset 123"))
	require.Contains(f.out.last(), "no welcome message")
	require.True(f.run(testAdmin, "/welcome kick maybe"))
	require.Contains(f.out.last(), "usage: ")
}

func TestFilterCommands(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	f := newRouterFixture(t)

	assert.True(f.run(testAdmin, "/filter word add spam"))
	assert.True(f.run(testAdmin, "/filter word add spam"))
	assert.Contains(f.out.last(), "already present")
	assert.True(f.run(testAdmin, "/filter phrase add buy now"))
	assert.True(f.run(testAdmin, "/filter pattern add [broken"))
	assert.Contains(f.out.last(), "usage: ")
	assert.True(f.run(testAdmin, "/filter whitelist add 77"))
	assert.True(f.run(testAdmin, "/filter lines -1"))
	assert.True(f.run(testAdmin, "/filter bypass 3"))
	assert.True(f.run(testAdmin, "/filter mute blacklist 60"))
	assert.True(f.run(testAdmin, "/filter mute long -5"))
	assert.Contains(f.out.last(), "usage: ")

	var cfg rules.FilterConfig
	assert.NoError(f.eng.Policies.Decode(ctx, rules.ModuleAutoMute, &cfg))
	assert.Equal([]string{"spam"}, cfg.BlockedWords)
	assert.Equal([]string{"buy now"}, cfg.BlockedPhrases)
	assert.Empty(cfg.BlockedPatterns)
	assert.Equal([]string{"77"}, cfg.Whitelist)
	assert.Equal(-1, cfg.LongMessageLines)
	assert.Equal(3, cfg.BypassLong)
	assert.Equal(60, cfg.MuteTimeBlocked)
	assert.Equal(1, cfg.MuteTimeLongMessage)

	assert.True(f.run(testAdmin, "/filter word remove spam"))
	words, err := policystore.Setting[[]string](ctx, f.eng.Policies, rules.ModuleAutoMute, "blocked-words")
	assert.NoError(err)
	assert.Empty(words)
}

func TestRecallCommands(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	f := newRouterFixture(t)

	assert.True(f.run(testAdmin, "/recall add 123"))
	groups, err := policystore.Setting[[]string](ctx, f.eng.Policies, rules.ModuleRecall, "groups")
	assert.NoError(err)
	assert.Equal([]string{"123"}, groups)

	assert.True(f.run(testAdmin, "/recall remove 123"))
	assert.True(f.run(testAdmin, "/recall remove 123"))
	assert.Contains(f.out.last(), "not present")
}
