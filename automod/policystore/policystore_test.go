package policystore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Limit int      `json:"limit"`
	Words []string `json:"words"`
}

func TestRegisterModuleIdempotent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	ps := NewMemPolicyStore()

	assert.NoError(ps.RegisterModule(ctx, "auto-mute", testConfig{Limit: 10, Words: []string{}}))
	en, err := ps.GetEnabled(ctx, "auto-mute")
	assert.NoError(err)
	assert.True(en)

	assert.NoError(ps.SetEnabled(ctx, "auto-mute", false))
	assert.NoError(ps.SetSetting(ctx, "auto-mute", "limit", 3))

	// re-registering must not re-enable, or reset settings
	assert.NoError(ps.RegisterModule(ctx, "auto-mute", testConfig{Limit: 10, Words: []string{}}))
	en, err = ps.GetEnabled(ctx, "auto-mute")
	assert.NoError(err)
	assert.False(en)
	limit, err := Setting[int](ctx, ps, "auto-mute", "limit")
	assert.NoError(err)
	assert.Equal(3, limit)
}

func TestModuleNotFound(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	ps := NewMemPolicyStore()

	_, err := ps.GetEnabled(ctx, "nope")
	assert.True(errors.Is(err, ErrModuleNotFound))
	_, err = ps.GetSetting(ctx, "nope", "x")
	assert.True(errors.Is(err, ErrModuleNotFound))
	assert.True(errors.Is(ps.SetEnabled(ctx, "nope", true), ErrModuleNotFound))
	assert.True(errors.Is(ps.SetSetting(ctx, "nope", "x", 1), ErrModuleNotFound))
	var cfg testConfig
	assert.True(errors.Is(ps.Decode(ctx, "nope", &cfg), ErrModuleNotFound))

	assert.NoError(ps.RegisterModule(ctx, "recall", nil))
	_, err = ps.GetSetting(ctx, "recall", "groups")
	assert.True(errors.Is(err, ErrSettingNotFound))
}

func TestEnsureDefault(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	ps := NewMemPolicyStore()
	assert.NoError(ps.RegisterModule(ctx, "auto-welcome", nil))

	v, err := EnsureDefaultValue(ctx, ps, "auto-welcome", "leave-message", "%name% left")
	assert.NoError(err)
	assert.Equal("%name% left", v)

	// second call returns the stored value, not the new default
	v, err = EnsureDefaultValue(ctx, ps, "auto-welcome", "leave-message", "bye")
	assert.NoError(err)
	assert.Equal("%name% left", v)
}

func TestUpdateSetting(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	ps := NewMemPolicyStore()
	assert.NoError(ps.RegisterModule(ctx, "auto-mute", testConfig{Words: []string{"a"}}))

	err := ps.UpdateSetting(ctx, "auto-mute", "words", func(cur json.RawMessage) (any, error) {
		var words []string
		if err := json.Unmarshal(cur, &words); err != nil {
			return nil, err
		}
		return append(words, "b"), nil
	})
	assert.NoError(err)

	sentinel := errors.New("abort")
	err = ps.UpdateSetting(ctx, "auto-mute", "words", func(cur json.RawMessage) (any, error) {
		return []string{}, sentinel
	})
	assert.True(errors.Is(err, sentinel))

	var cfg testConfig
	assert.NoError(ps.Decode(ctx, "auto-mute", &cfg))
	assert.Equal([]string{"a", "b"}, cfg.Words)
}

func TestUpdateSettingConcurrent(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	p := filepath.Join(t.TempDir(), "config.json")
	ps, err := NewJSONPolicyStore(p)
	require.NoError(err)
	require.NoError(ps.RegisterModule(ctx, "auto-mute", testConfig{Limit: 0, Words: []string{}}))

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := ps.UpdateSetting(ctx, "auto-mute", "limit", func(cur json.RawMessage) (any, error) {
				var n int
				if err := json.Unmarshal(cur, &n); err != nil {
					return nil, err
				}
				return n + 1, nil
			})
			if err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	limit, err := Setting[int](ctx, ps, "auto-mute", "limit")
	require.NoError(err)
	require.Equal(64, limit)

	// no increment lost between memory and disk
	reloaded, err := NewJSONPolicyStore(p)
	require.NoError(err)
	limit, err = Setting[int](ctx, reloaded, "auto-mute", "limit")
	require.NoError(err)
	require.Equal(64, limit)
}

func TestRoundTrip(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	p := filepath.Join(t.TempDir(), "config.json")

	ps, err := NewJSONPolicyStore(p)
	require.NoError(err)
	require.NoError(ps.SetAdmins(ctx, []string{"1001"}))
	require.NoError(ps.RegisterModule(ctx, "auto-mute", testConfig{Limit: 10, Words: []string{"foo"}}))
	require.NoError(ps.RegisterModule(ctx, "recall", nil))
	require.NoError(ps.SetEnabled(ctx, "recall", false))

	reloaded, err := NewJSONPolicyStore(p)
	require.NoError(err)
	require.Equal(ps.doc.Bot, reloaded.doc.Bot)
	require.Equal(len(ps.doc.Modules), len(reloaded.doc.Modules))
	for name, m := range ps.doc.Modules {
		other, ok := reloaded.doc.Modules[name]
		require.True(ok)
		require.Equal(m.Enabled, other.Enabled)
		var a, b testConfig
		require.NoError(ps.Decode(ctx, name, &a))
		require.NoError(reloaded.Decode(ctx, name, &b))
		require.Equal(a, b)
	}

	admin, err := reloaded.IsAdmin(ctx, "1001")
	require.NoError(err)
	require.True(admin)
}

func TestLegacyStateKey(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	p := filepath.Join(t.TempDir(), "config.json")
	raw := `{"bot": {"admins": ["42"]}, "modules": {"auto-accept": {"state": false, "groups": {}}}}`
	require.NoError(os.WriteFile(p, []byte(raw), 0o644))

	ps, err := NewJSONPolicyStore(p)
	require.NoError(err)
	en, err := ps.GetEnabled(ctx, "auto-accept")
	require.NoError(err)
	require.False(en)
	_, err = ps.GetSetting(ctx, "auto-accept", "state")
	require.True(errors.Is(err, ErrSettingNotFound))

	groups, err := ps.NotifyGroups(ctx)
	require.NoError(err)
	require.Empty(groups)
}
