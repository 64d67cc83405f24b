package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cubewhy/ZzxBot/automod/command"
	"github.com/cubewhy/ZzxBot/automod/engine"
	"github.com/cubewhy/ZzxBot/automod/event"
	"github.com/cubewhy/ZzxBot/automod/policystore"
	"github.com/cubewhy/ZzxBot/automod/rules"
	"github.com/cubewhy/ZzxBot/onebot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) (*Server, *engine.MockSink) {
	t.Helper()
	ctx := context.Background()
	eng := engine.EngineTestFixture()
	eng.Rules = rules.DefaultRules()
	require.NoError(t, rules.RegisterModules(ctx, eng.Policies))
	require.NoError(t, eng.Policies.(*policystore.JSONPolicyStore).SetAdmins(ctx, []string{"1001"}))
	return &Server{
		logger: eng.Logger,
		engine: &eng,
		router: command.NewRouter(&eng),
	}, engine.FixtureSink(&eng)
}

func TestNewServer(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "config")
	ctx := context.Background()

	_, err := NewServer(ctx, Config{OneBotURL: "http://127.0.0.1:3001", ConfigDir: dir})
	assert.Error(t, err)

	srv, err := NewServer(ctx, Config{OneBotURL: "ws://127.0.0.1:3001", ConfigDir: dir, RenameDelay: time.Second})
	require.NoError(t, err)
	assert.Len(t, srv.engine.Notifiers, 1)
	_, err = os.Stat(filepath.Join(dir, policyFile))
	assert.NoError(t, err)

	modules, err := srv.engine.Policies.Modules(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{rules.ModuleAutoAccept, rules.ModuleAutoWelcome, rules.ModuleAutoMute, rules.ModuleRecall}, modules)
}

func TestHandleEventModeratesCommands(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	srv, sink := testServer(t)
	_, err := srv.engine.Blacklist.Add(ctx, "42", "spam")
	require.NoError(t, err)

	msg := &event.MessageEvent{
		Base:      event.Base{SelfID: "999"},
		MessageID: "7",
		GroupID:   "5555",
		UserID:    "42",
		Text:      "/bot",
	}
	srv.HandleEvent(ctx, msg)

	methods := sink.Methods()
	assert.Contains(methods, "DeleteMessage")
	assert.Contains(methods, "MuteUser")
	replies := sink.CallsTo("SendGroupMessage")
	require.Len(t, replies, 1)
	assert.Equal("5555", replies[0].GroupID)
	assert.Equal(command.BotBanner, replies[0].Text)
}

func TestHandleEventDirectReply(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	srv, sink := testServer(t)

	srv.HandleEvent(ctx, &event.MessageEvent{
		Base:      event.Base{SelfID: "999"},
		MessageID: "8",
		UserID:    "1001",
		Text:      "/toggle recall",
	})
	dms := sink.CallsTo("SendDirectMessage")
	require.Len(t, dms, 1)
	assert.Equal("1001", dms[0].UserID)
	// brackets are escaped so they are never parsed as CQ codes
	assert.Equal("&#91;Toggle&#93; module recall is now disabled", dms[0].Text)
}

func TestConsume(t *testing.T) {
	srv, sink := testServer(t)
	events := make(chan event.Event, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.consume(ctx, events) }()

	events <- &event.FriendRequestEvent{UserID: "42", Flag: "f1"}
	assert.Eventually(t, func() bool {
		return len(sink.CallsTo("ApproveFriendRequest")) == 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
	srv.Shutdown()
	assert.True(t, sink.CallsTo("ApproveFriendRequest")[0].Approve)
}

func TestHealthCheck(t *testing.T) {
	assert := assert.New(t)
	srv, _ := testServer(t)

	rec := httptest.NewRecorder()
	srv.HandleHealthCheck(rec, httptest.NewRequest(http.MethodGet, "/_health", nil))
	assert.Equal(http.StatusServiceUnavailable, rec.Code)

	srv.client = onebot.NewClient("ws://127.0.0.1:1", "", srv.logger)
	rec = httptest.NewRecorder()
	srv.HandleHealthCheck(rec, httptest.NewRequest(http.MethodGet, "/_health", nil))
	assert.Equal(http.StatusServiceUnavailable, rec.Code)
	assert.Contains(rec.Body.String(), "not connected to onebot")
}
