package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cubewhy/ZzxBot/automod/blacklist"
	"github.com/cubewhy/ZzxBot/automod/countstore"
	"github.com/cubewhy/ZzxBot/automod/identity"
	"github.com/cubewhy/ZzxBot/automod/policystore"
	"github.com/cubewhy/ZzxBot/automod/rename"
)

// A single recorded call against a MockSink.
type SinkCall struct {
	Method   string
	GroupID  string
	UserID   string
	ID       string
	Text     string
	Duration time.Duration
	Approve  bool
}

// In-memory ActionSink which records every call. Intentionally exported, for use in other packages' tests.
type MockSink struct {
	mu    sync.Mutex
	Calls []SinkCall
	// methods listed here fail with ErrActionRejected (the call is still recorded)
	Reject map[string]bool
	// group ID to member roster
	Rosters map[string][]string
}

var _ ActionSink = (*MockSink)(nil)

func NewMockSink() *MockSink {
	return &MockSink{
		Reject:  make(map[string]bool),
		Rosters: make(map[string][]string),
	}
}

func (s *MockSink) record(c SinkCall) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, c)
	if s.Reject[c.Method] {
		return fmt.Errorf("%s: %w", c.Method, ErrActionRejected)
	}
	return nil
}

// Names of all recorded methods, in call order.
func (s *MockSink) Methods() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.Calls))
	for _, c := range s.Calls {
		out = append(out, c.Method)
	}
	return out
}

// All recorded calls of the given method.
func (s *MockSink) CallsTo(method string) []SinkCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []SinkCall
	for _, c := range s.Calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (s *MockSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = nil
}

func (s *MockSink) DeleteMessage(ctx context.Context, messageID string) error {
	return s.record(SinkCall{Method: "DeleteMessage", ID: messageID})
}

func (s *MockSink) MuteUser(ctx context.Context, groupID, userID string, d time.Duration) error {
	return s.record(SinkCall{Method: "MuteUser", GroupID: groupID, UserID: userID, Duration: d})
}

func (s *MockSink) KickUser(ctx context.Context, groupID, userID string) error {
	return s.record(SinkCall{Method: "KickUser", GroupID: groupID, UserID: userID})
}

func (s *MockSink) SendGroupMessage(ctx context.Context, groupID, text string) error {
	return s.record(SinkCall{Method: "SendGroupMessage", GroupID: groupID, Text: text})
}

func (s *MockSink) SendDirectMessage(ctx context.Context, userID, text string) error {
	return s.record(SinkCall{Method: "SendDirectMessage", UserID: userID, Text: text})
}

func (s *MockSink) ApproveFriendRequest(ctx context.Context, flag string, approve bool) error {
	return s.record(SinkCall{Method: "ApproveFriendRequest", ID: flag, Approve: approve})
}

func (s *MockSink) ApproveGroupRequest(ctx context.Context, flag, subType string, approve bool, reason string) error {
	return s.record(SinkCall{Method: "ApproveGroupRequest", ID: flag, Text: reason, Approve: approve})
}

func (s *MockSink) RenameMember(ctx context.Context, groupID, userID, card string) error {
	return s.record(SinkCall{Method: "RenameMember", GroupID: groupID, UserID: userID, Text: card})
}

func (s *MockSink) ListMembers(ctx context.Context, groupID string) ([]string, error) {
	if err := s.record(SinkCall{Method: "ListMembers", GroupID: groupID}); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.Rosters[groupID]...), nil
}

// Engine backed entirely by in-memory stores and a MockSink, with no rules configured. Callers set `Rules`.
func EngineTestFixture() Engine {
	sink := NewMockSink()
	policies := policystore.NewMemPolicyStore()
	dir := identity.NewMockDirectory()
	dir.Insert("10001", "alice")
	renames := rename.NewRunner(sink, policies, slog.Default(), 0)
	return Engine{
		Logger:    slog.Default(),
		Policies:  policies,
		Blacklist: blacklist.NewMemBlacklistStore(blacklist.RebanRefresh),
		Directory: &dir,
		Counters:  countstore.NewMemCountStore(),
		Sink:      sink,
		Renames:   renames,
	}
}

// Helper to get the MockSink of an engine built by EngineTestFixture.
func FixtureSink(eng *Engine) *MockSink {
	return eng.Sink.(*MockSink)
}

// Helper to access the private effects field from a context. Intended for use in test code, *not* from rules.
func ExtractEffects(c *BaseContext) *Effects {
	return c.effects
}
