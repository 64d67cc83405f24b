package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cubewhy/ZzxBot/automod/blacklist"
	"github.com/cubewhy/ZzxBot/automod/countstore"
	"github.com/cubewhy/ZzxBot/automod/event"
	"github.com/cubewhy/ZzxBot/automod/identity"
	"github.com/cubewhy/ZzxBot/automod/policystore"
	"github.com/cubewhy/ZzxBot/automod/rename"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("automod")

// runtime for executing rules, managing state, and executing moderation actions.
//
// TODO: careful when initializing: several fields should not be null or zero, even though they are pointer type.
type Engine struct {
	Logger    *slog.Logger
	Policies  policystore.PolicyStore
	Blacklist blacklist.BlacklistStore
	// used to resolve nicknames in leave announcements (optional)
	Directory identity.Directory
	Counters  countstore.CountStore
	Sink      ActionSink
	Rules     RuleSet
	// bulk rename single-flight guard; driven by operator commands, not by rules
	Renames *rename.Runner
	// where moderation notices get forwarded (optional)
	Notifiers []Notifier
}

// Entrypoint for every inbound platform event.
//
// Runs the matching rules, then executes the collected effects. Platform action failures are logged and counted, never returned. An error is returned only if rule execution itself failed, in which case no effects were executed.
func (eng *Engine) ProcessEvent(ctx context.Context, evt event.Event) error {
	kind := evt.Kind()
	ctx, span := tracer.Start(ctx, "ProcessEvent", trace.WithAttributes(attribute.String("type", kind)))
	defer span.End()

	// similar to an HTTP server, we want to recover any panics from rule execution
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("automod event execution exception", "err", r, "type", kind)
			eventPanicCount.WithLabelValues(kind).Inc()
			span.SetStatus(codes.Error, "panic")
		}
	}()

	start := time.Now()
	defer func() {
		eventProcessDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()
	eventProcessCount.WithLabelValues(kind).Inc()

	var (
		c   *BaseContext
		err error
	)
	switch e := evt.(type) {
	case *event.MessageEvent:
		mc := NewMessageContext(ctx, eng, *e)
		err = eng.Rules.CallMessageRules(&mc)
		if mc.Verdict != VerdictNone {
			verdictCount.WithLabelValues(mc.Verdict.String()).Inc()
			mc.Logger = mc.Logger.With("verdict", mc.Verdict.String())
		}
		c = &mc.BaseContext
	case *event.GroupJoinEvent:
		jc := NewGroupJoinContext(ctx, eng, *e)
		err = eng.Rules.CallGroupJoinRules(&jc)
		c = &jc.BaseContext
	case *event.GroupLeaveEvent:
		lc := NewGroupLeaveContext(ctx, eng, *e)
		err = eng.Rules.CallGroupLeaveRules(&lc)
		c = &lc.BaseContext
	case *event.FriendRequestEvent:
		fc := NewFriendRequestContext(ctx, eng, *e)
		err = eng.Rules.CallFriendRequestRules(&fc)
		c = &fc.BaseContext
	case *event.GroupRequestEvent:
		gc := NewGroupRequestContext(ctx, eng, *e)
		err = eng.Rules.CallGroupRequestRules(&gc)
		c = &gc.BaseContext
	case *event.BanNoticeEvent:
		bc := NewBanNoticeContext(ctx, eng, *e)
		err = eng.Rules.CallBanNoticeRules(&bc)
		c = &bc.BaseContext
	default:
		return fmt.Errorf("unhandled event type: %s", kind)
	}

	if err != nil {
		eventErrorCount.WithLabelValues(kind).Inc()
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("rule execution failed: %w", err)
	}
	if c.Err != nil {
		// soft errors (eg, a store read failing) leave whatever the rules managed to decide in place
		eventErrorCount.WithLabelValues(kind).Inc()
		c.Logger.Warn("rule execution had errors", "err", c.Err)
	}
	eng.CanonicalLogLine(c)
	eng.persistActions(ctx, c)
	eng.persistCounters(ctx, c)
	eng.sendNotices(ctx, c)
	return nil
}

// Emits a single log line summarizing all the effects of processing an event.
func (eng *Engine) CanonicalLogLine(c *BaseContext) {
	c.Logger.Info("canonical-event-line",
		"actions", c.effects.ActionKinds(),
		"counters", len(c.effects.CounterIncrements),
		"notices", len(c.effects.Notices),
		"halted", c.effects.Halted,
	)
}

func (eng *Engine) GetCount(ctx context.Context, name, val, period string) (int, error) {
	return eng.Counters.GetCount(ctx, name, val, period)
}

func (eng *Engine) GetCountDistinct(ctx context.Context, name, bucket, period string) (int, error) {
	return eng.Counters.GetCountDistinct(ctx, name, bucket, period)
}

// purge caches of any existing metadata
func (eng *Engine) PurgeUserCaches(ctx context.Context, userID string) error {
	if eng.Directory == nil {
		return nil
	}
	return eng.Directory.Purge(ctx, userID)
}
