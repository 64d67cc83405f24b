package engine

import (
	"context"
	"errors"
)

// Executes the enqueued platform actions, strictly in order. Every action is best-effort: a failure is logged and counted, and the remaining actions still run.
func (eng *Engine) persistActions(ctx context.Context, c *BaseContext) {
	if eng.Sink == nil {
		if len(c.effects.Actions) > 0 {
			c.Logger.Warn("no action sink configured, dropping actions", "actions", c.effects.ActionKinds())
		}
		return
	}
	for _, a := range c.effects.Actions {
		kind := string(a.Kind)
		if err := eng.executeAction(ctx, a); err != nil {
			actionFailureCount.WithLabelValues(kind).Inc()
			if errors.Is(err, ErrActionRejected) {
				c.Logger.Warn("platform rejected moderation action", "kind", kind, "err", err)
			} else {
				c.Logger.Error("failed to execute moderation action", "kind", kind, "err", err)
			}
			continue
		}
		actionCount.WithLabelValues(kind).Inc()
	}
}

func (eng *Engine) executeAction(ctx context.Context, a Action) error {
	switch a.Kind {
	case ActionDelete:
		return eng.Sink.DeleteMessage(ctx, a.MessageID)
	case ActionMute:
		return eng.Sink.MuteUser(ctx, a.GroupID, a.UserID, a.Duration)
	case ActionKick:
		return eng.Sink.KickUser(ctx, a.GroupID, a.UserID)
	case ActionGroupMessage:
		return eng.Sink.SendGroupMessage(ctx, a.GroupID, a.Text)
	case ActionDirectMessage:
		return eng.Sink.SendDirectMessage(ctx, a.UserID, a.Text)
	case ActionFriendRequest:
		return eng.Sink.ApproveFriendRequest(ctx, a.Flag, a.Approve)
	case ActionGroupRequest:
		return eng.Sink.ApproveGroupRequest(ctx, a.Flag, a.SubType, a.Approve, a.Text)
	default:
		return errors.New("unknown action kind: " + string(a.Kind))
	}
}

// Counter failures are logged, not returned: counters are informational only.
func (eng *Engine) persistCounters(ctx context.Context, c *BaseContext) {
	if eng.Counters == nil {
		return
	}
	// TODO: dedupe this array
	for _, ref := range c.effects.CounterIncrements {
		if err := eng.Counters.Increment(ctx, ref.Name, ref.Val); err != nil {
			c.Logger.Error("failed to increment counter", "name", ref.Name, "err", err)
		}
	}
	for _, ref := range c.effects.CounterDistinctIncrements {
		if err := eng.Counters.IncrementDistinct(ctx, ref.Name, ref.Bucket, ref.Val); err != nil {
			c.Logger.Error("failed to increment distinct counter", "name", ref.Name, "err", err)
		}
	}
}

func (eng *Engine) sendNotices(ctx context.Context, c *BaseContext) {
	for _, n := range c.effects.Notices {
		for _, notifier := range eng.Notifiers {
			if err := notifier.SendNotice(ctx, n); err != nil {
				noticeFailureCount.WithLabelValues(notifier.Name()).Inc()
				c.Logger.Error("failed to deliver moderation notice", "notifier", notifier.Name(), "err", err)
			}
		}
	}
}
