package engine

import (
	"context"
	"fmt"

	"github.com/cubewhy/ZzxBot/automod/policystore"
	"github.com/cubewhy/ZzxBot/onebot/cqcode"
)

// Interface for a type that can handle sending moderation notices to admins
type Notifier interface {
	Name() string
	SendNotice(ctx context.Context, n ModNotice) error
}

// Forwards notices to the chat groups listed under the bot's "notify-groups".
type GroupNotifier struct {
	Sink     ActionSink
	Policies policystore.PolicyStore
}

var _ Notifier = (*GroupNotifier)(nil)

func (n *GroupNotifier) Name() string {
	return "groups"
}

func (n *GroupNotifier) SendNotice(ctx context.Context, notice ModNotice) error {
	groups, err := n.Policies.NotifyGroups(ctx)
	if err != nil {
		return err
	}
	msg := noticeText(notice)
	var lastErr error
	for _, g := range groups {
		if err := n.Sink.SendGroupMessage(ctx, g, msg); err != nil {
			lastErr = fmt.Errorf("notify group %s: %w", g, err)
		}
	}
	return lastErr
}

// Notice body. Every field may carry user-controlled text, so all of it is escaped.
func noticeText(n ModNotice) string {
	msg := fmt.Sprintf("[automod] %s: user %s in group %s (%s)", n.Rule, cqcode.Escape(n.UserID), cqcode.Escape(n.GroupID), n.Verdict)
	if n.Text != "" {
		msg += "\n" + cqcode.Escape(n.Text)
	}
	return msg
}
