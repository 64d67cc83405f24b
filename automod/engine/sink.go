package engine

import (
	"context"
	"errors"
	"time"
)

// Wrapped by ActionSink implementations when the platform refuses an action (eg, the bot lacks permission in a group).
var ErrActionRejected = errors.New("platform rejected action")

// Boundary through which the engine causes platform-visible effects. Every method may fail with an error wrapping ErrActionRejected; callers treat that as non-fatal.
type ActionSink interface {
	DeleteMessage(ctx context.Context, messageID string) error
	MuteUser(ctx context.Context, groupID, userID string, d time.Duration) error
	KickUser(ctx context.Context, groupID, userID string) error
	SendGroupMessage(ctx context.Context, groupID, text string) error
	SendDirectMessage(ctx context.Context, userID, text string) error
	ApproveFriendRequest(ctx context.Context, flag string, approve bool) error
	ApproveGroupRequest(ctx context.Context, flag, subType string, approve bool, reason string) error
	RenameMember(ctx context.Context, groupID, userID, card string) error
	// Member IDs, in the platform's roster order.
	ListMembers(ctx context.Context, groupID string) ([]string, error)
}
