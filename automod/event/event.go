// The closed set of inbound chat events which the moderation engine handles.
//
// Events are produced by a transport (eg, the OneBot client) and are immutable once constructed. IDs are kept as strings, regardless of how the platform encodes them.
package event

import (
	"time"
)

// One of: *MessageEvent, *GroupJoinEvent, *GroupLeaveEvent, *FriendRequestEvent, *GroupRequestEvent, *BanNoticeEvent
type Event interface {
	// short name, used for logging and metrics labels
	Kind() string
	Meta() Base
	isEvent()
}

// Fields common to every event.
type Base struct {
	// ID of the bot account which received the event
	SelfID string
	Time   time.Time
}

func (b Base) Meta() Base { return b }

// A chat message. GroupID is empty for direct (private) messages.
type MessageEvent struct {
	Base

	MessageID string
	GroupID   string
	UserID    string
	// message with all non-text segments (images, mentions, etc) removed
	Text string
}

// A member joined a group. The member may be the bot itself.
type GroupJoinEvent struct {
	Base

	GroupID    string
	UserID     string
	OperatorID string
}

// A member left (or was removed from) a group.
type GroupLeaveEvent struct {
	Base

	GroupID    string
	UserID     string
	OperatorID string
	// "leave", "kick", or "kick_me"
	SubType string
}

type FriendRequestEvent struct {
	Base

	UserID  string
	Comment string
	// opaque handle which must be passed back when approving or rejecting
	Flag string
}

const (
	// a user asks to join a group the bot administers
	GroupRequestAdd = "add"
	// a user invites the bot in to a group
	GroupRequestInvite = "invite"
)

type GroupRequestEvent struct {
	Base

	GroupID string
	UserID  string
	// set when a join request was relayed by another member's invitation
	InviterID string
	SubType   string
	Comment   string
	Flag      string
}

// A member was muted (or un-muted, with zero Duration) by a group admin.
type BanNoticeEvent struct {
	Base

	GroupID    string
	UserID     string
	OperatorID string
	Duration   time.Duration
}

func (*MessageEvent) Kind() string       { return "message" }
func (*GroupJoinEvent) Kind() string     { return "group-join" }
func (*GroupLeaveEvent) Kind() string    { return "group-leave" }
func (*FriendRequestEvent) Kind() string { return "friend-request" }
func (*GroupRequestEvent) Kind() string  { return "group-request" }
func (*BanNoticeEvent) Kind() string     { return "ban-notice" }

func (*MessageEvent) isEvent()       {}
func (*GroupJoinEvent) isEvent()     {}
func (*GroupLeaveEvent) isEvent()    {}
func (*FriendRequestEvent) isEvent() {}
func (*GroupRequestEvent) isEvent()  {}
func (*BanNoticeEvent) isEvent()     {}

// Whether this message was sent in a group (as opposed to a direct message).
func (m *MessageEvent) InGroup() bool {
	return m.GroupID != ""
}
