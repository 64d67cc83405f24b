package engine

import (
	"time"
)

type ActionKind string

const (
	ActionDelete        ActionKind = "delete"
	ActionMute          ActionKind = "mute"
	ActionKick          ActionKind = "kick"
	ActionGroupMessage  ActionKind = "group-message"
	ActionDirectMessage ActionKind = "direct-message"
	ActionFriendRequest ActionKind = "friend-request"
	ActionGroupRequest  ActionKind = "group-request"
)

// A single platform action, enqueued by a rule and executed (in order) by the engine once all rules have run.
type Action struct {
	Kind      ActionKind
	MessageID string
	GroupID   string
	UserID    string
	Duration  time.Duration
	Text      string
	Flag      string
	SubType   string
	Approve   bool
}

// Outcome of the moderation pipeline for a single group message.
type Verdict int

const (
	VerdictNone Verdict = iota
	VerdictDelete
	VerdictDeleteMute
	VerdictDeleteMuteNotify
)

func (v Verdict) String() string {
	switch v {
	case VerdictDelete:
		return "delete"
	case VerdictDeleteMute:
		return "delete+mute"
	case VerdictDeleteMuteNotify:
		return "delete+mute+notify"
	default:
		return "none"
	}
}

type CounterRef struct {
	Name string
	Val  string
}

type CounterDistinctRef struct {
	Name   string
	Bucket string
	Val    string
}

// Summary of an automated moderation action, forwarded to admins (notify groups, webhooks).
type ModNotice struct {
	GroupID string
	UserID  string
	// name of the rule which fired, eg "blocked-word"
	Rule    string
	Verdict Verdict
	Text    string
}

// Mutable container for all the side-effects of processing a single event.
//
// Rules append to this; nothing here has touched the platform until the engine persists it.
type Effects struct {
	// Platform actions, executed strictly in the order they were enqueued.
	Actions []Action
	// Counters which should be incremented as part of processing this event.
	CounterIncrements []CounterRef
	// Similar to "CounterIncrements", but for "distinct" style counters
	CounterDistinctIncrements []CounterDistinctRef
	// Summaries to forward to admins.
	Notices []ModNotice
	// Set when a rule indicates that no further rules should run for this event.
	Halted bool
}

func (e *Effects) enqueue(a Action) {
	e.Actions = append(e.Actions, a)
}

func (e *Effects) Increment(name, val string) {
	e.CounterIncrements = append(e.CounterIncrements, CounterRef{Name: name, Val: val})
}

func (e *Effects) IncrementDistinct(name, bucket, val string) {
	e.CounterDistinctIncrements = append(e.CounterDistinctIncrements, CounterDistinctRef{Name: name, Bucket: bucket, Val: val})
}

func (e *Effects) NotifyAdmins(n ModNotice) {
	e.Notices = append(e.Notices, n)
}

// Kinds of all enqueued actions, in order. Mostly useful for logging and tests.
func (e *Effects) ActionKinds() []string {
	out := make([]string, 0, len(e.Actions))
	for _, a := range e.Actions {
		out = append(out, string(a.Kind))
	}
	return out
}
