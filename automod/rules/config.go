package rules

import (
	"context"
	"fmt"

	"github.com/cubewhy/ZzxBot/automod/policystore"
)

// Names of the moderation modules, as they appear in the policy document.
const (
	ModuleAutoAccept  = "auto-accept"
	ModuleAutoWelcome = "auto-welcome"
	ModuleAutoMute    = "auto-mute"
	ModuleRecall      = "recall"
)

// Counter names.
const (
	CounterMute       = "automod-mute"
	CounterDelete     = "automod-delete"
	CounterMuteGroups = "automod-mute-groups"
	CounterBanNotice  = "ban-notice"
)

type JoinMode string

const (
	JoinAccept     JoinMode = "accept"
	JoinReject     JoinMode = "reject"
	JoinInclude    JoinMode = "include"
	JoinInviteCode JoinMode = "invite-code"
)

func (m JoinMode) Valid() bool {
	switch m {
	case JoinAccept, JoinReject, JoinInclude, JoinInviteCode:
		return true
	}
	return false
}

// How join requests to a single group are handled.
type GroupJoinPolicy struct {
	Mode JoinMode `json:"type"`
	// required substring of the request comment, for JoinInclude
	Target string `json:"target,omitempty"`
	// single-use activation codes, for JoinInviteCode
	Codes []string `json:"codes,omitempty"`
}

type AcceptConfig struct {
	// keyed by group ID
	Groups map[string]GroupJoinPolicy `json:"groups"`
}

type WelcomeConfig struct {
	AutoKick     bool   `json:"auto-kick"`
	LeaveMessage string `json:"leave-message"`
	// welcome template, keyed by group ID
	Groups map[string]string `json:"groups"`
}

// Settings of the "auto-mute" module. Mute times are in minutes.
type FilterConfig struct {
	Whitelist       []string `json:"white-list"`
	BlockedWords    []string `json:"blocked-words"`
	BlockedPatterns []string `json:"blocked-pattern"`
	BlockedPhrases  []string `json:"blocked-words-full-match"`
	// negative disables the long-message rule
	LongMessageLines    int  `json:"long-message-lines"`
	BypassLong          int  `json:"bypass-long"`
	MuteTime            int  `json:"mute-time"`
	MuteTimeBlocked     int  `json:"mute-time-blocked"`
	MuteTimeLongMessage int  `json:"mute-time-long-message"`
	MuteBlockedUsers    bool `json:"mute-blocked-users"`
}

type RecallConfig struct {
	Groups []string `json:"groups"`
}

func DefaultAcceptConfig() AcceptConfig {
	return AcceptConfig{Groups: map[string]GroupJoinPolicy{}}
}

func DefaultWelcomeConfig() WelcomeConfig {
	return WelcomeConfig{
		AutoKick:     true,
		LeaveMessage: "%name% left",
		Groups:       map[string]string{},
	}
}

func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		Whitelist:           []string{},
		BlockedWords:        []string{},
		BlockedPatterns:     []string{},
		BlockedPhrases:      []string{},
		LongMessageLines:    10,
		BypassLong:          50,
		MuteTime:            10,
		MuteTimeBlocked:     1440,
		MuteTimeLongMessage: 1,
		MuteBlockedUsers:    true,
	}
}

func DefaultRecallConfig() RecallConfig {
	return RecallConfig{Groups: []string{}}
}

// Registers every moderation module with its default settings. Safe to call on every startup: existing modules and settings are left alone.
func RegisterModules(ctx context.Context, ps policystore.PolicyStore) error {
	defaults := []struct {
		name string
		cfg  any
	}{
		{ModuleAutoAccept, DefaultAcceptConfig()},
		{ModuleAutoWelcome, DefaultWelcomeConfig()},
		{ModuleAutoMute, DefaultFilterConfig()},
		{ModuleRecall, DefaultRecallConfig()},
	}
	for _, d := range defaults {
		if err := ps.RegisterModule(ctx, d.name, d.cfg); err != nil {
			return fmt.Errorf("registering module %s: %w", d.name, err)
		}
	}
	return nil
}
