package rules

import (
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cubewhy/ZzxBot/automod"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	blacklistNoticeFmt   = "[AutoMute] Your account is on this bot's blacklist. If you believe this is a mistake, contact any bot admin to appeal.\nReason: %s\n(do not reply to this message)"
	longMessageNoticeFmt = "[AutoMute] Long messages are not allowed in group %s"
	filterNotice         = "[AutoMute] Your message contained blocked content. If you believe this is a mistake, let any bot admin know so we can improve the filters. (do not reply to this message)"
)

// Number of lines in a message; a message without newlines is one line.
func LineCount(text string) int {
	return strings.Count(text, "\n") + 1
}

type compiledPattern struct {
	re  *regexp.Regexp
	err error
}

// Blocked patterns are compiled once and kept, along with compile failures, so a broken pattern is only logged once.
var patternCache, _ = lru.New[string, compiledPattern](512)

// Patterns only match at the start of the message.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if cp, ok := patternCache.Get(pattern); ok {
		return cp.re, cp.err
	}
	re, err := regexp.Compile("^(?:" + pattern + ")")
	if err != nil {
		slog.Warn("skipping invalid blocked pattern", "pattern", pattern, "err", err)
	}
	patternCache.Add(pattern, compiledPattern{re: re, err: err})
	return re, err
}

// Evaluates the content filters against a message. Returns the name of the first filter type which matched.
//
// Blocked words only count when the message is longer (in characters) than the bypass threshold. Patterns and exact phrases always count.
func MatchFilters(cfg *FilterConfig, text string) (string, bool) {
	if utf8.RuneCountInString(text) > cfg.BypassLong {
		for _, w := range cfg.BlockedWords {
			if w != "" && strings.Contains(text, w) {
				return "blocked-word", true
			}
		}
	}
	for _, p := range cfg.BlockedPatterns {
		re, err := compilePattern(p)
		if err != nil {
			continue
		}
		if re.MatchString(text) {
			return "blocked-pattern", true
		}
	}
	if slices.Contains(cfg.BlockedPhrases, text) {
		return "blocked-phrase", true
	}
	return "", false
}

func inRecallGroup(c *automod.MessageContext) bool {
	if !c.ModuleEnabled(ModuleRecall) {
		return false
	}
	var rc RecallConfig
	if !c.LoadConfig(ModuleRecall, &rc) {
		return false
	}
	return slices.Contains(rc.Groups, c.Message.GroupID)
}

type punishment struct {
	rule       string
	muteMins   int
	mute       bool
	dm         string
	notifyMods bool
}

func punish(c *automod.MessageContext, deleted bool, p punishment) {
	m := &c.Message
	if !deleted {
		c.DeleteMessage(m.MessageID)
		c.Increment(CounterDelete, m.UserID)
	}
	c.Verdict = automod.VerdictDelete
	// a zero duration would lift an existing mute
	if p.mute && p.muteMins > 0 {
		c.Mute(m.GroupID, m.UserID, time.Duration(p.muteMins)*time.Minute)
		c.Increment(CounterMute, m.UserID)
		c.IncrementDistinct(CounterMuteGroups, m.UserID, m.GroupID)
		c.Verdict = automod.VerdictDeleteMute
		if p.notifyMods {
			c.Verdict = automod.VerdictDeleteMuteNotify
			c.NotifyAdmins(automod.ModNotice{
				GroupID: m.GroupID,
				UserID:  m.UserID,
				Rule:    p.rule,
				Verdict: c.Verdict,
				Text:    m.Text,
			})
		}
	}
	c.SendDirectMessage(m.UserID, p.dm)
	c.Logger.Info("automod message action", "rule", p.rule, "verdict", c.Verdict.String())
	c.Halt()
}

var _ automod.MessageRuleFunc = AutoMuteMessageRule

// The per-message moderation pipeline. Steps run in a fixed order, and the first punishing step ends evaluation.
func AutoMuteMessageRule(c *automod.MessageContext) error {
	m := &c.Message
	if !m.InGroup() || m.UserID == c.SelfID {
		return nil
	}
	if c.IsAdmin(m.UserID) || !c.ModuleEnabled(ModuleAutoMute) {
		return nil
	}
	var cfg FilterConfig
	if !c.LoadConfig(ModuleAutoMute, &cfg) {
		return nil
	}
	if slices.Contains(cfg.Whitelist, m.UserID) {
		return nil
	}

	// recall does not end the pipeline
	deleted := false
	if inRecallGroup(c) {
		c.DeleteMessage(m.MessageID)
		c.Increment(CounterDelete, m.UserID)
		c.Verdict = automod.VerdictDelete
		deleted = true
	}

	if e := c.BlacklistEntry(m.UserID); e != nil {
		punish(c, deleted, punishment{
			rule:       "blacklisted",
			muteMins:   cfg.MuteTimeBlocked,
			mute:       cfg.MuteBlockedUsers,
			dm:         fmt.Sprintf(blacklistNoticeFmt, e.Reason),
			notifyMods: true,
		})
		return nil
	}

	if cfg.LongMessageLines >= 0 && LineCount(m.Text) > cfg.LongMessageLines {
		punish(c, deleted, punishment{
			rule:     "long-message",
			muteMins: cfg.MuteTimeLongMessage,
			mute:     true,
			dm:       fmt.Sprintf(longMessageNoticeFmt, m.GroupID),
		})
		return nil
	}

	if rule, ok := MatchFilters(&cfg, m.Text); ok {
		punish(c, deleted, punishment{
			rule:       rule,
			muteMins:   cfg.MuteTime,
			mute:       true,
			dm:         filterNotice,
			notifyMods: true,
		})
	}
	return nil
}
