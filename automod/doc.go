// Auto-moderation rules engine for a group-chat bot.
//
// This package (`github.com/cubewhy/ZzxBot/automod`) contains a "rules engine" which decides, for every inbound chat event (group message, member join or leave, friend or group request), whether to allow it, silence or evict the sender, or auto-respond. Decisions are driven by persisted policy (which modules are enabled, and their settings) and a global user blacklist. The outcome of rules is a list of platform actions (delete message, mute, kick, approve request, send message), executed by the engine through an `ActionSink`.
//
// See `automod/rules` for the moderation modules, and `cmd/zzxbot` for a daemon built on this package.
package automod
