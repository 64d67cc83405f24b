package policystore

import (
	"encoding/json"
	"maps"
)

// On-disk layout of the policy document.
type Document struct {
	Bot     BotSection              `json:"bot"`
	Modules map[string]*ModuleEntry `json:"modules"`
}

type BotSection struct {
	Admins []string `json:"admins"`
	// groups which receive a summary of automated moderation actions
	NotifyGroups []string `json:"notify-groups"`
}

// A single module's policy. Serialized flat: `{"enabled": true, "<key>": <value>, ...}`.
type ModuleEntry struct {
	Enabled  bool
	Settings map[string]json.RawMessage
}

const enabledKey = "enabled"

// older documents used "state" instead of "enabled"
const legacyEnabledKey = "state"

func (m ModuleEntry) MarshalJSON() ([]byte, error) {
	flat := make(map[string]json.RawMessage, len(m.Settings)+1)
	maps.Copy(flat, m.Settings)
	en, err := json.Marshal(m.Enabled)
	if err != nil {
		return nil, err
	}
	flat[enabledKey] = en
	return json.Marshal(flat)
}

func (m *ModuleEntry) UnmarshalJSON(b []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(b, &flat); err != nil {
		return err
	}
	m.Enabled = false
	for _, k := range []string{legacyEnabledKey, enabledKey} {
		raw, ok := flat[k]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &m.Enabled); err != nil {
			return err
		}
		delete(flat, k)
	}
	if flat == nil {
		flat = make(map[string]json.RawMessage)
	}
	m.Settings = flat
	return nil
}

func (m *ModuleEntry) clone() *ModuleEntry {
	return &ModuleEntry{
		Enabled:  m.Enabled,
		Settings: maps.Clone(m.Settings),
	}
}

func copyRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}
