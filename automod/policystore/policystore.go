// Automod component for module policy: which moderation modules are enabled, and their settings.
//
// Settings are kept as raw JSON values per key, so that the store does not need to know every module's configuration type. Modules decode their settings in to a typed configuration struct (see `Decode`).
package policystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// Returned when reading or writing policy of a module which was never registered. Fatal to the caller's current operation.
	ErrModuleNotFound = errors.New("module not found")
	// Returned when reading a setting key which was never seeded with a default.
	ErrSettingNotFound = errors.New("setting not found")
)

type PolicyStore interface {
	// Creates the module (enabled) if it does not exist, and seeds each top-level field of `defaults` which is not already set. Never changes the enabled state of an existing module.
	RegisterModule(ctx context.Context, name string, defaults any) error
	GetEnabled(ctx context.Context, module string) (bool, error)
	SetEnabled(ctx context.Context, module string, enabled bool) error
	GetSetting(ctx context.Context, module, key string) (json.RawMessage, error)
	SetSetting(ctx context.Context, module, key string, val any) error
	// Returns the existing value for key, or stores and returns `def`.
	EnsureDefault(ctx context.Context, module, key string, def any) (json.RawMessage, error)
	// Atomic read-modify-write of a single setting. `cur` is nil if the key is unset. Returning an error from `fn` aborts without any change.
	UpdateSetting(ctx context.Context, module, key string, fn func(cur json.RawMessage) (any, error)) error
	// Decodes the full settings bag of a module in to `out`, which should be a pointer to a struct with JSON tags.
	Decode(ctx context.Context, module string, out any) error
	Modules(ctx context.Context) ([]string, error)
	Admins(ctx context.Context) ([]string, error)
	IsAdmin(ctx context.Context, userID string) (bool, error)
	NotifyGroups(ctx context.Context) ([]string, error)
}

// Typed helper for reading a single setting.
func Setting[T any](ctx context.Context, ps PolicyStore, module, key string) (T, error) {
	var out T
	raw, err := ps.GetSetting(ctx, module, key)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decoding setting %s/%s: %w", module, key, err)
	}
	return out, nil
}

// Typed helper around `EnsureDefault`.
func EnsureDefaultValue[T any](ctx context.Context, ps PolicyStore, module, key string, def T) (T, error) {
	var out T
	raw, err := ps.EnsureDefault(ctx, module, key, def)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decoding setting %s/%s: %w", module, key, err)
	}
	return out, nil
}

// splits a struct (or map) in to its top-level JSON fields
func fieldsOf(v any) (map[string]json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(buf, &out); err != nil {
		return nil, fmt.Errorf("module defaults must encode as a JSON object: %w", err)
	}
	return out, nil
}
