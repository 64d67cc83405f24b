package policystore

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/cubewhy/ZzxBot/automod/docstore"
)

// PolicyStore backed by a single JSON document, read at startup and rewritten on every mutation.
//
// All mutations hold a single write lock around modify-then-persist. If persisting fails, the in-memory mutation is rolled back and the error returned.
type JSONPolicyStore struct {
	path string

	mu  sync.RWMutex
	doc Document
}

var _ PolicyStore = (*JSONPolicyStore)(nil)

// Loads (or creates) the policy document at path.
func NewJSONPolicyStore(path string) (*JSONPolicyStore, error) {
	s := &JSONPolicyStore{
		path: path,
	}
	if _, err := docstore.Load(path, &s.doc); err != nil {
		return nil, err
	}
	s.init()
	if err := s.persist(); err != nil {
		return nil, fmt.Errorf("initializing policy document: %w", err)
	}
	return s, nil
}

// In-process only store, for tests and dry runs. Nothing is written to disk.
func NewMemPolicyStore() *JSONPolicyStore {
	s := &JSONPolicyStore{}
	s.init()
	return s
}

func (s *JSONPolicyStore) init() {
	if s.doc.Modules == nil {
		s.doc.Modules = make(map[string]*ModuleEntry)
	}
	if s.doc.Bot.Admins == nil {
		s.doc.Bot.Admins = []string{}
	}
	if s.doc.Bot.NotifyGroups == nil {
		s.doc.Bot.NotifyGroups = []string{}
	}
	for name, m := range s.doc.Modules {
		if m == nil {
			delete(s.doc.Modules, name)
		}
	}
}

// caller must hold the write lock
func (s *JSONPolicyStore) persist() error {
	if s.path == "" {
		return nil
	}
	return docstore.Save(s.path, &s.doc)
}

// Applies `fn` to a module entry and persists. caller must hold the write lock.
func (s *JSONPolicyStore) mutate(module string, fn func(m *ModuleEntry) (bool, error)) error {
	prev, ok := s.doc.Modules[module]
	if !ok {
		return fmt.Errorf("%w: %s", ErrModuleNotFound, module)
	}
	next := prev.clone()
	changed, err := fn(next)
	if err != nil || !changed {
		return err
	}
	s.doc.Modules[module] = next
	if err := s.persist(); err != nil {
		s.doc.Modules[module] = prev
		return fmt.Errorf("persisting policy: %w", err)
	}
	return nil
}

func (s *JSONPolicyStore) RegisterModule(ctx context.Context, name string, defaults any) error {
	fields, err := fieldsOf(defaults)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.doc.Modules[name]
	if !exists {
		s.doc.Modules[name] = &ModuleEntry{Enabled: true, Settings: map[string]json.RawMessage{}}
	}
	err = s.mutate(name, func(m *ModuleEntry) (bool, error) {
		changed := !exists
		for k, v := range fields {
			if _, ok := m.Settings[k]; !ok {
				m.Settings[k] = v
				changed = true
			}
		}
		return changed, nil
	})
	if err != nil && !exists {
		delete(s.doc.Modules, name)
	}
	return err
}

func (s *JSONPolicyStore) GetEnabled(ctx context.Context, module string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.doc.Modules[module]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrModuleNotFound, module)
	}
	return m.Enabled, nil
}

func (s *JSONPolicyStore) SetEnabled(ctx context.Context, module string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutate(module, func(m *ModuleEntry) (bool, error) {
		if m.Enabled == enabled {
			return false, nil
		}
		m.Enabled = enabled
		return true, nil
	})
}

func (s *JSONPolicyStore) GetSetting(ctx context.Context, module, key string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.doc.Modules[module]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, module)
	}
	raw, ok := m.Settings[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrSettingNotFound, module, key)
	}
	return copyRaw(raw), nil
}

func (s *JSONPolicyStore) SetSetting(ctx context.Context, module, key string, val any) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("encoding setting %s/%s: %w", module, key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutate(module, func(m *ModuleEntry) (bool, error) {
		m.Settings[key] = raw
		return true, nil
	})
}

func (s *JSONPolicyStore) EnsureDefault(ctx context.Context, module, key string, def any) (json.RawMessage, error) {
	raw, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("encoding setting %s/%s: %w", module, key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out json.RawMessage
	err = s.mutate(module, func(m *ModuleEntry) (bool, error) {
		if cur, ok := m.Settings[key]; ok {
			out = cur
			return false, nil
		}
		m.Settings[key] = raw
		out = raw
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return copyRaw(out), nil
}

func (s *JSONPolicyStore) UpdateSetting(ctx context.Context, module, key string, fn func(cur json.RawMessage) (any, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutate(module, func(m *ModuleEntry) (bool, error) {
		next, err := fn(copyRaw(m.Settings[key]))
		if err != nil {
			return false, err
		}
		raw, err := json.Marshal(next)
		if err != nil {
			return false, fmt.Errorf("encoding setting %s/%s: %w", module, key, err)
		}
		m.Settings[key] = raw
		return true, nil
	})
}

func (s *JSONPolicyStore) Decode(ctx context.Context, module string, out any) error {
	s.mu.RLock()
	m, ok := s.doc.Modules[module]
	if !ok {
		s.mu.RUnlock()
		return fmt.Errorf("%w: %s", ErrModuleNotFound, module)
	}
	buf, err := json.Marshal(m.Settings)
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(buf, out); err != nil {
		return fmt.Errorf("decoding %s settings: %w", module, err)
	}
	return nil
}

func (s *JSONPolicyStore) Modules(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.doc.Modules))
	for name := range s.doc.Modules {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (s *JSONPolicyStore) Admins(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.doc.Bot.Admins), nil
}

func (s *JSONPolicyStore) IsAdmin(ctx context.Context, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.doc.Bot.Admins, userID), nil
}

func (s *JSONPolicyStore) NotifyGroups(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.doc.Bot.NotifyGroups), nil
}

// Replaces the admin list. The admin list is normally maintained by hand in the document; this is mostly useful for tests and bootstrapping.
func (s *JSONPolicyStore) SetAdmins(ctx context.Context, admins []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.doc.Bot.Admins
	s.doc.Bot.Admins = append([]string{}, admins...)
	if err := s.persist(); err != nil {
		s.doc.Bot.Admins = prev
		return fmt.Errorf("persisting policy: %w", err)
	}
	return nil
}

func (s *JSONPolicyStore) SetNotifyGroups(ctx context.Context, groups []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.doc.Bot.NotifyGroups
	s.doc.Bot.NotifyGroups = append([]string{}, groups...)
	if err := s.persist(); err != nil {
		s.doc.Bot.NotifyGroups = prev
		return fmt.Errorf("persisting policy: %w", err)
	}
	return nil
}
