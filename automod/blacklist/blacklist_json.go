package blacklist

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cubewhy/ZzxBot/automod/docstore"
)

// BlacklistStore persisted as a single JSON document: `{"<userId>": {"reason": ..., "addedAt": ...}}`.
type JSONBlacklistStore struct {
	path   string
	policy RebanPolicy
	// for tests
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]Entry
}

var _ BlacklistStore = (*JSONBlacklistStore)(nil)

func NewJSONBlacklistStore(path string, policy RebanPolicy) (*JSONBlacklistStore, error) {
	s := &JSONBlacklistStore{
		path:    path,
		policy:  policy,
		now:     time.Now,
		entries: make(map[string]Entry),
	}
	var doc map[string]json.RawMessage
	found, err := docstore.Load(path, &doc)
	if err != nil {
		return nil, err
	}
	entries, migrated, err := decodeDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("parsing blacklist document %s: %w", path, err)
	}
	s.entries = entries
	if !found || migrated {
		if err := docstore.Save(path, s.entries); err != nil {
			return nil, fmt.Errorf("initializing blacklist document: %w", err)
		}
	}
	return s, nil
}

// Older documents nest the entries under this key, with the ban time as float unix seconds in "add-date".
const legacyWrapperKey = "black-list"

type storedEntry struct {
	Reason  string     `json:"reason"`
	AddedAt *time.Time `json:"addedAt"`
	AddDate *float64   `json:"add-date"`
}

func (se storedEntry) entry() Entry {
	e := Entry{Reason: se.Reason}
	switch {
	case se.AddedAt != nil:
		e.AddedAt = *se.AddedAt
	case se.AddDate != nil:
		e.AddedAt = time.Unix(int64(*se.AddDate), 0).UTC()
	}
	if e.Reason == "" {
		e.Reason = DefaultReason
	}
	return e
}

// Decodes a blacklist document in either layout. Returns true if legacy entries were found, in which case the document should be rewritten.
func decodeDocument(doc map[string]json.RawMessage) (map[string]Entry, bool, error) {
	entries := make(map[string]Entry, len(doc))
	migrated := false
	for uid, raw := range doc {
		if uid == legacyWrapperKey {
			var legacy map[string]storedEntry
			if err := json.Unmarshal(raw, &legacy); err != nil {
				return nil, false, fmt.Errorf("legacy %q section: %w", legacyWrapperKey, err)
			}
			for luid, se := range legacy {
				// entries already in the current layout win
				if _, ok := doc[luid]; !ok {
					entries[luid] = se.entry()
				}
			}
			migrated = true
			continue
		}
		var se storedEntry
		if err := json.Unmarshal(raw, &se); err != nil {
			return nil, false, fmt.Errorf("entry %s: %w", uid, err)
		}
		if se.AddedAt == nil && se.AddDate != nil {
			migrated = true
		}
		entries[uid] = se.entry()
	}
	return entries, migrated, nil
}

func NewMemBlacklistStore(policy RebanPolicy) *JSONBlacklistStore {
	return &JSONBlacklistStore{
		policy:  policy,
		now:     time.Now,
		entries: make(map[string]Entry),
	}
}

// caller must hold the write lock
func (s *JSONBlacklistStore) persist() error {
	if s.path == "" {
		return nil
	}
	if err := docstore.Save(s.path, s.entries); err != nil {
		return fmt.Errorf("persisting blacklist: %w", err)
	}
	return nil
}

func (s *JSONBlacklistStore) Contains(ctx context.Context, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[userID]
	return ok, nil
}

func (s *JSONBlacklistStore) Add(ctx context.Context, userID, reason string) (Entry, error) {
	if reason == "" {
		reason = DefaultReason
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.entries[userID]
	e := Entry{
		UserID:  userID,
		Reason:  reason,
		AddedAt: s.now().UTC().Truncate(time.Second),
	}
	if existed && s.policy == RebanKeepOriginal {
		e.AddedAt = prev.AddedAt
	}
	s.entries[userID] = e
	if err := s.persist(); err != nil {
		if existed {
			s.entries[userID] = prev
		} else {
			delete(s.entries, userID)
		}
		return Entry{}, err
	}
	return e, nil
}

func (s *JSONBlacklistStore) Remove(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.entries[userID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, userID)
	}
	delete(s.entries, userID)
	if err := s.persist(); err != nil {
		s.entries[userID] = prev
		return err
	}
	return nil
}

func (s *JSONBlacklistStore) Get(ctx context.Context, userID string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, userID)
	}
	e.UserID = userID
	return &e, nil
}

// Ordered by ban time, oldest first.
func (s *JSONBlacklistStore) List(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	out := make([]Entry, 0, len(s.entries))
	for uid, e := range s.entries {
		e.UserID = uid
		out = append(out, e)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].AddedAt.Before(out[j].AddedAt)
	})
	return out, nil
}
