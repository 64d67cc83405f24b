package identity

import (
	"context"
	"sync"
)

// A fake name directory, for use in tests
type MockDirectory struct {
	mu      *sync.RWMutex
	Names   map[string]string
	Lookups int
	Purged  []string
}

var _ Directory = (*MockDirectory)(nil)

func NewMockDirectory() MockDirectory {
	return MockDirectory{
		mu:    &sync.RWMutex{},
		Names: make(map[string]string),
	}
}

func (d *MockDirectory) Insert(userID, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Names[userID] = name
}

func (d *MockDirectory) LookupName(ctx context.Context, userID string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Lookups++
	name, ok := d.Names[userID]
	if !ok {
		return "", ErrUserNotFound
	}
	return name, nil
}

func (d *MockDirectory) Purge(ctx context.Context, userID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Purged = append(d.Purged, userID)
	return nil
}
