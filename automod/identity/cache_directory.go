package identity

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// In-process caching wrapper around another Directory. Concurrent lookups for the same user are coalesced in to a single upstream request.
type CacheDirectory struct {
	Inner  Directory
	ErrTTL time.Duration

	names  *expirable.LRU[string, nameEntry]
	flight singleflight.Group
}

type nameEntry struct {
	Updated time.Time
	Name    string
	Err     error
}

var _ Directory = (*CacheDirectory)(nil)

// Capacity of zero means unlimited size. Similarly, hitTTL of zero means unlimited duration. Failed lookups are only cached for errTTL.
func NewCacheDirectory(inner Directory, capacity int, hitTTL, errTTL time.Duration) *CacheDirectory {
	return &CacheDirectory{
		Inner:  inner,
		ErrTTL: errTTL,
		names:  expirable.NewLRU[string, nameEntry](capacity, nil, hitTTL),
	}
}

func (d *CacheDirectory) isStale(e *nameEntry) bool {
	return e.Err != nil && time.Since(e.Updated) > d.ErrTTL
}

func (d *CacheDirectory) LookupName(ctx context.Context, userID string) (string, error) {
	entry, ok := d.names.Get(userID)
	if ok && !d.isStale(&entry) {
		nameCacheHits.WithLabelValues("memory").Inc()
		return entry.Name, entry.Err
	}
	nameCacheMisses.WithLabelValues("memory").Inc()

	v, _, shared := d.flight.Do(userID, func() (any, error) {
		name, err := d.Inner.LookupName(ctx, userID)
		e := nameEntry{
			Updated: time.Now(),
			Name:    name,
			Err:     err,
		}
		// context cancellation is not a property of the user, don't remember it
		if ctx.Err() == nil {
			d.names.Add(userID, e)
		}
		return e, nil
	})
	if shared {
		nameLookupsCoalesced.WithLabelValues("memory").Inc()
	}
	e := v.(nameEntry)
	return e.Name, e.Err
}

func (d *CacheDirectory) Purge(ctx context.Context, userID string) error {
	d.names.Remove(userID)
	return d.Inner.Purge(ctx, userID)
}
