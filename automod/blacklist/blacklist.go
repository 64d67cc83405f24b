// Automod component for the global user blacklist: banned user IDs, with the reason and time of the ban.
package blacklist

import (
	"context"
	"errors"
	"time"
)

// Returned when removing or fetching a user who is not on the blacklist.
var ErrNotFound = errors.New("user not in blacklist")

const DefaultReason = "unspecified"

type Entry struct {
	UserID  string    `json:"-"`
	Reason  string    `json:"reason"`
	AddedAt time.Time `json:"addedAt"`
}

// What happens to the ban timestamp when an already-blacklisted user is banned again. The reason is always overwritten.
type RebanPolicy int

const (
	// re-ban resets the timestamp to now
	RebanRefresh RebanPolicy = iota
	// re-ban keeps the original timestamp
	RebanKeepOriginal
)

type BlacklistStore interface {
	Contains(ctx context.Context, userID string) (bool, error)
	// Upserts. An empty reason is stored as `DefaultReason`.
	Add(ctx context.Context, userID, reason string) (Entry, error)
	Remove(ctx context.Context, userID string) error
	Get(ctx context.Context, userID string) (*Entry, error)
	List(ctx context.Context) ([]Entry, error)
}
