// Resolution of chat user IDs to display names (nicknames), with in-process and redis caching wrappers.
package identity

import (
	"context"
	"errors"
)

var ErrUserNotFound = errors.New("user not found")

// Resolves a user ID to the user's current display name.
type Directory interface {
	LookupName(ctx context.Context, userID string) (string, error)
	// Drops any cached name for the user.
	Purge(ctx context.Context, userID string) error
}
