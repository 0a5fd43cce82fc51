package service

import (
	"context"

	"github.com/kevinaaaquil/transcribe/models"
	"github.com/kevinaaaquil/transcribe/utils"
)

// UserLookup fetches a user by id; store.DB implements it. A nil user with
// a nil error means the id is unknown.
type UserLookup interface {
	UserByID(ctx context.Context, id string) (*models.User, error)
}

// CachedDirectory resolves display names through a UserLookup, memoizing
// hits in an injected TTL cache.
type CachedDirectory struct {
	lookup UserLookup
	cache  *utils.TTLCache[string, string]
}

func NewCachedDirectory(lookup UserLookup, cache *utils.TTLCache[string, string]) *CachedDirectory {
	return &CachedDirectory{lookup: lookup, cache: cache}
}

// DisplayName returns the user's display name, or "" if the user is unknown.
func (d *CachedDirectory) DisplayName(ctx context.Context, userID string) (string, error) {
	if name, ok := d.cache.Get(userID); ok {
		return name, nil
	}
	u, err := d.lookup.UserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", nil
	}
	name := u.DisplayName()
	d.cache.Set(userID, name)
	return name, nil
}

// Invalidate forgets userID, for use after the user record changes.
func (d *CachedDirectory) Invalidate(userID string) {
	d.cache.Invalidate(userID)
}
