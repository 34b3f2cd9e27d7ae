package auth

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"

	"themind/store"
)

// UserCache holds recently resolved accounts so that authenticated requests
// do not hit the database for the username on every poll.
type UserCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

func NewUserCache(ttl time.Duration) (*UserCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1 << 14,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user cache: %w", err)
	}
	return &UserCache{cache: cache, ttl: ttl}, nil
}

func (c *UserCache) Get(userID int64) (*store.User, bool) {
	value, ok := c.cache.Get(userID)
	if !ok {
		return nil, false
	}
	user, ok := value.(*store.User)
	return user, ok
}

func (c *UserCache) Set(user *store.User) {
	c.cache.SetWithTTL(user.ID, user, 1, c.ttl)
}

func (c *UserCache) Delete(userID int64) {
	c.cache.Del(userID)
}

func (c *UserCache) Close() {
	c.cache.Close()
}
