package lookup

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cached memoizes non-empty Search results per query. Answers are not
// cached here; the thread tree owns answer caching.
type Cached struct {
	next  Client
	cache *expirable.LRU[string, []Thread]
}

// NewCached wraps next with an LRU of size entries, each living for ttl.
// A zero ttl keeps entries until evicted.
func NewCached(next Client, size int, ttl time.Duration) *Cached {
	return &Cached{
		next:  next,
		cache: expirable.NewLRU[string, []Thread](size, nil, ttl),
	}
}

func (c *Cached) Search(ctx context.Context, query string) ([]Thread, error) {
	if threads, ok := c.cache.Get(query); ok {
		return threads, nil
	}
	threads, err := c.next.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	// Empty results may come from a malformed response; they are not pinned.
	if len(threads) > 0 {
		c.cache.Add(query, threads)
	}
	return threads, nil
}

func (c *Cached) FetchAnswers(ctx context.Context, threadID int64, pageSize int) ([]Answer, error) {
	return c.next.FetchAnswers(ctx, threadID, pageSize)
}

// Len returns the number of cached queries.
func (c *Cached) Len() int {
	return c.cache.Len()
}
