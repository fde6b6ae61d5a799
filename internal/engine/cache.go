package engine

import (
	"strconv"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/roach88/truthgraph/internal/ir"
)

// resolutionCache memoizes binding resolutions. Any binding write or
// document deletion flushes it and bumps the generation, so a resolve that
// started before the write can never store its result under a key a later
// resolve will read.
type resolutionCache struct {
	cache *gocache.Cache
	gen   atomic.Uint64
}

func newResolutionCache(ttl time.Duration) *resolutionCache {
	if ttl <= 0 {
		return &resolutionCache{}
	}
	return &resolutionCache{cache: gocache.New(ttl, 2*ttl)}
}

// key returns the cache key for a resolution under the current generation.
func (c *resolutionCache) key(scope Scope, termKey string) string {
	return strconv.FormatUint(c.gen.Load(), 10) + "\x00" + scope.FamilyID + "\x00" + scope.DocumentID + "\x00" + termKey
}

func (c *resolutionCache) get(key string) (ir.BindingResult, bool) {
	if c.cache == nil {
		return ir.BindingResult{}, false
	}
	v, found := c.cache.Get(key)
	if !found {
		return ir.BindingResult{}, false
	}
	return cloneBindingResult(v.(ir.BindingResult)), true
}

func (c *resolutionCache) set(key string, r ir.BindingResult) {
	if c.cache == nil {
		return
	}
	c.cache.SetDefault(key, cloneBindingResult(r))
}

func (c *resolutionCache) flush() {
	c.gen.Add(1)
	if c.cache == nil {
		return
	}
	c.cache.Flush()
}

func (c *resolutionCache) len() int {
	if c.cache == nil {
		return 0
	}
	return c.cache.ItemCount()
}

func cloneBindingResult(r ir.BindingResult) ir.BindingResult {
	if r.Binding != nil {
		b := *r.Binding
		r.Binding = &b
	}
	if r.Candidates != nil {
		r.Candidates = append([]ir.Binding(nil), r.Candidates...)
	}
	return r
}
