package cache

import (
	"time"

	"github.com/maypok86/otter"

	"github.com/ghmd86/document-hub-sub000/internal/store"
)

// TemplateCache is the bounded in-memory cache for template definitions,
// keyed by "type:version". It is the only mutable structure shared across
// requests; otter's S3-FIFO implementation gives concurrent get/put without
// a global lock.
type TemplateCache struct {
	store otter.Cache[string, *store.Template]
}

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
}

// NewTemplateCache initializes the template cache with strict limits.
// capacity is a hard cap to prevent OOM; ttl bounds staleness after a
// template definition changes in the database.
func NewTemplateCache(capacity int, ttl time.Duration) (*TemplateCache, error) {
	cache, err := otter.MustBuilder[string, *store.Template](capacity).
		WithTTL(ttl).
		CollectStats().
		Build()
	if err != nil {
		return nil, err
	}

	return &TemplateCache{store: cache}, nil
}

// Get retrieves a template definition from memory.
func (c *TemplateCache) Get(templateType, version string) (*store.Template, bool) {
	return c.store.Get(templateType + ":" + version)
}

// Set adds or updates a template definition. The configured TTL applies
// automatically.
func (c *TemplateCache) Set(tpl *store.Template) {
	c.store.Set(tpl.CacheKey(), tpl)
}

// Invalidate removes one template definition.
func (c *TemplateCache) Invalidate(templateType, version string) {
	c.store.Delete(templateType + ":" + version)
}

// InvalidateAll clears the whole cache. Used by the cache contract endpoint
// after bulk template reloads.
func (c *TemplateCache) InvalidateAll() {
	c.store.Clear()
}

// Stats returns a snapshot of hit/miss counters and the current size.
func (c *TemplateCache) Stats() Stats {
	s := c.store.Stats()
	return Stats{
		Hits:   s.Hits(),
		Misses: s.Misses(),
		Size:   c.store.Size(),
	}
}

// Close shuts down the cache and its background cleanup goroutines.
func (c *TemplateCache) Close() {
	c.store.Close()
}
