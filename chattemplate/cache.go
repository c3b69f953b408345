package chattemplate

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"k8s.io/klog/v2"

	"github.com/jonwraymond/chattemplate/internal/logging"
)

// DefaultCapacity is the number of compiled templates a cache keeps.
const DefaultCapacity = 100

// CacheOptions configures a Cache.
type CacheOptions struct {
	// Capacity bounds the number of cached templates (default 100).
	Capacity int

	// Clock supplies the time for strftime_now (default time.Now).
	Clock func() time.Time

	// Logger receives eviction logs (default klog.Background()).
	Logger *klog.Logger
}

// Cache maps template text to its compiled form, keeping the most
// recently used entries. It is safe for concurrent use.
type Cache struct {
	lru    *lru.Cache[string, *CompiledTemplate]
	clock  func() time.Time
	logger klog.Logger
}

// NewCache creates a cache.
func NewCache(opts CacheOptions) (*Cache, error) {
	if opts.Capacity < 0 {
		return nil, fmt.Errorf("chattemplate: negative cache capacity %d", opts.Capacity)
	}
	if opts.Capacity == 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	logger := klog.Background()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	c := &Cache{
		clock:  opts.Clock,
		logger: logger.WithName("chattemplate.Cache"),
	}
	l, err := lru.NewWithEvict(opts.Capacity, c.onEvict)
	if err != nil {
		return nil, err
	}
	c.lru = l
	return c, nil
}

// DefaultCache is the process-wide cache used by Compile.
var DefaultCache = mustNewCache(CacheOptions{})

func mustNewCache(opts CacheOptions) *Cache {
	c, err := NewCache(opts)
	if err != nil {
		panic(err)
	}
	return c
}

// Compile compiles text with DefaultCache.
func Compile(text string) (*CompiledTemplate, error) {
	return DefaultCache.Compile(text)
}

// Compile returns the compiled form of text, compiling on a miss. Failed
// compiles are not cached. Concurrent first compiles of the same text may
// both do the work; the first one stored is returned to every caller.
func (c *Cache) Compile(text string) (*CompiledTemplate, error) {
	fp := Fingerprint(text)
	if tpl, ok := c.lru.Get(fp); ok {
		return tpl, nil
	}

	compiled, err := newCompiledTemplate(text, fp, c.clock)
	if err != nil {
		return nil, err
	}
	if prev, ok, _ := c.lru.PeekOrAdd(fp, compiled); ok {
		return prev, nil
	}
	c.logger.V(logging.TRACE).Info("compiled template", "template", shortFingerprint(fp))
	return compiled, nil
}

// Len returns the number of cached templates.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Purge drops every cached template.
func (c *Cache) Purge() {
	c.lru.Purge()
}

func (c *Cache) onEvict(fp string, _ *CompiledTemplate) {
	c.logger.V(logging.DEBUG).Info("evicted compiled template", "template", shortFingerprint(fp))
}
