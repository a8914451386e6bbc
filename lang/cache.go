package lang

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/klauspost/readahead"
	"github.com/zeebo/xxh3"

	"github.com/ardnew/formula/log"
)

// cacheShards is the number of independently locked partitions of a [Cache].
const cacheShards = 64

// DefaultCache is the process-wide parse cache used unless another [Cache]
// is configured with [WithCache].
var DefaultCache = NewCache()

// cacheKey identifies a parse result. The full source text is part of the
// key, so distinct sources never share an entry even if their hashes collide.
type cacheKey struct {
	source   string
	options  EvaluateOptions
	maxDepth int
}

type cacheShard struct {
	mu      sync.RWMutex
	entries map[cacheKey]Node
}

// Cache memoizes parse results keyed by source text and the options that
// affect parsing. Entries are never evicted implicitly; see [Cache.Clear].
//
// A Cache is safe for concurrent use. When several goroutines miss on the
// same key at once, each may parse, but the first published tree wins and
// every caller receives it.
type Cache struct {
	logger log.Logger
	shards [cacheShards]cacheShard
	hits   atomic.Uint64
	misses atomic.Uint64
}

// CacheOption configures a [Cache].
type CacheOption func(*Cache)

// WithCacheLogger sets the structured logger used for cache tracing.
func WithCacheLogger(logger log.Logger) CacheOption {
	return func(c *Cache) {
		c.logger = logger
	}
}

// NewCache returns an empty parse cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{}

	for i := range c.shards {
		c.shards[i].entries = make(map[cacheKey]Node)
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// shard selects the partition holding key.
func (c *Cache) shard(key cacheKey) *cacheShard {
	h := xxh3.HashString(key.source) ^ uint64(key.options)<<32 ^ uint64(key.maxDepth)

	return &c.shards[h%cacheShards]
}

// GetOrParse returns the cached tree for source parsed with options, parsing
// and publishing it on a miss. Parse failures are not cached.
func (c *Cache) GetOrParse(
	ctx context.Context,
	source string,
	options EvaluateOptions,
	maxDepth int,
) (Node, error) {
	key := cacheKey{source: source, options: options.parseKey(), maxDepth: maxDepth}
	sh := c.shard(key)

	sh.mu.RLock()
	node, ok := sh.entries[key]
	sh.mu.RUnlock()

	if ok {
		c.hits.Add(1)
		c.logger.TraceContext(ctx, "parse cache hit",
			slog.Int("source_bytes", len(source)),
		)

		return node, nil
	}

	c.misses.Add(1)

	node, err := parse(source, key.options, maxDepth)
	if err != nil {
		return nil, err
	}

	sh.mu.Lock()
	if prev, ok := sh.entries[key]; ok {
		node = prev
	} else {
		sh.entries[key] = node
	}
	sh.mu.Unlock()

	c.logger.TraceContext(ctx, "parse cache store",
		slog.Int("source_bytes", len(source)),
		slog.String("options", key.options.String()),
	)

	return node, nil
}

// Len returns the number of cached trees.
func (c *Cache) Len() int {
	n := 0

	for i := range c.shards {
		c.shards[i].mu.RLock()
		n += len(c.shards[i].entries)
		c.shards[i].mu.RUnlock()
	}

	return n
}

// Clear removes every cached tree. Trees already handed out remain valid.
func (c *Cache) Clear() {
	for i := range c.shards {
		c.shards[i].mu.Lock()
		clear(c.shards[i].entries)
		c.shards[i].mu.Unlock()
	}
}

// Stats returns the number of lookups served from the cache and the number
// that required a parse.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// readSource reads all of r through an asynchronous read-ahead buffer.
func readSource(ctx context.Context, r io.Reader) (string, error) {
	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return "", ErrReadInput.Wrap(err).
			With(slog.String("source", "reader"))
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	return string(data), nil
}

// ParseReader reads source text from r and parses it like [Parse].
func ParseReader(ctx context.Context, r io.Reader, opts ...Option) (Node, error) {
	source, err := readSource(ctx, r)
	if err != nil {
		return nil, err
	}

	return Parse(ctx, source, opts...)
}
