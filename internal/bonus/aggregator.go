package bonus

import (
	"encoding/binary"
	"hash"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"
)

// Aggregator wraps Aggregate with an optional debug trace and an optional
// memo cache. The zero value is usable and behaves exactly like Aggregate.
//
// Thread-safe.
type Aggregator struct {
	logger *slog.Logger
	debug  bool

	cache *resultCache
	group singleflight.Group
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger used for debug traces.
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// WithDebug enables per-bucket resolution traces.
func WithDebug(enabled bool) Option {
	return func(a *Aggregator) { a.debug = enabled }
}

// WithCache memoizes up to size results keyed on (base, mods).
// size <= 0 disables caching.
func WithCache(size int) Option {
	return func(a *Aggregator) {
		if size > 0 {
			a.cache = newResultCache(size)
		}
	}
}

// NewAggregator creates an Aggregator.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate computes the result for base and mods. See the package-level Aggregate.
func (a *Aggregator) Aggregate(base AttributeSet, mods []Modifier) Result {
	if a == nil {
		return Aggregate(base, mods)
	}
	if a.cache == nil {
		return aggregate(base, mods, a.tracer())
	}

	key := cacheKey(base, mods)
	if r, ok := a.cache.get(key); ok {
		return r.Clone()
	}

	v, _, _ := a.group.Do(string(key[:]), func() (any, error) {
		r := aggregate(base, mods, a.tracer())
		a.cache.put(key, r)
		return r, nil
	})
	return v.(Result).Clone()
}

// Sheet aggregates and derives in one call.
func (a *Aggregator) Sheet(base AttributeSet, mods []Modifier) (Result, DerivedStats) {
	r := a.Aggregate(base, mods)
	return r, Derive(r.Final)
}

// CacheLen returns the number of memoized results.
func (a *Aggregator) CacheLen() int {
	if a == nil || a.cache == nil {
		return 0
	}
	return a.cache.len()
}

func (a *Aggregator) tracer() func(resolution) {
	if !a.debug {
		return nil
	}
	logger := a.logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(r resolution) {
		logger.Debug("bonus bucket resolved",
			"stat", r.stat,
			"type", r.typ,
			"applied", len(r.applied),
			"discarded", r.discarded)
	}
}

// resultCache is a bounded FIFO map of memoized results.
type resultCache struct {
	mu    sync.Mutex
	size  int
	items map[[32]byte]Result
	order [][32]byte
}

func newResultCache(size int) *resultCache {
	return &resultCache{
		size:  size,
		items: make(map[[32]byte]Result, size),
		order: make([][32]byte, 0, size),
	}
}

func (c *resultCache) get(key [32]byte) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.items[key]
	return r, ok
}

func (c *resultCache) put(key [32]byte, r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[key]; ok {
		return
	}
	if len(c.order) >= c.size {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.items, oldest)
	}
	c.items[key] = r
	c.order = append(c.order, key)
}

func (c *resultCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// cacheKey hashes a canonical encoding of the inputs. Modifier order is kept
// because it decides tie-breaks; map entries are sorted.
func cacheKey(base AttributeSet, mods []Modifier) [32]byte {
	h, _ := blake2b.New256(nil) // only fails on an oversized key

	writeStats(h, base)
	writeInt(h, len(mods))
	for _, m := range mods {
		writeString(h, m.Name)
		writeString(h, string(m.Type))
		writeString(h, string(m.Source))
		writeStats(h, m.Effects)
	}

	var key [32]byte
	copy(key[:], h.Sum(nil))
	return key
}

func writeStats(h hash.Hash, set map[Stat]int) {
	keys := make([]Stat, 0, len(set))
	for s := range set {
		keys = append(keys, s)
	}
	slices.Sort(keys)

	writeInt(h, len(keys))
	for _, s := range keys {
		writeString(h, string(s))
		writeInt(h, set[s])
	}
}

func writeString(h hash.Hash, s string) {
	writeInt(h, len(s))
	h.Write([]byte(s))
}

func writeInt(h hash.Hash, v int) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(int64(v)))
	h.Write(buf[:])
}
