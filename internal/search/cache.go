package search

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coocood/freecache"
	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
)

// ErrOversizeEntry means the hit list was too large for the shared cache and
// went to the overflow holder instead. The entry is still retrievable until
// newer oversize entries push it out.
var ErrOversizeEntry = errors.New("hit list too large for search cache")

// ResultCache keeps the full hit list of the latest instant searches so a
// following full search for the same query can skip refetching.
type ResultCache interface {
	Get(query string) ([]Hit, bool)
	Set(query string, hits []Hit) error
}

// FreeCache stores zstd-compressed JSON. freecache refuses entries larger
// than 1/1024 of its size, and broad queries produce exactly those, so the
// most recent oversize entries are kept in a small overflow holder.
type FreeCache struct {
	cache    *freecache.Cache
	ttl      int
	overflow *overflow
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder
}

// NewResultCache returns a no-op cache when sizeMB or ttl is not positive.
// overflowEntries bounds how many oversize hit lists are held at once.
func NewResultCache(sizeMB int, ttl time.Duration, overflowEntries int) (ResultCache, error) {
	if sizeMB <= 0 || ttl <= 0 {
		return noopCache{}, nil
	}
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &FreeCache{
		cache:    freecache.NewCache(sizeMB * 1024 * 1024),
		ttl:      max(int(ttl.Seconds()), 1),
		overflow: newOverflow(overflowEntries, ttl, time.Now),
		encoder:  encoder,
		decoder:  decoder,
	}, nil
}

func cacheKey(query string) []byte {
	return []byte(strings.ToLower(Normalize(query)))
}

func (c *FreeCache) Get(query string) ([]Hit, bool) {
	key := cacheKey(query)
	compressed, err := c.cache.Get(key)
	if err != nil {
		var ok bool
		if compressed, ok = c.overflow.get(string(key)); !ok {
			return nil, false
		}
	}
	raw, err := c.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, false
	}
	var hits []Hit
	if err := json.Unmarshal(raw, &hits); err != nil {
		return nil, false
	}
	return hits, true
}

func (c *FreeCache) Set(query string, hits []Hit) error {
	raw, err := json.Marshal(hits)
	if err != nil {
		return fmt.Errorf("failed to encode hits: %w", err)
	}
	compressed := c.encoder.EncodeAll(raw, make([]byte, 0, len(raw)/2))

	key := cacheKey(query)
	err = c.cache.Set(key, compressed, c.ttl)
	switch {
	case err == nil:
		c.overflow.remove(string(key))
		return nil
	case errors.Is(err, freecache.ErrLargeEntry):
		c.cache.Del(key)
		if !c.overflow.put(string(key), compressed) {
			return fmt.Errorf("failed to cache %d bytes of hits: %w", len(compressed), err)
		}
		return fmt.Errorf("%w: %d bytes", ErrOversizeEntry, len(compressed))
	default:
		return fmt.Errorf("failed to cache hits: %w", err)
	}
}

type overflowEntry struct {
	key     string
	data    []byte
	expires time.Time
}

// overflow holds the last few entries freecache refused, oldest first.
type overflow struct {
	mu      sync.Mutex
	limit   int
	ttl     time.Duration
	now     func() time.Time
	entries []overflowEntry
}

func newOverflow(limit int, ttl time.Duration, now func() time.Time) *overflow {
	return &overflow{limit: limit, ttl: ttl, now: now}
}

func (o *overflow) put(key string, data []byte) bool {
	if o.limit <= 0 {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	o.dropLocked(key)
	if len(o.entries) >= o.limit {
		n := copy(o.entries, o.entries[len(o.entries)-o.limit+1:])
		clear(o.entries[n:])
		o.entries = o.entries[:n]
	}
	o.entries = append(o.entries, overflowEntry{key: key, data: data, expires: o.now().Add(o.ttl)})
	return true
}

func (o *overflow) get(key string) ([]byte, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i, e := range o.entries {
		if e.key != key {
			continue
		}
		if !o.now().Before(e.expires) {
			o.entries = append(o.entries[:i], o.entries[i+1:]...)
			return nil, false
		}
		return e.data, true
	}
	return nil, false
}

func (o *overflow) remove(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dropLocked(key)
}

func (o *overflow) dropLocked(key string) {
	for i, e := range o.entries {
		if e.key == key {
			o.entries = append(o.entries[:i], o.entries[i+1:]...)
			return
		}
	}
}

type noopCache struct{}

func (noopCache) Get(string) ([]Hit, bool) { return nil, false }
func (noopCache) Set(string, []Hit) error  { return nil }
