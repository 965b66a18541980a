package resource

import (
	"container/list"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Buffer is decoded interleaved audio.
type Buffer struct {
	SampleRate int
	Channels   int
	Data       []float32
}

func (b *Buffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Data) / b.Channels
}

// ByteSize is frames x channels x 4.
func (b *Buffer) ByteSize() int64 {
	return int64(b.Frames()) * int64(b.Channels) * 4
}

type CacheConfig struct {
	MaxEntries    int           `yaml:"maxEntries"`
	MaxBytes      int64         `yaml:"maxBytes"`
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweepInterval"`
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{MaxEntries: 20, MaxBytes: 50 << 20, TTL: 5 * time.Minute, SweepInterval: time.Minute}
}

func (c CacheConfig) withDefaults() CacheConfig {
	d := DefaultCacheConfig()
	if c.MaxEntries <= 0 {
		c.MaxEntries = d.MaxEntries
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = d.MaxBytes
	}
	if c.TTL <= 0 {
		c.TTL = d.TTL
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = d.SweepInterval
	}
	return c
}

type cacheEntry struct {
	key      string
	buf      *Buffer
	size     int64
	lastUsed time.Time
}

// Cache is an LRU of decoded buffers bounded by entry count and total bytes.
// It never decodes on Get.
type Cache struct {
	mu    sync.Mutex
	cfg   CacheConfig
	now   Clock
	log   *slog.Logger
	order *list.List // front is most recent
	items map[string]*list.Element
	bytes int64

	loads singleflight.Group
}

func NewCache(cfg CacheConfig, clock Clock, log *slog.Logger) *Cache {
	if clock == nil {
		clock = time.Now
	}
	if log == nil {
		log = slog.Default()
	}
	return &Cache{
		cfg:   cfg.withDefaults(),
		now:   clock,
		log:   log,
		order: list.New(),
		items: map[string]*list.Element{},
	}
}

func (c *Cache) Config() CacheConfig { return c.cfg }

// Get returns the buffer under key and marks it recently used.
func (c *Cache) Get(key string) (*Buffer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*cacheEntry)
	e.lastUsed = c.now()
	c.order.MoveToFront(el)
	return e.buf, true
}

// Set stores buf under key, replacing any previous entry, then evicts least
// recently used entries until both limits hold. A buffer larger than
// MaxBytes is not kept; Set reports whether buf was retained.
func (c *Cache) Set(key string, buf *Buffer) bool {
	if buf == nil {
		return false
	}
	size := buf.ByteSize()
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeLocked(el)
	}
	if size > c.cfg.MaxBytes {
		c.log.Debug("buffer too large to cache", "op", "cache-set", "id", key, "bytes", size)
		return false
	}
	el := c.order.PushFront(&cacheEntry{key: key, buf: buf, size: size, lastUsed: c.now()})
	c.items[key] = el
	c.bytes += size
	for c.order.Len() > c.cfg.MaxEntries || c.bytes > c.cfg.MaxBytes {
		oldest := c.order.Back()
		c.log.Debug("buffer evicted", "op", "cache-evict", "id", oldest.Value.(*cacheEntry).key)
		c.removeLocked(oldest)
	}
	return true
}

func (c *Cache) removeLocked(el *list.Element) {
	e := el.Value.(*cacheEntry)
	c.order.Remove(el)
	delete(c.items, e.key)
	c.bytes -= e.size
}

func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if ok {
		c.removeLocked(el)
	}
	return ok
}

// Sweep evicts entries unused for longer than TTL and returns how many.
func (c *Cache) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if now.Sub(el.Value.(*cacheEntry).lastUsed) > c.cfg.TTL {
			c.removeLocked(el)
			n++
		}
		el = prev
	}
	return n
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache) Bytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytes
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	clear(c.items)
	c.bytes = 0
}

// Load returns the cached buffer for key, or calls decode and caches the
// result. Concurrent loads of one key share a single decode. Decode errors
// are returned and nothing is cached.
func (c *Cache) Load(key string, decode func() (*Buffer, error)) (*Buffer, error) {
	if buf, ok := c.Get(key); ok {
		return buf, nil
	}
	v, err, _ := c.loads.Do(key, func() (any, error) {
		buf, err := decode()
		if err != nil {
			return nil, err
		}
		c.Set(key, buf)
		return buf, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Buffer), nil
}
