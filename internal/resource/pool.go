// Package resource bounds the audio objects that preview playback needs: a
// pool of warm playback handles and a byte-capped cache of decoded buffers.
package resource

import (
	"log/slog"
	"sync"
	"time"

	"github.com/cbegin/beatgrid-go/internal/audio"
)

// Clock returns the current time. Tests pass a fake.
type Clock func() time.Time

type PoolConfig struct {
	MaxSize       int           `yaml:"maxSize"`
	IdleTTL       time.Duration `yaml:"idleTTL"`
	SweepInterval time.Duration `yaml:"sweepInterval"`
}

func DefaultPoolConfig() PoolConfig {
	return PoolConfig{MaxSize: 8, IdleTTL: 5 * time.Minute, SweepInterval: time.Minute}
}

func (c PoolConfig) withDefaults() PoolConfig {
	d := DefaultPoolConfig()
	if c.MaxSize <= 0 {
		c.MaxSize = d.MaxSize
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = d.IdleTTL
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = d.SweepInterval
	}
	return c
}

// OutputFactory creates a fresh device output for a new handle.
type OutputFactory func() (audio.Output, error)

// Handle is a pooled playback output keyed by id.
type Handle struct {
	pool   *Pool
	id     string
	output audio.Output

	lastUsed time.Time
	active   bool
}

func (h *Handle) ID() string           { return h.id }
func (h *Handle) Output() audio.Output { return h.output }

func (h *Handle) LastUsed() time.Time {
	h.pool.mu.Lock()
	defer h.pool.mu.Unlock()
	return h.lastUsed
}

func (h *Handle) Active() bool {
	h.pool.mu.Lock()
	defer h.pool.mu.Unlock()
	return h.active
}

// Play points the handle's output at src and starts it.
func (h *Handle) Play(src audio.SampleSource) {
	h.pool.mu.Lock()
	h.active = true
	h.lastUsed = h.pool.now()
	h.pool.mu.Unlock()
	h.output.SetSource(src)
	h.output.Play()
}

// Pool keeps at most MaxSize handles. When full, the least recently used
// inactive handle is evicted first, then the least recently used overall.
type Pool struct {
	mu      sync.Mutex
	cfg     PoolConfig
	factory OutputFactory
	now     Clock
	log     *slog.Logger
	handles map[string]*Handle
}

func NewPool(cfg PoolConfig, factory OutputFactory, clock Clock, log *slog.Logger) *Pool {
	if clock == nil {
		clock = time.Now
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pool{
		cfg:     cfg.withDefaults(),
		factory: factory,
		now:     clock,
		log:     log,
		handles: map[string]*Handle{},
	}
}

func (p *Pool) Config() PoolConfig { return p.cfg }

// Acquire returns the handle for id, creating it if needed. When the pool is
// full a victim is closed before the factory runs, so live outputs never
// exceed MaxSize. A factory error leaves the pool one entry smaller in that
// case.
func (p *Pool) Acquire(id string) (*Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.handles[id]; ok {
		h.active = true
		h.lastUsed = p.now()
		return h, nil
	}
	if len(p.handles) >= p.cfg.MaxSize {
		p.evictLocked()
	}
	out, err := p.factory()
	if err != nil {
		p.log.Warn("handle create failed", "op", "pool-acquire", "id", id, "err", err)
		return nil, err
	}
	h := &Handle{pool: p, id: id, output: out, lastUsed: p.now(), active: true}
	p.handles[id] = h
	return h, nil
}

func (p *Pool) evictLocked() {
	var victim, oldest *Handle
	for _, h := range p.handles {
		if oldest == nil || h.lastUsed.Before(oldest.lastUsed) {
			oldest = h
		}
		if !h.active && (victim == nil || h.lastUsed.Before(victim.lastUsed)) {
			victim = h
		}
	}
	if victim == nil {
		victim = oldest
	}
	if victim == nil {
		return
	}
	p.closeLocked(victim)
	p.log.Debug("handle evicted", "op", "pool-evict", "id", victim.id, "active", victim.active)
}

func (p *Pool) closeLocked(h *Handle) {
	delete(p.handles, h.id)
	if err := h.output.Close(); err != nil {
		p.log.Warn("handle close failed", "op", "pool-close", "id", h.id, "err", err)
	}
}

// Release pauses the handle and marks it idle, keeping it warm for reuse.
func (p *Pool) Release(id string) bool {
	p.mu.Lock()
	h, ok := p.handles[id]
	if ok {
		h.active = false
		h.lastUsed = p.now()
	}
	p.mu.Unlock()
	if ok {
		h.output.Pause()
	}
	return ok
}

// Remove closes the handle whatever its state.
func (p *Pool) Remove(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.handles[id]
	if ok {
		p.closeLocked(h)
	}
	return ok
}

// Sweep closes inactive handles idle longer than IdleTTL and returns how
// many were closed.
func (p *Pool) Sweep(now time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, h := range p.handles {
		if !h.active && now.Sub(h.lastUsed) > p.cfg.IdleTTL {
			p.closeLocked(h)
			n++
		}
	}
	return n
}

func (p *Pool) Get(id string) (*Handle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.handles[id]
	return h, ok
}

func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.handles)
}

// Close closes every handle.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, h := range p.handles {
		p.closeLocked(h)
	}
}
