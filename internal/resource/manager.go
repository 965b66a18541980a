package resource

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cbegin/beatgrid-go/internal/audio"
)

type Config struct {
	Pool  PoolConfig  `yaml:"pool"`
	Cache CacheConfig `yaml:"cache"`
}

func DefaultConfig() Config {
	return Config{Pool: DefaultPoolConfig(), Cache: DefaultCacheConfig()}
}

type Option func(*Manager)

func WithConfig(cfg Config) Option {
	return func(m *Manager) { m.cfg = cfg }
}

func WithClock(clock Clock) Option {
	return func(m *Manager) { m.now = clock }
}

func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// Manager owns the handle pool and buffer cache for one backend and runs
// their idle sweeps.
type Manager struct {
	backend audio.Backend
	cfg     Config
	now     Clock
	log     *slog.Logger

	pool  *Pool
	cache *Cache

	mu        sync.Mutex
	cancel    context.CancelFunc
	group     *errgroup.Group
	gestured  bool
	suspended bool
	shutdown  bool
}

func New(backend audio.Backend, opts ...Option) *Manager {
	m := &Manager{backend: backend, cfg: DefaultConfig(), now: time.Now, log: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	m.pool = NewPool(m.cfg.Pool, func() (audio.Output, error) {
		return backend.NewOutput(nil)
	}, m.now, m.log)
	m.cache = NewCache(m.cfg.Cache, m.now, m.log)
	return m
}

func (m *Manager) Pool() *Pool            { return m.pool }
func (m *Manager) Cache() *Cache          { return m.cache }
func (m *Manager) Backend() audio.Backend { return m.backend }

// Start launches the pool and cache sweeps. Calling it again while running
// does nothing.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil || m.shutdown {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.group, ctx = errgroup.WithContext(ctx)
	m.group.Go(func() error {
		m.sweepEvery(ctx, m.pool.Config().SweepInterval, "pool-sweep", m.pool.Sweep)
		return nil
	})
	m.group.Go(func() error {
		m.sweepEvery(ctx, m.cache.Config().SweepInterval, "cache-sweep", m.cache.Sweep)
		return nil
	})
}

func (m *Manager) sweepEvery(ctx context.Context, every time.Duration, op string, sweep func(time.Time) int) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sweep(m.now()); n > 0 {
				m.log.Debug("idle resources released", "op", op, "count", n)
			}
		}
	}
}

// Shutdown stops the sweeps, closes every handle and empties the cache. It
// is safe to call more than once.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return
	}
	m.shutdown = true
	cancel, group := m.cancel, m.group
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		_ = group.Wait()
	}
	m.pool.Close()
	m.cache.Clear()
}

// PlayBuffer plays buf through the handle for id, reusing a warm output when
// one exists.
func (m *Manager) PlayBuffer(id string, buf *Buffer, gain float32) (*Handle, error) {
	if buf == nil {
		return nil, fmt.Errorf("resource: nil buffer for %q", id)
	}
	h, err := m.pool.Acquire(id)
	if err != nil {
		return nil, fmt.Errorf("resource: acquire %q: %w", id, err)
	}
	h.Play(audio.NewBufferSource(buf.Data, buf.Channels, buf.SampleRate, m.backend.SampleRate(), gain))
	return h, nil
}

// NotifyUserGesture resumes the device on the first user gesture. Later
// gestures do nothing.
func (m *Manager) NotifyUserGesture() {
	m.mu.Lock()
	first := !m.gestured
	m.gestured = true
	m.mu.Unlock()
	if first {
		m.Resume()
	}
}

// SetVisible suspends the device when hidden and resumes it when shown.
func (m *Manager) SetVisible(visible bool) {
	if visible {
		m.Resume()
	} else {
		m.Suspend()
	}
}

func (m *Manager) Suspend() {
	if err := m.backend.Suspend(); err != nil {
		m.log.Warn("suspend failed", "op", "suspend", "err", err)
		return
	}
	m.mu.Lock()
	m.suspended = true
	m.mu.Unlock()
}

func (m *Manager) Resume() {
	if err := m.backend.Resume(); err != nil {
		m.log.Warn("resume failed", "op", "resume", "err", err)
		return
	}
	m.mu.Lock()
	m.suspended = false
	m.mu.Unlock()
}

func (m *Manager) Suspended() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suspended
}
