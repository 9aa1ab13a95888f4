package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/LJTian/feedhub/internal/logger"
	"github.com/LJTian/feedhub/internal/processor"
)

// DefaultTTL 为缓存新鲜期
const DefaultTTL = 10 * time.Minute

// Refresher 产出一次完整刷新后的条目（已排序去重）
type Refresher interface {
	Refresh(ctx context.Context) ([]processor.NewsItem, error)
}

// RefresherFunc 让普通函数实现 Refresher
type RefresherFunc func(ctx context.Context) ([]processor.NewsItem, error)

func (f RefresherFunc) Refresh(ctx context.Context) ([]processor.NewsItem, error) { return f(ctx) }

// Entry 是一次刷新的结果快照
type Entry struct {
	At    time.Time            `json:"at"`
	Items []processor.NewsItem `json:"items"`
}

// Result 是 Get 的返回值，Cached 表示未触发抓取
type Result struct {
	Items  []processor.NewsItem `json:"items"`
	Cached bool                 `json:"cached"`
}

// SnapshotStore 是可选的共享快照（如 Redis），多副本或重启后可复用同一次刷新
type SnapshotStore interface {
	Load(ctx context.Context) (*Entry, error)
	Save(ctx context.Context, e Entry, ttl time.Duration) error
}

// Hook 在每次真正刷新后同步调用，prev 为刷新前的条目（可能为 nil）
type Hook func(ctx context.Context, prev *Entry, next Entry)

type Stats struct {
	LastRefresh time.Time `json:"lastRefresh"`
	Refreshes   int64     `json:"refreshes"`
	Items       int       `json:"items"`
}

type Option func(*Cache)

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

func WithSnapshotStore(s SnapshotStore) Option {
	return func(c *Cache) { c.store = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}

func OnRefresh(h Hook) Option {
	return func(c *Cache) {
		if h != nil {
			c.hooks = append(c.hooks, h)
		}
	}
}

// Cache 是带 TTL 的单条目缓存，过期后的并发请求只触发一次刷新
type Cache struct {
	refresher Refresher
	ttl       time.Duration
	now       func() time.Time
	store     SnapshotStore
	hooks     []Hook
	log       *slog.Logger

	group singleflight.Group

	mu        sync.RWMutex
	entry     *Entry
	refreshes int64
}

func New(r Refresher, opts ...Option) *Cache {
	c := &Cache{
		refresher: r,
		ttl:       DefaultTTL,
		now:       time.Now,
		log:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) TTL() time.Duration { return c.ttl }

func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Stats{Refreshes: c.refreshes}
	if c.entry != nil {
		s.LastRefresh = c.entry.At
		s.Items = len(c.entry.Items)
	}
	return s
}

// Get 新鲜时直接返回缓存；过期时加入（或发起）唯一的一次刷新
func (c *Cache) Get(ctx context.Context) (Result, error) {
	if e, ok := c.fresh(); ok {
		c.log.Debug("cache hit", "age", c.now().Sub(e.At), "items", len(e.Items))
		return Result{Items: e.Items, Cached: true}, nil
	}

	ch := c.group.DoChan("refresh", func() (any, error) {
		// 刷新结果由所有等待者共享，不随发起者的 ctx 取消
		return c.refresh(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return Result{}, r.Err
		}
		return r.Val.(Result), nil
	}
}

func (c *Cache) fresh() (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entry == nil || c.now().Sub(c.entry.At) >= c.ttl {
		return nil, false
	}
	return c.entry, true
}

func (c *Cache) refresh(ctx context.Context) (res Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("refresh panicked: %v", p)
		}
	}()

	// 排队期间可能已被上一轮刷新
	if e, ok := c.fresh(); ok {
		return Result{Items: e.Items, Cached: true}, nil
	}
	if e, ok := c.adoptSnapshot(ctx); ok {
		return Result{Items: e.Items, Cached: true}, nil
	}

	start := c.now()
	items, err := c.refresher.Refresh(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("refresh: %w", err)
	}
	if items == nil {
		items = []processor.NewsItem{}
	}

	// 全部源失败时同样写入空结果
	next := Entry{At: c.now(), Items: items}
	c.mu.Lock()
	prev := c.entry
	c.entry = &next
	c.refreshes++
	c.mu.Unlock()

	c.log.Info("cache refreshed", "items", len(items), "duration", c.now().Sub(start))

	if c.store != nil {
		if err := c.store.Save(ctx, next, c.ttl); err != nil {
			c.log.Warn("save snapshot failed", "error", err)
		}
	}
	for _, h := range c.hooks {
		h(ctx, prev, next)
	}
	return Result{Items: items, Cached: false}, nil
}

func (c *Cache) adoptSnapshot(ctx context.Context) (*Entry, bool) {
	if c.store == nil {
		return nil, false
	}
	e, err := c.store.Load(ctx)
	if err != nil {
		c.log.Warn("load snapshot failed", "error", err)
		return nil, false
	}
	if e == nil || c.now().Sub(e.At) >= c.ttl {
		return nil, false
	}
	if e.Items == nil {
		e.Items = []processor.NewsItem{}
	}
	c.mu.Lock()
	c.entry = e
	c.mu.Unlock()
	c.log.Debug("snapshot adopted", "at", e.At, "items", len(e.Items))
	return e, true
}
