package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/LJTian/feedhub/internal/cache"
	"github.com/LJTian/feedhub/internal/logger"
)

// Warmer 是被预热的缓存，*cache.Cache 即满足
type Warmer interface {
	Get(ctx context.Context) (cache.Result, error)
}

// Scheduler 按 cron 表达式定期调用缓存，让用户请求大多命中新鲜数据
type Scheduler struct {
	cron    *cron.Cron
	target  Warmer
	timeout time.Duration
	log     *slog.Logger

	// StartupDelay 为首轮预热的延迟，0 表示不做首轮预热
	StartupDelay time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

func New(spec string, target Warmer, timeout time.Duration, l *slog.Logger) (*Scheduler, error) {
	if l == nil {
		l = logger.Discard()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	c := cron.New()

	s := &Scheduler{
		cron:    c,
		target:  target,
		timeout: timeout,
		log:     l,
	}

	if _, err := c.AddFunc(spec, s.runOnce); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	if s.StartupDelay <= 0 {
		return
	}
	s.mu.Lock()
	s.timer = time.AfterFunc(s.StartupDelay, s.runOnce)
	s.mu.Unlock()
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	<-s.cron.Stop().Done()
}

// RunOnce 对外暴露的单次执行入口，方便手动触发预热
func (s *Scheduler) RunOnce() {
	s.runOnce()
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	res, err := s.target.Get(ctx)
	if err != nil {
		s.log.Error("warm cache failed", "error", err)
		return
	}
	s.log.Info("warm cache done", "cached", res.Cached, "items", len(res.Items), "duration", time.Since(start))
}
