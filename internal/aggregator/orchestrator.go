package aggregator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/LJTian/feedhub/internal/collector"
	"github.com/LJTian/feedhub/internal/logger"
	"github.com/LJTian/feedhub/internal/processor"
	"github.com/LJTian/feedhub/internal/source"
)

// Orchestrator 并发抓取所有源，单个源失败只记录日志，不影响其它源
type Orchestrator struct {
	fetcher   collector.Fetcher
	processor *processor.Processor
	timeout   time.Duration
	log       *slog.Logger
}

// NewOrchestrator timeout 为单个源的抓取上限，<=0 表示只受 ctx 约束
func NewOrchestrator(f collector.Fetcher, p *processor.Processor, timeout time.Duration, l *slog.Logger) *Orchestrator {
	if p == nil {
		p = processor.NewProcessor(0)
	}
	if l == nil {
		l = logger.Discard()
	}
	return &Orchestrator{fetcher: f, processor: p, timeout: timeout, log: l}
}

// Refresh 返回按源顺序拼接的条目，未排序、未去重
func (o *Orchestrator) Refresh(ctx context.Context, sources []source.FeedSource) []processor.NewsItem {
	start := time.Now()
	results := make([][]processor.NewsItem, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src source.FeedSource) {
			defer wg.Done()
			results[i] = o.collect(ctx, src)
		}(i, src)
	}
	wg.Wait()

	total := 0
	for _, r := range results {
		total += len(r)
	}
	out := make([]processor.NewsItem, 0, total)
	for _, r := range results {
		out = append(out, r...)
	}
	o.log.Info("refresh done", "sources", len(sources), "items", len(out), "duration", time.Since(start))
	return out
}

func (o *Orchestrator) collect(ctx context.Context, src source.FeedSource) []processor.NewsItem {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	entries, err := o.fetcher.Fetch(ctx, src)
	if err != nil {
		stage := "fetch"
		if errors.Is(err, collector.ErrParse) {
			stage = "parse"
		}
		o.log.Error("source failed", "source", src.ID, "url", src.URL, "stage", stage, "error", err)
		return nil
	}

	items := make([]processor.NewsItem, 0, len(entries))
	for _, e := range entries {
		if it, ok := o.processor.Normalize(e, src); ok {
			items = append(items, it)
		}
	}
	o.log.Debug("source done", "source", src.ID, "entries", len(entries), "items", len(items))
	return items
}

// Pipeline 把抓取与合并串起来，作为缓存的刷新函数
type Pipeline struct {
	Orchestrator *Orchestrator
	Sources      []source.FeedSource
}

func (p *Pipeline) Refresh(ctx context.Context) ([]processor.NewsItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return processor.Merge(p.Orchestrator.Refresh(ctx, p.Sources)), nil
}
