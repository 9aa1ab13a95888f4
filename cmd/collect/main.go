package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/LJTian/feedhub/internal/aggregator"
	"github.com/LJTian/feedhub/internal/cache"
	"github.com/LJTian/feedhub/internal/collector"
	"github.com/LJTian/feedhub/internal/config"
	"github.com/LJTian/feedhub/internal/logger"
	"github.com/LJTian/feedhub/internal/processor"
	"github.com/LJTian/feedhub/internal/source"
	"github.com/LJTian/feedhub/internal/storage"
)

// 一个仅执行一次刷新的命令行入口：适合手动触发抓取，结果以 JSON 输出到 stdout
func main() {
	only := flag.String("source", "", "comma separated source ids to fetch (default: all)")
	flag.Parse()

	cfg := config.Load()
	// 日志写到 stderr，避免混入 JSON 输出
	l := logger.NewWithWriter(os.Stderr, cfg.Debug)

	sources, err := cfg.Sources()
	if err != nil {
		log.Fatalf("load sources failed: %v", err)
	}
	if *only != "" {
		sources = source.Filter(sources, strings.Split(*only, ","))
		if len(sources) == 0 {
			log.Fatalf("no source matches %q", *only)
		}
	}

	fetchTimeout := min(cfg.CacheTTL, 30*time.Second)
	orch := aggregator.NewOrchestrator(
		collector.NewRSSFetcher(fetchTimeout, cfg.FetchUserAgent),
		processor.NewProcessor(cfg.SummaryMaxLen),
		fetchTimeout,
		l,
	)
	c := cache.New(&aggregator.Pipeline{Orchestrator: orch, Sources: sources}, cache.WithTTL(cfg.CacheTTL), cache.WithLogger(l))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	res, err := c.Get(ctx)
	if err != nil {
		log.Fatalf("refresh failed: %v", err)
	}

	// 与 cmd/api 保持一致：配置了 PostgreSQL 时同时归档
	if cfg.PostgresDSN != "" {
		a, err := storage.OpenArchive(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("init archive failed: %v", err)
		}
		created, err := a.SaveBatch(ctx, res.Items)
		if err != nil {
			log.Fatalf("archive items failed: %v", err)
		}
		log.Printf("archived %d items (%d new)", len(res.Items), created)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		log.Fatalf("encode result failed: %v", err)
	}
}
