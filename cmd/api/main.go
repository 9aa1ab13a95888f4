package main

import (
	"context"
	"crypto/subtle"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LJTian/feedhub/internal/aggregator"
	"github.com/LJTian/feedhub/internal/api"
	"github.com/LJTian/feedhub/internal/cache"
	"github.com/LJTian/feedhub/internal/collector"
	"github.com/LJTian/feedhub/internal/config"
	"github.com/LJTian/feedhub/internal/logger"
	"github.com/LJTian/feedhub/internal/processor"
	"github.com/LJTian/feedhub/internal/publish"
	"github.com/LJTian/feedhub/internal/scheduler"
	"github.com/LJTian/feedhub/internal/storage"
)

func main() {
	cfg := config.Load()
	l := logger.Init(cfg.Debug)

	sources, err := cfg.Sources()
	if err != nil {
		log.Fatalf("load sources failed: %v", err)
	}
	log.Printf("loaded %d sources", len(sources))

	// 单个源的抓取时间不超过缓存 TTL
	fetchTimeout := min(cfg.CacheTTL, 30*time.Second)
	orch := aggregator.NewOrchestrator(
		collector.NewRSSFetcher(fetchTimeout, cfg.FetchUserAgent),
		processor.NewProcessor(cfg.SummaryMaxLen),
		fetchTimeout,
		l,
	)

	opts := []cache.Option{cache.WithTTL(cfg.CacheTTL), cache.WithLogger(l)}

	if cfg.RedisAddr != "" {
		snap, err := storage.NewSnapshotStore(context.Background(), cfg.RedisAddr)
		if err != nil {
			log.Printf("warn: redis snapshot disabled: %v", err)
		} else {
			defer snap.Close()
			opts = append(opts, cache.WithSnapshotStore(snap))
		}
	}

	// 接口类型的 nil 才表示未启用归档
	var archive api.ArchiveReader
	if cfg.PostgresDSN != "" {
		a, err := storage.OpenArchive(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("init archive failed: %v", err)
		}
		if err := a.SyncChannels(sources); err != nil {
			log.Printf("warn: sync channels failed: %v", err)
		}
		archive = a
		opts = append(opts, cache.OnRefresh(a.Hook(l)))
	}

	if len(cfg.KafkaBrokers) > 0 {
		pub := publish.New(publish.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic), l)
		defer pub.Close()
		opts = append(opts, cache.OnRefresh(pub.Hook()))
	}

	c := cache.New(&aggregator.Pipeline{Orchestrator: orch, Sources: sources}, opts...)

	if cfg.WarmCron != "" {
		s, err := scheduler.New(cfg.WarmCron, c, cfg.CacheTTL, l)
		if err != nil {
			log.Fatalf("init scheduler failed: %v", err)
		}
		// 延迟首轮预热，避免与启动时的首个请求争抢
		s.StartupDelay = 15 * time.Second
		s.Start()
		defer s.Stop()
	}

	r := gin.Default()
	// 若配置了全局访问密码，则启用 Basic Auth 保护（/health 仍然免认证）
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPass != "" {
		r.Use(basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass))
	}

	api.NewServer(c, sources, archive, l).RegisterRoutes(r)

	addr := ":" + cfg.AppPort
	log.Printf("starting api server at %s ...", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server exit: %v", err)
	}
}

// basicAuthMiddleware 为整个站点增加一个简单的 Basic Auth 访问密码。
// 仅当配置了 APP_BASIC_USER / APP_BASIC_PASS 时启用。
// /health 不做认证，便于健康检查。
func basicAuthMiddleware(user, pass string) gin.HandlerFunc {
	const realm = "Restricted"
	uBytes := []byte(user)
	pBytes := []byte(pass)

	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}
		u, p, ok := c.Request.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), uBytes) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), pBytes) != 1 {
			c.Header("WWW-Authenticate", `Basic realm="`+realm+`"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
