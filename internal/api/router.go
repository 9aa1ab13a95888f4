package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LJTian/feedhub/internal/cache"
	"github.com/LJTian/feedhub/internal/logger"
	"github.com/LJTian/feedhub/internal/processor"
	"github.com/LJTian/feedhub/internal/source"
	"github.com/LJTian/feedhub/internal/storage"
)

// ItemCache 是 *cache.Cache 中 API 用到的部分
type ItemCache interface {
	Get(ctx context.Context) (cache.Result, error)
	TTL() time.Duration
	Stats() cache.Stats
}

// ArchiveReader 是 *storage.Archive 中 API 用到的部分
type ArchiveReader interface {
	ListNews(ctx context.Context, sourceID string, limit int, date string) ([]storage.News, error)
}

type Server struct {
	cache   ItemCache
	sources []source.FeedSource
	archive ArchiveReader
	log     *slog.Logger
}

// NewServer archive 可以为 nil，此时不注册归档接口
func NewServer(c ItemCache, sources []source.FeedSource, archive ArchiveReader, l *slog.Logger) *Server {
	if l == nil {
		l = logger.Discard()
	}
	return &Server{cache: c, sources: sources, archive: archive, log: l}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	api := r.Group("/api")
	{
		api.GET("/items", s.listItems)
		api.GET("/sources", s.listSources)
	}

	if s.archive != nil {
		v1 := r.Group("/api/v1")
		{
			v1.GET("/news", s.listNews)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	st := s.cache.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"lastRefresh": st.LastRefresh,
		"refreshes":   st.Refreshes,
		"items":       st.Items,
	})
}

func (s *Server) listItems(c *gin.Context) {
	res, err := s.cache.Get(c.Request.Context())
	if err != nil {
		s.log.Error("get items failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	items := filterBySource(res.Items, c.Query("source"))
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 && limit < len(items) {
		items = items[:limit]
	}

	c.Header("Cache-Control", fmt.Sprintf("public, max-age=0, s-maxage=%d", int(s.cache.TTL().Seconds())))
	c.JSON(http.StatusOK, cache.Result{Items: items, Cached: res.Cached})
}

func (s *Server) listSources(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sources": s.sources})
}

func (s *Server) listNews(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 50
	}

	list, err := s.archive.ListNews(c.Request.Context(), c.Query("source"), limit, c.Query("date"))
	if err != nil {
		s.log.Error("list archived news failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": list})
}

// filterBySource 按逗号分隔的 sourceId 过滤，空表示不过滤；结果始终非 nil
func filterBySource(items []processor.NewsItem, raw string) []processor.NewsItem {
	var ids []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	if len(ids) == 0 {
		if items == nil {
			return []processor.NewsItem{}
		}
		return items
	}

	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make([]processor.NewsItem, 0, len(items))
	for _, it := range items {
		if _, ok := want[it.SourceID]; ok {
			out = append(out, it)
		}
	}
	return out
}
