package discover

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/LJTian/feedhub/internal/collector"
	"github.com/LJTian/feedhub/internal/source"
)

// Feed 是页面 <link rel="alternate"> 声明的一个订阅地址
type Feed struct {
	URL   string
	Title string
	Type  string
}

var feedTypes = map[string]bool{
	"application/rss+xml":   true,
	"application/atom+xml":  true,
	"application/feed+json": true,
	"application/json":      true,
}

// Discover 访问页面并返回其中声明的 RSS/Atom/JSON Feed 地址（绝对路径，去重）
func Discover(ctx context.Context, pageURL string) ([]Feed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timeout := 15 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}

	c := colly.NewCollector(
		colly.UserAgent(collector.DefaultUserAgent),
		colly.MaxDepth(1),
	)
	c.SetRequestTimeout(timeout)

	var feeds []Feed
	seen := make(map[string]bool)
	c.OnHTML(`link[rel~="alternate"][href]`, func(e *colly.HTMLElement) {
		typ := strings.ToLower(strings.TrimSpace(e.Attr("type")))
		if !feedTypes[typ] {
			return
		}
		abs := e.Request.AbsoluteURL(strings.TrimSpace(e.Attr("href")))
		if abs == "" || seen[abs] {
			return
		}
		seen[abs] = true
		feeds = append(feeds, Feed{URL: abs, Title: strings.TrimSpace(e.Attr("title")), Type: typ})
	})

	if err := c.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("visit %s: %w", pageURL, err)
	}
	return feeds, nil
}

// Suggest 把发现的 feed 转为可写入源配置文件的条目，ID 由域名生成
func Suggest(feeds []Feed) []source.FeedSource {
	out := make([]source.FeedSource, 0, len(feeds))
	used := make(map[string]int)
	for _, f := range feeds {
		u, err := url.Parse(f.URL)
		if err != nil || u.Host == "" {
			continue
		}
		host := strings.TrimPrefix(u.Hostname(), "www.")
		id := strings.ReplaceAll(host, ".", "-")
		used[id]++
		if n := used[id]; n > 1 {
			id = fmt.Sprintf("%s-%d", id, n)
		}
		name := f.Title
		if name == "" {
			name = host
		}
		out = append(out, source.FeedSource{ID: id, Name: name, URL: f.URL})
	}
	return out
}
