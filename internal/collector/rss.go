package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/LJTian/feedhub/internal/source"
)

const (
	DefaultUserAgent = "feedhub/1.0 (+https://github.com/LJTian/feedhub)"

	rssMaxResponseBytes = 10 << 20 // 10MB
	rssDefaultTimeout   = 30 * time.Second
)

// ErrUnexpectedStatus 表示源返回了非 2xx 状态码
var ErrUnexpectedStatus = errors.New("unexpected status")

// RSSFetcher 通过 HTTP 拉取并解析 RSS/Atom 源
type RSSFetcher struct {
	client    *http.Client
	userAgent string
}

// NewRSSFetcher timeout 为单次请求（含读取响应体）的上限
func NewRSSFetcher(timeout time.Duration, userAgent string) *RSSFetcher {
	if timeout <= 0 {
		timeout = rssDefaultTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &RSSFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

func (f *RSSFetcher) Fetch(ctx context.Context, src source.FeedSource) ([]RawEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", src.ID, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: fetch: %w", src.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: %w %d", src.ID, ErrUnexpectedStatus, resp.StatusCode)
	}

	entries, err := ParseFeed(io.LimitReader(resp.Body, rssMaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.ID, err)
	}
	return entries, nil
}
