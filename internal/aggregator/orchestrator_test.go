package aggregator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/LJTian/feedhub/internal/collector"
	"github.com/LJTian/feedhub/internal/processor"
	"github.com/LJTian/feedhub/internal/source"
)

func rssWith(items ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>t</title>`)
	for _, it := range items {
		b.WriteString(it)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func rssItem(link, title, date string) string {
	return fmt.Sprintf(`<item><title>%s</title><link>%s</link><pubDate>%s</pubDate></item>`, title, link, date)
}

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a":
			_, _ = w.Write([]byte(rssWith(
				rssItem("https://x/a1", "A1", "Sun, 05 Oct 2025 10:00:00 +0000"),
				rssItem("https://x/shared", "A2", "Sun, 05 Oct 2025 12:00:00 +0000"),
			)))
		case "/b":
			_, _ = w.Write([]byte(rssWith(
				rssItem("https://x/b1", "B1", "Sun, 05 Oct 2025 11:00:00 +0000"),
				rssItem("https://x/shared", "B2", "Sun, 05 Oct 2025 09:00:00 +0000"),
				rssItem("", "no link", "Sun, 05 Oct 2025 09:00:00 +0000"),
			)))
		case "/empty":
			_, _ = w.Write([]byte(rssWith()))
		case "/junk":
			_, _ = w.Write([]byte("<html>not a feed</html>"))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRefreshToleratesPartialFailure(t *testing.T) {
	srv := newFeedServer(t)
	sources := []source.FeedSource{
		{ID: "a", Name: "A", URL: srv.URL + "/a"},
		{ID: "down", Name: "Down", URL: srv.URL + "/down"},
		{ID: "b", Name: "B", URL: srv.URL + "/b"},
	}
	o := NewOrchestrator(collector.NewRSSFetcher(5*time.Second, ""), nil, 5*time.Second, nil)

	items := o.Refresh(context.Background(), sources)
	if len(items) != 4 {
		t.Fatalf("expected 4 items from the two healthy sources, got %d", len(items))
	}
	// 按源顺序拼接
	if items[0].SourceID != "a" || items[1].SourceID != "a" || items[2].SourceID != "b" {
		t.Fatalf("items not in source order: %+v", items)
	}
	for _, it := range items {
		if it.SourceID == "down" {
			t.Fatalf("failed source should contribute nothing")
		}
	}
}

func TestRefreshToleratesNetworkFailure(t *testing.T) {
	srv := newFeedServer(t)
	// 关闭后的监听地址，连接会被拒绝
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	sources := []source.FeedSource{
		{ID: "a", URL: srv.URL + "/a"},
		{ID: "refused", URL: deadURL + "/feed.xml"},
		{ID: "b", URL: srv.URL + "/b"},
	}
	o := NewOrchestrator(collector.NewRSSFetcher(5*time.Second, ""), nil, 5*time.Second, nil)

	items := o.Refresh(context.Background(), sources)
	if len(items) != 4 {
		t.Fatalf("expected 4 items from the reachable sources, got %d", len(items))
	}
	for _, it := range items {
		if it.SourceID == "refused" {
			t.Fatalf("unreachable source should contribute nothing")
		}
	}
}

type failingFetcher struct{ inner collector.Fetcher }

func (f failingFetcher) Fetch(ctx context.Context, src source.FeedSource) ([]collector.RawEntry, error) {
	if src.ID == "broken" {
		return nil, errors.New("dial tcp: connection reset by peer")
	}
	return f.inner.Fetch(ctx, src)
}

func TestRefreshToleratesFetcherError(t *testing.T) {
	srv := newFeedServer(t)
	f := failingFetcher{inner: collector.NewRSSFetcher(5*time.Second, "")}
	o := NewOrchestrator(f, nil, 5*time.Second, nil)

	items := o.Refresh(context.Background(), []source.FeedSource{
		{ID: "broken", URL: srv.URL + "/a"},
		{ID: "b", URL: srv.URL + "/b"},
	})
	if len(items) != 2 {
		t.Fatalf("expected 2 items from source b, got %d", len(items))
	}
	if items[0].SourceID != "b" || items[1].SourceID != "b" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestRefreshEmptyAndUnparsableSources(t *testing.T) {
	srv := newFeedServer(t)
	sources := []source.FeedSource{
		{ID: "empty", URL: srv.URL + "/empty"},
		{ID: "junk", URL: srv.URL + "/junk"},
	}
	o := NewOrchestrator(collector.NewRSSFetcher(5*time.Second, ""), nil, 5*time.Second, nil)
	if items := o.Refresh(context.Background(), sources); len(items) != 0 {
		t.Fatalf("expected no items, got %d", len(items))
	}
}

type slowFetcher struct{}

func (slowFetcher) Fetch(ctx context.Context, src source.FeedSource) ([]collector.RawEntry, error) {
	if src.ID == "fast" {
		return []collector.RawEntry{{Link: "https://x/fast", Title: "fast"}}, nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRefreshPerSourceTimeout(t *testing.T) {
	o := NewOrchestrator(slowFetcher{}, nil, 50*time.Millisecond, nil)
	start := time.Now()
	items := o.Refresh(context.Background(), []source.FeedSource{{ID: "slow"}, {ID: "fast"}})
	if time.Since(start) > time.Second {
		t.Fatalf("slow source was not cut off")
	}
	if len(items) != 1 || items[0].SourceID != "fast" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestPipelineMergesAndDedupes(t *testing.T) {
	srv := newFeedServer(t)
	p := &Pipeline{
		Orchestrator: NewOrchestrator(collector.NewRSSFetcher(5*time.Second, ""), processor.NewProcessor(0), 5*time.Second, nil),
		Sources: []source.FeedSource{
			{ID: "a", URL: srv.URL + "/a"},
			{ID: "b", URL: srv.URL + "/b"},
		},
	}
	items, err := p.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	var titles []string
	for _, it := range items {
		titles = append(titles, it.Title)
	}
	// shared 只保留最新的 A2
	if got := strings.Join(titles, ","); got != "A2,B1,A1" {
		t.Fatalf("titles = %s, want A2,B1,A1", got)
	}
}
