package storage

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/LJTian/feedhub/internal/cache"
	"github.com/LJTian/feedhub/internal/processor"
	"github.com/LJTian/feedhub/internal/source"
)

func TestTruncateRunesDB(t *testing.T) {
	if got := truncateRunesDB("  你好世界  ", 2); got != "你好" {
		t.Fatalf("truncateRunesDB = %q", got)
	}
	if got := truncateRunesDB("short", 10); got != "short" {
		t.Fatalf("truncateRunesDB should keep short text: %q", got)
	}
	if got := truncateRunesDB("anything", 0); got != "" {
		t.Fatalf("zero limit should give empty string: %q", got)
	}
}

func TestToValidUTF8(t *testing.T) {
	bad := "ok\xffok"
	if got := toValidUTF8(bad); got != "ok\uFFFDok" {
		t.Fatalf("toValidUTF8 = %q", got)
	}
}

func TestToNews(t *testing.T) {
	it := processor.NewsItem{
		ID:          "abc",
		SourceID:    "f1",
		SourceName:  "Formula1.com",
		Title:       "Title",
		URL:         "https://x/1",
		PublishedAt: "2025-10-05T23:30:00.000Z",
		Summary:     strings.Repeat("s", 700),
		Image:       "https://img/1.jpg",
	}
	n := toNews(it)
	if n.ID != "abc" || n.SourceID != "f1" || n.URL != "https://x/1" {
		t.Fatalf("identity fields not copied: %+v", n)
	}
	if !n.PublishedAt.Equal(time.Date(2025, 10, 5, 23, 30, 0, 0, time.UTC)) || n.PublishedDate != "2025-10-05" {
		t.Fatalf("published fields = %v / %q", n.PublishedAt, n.PublishedDate)
	}
	if len([]rune(n.Summary)) != 600 {
		t.Fatalf("summary should be capped at 600 runes, got %d", len([]rune(n.Summary)))
	}
	if n.ExtraData["sourceName"] != "Formula1.com" || n.ExtraData["image"] != "https://img/1.jpg" {
		t.Fatalf("extra data = %v", n.ExtraData)
	}

	it.Image = ""
	if _, ok := toNews(it).ExtraData["image"]; ok {
		t.Fatalf("empty image should not be stored")
	}
	if (News{}).TableName() != "news_items" {
		t.Fatalf("unexpected table name")
	}
}

func TestDecodeSnapshot(t *testing.T) {
	at := time.Date(2025, 10, 5, 12, 0, 0, 0, time.UTC)
	bs, _ := json.Marshal(cache.Entry{At: at, Items: []processor.NewsItem{{ID: "1", URL: "https://x/1"}}})
	e, err := decodeSnapshot(bs)
	if err != nil {
		t.Fatalf("decodeSnapshot error: %v", err)
	}
	if !e.At.Equal(at) || len(e.Items) != 1 {
		t.Fatalf("unexpected entry: %+v", e)
	}

	if _, err := decodeSnapshot([]byte(`{"items":[]}`)); err == nil {
		t.Fatalf("snapshot without timestamp should be rejected")
	}
	if _, err := decodeSnapshot([]byte(`not json`)); err == nil {
		t.Fatalf("garbage should be rejected")
	}
}

// 以下用例需要真实的 Redis / PostgreSQL，未配置时跳过

func TestSnapshotStoreRoundTrip(t *testing.T) {
	addr := os.Getenv("FEEDHUB_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("FEEDHUB_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	s, err := NewSnapshotStore(ctx, addr)
	if err != nil {
		t.Fatalf("NewSnapshotStore error: %v", err)
	}
	defer s.Close()
	s.Key = "feedhub:test:" + time.Now().Format("150405.000000")
	defer s.Redis.Del(ctx, s.Key)

	if e, err := s.Load(ctx); err != nil || e != nil {
		t.Fatalf("missing key should load nil, got %+v %v", e, err)
	}
	at := time.Now().UTC().Truncate(time.Millisecond)
	if err := s.Save(ctx, cache.Entry{At: at, Items: []processor.NewsItem{{ID: "1"}}}, time.Minute); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	e, err := s.Load(ctx)
	if err != nil || e == nil || !e.At.Equal(at) || len(e.Items) != 1 {
		t.Fatalf("Load = %+v %v", e, err)
	}
}

func TestArchiveSaveBatch(t *testing.T) {
	dsn := os.Getenv("FEEDHUB_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FEEDHUB_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	a, err := OpenArchive(dsn)
	if err != nil {
		t.Fatalf("OpenArchive error: %v", err)
	}
	if err := a.SyncChannels([]source.FeedSource{{ID: "test-src", Name: "Test", URL: "https://x/rss"}}); err != nil {
		t.Fatalf("SyncChannels error: %v", err)
	}

	id := processor.MakeID("test-src", "https://x/archive/"+time.Now().Format(time.RFC3339Nano))
	defer a.DB.Delete(&News{}, "id = ?", id)
	item := processor.NewsItem{ID: id, SourceID: "test-src", Title: "v1", URL: "https://x/a", PublishedAt: "2025-10-05T12:00:00.000Z"}

	if created, err := a.SaveBatch(ctx, []processor.NewsItem{item}); err != nil || created != 1 {
		t.Fatalf("first save: created=%d err=%v", created, err)
	}
	item.Title = "v2"
	if created, err := a.SaveBatch(ctx, []processor.NewsItem{item}); err != nil || created != 0 {
		t.Fatalf("second save: created=%d err=%v", created, err)
	}
	list, err := a.ListNews(ctx, "test-src", 10, "2025-10-05")
	if err != nil {
		t.Fatalf("ListNews error: %v", err)
	}
	for _, n := range list {
		if n.ID == id && n.Title != "v2" {
			t.Fatalf("title not updated: %q", n.Title)
		}
	}
}
