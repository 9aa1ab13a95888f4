package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/LJTian/feedhub/internal/cache"
	"github.com/LJTian/feedhub/internal/processor"
	"github.com/LJTian/feedhub/internal/source"
)

// Channel 对应配置中的一个 feed 源
type Channel struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Code    string `gorm:"size:64;uniqueIndex" json:"code"` // 即 FeedSource.ID
	Name    string `gorm:"size:128" json:"name"`
	BaseURL string `gorm:"size:1024" json:"baseUrl"`
	Status  string `gorm:"size:32;index" json:"status"` // active / disabled

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// News 是归档表 news_items 的一行
type News struct {
	ID            string            `gorm:"primaryKey;size:40" json:"id"`
	SourceID      string            `gorm:"size:64;index" json:"sourceId"`
	Title         string            `gorm:"size:512" json:"title"`
	URL           string            `gorm:"size:2048;index" json:"url"`
	Summary       string            `gorm:"size:600" json:"summary"`
	PublishedAt   time.Time         `gorm:"index" json:"publishedAt"`
	PublishedDate string            `gorm:"size:10;index" json:"publishedDate"` // UTC 日期 YYYY-MM-DD
	ExtraData     datatypes.JSONMap `gorm:"type:jsonb" json:"extraData"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (News) TableName() string { return "news_items" }

// Archive 把每次刷新得到的条目持久化到 PostgreSQL
type Archive struct {
	DB *gorm.DB
}

func OpenArchive(dsn string) (*Archive, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&Channel{}, &News{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Archive{DB: db}, nil
}

// SyncChannels 确保每个源都有对应的渠道记录，名称和地址以配置为准
func (a *Archive) SyncChannels(sources []source.FeedSource) error {
	for _, src := range sources {
		ch := &Channel{Code: src.ID, Name: src.Name, BaseURL: src.URL, Status: "active"}
		if err := a.DB.Where("code = ?", src.ID).FirstOrCreate(ch).Error; err != nil {
			return err
		}
		if err := a.DB.Model(ch).Updates(map[string]any{"name": src.Name, "base_url": src.URL}).Error; err != nil {
			return err
		}
	}
	return nil
}

// toValidUTF8 将字符串规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

// truncateRunesDB 按 rune 数截断字符串，确保不会超过数据库字段长度
func truncateRunesDB(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}

func toNews(it processor.NewsItem) News {
	published, err := time.Parse(time.RFC3339Nano, it.PublishedAt)
	if err != nil {
		published = time.Now()
	}
	published = published.UTC()

	extra := datatypes.JSONMap{"sourceName": it.SourceName}
	if it.Image != "" {
		extra["image"] = it.Image
	}
	return News{
		ID:            it.ID,
		SourceID:      it.SourceID,
		Title:         truncateRunesDB(toValidUTF8(it.Title), 512),
		URL:           it.URL,
		Summary:       truncateRunesDB(toValidUTF8(it.Summary), 600),
		PublishedAt:   published,
		PublishedDate: published.Format("2006-01-02"),
		ExtraData:     extra,
	}
}

// SaveBatch 以条目 ID 为幂等键写入，已存在时更新可变字段
func (a *Archive) SaveBatch(ctx context.Context, items []processor.NewsItem) (int, error) {
	created := 0
	for _, it := range items {
		fresh := toNews(it)
		// 已存在时 FirstOrCreate 会把 n 覆盖为库里的旧值
		n := fresh
		res := a.DB.WithContext(ctx).Where("id = ?", n.ID).FirstOrCreate(&n)
		if res.Error != nil {
			return created, res.Error
		}
		if res.RowsAffected > 0 {
			created++
			continue
		}
		if err := a.DB.WithContext(ctx).Model(&n).Updates(map[string]any{
			"title":          fresh.Title,
			"summary":        fresh.Summary,
			"published_at":   fresh.PublishedAt,
			"published_date": fresh.PublishedDate,
			"extra_data":     fresh.ExtraData,
		}).Error; err != nil {
			return created, err
		}
	}
	return created, nil
}

// ListNews 按源与可选日期（UTC，2006-01-02）倒序返回归档条目
func (a *Archive) ListNews(ctx context.Context, sourceID string, limit int, date string) ([]News, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	db := a.DB.WithContext(ctx).Model(&News{})
	if sourceID != "" {
		db = db.Where("source_id = ?", sourceID)
	}
	if date != "" {
		db = db.Where("published_date = ?", date)
	}
	var list []News
	if err := db.Order("published_at DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Hook 返回在缓存刷新后异步归档的回调
func (a *Archive) Hook(l *slog.Logger) cache.Hook {
	return func(ctx context.Context, _ *cache.Entry, next cache.Entry) {
		items := next.Items
		go func() {
			ctx, cancel := context.WithTimeout(ctx, time.Minute)
			defer cancel()
			created, err := a.SaveBatch(ctx, items)
			if err != nil {
				l.Error("archive items failed", "error", err)
				return
			}
			l.Info("items archived", "items", len(items), "created", created)
		}()
	}
}
