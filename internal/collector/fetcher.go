package collector

import (
	"context"
	"time"

	"github.com/LJTian/feedhub/internal/source"
)

// MediaRef 是 media:content / media:thumbnail / 图片字段里带 url 属性的结构
type MediaRef struct {
	URL string
}

// Enclosure 对应 RSS <enclosure>，Type 可能缺失
type Enclosure struct {
	URL  string
	Type string
}

// RawEntry 是解析器产出的单条原始条目，所有字段都可能缺失
type RawEntry struct {
	Link string
	GUID string

	Title string

	// ISODate 为解析器已规范化的时间，PubDate / Published 保留原始字符串
	ISODate   *time.Time
	PubDate   string
	Published string

	ContentSnippet string
	ContentEncoded string
	Content        string
	Summary        string
	Description    string

	MediaContent   []MediaRef
	MediaThumbnail []MediaRef
	Enclosures     []Enclosure
	// ImageURL 来自带 url 的图片结构，ImageText 为纯字符串形式的图片字段
	ImageURL  string
	ImageText string
}

// Fetcher 抽象每一个数据源的抓取与解析
type Fetcher interface {
	Fetch(ctx context.Context, src source.FeedSource) ([]RawEntry, error)
}
