package processor

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"

	"github.com/LJTian/feedhub/internal/collector"
	"github.com/LJTian/feedhub/internal/source"
)

// DefaultSummaryLen 为摘要的默认最大 rune 数
const DefaultSummaryLen = 300

// TimeLayout 是 PublishedAt 的输出格式（UTC，毫秒精度）
const TimeLayout = "2006-01-02T15:04:05.000Z"

// NewsItem 是对外输出的统一条目
type NewsItem struct {
	ID          string `json:"id"`
	SourceID    string `json:"sourceId"`
	SourceName  string `json:"sourceName"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	Summary     string `json:"summary,omitempty"`
	Image       string `json:"image,omitempty"`
}

// Processor 把 RawEntry 规范化为 NewsItem
type Processor struct {
	MaxSummary int
	Now        func() time.Time
}

func NewProcessor(maxSummary int) *Processor {
	if maxSummary <= 0 {
		maxSummary = DefaultSummaryLen
	}
	return &Processor{MaxSummary: maxSummary, Now: time.Now}
}

// Normalize 返回 false 表示条目缺少链接或标题，应丢弃
func (p *Processor) Normalize(e collector.RawEntry, src source.FeedSource) (NewsItem, bool) {
	url := firstNonEmpty(e.Link, e.GUID)
	if url == "" {
		return NewsItem{}, false
	}
	title := strings.TrimSpace(e.Title)
	if title == "" {
		return NewsItem{}, false
	}

	item := NewsItem{
		ID:          MakeID(src.ID, url),
		SourceID:    src.ID,
		SourceName:  src.Name,
		Title:       title,
		URL:         url,
		PublishedAt: p.publishedAt(e).UTC().Format(TimeLayout),
		Summary:     MakeSummary(firstOf(e, summaryFields), p.maxSummary()),
		Image:       pickImage(e),
	}
	if item.Image == "" {
		item.Image = src.DefaultImage
	}
	return item, true
}

// MakeID 由源 ID 与链接生成稳定的条目 ID
func MakeID(sourceID, url string) string {
	h := sha1.New()
	h.Write([]byte(sourceID + ":" + url))
	return hex.EncodeToString(h.Sum(nil))
}

func (p *Processor) maxSummary() int {
	if p.MaxSummary <= 0 {
		return DefaultSummaryLen
	}
	return p.MaxSummary
}

func (p *Processor) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

// publishedAt 取第一个存在的日期字段，取到的字符串无法解析时回退为当前时间
func (p *Processor) publishedAt(e collector.RawEntry) time.Time {
	if e.ISODate != nil && !e.ISODate.IsZero() {
		return *e.ISODate
	}
	raw := firstNonEmpty(e.PubDate, e.Published)
	if raw == "" {
		return p.now()
	}
	if t, ok := parseDate(raw); ok {
		return t
	}
	return p.now()
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC850,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// field 从 RawEntry 中取一个候选值，取不到返回空串
type field func(collector.RawEntry) string

// 摘要候选字段，按顺序取第一个非空值
var summaryFields = []field{
	func(e collector.RawEntry) string { return e.ContentSnippet },
	func(e collector.RawEntry) string { return e.Content },
	func(e collector.RawEntry) string { return e.Summary },
	func(e collector.RawEntry) string { return e.Description },
}

// 用于抓取首图的 HTML 字段，只看第一个非空的
var htmlFields = []field{
	func(e collector.RawEntry) string { return e.ContentEncoded },
	func(e collector.RawEntry) string { return e.Content },
	func(e collector.RawEntry) string { return e.ContentSnippet },
	func(e collector.RawEntry) string { return e.Summary },
	func(e collector.RawEntry) string { return e.Description },
}

// 图片兜底链：media:content → media:thumbnail → 图片 enclosure → image 字段 → HTML 首图
var imageChain = []field{
	func(e collector.RawEntry) string { return firstMediaURL(e.MediaContent) },
	func(e collector.RawEntry) string { return firstMediaURL(e.MediaThumbnail) },
	imageEnclosure,
	func(e collector.RawEntry) string { return plainURL(firstNonEmpty(e.ImageURL, e.ImageText)) },
	func(e collector.RawEntry) string { return FirstImageSrc(firstOf(e, htmlFields)) },
}

func pickImage(e collector.RawEntry) string {
	return firstOf(e, imageChain)
}

// firstOf 返回第一个非空候选值；只含空白的值视为缺失，继续看下一个字段
func firstOf(e collector.RawEntry, fields []field) string {
	for _, f := range fields {
		if v := strings.TrimSpace(f(e)); v != "" {
			return v
		}
	}
	return ""
}

// plainURL 拒绝带标签的值，避免把未解析的 XML 当成图片地址
func plainURL(v string) string {
	if strings.ContainsAny(v, "<>") {
		return ""
	}
	return v
}

func firstMediaURL(refs []collector.MediaRef) string {
	for _, m := range refs {
		if u := strings.TrimSpace(m.URL); u != "" {
			return u
		}
	}
	return ""
}

// imageEnclosure 只接受未声明类型或 image/* 的 enclosure
func imageEnclosure(e collector.RawEntry) string {
	for _, enc := range e.Enclosures {
		u := strings.TrimSpace(enc.URL)
		if u == "" {
			continue
		}
		if enc.Type == "" || strings.HasPrefix(enc.Type, "image/") {
			return u
		}
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
