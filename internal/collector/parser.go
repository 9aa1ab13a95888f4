package collector

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

// ErrParse 表示源返回的内容无法解析为 RSS/Atom/JSON Feed
var ErrParse = errors.New("unparsable feed payload")

// ParseFeed 将原始 feed 内容转换为 RawEntry 列表
func ParseFeed(r io.Reader) ([]RawEntry, error) {
	// gofeed.Parser 不保证并发安全，每次解析单独创建
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	entries := make([]RawEntry, 0, len(feed.Items))
	for _, it := range feed.Items {
		if it == nil {
			continue
		}
		entries = append(entries, toRawEntry(feed.FeedType, it))
	}
	return entries, nil
}

func toRawEntry(feedType string, it *gofeed.Item) RawEntry {
	e := RawEntry{
		Link:        strings.TrimSpace(it.Link),
		GUID:        strings.TrimSpace(it.GUID),
		Title:       it.Title,
		PubDate:     it.Published,
		Published:   it.Updated,
		Description: it.Description,
	}
	if e.Link == "" && len(it.Links) > 0 {
		e.Link = strings.TrimSpace(it.Links[0])
	}
	if e.Published == "" {
		e.Published = it.Custom["published"]
	}

	switch {
	case it.PublishedParsed != nil:
		t := *it.PublishedParsed
		e.ISODate = &t
	case it.UpdatedParsed != nil:
		t := *it.UpdatedParsed
		e.ISODate = &t
	}

	// RSS 的 it.Content 来自 content:encoded，正文沿用 description
	if feedType == "rss" {
		e.ContentEncoded = it.Content
		e.Content = it.Description
	} else {
		e.Content = it.Content
	}
	if it.ITunesExt != nil {
		e.Summary = it.ITunesExt.Summary
		e.ImageURL = it.ITunesExt.Image
	}

	e.MediaContent = mediaRefs(it.Extensions, "content")
	e.MediaThumbnail = mediaRefs(it.Extensions, "thumbnail")

	for _, enc := range it.Enclosures {
		if enc == nil {
			continue
		}
		e.Enclosures = append(e.Enclosures, Enclosure{URL: enc.URL, Type: enc.Type})
	}

	// RSS 的 it.Image 已混入 gofeed 自己的图片兜底顺序，这里只取原始字段
	if feedType == "json" && it.Image != nil {
		e.ImageURL = it.Image.URL
	}
	if u, text := customImage(it.Custom["image"]); u != "" {
		if e.ImageURL == "" {
			e.ImageURL = u
		}
	} else {
		e.ImageText = text
	}
	return e
}

// customImage 解析未知的 <image> 元素：gofeed 保留的是内部 XML，
// 嵌套 <url> 时返回其中的地址，纯文本时原样返回
func customImage(raw string) (nestedURL, text string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}
	if !strings.Contains(raw, "<") {
		return "", raw
	}
	var img struct {
		URL string `xml:"url"`
	}
	if err := xml.Unmarshal([]byte("<image>"+raw+"</image>"), &img); err != nil {
		return "", ""
	}
	return strings.TrimSpace(img.URL), ""
}

// mediaRefs 收集 media:<name>，包括 media:group 内嵌的条目
func mediaRefs(exts ext.Extensions, name string) []MediaRef {
	media, ok := exts["media"]
	if !ok {
		return nil
	}
	var out []MediaRef
	for _, m := range media[name] {
		out = append(out, MediaRef{URL: m.Attrs["url"]})
	}
	for _, g := range media["group"] {
		for _, m := range g.Children[name] {
			out = append(out, MediaRef{URL: m.Attrs["url"]})
		}
	}
	return out
}
