package processor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const ellipsis = "…"

// StripHTML 去掉 style/script 及所有标签，空白折叠为单个空格
func StripHTML(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return strings.Join(strings.Fields(raw), " ")
	}
	doc.Find("style, script").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// MakeSummary 清洗 HTML 后按 rune 截断，尽量断在单词边界并追加省略号
func MakeSummary(raw string, maxLen int) string {
	clean := StripHTML(raw)
	if clean == "" {
		return ""
	}
	return truncateAtWord(clean, maxLen)
}

func truncateAtWord(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	cut := string(runes[:limit])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + ellipsis
}

// FirstImageSrc 返回 HTML 里第一张图片地址，先找 src 再找懒加载的 data-src
func FirstImageSrc(raw string) string {
	if !strings.Contains(raw, "<") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return ""
	}
	for _, attr := range []string{"src", "data-src"} {
		var found string
		doc.Find("img[" + attr + "]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if v, _ := s.Attr(attr); strings.TrimSpace(v) != "" {
				found = strings.TrimSpace(v)
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}
