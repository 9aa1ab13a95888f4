package processor

import (
	"sort"
	"time"
)

// Merge 按 PublishedAt 倒序稳定排序，并按 URL 去重（保留第一次出现的条目）
func Merge(items []NewsItem) []NewsItem {
	type keyed struct {
		item NewsItem
		at   time.Time
	}
	rows := make([]keyed, 0, len(items))
	for _, it := range items {
		// 无法解析的时间按零值处理，排在最后
		at, _ := time.Parse(time.RFC3339Nano, it.PublishedAt)
		rows = append(rows, keyed{item: it, at: at})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].at.After(rows[j].at)
	})

	out := make([]NewsItem, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if _, ok := seen[r.item.URL]; ok {
			continue
		}
		seen[r.item.URL] = struct{}{}
		out = append(out, r.item)
	}
	return out
}
