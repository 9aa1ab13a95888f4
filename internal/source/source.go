package source

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FeedSource 描述一个被聚合的 RSS/Atom 源
type FeedSource struct {
	ID           string `yaml:"id" json:"id"`
	Name         string `yaml:"name" json:"name"`
	URL          string `yaml:"url" json:"url"`
	DefaultImage string `yaml:"default_image,omitempty" json:"defaultImage,omitempty"`
}

// registryFile 是 feeds.yaml 的结构
//
//	feeds:
//	  - id: f1
//	    name: Formula1.com
//	    url: https://...
type registryFile struct {
	Feeds []FeedSource `yaml:"feeds"`
}

// LoadFile 读取 YAML 源列表，支持 ${ENV} 展开
func LoadFile(path string) ([]FeedSource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feeds file: %w", err)
	}
	return Parse([]byte(os.ExpandEnv(string(raw))))
}

// Parse 解析 YAML 内容并校验
func Parse(data []byte) ([]FeedSource, error) {
	var reg registryFile
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse feeds yaml: %w", err)
	}
	for i := range reg.Feeds {
		f := &reg.Feeds[i]
		f.ID = strings.TrimSpace(f.ID)
		f.Name = strings.TrimSpace(f.Name)
		f.URL = strings.TrimSpace(f.URL)
		f.DefaultImage = strings.TrimSpace(f.DefaultImage)
		if f.Name == "" {
			f.Name = f.ID
		}
	}
	if err := Validate(reg.Feeds); err != nil {
		return nil, err
	}
	return reg.Feeds, nil
}

// Validate 要求 id 非空且唯一、url 非空
func Validate(feeds []FeedSource) error {
	if len(feeds) == 0 {
		return fmt.Errorf("no feeds configured")
	}
	seen := make(map[string]struct{}, len(feeds))
	for i, f := range feeds {
		if f.ID == "" {
			return fmt.Errorf("feed #%d: id is required", i)
		}
		if f.URL == "" {
			return fmt.Errorf("feed %q: url is required", f.ID)
		}
		if _, ok := seen[f.ID]; ok {
			return fmt.Errorf("feed %q: duplicate id", f.ID)
		}
		seen[f.ID] = struct{}{}
	}
	return nil
}

// Filter 按 id 过滤，ids 为空时返回全部
func Filter(feeds []FeedSource, ids []string) []FeedSource {
	if len(ids) == 0 {
		return feeds
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			want[id] = struct{}{}
		}
	}
	out := make([]FeedSource, 0, len(feeds))
	for _, f := range feeds {
		if _, ok := want[f.ID]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Defaults 内置的 F1 新闻源，未配置 FEEDS_FILE 时使用
func Defaults() []FeedSource {
	return []FeedSource{
		{ID: "f1", Name: "Formula1.com", URL: "https://www.formula1.com/en/latest/all.xml",
			DefaultImage: "https://www.formula1.com/etc/designs/fom-website/social/f1-default-share.jpg"},
		{ID: "autosport", Name: "Autosport", URL: "https://www.autosport.com/rss/f1/news/",
			DefaultImage: "https://www.autosport.com/images/autosport-logo.png"},
		{ID: "racefans", Name: "RaceFans", URL: "https://www.racefans.net/feed/",
			DefaultImage: "/sources/racefansdotnet.jpg"},
		{ID: "therace", Name: "The Race", URL: "https://www.the-race.com/rss/",
			DefaultImage: "https://www.the-race.com/wp-content/uploads/2021/03/the-race-logo.png"},
		{ID: "fia", Name: "FIA Press Releases", URL: "https://www.fia.com/rss/press-release",
			DefaultImage: "https://www.fia.com/sites/default/files/fia_logo_square.png"},
		{ID: "racers", Name: "Racers", URL: "https://racer.com/f1/feed",
			DefaultImage: "/sources/racefansdotnet.jpg"},
		{ID: "f1technical", Name: "F1 Technical", URL: "https://www.f1technical.net/rss/news.xml",
			DefaultImage: "https://f1tcdn.net/images/banners/f1t_logo2.gif"},
		{ID: "kymillman", Name: "KyMillman.com", URL: "https://www.kymillman.com/feed",
			DefaultImage: "https://www.kymillman.com/wp-content/uploads/2024/11/f1-rain-race-shot.jpg"},
		{ID: "gpfans", Name: "GPFans", URL: "https://www.gpfans.com/en/rss.xml",
			DefaultImage: "/sources/racefansdotnet.jpg"},
	}
}
