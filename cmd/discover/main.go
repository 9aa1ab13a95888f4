package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/LJTian/feedhub/internal/discover"
	"github.com/LJTian/feedhub/internal/source"
)

// 从网页中发现 RSS/Atom 地址，输出可直接粘贴到 FEEDS_FILE 的 YAML 片段
func main() {
	timeout := flag.Duration("timeout", 15*time.Second, "per page timeout")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-timeout 15s] <page-url>...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	var all []discover.Feed
	for _, page := range flag.Args() {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		feeds, err := discover.Discover(ctx, page)
		cancel()
		if err != nil {
			log.Printf("discover %s failed: %v", page, err)
			continue
		}
		log.Printf("%s: %d feeds", page, len(feeds))
		all = append(all, feeds...)
	}
	if len(all) == 0 {
		log.Fatalf("no feeds found")
	}

	out := struct {
		Feeds []source.FeedSource `yaml:"feeds"`
	}{Feeds: discover.Suggest(all)}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		log.Fatalf("encode yaml failed: %v", err)
	}
}
