package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetEnvWithDefault(t *testing.T) {
	const key = "TEST_APP_PORT"

	// 环境变量未设置时，应该返回默认值
	_ = os.Unsetenv(key)
	if got := getEnv(key, "9000"); got != "9000" {
		t.Fatalf("getEnv(%q) = %q, want %q", key, got, "9000")
	}

	// 环境变量设置后，应优先返回环境变量
	t.Setenv(key, "8080")
	if got := getEnv(key, "9000"); got != "8080" {
		t.Fatalf("getEnv(%q) = %q, want %q", key, got, "8080")
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"APP_PORT", "FEEDS_FILE", "CACHE_TTL", "SUMMARY_MAX_LEN", "KAFKA_BROKERS", "KAFKA_TOPIC", "DEBUG"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.AppPort != "9000" || cfg.CacheTTL != 10*time.Minute || cfg.SummaryMaxLen != 300 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.KafkaTopic != "news_items" || cfg.KafkaBrokers != nil || cfg.Debug {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadReadsOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "1234")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("SUMMARY_MAX_LEN", "120")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("DEBUG", "true")
	t.Setenv("APP_BASIC_USER", "user")
	t.Setenv("APP_BASIC_PASS", "pass")

	cfg := Load()
	if cfg.AppPort != "1234" {
		t.Fatalf("AppPort = %q, want %q", cfg.AppPort, "1234")
	}
	if cfg.CacheTTL != 90*time.Second || cfg.SummaryMaxLen != 120 || !cfg.Debug {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.BasicAuthUser != "user" || cfg.BasicAuthPass != "pass" {
		t.Fatalf("BasicAuthUser/Pass not loaded correctly: %+v", cfg)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("CACHE_TTL", "soon")
	t.Setenv("SUMMARY_MAX_LEN", "-3")
	if got := getDuration("CACHE_TTL", time.Minute); got != time.Minute {
		t.Fatalf("getDuration = %s", got)
	}
	if got := getInt("SUMMARY_MAX_LEN", 300); got != 300 {
		t.Fatalf("getInt = %d", got)
	}
}

func TestSources(t *testing.T) {
	cfg := &Config{}
	feeds, err := cfg.Sources()
	if err != nil || len(feeds) == 0 {
		t.Fatalf("built-in sources: %v (%d)", err, len(feeds))
	}

	path := filepath.Join(t.TempDir(), "feeds.yaml")
	if err := os.WriteFile(path, []byte("feeds:\n  - id: a\n    url: https://a/rss\n"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	cfg.FeedsFile = path
	feeds, err = cfg.Sources()
	if err != nil || len(feeds) != 1 || feeds[0].ID != "a" {
		t.Fatalf("file sources: %v %+v", err, feeds)
	}
}
