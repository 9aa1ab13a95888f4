package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/LJTian/feedhub/internal/source"
)

type Config struct {
	AppPort string

	// 全站 Basic Auth，两项都配置时启用
	BasicAuthUser string
	BasicAuthPass string

	// FeedsFile 为空时使用内置的源列表
	FeedsFile      string
	CacheTTL       time.Duration
	SummaryMaxLen  int
	FetchUserAgent string

	// 以下外部依赖为空表示不启用
	RedisAddr    string
	PostgresDSN  string
	KafkaBrokers []string
	KafkaTopic   string
	WarmCron     string

	Debug bool
}

// Load 先尝试读取当前目录的 .env（不存在时忽略），再从环境变量构建配置
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("load .env failed: %v", err)
	}

	cfg := &Config{
		AppPort:        getEnv("APP_PORT", "9000"),
		BasicAuthUser:  getEnv("APP_BASIC_USER", ""),
		BasicAuthPass:  getEnv("APP_BASIC_PASS", ""),
		FeedsFile:      getEnv("FEEDS_FILE", ""),
		CacheTTL:       getDuration("CACHE_TTL", 10*time.Minute),
		SummaryMaxLen:  getInt("SUMMARY_MAX_LEN", 300),
		FetchUserAgent: getEnv("FETCH_USER_AGENT", ""),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		PostgresDSN:    getEnv("POSTGRES_DSN", ""),
		KafkaBrokers:   splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "news_items"),
		WarmCron:       getEnv("WARM_CRON", ""),
		Debug:          getBool("DEBUG", false),
	}

	log.Printf("config loaded: port=%s ttl=%s feeds=%q warm=%q", cfg.AppPort, cfg.CacheTTL, cfg.FeedsFile, cfg.WarmCron)
	return cfg
}

// Sources 返回 FeedsFile 中的源，未配置时返回内置列表
func (c *Config) Sources() ([]source.FeedSource, error) {
	if c.FeedsFile == "" {
		return source.Defaults(), nil
	}
	return source.LoadFile(c.FeedsFile)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("invalid %s=%q, using %s", key, v, def)
		return def
	}
	return d
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
