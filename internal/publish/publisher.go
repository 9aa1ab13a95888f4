package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/LJTian/feedhub/internal/cache"
	"github.com/LJTian/feedhub/internal/logger"
	"github.com/LJTian/feedhub/internal/processor"
)

// MessageWriter 是 kafka.Writer 中用到的部分
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher 把新出现的条目写入 Kafka，key 为条目 ID
type Publisher struct {
	writer MessageWriter
	log    *slog.Logger
	now    func() time.Time
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // 同一 ID 落到同一分区
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
}

func New(w MessageWriter, l *slog.Logger) *Publisher {
	if l == nil {
		l = logger.Discard()
	}
	return &Publisher{writer: w, log: l, now: time.Now}
}

// NewItems 返回 next 中 ID 不在 prev 里的条目，prev 为 nil 时全部视为新条目
func NewItems(prev *cache.Entry, next cache.Entry) []processor.NewsItem {
	if prev == nil {
		return next.Items
	}
	known := make(map[string]struct{}, len(prev.Items))
	for _, it := range prev.Items {
		known[it.ID] = struct{}{}
	}
	var out []processor.NewsItem
	for _, it := range next.Items {
		if _, ok := known[it.ID]; !ok {
			out = append(out, it)
		}
	}
	return out
}

func (p *Publisher) Publish(ctx context.Context, items []processor.NewsItem) error {
	if len(items) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(items))
	for _, it := range items {
		bs, err := json.Marshal(it)
		if err != nil {
			return fmt.Errorf("marshal item %s: %w", it.ID, err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(it.ID), Value: bs, Time: p.now()})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write messages to kafka: %w", err)
	}
	return nil
}

// Hook 返回缓存刷新回调，异步发布新增条目
func (p *Publisher) Hook() cache.Hook {
	return func(ctx context.Context, prev *cache.Entry, next cache.Entry) {
		items := NewItems(prev, next)
		if len(items) == 0 {
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			if err := p.Publish(ctx, items); err != nil {
				p.log.Error("publish new items failed", "items", len(items), "error", err)
				return
			}
			p.log.Info("new items published", "items", len(items))
		}()
	}
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
