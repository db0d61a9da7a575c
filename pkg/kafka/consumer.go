package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"

	"launchgpt-go/internal/config"
	"launchgpt-go/pkg/log"
	"launchgpt-go/pkg/tasks"
)

// EventProcessor 处理单个事件，使消费者与具体的管道实现解耦。
type EventProcessor interface {
	Process(ctx context.Context, event tasks.ChatEvent) error
}

// AttemptCounter 记录每个事件的失败次数。
type AttemptCounter interface {
	Incr(ctx context.Context, eventID string) (int64, error)
	Reset(ctx context.Context, eventID string) error
}

type redisAttemptCounter struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisAttemptCounter 使用 Redis 计数，计数键 24 小时后过期。
func NewRedisAttemptCounter(rdb *redis.Client) AttemptCounter {
	return &redisAttemptCounter{rdb: rdb, ttl: 24 * time.Hour}
}

func attemptsKey(eventID string) string {
	return fmt.Sprintf("kafka:attempts:%s", eventID)
}

func (c *redisAttemptCounter) Incr(ctx context.Context, eventID string) (int64, error) {
	n, err := c.rdb.Incr(ctx, attemptsKey(eventID)).Result()
	if err != nil {
		return 0, err
	}
	_ = c.rdb.Expire(ctx, attemptsKey(eventID), c.ttl).Err()
	return n, nil
}

func (c *redisAttemptCounter) Reset(ctx context.Context, eventID string) error {
	return c.rdb.Del(ctx, attemptsKey(eventID)).Err()
}

// messageReader 是 kafka.Reader 中消费者用到的部分。
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// defaultBackoff 是第一次重试前的等待时间，之后每次翻倍。
const defaultBackoff = 500 * time.Millisecond

// Consumer 从 Kafka 读取聊天事件并交给 EventProcessor 处理。
// 消息按顺序处理：失败的事件在当前位置重试，直到成功或达到上限后才提交 offset，
// 因此后续消息的提交不会越过一条未处理完的消息。
type Consumer struct {
	reader     messageReader
	processor  EventProcessor
	attempts   AttemptCounter
	maxRetries int64
	backoff    time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewConsumer 创建一个消费者。
func NewConsumer(cfg config.KafkaConfig, processor EventProcessor, attempts AttemptCounter) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.BrokerList(),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	return newConsumer(r, processor, attempts, cfg.MaxRetries)
}

func newConsumer(r messageReader, processor EventProcessor, attempts AttemptCounter, maxRetries int) *Consumer {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Consumer{
		reader:     r,
		processor:  processor,
		attempts:   attempts,
		maxRetries: int64(maxRetries),
		backoff:    defaultBackoff,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run 循环消费直到 ctx 取消，随后关闭 reader。
func (c *Consumer) Run(ctx context.Context) error {
	log.Info("Kafka 消费者已启动")
	defer func() {
		if err := c.reader.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("从 Kafka 读取消息失败: %w", err)
		}
		if !c.handle(ctx, m) {
			// 只有 ctx 取消才会走到这里；offset 未提交，重启后从这条消息继续
			return nil
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil {
			log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
		}
	}
}

// handle 处理一条消息并返回是否应提交 offset。
// 失败时按指数退避在原地重试；成功、格式错误、以及失败次数达到上限时返回 true。
// 只有 ctx 在重试等待中被取消时返回 false。
func (c *Consumer) handle(ctx context.Context, m kafka.Message) bool {
	var event tasks.ChatEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		log.Errorf("无法解析 Kafka 消息: %v, offset: %d", err, m.Offset)
		return true
	}

	var local int64
	for {
		err := c.processor.Process(ctx, event)
		if err == nil {
			log.Infow("聊天事件处理成功", "event", event.ID, "type", event.Type)
			_ = c.attempts.Reset(ctx, event.ID)
			return true
		}
		log.Errorw("处理聊天事件失败", "event", event.ID, "type", event.Type, "error", err)

		// Redis 中的计数在进程重启后仍然有效；Redis 不可用时退回本地计数
		local++
		attempts, incErr := c.attempts.Incr(ctx, event.ID)
		if incErr != nil {
			log.Warnw("记录事件失败次数失败", "event", event.ID, "error", incErr)
			attempts = local
		}
		if attempts >= c.maxRetries {
			log.Errorw("聊天事件多次失败，放弃处理并提交 offset",
				"event", event.ID, "type", event.Type, "userId", event.UserID,
				"attempts", attempts, "offset", m.Offset, "error", err)
			_ = c.attempts.Reset(ctx, event.ID)
			return true
		}

		if err := c.sleep(ctx, c.backoff<<(attempts-1)); err != nil {
			return false
		}
	}
}
