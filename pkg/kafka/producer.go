// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"launchgpt-go/internal/config"
	"launchgpt-go/pkg/log"
	"launchgpt-go/pkg/tasks"
)

// Producer 将聊天事件写入 Kafka。
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.BrokerList()...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	log.Info("Kafka 生产者初始化成功")
	return &Producer{writer: w}
}

// Publish 发送一个事件，以用户 ID 作为消息键。
func (p *Producer) Publish(ctx context.Context, event tasks.ChatEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Key()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	})
}

// Close 刷新并关闭生产者。
func (p *Producer) Close() error {
	return p.writer.Close()
}
