// Package messaging 领域事件投递（Kafka 直发或数据库 outbox）与批量定价请求消费
package messaging

import (
	"context"
	"strings"
)

// Sender 消息发送方，由 mq.Producer 实现
type Sender interface {
	SendMessage(ctx context.Context, topic, key string, value any) error
}

// KafkaEventPublisher 将领域事件发送到 <prefix>.<event_type> topic
type KafkaEventPublisher struct {
	sender Sender
	prefix string
}

// NewKafkaEventPublisher 创建 Kafka 事件发布者
func NewKafkaEventPublisher(sender Sender, topicPrefix string) *KafkaEventPublisher {
	return &KafkaEventPublisher{sender: sender, prefix: strings.TrimSuffix(topicPrefix, ".")}
}

// Topic 事件类型对应的 topic
func (p *KafkaEventPublisher) Topic(eventType string) string {
	if p.prefix == "" {
		return eventType
	}
	return p.prefix + "." + eventType
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, eventType, key string, event any) error {
	return p.sender.SendMessage(ctx, p.Topic(eventType), key, event)
}
