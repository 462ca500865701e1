// Package mq Kafka producer/consumer 封装，支持重试与死信队列
package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/wyfcoding/optionpricing/pkg/logger"
)

// Config Kafka 配置
type Config struct {
	Brokers        []string
	GroupID        string
	SessionTimeout int
	MaxRetries     int
	RetryBackoff   int // 毫秒
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer Kafka 生产者
type Producer struct {
	writer messageWriter
}

// NewProducer 创建 Kafka 生产者
func NewProducer(cfg Config) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		Compression:            kafka.Gzip,
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            max(cfg.MaxRetries, 1),
		WriteBackoffMin:        time.Duration(cfg.RetryBackoff) * time.Millisecond,
		WriteBackoffMax:        time.Duration(cfg.RetryBackoff*10) * time.Millisecond,
	}

	logger.Info(context.Background(), "Kafka producer created successfully", "brokers", cfg.Brokers)
	return &Producer{writer: writer}
}

// SendMessage 发送单条 JSON 消息
func (p *Producer) SendMessage(ctx context.Context, topic, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	msg := kafka.Message{Topic: topic, Key: []byte(key), Value: data}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logger.Error(ctx, "Failed to send Kafka message", "topic", topic, "key", key, "error", err)
		return err
	}

	logger.Debug(ctx, "Kafka message sent", "topic", topic, "key", key)
	return nil
}

// Close 关闭生产者
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Message Kafka 消息
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       string
	Value     []byte
	Time      time.Time
}

// UnmarshalPayload 将消息值解析为 JSON
func (m *Message) UnmarshalPayload(dest any) error {
	return json.Unmarshal(m.Value, dest)
}

func fromKafka(msg kafka.Message) *Message {
	return &Message{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Key:       string(msg.Key),
		Value:     msg.Value,
		Time:      msg.Time,
	}
}

// Handler 消息处理函数
type Handler func(ctx context.Context, msg *Message) error

// Consumer Kafka 消费者，处理成功后显式提交偏移量
type Consumer struct {
	reader     messageReader
	topic      string
	maxRetries int
	backoff    time.Duration
	dlq        *DeadLetterQueue
}

// NewConsumer 创建 Kafka 消费者
func NewConsumer(cfg Config, topic string, dlq *DeadLetterQueue) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          topic,
		GroupID:        cfg.GroupID,
		SessionTimeout: time.Duration(cfg.SessionTimeout) * time.Second,
		StartOffset:    kafka.LastOffset,
		MaxBytes:       10e6,
	})

	logger.Info(context.Background(), "Kafka consumer created successfully",
		"brokers", cfg.Brokers,
		"topic", topic,
		"group_id", cfg.GroupID,
	)
	return &Consumer{
		reader:     reader,
		topic:      topic,
		maxRetries: max(cfg.MaxRetries, 1),
		backoff:    time.Duration(cfg.RetryBackoff) * time.Millisecond,
		dlq:        dlq,
	}
}

// Run 循环消费直到 ctx 取消。处理失败重试 maxRetries 次后转入死信队列
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	for {
		raw, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error(ctx, "Failed to read Kafka message", "topic", c.topic, "error", err)
			return err
		}

		msg := fromKafka(raw)
		if err := c.process(ctx, msg, handle); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error(ctx, "Kafka message dead-lettered", "topic", msg.Topic, "offset", msg.Offset, "error", err)
			if c.dlq != nil {
				if dErr := c.dlq.Send(ctx, msg, "handler failed", err); dErr != nil {
					return dErr
				}
			}
		}

		if err := c.reader.CommitMessages(ctx, raw); err != nil {
			logger.Error(ctx, "Failed to commit Kafka message", "topic", msg.Topic, "offset", msg.Offset, "error", err)
			return err
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg *Message, handle Handler) error {
	var err error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err = handle(ctx, msg); err == nil {
			return nil
		}
		if errors.Is(err, ErrPermanent) {
			return err
		}
		logger.Warn(ctx, "Kafka message handling failed", "attempt", attempt, "offset", msg.Offset, "error", err)
		if attempt < c.maxRetries && c.backoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff * time.Duration(attempt)):
			}
		}
	}
	return err
}

// Close 关闭消费者
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// ErrPermanent 包装后不再重试，直接进入死信队列
var ErrPermanent = errors.New("permanent failure")

// DeadLetterQueue 死信队列
type DeadLetterQueue struct {
	producer *Producer
	topic    string
}

// NewDeadLetterQueue 创建死信队列
func NewDeadLetterQueue(producer *Producer, topic string) *DeadLetterQueue {
	return &DeadLetterQueue{producer: producer, topic: topic}
}

// DeadLetter 死信消息体
type DeadLetter struct {
	OriginalTopic  string    `json:"original_topic"`
	OriginalKey    string    `json:"original_key"`
	OriginalValue  string    `json:"original_value"`
	OriginalOffset int64     `json:"original_offset"`
	FailureReason  string    `json:"failure_reason"`
	FailureError   string    `json:"failure_error"`
	FailedAt       time.Time `json:"failed_at"`
}

// Send 发送消息到死信队列
func (d *DeadLetterQueue) Send(ctx context.Context, original *Message, reason string, err error) error {
	letter := DeadLetter{
		OriginalTopic:  original.Topic,
		OriginalKey:    original.Key,
		OriginalValue:  string(original.Value),
		OriginalOffset: original.Offset,
		FailureReason:  reason,
		FailedAt:       time.Now(),
	}
	if err != nil {
		letter.FailureError = err.Error()
	}
	return d.producer.SendMessage(ctx, d.topic, original.Key, letter)
}
