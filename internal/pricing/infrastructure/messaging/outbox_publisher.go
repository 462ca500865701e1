package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/pkg/db"
	"github.com/wyfcoding/optionpricing/pkg/logger"
	"gorm.io/gorm"
)

const (
	outboxPending = "pending"
	outboxSent    = "sent"
)

// OutboxMessage 待投递事件
type OutboxMessage struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	EventType string    `gorm:"type:varchar(100);index"`
	EventKey  string    `gorm:"type:varchar(100)"`
	Payload   string    `gorm:"type:text"`
	Status    string    `gorm:"type:varchar(20);index;default:'pending'"`
	Attempts  int       `gorm:"not null;default:0"`
	LastError string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// TableName 指定表名
func (OutboxMessage) TableName() string {
	return "pricing_outbox_messages"
}

// OutboxEventPublisher 实现 domain.EventPublisher，事件先落库再由 relay 投递
type OutboxEventPublisher struct {
	db *gorm.DB
}

var _ domain.TxEventPublisher = (*OutboxEventPublisher)(nil)

// ErrNoTransaction PublishInTx 的 context 中没有事务
var ErrNoTransaction = errors.New("outbox: no transaction in context")

// NewOutboxEventPublisher 创建新的 OutboxEventPublisher 实例
func NewOutboxEventPublisher(db *gorm.DB) *OutboxEventPublisher {
	return &OutboxEventPublisher{db: db}
}

// AutoMigrate 建表
func (p *OutboxEventPublisher) AutoMigrate(ctx context.Context) error {
	return p.db.WithContext(ctx).AutoMigrate(&OutboxMessage{})
}

// Publish 序列化事件并写入 outbox 表，ctx 携带事务时加入该事务
func (p *OutboxEventPublisher) Publish(ctx context.Context, eventType, key string, event any) error {
	return p.insert(db.Conn(ctx, p.db), eventType, key, event)
}

// PublishInTx 在 txCtx 携带的事务中写入事件，随业务数据一起提交或回滚
func (p *OutboxEventPublisher) PublishInTx(txCtx context.Context, eventType, key string, event any) error {
	tx, ok := db.TxFromContext(txCtx)
	if !ok {
		return ErrNoTransaction
	}
	return p.insert(tx, eventType, key, event)
}

func (p *OutboxEventPublisher) insert(conn *gorm.DB, eventType, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := OutboxMessage{
		ID:        uuid.New().String(),
		EventType: eventType,
		EventKey:  key,
		Payload:   string(data),
		Status:    outboxPending,
	}
	return conn.Create(&msg).Error
}

// ProcessOutboxMessages 按写入顺序投递一批待处理消息，返回成功条数
// 投递失败的消息保留为 pending 并累计 Attempts
func (p *OutboxEventPublisher) ProcessOutboxMessages(ctx context.Context, target domain.EventPublisher, batchSize int) (int, error) {
	var messages []OutboxMessage
	if err := p.db.WithContext(ctx).
		Where("status = ?", outboxPending).
		Order("created_at asc").
		Limit(batchSize).
		Find(&messages).Error; err != nil {
		return 0, err
	}

	sent := 0
	for _, m := range messages {
		err := target.Publish(ctx, m.EventType, m.EventKey, json.RawMessage(m.Payload))
		updates := map[string]any{"attempts": m.Attempts + 1}
		if err != nil {
			updates["last_error"] = err.Error()
			logger.Warn(ctx, "Outbox delivery failed", "id", m.ID, "event_type", m.EventType, "error", err)
		} else {
			updates["status"] = outboxSent
			updates["last_error"] = ""
			sent++
		}
		if err := p.db.WithContext(ctx).Model(&OutboxMessage{}).Where("id = ?", m.ID).Updates(updates).Error; err != nil {
			return sent, err
		}
	}
	return sent, nil
}

// CleanupProcessedMessages 清理 before 之前已投递的消息
func (p *OutboxEventPublisher) CleanupProcessedMessages(ctx context.Context, before time.Time) error {
	return p.db.WithContext(ctx).Where("status = ? AND updated_at < ?", outboxSent, before).Delete(&OutboxMessage{}).Error
}

// RelayConfig relay 的投递与清理参数
type RelayConfig struct {
	Interval  time.Duration
	BatchSize int
	// 已投递消息的保留时长，<=0 时不清理
	Retention time.Duration
}

// RunRelay 定时投递 outbox，并按保留时长清理已投递消息，直到 ctx 取消
func (p *OutboxEventPublisher) RunRelay(ctx context.Context, target domain.EventPublisher, cfg RelayConfig) {
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	var cleanup <-chan time.Time
	if cfg.Retention > 0 {
		ct := time.NewTicker(cfg.Retention)
		defer ct.Stop()
		cleanup = ct.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.ProcessOutboxMessages(ctx, target, cfg.BatchSize); err != nil && ctx.Err() == nil {
				logger.Error(ctx, "Outbox relay failed", "error", err)
			}
		case now := <-cleanup:
			if err := p.CleanupProcessedMessages(ctx, now.Add(-cfg.Retention)); err != nil && ctx.Err() == nil {
				logger.Error(ctx, "Outbox cleanup failed", "error", err)
			}
		}
	}
}
