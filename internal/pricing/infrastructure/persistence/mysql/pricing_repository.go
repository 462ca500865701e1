// Package mysql 定价结果的 GORM 仓储，支持 MySQL、PostgreSQL 与 SQLite
package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/pkg/db"
	"gorm.io/gorm"
)

// PricingRepository 定价结果仓储
type PricingRepository struct {
	db *gorm.DB
}

// NewPricingRepository 创建并返回一个新的 PricingRepository 实例。
func NewPricingRepository(db *gorm.DB) *PricingRepository {
	return &PricingRepository{db: db}
}

// AutoMigrate 建表
func (r *PricingRepository) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&PricingResultModel{})
}

// WithTx 在事务中执行 fn，txCtx 内的仓储操作共享同一事务
func (r *PricingRepository) WithTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return db.RunInTx(ctx, r.db, fn)
}

// Save 新增记录，ID 非零时整体更新
func (r *PricingRepository) Save(ctx context.Context, res *domain.PricingResult) error {
	model := toPricingResultModel(res)
	if model == nil {
		return nil
	}
	conn := db.Conn(ctx, r.db)
	if model.ID == 0 {
		if err := conn.Create(model).Error; err != nil {
			return err
		}
	} else if err := conn.Save(model).Error; err != nil {
		return err
	}
	res.ID = model.ID
	res.CreatedAt = model.CreatedAt
	res.UpdatedAt = model.UpdatedAt
	return nil
}

// GetLatest 最新一条定价结果，不存在时返回 domain.ErrNotFound
func (r *PricingRepository) GetLatest(ctx context.Context, symbol string) (*domain.PricingResult, error) {
	var m PricingResultModel
	err := db.Conn(ctx, r.db).
		Where("symbol = ?", symbol).
		Order("calculated_at desc").
		Order("id desc").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, symbol)
	}
	if err != nil {
		return nil, err
	}
	return toPricingResult(&m), nil
}

// GetHistory 按时间倒序返回最近 limit 条
func (r *PricingRepository) GetHistory(ctx context.Context, symbol string, limit int) ([]*domain.PricingResult, error) {
	var models []PricingResultModel
	if err := db.Conn(ctx, r.db).
		Where("symbol = ?", symbol).
		Order("calculated_at desc").
		Order("id desc").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]*domain.PricingResult, len(models))
	for i := range models {
		res[i] = toPricingResult(&models[i])
	}
	return res, nil
}
