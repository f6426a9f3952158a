package repository

import (
	"context"
	"errors"
	"time"

	"wxmall/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrWriteOffNotFound = errors.New("核销单不存在")

type WriteOffRepository struct {
	db *gorm.DB
}

func NewWriteOffRepository(db *gorm.DB) *WriteOffRepository {
	return &WriteOffRepository{db: db}
}

func (r *WriteOffRepository) CreateBatch(ctx context.Context, tx *gorm.DB, items []*model.WriteOffItem) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(items).Error
}

func (r *WriteOffRepository) GetByOrderItemID(ctx context.Context, orderItemID string) (*model.WriteOffItem, error) {
	var item model.WriteOffItem
	err := r.db.WithContext(ctx).
		Where("order_item_id = ? AND is_del = 0", orderItemID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWriteOffNotFound
		}
		return nil, err
	}
	return &item, nil
}

// GetByOrderItemIDForUpdate 排他锁读取核销单
func (r *WriteOffRepository) GetByOrderItemIDForUpdate(ctx context.Context, tx *gorm.DB, orderItemID string) (*model.WriteOffItem, error) {
	var item model.WriteOffItem
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_item_id = ? AND is_del = 0", orderItemID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWriteOffNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *WriteOffRepository) ListByOrderSn(ctx context.Context, tx *gorm.DB, orderSn string) ([]*model.WriteOffItem, error) {
	if tx == nil {
		tx = r.db
	}
	var items []*model.WriteOffItem
	err := tx.WithContext(ctx).
		Where("order_sn = ? AND is_del = 0", orderSn).
		Find(&items).Error
	return items, err
}

// MarkSuccess 核销完成，记录操作员与时间
// 仅允许从待核销迁移，防止并发重复核销
func (r *WriteOffRepository) MarkSuccess(ctx context.Context, tx *gorm.DB, orderItemID string, operatorUID int64) error {
	now := time.Now()
	result := tx.WithContext(ctx).
		Model(&model.WriteOffItem{}).
		Where("order_item_id = ? AND status = ?", orderItemID, model.WriteOffStatusPending).
		Updates(map[string]interface{}{
			"status":         model.WriteOffStatusSuccess,
			"write_off_uid":  operatorUID,
			"write_off_time": &now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrWriteOffNotFound
	}
	return nil
}

// UpdateStatusByOrderSn 订单退款时整单核销单迁移（待核销 -> 已取消）
func (r *WriteOffRepository) UpdateStatusByOrderSn(ctx context.Context, tx *gorm.DB, orderSn string, from, to model.WriteOffStatus) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.WriteOffItem{}).
		Where("order_sn = ? AND status = ?", orderSn, from).
		Update("status", to).Error
}
