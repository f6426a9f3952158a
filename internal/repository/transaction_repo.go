package repository

import (
	"context"

	"wxmall/internal/model"

	"gorm.io/gorm"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create 追加一条流水，流水只增不改
func (r *TransactionRepository) Create(ctx context.Context, tx *gorm.DB, record *model.TransactionRecord) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(record).Error
}

func (r *TransactionRepository) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.TransactionRecord, int64, error) {
	var records []*model.TransactionRecord
	var total int64

	query := r.db.WithContext(ctx).Model(&model.TransactionRecord{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error

	return records, total, err
}

// SumByUserID 流水带符号合计，对账用：应等于当前钱包余额
func (r *TransactionRepository) SumByUserID(ctx context.Context, userID int64) (float64, error) {
	var sum float64
	err := r.db.WithContext(ctx).
		Model(&model.TransactionRecord{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	return sum, err
}
