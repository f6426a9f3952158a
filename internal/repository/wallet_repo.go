package repository

import (
	"context"
	"errors"

	"wxmall/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrWalletNotFound = errors.New("钱包不存在")
)

type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) Create(ctx context.Context, wallet *model.Wallet) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(wallet).Error
}

func (r *WalletRepository) GetByUserID(ctx context.Context, userID int64) (*model.Wallet, error) {
	var wallet model.Wallet
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

// GetByUserIDForUpdate 排他锁读取钱包行，锁持续到事务结束
func (r *WalletRepository) GetByUserIDForUpdate(ctx context.Context, tx *gorm.DB, userID int64) (*model.Wallet, error) {
	var wallet model.Wallet
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

// UpdateAmount 原子更新余额与防篡改标签
// 调用方必须已在同一事务内持有该行的排他锁
func (r *WalletRepository) UpdateAmount(ctx context.Context, tx *gorm.DB, userID int64, amount float64, amountHash string) error {
	result := tx.WithContext(ctx).
		Model(&model.Wallet{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"amount":      amount,
			"amount_hash": amountHash,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrWalletNotFound
	}
	return nil
}
