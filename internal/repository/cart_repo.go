package repository

import (
	"context"
	"errors"

	"wxmall/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrCartLineNotFound = errors.New("购物车记录不存在")

type CartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

// Add 加入购物车；同规格 Pending 行存在时累加数量
func (r *CartRepository) Add(ctx context.Context, userID int64, unitSn string, quantity int, status model.ShopCartStatus) error {
	if status == model.CartStatusPending {
		var line model.ShopCart
		err := r.db.WithContext(ctx).
			Where("user_id = ? AND unit_sn = ? AND status = ? AND is_del = 0",
				userID, unitSn, model.CartStatusPending).
			First(&line).Error
		if err == nil {
			return r.db.WithContext(ctx).
				Model(&model.ShopCart{}).
				Where("id = ?", line.ID).
				UpdateColumn("buy_quantity", gorm.Expr("buy_quantity + ?", quantity)).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	return r.db.WithContext(ctx).Create(&model.ShopCart{
		UserID:      userID,
		UnitSn:      unitSn,
		BuyQuantity: quantity,
		Status:      status,
	}).Error
}

// GetLines 预结算取行
// Pending：取指定规格集合的全部待结算行；BuyNow：只取该规格最新一条
func (r *CartRepository) GetLines(ctx context.Context, tx *gorm.DB, userID int64, unitSns []string, buyType model.ShopCartStatus, forUpdate bool) ([]*model.ShopCart, error) {
	if tx == nil {
		tx = r.db
	}
	query := tx.WithContext(ctx).Where("user_id = ? AND status = ? AND is_del = 0", userID, buyType)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var lines []*model.ShopCart
	if buyType == model.CartStatusBuyNow {
		if len(unitSns) == 0 {
			return nil, ErrCartLineNotFound
		}
		var line model.ShopCart
		err := query.
			Where("unit_sn = ?", unitSns[0]).
			Order("created_at DESC").
			First(&line).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrCartLineNotFound
			}
			return nil, err
		}
		return []*model.ShopCart{&line}, nil
	}

	err := query.Where("unit_sn IN ?", unitSns).Find(&lines).Error
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrCartLineNotFound
	}
	return lines, nil
}

// UpdateStatus 成单后把消费掉的行迁到已成单状态
func (r *CartRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, ids []int64, to model.ShopCartStatus) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.ShopCart{}).
		Where("id IN ?", ids).
		Update("status", to).Error
}

func (r *CartRepository) ListPending(ctx context.Context, userID int64) ([]*model.ShopCart, error) {
	var lines []*model.ShopCart
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND is_del = 0", userID, model.CartStatusPending).
		Order("created_at DESC").
		Find(&lines).Error
	return lines, err
}

// Remove 软删除购物车行
func (r *CartRepository) Remove(ctx context.Context, userID, lineID int64) error {
	result := r.db.WithContext(ctx).
		Model(&model.ShopCart{}).
		Where("id = ? AND user_id = ?", lineID, userID).
		Update("is_del", 1)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCartLineNotFound
	}
	return nil
}
