package repository

import (
	"context"
	"errors"

	"wxmall/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrCouponNotFound     = errors.New("优惠券不存在")
	ErrUserCouponNotFound = errors.New("用户优惠券不存在")
	ErrCouponExhausted    = errors.New("优惠券已领完")
	ErrCouponAlreadyHeld  = errors.New("已持有该优惠券")
)

type CouponRepository struct {
	db *gorm.DB
}

func NewCouponRepository(db *gorm.DB) *CouponRepository {
	return &CouponRepository{db: db}
}

func (r *CouponRepository) GetByID(ctx context.Context, couponID int64) (*model.Coupon, error) {
	var coupon model.Coupon
	err := r.db.WithContext(ctx).Where("id = ? AND is_del = 0", couponID).First(&coupon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, err
	}
	return &coupon, nil
}

func (r *CouponRepository) GetCondition(ctx context.Context, conditionID int64) (*model.CouponCondition, error) {
	var cond model.CouponCondition
	err := r.db.WithContext(ctx).Where("id = ?", conditionID).First(&cond).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, err
	}
	return &cond, nil
}

// GetUserCoupon 取用户持券（含内部券信息由调用方另查）
func (r *CouponRepository) GetUserCoupon(ctx context.Context, userCouponID, userID int64) (*model.UserCoupon, error) {
	var uc model.UserCoupon
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", userCouponID, userID).
		First(&uc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserCouponNotFound
		}
		return nil, err
	}
	return &uc, nil
}

// GetUserCouponForUpdate 排他锁读取持券行，核销/回退前必须先锁
func (r *CouponRepository) GetUserCouponForUpdate(ctx context.Context, tx *gorm.DB, userCouponID, userID int64) (*model.UserCoupon, error) {
	var uc model.UserCoupon
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", userCouponID, userID).
		First(&uc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserCouponNotFound
		}
		return nil, err
	}
	return &uc, nil
}

// UpdateUserCouponStatus 持券状态迁移，from 不匹配时视为状态冲突
func (r *CouponRepository) UpdateUserCouponStatus(ctx context.Context, tx *gorm.DB, userCouponID int64, from, to model.UserCouponStatus) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.UserCoupon{}).
		Where("id = ? AND status = ?", userCouponID, from).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserCouponNotFound
	}
	return nil
}

// Acquire 领券：剩余量守护递减 + 发一张 Unused
// 同一 (用户, 券) 已有 Unused 时拒绝
func (r *CouponRepository) Acquire(ctx context.Context, tx *gorm.DB, userID, couponID int64) error {
	if tx == nil {
		tx = r.db
	}

	var count int64
	err := tx.WithContext(ctx).
		Model(&model.UserCoupon{}).
		Where("user_id = ? AND coupon_id = ? AND status = ?", userID, couponID, model.UserCouponUnused).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrCouponAlreadyHeld
	}

	result := tx.WithContext(ctx).
		Model(&model.Coupon{}).
		Where("id = ? AND remaining > 0", couponID).
		UpdateColumn("remaining", gorm.Expr("remaining - 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCouponExhausted
	}

	return tx.WithContext(ctx).Create(&model.UserCoupon{
		UserID:   userID,
		CouponID: couponID,
		Status:   model.UserCouponUnused,
	}).Error
}
