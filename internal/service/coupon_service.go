package service

import (
	"context"
	"time"

	"wxmall/internal/model"
	"wxmall/internal/repository"
	"wxmall/pkg/errs"

	"gorm.io/gorm"
)

type CouponService struct {
	db         *gorm.DB
	couponRepo *repository.CouponRepository
}

func NewCouponService(db *gorm.DB) *CouponService {
	return &CouponService{
		db:         db,
		couponRepo: repository.NewCouponRepository(db),
	}
}

// Acquire 领券：券在线且未过期才可领，剩余量守护递减保证不超发
func (s *CouponService) Acquire(ctx context.Context, userID, couponID int64) error {
	coupon, err := s.couponRepo.GetByID(ctx, couponID)
	if err != nil {
		if err == repository.ErrCouponNotFound {
			return errs.New(errs.KindNotFound, "优惠券不存在")
		}
		return err
	}
	if coupon.Status != model.CouponStatusOnline {
		return errs.New(errs.KindBadRequest, "优惠券已下线")
	}
	if time.Now().After(coupon.ExpireTime) {
		return errs.New(errs.KindExpired, "优惠券已过期")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		err := s.couponRepo.Acquire(ctx, tx, userID, couponID)
		switch err {
		case repository.ErrCouponExhausted:
			return errs.New(errs.KindConflict, "优惠券已领完")
		case repository.ErrCouponAlreadyHeld:
			return errs.New(errs.KindConflict, "已持有该优惠券")
		}
		return err
	})
}
