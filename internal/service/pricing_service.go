package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wxmall/internal/model"
	"wxmall/internal/repository"
	"wxmall/pkg/errs"
	"wxmall/pkg/money"

	"gorm.io/gorm"
)

// ============================================================================
// 预结算引擎
// ============================================================================
//
// 把购物车行物化成可下单的行集：联商品/规格做快照，算总额，
// 评估（至多一张）优惠券。预览和下单共用同一套计算，
// 下单时传 lock=true 把购物车行锁住，保证所见即所付。
// ============================================================================

type PricingService struct {
	db          *gorm.DB
	cartRepo    *repository.CartRepository
	productRepo *repository.ProductRepository
	couponRepo  *repository.CouponRepository
}

func NewPricingService(db *gorm.DB) *PricingService {
	return &PricingService{
		db:          db,
		cartRepo:    repository.NewCartRepository(db),
		productRepo: repository.NewProductRepository(db),
		couponRepo:  repository.NewCouponRepository(db),
	}
}

// BuyLine 一条可下单行（购物车行 + 商品/规格快照）
type BuyLine struct {
	CartID        int64              `json:"cart_id"`
	UnitSn        string             `json:"unit_sn"`
	ProductSn     string             `json:"product_sn"`
	UnitName      string             `json:"unit_name"`
	Cover         string             `json:"cover"`
	Attr          string             `json:"attr"`
	StoreCode     string             `json:"store_code"`
	BrandCode     string             `json:"brand_code"`
	CatOne        int64              `json:"cat_one"`
	CatTwo        int64              `json:"cat_two"`
	CatThree      int64              `json:"cat_three"`
	Price         float64            `json:"price"`
	BuyQuantity   int                `json:"buy_quantity"`
	Amount        float64            `json:"amount"`
	DeliveryTypes model.DeliveryType `json:"delivery_types"`
}

// PrepareResult 预结算结果，预览和下单共用
type PrepareResult struct {
	TotalQuantity int        `json:"total_quantity"`
	TotalAmount   float64    `json:"total_amount"`
	ReduceAmount  float64    `json:"reduce_amount"`
	PayAmount     float64    `json:"pay_amount"`
	ReduceDes     []string   `json:"reduce_des"`
	UserBuy       []*BuyLine `json:"user_buy"`
	CouponUsed    bool       `json:"coupon_used"`
	UserCouponID  int64      `json:"user_coupon_id"`
}

// Prepare 预结算
// buyType ∈ {Pending, BuyNow}；userCouponID 为 0 表示不用券；
// lock=true 时购物车行加排他锁（下单路径），此时 tx 必须非 nil
func (s *PricingService) Prepare(ctx context.Context, tx *gorm.DB, userID int64, unitSns []string, buyType model.ShopCartStatus, userCouponID int64, lock bool) (*PrepareResult, error) {
	if buyType != model.CartStatusPending && buyType != model.CartStatusBuyNow {
		return nil, errs.New(errs.KindBadRequest, "不支持的购买类型")
	}
	if len(unitSns) == 0 {
		return nil, errs.New(errs.KindBadRequest, "未选择商品")
	}

	cartLines, err := s.cartRepo.GetLines(ctx, tx, userID, unitSns, buyType, lock)
	if err != nil {
		return nil, err
	}
	if len(cartLines) == 0 {
		return nil, errs.New(errs.KindBadRequest, "没有可结算的商品")
	}

	result := &PrepareResult{ReduceDes: []string{}}
	for _, cl := range cartLines {
		line, err := s.buildLine(ctx, tx, cl)
		if err != nil {
			return nil, err
		}
		result.UserBuy = append(result.UserBuy, line)
		result.TotalQuantity += line.BuyQuantity
		result.TotalAmount += line.Amount
	}
	result.TotalAmount = money.Round2(result.TotalAmount)
	result.PayAmount = result.TotalAmount

	if userCouponID > 0 {
		reduce, des, err := s.applyCoupon(ctx, tx, userID, userCouponID, result.UserBuy, lock)
		if err != nil {
			return nil, err
		}
		result.ReduceAmount = reduce
		result.ReduceDes = append(result.ReduceDes, des)
		result.PayAmount = money.Round2(result.TotalAmount - reduce)
		result.CouponUsed = true
		result.UserCouponID = userCouponID
	}
	return result, nil
}

// buildLine 联规格/商品/属性做一条行快照
func (s *PricingService) buildLine(ctx context.Context, tx *gorm.DB, cl *model.ShopCart) (*BuyLine, error) {
	unit, err := s.productRepo.GetUnitBySn(ctx, tx, cl.UnitSn)
	if err != nil {
		if err == repository.ErrUnitNotFound {
			return nil, errs.Newf(errs.KindBadRequest, "商品规格已下架: %s", cl.UnitSn)
		}
		return nil, err
	}
	product, err := s.productRepo.GetProductBySn(ctx, tx, unit.ProductSn)
	if err != nil {
		if err == repository.ErrProductNotFound {
			return nil, errs.Newf(errs.KindBadRequest, "商品已下架: %s", unit.ProductSn)
		}
		return nil, err
	}
	if product.Status != model.ProductStatusOnline {
		return nil, errs.Newf(errs.KindBadRequest, "商品已下架: %s", product.Name)
	}

	attrs, err := s.productRepo.GetUnitAttrs(ctx, cl.UnitSn)
	if err != nil {
		return nil, err
	}
	var attrParts []string
	for _, a := range attrs {
		attrParts = append(attrParts, fmt.Sprintf("%s:%s", a.Name, a.Value))
	}

	return &BuyLine{
		CartID:        cl.ID,
		UnitSn:        unit.Sn,
		ProductSn:     product.Sn,
		UnitName:      product.Name + " " + unit.Name,
		Cover:         unit.Cover,
		Attr:          strings.Join(attrParts, ";"),
		StoreCode:     product.StoreCode,
		BrandCode:     product.BrandCode,
		CatOne:        product.CatOne,
		CatTwo:        product.CatTwo,
		CatThree:      product.CatThree,
		Price:         unit.Price,
		BuyQuantity:   cl.BuyQuantity,
		Amount:        money.Round2(unit.Price * float64(cl.BuyQuantity)),
		DeliveryTypes: product.DeliveryTypes,
	}, nil
}

// applyCoupon 校验持券并计算减免
// 下单路径（lock=true）对持券行加排他锁，锁持续到事务结束，
// 避免同一张券被并发订单同时核销
func (s *PricingService) applyCoupon(ctx context.Context, tx *gorm.DB, userID, userCouponID int64, lines []*BuyLine, lock bool) (float64, string, error) {
	var uc *model.UserCoupon
	var err error
	if lock {
		uc, err = s.couponRepo.GetUserCouponForUpdate(ctx, tx, userCouponID, userID)
	} else {
		uc, err = s.couponRepo.GetUserCoupon(ctx, userCouponID, userID)
	}
	if err != nil {
		if err == repository.ErrUserCouponNotFound {
			return 0, "", errs.New(errs.KindBadRequest, "优惠券不存在")
		}
		return 0, "", err
	}
	if uc.Status != model.UserCouponUnused {
		return 0, "", errs.New(errs.KindBadRequest, "优惠券已使用或已过期")
	}

	coupon, err := s.couponRepo.GetByID(ctx, uc.CouponID)
	if err != nil {
		if err == repository.ErrCouponNotFound {
			return 0, "", errs.New(errs.KindBadRequest, "优惠券不存在")
		}
		return 0, "", err
	}
	if coupon.Status != model.CouponStatusOnline {
		return 0, "", errs.New(errs.KindBadRequest, "优惠券已下线")
	}
	if time.Now().After(coupon.ExpireTime) {
		return 0, "", errs.New(errs.KindExpired, "优惠券已过期")
	}

	cond, err := s.couponRepo.GetCondition(ctx, coupon.ConditionID)
	if err != nil {
		return 0, "", err
	}

	reduce, err := evalCoupon(coupon, cond, lines)
	if err != nil {
		return 0, "", err
	}
	return reduce, fmt.Sprintf("%s 减免 %s 元", coupon.Name, money.Format(reduce)), nil
}

// couponLineMatches 判断一条行是否对券的门槛有贡献
// 优先级：unit_sn > product_sn > 分类路径 > (门店 且 品牌)
func couponLineMatches(cond *model.CouponCondition, line *BuyLine) bool {
	if cond.UnitSn != "" {
		return line.UnitSn == cond.UnitSn
	}
	if cond.ProductSn != "" {
		return line.ProductSn == cond.ProductSn
	}
	if cond.CatOne > 0 || cond.CatTwo > 0 || cond.CatThree > 0 {
		// 分类路径设到第几级就匹配到第几级
		if cond.CatOne > 0 && line.CatOne != cond.CatOne {
			return false
		}
		if cond.CatTwo > 0 && line.CatTwo != cond.CatTwo {
			return false
		}
		if cond.CatThree > 0 && line.CatThree != cond.CatThree {
			return false
		}
		return true
	}
	if cond.StoreCode != "" && line.StoreCode != cond.StoreCode {
		return false
	}
	if cond.BrandCode != "" && line.BrandCode != cond.BrandCode {
		return false
	}
	return true
}

// evalCoupon 计算券减免额
// 贡献行合计须达到 full_amount 门槛；满减券要求合计大于减免额
func evalCoupon(coupon *model.Coupon, cond *model.CouponCondition, lines []*BuyLine) (float64, error) {
	var totalForReduce float64
	for _, line := range lines {
		if couponLineMatches(cond, line) {
			totalForReduce += line.Price * float64(line.BuyQuantity)
		}
	}
	totalForReduce = money.Round2(totalForReduce)

	if totalForReduce < cond.FullAmount {
		return 0, errs.Newf(errs.KindBadRequest, "未达到优惠券使用门槛 %s 元", money.Format(cond.FullAmount))
	}

	if coupon.ReduceAmount > 0 {
		if totalForReduce <= coupon.ReduceAmount {
			return 0, errs.New(errs.KindBadRequest, "订单金额不足以使用该优惠券")
		}
		return money.Round2(coupon.ReduceAmount), nil
	}
	if coupon.Discount > 0 && coupon.Discount < 1 {
		return money.Round2(totalForReduce * (1 - coupon.Discount)), nil
	}
	return 0, errs.New(errs.KindBadRequest, "优惠券配置异常")
}
