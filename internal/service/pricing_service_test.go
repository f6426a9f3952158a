package service

import (
	"testing"

	"wxmall/internal/model"
	"wxmall/pkg/errs"
)

func twoLines() []*BuyLine {
	return []*BuyLine{
		{
			UnitSn: "U1", ProductSn: "P1", StoreCode: "S001", BrandCode: "B001",
			CatOne: 1, CatTwo: 11, CatThree: 111,
			Price: 10.00, BuyQuantity: 3, Amount: 30.00,
		},
		{
			UnitSn: "U2", ProductSn: "P2", StoreCode: "S002", BrandCode: "B002",
			CatOne: 2, CatTwo: 22, CatThree: 222,
			Price: 20.00, BuyQuantity: 2, Amount: 40.00,
		},
	}
}

func TestCouponLineMatches(t *testing.T) {
	lines := twoLines()

	tests := []struct {
		name string
		cond model.CouponCondition
		want []bool
	}{
		{"unit_sn 精确匹配", model.CouponCondition{UnitSn: "U1"}, []bool{true, false}},
		{"unit_sn 优先于其它条件", model.CouponCondition{UnitSn: "U1", ProductSn: "P2"}, []bool{true, false}},
		{"product_sn 匹配", model.CouponCondition{ProductSn: "P2"}, []bool{false, true}},
		{"分类一级匹配", model.CouponCondition{CatOne: 1}, []bool{true, false}},
		{"分类全路径匹配", model.CouponCondition{CatOne: 2, CatTwo: 22, CatThree: 222}, []bool{false, true}},
		{"分类路径部分不符", model.CouponCondition{CatOne: 1, CatTwo: 22}, []bool{false, false}},
		{"门店+品牌均须匹配", model.CouponCondition{StoreCode: "S001", BrandCode: "B001"}, []bool{true, false}},
		{"门店对品牌不对", model.CouponCondition{StoreCode: "S001", BrandCode: "B002"}, []bool{false, false}},
		{"无条件全部贡献", model.CouponCondition{}, []bool{true, true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i, line := range lines {
				got := couponLineMatches(&tt.cond, line)
				if got != tt.want[i] {
					t.Errorf("行%d: got %v, want %v", i, got, tt.want[i])
				}
			}
		})
	}
}

func TestEvalCouponReduce(t *testing.T) {
	// 两行合计 70.00，满 50 减 5
	lines := twoLines()
	coupon := &model.Coupon{ReduceAmount: 5.00}
	cond := &model.CouponCondition{FullAmount: 50.00}

	reduce, err := evalCoupon(coupon, cond, lines)
	if err != nil {
		t.Fatalf("evalCoupon: %v", err)
	}
	if reduce != 5.00 {
		t.Errorf("reduce = %v, want 5.00", reduce)
	}
}

func TestEvalCouponDiscountScoped(t *testing.T) {
	// 九折券只对 P1 生效：贡献 30.00，减 3.00
	lines := twoLines()
	coupon := &model.Coupon{Discount: 0.9}
	cond := &model.CouponCondition{ProductSn: "P1"}

	reduce, err := evalCoupon(coupon, cond, lines)
	if err != nil {
		t.Fatalf("evalCoupon: %v", err)
	}
	if reduce != 3.00 {
		t.Errorf("reduce = %v, want 3.00", reduce)
	}
}

func TestEvalCouponBelowThreshold(t *testing.T) {
	lines := twoLines()
	coupon := &model.Coupon{ReduceAmount: 5.00}
	cond := &model.CouponCondition{FullAmount: 100.00}

	_, err := evalCoupon(coupon, cond, lines)
	if err == nil {
		t.Fatal("未达门槛应当报错")
	}
	if errs.KindOf(err) != errs.KindBadRequest {
		t.Errorf("kind = %v, want BadRequest", errs.KindOf(err))
	}
}

func TestEvalCouponReduceExceedsTotal(t *testing.T) {
	// 贡献行合计 30.00，减免 30.00 不允许（必须严格大于）
	lines := twoLines()
	coupon := &model.Coupon{ReduceAmount: 30.00}
	cond := &model.CouponCondition{ProductSn: "P1"}

	_, err := evalCoupon(coupon, cond, lines)
	if err == nil {
		t.Fatal("减免额不小于合计应当报错")
	}
}

func TestEvalCouponMisconfigured(t *testing.T) {
	lines := twoLines()
	coupon := &model.Coupon{}
	cond := &model.CouponCondition{}

	_, err := evalCoupon(coupon, cond, lines)
	if err == nil {
		t.Fatal("满减与折扣都未设置应当报错")
	}
}
