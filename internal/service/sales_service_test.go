package service

import (
	"testing"

	"wxmall/internal/model"
	"wxmall/pkg/errs"
)

// 晋升总销售前必须保证该用户不存在指向他人的有效上级边，
// 否则分成链上溯会在两条上级边之间随机取一条
func TestMainSalePromoteConflict(t *testing.T) {
	tests := []struct {
		name     string
		existing *model.MainSaleBind
		userID   int64
		wantErr  bool
	}{
		{name: "无上级边可晋升", existing: nil, userID: 100, wantErr: false},
		{name: "已有自环视为重复晋升放行", existing: &model.MainSaleBind{MainSaleUID: 100, SaleUID: 100}, userID: 100, wantErr: false},
		{name: "已绑他人名下拒绝", existing: &model.MainSaleBind{MainSaleUID: 200, SaleUID: 100}, userID: 100, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mainSalePromoteConflict(tt.existing, tt.userID)
			if tt.wantErr {
				if errs.KindOf(err) != errs.KindConflict {
					t.Fatalf("err = %v, want KindConflict", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("err = %v, want nil", err)
			}
		})
	}
}
