package service

import (
	"testing"

	"wxmall/internal/model"
	"wxmall/pkg/errs"
)

// 网关回调可能重发：同一商户单号的第二次支付回调必须直接应答成功、
// 不再入账；非待支付状态一律冲突
func TestPayNotifyDisposition(t *testing.T) {
	tests := []struct {
		name     string
		status   model.OrderPayStatus
		wantDone bool
		wantErr  bool
	}{
		{name: "待支付可入账", status: model.OrderStatusPendingPayment},
		{name: "已支付视为重复回调", status: model.OrderStatusPaid, wantDone: true},
		{name: "已取消拒绝", status: model.OrderStatusCancelPayment, wantErr: true},
		{name: "退款中拒绝", status: model.OrderStatusRefunding, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			done, err := payNotifyDisposition(tt.status)
			if tt.wantErr {
				if errs.KindOf(err) != errs.KindConflict {
					t.Fatalf("err = %v, want KindConflict", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("err = %v", err)
			}
			if done != tt.wantDone {
				t.Errorf("done = %v, want %v", done, tt.wantDone)
			}
		})
	}
}

func TestRefundNotifyDisposition(t *testing.T) {
	tests := []struct {
		name     string
		status   model.OrderPayStatus
		wantDone bool
		wantErr  bool
	}{
		{name: "退款中可完结", status: model.OrderStatusRefunding},
		{name: "已退款视为重复回调", status: model.OrderStatusRefund, wantDone: true},
		{name: "已支付拒绝", status: model.OrderStatusPaid, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			done, err := refundNotifyDisposition(tt.status)
			if tt.wantErr {
				if errs.KindOf(err) != errs.KindConflict {
					t.Fatalf("err = %v, want KindConflict", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("err = %v", err)
			}
			if done != tt.wantDone {
				t.Errorf("done = %v, want %v", done, tt.wantDone)
			}
		})
	}
}
