package model

import "testing"

func TestOrderTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderPayStatus
		ok       bool
	}{
		{OrderStatusPendingPayment, OrderStatusPaid, true},
		{OrderStatusPendingPayment, OrderStatusCancelPayment, true},
		{OrderStatusPaid, OrderStatusApply, true},
		{OrderStatusApply, OrderStatusRefunding, true},
		{OrderStatusApply, OrderStatusRefund, true},
		{OrderStatusApply, OrderStatusRefuse, true},
		{OrderStatusApply, OrderStatusPaid, true}, // 网关退款发起失败的恢复路径
		{OrderStatusRefunding, OrderStatusRefund, true},

		{OrderStatusPaid, OrderStatusRefund, false},
		{OrderStatusPaid, OrderStatusPendingPayment, false},
		{OrderStatusRefund, OrderStatusPaid, false},
		{OrderStatusCancelPayment, OrderStatusPaid, false},
		{OrderStatusRefuse, OrderStatusApply, false},
		{OrderStatusPendingPayment, OrderStatusApply, false},
	}
	for _, c := range cases {
		if got := CanTransitionTo(c.from, c.to); got != c.ok {
			t.Errorf("CanTransitionTo(%d, %d) = %v, want %v", c.from, c.to, got, c.ok)
		}
	}
}

func TestRoleBitset(t *testing.T) {
	var u User
	if u.HasRole(RoleSale) {
		t.Error("新用户不应持有任何角色")
	}
	u.AddRole(RoleSale)
	u.AddRole(RoleWriteOff)
	if !u.HasRole(RoleSale) || !u.HasRole(RoleWriteOff) {
		t.Error("追加的角色应可查询到")
	}
	if u.HasRole(RoleMainSale) {
		t.Error("未追加的角色不应存在")
	}
}

func TestNeedsShipping(t *testing.T) {
	cases := []struct {
		d    DeliveryType
		want bool
	}{
		{DeliveryNoDelivery, false},
		{DeliveryDoorPickup, false},
		{DeliveryStoreWriteOff, false},
		{DeliveryDoDelivery, true},
		{DeliveryWxDelivery, true},
		{DeliveryWxInstant, true},
		{DeliveryStoreWriteOff | DeliveryDoDelivery, true},
	}
	for _, c := range cases {
		if got := c.d.NeedsShipping(); got != c.want {
			t.Errorf("NeedsShipping(%b) = %v, want %v", c.d, got, c.want)
		}
	}
}
