package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPendingOrder() *Order {
	return NewOrder("20260828-abcd1234", 10001, "王女士", "幸福路12号", []OrderItem{
		{ProductID: 1, Quantity: 2, Price: 200},
	}, 400)
}

// TestOrder_StatusMachine 合法与非法的状态流转
func TestOrder_StatusMachine(t *testing.T) {
	t.Run("正常配送链路", func(t *testing.T) {
		o := newPendingOrder()
		require.NoError(t, o.AssignCourier(7, "2026-08-28", "14:00-16:00"))
		assert.Equal(t, OrderStatusCourierAssigned, o.Status)
		assert.Equal(t, uint(7), o.CourierID)

		require.NoError(t, o.Deliver())
		assert.Equal(t, OrderStatusDelivered, o.Status)
	})

	t.Run("待处理可直接标记未发出", func(t *testing.T) {
		o := newPendingOrder()
		require.NoError(t, o.MarkNotIssued())
	})

	t.Run("已派单可标记未发出", func(t *testing.T) {
		o := newPendingOrder()
		require.NoError(t, o.AssignCourier(7, "2026-08-28", ""))
		require.NoError(t, o.MarkNotIssued())
	})

	t.Run("只有待处理可取消", func(t *testing.T) {
		o := newPendingOrder()
		require.NoError(t, o.Cancel())

		o2 := newPendingOrder()
		require.NoError(t, o2.AssignCourier(7, "2026-08-28", ""))
		assert.ErrorIs(t, o2.Cancel(), ErrInvalidStatusTransition)
	})

	t.Run("终态不可再转换", func(t *testing.T) {
		o := newPendingOrder()
		require.NoError(t, o.AssignCourier(7, "2026-08-28", ""))
		require.NoError(t, o.Deliver())

		assert.ErrorIs(t, o.Cancel(), ErrInvalidStatusTransition)
		assert.ErrorIs(t, o.MarkNotIssued(), ErrInvalidStatusTransition)
	})

	t.Run("未派单不能直接送达", func(t *testing.T) {
		o := newPendingOrder()
		assert.ErrorIs(t, o.Deliver(), ErrInvalidStatusTransition)
	})
}

// TestOrder_ReservationItems 明细转预留项
func TestOrder_ReservationItems(t *testing.T) {
	o := NewOrder("n", 1, "", "", []OrderItem{
		{ProductID: 1, Quantity: 2},
		{ProductID: 5, Quantity: 1},
	}, 0)

	items := o.ReservationItems()
	require.Len(t, items, 2)
	assert.Equal(t, ItemQty{ProductID: 1, Qty: 2}, items[0])
	assert.Equal(t, ItemQty{ProductID: 5, Qty: 1}, items[1])
}

// TestGenerateOrderNo 订单号带日期前缀且彼此不同
func TestGenerateOrderNo(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	a := GenerateOrderNo(now)
	b := GenerateOrderNo(now)

	assert.True(t, len(a) == len("20260828-")+8)
	assert.Contains(t, a, "20260828-")
	assert.NotEqual(t, a, b)
}
