package order

import (
	"context"

	"github.com/tilmanziegler21-create/boyboy/internal/domain/order"
	"github.com/tilmanziegler21-create/boyboy/internal/domain/reservation"
	"github.com/tilmanziegler21-create/boyboy/pkg/logger"
)

// CancelOrderUseCase 取消订单用例(顾客发起,只允许待处理状态)
type CancelOrderUseCase struct {
	orderRepo order.Repository
	engine    *reservation.Engine
}

// NewCancelOrderUseCase 创建取消用例
func NewCancelOrderUseCase(orderRepo order.Repository, engine *reservation.Engine) *CancelOrderUseCase {
	return &CancelOrderUseCase{orderRepo: orderRepo, engine: engine}
}

// Execute 取消订单并释放预留
func (uc *CancelOrderUseCase) Execute(ctx context.Context, orderID uint, customerTgID int64) error {
	o, err := uc.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if o.CustomerTgID != customerTgID {
		return order.ErrOrderNotFound // 不暴露他人订单的存在
	}

	if err := o.Cancel(); err != nil {
		return err
	}
	if err := uc.orderRepo.Update(ctx, o); err != nil {
		return err
	}

	items := make([]reservation.Item, 0, len(o.Items))
	for _, it := range o.ReservationItems() {
		items = append(items, reservation.Item{ProductID: it.ProductID, Qty: it.Qty})
	}
	if err := uc.engine.ReleaseReservation(ctx, items, o.ID); err != nil {
		// 订单已取消,释放失败留给预留TTL兜底
		logger.Error().Err(err).Uint("order_id", o.ID).Msg("取消后释放预留失败")
	}

	logger.Info().Uint("order_id", o.ID).Msg("订单已取消")
	return nil
}
