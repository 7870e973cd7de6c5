package order

import (
	"context"
	"fmt"

	"github.com/tilmanziegler21-create/boyboy/internal/domain/order"
	"github.com/tilmanziegler21-create/boyboy/internal/domain/reservation"
	apperrors "github.com/tilmanziegler21-create/boyboy/pkg/errors"
	"github.com/tilmanziegler21-create/boyboy/pkg/logger"
)

// NotIssuedUseCase 标记未发出用例
// 骑手无法配送(缺货、联系不上顾客)时点击"未发出":
// 订单终结,预留释放,库存回到可售池,并通知顾客
type NotIssuedUseCase struct {
	orderRepo order.Repository
	engine    *reservation.Engine
	notifier  Notifier
}

// NewNotIssuedUseCase 创建未发出用例
func NewNotIssuedUseCase(orderRepo order.Repository, engine *reservation.Engine, notifier Notifier) *NotIssuedUseCase {
	return &NotIssuedUseCase{orderRepo: orderRepo, engine: engine, notifier: notifier}
}

// Execute 标记未发出
func (uc *NotIssuedUseCase) Execute(ctx context.Context, orderID, courierID uint) error {
	o, err := uc.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if o.CourierID != 0 && o.CourierID != courierID {
		return apperrors.ErrForbidden
	}

	if err := o.MarkNotIssued(); err != nil {
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
		logger.Error().Err(err).Uint("order_id", o.ID).Msg("未发出后释放预留失败")
	}

	// 通知尽力而为,失败不影响订单状态
	text := fmt.Sprintf("很抱歉,您的订单 %s 本次未能发出,商品未扣款。如有疑问请联系店主。", o.OrderNo)
	if err := uc.notifier.NotifyCustomer(ctx, o.CustomerTgID, text); err != nil {
		logger.Warn().Err(err).Uint("order_id", o.ID).Msg("通知顾客失败")
	}

	logger.Info().Uint("order_id", o.ID).Msg("订单标记为未发出")
	return nil
}
