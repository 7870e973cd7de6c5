package order

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tilmanziegler21-create/boyboy/internal/domain/order"
	"github.com/tilmanziegler21-create/boyboy/internal/domain/reservation"
	apperrors "github.com/tilmanziegler21-create/boyboy/pkg/errors"
	"github.com/tilmanziegler21-create/boyboy/pkg/logger"
	"github.com/tilmanziegler21-create/boyboy/pkg/metrics"
	"github.com/tilmanziegler21-create/boyboy/pkg/mq"
)

// DeliverOrderUseCase 确认送达用例
// 骑手点击"已送出"按钮后触发:这是库存从"预留"变为
// "永久扣减"的唯一入口
type DeliverOrderUseCase struct {
	orderRepo order.Repository
	engine    *reservation.Engine
	mirror    Mirror
	publisher EventPublisher
}

// NewDeliverOrderUseCase 创建送达用例
func NewDeliverOrderUseCase(
	orderRepo order.Repository,
	engine *reservation.Engine,
	mirror Mirror,
	publisher EventPublisher,
) *DeliverOrderUseCase {
	return &DeliverOrderUseCase{
		orderRepo: orderRepo,
		engine:    engine,
		mirror:    mirror,
		publisher: publisher,
	}
}

// Execute 确认送达
// 流程:
// 1. 校验订单归属该骑手且状态允许送达
// 2. 标记送达并落库
// 3. 最终扣减权威库存(按商品串行)
// 4. 释放该订单的预留(库存已永久扣减,占位完成使命)
// 5. 表格镜像提交(幂等闸门sheets_committed) + 发布事件,均尽力而为
//
// 扣减失败时订单保持已送达(货已经在顾客手里),
// 错误上抛给骑手侧提示,留给店主对账处理。
func (uc *DeliverOrderUseCase) Execute(ctx context.Context, orderID, courierID uint) error {
	o, err := uc.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if o.CourierID != courierID {
		return apperrors.ErrForbidden
	}

	if err := o.Deliver(); err != nil {
		return err
	}
	if err := uc.orderRepo.Update(ctx, o); err != nil {
		return err
	}
	metrics.OrdersDeliveredTotal.Inc()

	items := make([]reservation.Item, 0, len(o.Items))
	for _, it := range o.ReservationItems() {
		items = append(items, reservation.Item{ProductID: it.ProductID, Qty: it.Qty})
	}

	deductErr := uc.engine.FinalDeduction(ctx, items)
	if deductErr != nil {
		logger.Error().Err(deductErr).Uint("order_id", o.ID).Msg("最终扣减失败,需人工对账")
	}

	if err := uc.engine.ReleaseReservation(ctx, items, o.ID); err != nil {
		logger.Error().Err(err).Uint("order_id", o.ID).Msg("释放预留失败")
	}

	uc.commitMirror(ctx, o)

	if err := uc.publisher.Publish(ctx, "order.delivered", mq.OrderEvent{
		EventID:   uuid.NewString(),
		OrderID:   o.ID,
		CourierID: o.CourierID,
		Status:    o.Status.String(),
		Total:     o.Total,
		CreatedAt: time.Now(),
	}); err != nil {
		logger.Warn().Err(err).Uint("order_id", o.ID).Msg("发布送达事件失败")
	}

	return deductErr
}

// commitMirror 表格镜像提交(尽力而为)
// sheets_committed闸门保证重试不会把同一单在日报里记两次
func (uc *DeliverOrderUseCase) commitMirror(ctx context.Context, o *order.Order) {
	affected, err := uc.orderRepo.MarkSheetsCommitted(ctx, o.ID)
	if err != nil {
		logger.Warn().Err(err).Uint("order_id", o.ID).Msg("标记镜像提交失败")
		return
	}
	if affected == 0 {
		return // 已提交过
	}

	now := time.Now()
	if err := uc.mirror.CommitDelivery(ctx, o, now); err != nil {
		logger.Warn().Err(err).Uint("order_id", o.ID).Msg("表格送达回填失败")
	}
	if err := uc.mirror.UpsertDailyMetrics(ctx, now.Format("2006-01-02"), 1, o.Total); err != nil {
		logger.Warn().Err(err).Uint("order_id", o.ID).Msg("表格日报更新失败")
	}
}
