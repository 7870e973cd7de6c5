package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tilmanziegler21-create/boyboy/internal/domain/courier"
	"github.com/tilmanziegler21-create/boyboy/internal/domain/order"
	"github.com/tilmanziegler21-create/boyboy/internal/domain/product"
	"github.com/tilmanziegler21-create/boyboy/internal/domain/reservation"
	"github.com/tilmanziegler21-create/boyboy/pkg/logger"
	"github.com/tilmanziegler21-create/boyboy/pkg/metrics"
	"github.com/tilmanziegler21-create/boyboy/pkg/mq"
	"github.com/tilmanziegler21-create/boyboy/pkg/saga"
)

// PlaceOrderUseCase 下单用例
// 教学要点:这是整个项目最核心的用例
// 涉及:预留引擎、Saga补偿、事务、骑手指派、表格镜像
type PlaceOrderUseCase struct {
	orderRepo   order.Repository
	courierRepo courier.Repository
	catalog     product.Catalog
	engine      *reservation.Engine
	txManager   TxManager
	mirror      Mirror
	publisher   EventPublisher
}

// NewPlaceOrderUseCase 创建下单用例
func NewPlaceOrderUseCase(
	orderRepo order.Repository,
	courierRepo courier.Repository,
	catalog product.Catalog,
	engine *reservation.Engine,
	txManager TxManager,
	mirror Mirror,
	publisher EventPublisher,
) *PlaceOrderUseCase {
	return &PlaceOrderUseCase{
		orderRepo:   orderRepo,
		courierRepo: courierRepo,
		catalog:     catalog,
		engine:      engine,
		txManager:   txManager,
		mirror:      mirror,
		publisher:   publisher,
	}
}

// PlaceOrderRequest 下单请求DTO
type PlaceOrderRequest struct {
	CustomerTgID int64
	CustomerName string
	Address      string
	DeliveryDate string // YYYY-MM-DD
	DeliverySlot string // 如"14:00-16:00"
	Items        []PlaceOrderItem
}

// PlaceOrderItem 下单明细项
type PlaceOrderItem struct {
	ProductID uint
	Quantity  int
}

// PlaceOrderResponse 下单响应DTO
type PlaceOrderResponse struct {
	OrderID     uint   `json:"order_id"`
	OrderNo     string `json:"order_no"`
	Total       int64  `json:"total"`
	CourierName string `json:"courier_name"`
}

// Execute 执行下单
// 流程(Saga编排,失败时逆序补偿):
// 1. 创建订单(补偿:标记取消)
// 2. 预留库存(补偿:释放预留) —— 这里是防超卖的关口,
//    校验与落库都在预留引擎的锁内完成
// 3. 指派骑手
// 成功后尽力而为:镜像到表格、发布order.placed事件。
func (uc *PlaceOrderUseCase) Execute(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResponse, error) {
	if len(req.Items) == 0 {
		return nil, order.ErrEmptyItems
	}

	// 价格快照:用货架当前价格而非调用方传入的价格
	var total int64
	items := make([]order.OrderItem, 0, len(req.Items))
	resItems := make([]reservation.Item, 0, len(req.Items))
	titles := make([]string, 0, len(req.Items))
	for _, it := range req.Items {
		p, err := uc.catalog.GetProduct(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		items = append(items, order.OrderItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     p.Price,
		})
		resItems = append(resItems, reservation.Item{ProductID: it.ProductID, Qty: it.Quantity})
		titles = append(titles, fmt.Sprintf("%d×%s", it.Quantity, p.Title))
		total += p.Price * int64(it.Quantity)
	}

	o := order.NewOrder(order.GenerateOrderNo(time.Now()),
		req.CustomerTgID, req.CustomerName, req.Address, items, total)

	var assigned *courier.Courier

	sg := saga.NewSaga(10 * time.Second)
	sg.AddStep("创建订单",
		func(ctx context.Context) error {
			return uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
				return uc.orderRepo.Create(txCtx, o)
			})
		},
		func(ctx context.Context) error {
			if err := o.Cancel(); err != nil {
				return err
			}
			return uc.orderRepo.Update(ctx, o)
		},
	)
	sg.AddStep("预留库存",
		func(ctx context.Context) error {
			return uc.engine.ReserveItems(ctx, resItems, o.ID)
		},
		func(ctx context.Context) error {
			return uc.engine.ReleaseReservation(ctx, resItems, o.ID)
		},
	)
	sg.AddStep("指派骑手",
		func(ctx context.Context) error {
			c, err := uc.pickCourier(ctx)
			if err != nil {
				return err
			}
			if err := o.AssignCourier(c.ID, req.DeliveryDate, req.DeliverySlot); err != nil {
				return err
			}
			assigned = c
			return uc.orderRepo.Update(ctx, o)
		},
		nil,
	)

	if err := sg.Execute(ctx); err != nil {
		return nil, err
	}

	metrics.OrdersPlacedTotal.Inc()
	logger.Info().Uint("order_id", o.ID).Str("order_no", o.OrderNo).
		Int64("total", total).Str("courier", assigned.Name).Msg("订单已创建")

	// 镜像与事件都是尽力而为,不影响下单结果
	if err := uc.mirror.AppendOrder(ctx, o, assigned.Name, strings.Join(titles, "; ")); err != nil {
		logger.Warn().Err(err).Str("order_no", o.OrderNo).Msg("订单镜像到表格失败")
	}
	if err := uc.publisher.Publish(ctx, "order.placed", mq.OrderEvent{
		EventID:   uuid.NewString(),
		OrderID:   o.ID,
		CourierID: o.CourierID,
		Status:    o.Status.String(),
		Total:     total,
		CreatedAt: o.CreatedAt,
	}); err != nil {
		logger.Warn().Err(err).Str("order_no", o.OrderNo).Msg("发布下单事件失败")
	}

	return &PlaceOrderResponse{
		OrderID:     o.ID,
		OrderNo:     o.OrderNo,
		Total:       total,
		CourierName: assigned.Name,
	}, nil
}

// pickCourier 选择骑手:在岗列表里挑当前待配送单最少的
func (uc *PlaceOrderUseCase) pickCourier(ctx context.Context) (*courier.Courier, error) {
	couriers, err := uc.courierRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if len(couriers) == 0 {
		return nil, courier.ErrCourierNotFound
	}

	best := couriers[0]
	bestLoad := -1
	for _, c := range couriers {
		orders, err := uc.orderRepo.ListByCourier(ctx, c.ID, order.OrderStatusCourierAssigned)
		if err != nil {
			return nil, err
		}
		if bestLoad == -1 || len(orders) < bestLoad {
			best, bestLoad = c, len(orders)
		}
	}
	return best, nil
}
