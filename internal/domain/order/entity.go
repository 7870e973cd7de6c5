package order

import (
	"time"
)

// OrderStatus 订单状态
// 教学要点:
// 1. 使用int类型而非string(节省存储空间,便于索引)
// 2. 定义为类型别名,便于添加方法
type OrderStatus int

const (
	OrderStatusPending         OrderStatus = 1 // 待处理(已下单,等待派单)
	OrderStatusCourierAssigned OrderStatus = 2 // 已派单(骑手已接收)
	OrderStatusDelivered       OrderStatus = 3 // 已送达(触发最终扣减)
	OrderStatusNotIssued       OrderStatus = 4 // 未发出(骑手标记无法配送)
	OrderStatusCancelled       OrderStatus = 5 // 已取消(顾客取消)
)

// String 实现Stringer接口(方便日志输出)
func (s OrderStatus) String() string {
	switch s {
	case OrderStatusPending:
		return "待处理"
	case OrderStatusCourierAssigned:
		return "已派单"
	case OrderStatusDelivered:
		return "已送达"
	case OrderStatusNotIssued:
		return "未发出"
	case OrderStatusCancelled:
		return "已取消"
	default:
		return "未知状态"
	}
}

// Order 订单实体(聚合根)
// 设计说明:
// 1. Order是聚合根,OrderItem是子实体
// 2. CustomerTgID是下单顾客的Telegram ID(通知回执用)
// 3. Total价格冗余存储(下单时快照,货架改价不影响历史订单)
// 4. SheetsCommitted标记送达结果是否已写入表格镜像(幂等提交)
type Order struct {
	ID              uint
	OrderNo         string      // 订单号(业务主键,全局唯一)
	CustomerTgID    int64       // 顾客Telegram ID
	CustomerName    string      // 顾客称呼(配送单展示)
	Address         string      // 配送地址
	CourierID       uint        // 派单骑手ID(0=未派单)
	DeliveryDate    string      // 配送日期(YYYY-MM-DD)
	DeliverySlot    string      // 配送时段(如"14:00-16:00")
	Total           int64       // 订单总金额(分)
	Status          OrderStatus // 订单状态
	SheetsCommitted bool        // 送达结果已镜像到表格
	Items           []OrderItem // 订单明细
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem 订单明细项
// 不是独立聚合根,必须通过Order访问;Price记录下单时的单价快照
type OrderItem struct {
	ID        uint
	OrderID   uint
	ProductID uint
	Quantity  int
	Price     int64 // 下单时单价(分)
}

// NewOrder 创建新订单(工厂方法)
// 初始状态为Pending,订单号由外部生成传入
func NewOrder(orderNo string, customerTgID int64, customerName, address string, items []OrderItem, total int64) *Order {
	now := time.Now()
	return &Order{
		OrderNo:      orderNo,
		CustomerTgID: customerTgID,
		CustomerName: customerName,
		Address:      address,
		Total:        total,
		Status:       OrderStatusPending,
		Items:        items,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// CanTransitionTo 检查是否可以转换到目标状态
// 状态机:pending → courier_assigned → delivered;
// pending/courier_assigned → not_issued;pending → cancelled
func (o *Order) CanTransitionTo(target OrderStatus) bool {
	transitions := map[OrderStatus][]OrderStatus{
		OrderStatusPending:         {OrderStatusCourierAssigned, OrderStatusNotIssued, OrderStatusCancelled},
		OrderStatusCourierAssigned: {OrderStatusDelivered, OrderStatusNotIssued},
		OrderStatusDelivered:       {}, // 终态
		OrderStatusNotIssued:       {}, // 终态
		OrderStatusCancelled:       {}, // 终态
	}

	allowed, exists := transitions[o.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// TransitionTo 状态转换
func (o *Order) TransitionTo(target OrderStatus) error {
	if !o.CanTransitionTo(target) {
		return ErrInvalidStatusTransition
	}
	o.Status = target
	o.UpdatedAt = time.Now()
	return nil
}

// AssignCourier 派单给骑手(领域行为)
func (o *Order) AssignCourier(courierID uint, date, slot string) error {
	if err := o.TransitionTo(OrderStatusCourierAssigned); err != nil {
		return err
	}
	o.CourierID = courierID
	o.DeliveryDate = date
	o.DeliverySlot = slot
	return nil
}

// Deliver 标记送达(领域行为)
func (o *Order) Deliver() error {
	return o.TransitionTo(OrderStatusDelivered)
}

// MarkNotIssued 标记未发出(领域行为)
func (o *Order) MarkNotIssued() error {
	return o.TransitionTo(OrderStatusNotIssued)
}

// Cancel 取消订单(领域行为)
func (o *Order) Cancel() error {
	return o.TransitionTo(OrderStatusCancelled)
}

// ReservationItems 转换为预留引擎需要的(商品,数量)对
func (o *Order) ReservationItems() []ItemQty {
	out := make([]ItemQty, 0, len(o.Items))
	for _, it := range o.Items {
		out = append(out, ItemQty{ProductID: it.ProductID, Qty: it.Quantity})
	}
	return out
}

// ItemQty 订单明细的(商品,数量)视图
type ItemQty struct {
	ProductID uint
	Qty       int
}
