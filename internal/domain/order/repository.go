package order

import (
	"context"
)

// Repository 订单仓储接口(依赖倒置原则)
// 由domain层定义,infrastructure/persistence/mysql实现
type Repository interface {
	// Create 创建订单及明细(同一事务)
	Create(ctx context.Context, o *Order) error

	// FindByID 按ID查找订单(含明细)
	FindByID(ctx context.Context, id uint) (*Order, error)

	// FindByOrderNo 按订单号查找订单(含明细)
	FindByOrderNo(ctx context.Context, orderNo string) (*Order, error)

	// Update 更新订单(状态、派单信息、表格提交标记)
	Update(ctx context.Context, o *Order) error

	// ListByCourier 某骑手的订单,可按状态过滤(status=0表示不过滤)
	ListByCourier(ctx context.Context, courierID uint, status OrderStatus) ([]*Order, error)

	// MarkSheetsCommitted 仅当sheets_committed=0时置1
	// 返回受影响行数,0表示已提交过(镜像提交的幂等闸门)
	MarkSheetsCommitted(ctx context.Context, orderID uint) (int64, error)
}
