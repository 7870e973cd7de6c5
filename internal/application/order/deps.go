package order

import (
	"context"
	"time"

	"github.com/tilmanziegler21-create/boyboy/internal/domain/order"
)

// TxManager 事务边界接口
// mysql.TxManager实现;测试里用直通实现替代
type TxManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Mirror 表格镜像接口(sheets.Backend实现)
// 所有调用都是尽力而为,失败只进日志
type Mirror interface {
	AppendOrder(ctx context.Context, o *order.Order, courierName string, itemsText string) error
	CommitDelivery(ctx context.Context, o *order.Order, deliveredAt time.Time) error
	UpsertDailyMetrics(ctx context.Context, date string, deliveredDelta int, revenueDelta int64) error
}

// EventPublisher 订单事件发布接口(mq.Publisher实现)
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, message interface{}) error
}

// Notifier 顾客通知接口(telegram.Bot实现)
type Notifier interface {
	NotifyCustomer(ctx context.Context, tgID int64, text string) error
}
