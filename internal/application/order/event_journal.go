package order

import (
	"encoding/json"

	"github.com/tilmanziegler21-create/boyboy/pkg/logger"
	"github.com/tilmanziegler21-create/boyboy/pkg/metrics"
	"github.com/tilmanziegler21-create/boyboy/pkg/mq"
)

// EventJournal 订单事件流水消费者
// 订阅order.*事件,落成结构化日志并按事件类型计数。
// 店主对账时有一份独立于数据库的操作流水可查,
// 配送主流程不等它,慢了堆在队列里
type EventJournal struct{}

// NewEventJournal 创建事件流水消费者
func NewEventJournal() *EventJournal {
	return &EventJournal{}
}

// Handle 处理一条事件
// 载荷损坏时记日志后丢弃(返回nil):重新入队只会原地死循环
func (j *EventJournal) Handle(routingKey string, body []byte) error {
	var ev mq.OrderEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		logger.Error().Err(err).Str("routing_key", routingKey).Msg("订单事件载荷损坏,丢弃")
		return nil
	}

	metrics.OrderEventsConsumedTotal.WithLabelValues(routingKey).Inc()
	logger.Info().
		Str("routing_key", routingKey).
		Str("event_id", ev.EventID).
		Uint("order_id", ev.OrderID).
		Uint("courier_id", ev.CourierID).
		Str("status", ev.Status).
		Int64("total", ev.Total).
		Msg("订单事件")
	return nil
}
