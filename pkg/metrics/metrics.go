// Package metrics 提供基于Prometheus的指标收集
//
// 核心概念：
// - Counter（计数器）：只增不减，如预留创建总数、扣减失败总数
// - Gauge（仪表盘）：可增可减的瞬时值，如当前被预留的总件数
// - Histogram（直方图）：观测值分布，如表格同步耗时的P99
//
// 使用方式：
//
//	metrics.InitMetrics()
//	http.Handle("/metrics", promhttp.Handler())
//	...
//	metrics.ReservationsCreatedTotal.Inc()
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// initialized 标记是否已初始化（防止重复注册）
	initialized bool

	// 预留相关指标

	// ReservationsCreatedTotal 预留创建总数（Counter）
	ReservationsCreatedTotal prometheus.Counter

	// ReservationsReleasedTotal 预留释放总数（Counter）
	ReservationsReleasedTotal prometheus.Counter

	// ReservationsRejectedTotal 因库存不足被拒绝的预留总数（Counter）
	ReservationsRejectedTotal prometheus.Counter

	// QtyReservedGauge 当前各商品被预留的件数（GaugeVec，标签：product_id）
	// 注意：单店商品数有限（几十到几百），product_id不会造成高基数问题
	QtyReservedGauge *prometheus.GaugeVec

	// 扣减相关指标

	// DeductionsTotal 最终扣减执行总数（CounterVec，标签：result=success/negative_stock/not_found）
	DeductionsTotal *prometheus.CounterVec

	// DeductionDuration 单商品扣减耗时（Histogram）
	DeductionDuration prometheus.Histogram

	// 订单相关指标

	// OrdersPlacedTotal 下单总数（Counter）
	OrdersPlacedTotal prometheus.Counter

	// OrdersDeliveredTotal 完成配送总数（Counter）
	OrdersDeliveredTotal prometheus.Counter

	// OrderEventsConsumedTotal 消费的订单事件总数（CounterVec，标签：routing_key）
	OrderEventsConsumedTotal *prometheus.CounterVec

	// 表格镜像指标

	// SheetsRequestsTotal 表格API调用总数（CounterVec，标签：op、result）
	SheetsRequestsTotal *prometheus.CounterVec

	// SheetsRequestDuration 表格API调用耗时（Histogram）
	SheetsRequestDuration prometheus.Histogram

	// 熔断器指标

	// CircuitBreakerState 熔断器状态（GaugeVec，0=CLOSED 1=OPEN 2=HALF_OPEN）
	CircuitBreakerState *prometheus.GaugeVec
)

// InitMetrics 初始化所有Prometheus指标
// 必须在程序启动时调用一次，注册所有指标到默认Registry
func InitMetrics() {
	if initialized {
		return
	}
	initialized = true

	ReservationsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopbot_reservations_created_total",
		Help: "创建成功的库存预留总数",
	})

	ReservationsReleasedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopbot_reservations_released_total",
		Help: "释放的库存预留总数",
	})

	ReservationsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopbot_reservations_rejected_total",
		Help: "因库存不足被拒绝的预留请求总数",
	})

	QtyReservedGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "shopbot_qty_reserved",
		Help: "当前各商品被预留的件数",
	}, []string{"product_id"})

	DeductionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopbot_deductions_total",
		Help: "最终扣减执行总数",
	}, []string{"result"})

	DeductionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shopbot_deduction_duration_seconds",
		Help:    "单商品最终扣减耗时",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})

	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopbot_orders_placed_total",
		Help: "下单总数",
	})

	OrdersDeliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopbot_orders_delivered_total",
		Help: "完成配送总数",
	})

	OrderEventsConsumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopbot_order_events_consumed_total",
		Help: "后台消费的订单事件总数",
	}, []string{"routing_key"})

	SheetsRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopbot_sheets_requests_total",
		Help: "表格API调用总数",
	}, []string{"op", "result"})

	SheetsRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shopbot_sheets_request_duration_seconds",
		Help:    "表格API调用耗时",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "shopbot_circuit_breaker_state",
		Help: "熔断器状态（0=CLOSED 1=OPEN 2=HALF_OPEN）",
	}, []string{"name"})
}
