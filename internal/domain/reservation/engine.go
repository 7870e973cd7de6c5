package reservation

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/tilmanziegler21-create/boyboy/internal/domain/product"
	"github.com/tilmanziegler21-create/boyboy/pkg/logger"
	"github.com/tilmanziegler21-create/boyboy/pkg/metrics"
)

// Engine 库存预留引擎
//
// 设计说明:
// 1. 引擎是系统里防止超卖的唯一关卡:下单时先在这里占位,
//    配送完成时在这里做最终扣减
// 2. qtyReserved是台账的派生视图(商品→当前有效预留量),
//    进程启动时通过Restore整体重建,之后随预留/释放增量维护
// 3. 台账(数据库)永远是唯一事实来源;缓存只对本进程生命周期有效,
//    崩溃后丢失的增量在下次Restore时找回
//
// 教学要点(并发):
// 1. 原型运行在单线程事件循环上,检查与写入之间天然不会被打断;
//    Go是真并发,这里用引擎级互斥锁覆盖ReserveItems的
//    "校验+落库+缓存更新"全程,关掉检查-写入间隙的超卖窗口
// 2. FinalDeduction是读-改-写,用按商品分键的互斥锁串行化:
//    同一商品排队,不同商品互不阻塞
type Engine struct {
	catalog product.Catalog
	repo    Repository
	ttl     time.Duration // 预留有效期(部署级常量)

	mu          sync.RWMutex
	qtyReserved map[uint]int // product_id → 当前有效预留量

	deductLocks *keyLock
}

// NewEngine 创建预留引擎
// 使用前必须先调用一次Restore重建缓存
func NewEngine(catalog product.Catalog, repo Repository, ttl time.Duration) *Engine {
	return &Engine{
		catalog:     catalog,
		repo:        repo,
		ttl:         ttl,
		qtyReserved: make(map[uint]int),
		deductLocks: newKeyLock(),
	}
}

// Restore 从台账整体重建预留缓存
// 进程启动时调用一次,在对外服务之前完成;不支持并发调用。
// 聚合条件:released=0 AND expiry_timestamp > now(惰性过期)。
func (e *Engine) Restore(ctx context.Context) error {
	totals, err := e.repo.LiveTotals(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("重建预留缓存失败: %w", err)
	}

	e.mu.Lock()
	e.qtyReserved = totals
	e.mu.Unlock()

	total := 0
	for id, qty := range totals {
		total += qty
		metrics.QtyReservedGauge.WithLabelValues(strconv.FormatUint(uint64(id), 10)).Set(float64(qty))
	}
	logger.Info().Int("products", len(totals)).Int("total_qty", total).Msg("预留缓存已重建")
	return nil
}

// ValidateStock 检查商品可售量是否满足qty
// 可售量 = 总库存 - 当前预留量。仅供展示参考:它不占位,
// 调用方仍需处理校验与预留之间的竞争。
// 商品不存在时返回false,从不返回错误。
func (e *Engine) ValidateStock(ctx context.Context, productID uint, qty int) bool {
	p, err := e.catalog.GetProduct(ctx, productID)
	if err != nil || p == nil {
		return false
	}

	e.mu.RLock()
	reserved := e.qtyReserved[productID]
	e.mu.RUnlock()

	return p.QtyAvailable-reserved >= qty
}

// ReserveItems 为一批商品创建预留
// 全有全无:任一商品可售量不足则整批失败,不落任何行。
// orderID=0表示尚未生成订单的购物车占位。
//
// 校验、落库、缓存更新都在引擎锁内完成,两个并发下单
// 不会基于同一份预留量同时通过校验。
func (e *Engine) ReserveItems(ctx context.Context, items []Item, orderID uint) error {
	if len(items) == 0 {
		return nil
	}
	for _, it := range items {
		if it.Qty <= 0 {
			return ErrInvalidQty
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// 第一遍:全部校验,任何失败都发生在写入之前
	for _, it := range items {
		p, err := e.catalog.GetProduct(ctx, it.ProductID)
		if err != nil || p == nil {
			return fmt.Errorf("商品%d: %w", it.ProductID, ErrProductNotFound)
		}
		if p.QtyAvailable-e.qtyReserved[it.ProductID] < it.Qty {
			metrics.ReservationsRejectedTotal.Inc()
			return fmt.Errorf("商品%d: %w", it.ProductID, ErrInsufficientStock)
		}
	}

	// 第二遍:一个事务写入全部预留行
	now := time.Now()
	rs := make([]*Reservation, 0, len(items))
	for _, it := range items {
		rs = append(rs, &Reservation{
			OrderID:          orderID,
			ProductID:        it.ProductID,
			Qty:              it.Qty,
			ReserveTimestamp: now,
			ExpiryTimestamp:  now.Add(e.ttl),
		})
	}
	if err := e.repo.InsertBatch(ctx, rs); err != nil {
		return fmt.Errorf("写入预留失败: %w", err)
	}

	// 落库成功后更新缓存(仍在锁内)
	for _, it := range items {
		e.qtyReserved[it.ProductID] += it.Qty
		metrics.QtyReservedGauge.WithLabelValues(strconv.FormatUint(uint64(it.ProductID), 10)).
			Set(float64(e.qtyReserved[it.ProductID]))
	}
	metrics.ReservationsCreatedTotal.Add(float64(len(items)))

	logger.Debug().Uint("order_id", orderID).Int("items", len(items)).Msg("预留已创建")
	return nil
}

// ReleaseReservation 释放一批预留
// 按(orderID, productID)翻转released标记,缓存减去释放量(不低于0)。
// 幂等:重复释放或释放不存在的预留,逐项静默跳过。
func (e *Engine) ReleaseReservation(ctx context.Context, items []Item, orderID uint) error {
	for _, it := range items {
		affected, err := e.repo.ReleaseByOrderProduct(ctx, orderID, it.ProductID)
		if err != nil {
			return fmt.Errorf("释放预留失败(商品%d): %w", it.ProductID, err)
		}
		if affected == 0 {
			// 已释放过或从未预留,跳过缓存扣减
			continue
		}

		e.mu.Lock()
		left := e.qtyReserved[it.ProductID] - it.Qty
		if left < 0 {
			left = 0
		}
		e.qtyReserved[it.ProductID] = left
		e.mu.Unlock()

		metrics.ReservationsReleasedTotal.Inc()
		metrics.QtyReservedGauge.WithLabelValues(strconv.FormatUint(uint64(it.ProductID), 10)).
			Set(float64(left))
	}
	return nil
}

// FinalDeduction 永久扣减总库存(订单确认送达后调用)
// 同一商品串行排队,不同商品互不阻塞。逐项提交:
// 某项失败时之前已完成的扣减保持提交,不跨批回滚。
func (e *Engine) FinalDeduction(ctx context.Context, items []Item) error {
	for _, it := range items {
		if err := e.deductOne(ctx, it); err != nil {
			return err
		}
	}
	return nil
}

// deductOne 对单个商品做读-改-写扣减
func (e *Engine) deductOne(ctx context.Context, it Item) error {
	unlock := e.deductLocks.Lock(it.ProductID)
	defer unlock()

	start := time.Now()

	p, err := e.catalog.GetProduct(ctx, it.ProductID)
	if err != nil || p == nil {
		metrics.DeductionsTotal.WithLabelValues("not_found").Inc()
		return fmt.Errorf("商品%d: %w", it.ProductID, ErrProductNotFound)
	}

	newQty := p.QtyAvailable - it.Qty
	if newQty < 0 {
		metrics.DeductionsTotal.WithLabelValues("negative_stock").Inc()
		return fmt.Errorf("商品%d: 当前%d件,请求扣减%d件: %w",
			it.ProductID, p.QtyAvailable, it.Qty, ErrNegativeStock)
	}

	if err := e.catalog.UpdateQty(ctx, it.ProductID, newQty); err != nil {
		metrics.DeductionsTotal.WithLabelValues("not_found").Inc()
		return fmt.Errorf("商品%d扣减写入失败: %w", it.ProductID, err)
	}

	metrics.DeductionsTotal.WithLabelValues("success").Inc()
	metrics.DeductionDuration.Observe(time.Since(start).Seconds())

	// 成功日志尽力而为,永远不让日志问题影响扣减本身
	logger.Info().Uint("product_id", it.ProductID).Int("qty", it.Qty).
		Int("remaining", newQty).Msg("最终扣减完成")
	return nil
}

// Snapshot 返回当前预留缓存的只读副本(诊断用)
func (e *Engine) Snapshot() map[uint]int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[uint]int, len(e.qtyReserved))
	for id, qty := range e.qtyReserved {
		out[id] = qty
	}
	return out
}
