package reservation

import (
	"context"
	"time"
)

// Repository 预留仓储接口(依赖倒置原则)
// 由domain层定义,infrastructure/persistence/mysql实现
type Repository interface {
	// InsertBatch 在一个事务里插入一批预留行
	// 要么全部写入,要么全部回滚(与引擎的全有全无校验配套)
	InsertBatch(ctx context.Context, rs []*Reservation) error

	// ReleaseByOrderProduct 按(订单,商品)翻转released=0→1
	// 返回受影响行数;重复释放时为0,调用方据此跳过缓存扣减
	ReleaseByOrderProduct(ctx context.Context, orderID, productID uint) (int64, error)

	// LiveTotals 聚合有效预留:released=0且expiry_timestamp>now,
	// 按商品分组求和。进程启动时重建缓存用
	LiveTotals(ctx context.Context, now time.Time) (map[uint]int, error)
}
