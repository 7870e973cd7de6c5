package reservation

import (
	"time"
)

// Reservation 预留记录实体
// DDD设计说明:
// 1. 一行对应一次下单对一个商品的占用,订单确认/取消后翻转Released
// 2. 软释放:Released只从false变true,从不删除行(保留对账轨迹)
// 3. 过期采用惰性判断:没有后台清扫任务,查询时用ExpiryTimestamp过滤
// 4. OrderID=0表示尚未生成订单的购物车占位
type Reservation struct {
	ID               uint
	OrderID          uint
	ProductID        uint
	Qty              int
	ReserveTimestamp time.Time
	ExpiryTimestamp  time.Time
	Released         bool
}

// Live 判断预留是否仍然有效(未释放且未过期)
func (r *Reservation) Live(now time.Time) bool {
	return !r.Released && r.ExpiryTimestamp.After(now)
}

// Item 一次操作里的(商品,数量)对
// 预留、释放、最终扣减都以它为单位
type Item struct {
	ProductID uint
	Qty       int
}
