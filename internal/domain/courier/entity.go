package courier

import (
	"time"
)

// Courier 配送员实体
// 设计说明:
// 1. 双键:ID是内部主键,TgID是Telegram侧身份
//    (更新消息里拿到的是TgID,表格/订单里记的是ID,两边都要能查)
// 2. Active=false的骑手不再参与派单,但历史订单仍引用其ID
type Courier struct {
	ID        uint
	TgID      int64  // Telegram用户ID
	Name      string // 称呼(订单通知里展示)
	Phone     string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Deactivate 停用骑手
func (c *Courier) Deactivate() {
	c.Active = false
	c.UpdatedAt = time.Now()
}
