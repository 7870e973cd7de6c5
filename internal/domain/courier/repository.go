package courier

import (
	"context"
)

// Repository 配送员仓储接口
type Repository interface {
	// Create 创建骑手
	Create(ctx context.Context, c *Courier) error

	// FindByID 按内部ID查找
	FindByID(ctx context.Context, id uint) (*Courier, error)

	// FindByTgID 按Telegram ID查找(处理bot更新时用)
	FindByTgID(ctx context.Context, tgID int64) (*Courier, error)

	// ListActive 全部在岗骑手(派单候选)
	ListActive(ctx context.Context) ([]*Courier, error)
}
