package product

import (
	"context"
)

// Catalog 商品目录接口(依赖倒置原则)
// 设计说明:
// 1. 由domain层定义接口,infrastructure层提供两种实现:
//    - MySQL仓储(权威存储)
//    - Google表格后端(店主直接在表格里维护货架)
// 2. Redis读穿缓存作为装饰器叠加在任一实现之上
// 3. reservation.Engine只依赖本接口,不关心货架数据从哪来
type Catalog interface {
	// GetProducts 返回全部上架商品
	GetProducts(ctx context.Context) ([]*Product, error)

	// GetProduct 按ID返回单个商品(含下架商品,历史订单展示用)
	GetProduct(ctx context.Context, id uint) (*Product, error)

	// UpdateQty 将商品总库存设置为newQty(绝对值,非增量)
	// 商品不存在时返回ErrProductNotFound
	UpdateQty(ctx context.Context, id uint, newQty int) error
}

// Repository 商品仓储接口(MySQL实现Catalog之外的管理能力)
type Repository interface {
	Catalog

	// Create 创建商品
	Create(ctx context.Context, p *Product) error

	// Update 更新商品信息
	Update(ctx context.Context, p *Product) error
}
