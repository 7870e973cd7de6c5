package product

import (
	"time"
)

// Product 商品实体(聚合根)
// DDD设计说明:
// 1. Product是商品聚合的根实体,货架上的可售SKU
// 2. 价格使用int64存储"分"为单位(避免浮点数精度问题)
// 3. QtyAvailable是表格/数据库声明的总库存,不含预留扣减;
//    可售量 = QtyAvailable - 预留量,由reservation.Engine计算
// 4. Active=false的商品不进货架,但历史订单仍可引用
type Product struct {
	ID           uint
	SKU          string // 商品编码(表格里的行标识)
	Title        string // 商品名
	Category     string // 分类(货架分组展示)
	Price        int64  // 价格(单位:分,1元=100分)
	QtyAvailable int    // 总库存(未扣预留)
	Active       bool   // 是否上架
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewProduct 创建商品(工厂方法)
func NewProduct(sku, title, category string, price int64, qty int) *Product {
	now := time.Now()
	return &Product{
		SKU:          sku,
		Title:        title,
		Category:     category,
		Price:        price,
		QtyAvailable: qty,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// SetQty 直接设定总库存(补货、盘点用)
// 业务规则:库存不能为负数
func (p *Product) SetQty(qty int) error {
	if qty < 0 {
		return ErrInvalidQty
	}
	p.QtyAvailable = qty
	p.UpdatedAt = time.Now()
	return nil
}

// Deactivate 下架商品
func (p *Product) Deactivate() {
	p.Active = false
	p.UpdatedAt = time.Now()
}
