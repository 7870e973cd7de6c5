package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tilmanziegler21-create/boyboy/internal/domain/product"
	apperrors "github.com/tilmanziegler21-create/boyboy/pkg/errors"
)

// productRepository 商品仓储实现(MySQL)
// 设计说明:
// 1. 实现domain/product定义的Repository(含Catalog)接口
// 2. 负责domain实体与GORM模型之间的转换
// 3. 处理数据库特定的错误(如SKU重复),转换为业务错误
type productRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) product.Repository {
	return &productRepository{db: db}
}

// Create 创建商品
func (r *productRepository) Create(ctx context.Context, p *product.Product) error {
	model := &ProductModel{
		SKU:          p.SKU,
		Title:        p.Title,
		Category:     p.Category,
		Price:        p.Price,
		QtyAvailable: p.QtyAvailable,
		Active:       p.Active,
	}

	if err := r.getDB(ctx).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return product.ErrSKUDuplicate
		}
		return apperrors.Wrap(err, "创建商品失败")
	}

	p.ID = model.ID
	p.CreatedAt = model.CreatedAt
	p.UpdatedAt = model.UpdatedAt
	return nil
}

// GetProducts 返回全部上架商品
func (r *productRepository) GetProducts(ctx context.Context) ([]*product.Product, error) {
	var models []ProductModel
	err := r.getDB(ctx).Where("active = ?", true).Order("category, id").Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询商品列表失败")
	}

	out := make([]*product.Product, 0, len(models))
	for i := range models {
		out = append(out, toProductEntity(&models[i]))
	}
	return out, nil
}

// GetProduct 按ID查找商品(含下架商品)
func (r *productRepository) GetProduct(ctx context.Context, id uint) (*product.Product, error) {
	var model ProductModel
	err := r.getDB(ctx).First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, product.ErrProductNotFound
		}
		return nil, apperrors.Wrap(err, "查询商品失败")
	}
	return toProductEntity(&model), nil
}

// UpdateQty 设置权威库存(绝对值)
// 商品不存在时返回ErrProductNotFound
func (r *productRepository) UpdateQty(ctx context.Context, id uint, newQty int) error {
	if newQty < 0 {
		return product.ErrInvalidQty
	}

	result := r.getDB(ctx).Model(&ProductModel{}).
		Where("id = ?", id).
		Update("qty_available", newQty)

	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新库存失败")
	}
	if result.RowsAffected == 0 {
		// DSN带clientFoundRows=true,按匹配行计数,
		// 同值盘点也算1行,0行只可能是商品不存在
		return product.ErrProductNotFound
	}
	return nil
}

// Update 更新商品信息
func (r *productRepository) Update(ctx context.Context, p *product.Product) error {
	model := &ProductModel{
		ID:           p.ID,
		SKU:          p.SKU,
		Title:        p.Title,
		Category:     p.Category,
		Price:        p.Price,
		QtyAvailable: p.QtyAvailable,
		Active:       p.Active,
		CreatedAt:    p.CreatedAt,
	}

	if err := r.getDB(ctx).Save(model).Error; err != nil {
		return apperrors.Wrap(err, "更新商品失败")
	}
	p.UpdatedAt = model.UpdatedAt
	return nil
}

// toProductEntity GORM模型 → 领域实体
func toProductEntity(model *ProductModel) *product.Product {
	return &product.Product{
		ID:           model.ID,
		SKU:          model.SKU,
		Title:        model.Title,
		Category:     model.Category,
		Price:        model.Price,
		QtyAvailable: model.QtyAvailable,
		Active:       model.Active,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

// getDB 从context获取事务DB,如果没有则使用默认DB
func (r *productRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value("tx").(*gorm.DB); ok {
		return tx
	}
	return r.db.WithContext(ctx)
}
