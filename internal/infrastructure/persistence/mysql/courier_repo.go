package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tilmanziegler21-create/boyboy/internal/domain/courier"
	apperrors "github.com/tilmanziegler21-create/boyboy/pkg/errors"
)

// courierRepository 配送员仓储实现(MySQL)
type courierRepository struct {
	db *gorm.DB
}

// NewCourierRepository 创建配送员仓储
func NewCourierRepository(db *gorm.DB) courier.Repository {
	return &courierRepository{db: db}
}

// Create 创建骑手
func (r *courierRepository) Create(ctx context.Context, c *courier.Courier) error {
	model := &CourierModel{
		TgID:   c.TgID,
		Name:   c.Name,
		Phone:  c.Phone,
		Active: c.Active,
	}
	if err := r.getDB(ctx).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "创建骑手失败")
	}
	c.ID = model.ID
	c.CreatedAt = model.CreatedAt
	c.UpdatedAt = model.UpdatedAt
	return nil
}

// FindByID 按内部ID查找
func (r *courierRepository) FindByID(ctx context.Context, id uint) (*courier.Courier, error) {
	var model CourierModel
	if err := r.getDB(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, courier.ErrCourierNotFound
		}
		return nil, apperrors.Wrap(err, "查询骑手失败")
	}
	return toCourierEntity(&model), nil
}

// FindByTgID 按Telegram ID查找
func (r *courierRepository) FindByTgID(ctx context.Context, tgID int64) (*courier.Courier, error) {
	var model CourierModel
	err := r.getDB(ctx).Where("tg_id = ?", tgID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, courier.ErrCourierNotFound
		}
		return nil, apperrors.Wrap(err, "查询骑手失败")
	}
	return toCourierEntity(&model), nil
}

// ListActive 全部在岗骑手
func (r *courierRepository) ListActive(ctx context.Context) ([]*courier.Courier, error) {
	var models []CourierModel
	err := r.getDB(ctx).Where("active = ?", true).Order("id").Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询骑手列表失败")
	}

	out := make([]*courier.Courier, 0, len(models))
	for i := range models {
		out = append(out, toCourierEntity(&models[i]))
	}
	return out, nil
}

// toCourierEntity GORM模型 → 领域实体
func toCourierEntity(model *CourierModel) *courier.Courier {
	return &courier.Courier{
		ID:        model.ID,
		TgID:      model.TgID,
		Name:      model.Name,
		Phone:     model.Phone,
		Active:    model.Active,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

// getDB 从context获取事务DB,如果没有则使用默认DB
func (r *courierRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value("tx").(*gorm.DB); ok {
		return tx
	}
	return r.db.WithContext(ctx)
}
