package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tilmanziegler21-create/boyboy/internal/domain/order"
	apperrors "github.com/tilmanziegler21-create/boyboy/pkg/errors"
)

// orderRepository 订单仓储实现(MySQL)
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) order.Repository {
	return &orderRepository{db: db}
}

// Create 创建订单及明细(同一事务)
func (r *orderRepository) Create(ctx context.Context, o *order.Order) error {
	model := toOrderModel(o)

	err := r.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return err
		}

		items := make([]OrderItemModel, 0, len(o.Items))
		for _, it := range o.Items {
			items = append(items, OrderItemModel{
				OrderID:   model.ID,
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				Price:     it.Price,
			})
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}

		for i := range items {
			o.Items[i].ID = items[i].ID
			o.Items[i].OrderID = model.ID
		}
		return nil
	})
	if err != nil {
		if isDuplicateError(err) {
			return order.ErrOrderNoDuplicate
		}
		return apperrors.Wrap(err, "创建订单失败")
	}

	o.ID = model.ID
	o.CreatedAt = model.CreatedAt
	o.UpdatedAt = model.UpdatedAt
	return nil
}

// FindByID 按ID查找订单(含明细)
func (r *orderRepository) FindByID(ctx context.Context, id uint) (*order.Order, error) {
	var model OrderModel
	if err := r.getDB(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(err, "查询订单失败")
	}
	return r.attachItems(ctx, &model)
}

// FindByOrderNo 按订单号查找订单(含明细)
func (r *orderRepository) FindByOrderNo(ctx context.Context, orderNo string) (*order.Order, error) {
	var model OrderModel
	err := r.getDB(ctx).Where("order_no = ?", orderNo).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(err, "查询订单失败")
	}
	return r.attachItems(ctx, &model)
}

// Update 更新订单(状态、派单信息、表格提交标记)
func (r *orderRepository) Update(ctx context.Context, o *order.Order) error {
	model := toOrderModel(o)
	model.CreatedAt = o.CreatedAt

	if err := r.getDB(ctx).Save(model).Error; err != nil {
		return apperrors.Wrap(err, "更新订单失败")
	}
	o.UpdatedAt = model.UpdatedAt
	return nil
}

// ListByCourier 某骑手的订单,可按状态过滤(status=0表示不过滤)
func (r *orderRepository) ListByCourier(ctx context.Context, courierID uint, status order.OrderStatus) ([]*order.Order, error) {
	query := r.getDB(ctx).Where("courier_id = ?", courierID)
	if status != 0 {
		query = query.Where("status = ?", int(status))
	}

	var models []OrderModel
	if err := query.Order("created_at").Find(&models).Error; err != nil {
		return nil, apperrors.Wrap(err, "查询骑手订单失败")
	}

	out := make([]*order.Order, 0, len(models))
	for i := range models {
		o, err := r.attachItems(ctx, &models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// MarkSheetsCommitted 仅当sheets_committed=0时置1
// 谓词更新让表格镜像提交天然幂等:第二次调用返回0行
func (r *orderRepository) MarkSheetsCommitted(ctx context.Context, orderID uint) (int64, error) {
	result := r.getDB(ctx).Model(&OrderModel{}).
		Where("id = ? AND sheets_committed = ?", orderID, false).
		Update("sheets_committed", true)

	if result.Error != nil {
		return 0, apperrors.Wrap(result.Error, "标记表格提交失败")
	}
	return result.RowsAffected, nil
}

// attachItems 加载订单明细并转换为领域实体
func (r *orderRepository) attachItems(ctx context.Context, model *OrderModel) (*order.Order, error) {
	var items []OrderItemModel
	if err := r.getDB(ctx).Where("order_id = ?", model.ID).Find(&items).Error; err != nil {
		return nil, apperrors.Wrap(err, "查询订单明细失败")
	}
	return toOrderEntity(model, items), nil
}

// toOrderModel 领域实体 → GORM模型
func toOrderModel(o *order.Order) *OrderModel {
	return &OrderModel{
		ID:              o.ID,
		OrderNo:         o.OrderNo,
		CustomerTgID:    o.CustomerTgID,
		CustomerName:    o.CustomerName,
		Address:         o.Address,
		CourierID:       o.CourierID,
		DeliveryDate:    o.DeliveryDate,
		DeliverySlot:    o.DeliverySlot,
		Total:           o.Total,
		Status:          int(o.Status),
		SheetsCommitted: o.SheetsCommitted,
	}
}

// toOrderEntity GORM模型 → 领域实体
func toOrderEntity(model *OrderModel, items []OrderItemModel) *order.Order {
	o := &order.Order{
		ID:              model.ID,
		OrderNo:         model.OrderNo,
		CustomerTgID:    model.CustomerTgID,
		CustomerName:    model.CustomerName,
		Address:         model.Address,
		CourierID:       model.CourierID,
		DeliveryDate:    model.DeliveryDate,
		DeliverySlot:    model.DeliverySlot,
		Total:           model.Total,
		Status:          order.OrderStatus(model.Status),
		SheetsCommitted: model.SheetsCommitted,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
	for _, it := range items {
		o.Items = append(o.Items, order.OrderItem{
			ID:        it.ID,
			OrderID:   it.OrderID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	return o
}

// getDB 从context获取事务DB,如果没有则使用默认DB
func (r *orderRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value("tx").(*gorm.DB); ok {
		return tx
	}
	return r.db.WithContext(ctx)
}
