package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tilmanziegler21-create/boyboy/internal/domain/reservation"
	apperrors "github.com/tilmanziegler21-create/boyboy/pkg/errors"
)

// reservationRepository 预留仓储实现(MySQL)
type reservationRepository struct {
	db *gorm.DB
}

// NewReservationRepository 创建预留仓储
func NewReservationRepository(db *gorm.DB) reservation.Repository {
	return &reservationRepository{db: db}
}

// InsertBatch 在一个事务里插入一批预留行
func (r *reservationRepository) InsertBatch(ctx context.Context, rs []*reservation.Reservation) error {
	if len(rs) == 0 {
		return nil
	}

	models := make([]ReservationModel, 0, len(rs))
	for _, row := range rs {
		models = append(models, ReservationModel{
			OrderID:          row.OrderID,
			ProductID:        row.ProductID,
			Qty:              row.Qty,
			ReserveTimestamp: row.ReserveTimestamp,
			ExpiryTimestamp:  row.ExpiryTimestamp,
			Released:         row.Released,
		})
	}

	err := r.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&models).Error
	})
	if err != nil {
		return apperrors.Wrap(err, "写入预留失败")
	}

	for i := range rs {
		rs[i].ID = models[i].ID
	}
	return nil
}

// ReleaseByOrderProduct 按(订单,商品)翻转released=0→1
// released谓词保证重复调用是空操作,返回受影响行数
func (r *reservationRepository) ReleaseByOrderProduct(ctx context.Context, orderID, productID uint) (int64, error) {
	result := r.getDB(ctx).Model(&ReservationModel{}).
		Where("order_id = ? AND product_id = ? AND released = ?", orderID, productID, false).
		Update("released", true)

	if result.Error != nil {
		return 0, apperrors.Wrap(result.Error, "释放预留失败")
	}
	return result.RowsAffected, nil
}

// LiveTotals 聚合有效预留(released=0且未过期),按商品分组求和
// SELECT product_id, SUM(qty) FROM reservations
//
//	WHERE released = 0 AND expiry_timestamp > ? GROUP BY product_id
func (r *reservationRepository) LiveTotals(ctx context.Context, now time.Time) (map[uint]int, error) {
	type row struct {
		ProductID uint
		Total     int
	}
	var rows []row

	err := r.getDB(ctx).Model(&ReservationModel{}).
		Select("product_id, SUM(qty) AS total").
		Where("released = ? AND expiry_timestamp > ?", false, now).
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "聚合有效预留失败")
	}

	totals := make(map[uint]int, len(rows))
	for _, r := range rows {
		totals[r.ProductID] = r.Total
	}
	return totals, nil
}

// getDB 从context获取事务DB,如果没有则使用默认DB
func (r *reservationRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value("tx").(*gorm.DB); ok {
		return tx
	}
	return r.db.WithContext(ctx)
}
