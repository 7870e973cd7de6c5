package mysql

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tilmanziegler21-create/boyboy/internal/infrastructure/config"
	"github.com/tilmanziegler21-create/boyboy/pkg/logger"
)

// NewDB 创建数据库连接
// 设计说明：
// 1. 使用GORM v2作为ORM框架
// 2. 配置连接池参数（MaxOpenConns、MaxIdleConns、ConnMaxLifetime）
// 3. 开发环境开启SQL日志，生产环境关闭
// 4. 自动迁移表结构（AutoMigrate）
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := cfg.Database.DSN()

	logLevel := gormlogger.Silent
	if cfg.Server.Mode == "debug" {
		logLevel = gormlogger.Info // 开发环境打印SQL
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	logger.Info().Msg("数据库连接成功")

	// 注意：生产环境应使用专门的迁移工具（如golang-migrate）
	if err := autoMigrate(db); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	return db, nil
}

// autoMigrate 自动迁移表结构
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&ProductModel{},
		&ReservationModel{},
		&OrderModel{},
		&OrderItemModel{},
		&CourierModel{},
	)
}

// ProductModel GORM商品模型
// 设计说明：
// 1. 这是infrastructure层的数据模型，包含GORM tag
// 2. domain/product/entity.go是领域实体，不依赖GORM
// 3. Repository负责两者之间的转换
// 4. QtyAvailable是权威库存，只被最终扣减和补货修改，
//    预留创建从不触碰它
type ProductModel struct {
	ID           uint      `gorm:"primaryKey"`
	SKU          string    `gorm:"uniqueIndex;size:64;not null;comment:商品编码"`
	Title        string    `gorm:"size:200;not null;comment:商品名"`
	Category     string    `gorm:"index;size:50;comment:分类"`
	Price        int64     `gorm:"not null;comment:价格（分）"`
	QtyAvailable int       `gorm:"not null;default:0;comment:权威库存"`
	Active       bool      `gorm:"not null;default:true;comment:是否上架"`
	CreatedAt    time.Time `gorm:"comment:创建时间"`
	UpdatedAt    time.Time `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (ProductModel) TableName() string {
	return "products"
}

// ReservationModel GORM预留模型
// 设计说明：
// 1. 软释放：released只从0翻到1，从不删除行
// 2. 复合索引(order_id, product_id)支撑释放谓词，
//    (released, expiry_timestamp)支撑有效预留聚合
// 3. order_id=0表示购物车占位
type ReservationModel struct {
	ID               uint      `gorm:"primaryKey"`
	OrderID          uint      `gorm:"index:idx_order_product;not null;comment:订单ID（0=购物车）"`
	ProductID        uint      `gorm:"index:idx_order_product;not null;comment:商品ID"`
	Qty              int       `gorm:"not null;comment:预留数量"`
	ReserveTimestamp time.Time `gorm:"not null;comment:预留时间"`
	ExpiryTimestamp  time.Time `gorm:"index:idx_live;not null;comment:过期时间"`
	Released         bool      `gorm:"index:idx_live;not null;default:false;comment:已释放"`
}

// TableName 指定表名
func (ReservationModel) TableName() string {
	return "reservations"
}

// OrderModel GORM订单模型
type OrderModel struct {
	ID              uint      `gorm:"primaryKey"`
	OrderNo         string    `gorm:"uniqueIndex;size:32;not null;comment:订单号"`
	CustomerTgID    int64     `gorm:"index;not null;comment:顾客Telegram ID"`
	CustomerName    string    `gorm:"size:100;comment:顾客称呼"`
	Address         string    `gorm:"size:255;comment:配送地址"`
	CourierID       uint      `gorm:"index:idx_courier_status;comment:骑手ID（0=未派单）"`
	DeliveryDate    string    `gorm:"size:10;comment:配送日期"`
	DeliverySlot    string    `gorm:"size:20;comment:配送时段"`
	Total           int64     `gorm:"not null;comment:总金额（分）"`
	Status          int       `gorm:"index:idx_courier_status;not null;comment:状态"`
	SheetsCommitted bool      `gorm:"not null;default:false;comment:已镜像到表格"`
	CreatedAt       time.Time `gorm:"comment:创建时间"`
	UpdatedAt       time.Time `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel GORM订单明细模型
type OrderItemModel struct {
	ID        uint  `gorm:"primaryKey"`
	OrderID   uint  `gorm:"index;not null;comment:所属订单ID"`
	ProductID uint  `gorm:"not null;comment:商品ID"`
	Quantity  int   `gorm:"not null;comment:数量"`
	Price     int64 `gorm:"not null;comment:下单时单价（分）"`
}

// TableName 指定表名
func (OrderItemModel) TableName() string {
	return "order_items"
}

// CourierModel GORM配送员模型
type CourierModel struct {
	ID        uint      `gorm:"primaryKey"`
	TgID      int64     `gorm:"uniqueIndex;not null;comment:Telegram用户ID"`
	Name      string    `gorm:"size:100;not null;comment:称呼"`
	Phone     string    `gorm:"size:20;comment:电话"`
	Active    bool      `gorm:"not null;default:true;comment:是否在岗"`
	CreatedAt time.Time `gorm:"comment:创建时间"`
	UpdatedAt time.Time `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (CourierModel) TableName() string {
	return "couriers"
}
