package infrastructure

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderModel 对应数据库中的 orders 表。
type OrderModel struct {
	ID          uint64          `gorm:"primaryKey"`
	OrderNo     string          `gorm:"size:50;uniqueIndex;not null"`
	UserID      uint64          `gorm:"index;not null"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Status      string          `gorm:"size:20;index;not null;default:pending"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// 订单独占其条目，删除订单时级联删除
	Items []OrderItemModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// TableName 指定 GORM 应该使用的表名。
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel 对应数据库中的 order_items 表，只插入不更新。
// ProductID 为 NULL 表示下单时商品完全无法解析。
type OrderItemModel struct {
	ID           uint64          `gorm:"primaryKey"`
	OrderID      uint64          `gorm:"index;not null"`
	ProductID    *uint64         `gorm:"index"`
	Quantity     int             `gorm:"not null"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	TotalPrice   decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Status       string          `gorm:"size:20;not null"`
	ErrorMessage string          `gorm:"type:text"`
	CreatedAt    time.Time
}

// TableName 指定 GORM 应该使用的表名。
func (OrderItemModel) TableName() string {
	return "order_items"
}
