package infrastructure

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductModel 对应数据库中的 products 表。
type ProductModel struct {
	ID            uint64          `gorm:"primaryKey"`
	Name          string          `gorm:"size:255;index;not null"`
	Description   string          `gorm:"type:text"`
	Keywords      string          `gorm:"size:255;index"`
	Price         decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	StockQuantity int             `gorm:"not null;default:0"`
	Status        string          `gorm:"size:20;index;not null;default:active"`
	Version       uint32          `gorm:"not null;default:1"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName 指定 GORM 应该使用的表名。
func (ProductModel) TableName() string {
	return "products"
}

// StockLogModel 对应数据库中的 stock_logs 表，只插入不更新。
type StockLogModel struct {
	ID             uint64    `gorm:"primaryKey"`
	ProductID      uint64    `gorm:"index;not null"`
	OrderID        *uint64   `gorm:"index"`
	ChangeType     string    `gorm:"size:20;not null"`
	QuantityBefore int       `gorm:"not null"`
	QuantityAfter  int       `gorm:"not null"`
	ChangeQuantity int       `gorm:"not null"`
	Reason         string    `gorm:"size:255"`
	CreatedAt      time.Time `gorm:"index"`
}

// TableName 指定 GORM 应该使用的表名。
func (StockLogModel) TableName() string {
	return "stock_logs"
}
