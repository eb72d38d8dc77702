package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductStatus 定义商品的上下架状态。
type ProductStatus string

const (
	StatusActive     ProductStatus = "active"       // 在售
	StatusInactive   ProductStatus = "inactive"     // 下架
	StatusOutOfStock ProductStatus = "out_of_stock" // 缺货
)

// Product 是商品聚合的根实体。
// StockQuantity 只能经由仓储的库存变更操作修改，Version 随每次变更单调递增。
type Product struct {
	ID            uint64
	Name          string
	Description   string
	Keywords      string
	Price         decimal.Decimal
	StockQuantity int
	Status        ProductStatus
	Version       uint32
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsActive 判断商品是否可售。
func (p *Product) IsActive() bool {
	return p.Status == StatusActive
}

// HasStock 判断当前库存是否满足所需数量。
// 扣减前必须先通过此检查，仓储层不会重复校验非负约束。
func (p *Product) HasStock(required int) bool {
	return p.StockQuantity >= required
}

// ProductPage 是带分页信息的商品查询结果。
type ProductPage struct {
	Products    []*Product `json:"products"`
	Total       int64      `json:"total"`
	Page        int        `json:"page"`
	Size        int        `json:"size"`
	TotalPages  int        `json:"total_pages"`
	HasNext     bool       `json:"has_next"`
	HasPrevious bool       `json:"has_previous"`
}
