package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus 是订单聚合的状态。
// pending 只在批次处理期间存在，终态三选一且此后不再变化。
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"   // 批次处理中
	StatusCompleted OrderStatus = "completed" // 全部条目成功
	StatusPartial   OrderStatus = "partial"   // 部分成功
	StatusFailed    OrderStatus = "failed"    // 全部失败或批次致命错误
)

// ItemStatus 是单个订单条目的最终状态。
type ItemStatus string

const (
	ItemSuccess ItemStatus = "success"
	ItemFailed  ItemStatus = "failed"
)

// Order 是订单聚合的根实体。
// 生命周期内只被写两次: 创建时置为 pending、批次结束时一次性落终态和总额。
type Order struct {
	ID          uint64
	OrderNo     string
	UserID      uint64
	TotalAmount decimal.Decimal
	Status      OrderStatus
	Items       []*OrderItem // 追加顺序即处理顺序
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderItem 是订单下的一个条目，创建后不可变。
// ProductID 为 nil 表示商品完全无法解析。
type OrderItem struct {
	ID           uint64
	OrderID      uint64
	ProductID    *uint64
	Quantity     int
	UnitPrice    decimal.Decimal
	TotalPrice   decimal.Decimal // 仅成功条目非零
	Status       ItemStatus
	ErrorMessage string
	CreatedAt    time.Time
}

// AggregateStatus 由条目结果集计算订单终态。
// 批次非空是调用前置条件，所以两个计数不会同时为零。
func AggregateStatus(succeeded, failed int) OrderStatus {
	switch {
	case failed == 0:
		return StatusCompleted
	case succeeded == 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}
