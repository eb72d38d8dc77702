package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Repository 定义订单聚合的持久化接口，由基础设施层的 GORM 实现提供。
type Repository interface {
	// Create 以 pending 状态、总额 0 创建订单主记录。
	Create(ctx context.Context, orderNo string, userID uint64) (*Order, error)

	// Finalize 一次性持久化订单终态与总额。
	Finalize(ctx context.Context, order *Order, total decimal.Decimal, status OrderStatus) error

	// CreateItem 持久化一个不可变条目并回填其 ID。
	// status 为 success 时 TotalPrice = UnitPrice × Quantity，否则为 0。
	CreateItem(ctx context.Context, item *OrderItem) error

	// GetByOrderNo 返回订单及其全部条目，走读缓存。
	GetByOrderNo(ctx context.Context, orderNo string) (*Order, error)

	// ListByUser 按创建时间倒序返回用户订单分页。
	ListByUser(ctx context.Context, userID uint64, page, size int) ([]*Order, int64, error)

	// InvalidateCache 尽力而为地清除订单相关缓存，在工作单元提交后调用。
	InvalidateCache(ctx context.Context, orderNo string)
}

// UnitOfWork 把一段仓储操作纳入同一个原子工作单元:
// fn 返回 nil 则整体提交，返回错误则整体回滚并原样返回该错误。
// 工作单元内获取的行锁随提交或回滚释放。
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
