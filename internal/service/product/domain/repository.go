package domain

import "context"

// Repository 定义商品及其库存台账的持久化接口。
// 它位于领域层，由基础设施层的 GORM 实现提供。
type Repository interface {
	// GetByID 返回在售商品，走读缓存；不存在或非在售返回 ErrProductNotFound。
	GetByID(ctx context.Context, id uint64) (*Product, error)

	// GetWithLock 返回商品行并持有排他行锁，锁随调用方所在工作单元
	// 的提交或回滚自动释放。商品不论状态均返回，由调用方分类；
	// 锁等待超时映射为 ErrConcurrentUpdate。
	GetWithLock(ctx context.Context, id uint64) (*Product, error)

	// UpdateStock 原子地应用库存增量: 更新数量、递增版本号、
	// 追加一条台账。非负前置条件由调用方负责，此处不重复校验。
	UpdateStock(ctx context.Context, p *Product, delta int, orderID *uint64, reason string) error

	// AdjustStock 把库存设置为绝对值，台账类别为 adjust。
	AdjustStock(ctx context.Context, p *Product, newQuantity int, reason string) error

	// Search 按关键词搜索在售商品，结果带分页信息，走读缓存。
	Search(ctx context.Context, keyword string, page, size int) (*ProductPage, error)

	// ListStockLogs 按创建时间倒序返回商品的台账分页。
	ListStockLogs(ctx context.Context, productID uint64, page, size int) ([]*StockLog, int64, error)

	// InvalidateCache 尽力而为地清除商品相关缓存，在工作单元提交后调用。
	InvalidateCache(ctx context.Context, productIDs ...uint64)
}
