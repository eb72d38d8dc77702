package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"comerge/internal/pkg/cache"
	"comerge/internal/pkg/database"
	"comerge/internal/service/product/domain"
)

const (
	productDetailTTL = time.Hour
	productSearchTTL = 30 * time.Minute

	productDetailKeyFmt = "product:detail:%d"
	productSearchKeyFmt = "product:search:%s:%d:%d"
	productListPrefix   = "product:list"
	productSearchPrefix = "product:search"
)

// GormProductRepository 是 domain.Repository 的 GORM 实现。
// 读操作走旁路缓存；库存变更在调用方的工作单元内执行，不在这里开事务。
type GormProductRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewGormProductRepository 创建商品仓储实例。
func NewGormProductRepository(db *gorm.DB, c *cache.Cache) *GormProductRepository {
	return &GormProductRepository{db: db, cache: c}
}

// GetByID 读缓存返回在售商品；不存在或非在售返回 ErrProductNotFound。
func (r *GormProductRepository) GetByID(ctx context.Context, id uint64) (*domain.Product, error) {
	var product domain.Product
	key := fmt.Sprintf(productDetailKeyFmt, id)

	err := r.cache.GetOrSet(ctx, key, &product, productDetailTTL, func(ctx context.Context) (interface{}, error) {
		var model ProductModel
		err := database.FromContext(ctx, r.db).WithContext(ctx).
			Where("id = ? AND status = ?", id, domain.StatusActive).
			First(&model).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		if err != nil {
			return nil, err
		}
		return ToDomainProduct(&model), nil
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetWithLock 以 SELECT ... FOR UPDATE 读取商品行。
// 锁由包裹此调用的工作单元持有，提交或回滚时释放；
// 不论状态均返回行，由业务层做 not-found/inactive 分类。
func (r *GormProductRepository) GetWithLock(ctx context.Context, id uint64) (*domain.Product, error) {
	var model ProductModel
	err := database.FromContext(ctx, r.db).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&model).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, domain.ErrProductNotFound
	case database.IsLockConflict(err):
		return nil, domain.ErrConcurrentUpdate
	case err != nil:
		return nil, err
	}
	return ToDomainProduct(&model), nil
}

// UpdateStock 原子地应用库存增量并记台账。
// 调用方必须已经持有行锁且校验过数量充足；
// 版本号作为二道冲突防线，不匹配时返回 ErrConcurrentUpdate。
func (r *GormProductRepository) UpdateStock(ctx context.Context, p *domain.Product, delta int, orderID *uint64, reason string) error {
	return r.mutateStock(ctx, p, p.StockQuantity+delta, domain.ChangeTypeForDelta(delta), orderID, reason)
}

// AdjustStock 把库存盘点为绝对值，台账类别固定为 adjust。
func (r *GormProductRepository) AdjustStock(ctx context.Context, p *domain.Product, newQuantity int, reason string) error {
	return r.mutateStock(ctx, p, newQuantity, domain.ChangeAdjust, nil, reason)
}

func (r *GormProductRepository) mutateStock(ctx context.Context, p *domain.Product,
	newQuantity int, changeType domain.ChangeType, orderID *uint64, reason string) error {

	db := database.FromContext(ctx, r.db).WithContext(ctx)
	newVersion := p.Version + 1

	res := db.Model(&ProductModel{}).
		Where("id = ? AND version = ?", p.ID, p.Version).
		Updates(map[string]interface{}{
			"stock_quantity": newQuantity,
			"version":        newVersion,
		})
	if res.Error != nil {
		if database.IsLockConflict(res.Error) {
			return domain.ErrConcurrentUpdate
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrConcurrentUpdate
	}

	logRow := StockLogModel{
		ProductID:      p.ID,
		OrderID:        orderID,
		ChangeType:     string(changeType),
		QuantityBefore: p.StockQuantity,
		QuantityAfter:  newQuantity,
		ChangeQuantity: newQuantity - p.StockQuantity,
		Reason:         reason,
	}
	if err := db.Create(&logRow).Error; err != nil {
		return err
	}

	p.StockQuantity = newQuantity
	p.Version = newVersion
	return nil
}

// Search 按关键词搜索在售商品，结果页整体缓存。
func (r *GormProductRepository) Search(ctx context.Context, keyword string, page, size int) (*domain.ProductPage, error) {
	var result domain.ProductPage
	key := fmt.Sprintf(productSearchKeyFmt, keyword, page, size)

	err := r.cache.GetOrSet(ctx, key, &result, productSearchTTL, func(ctx context.Context) (interface{}, error) {
		db := database.FromContext(ctx, r.db).WithContext(ctx)
		pattern := "%" + keyword + "%"

		query := db.Model(&ProductModel{}).
			Where("status = ?", domain.StatusActive).
			Where("name LIKE ? OR keywords LIKE ? OR description LIKE ?", pattern, pattern, pattern)

		var total int64
		if err := query.Count(&total).Error; err != nil {
			return nil, err
		}

		var models []ProductModel
		if err := query.Order("created_at DESC").
			Offset((page - 1) * size).Limit(size).
			Find(&models).Error; err != nil {
			return nil, err
		}

		products := make([]*domain.Product, 0, len(models))
		for i := range models {
			products = append(products, ToDomainProduct(&models[i]))
		}

		totalPages := int((total + int64(size) - 1) / int64(size))
		return &domain.ProductPage{
			Products:    products,
			Total:       total,
			Page:        page,
			Size:        size,
			TotalPages:  totalPages,
			HasNext:     page < totalPages,
			HasPrevious: page > 1,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ListStockLogs 按创建时间倒序返回台账分页，不走缓存。
func (r *GormProductRepository) ListStockLogs(ctx context.Context, productID uint64, page, size int) ([]*domain.StockLog, int64, error) {
	db := database.FromContext(ctx, r.db).WithContext(ctx)
	query := db.Model(&StockLogModel{}).Where("product_id = ?", productID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []StockLogModel
	if err := query.Order("created_at DESC, id DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}

	logs := make([]*domain.StockLog, 0, len(models))
	for i := range models {
		logs = append(logs, ToDomainStockLog(&models[i]))
	}
	return logs, total, nil
}

// InvalidateCache 清除商品详情与列表/搜索缓存，尽力而为。
func (r *GormProductRepository) InvalidateCache(ctx context.Context, productIDs ...uint64) {
	keys := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		keys = append(keys, fmt.Sprintf(productDetailKeyFmt, id))
	}
	r.cache.Delete(ctx, keys...)
	r.cache.DeleteByPrefix(ctx, productListPrefix)
	r.cache.DeleteByPrefix(ctx, productSearchPrefix)
}
