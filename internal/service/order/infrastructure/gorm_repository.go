package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"comerge/internal/pkg/cache"
	"comerge/internal/pkg/database"
	"comerge/internal/service/order/domain"
)

const (
	orderDetailTTL = time.Hour
	orderListTTL   = 10 * time.Minute

	orderDetailKeyFmt = "order:detail:%s"
	orderListKeyFmt   = "order:list:%d:%d:%d"
	orderListPrefix   = "order:list"
)

// GormOrderRepository 是 domain.Repository 的 GORM 实现。
type GormOrderRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewGormOrderRepository 创建订单仓储实例。
func NewGormOrderRepository(db *gorm.DB, c *cache.Cache) *GormOrderRepository {
	return &GormOrderRepository{db: db, cache: c}
}

// Create 以 pending 状态、总额 0 插入订单主记录。
// 订单号撞唯一索引时返回 ErrOrderNoConflict，调用方换号重试。
func (r *GormOrderRepository) Create(ctx context.Context, orderNo string, userID uint64) (*domain.Order, error) {
	model := OrderModel{
		OrderNo:     orderNo,
		UserID:      userID,
		TotalAmount: decimal.Zero,
		Status:      string(domain.StatusPending),
	}
	err := database.FromContext(ctx, r.db).WithContext(ctx).Create(&model).Error
	if err != nil {
		if database.IsDuplicateEntry(err) {
			return nil, domain.ErrOrderNoConflict
		}
		return nil, err
	}
	return ToDomainOrder(&model), nil
}

// Finalize 一次性落终态与总额。
func (r *GormOrderRepository) Finalize(ctx context.Context, order *domain.Order, total decimal.Decimal, status domain.OrderStatus) error {
	err := database.FromContext(ctx, r.db).WithContext(ctx).
		Model(&OrderModel{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"total_amount": total,
			"status":       string(status),
		}).Error
	if err != nil {
		return err
	}
	order.TotalAmount = total
	order.Status = status
	return nil
}

// CreateItem 持久化一个不可变条目并回填 ID 与小计。
// 小计只对成功条目计算，失败条目固定为 0。
func (r *GormOrderRepository) CreateItem(ctx context.Context, item *domain.OrderItem) error {
	totalPrice := decimal.Zero
	if item.Status == domain.ItemSuccess {
		totalPrice = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
	}

	model := OrderItemModel{
		OrderID:      item.OrderID,
		ProductID:    item.ProductID,
		Quantity:     item.Quantity,
		UnitPrice:    item.UnitPrice,
		TotalPrice:   totalPrice,
		Status:       string(item.Status),
		ErrorMessage: item.ErrorMessage,
	}
	if err := database.FromContext(ctx, r.db).WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}

	item.ID = model.ID
	item.TotalPrice = totalPrice
	item.CreatedAt = model.CreatedAt
	return nil
}

// GetByOrderNo 读缓存返回订单及全部条目（条目按写入顺序）。
func (r *GormOrderRepository) GetByOrderNo(ctx context.Context, orderNo string) (*domain.Order, error) {
	var order domain.Order
	key := fmt.Sprintf(orderDetailKeyFmt, orderNo)

	err := r.cache.GetOrSet(ctx, key, &order, orderDetailTTL, func(ctx context.Context) (interface{}, error) {
		var model OrderModel
		err := database.FromContext(ctx, r.db).WithContext(ctx).
			Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id ASC") }).
			Where("order_no = ?", orderNo).
			First(&model).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		if err != nil {
			return nil, err
		}
		return ToDomainOrder(&model), nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// orderListPage 是用户订单列表的缓存载体。
type orderListPage struct {
	Orders []*domain.Order `json:"orders"`
	Total  int64           `json:"total"`
}

// ListByUser 按创建时间倒序返回用户订单分页，结果页整体缓存。
func (r *GormOrderRepository) ListByUser(ctx context.Context, userID uint64, page, size int) ([]*domain.Order, int64, error) {
	var result orderListPage
	key := fmt.Sprintf(orderListKeyFmt, userID, page, size)

	err := r.cache.GetOrSet(ctx, key, &result, orderListTTL, func(ctx context.Context) (interface{}, error) {
		db := database.FromContext(ctx, r.db).WithContext(ctx)
		query := db.Model(&OrderModel{}).Where("user_id = ?", userID)

		var total int64
		if err := query.Count(&total).Error; err != nil {
			return nil, err
		}

		var models []OrderModel
		if err := query.Order("created_at DESC, id DESC").
			Offset((page - 1) * size).Limit(size).
			Find(&models).Error; err != nil {
			return nil, err
		}

		orders := make([]*domain.Order, 0, len(models))
		for i := range models {
			orders = append(orders, ToDomainOrder(&models[i]))
		}
		return &orderListPage{Orders: orders, Total: total}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return result.Orders, result.Total, nil
}

// InvalidateCache 清除订单详情与列表缓存，尽力而为。
func (r *GormOrderRepository) InvalidateCache(ctx context.Context, orderNo string) {
	r.cache.Delete(ctx, fmt.Sprintf(orderDetailKeyFmt, orderNo))
	r.cache.DeleteByPrefix(ctx, orderListPrefix)
}
