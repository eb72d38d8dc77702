package domain

import (
	"errors"
	"fmt"
)

// 业务条件类错误。批量下单时它们只标记单个条目失败，不会中断批次。
var (
	// ErrProductNotFound 表示商品不存在或完全不可解析。
	ErrProductNotFound = errors.New("product not found or unavailable")

	// ErrConcurrentUpdate 表示行锁等待超时或写冲突，调用方可安全重试。
	ErrConcurrentUpdate = errors.New("concurrent update conflict, please retry")
)

// ProductNotActiveError 表示商品存在但已下架或不可售。
type ProductNotActiveError struct {
	ProductName string
}

func (e *ProductNotActiveError) Error() string {
	return fmt.Sprintf("product %s is inactive or unavailable", e.ProductName)
}

// InsufficientStockError 携带库存不足的结构化明细，
// 供失败条目回传可用/所需数量。
type InsufficientStockError struct {
	ProductName    string
	AvailableStock int
	RequiredStock  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("product %s has insufficient stock: available %d, required %d",
		e.ProductName, e.AvailableStock, e.RequiredStock)
}
