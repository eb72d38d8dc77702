package domain

import "errors"

var (
	// ErrOrderNotFound 表示订单号不存在。
	ErrOrderNotFound = errors.New("order not found")

	// ErrOrderNoConflict 表示订单号撞上了唯一索引，调用方可换号重试。
	ErrOrderNoConflict = errors.New("order number already taken")
)
