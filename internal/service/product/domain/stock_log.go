package domain

import "time"

// ChangeType 是库存变更的类别。
type ChangeType string

const (
	ChangeDecrease ChangeType = "decrease" // 订单扣减
	ChangeIncrease ChangeType = "increase" // 补货
	ChangeAdjust   ChangeType = "adjust"   // 盘点调整
)

// StockLog 是一条只追加的库存台账记录，创建后不再修改。
// 同一商品的台账按创建顺序构成无缝链条:
// 每条的 QuantityBefore 等于上一条的 QuantityAfter。
type StockLog struct {
	ID             uint64
	ProductID      uint64
	OrderID        *uint64 // 引发变更的订单，盘点/补货时为空
	ChangeType     ChangeType
	QuantityBefore int
	QuantityAfter  int
	ChangeQuantity int // 带符号增量
	Reason         string
	CreatedAt      time.Time
}

// Consistent 校验单条台账自身的不变式:
// 变更后 = 变更前 + 增量，且增量符号与类别匹配。
func (l *StockLog) Consistent() bool {
	if l.QuantityAfter != l.QuantityBefore+l.ChangeQuantity {
		return false
	}
	switch l.ChangeType {
	case ChangeDecrease:
		return l.ChangeQuantity < 0
	case ChangeIncrease:
		return l.ChangeQuantity > 0
	case ChangeAdjust:
		return true
	default:
		return false
	}
}

// ChangeTypeForDelta 根据增量符号推断变更类别，盘点调整除外。
func ChangeTypeForDelta(delta int) ChangeType {
	if delta < 0 {
		return ChangeDecrease
	}
	return ChangeIncrease
}
