package domain

import "github.com/shopspring/decimal"

// OutcomeKind 是单条目处理结果的标签。
// 业务性失败不作为 error 向上传播，而是在这里显式分类，
// 由批次聚合逻辑对标签做穷举分支。
type OutcomeKind string

const (
	OutcomeSuccess           OutcomeKind = "success"
	OutcomeProductNotFound   OutcomeKind = "product_not_found"
	OutcomeProductInactive   OutcomeKind = "product_inactive"
	OutcomeInsufficientStock OutcomeKind = "insufficient_stock"
	OutcomeInvalidQuantity   OutcomeKind = "invalid_quantity"
	OutcomeConflict          OutcomeKind = "conflict"
)

// ItemOutcome 是单个条目的处理结果。
// 基础设施类错误不会出现在这里，它们会中止整个批次。
type ItemOutcome struct {
	Kind         OutcomeKind
	ProductID    uint64
	ProductName  string
	Quantity     int
	UnitPrice    decimal.Decimal
	TotalPrice   decimal.Decimal
	OrderItemID  uint64
	ErrorMessage string

	// 仅 Kind == OutcomeInsufficientStock 时有意义
	AvailableStock int
	RequiredStock  int
}

// Succeeded 报告该条目是否成功扣减并计价。
func (o *ItemOutcome) Succeeded() bool {
	return o.Kind == OutcomeSuccess
}
