package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 批量下单核心链路的打点。
// label 取值与领域内的终态/条目结果一一对应，避免自由文本导致基数爆炸。
var (
	OrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "comerge",
		Name:      "orders_total",
		Help:      "Finalized batch orders by terminal status.",
	}, []string{"status"})

	OrderItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "comerge",
		Name:      "order_items_total",
		Help:      "Processed order items by outcome kind.",
	}, []string{"outcome"})

	StockUnitsDecremented = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "comerge",
		Name:      "stock_units_decremented_total",
		Help:      "Units of stock successfully decremented by committed orders.",
	})

	BatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "comerge",
		Name:      "batch_order_duration_seconds",
		Help:      "Wall time of one batch order transaction.",
		Buckets:   prometheus.DefBuckets,
	})
)
