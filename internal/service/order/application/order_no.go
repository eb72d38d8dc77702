package application

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateOrderNo 生成全局唯一、按创建时间可排序的订单号。
// 格式: ORD + 秒级时间戳 + 6 位随机后缀，时间戳前缀保证排序性，
// 随机后缀消除同秒冲突（撞号概率极低，真正的唯一性由订单号唯一索引兜底）。
func GenerateOrderNo() string {
	timestamp := time.Now().Format("20060102150405")
	suffix := strings.ToUpper(uuid.NewString()[:6])
	return "ORD" + timestamp + suffix
}
