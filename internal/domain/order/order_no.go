package order

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateOrderNo 生成订单号
// 格式:日期前缀 + uuid前8位,如 20260828-1a2b3c4d
// 日期前缀便于店主按天翻找,uuid段保证全局唯一
func GenerateOrderNo(now time.Time) string {
	return fmt.Sprintf("%s-%s", now.Format("20060102"), uuid.NewString()[:8])
}
