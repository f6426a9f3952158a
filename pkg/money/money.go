package money

import (
	"fmt"
	"math"
	"strconv"
)

// 金额统一为两位小数：内部用 float64 计算，出入口用 "%.2f" 格式化后
// 回读，保证存储值、协议值和计算值一致

// Round2 保留两位小数
func Round2(v float64) float64 {
	r, _ := strconv.ParseFloat(fmt.Sprintf("%.2f", v), 64)
	return r
}

// Format 格式化为两位小数字符串
func Format(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// ToCents 元转分（支付网关按整数分计价）
func ToCents(v float64) int64 {
	return int64(math.Round(Round2(v) * 100))
}
