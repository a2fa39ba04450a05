package semester

import (
	"fmt"
	"time"
)

// 学期划分：1-6 月为春季学期，7-12 月为秋季学期
const (
	TermSpring = "SPRING"
	TermAutumn = "AUTUMN"
)

// OfTime 把时间点映射为学期标识，如 "2024-AUTUMN"
// 纯函数，所有资格判断和记账都以它为准
func OfTime(t time.Time) string {
	term := TermSpring
	if t.Month() >= time.July {
		term = TermAutumn
	}
	return fmt.Sprintf("%d-%s", t.Year(), term)
}

// Current 当前学期
func Current() string {
	return OfTime(time.Now())
}
