package rental

import (
	"math"

	"github.com/RentalCars/RentalCars/internal/calendar"
)

// maxStorablePrice 对应 decimal(10,2) 列的表示上界。
const maxStorablePrice = 1e8

// Days 两个日历日期之间的计费天数：相差的整天数，最小为 1（当日租车按一天计）。
func Days(start, end calendar.Date) int {
	d := calendar.DaysBetween(start, end)
	if d == 0 {
		return 1
	}
	return d
}

// Round2 四舍五入（远离零方向）到两位小数。
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// Total 按天数和日租金计算总价。
// 结果非有限值（如日租金被污染成 NaN）或超出 decimal(10,2) 表示范围时拒绝。
func Total(days int, dailyRate float64) (float64, error) {
	total := Round2(float64(days) * dailyRate)
	if math.IsNaN(total) || math.IsInf(total, 0) || math.Abs(total) >= maxStorablePrice {
		return 0, ErrPriceOutOfRange
	}
	return total, nil
}
