package calendar

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Date 纯日历日期（年/月/日），不带时分秒和时区。
// 租期相关的所有日期都先归一化成 Date 再参与比较和落库。
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// 解析兜底使用的常见布局（按顺序尝试）。
var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
}

// FromTime 截取 t 自身时区下的日历日期，不做任何时区换算。
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Parse 把字符串解析为 Date。
// 支持 YYYY-MM-DD（按字面数字解析）、DD/MM/YYYY，其余格式走兜底布局；
// 全部失败时返回错误，不会退化成“当前时间”。
func Parse(s string) (Date, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return FromTime(t), nil
	}
	if t, err := time.Parse("02/01/2006", s); err == nil {
		return FromTime(t), nil
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return FromTime(t), nil
		}
	}
	return Date{}, fmt.Errorf("unrecognized date %q", s)
}

// String 输出 YYYY-MM-DD，用于持久化和重叠查询。
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Display 输出 DD/MM/YYYY，用于前端展示。
func (d Date) Display() string {
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, int(d.Month), d.Year)
}

// Time 返回对应的 UTC 零点，仅用于日期差值计算和数据库参数。
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// IsZero 判断是否为零值日期。
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Before 判断 d 是否早于 other。
func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

// After 判断 d 是否晚于 other。
func (d Date) After(other Date) bool {
	return d.Time().After(other.Time())
}

// Equal 判断两个日期相同。
func (d Date) Equal(other Date) bool {
	return d == other
}

// DaysBetween 两个日期相差的整天数（绝对值）。
func DaysBetween(a, b Date) int {
	diff := b.Time().Sub(a.Time())
	if diff < 0 {
		diff = -diff
	}
	return int(diff / (24 * time.Hour))
}

// Value 实现 driver.Valuer，按 YYYY-MM-DD 写入 date 列。
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan 实现 sql.Scanner，兼容 date 列扫出的 time.Time / []byte / string。
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = FromTime(v)
		return nil
	case []byte:
		parsed, err := Parse(string(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into calendar.Date", src)
	}
}

// MarshalJSON 序列化为 "YYYY-MM-DD" 字符串。
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON 支持 "YYYY-MM-DD" / "DD/MM/YYYY" 等 Parse 接受的格式。
func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
