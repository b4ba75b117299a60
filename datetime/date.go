// Package datetime 提供日历日期解析与日计数约定下的年化期限计算。
package datetime

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wyfcoding/lookback/xerrors"
)

const secondsPerDay = 24 * 60 * 60

// Date 是一个不带时区的公历日期 (年, 月, 日)。
// 只能通过 NewDate 或 ParseDate 构造，保证始终合法。
type Date struct {
	year  int
	month time.Month
	day   int
}

// NewDate 校验并构造日期。
func NewDate(year int, month time.Month, day int) (Date, error) {
	if year < 1 || year > 9999 {
		return Date{}, xerrors.ErrMalformedDate.WithDetail("year %d out of range", year)
	}
	if month < time.January || month > time.December {
		return Date{}, xerrors.ErrMalformedDate.WithDetail("month %d out of range", month)
	}
	if day < 1 || day > LastDayOfMonth(year, month) {
		return Date{}, xerrors.ErrMalformedDate.WithDetail("day %d out of range for %04d-%02d", day, year, month)
	}
	return Date{year: year, month: month, day: day}, nil
}

// MustDate 用于常量日期，非法输入直接 panic。
func MustDate(year int, month time.Month, day int) Date {
	d, err := NewDate(year, month, day)
	if err != nil {
		panic(err)
	}
	return d
}

// ParseDate 解析形如 "dd-mm-yyyy" 的日期字符串，日和月允许一位数字。
func ParseDate(s string) (Date, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return Date{}, xerrors.ErrMalformedDate.WithDetail("%q is not dd-mm-yyyy", s)
	}
	if len(parts[0]) < 1 || len(parts[0]) > 2 || len(parts[1]) < 1 || len(parts[1]) > 2 || len(parts[2]) != 4 {
		return Date{}, xerrors.ErrMalformedDate.WithDetail("%q is not dd-mm-yyyy", s)
	}
	var fields [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return Date{}, xerrors.ErrMalformedDate.WithDetail("%q has a non numeric field", s)
		}
		fields[i] = v
	}
	return NewDate(fields[2], time.Month(fields[1]), fields[0])
}

// MustParse 解析失败直接 panic，仅用于测试与固定常量。
func MustParse(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Year 返回年份。
func (d Date) Year() int { return d.year }

// Month 返回月份。
func (d Date) Month() time.Month { return d.month }

// Day 返回月内日期。
func (d Date) Day() int { return d.day }

// IsZero 报告 d 是否为未赋值的零日期。
func (d Date) IsZero() bool { return d.year == 0 }

// Before 报告 d 是否严格早于 o。
func (d Date) Before(o Date) bool { return DaysBetween(d, o) > 0 }

// String 按 dd-mm-yyyy 格式输出。
func (d Date) String() string {
	return fmt.Sprintf("%02d-%02d-%04d", d.day, d.month, d.year)
}

// Time 返回当天 00:00:00 UTC。
func (d Date) Time() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

// AddDays 返回 n 个日历日之后的日期。
func (d Date) AddDays(n int) Date {
	t := d.Time().AddDate(0, 0, n)
	return Date{year: t.Year(), month: t.Month(), day: t.Day()}
}

// DaysBetween 返回 end - start 的带符号日历天数。
func DaysBetween(start, end Date) int {
	return int((end.Time().Unix() - start.Time().Unix()) / secondsPerDay)
}

// IsLeap 判断闰年：能被 4 整除且不能被 100 整除，或能被 400 整除。
func IsLeap(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

// DaysInYear 返回该年的天数。
func DaysInYear(year int) int {
	if IsLeap(year) {
		return 366
	}
	return 365
}

// LastDayOfMonth 返回指定月份的最后一天。
func LastDayOfMonth(year int, month time.Month) int {
	switch month {
	case time.February:
		if IsLeap(year) {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}

// IsEndOfFebruary 判断日期是否为二月最后一天。
func (d Date) IsEndOfFebruary() bool {
	return d.month == time.February && d.day == LastDayOfMonth(d.year, d.month)
}
