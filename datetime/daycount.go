package datetime

import (
	"strings"
	"time"

	"github.com/wyfcoding/lookback/xerrors"
)

// DayCount 定义日计数约定，决定日期区间如何折算为年。
// 数值与对外桥接层的整数编码一致。
type DayCount int

const (
	ACT360      DayCount = iota // 实际天数 / 360
	ACT365F                     // 实际天数 / 365 (固定)
	Thirty360US                 // 30/360 美国 (bond basis)
	Thirty360EU                 // 30E/360 欧洲
	ActActISDA                  // ACT/ACT ISDA
)

var dayCountNames = map[DayCount]string{
	ACT360:      "ACT/360",
	ACT365F:     "ACT/365F",
	Thirty360US: "30/360 US",
	Thirty360EU: "30/360 EU",
	ActActISDA:  "ACT/ACT ISDA",
}

// Valid 判断约定是否在支持的集合内。
func (dc DayCount) Valid() bool {
	_, ok := dayCountNames[dc]
	return ok
}

func (dc DayCount) String() string {
	if name, ok := dayCountNames[dc]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseDayCount 按名称解析约定，大小写、空格、下划线与斜杠均不敏感。
func ParseDayCount(s string) (DayCount, error) {
	key := normalizeName(s)
	for dc, name := range dayCountNames {
		if normalizeName(name) == key {
			return dc, nil
		}
	}
	switch key {
	case "act365", "act365fixed":
		return ACT365F, nil
	case "30360", "30360us", "bondbasis":
		return Thirty360US, nil
	case "30e360", "30360eu", "eurobondbasis":
		return Thirty360EU, nil
	case "actact", "actactisda":
		return ActActISDA, nil
	}
	return 0, xerrors.ErrUnknownConvention.WithDetail("%q", s)
}

func normalizeName(s string) string {
	r := strings.NewReplacer("/", "", "_", "", " ", "", "-", "")
	return strings.ToLower(r.Replace(s))
}

// YearFraction 按约定计算 start 到 end 的年化期限。
// 只有约定越界时才返回 ErrUnknownConvention，合法日期永远不会失败。
func YearFraction(start, end Date, dc DayCount) (float64, error) {
	switch dc {
	case ACT360:
		return float64(DaysBetween(start, end)) / 360.0, nil
	case ACT365F:
		return float64(DaysBetween(start, end)) / 365.0, nil
	case Thirty360EU:
		return thirty360EU(start, end), nil
	case Thirty360US:
		return thirty360US(start, end), nil
	case ActActISDA:
		return actActISDA(start, end), nil
	default:
		return 0, xerrors.ErrUnknownConvention.WithDetail("code %d", int(dc))
	}
}

func days360(y1 int, m1 time.Month, d1 int, y2 int, m2 time.Month, d2 int) float64 {
	n := 360*(y2-y1) + 30*int(m2-m1) + (d2 - d1)
	return float64(n) / 360.0
}

func thirty360EU(start, end Date) float64 {
	d1 := min(start.day, 30)
	d2 := min(end.day, 30)
	return days360(start.year, start.month, d1, end.year, end.month, d2)
}

// thirty360US 二月最后一天按 30 日处理，随后 d1 的 31 截为 30，d2 的 31 仅在 d1 为 30 时截断。
func thirty360US(start, end Date) float64 {
	d1, d2 := start.day, end.day
	if start.IsEndOfFebruary() {
		d1 = 30
	}
	if end.IsEndOfFebruary() {
		d2 = 30
	}
	if d1 == 31 {
		d1 = 30
	}
	if d2 == 31 && d1 == 30 {
		d2 = 30
	}
	return days360(start.year, start.month, d1, end.year, end.month, d2)
}

func actActISDA(start, end Date) float64 {
	if DaysBetween(start, end) < 0 {
		return -actActISDA(end, start)
	}
	y1, y2 := start.year, end.year
	if y1 == y2 {
		return float64(DaysBetween(start, end)) / float64(DaysInYear(y1))
	}

	// 半开区间 [start, 次年1月1日)
	nextJan1 := Date{year: y1 + 1, month: time.January, day: 1}
	first := float64(DaysBetween(start, nextJan1)) / float64(DaysInYear(y1))

	middle := float64(y2 - y1 - 1)

	jan1 := Date{year: y2, month: time.January, day: 1}
	last := float64(DaysBetween(jan1, end)) / float64(DaysInYear(y2))

	return first + middle + last
}
