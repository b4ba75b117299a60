// Package cast 提供整数类型之间的按位转换，用于随机流播种等已知不会越界的场景。
package cast

import "unsafe"

// As 通过 unsafe 直接读取内存完成转换。
// 警告：仅限用于已知物理布局兼容的类型转换（如 int -> uint64 的位读取）。
func As[T any, F any](from F) T {
	return *(*T)(unsafe.Pointer(&from))
}

func IntToUint64(i int) uint64     { return As[uint64](i) }
func Uint64ToInt64(u uint64) int64 { return As[int64](u) }
func Int64ToUint64(i int64) uint64 { return As[uint64](i) }

// Int64ToUint16 截断到低 16 位。
func Int64ToUint16(i int64) uint16 { return uint16(i & 0xFFFF) }
