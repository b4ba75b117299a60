package bridge

import (
	"sync"

	"github.com/wyfcoding/lookback/xerrors"
)

// ErrorContext 保存一个调用方最近一次失败的描述。每个调用方持有自己的实例，
// 零值可直接使用，并发访问安全。
type ErrorContext struct {
	mu  sync.Mutex
	msg string
}

// Set 记录 "<op>: <reason>"，err 为 nil 时清空。
func (c *ErrorContext) Set(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		c.msg = ""
		return
	}
	c.msg = op + ": " + xerrors.Reason(err)
}

// Last 返回最近一次失败的描述，没有失败时为空串。
func (c *ErrorContext) Last() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.msg
}

// Clear 清空错误描述。
func (c *ErrorContext) Clear() {
	c.mu.Lock()
	c.msg = ""
	c.mu.Unlock()
}

// CopyTo 把描述以 NUL 结尾写入 buf，返回写入的字节数（含 NUL）。
// buf 为空时只返回完整描述所需的长度。
func (c *ErrorContext) CopyTo(buf []byte) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(buf) == 0 {
		return len(c.msg) + 1
	}
	n := copy(buf[:len(buf)-1], c.msg)
	buf[n] = 0
	return n + 1
}
