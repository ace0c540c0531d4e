// Package gateway 外部支付网关的公共类型
package gateway

import "fmt"

// Error 网关返回非 2xx 或响应无法解析
type Error struct {
	Gateway    string
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Gateway, e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Gateway, e.Op, e.StatusCode, e.Body)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Truncate 截断响应体，避免把整页 HTML 写进日志
func Truncate(b []byte) string {
	const max = 512
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
