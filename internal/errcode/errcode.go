package errcode

import "errors"

// 错误码约定：
// - 0：无错误
// - 4xxx：输入或资源问题（资源缺失时导出仍会完成）
// - 5xxx：系统错误，导出中断
const (
	OK                = 0
	InvalidRecord     = 4001
	UnsupportedFormat = 4002
	ResourceMissing   = 4004
	SystemError       = 5000
	RenderFailed      = 5001
	StorageFailed     = 5002
)

// Error 为错误附加错误码，Unwrap 后仍可用 errors.Is 判断原始错误。
type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Wrap 给 err 标注错误码，err 为 nil 时返回 nil。
func Wrap(code int, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Err: err}
}

// Of 返回错误链上最近的错误码；未标注的错误视为 SystemError。
func Of(err error) int {
	if err == nil {
		return OK
	}
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return SystemError
}
