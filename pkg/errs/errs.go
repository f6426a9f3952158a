package errs

import (
	"errors"
	"fmt"
)

// Kind 业务错误分类
// 编排层捕获底层错误后统一翻译成 Kind，handler 再映射为响应码
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindBadRequest
	KindConflict
	KindInsufficientFunds
	KindExpired
	KindTampered
	KindGateway
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindForbidden:
		return "Forbidden"
	case KindBadRequest:
		return "BadRequest"
	case KindConflict:
		return "Conflict"
	case KindInsufficientFunds:
		return "InsufficientFunds"
	case KindExpired:
		return "Expired"
	case KindTampered:
		return "Tampered"
	case KindGateway:
		return "Gateway"
	default:
		return "Internal"
	}
}

// Error 携带分类的业务错误
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New 创建业务错误
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf 创建带格式化消息的业务错误
func Newf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap 包装底层错误并附加分类
func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf 提取错误分类，非业务错误一律视为 Internal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is 判断错误是否属于指定分类
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
