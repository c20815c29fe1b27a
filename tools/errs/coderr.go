package errs

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type CodeErrorI interface {
	ECode() int
	EMsg() string
	DDetail() string
	error
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{
		Code: code,
		Msg:  msg,
	}
}

type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func (e *CodeError) ECode() int      { return e.Code }
func (e *CodeError) EMsg() string    { return e.Msg }
func (e *CodeError) DDetail() string { return e.Detail }

func (e *CodeError) WithDetail(detail string) *CodeError {
	ret := e.clone()
	if ret.Detail == "" {
		ret.Detail = detail
	} else {
		ret.Detail += ", " + detail
	}
	return ret
}

func (e *CodeError) Wrap() error {
	return errors.WithStack(e.clone())
}

func (e *CodeError) clone() *CodeError {
	return &CodeError{
		Code:   e.Code,
		Msg:    e.Msg,
		Detail: e.Detail,
	}
}

// WrapMsg copies e, appends msg and kv pairs to its detail and attaches a stack.
func (e *CodeError) WrapMsg(msg string, kv ...any) error {
	retErr := e.clone()
	if msg != "" || len(kv) > 0 {
		detail := toString(msg, kv)
		if retErr.Detail == "" {
			retErr.Detail = detail
		} else {
			retErr.Detail += ", " + detail
		}
	}
	return errors.WithStack(retErr)
}

// Is reports whether target carries the same code. errors.Is reaches this
// through any pkg/errors wrapping.
func (e *CodeError) Is(target error) bool {
	var codeErr *CodeError
	if !errors.As(target, &codeErr) {
		return false
	}
	if e == nil || codeErr == nil {
		return e == codeErr
	}
	return e.Code == codeErr.Code
}

const initialCapacity = 3

func (e *CodeError) Error() string {
	v := make([]string, 0, initialCapacity)
	v = append(v, strconv.Itoa(e.Code), e.Msg)

	if e.Detail != "" {
		v = append(v, e.Detail)
	}

	return strings.Join(v, " ")
}

// Unwrap returns the innermost cause of err.
func Unwrap(err error) error {
	return errors.Cause(err)
}

// AsCode finds the first CodeError in err's chain.
func AsCode(err error) (*CodeError, bool) {
	var codeErr *CodeError
	if errors.As(err, &codeErr) {
		return codeErr, true
	}
	return nil, false
}

func New(msg string, kv ...any) error {
	return errors.New(toString(msg, kv))
}

func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(err)
}

func WrapMsg(err error, msg string, kv ...any) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, toString(msg, kv))
}
