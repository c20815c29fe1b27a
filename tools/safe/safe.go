package safe

import (
	"fmt"
	"reflect"

	"HoodChat/logger"
	"HoodChat/tools/errs"

	"go.uber.org/zap"
)

// MustNotNil panics if v is nil. Used for required constructor arguments.
func MustNotNil(v any, name string) {
	if v == nil {
		panic(fmt.Sprintf("%s must not be nil", name))
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			panic(fmt.Sprintf("%s must not be nil", name))
		}
	}
}

// SafeGo starts f in a goroutine that recovers and logs panics, so one bad
// connection or consumer cannot crash the process.
func SafeGo(name string, f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("[SafeGo] panic recovered", zap.String("task", name), zap.Error(errs.ErrPanic(r)))
			}
		}()
		f()
	}()
}
