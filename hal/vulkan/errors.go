package vulkan

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/corporation/hal"
)

// VK_ERROR_OUT_OF_POOL_MEMORY, core since 1.1.
const errorOutOfPoolMemory = vk.Result(-1000069000)

// ResultError is a failed vk.Result together with the call site that got it.
type ResultError struct {
	Result vk.Result
	Frame  string
}

func (e *ResultError) Error() string {
	msg := "unknown result"
	if err := vk.Error(e.Result); err != nil {
		msg = err.Error()
	}
	if e.Frame == "" {
		return fmt.Sprintf("vulkan error: %s (%d)", msg, e.Result)
	}
	return fmt.Sprintf("vulkan error: %s (%d) on %s", msg, e.Result, e.Frame)
}

// Unwrap maps the result onto the hal error it stands for, if any.
func (e *ResultError) Unwrap() error {
	switch e.Result {
	case vk.ErrorOutOfDate:
		return hal.ErrOutOfDate
	case vk.Suboptimal:
		return hal.ErrSuboptimal
	case vk.ErrorSurfaceLost:
		return hal.ErrSurfaceLost
	case vk.ErrorDeviceLost:
		return hal.ErrDeviceLost
	case vk.ErrorOutOfHostMemory, vk.ErrorOutOfDeviceMemory:
		return hal.ErrOutOfMemory
	case vk.Timeout:
		return hal.ErrTimeout
	case errorOutOfPoolMemory, vk.ErrorFragmentedPool:
		return hal.ErrExhausted
	case vk.ErrorFeatureNotPresent, vk.ErrorExtensionNotPresent, vk.ErrorLayerNotPresent,
		vk.ErrorIncompatibleDriver, vk.ErrorFormatNotSupported:
		return hal.ErrNotSupported
	}
	return nil
}

func isError(ret vk.Result) bool {
	return ret != vk.Success
}

// newError returns nil for vk.Success and a *ResultError naming the
// calling function otherwise.
func newError(ret vk.Result) error {
	if !isError(ret) {
		return nil
	}
	e := &ResultError{Result: ret}
	if pc, _, line, ok := runtime.Caller(1); ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			name := fn.Name()
			if i := strings.LastIndex(name, "/"); i >= 0 {
				name = name[i+1:]
			}
			e.Frame = fmt.Sprintf("%s:%d", name, line)
		}
	}
	return e
}

// wrap annotates a failed result with the operation that produced it.
func wrap(ret vk.Result, op string) error {
	if !isError(ret) {
		return nil
	}
	return errors.Wrap(newError(ret), op)
}

func orPanic(err error) {
	if err != nil {
		panic(err)
	}
}

func checkErr(err *error) {
	if v := recover(); v != nil {
		if e, ok := v.(error); ok {
			*err = e
			return
		}
		*err = fmt.Errorf("%+v", v)
	}
}

var errUnknownHandle = errors.New("unknown handle")

func unknown(kind string, h hal.Handle) error {
	return errors.Wrapf(errUnknownHandle, "%s %d", kind, h)
}
