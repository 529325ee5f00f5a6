package hal

import "github.com/pkg/errors"

// Errors a backend returns (possibly wrapped) from its primitives.
var (
	ErrOutOfDate    = errors.New("surface out of date")
	ErrSuboptimal   = errors.New("swapchain suboptimal")
	ErrSurfaceLost  = errors.New("surface lost")
	ErrDeviceLost   = errors.New("device lost")
	ErrOutOfMemory  = errors.New("out of memory")
	ErrTimeout      = errors.New("timeout")
	ErrExhausted    = errors.New("pool exhausted")
	ErrNotSupported = errors.New("not supported")
)

// IsOutOfDate reports whether err means the swapchain has to be recreated.
func IsOutOfDate(err error) bool {
	return errors.Is(err, ErrOutOfDate) || errors.Is(err, ErrSuboptimal)
}
