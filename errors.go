package corporation

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a renderer error by how the caller is expected to react.
type Kind uint8

const (
	// KindSetup is an unrecoverable failure while creating GPU state.
	KindSetup Kind = iota
	// KindRecoverable is a transient swapchain condition handled by
	// recreating the swapchain. It never escapes the frame loop.
	KindRecoverable
	// KindAsset is a missing or corrupt mesh or texture.
	KindAsset
	// KindConfig is an invalid request made by the caller.
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindSetup:
		return "setup"
	case KindRecoverable:
		return "recoverable"
	case KindAsset:
		return "asset"
	case KindConfig:
		return "config"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

var (
	ErrNoAdapter      = errors.New("no graphics adapter available")
	ErrNoQueueFamily  = errors.New("no queue family supports graphics and presentation")
	ErrNoMemoryType   = errors.New("no compatible memory type")
	ErrUnknownBinding = errors.New("binding not declared in descriptor set layout")
	ErrShaderCompile  = errors.New("shader compilation failed")
	ErrPoolExhausted  = errors.New("descriptor pool exhausted")
	ErrNoTexture      = errors.New("no diffuse texture")
)

// Error is an error with a Kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func setupErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindSetup, Op: op, Err: err}
}

func configErr(op string, err error) error {
	return &Error{Kind: KindConfig, Op: op, Err: err}
}

func assetErr(op string, err error) error {
	return &Error{Kind: KindAsset, Op: op, Err: err}
}
