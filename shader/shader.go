// Package shader compiles WGSL shader stages to SPIR-V.
package shader

import (
	_ "embed"
	"os"
	"path/filepath"

	"github.com/gogpu/naga"
	"github.com/pkg/errors"

	"github.com/andewx/corporation/hal"
)

var (
	//go:embed quad.vert.wgsl
	QuadVertex string
	//go:embed quad.frag.wgsl
	QuadFragment string
)

// Compiler compiles WGSL with naga. The zero value is ready to use.
type Compiler struct {
	// Debug keeps names and line information in the output.
	Debug bool
	// Constants are specialized in the stages they name. A source that
	// does not declare one compiles unchanged.
	Constants []Constant
}

// Compile returns the SPIR-V words for source. The entry point stage comes
// from the source attributes; stage selects which Constants apply.
func (c Compiler) Compile(name string, stage hal.ShaderStage, source string) ([]uint32, error) {
	opts := naga.DefaultOptions()
	opts.Debug = c.Debug
	b, err := naga.CompileWithOptions(source, opts)
	if err != nil {
		return nil, errors.Errorf("failed to compile shader '%s': %v", name, err)
	}
	if len(b)%4 != 0 {
		return nil, errors.Errorf("failed to compile shader '%s': %d bytes is not whole words", name, len(b))
	}
	code := words(b)
	for _, k := range c.Constants {
		if k.Stage != stage {
			continue
		}
		spec, err := Specialize(code, k.ID, k.Default)
		if errors.Is(err, ErrNoConstant) {
			continue
		}
		if err != nil {
			return nil, errors.Errorf("failed to compile shader '%s': %v", name, err)
		}
		code = spec
	}
	return code, nil
}

// words reinterprets little endian SPIR-V bytes as 32 bit words.
func words(b []byte) []uint32 {
	w := make([]uint32, len(b)/4)
	for i := range w {
		w[i] = uint32(b[i*4]) |
			uint32(b[i*4+1])<<8 |
			uint32(b[i*4+2])<<16 |
			uint32(b[i*4+3])<<24
	}
	return w
}

// Load returns the source at path, or fallback when path is empty.
func Load(path, fallback string) (string, error) {
	if path == "" {
		return fallback, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(err, "load shader")
	}
	return string(b), nil
}

// Name returns the label of a shader loaded from path.
func Name(path, fallback string) string {
	if path == "" {
		return fallback
	}
	return filepath.Base(path)
}
