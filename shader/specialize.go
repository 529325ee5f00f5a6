package shader

import (
	"math"
	"slices"

	"github.com/pkg/errors"

	"github.com/andewx/corporation/hal"
)

const (
	headerWords = 5

	opTypeVoid              = 19
	opTypeFloat             = 22
	opTypeForwardPointer    = 39
	opConstant              = 43
	opConstantComposite     = 44
	opSpecConstant          = 50
	opSpecConstantComposite = 51
	opDecorate              = 71

	decorationSpecID = 1
)

// ErrNoConstant is returned by Specialize when the module holds no 32 bit
// float constant with the requested value.
var ErrNoConstant = errors.New("no matching float constant")

// Constant is a float specialization constant of one stage. The WGSL
// source declares it as a plain const with value Default, and Compile
// rewrites that constant so pipelines can override it by ID.
type Constant struct {
	Stage   hal.ShaderStage
	ID      uint32
	Default float32
}

// Specialize turns the 32 bit float OpConstant holding value into an
// OpSpecConstant decorated with SpecId id. Constant composites built from
// it become spec constant composites. code is rewritten in place; the
// returned slice carries the added decoration.
func Specialize(code []uint32, id uint32, value float32) ([]uint32, error) {
	if len(code) < headerWords {
		return nil, errors.New("spirv: truncated header")
	}
	bits := math.Float32bits(value)
	floats := map[uint32]bool{}
	spec := map[uint32]bool{}
	var target uint32
	types := -1
	for at := headerWords; at < len(code); {
		n := int(code[at] >> 16)
		op := code[at] & 0xffff
		if n == 0 || at+n > len(code) {
			return nil, errors.Errorf("spirv: malformed instruction at word %d", at)
		}
		if types < 0 && op >= opTypeVoid && op <= opTypeForwardPointer {
			types = at
		}
		switch op {
		case opTypeFloat:
			if n == 3 && code[at+2] == 32 {
				floats[code[at+1]] = true
			}
		case opConstant:
			if target == 0 && n == 4 && floats[code[at+1]] && code[at+3] == bits {
				target = code[at+2]
				spec[target] = true
				code[at] = uint32(n)<<16 | opSpecConstant
			}
		case opConstantComposite:
			if slices.ContainsFunc(code[at+3:at+n], func(c uint32) bool { return spec[c] }) {
				spec[code[at+2]] = true
				code[at] = uint32(n)<<16 | opSpecConstantComposite
			}
		}
		at += n
	}
	if target == 0 {
		return nil, errors.Wrapf(ErrNoConstant, "value %g", value)
	}
	// Annotations end where the first type declaration starts.
	return slices.Insert(code, types, 4<<16|opDecorate, target, decorationSpecID, id), nil
}
