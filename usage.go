package corporation

import "github.com/pkg/errors"

// Usage property keys understood by ConfigFromUsage.
const (
	UsageTitle          = "Title"
	UsageWidth          = "Width"
	UsageHeight         = "Height"
	UsageMesh           = "Mesh"
	UsageTexture        = "Texture"
	UsageVertexShader   = "VertexShader"
	UsageFragmentShader = "FragmentShader"
	UsageFramesInFlight = "FramesInFlight"
	UsageFOV            = "FOV"
	UsageNear           = "Near"
	UsageFar            = "Far"
	UsageCameraX        = "CameraX"
	UsageCameraY        = "CameraY"
	UsageCameraZ        = "CameraZ"
	UsageValidation     = "Validation"
)

// Usage is a named bag of typed properties. Linked points at a further
// usage the getters fall back to when a key is missing here.
type Usage struct {
	Name    string
	Strings map[string]string
	Ints    map[string]int
	Bools   map[string]bool
	Floats  map[string]float32
	Linked  *Usage
}

func NewUsage(name string) *Usage {
	return &Usage{
		Name:    name,
		Strings: make(map[string]string),
		Ints:    make(map[string]int),
		Bools:   make(map[string]bool),
		Floats:  make(map[string]float32),
	}
}

// DefaultUsage holds the settings of the stock demo scene.
func DefaultUsage() *Usage {
	u := NewUsage("Default")
	u.Strings[UsageTitle] = "Corporation"
	u.Strings[UsageMesh] = "resources/models/box/box.obj"
	u.Strings[UsageTexture] = "resources/textures/diffuse.png"
	u.Ints[UsageWidth] = 640
	u.Ints[UsageHeight] = 480
	u.Ints[UsageFramesInFlight] = 2
	u.Floats[UsageFOV] = 90
	u.Floats[UsageNear] = 0.1
	u.Floats[UsageFar] = 100
	u.Floats[UsageCameraX] = 0
	u.Floats[UsageCameraY] = 5
	u.Floats[UsageCameraZ] = 15
	return u
}

func (u *Usage) String(key string) (string, bool) {
	for ; u != nil; u = u.Linked {
		if v, ok := u.Strings[key]; ok {
			return v, true
		}
	}
	return "", false
}

func (u *Usage) Int(key string) (int, bool) {
	for ; u != nil; u = u.Linked {
		if v, ok := u.Ints[key]; ok {
			return v, true
		}
	}
	return 0, false
}

func (u *Usage) Bool(key string) (bool, bool) {
	for ; u != nil; u = u.Linked {
		if v, ok := u.Bools[key]; ok {
			return v, true
		}
	}
	return false, false
}

func (u *Usage) Float(key string) (float32, bool) {
	for ; u != nil; u = u.Linked {
		if v, ok := u.Floats[key]; ok {
			return v, true
		}
	}
	return 0, false
}

// RendererConfig is the validated form of a Usage.
type RendererConfig struct {
	Title  string
	Width  uint32
	Height uint32

	MeshPath           string
	TexturePath        string
	VertexShaderPath   string // empty selects the built in quad shader
	FragmentShaderPath string

	// FramesInFlight is the slot count used when the swapchain exposes no
	// backbuffer images.
	FramesInFlight uint32
	ClearColor     [4]float32

	CameraPosition [3]float32
	FOV            float32
	Near, Far      float32

	Validation bool
}

// DefaultClearColor is the clear color of the render pass.
var DefaultClearColor = [4]float32{0.255, 0.412, 0.882, 1.0}

// ConfigFromUsage reads a RendererConfig out of u, falling back to
// DefaultUsage for missing keys.
func ConfigFromUsage(u *Usage) (RendererConfig, error) {
	def := DefaultUsage()
	str := func(k string) string {
		if v, ok := u.String(k); ok {
			return v
		}
		v, _ := def.String(k)
		return v
	}
	num := func(k string) int {
		if v, ok := u.Int(k); ok {
			return v
		}
		v, _ := def.Int(k)
		return v
	}
	flt := func(k string) float32 {
		if v, ok := u.Float(k); ok {
			return v
		}
		v, _ := def.Float(k)
		return v
	}

	cfg := RendererConfig{
		Title:              str(UsageTitle),
		MeshPath:           str(UsageMesh),
		TexturePath:        str(UsageTexture),
		VertexShaderPath:   str(UsageVertexShader),
		FragmentShaderPath: str(UsageFragmentShader),
		ClearColor:         DefaultClearColor,
		CameraPosition:     [3]float32{flt(UsageCameraX), flt(UsageCameraY), flt(UsageCameraZ)},
		FOV:                flt(UsageFOV),
		Near:               flt(UsageNear),
		Far:                flt(UsageFar),
	}
	cfg.Validation, _ = u.Bool(UsageValidation)

	w, h, n := num(UsageWidth), num(UsageHeight), num(UsageFramesInFlight)
	switch {
	case w <= 0 || h <= 0:
		return cfg, configErr("read usage", errors.Errorf("window extent %dx%d is not positive", w, h))
	case n <= 0:
		return cfg, configErr("read usage", errors.Errorf("frames in flight %d is not positive", n))
	case cfg.FOV <= 0 || cfg.FOV >= 180:
		return cfg, configErr("read usage", errors.Errorf("field of view %g is outside (0, 180)", cfg.FOV))
	case cfg.Near <= 0 || cfg.Far <= cfg.Near:
		return cfg, configErr("read usage", errors.Errorf("depth range [%g, %g] is invalid", cfg.Near, cfg.Far))
	}
	cfg.Width, cfg.Height, cfg.FramesInFlight = uint32(w), uint32(h), uint32(n)
	return cfg, nil
}
