package corporation

import (
	"testing"

	"github.com/andewx/corporation/hal"
	"github.com/andewx/corporation/hal/haltest"
	"github.com/andewx/corporation/input"
	"github.com/andewx/corporation/mesh"
)

const boxPath = "resources/models/box/box.obj"

type fakeCompiler struct {
	err   error
	names []string
}

func (c *fakeCompiler) Compile(name string, stage hal.ShaderStage, source string) ([]uint32, error) {
	c.names = append(c.names, name)
	if c.err != nil {
		return nil, c.err
	}
	return []uint32{0x07230203, 0x00010300, 0, 1, 0}, nil
}

// fakeEvents hands out one batch of events per PollEvents call.
type fakeEvents struct {
	batches [][]input.Event
}

func (e *fakeEvents) push(ev ...input.Event) { e.batches = append(e.batches, ev) }

func (e *fakeEvents) PollEvents() []input.Event {
	if len(e.batches) == 0 {
		return nil
	}
	b := e.batches[0]
	e.batches = e.batches[1:]
	return b
}

func testConfig(t *testing.T) RendererConfig {
	t.Helper()
	cfg, err := ConfigFromUsage(NewUsage("test"))
	if err != nil {
		t.Fatalf("ConfigFromUsage: %v", err)
	}
	return cfg
}

// checkerPixels returns a w x h image whose texel (x, y) is (x, y, x+y, 255).
func checkerPixels(w, h uint32) Pixels {
	pix := make([]byte, 0, w*h*4)
	for y := uint32(0); y < h; y++ {
		for x := uint32(0); x < w; x++ {
			pix = append(pix, byte(x), byte(y), byte(x+y), 255)
		}
	}
	return Pixels{Width: w, Height: h, RGBA: pix}
}

func testAssets(t *testing.T) *Assets {
	t.Helper()
	scene, err := mesh.Importer{}.Import(boxPath)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	return &Assets{
		Scene:    scene,
		Textures: []Pixels{checkerPixels(3, 2)},
		Vertex:   ShaderSource{Name: "quad.vert", Stage: hal.ShaderStageVertex, Source: "vertex"},
		Fragment: ShaderSource{Name: "quad.frag", Stage: hal.ShaderStageFragment, Source: "fragment"},
	}
}

func newTestRenderer(t *testing.T, hc haltest.Config) (*haltest.Instance, *RendererState, *fakeEvents) {
	t.Helper()
	inst := haltest.New(hc)
	ev := &fakeEvents{}
	r, err := NewRenderer(inst, ev, &fakeCompiler{}, testAssets(t), testConfig(t))
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return inst, r, ev
}

func newTestDevice(t *testing.T, hc haltest.Config) (*haltest.Instance, *AdapterState, *DeviceState) {
	t.Helper()
	inst, a, d, _ := newTestSurface(t, hc)
	return inst, a, d
}

func newTestSurface(t *testing.T, hc haltest.Config) (*haltest.Instance, *AdapterState, *DeviceState, hal.Surface) {
	t.Helper()
	inst := haltest.New(hc)
	adapters, err := inst.Adapters()
	if err != nil {
		t.Fatal(err)
	}
	a, err := NewAdapterState(adapters)
	if err != nil {
		t.Fatalf("NewAdapterState: %v", err)
	}
	s, err := inst.CreateSurface()
	if err != nil {
		t.Fatal(err)
	}
	d, err := OpenDevice(a, s)
	if err != nil {
		t.Fatalf("OpenDevice: %v", err)
	}
	return inst, a, d, s
}

func frame(t *testing.T, r *RendererState) {
	t.Helper()
	ok, err := r.Frame()
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if !ok {
		t.Fatal("Frame asked to stop")
	}
}

func noMisuse(t *testing.T, inst *haltest.Instance) {
	t.Helper()
	if m := inst.Ledger().Misuse(); len(m) > 0 {
		t.Fatalf("handle misuse:\n%v", m)
	}
}
