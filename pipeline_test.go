package corporation

import (
	"encoding/binary"
	"math"
	"reflect"
	"testing"

	"github.com/pkg/errors"

	"github.com/andewx/corporation/hal"
	"github.com/andewx/corporation/hal/haltest"
)

func TestNewPipeline(t *testing.T) {
	inst, r, _ := newTestRenderer(t, haltest.DefaultConfig())
	dev := inst.Device()
	desc := dev.Pipeline(r.Pipeline().Pipeline)

	if desc.Topology != hal.TopologyTriangleStrip || desc.Polygon != hal.PolygonFill {
		t.Fatalf("topology %v, polygon %v", desc.Topology, desc.Polygon)
	}
	if !reflect.DeepEqual(desc.Blend, []hal.BlendMode{hal.BlendAlpha}) {
		t.Fatalf("blend\nhave %v\nwant [alpha]", desc.Blend)
	}
	if desc.RenderPass != r.RenderPass().RenderPass || desc.Layout != r.Pipeline().Layout {
		t.Fatal("pipeline built against another render pass or layout")
	}
	wantBindings := []hal.VertexBinding{{Binding: 0, Stride: VertexStride}}
	if !reflect.DeepEqual(desc.VertexBindings, wantBindings) {
		t.Fatalf("vertex bindings\nhave %v\nwant %v", desc.VertexBindings, wantBindings)
	}
	wantAttrs := []hal.VertexAttribute{
		{Location: 0, Format: hal.FormatRGB32Float, Offset: 0},
		{Location: 1, Format: hal.FormatRG32Float, Offset: 12},
	}
	if !reflect.DeepEqual(desc.VertexAttributes, wantAttrs) {
		t.Fatalf("vertex attributes\nhave %v\nwant %v", desc.VertexAttributes, wantAttrs)
	}

	if len(desc.Stages) != 2 {
		t.Fatalf("stages\nhave %d\nwant 2", len(desc.Stages))
	}
	vs, fs := desc.Stages[0], desc.Stages[1]
	if vs.Stage != hal.ShaderStageVertex || fs.Stage != hal.ShaderStageFragment || vs.Entry != "main" || fs.Entry != "main" {
		t.Fatalf("stages\nhave %+v\n%+v", vs, fs)
	}
	if len(vs.Specialization) != 1 || vs.Specialization[0].ID != ScaleConstantID {
		t.Fatalf("vertex specialization\nhave %+v", vs.Specialization)
	}
	if have := math.Float32frombits(binary.LittleEndian.Uint32(vs.Specialization[0].Data)); have != 0.5 {
		t.Fatalf("scale constant\nhave %v\nwant 0.5", have)
	}
	if len(fs.Specialization) != 0 {
		t.Fatalf("fragment specialization\nhave %+v\nwant none", fs.Specialization)
	}

	l := inst.Ledger()
	if n := l.Live(haltest.KindShaderModule); n != 0 {
		t.Fatalf("live shader modules\nhave %d\nwant 0", n)
	}
	if n := l.Created(haltest.KindShaderModule); n != 2 {
		t.Fatalf("shader modules created\nhave %d\nwant 2", n)
	}
}

func TestNewPipelineCompileError(t *testing.T) {
	inst := haltest.New(haltest.DefaultConfig())
	compiler := &fakeCompiler{err: errors.New("failed to compile shader 'quad.vert': unexpected token")}
	_, err := NewRenderer(inst, &fakeEvents{}, compiler, testAssets(t), testConfig(t))
	if !errors.Is(err, ErrShaderCompile) {
		t.Fatalf("error\nhave %v\nwant %v", err, ErrShaderCompile)
	}
	if k, _ := KindOf(err); k != KindSetup {
		t.Fatalf("kind\nhave %v\nwant %v", k, KindSetup)
	}
	l := inst.Ledger()
	for _, k := range []haltest.Kind{haltest.KindBuffer, haltest.KindMemory, haltest.KindImage, haltest.KindSwapchain, haltest.KindRenderPass, haltest.KindFramebuffer, haltest.KindSemaphore, haltest.KindFence, haltest.KindShaderModule} {
		if n := l.Live(k); n != 0 {
			t.Fatalf("live %s after failed setup\nhave %d\nwant 0", k, n)
		}
	}
	if !reflect.DeepEqual(compiler.names, []string{"quad.vert"}) {
		t.Fatalf("compiled\nhave %v\nwant [quad.vert]", compiler.names)
	}
	noMisuse(t, inst)
}

func TestPipelineLayoutSetOrder(t *testing.T) {
	_, r, _ := newTestRenderer(t, haltest.DefaultConfig())
	layouts := r.setLayouts()
	if len(layouts) != 2 {
		t.Fatalf("set layouts\nhave %d\nwant 2", len(layouts))
	}
	if layouts[0] != r.textureLayout || layouts[1] != r.CameraUniform().Layout {
		t.Fatal("texture set must come before the camera set")
	}
	sets := r.descriptorSets()
	if sets[0] != r.Textures()[0].Set.Set || sets[1] != r.CameraUniform().Set.Set {
		t.Fatalf("descriptor sets\nhave %v", sets)
	}
}
