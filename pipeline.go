package corporation

import (
	"encoding/binary"
	"math"

	"github.com/andewx/corporation/hal"
	"github.com/pkg/errors"
)

// ShaderCompiler turns shader source text into SPIR-V words.
type ShaderCompiler interface {
	Compile(name string, stage hal.ShaderStage, source string) ([]uint32, error)
}

// ShaderSource is the source text of one shader stage.
type ShaderSource struct {
	Name   string
	Stage  hal.ShaderStage
	Source string
}

// Vertex layout of the mesh buffers: a position of three floats followed
// by a texture coordinate of two.
const (
	VertexStride         = 20
	VertexPositionOffset = 0
	VertexTexCoordOffset = 12
)

// ScaleConstantID is the specialization constant the vertex stage scales
// positions by.
const (
	ScaleConstantID = 0
	ScaleConstant   = float32(0.5)
)

// PushConstantRange is reserved for per draw vertex data.
var PushConstantRange = hal.PushConstantRange{Stages: hal.ShaderStageVertex, Offset: 0, Size: 8}

// PipelineState is the graphics pipeline and its layout.
type PipelineState struct {
	device   *DeviceState
	Pipeline hal.Pipeline
	Layout   hal.PipelineLayout
}

// NewPipeline compiles vertex and fragment and builds the pipeline for rp
// with the descriptor set layouts sets, in set order.
func NewPipeline(device *DeviceState, compiler ShaderCompiler, vertex, fragment ShaderSource, sets []*DescriptorSetLayout, rp *RenderPassState) (*PipelineState, error) {
	dev := device.Device
	var u undo
	defer u.run()

	var stages []hal.ShaderStageDesc
	for _, src := range []ShaderSource{vertex, fragment} {
		code, err := compiler.Compile(src.Name, src.Stage, src.Source)
		if err != nil {
			return nil, setupErr("build pipeline", errors.Wrap(ErrShaderCompile, err.Error()))
		}
		m, err := dev.CreateShaderModule(code)
		if err != nil {
			return nil, setupErr("create shader module", err)
		}
		u.push(func() { dev.DestroyShaderModule(m) })
		st := hal.ShaderStageDesc{Stage: src.Stage, Module: m, Entry: "main"}
		if src.Stage == hal.ShaderStageVertex {
			st.Specialization = []hal.SpecializationConstant{{
				ID:   ScaleConstantID,
				Data: binary.LittleEndian.AppendUint32(nil, math.Float32bits(ScaleConstant)),
			}}
		}
		stages = append(stages, st)
	}

	handles := make([]hal.DescriptorSetLayout, len(sets))
	for i, s := range sets {
		handles[i] = s.Layout
	}
	layout, err := dev.CreatePipelineLayout(handles, []hal.PushConstantRange{PushConstantRange})
	if err != nil {
		return nil, setupErr("create pipeline layout", err)
	}

	p, err := dev.CreateGraphicsPipeline(hal.GraphicsPipelineDesc{
		Layout:     layout,
		RenderPass: rp.RenderPass,
		Stages:     stages,
		VertexBindings: []hal.VertexBinding{
			{Binding: 0, Stride: VertexStride},
		},
		VertexAttributes: []hal.VertexAttribute{
			{Location: 0, Binding: 0, Format: hal.FormatRGB32Float, Offset: VertexPositionOffset},
			{Location: 1, Binding: 0, Format: hal.FormatRG32Float, Offset: VertexTexCoordOffset},
		},
		Topology: hal.TopologyTriangleStrip,
		Polygon:  hal.PolygonFill,
		Blend:    []hal.BlendMode{hal.BlendAlpha},
	})
	if err != nil {
		dev.DestroyPipelineLayout(layout)
		return nil, setupErr("create graphics pipeline", err)
	}
	Logger().Debug("pipeline created", "sets", len(sets))
	return &PipelineState{device: device, Pipeline: p, Layout: layout}, nil
}

func (p *PipelineState) Destroy() {
	p.device.Device.DestroyPipeline(p.Pipeline)
	p.device.Device.DestroyPipelineLayout(p.Layout)
}
