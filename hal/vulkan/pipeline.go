package vulkan

import (
	"runtime"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/corporation/hal"
)

func (d *Device) CreateRenderPass(desc hal.RenderPassDesc) (hal.RenderPass, error) {
	attachments := make([]vk.AttachmentDescription, len(desc.Attachments))
	refs := make([]vk.AttachmentReference, len(desc.Attachments))
	for i, a := range desc.Attachments {
		attachments[i] = vk.AttachmentDescription{
			Format:         vkFormat(a.Format),
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vkLoadOp(a.Load),
			StoreOp:        vkStoreOp(a.Store),
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vkLayout(a.InitialLayout),
			FinalLayout:    vkLayout(a.FinalLayout),
		}
		refs[i] = vk.AttachmentReference{
			Attachment: uint32(i),
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}
	}
	deps := make([]vk.SubpassDependency, len(desc.Dependencies))
	for i, dep := range desc.Dependencies {
		deps[i] = vk.SubpassDependency{
			SrcSubpass:    dep.SrcSubpass,
			DstSubpass:    dep.DstSubpass,
			SrcStageMask:  vkStages(dep.SrcStage),
			DstStageMask:  vkStages(dep.DstStage),
			SrcAccessMask: vkAccess(dep.SrcAccess),
			DstAccessMask: vkAccess(dep.DstAccess),
		}
	}

	var rp vk.RenderPass
	ret := vk.CreateRenderPass(d.device, &vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses: []vk.SubpassDescription{{
			PipelineBindPoint:    vk.PipelineBindPointGraphics,
			ColorAttachmentCount: uint32(len(refs)),
			PColorAttachments:    refs,
		}},
		DependencyCount: uint32(len(deps)),
		PDependencies:   deps,
	}, nil, &rp)
	if err := wrap(ret, "create render pass"); err != nil {
		return 0, err
	}
	return hal.RenderPass(d.renderPasses.add(rp)), nil
}

func (d *Device) DestroyRenderPass(h hal.RenderPass) {
	rp, ok := d.renderPasses.remove(hal.Handle(h))
	if !ok {
		d.stale("render pass", hal.Handle(h))
		return
	}
	vk.DestroyRenderPass(d.device, rp, nil)
}

func (d *Device) CreateFramebuffer(h hal.RenderPass, views []hal.ImageView, extent hal.Extent2D) (hal.Framebuffer, error) {
	rp, ok := d.renderPasses.get(hal.Handle(h))
	if !ok {
		return 0, unknown("render pass", hal.Handle(h))
	}
	list := make([]vk.ImageView, len(views))
	for i, v := range views {
		view, ok := d.views.get(hal.Handle(v))
		if !ok {
			return 0, unknown("image view", hal.Handle(v))
		}
		list[i] = view
	}
	var fb vk.Framebuffer
	ret := vk.CreateFramebuffer(d.device, &vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      rp,
		AttachmentCount: uint32(len(list)),
		PAttachments:    list,
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}, nil, &fb)
	if err := wrap(ret, "create framebuffer"); err != nil {
		return 0, err
	}
	return hal.Framebuffer(d.framebuffers.add(fb)), nil
}

func (d *Device) DestroyFramebuffer(h hal.Framebuffer) {
	fb, ok := d.framebuffers.remove(hal.Handle(h))
	if !ok {
		d.stale("framebuffer", hal.Handle(h))
		return
	}
	vk.DestroyFramebuffer(d.device, fb, nil)
}

func (d *Device) CreateShaderModule(code []uint32) (hal.ShaderModule, error) {
	if len(code) == 0 {
		return 0, errors.New("create shader module: empty code")
	}
	var module vk.ShaderModule
	ret := vk.CreateShaderModule(d.device, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code) * 4),
		PCode:    code,
	}, nil, &module)
	if err := wrap(ret, "create shader module"); err != nil {
		return 0, err
	}
	return hal.ShaderModule(d.modules.add(module)), nil
}

func (d *Device) DestroyShaderModule(h hal.ShaderModule) {
	m, ok := d.modules.remove(hal.Handle(h))
	if !ok {
		d.stale("shader module", hal.Handle(h))
		return
	}
	vk.DestroyShaderModule(d.device, m, nil)
}

func (d *Device) CreatePipelineLayout(sets []hal.DescriptorSetLayout, push []hal.PushConstantRange) (hal.PipelineLayout, error) {
	layouts := make([]vk.DescriptorSetLayout, len(sets))
	for i, s := range sets {
		l, ok := d.setLayouts.get(hal.Handle(s))
		if !ok {
			return 0, unknown("descriptor set layout", hal.Handle(s))
		}
		layouts[i] = l
	}
	ranges := make([]vk.PushConstantRange, len(push))
	for i, p := range push {
		ranges[i] = vk.PushConstantRange{
			StageFlags: vkShaderStages(p.Stages),
			Offset:     p.Offset,
			Size:       p.Size,
		}
	}
	var layout vk.PipelineLayout
	ret := vk.CreatePipelineLayout(d.device, &vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(layouts)),
		PSetLayouts:            layouts,
		PushConstantRangeCount: uint32(len(ranges)),
		PPushConstantRanges:    ranges,
	}, nil, &layout)
	if err := wrap(ret, "create pipeline layout"); err != nil {
		return 0, err
	}
	return hal.PipelineLayout(d.layouts.add(layout)), nil
}

func (d *Device) DestroyPipelineLayout(h hal.PipelineLayout) {
	l, ok := d.layouts.remove(hal.Handle(h))
	if !ok {
		d.stale("pipeline layout", hal.Handle(h))
		return
	}
	vk.DestroyPipelineLayout(d.device, l, nil)
}

// specialization packs the constants of one stage back to back.
func specialization(consts []hal.SpecializationConstant) ([]vk.SpecializationMapEntry, []byte) {
	var entries []vk.SpecializationMapEntry
	var data []byte
	for _, c := range consts {
		entries = append(entries, vk.SpecializationMapEntry{
			ConstantID: c.ID,
			Offset:     uint32(len(data)),
			Size:       uint(len(c.Data)),
		})
		data = append(data, c.Data...)
	}
	return entries, data
}

func (d *Device) CreateGraphicsPipeline(desc hal.GraphicsPipelineDesc) (hal.Pipeline, error) {
	layout, ok := d.layouts.get(hal.Handle(desc.Layout))
	if !ok {
		return 0, unknown("pipeline layout", hal.Handle(desc.Layout))
	}
	rp, ok := d.renderPasses.get(hal.Handle(desc.RenderPass))
	if !ok {
		return 0, unknown("render pass", hal.Handle(desc.RenderPass))
	}

	// Specialization data lives in Go memory referenced from the create
	// info, so it stays pinned until the call returns.
	var pinner runtime.Pinner
	defer pinner.Unpin()

	stages := make([]vk.PipelineShaderStageCreateInfo, len(desc.Stages))
	for i, s := range desc.Stages {
		module, ok := d.modules.get(hal.Handle(s.Module))
		if !ok {
			return 0, unknown("shader module", hal.Handle(s.Module))
		}
		stages[i] = vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFlagBits(vkShaderStages(s.Stage)),
			Module: module,
			PName:  safeString(s.Entry),
		}
		if entries, data := specialization(s.Specialization); len(data) > 0 {
			pinner.Pin(&data[0])
			stages[i].PSpecializationInfo = []vk.SpecializationInfo{{
				MapEntryCount: uint32(len(entries)),
				PMapEntries:   entries,
				DataSize:      uint(len(data)),
				PData:         unsafe.Pointer(&data[0]),
			}}
		}
	}

	bindings := make([]vk.VertexInputBindingDescription, len(desc.VertexBindings))
	for i, b := range desc.VertexBindings {
		bindings[i] = vk.VertexInputBindingDescription{
			Binding:   b.Binding,
			Stride:    b.Stride,
			InputRate: vk.VertexInputRateVertex,
		}
	}
	attrs := make([]vk.VertexInputAttributeDescription, len(desc.VertexAttributes))
	for i, a := range desc.VertexAttributes {
		attrs[i] = vk.VertexInputAttributeDescription{
			Location: a.Location,
			Binding:  a.Binding,
			Format:   vkFormat(a.Format),
			Offset:   a.Offset,
		}
	}

	topology := vk.PrimitiveTopologyTriangleList
	if desc.Topology == hal.TopologyTriangleStrip {
		topology = vk.PrimitiveTopologyTriangleStrip
	}
	polygon := vk.PolygonModeFill
	if desc.Polygon == hal.PolygonLine {
		polygon = vk.PolygonModeLine
	}

	writeAll := vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit)
	blend := make([]vk.PipelineColorBlendAttachmentState, len(desc.Blend))
	for i, b := range desc.Blend {
		blend[i] = vk.PipelineColorBlendAttachmentState{
			BlendEnable:    vk.False,
			ColorWriteMask: writeAll,
		}
		if b == hal.BlendAlpha {
			blend[i] = vk.PipelineColorBlendAttachmentState{
				BlendEnable:         vk.True,
				SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
				DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
				ColorBlendOp:        vk.BlendOpAdd,
				SrcAlphaBlendFactor: vk.BlendFactorOne,
				DstAlphaBlendFactor: vk.BlendFactorZero,
				AlphaBlendOp:        vk.BlendOpAdd,
				ColorWriteMask:      writeAll,
			}
		}
	}

	dynamic := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	info := vk.GraphicsPipelineCreateInfo{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: uint32(len(stages)),
		PStages:    stages,
		PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
			SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
			VertexBindingDescriptionCount:   uint32(len(bindings)),
			PVertexBindingDescriptions:      bindings,
			VertexAttributeDescriptionCount: uint32(len(attrs)),
			PVertexAttributeDescriptions:    attrs,
		},
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology:               topology,
			PrimitiveRestartEnable: vk.False,
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
			DepthClampEnable:        vk.False,
			RasterizerDiscardEnable: vk.False,
			PolygonMode:             polygon,
			CullMode:                vk.CullModeFlags(vk.CullModeNone),
			FrontFace:               vk.FrontFaceClockwise,
			DepthBiasEnable:         vk.False,
			LineWidth:               1.0,
		},
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vk.SampleCount1Bit,
			SampleShadingEnable:  vk.False,
			MinSampleShading:     1.0,
		},
		PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
			LogicOpEnable:   vk.False,
			LogicOp:         vk.LogicOpCopy,
			AttachmentCount: uint32(len(blend)),
			PAttachments:    blend,
		},
		PDynamicState: &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: uint32(len(dynamic)),
			PDynamicStates:    dynamic,
		},
		Layout:     layout,
		RenderPass: rp,
		Subpass:    desc.Subpass,
	}

	pipelines := []vk.Pipeline{vk.NullPipeline}
	ret := vk.CreateGraphicsPipelines(d.device, vk.NullPipelineCache, 1, []vk.GraphicsPipelineCreateInfo{info}, nil, pipelines)
	if err := wrap(ret, "create graphics pipeline"); err != nil {
		return 0, err
	}
	return hal.Pipeline(d.pipelines.add(pipelines[0])), nil
}

func (d *Device) DestroyPipeline(h hal.Pipeline) {
	p, ok := d.pipelines.remove(hal.Handle(h))
	if !ok {
		d.stale("pipeline", hal.Handle(h))
		return
	}
	vk.DestroyPipeline(d.device, p, nil)
}
