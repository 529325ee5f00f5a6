package vulkan

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/corporation/hal"
)

var formats = map[hal.Format]vk.Format{
	hal.FormatRGBA8Unorm: vk.FormatR8g8b8a8Unorm,
	hal.FormatRGBA8Srgb:  vk.FormatR8g8b8a8Srgb,
	hal.FormatBGRA8Unorm: vk.FormatB8g8r8a8Unorm,
	hal.FormatBGRA8Srgb:  vk.FormatB8g8r8a8Srgb,
	hal.FormatRG32Float:  vk.FormatR32g32Sfloat,
	hal.FormatRGB32Float: vk.FormatR32g32b32Sfloat,
}

func vkFormat(f hal.Format) vk.Format {
	if v, ok := formats[f]; ok {
		return v
	}
	return vk.FormatUndefined
}

// halFormat is the inverse of vkFormat. Formats hal has no name for
// become FormatUndefined.
func halFormat(f vk.Format) hal.Format {
	for k, v := range formats {
		if v == f {
			return k
		}
	}
	return hal.FormatUndefined
}

func vkLayout(l hal.ImageLayout) vk.ImageLayout {
	switch l {
	case hal.LayoutTransferDst:
		return vk.ImageLayoutTransferDstOptimal
	case hal.LayoutShaderReadOnly:
		return vk.ImageLayoutShaderReadOnlyOptimal
	case hal.LayoutColorAttachment:
		return vk.ImageLayoutColorAttachmentOptimal
	case hal.LayoutPresentSrc:
		return vk.ImageLayoutPresentSrc
	}
	return vk.ImageLayoutUndefined
}

func vkStages(s hal.PipelineStage) vk.PipelineStageFlags {
	var f vk.PipelineStageFlagBits
	if s&hal.PipelineStageTopOfPipe != 0 {
		f |= vk.PipelineStageTopOfPipeBit
	}
	if s&hal.PipelineStageTransfer != 0 {
		f |= vk.PipelineStageTransferBit
	}
	if s&hal.PipelineStageFragmentShader != 0 {
		f |= vk.PipelineStageFragmentShaderBit
	}
	if s&hal.PipelineStageColorAttachmentOutput != 0 {
		f |= vk.PipelineStageColorAttachmentOutputBit
	}
	if s&hal.PipelineStageBottomOfPipe != 0 {
		f |= vk.PipelineStageBottomOfPipeBit
	}
	return vk.PipelineStageFlags(f)
}

func vkAccess(a hal.Access) vk.AccessFlags {
	var f vk.AccessFlagBits
	if a&hal.AccessTransferWrite != 0 {
		f |= vk.AccessTransferWriteBit
	}
	if a&hal.AccessShaderRead != 0 {
		f |= vk.AccessShaderReadBit
	}
	if a&hal.AccessColorAttachmentRead != 0 {
		f |= vk.AccessColorAttachmentReadBit
	}
	if a&hal.AccessColorAttachmentWrite != 0 {
		f |= vk.AccessColorAttachmentWriteBit
	}
	return vk.AccessFlags(f)
}

func vkShaderStages(s hal.ShaderStage) vk.ShaderStageFlags {
	var f vk.ShaderStageFlagBits
	if s&hal.ShaderStageVertex != 0 {
		f |= vk.ShaderStageVertexBit
	}
	if s&hal.ShaderStageFragment != 0 {
		f |= vk.ShaderStageFragmentBit
	}
	return vk.ShaderStageFlags(f)
}

func vkBufferUsage(u hal.BufferUsage) vk.BufferUsageFlags {
	var f vk.BufferUsageFlagBits
	if u&hal.BufferTransferSrc != 0 {
		f |= vk.BufferUsageTransferSrcBit
	}
	if u&hal.BufferTransferDst != 0 {
		f |= vk.BufferUsageTransferDstBit
	}
	if u&hal.BufferUniform != 0 {
		f |= vk.BufferUsageUniformBufferBit
	}
	if u&hal.BufferIndex != 0 {
		f |= vk.BufferUsageIndexBufferBit
	}
	if u&hal.BufferVertex != 0 {
		f |= vk.BufferUsageVertexBufferBit
	}
	return vk.BufferUsageFlags(f)
}

func vkImageUsage(u hal.ImageUsage) vk.ImageUsageFlags {
	var f vk.ImageUsageFlagBits
	if u&hal.ImageTransferSrc != 0 {
		f |= vk.ImageUsageTransferSrcBit
	}
	if u&hal.ImageTransferDst != 0 {
		f |= vk.ImageUsageTransferDstBit
	}
	if u&hal.ImageSampled != 0 {
		f |= vk.ImageUsageSampledBit
	}
	if u&hal.ImageColorAttachment != 0 {
		f |= vk.ImageUsageColorAttachmentBit
	}
	return vk.ImageUsageFlags(f)
}

func vkDescriptorType(t hal.DescriptorType) vk.DescriptorType {
	switch t {
	case hal.DescriptorSampler:
		return vk.DescriptorTypeSampler
	case hal.DescriptorUniformBuffer:
		return vk.DescriptorTypeUniformBuffer
	}
	return vk.DescriptorTypeSampledImage
}

func vkLoadOp(op hal.LoadOp) vk.AttachmentLoadOp {
	switch op {
	case hal.LoadOpClear:
		return vk.AttachmentLoadOpClear
	case hal.LoadOpDontCare:
		return vk.AttachmentLoadOpDontCare
	}
	return vk.AttachmentLoadOpLoad
}

func vkStoreOp(op hal.StoreOp) vk.AttachmentStoreOp {
	if op == hal.StoreOpDontCare {
		return vk.AttachmentStoreOpDontCare
	}
	return vk.AttachmentStoreOpStore
}

func vkPresentMode(m hal.PresentMode) vk.PresentMode {
	switch m {
	case hal.PresentMailbox:
		return vk.PresentModeMailbox
	case hal.PresentImmediate:
		return vk.PresentModeImmediate
	}
	return vk.PresentModeFifo
}

func halMemoryProperty(f vk.MemoryPropertyFlags) hal.MemoryProperty {
	var p hal.MemoryProperty
	bits := vk.MemoryPropertyFlagBits(f)
	if bits&vk.MemoryPropertyDeviceLocalBit != 0 {
		p |= hal.MemoryDeviceLocal
	}
	if bits&vk.MemoryPropertyHostVisibleBit != 0 {
		p |= hal.MemoryHostVisible
	}
	if bits&vk.MemoryPropertyHostCoherentBit != 0 {
		p |= hal.MemoryHostCoherent
	}
	if bits&vk.MemoryPropertyHostCachedBit != 0 {
		p |= hal.MemoryHostCached
	}
	if bits&vk.MemoryPropertyLazilyAllocatedBit != 0 {
		p |= hal.MemoryLazilyAllocated
	}
	return p
}

func halQueueCapability(f vk.QueueFlags) hal.QueueCapability {
	var c hal.QueueCapability
	bits := vk.QueueFlagBits(f)
	if bits&vk.QueueGraphicsBit != 0 {
		c |= hal.QueueGraphics
	}
	if bits&vk.QueueComputeBit != 0 {
		c |= hal.QueueCompute
	}
	if bits&vk.QueueTransferBit != 0 {
		c |= hal.QueueTransfer
	}
	return c
}

func halDeviceType(t vk.PhysicalDeviceType) hal.DeviceType {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return hal.DeviceIntegrated
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return hal.DeviceDiscrete
	case vk.PhysicalDeviceTypeVirtualGpu:
		return hal.DeviceVirtual
	case vk.PhysicalDeviceTypeCpu:
		return hal.DeviceCPU
	}
	return hal.DeviceOther
}

func vkExtent(e hal.Extent2D) vk.Extent2D {
	return vk.Extent2D{Width: e.Width, Height: e.Height}
}

func halExtent(e vk.Extent2D) hal.Extent2D {
	return hal.Extent2D{Width: e.Width, Height: e.Height}
}

func vkRect(r hal.Rect2D) vk.Rect2D {
	return vk.Rect2D{
		Offset: vk.Offset2D{X: r.X, Y: r.Y},
		Extent: vkExtent(r.Extent),
	}
}

var colorSubresource = vk.ImageSubresourceRange{
	AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
	LevelCount: 1,
	LayerCount: 1,
}
