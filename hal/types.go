package hal

// DeviceType classifies a physical adapter.
type DeviceType int

const (
	DeviceOther DeviceType = iota
	DeviceIntegrated
	DeviceDiscrete
	DeviceVirtual
	DeviceCPU
)

func (t DeviceType) String() string {
	switch t {
	case DeviceIntegrated:
		return "integrated"
	case DeviceDiscrete:
		return "discrete"
	case DeviceVirtual:
		return "virtual"
	case DeviceCPU:
		return "cpu"
	}
	return "other"
}

// AdapterInfo describes a physical adapter.
type AdapterInfo struct {
	Name   string
	Vendor uint32
	Device uint32
	Type   DeviceType
}

// Limits are the device limits the renderer depends on.
type Limits struct {
	MaxImageDimension2D             uint32
	MaxBoundDescriptorSets          uint32
	MaxPushConstantsSize            uint32
	OptimalBufferCopyPitchAlignment uint64
	MinUniformBufferOffsetAlignment uint64
	NonCoherentAtomSize             uint64
}

// MemoryProperty is a set of memory type property flags.
type MemoryProperty uint32

const (
	MemoryDeviceLocal MemoryProperty = 1 << iota
	MemoryHostVisible
	MemoryHostCoherent
	MemoryHostCached
	MemoryLazilyAllocated
)

// Contains reports whether p has every flag in q set.
func (p MemoryProperty) Contains(q MemoryProperty) bool { return p&q == q }

// MemoryType is one entry of an adapter's memory type table.
// Its position in the table is its type index.
type MemoryType struct {
	Properties MemoryProperty
	HeapIndex  uint32
}

// MemoryRequirements are the size, alignment and allowed memory types
// of a buffer or image. Bit i of TypeMask is set when type index i may back it.
type MemoryRequirements struct {
	Size      uint64
	Alignment uint64
	TypeMask  uint32
}

// QueueCapability is a set of queue family capabilities.
type QueueCapability uint32

const (
	QueueGraphics QueueCapability = 1 << iota
	QueueCompute
	QueueTransfer
)

// QueueFamily describes one queue family of an adapter.
type QueueFamily struct {
	Index        uint32
	Capabilities QueueCapability
	Count        uint32
}

// Supports reports whether the family has every capability in c.
func (f QueueFamily) Supports(c QueueCapability) bool { return f.Capabilities&c == c }

// Format is a pixel or vertex attribute format.
type Format int

const (
	FormatUndefined Format = iota
	FormatRGBA8Unorm
	FormatRGBA8Srgb
	FormatBGRA8Unorm
	FormatBGRA8Srgb
	FormatRG32Float
	FormatRGB32Float
)

// IsSrgb reports whether the format is sRGB encoded.
func (f Format) IsSrgb() bool { return f == FormatRGBA8Srgb || f == FormatBGRA8Srgb }

func (f Format) String() string {
	switch f {
	case FormatRGBA8Unorm:
		return "RGBA8Unorm"
	case FormatRGBA8Srgb:
		return "RGBA8Srgb"
	case FormatBGRA8Unorm:
		return "BGRA8Unorm"
	case FormatBGRA8Srgb:
		return "BGRA8Srgb"
	case FormatRG32Float:
		return "RG32Float"
	case FormatRGB32Float:
		return "RGB32Float"
	}
	return "Undefined"
}

type Extent2D struct {
	Width  uint32
	Height uint32
}

type Rect2D struct {
	X, Y   int32
	Extent Extent2D
}

type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

// SurfaceCapabilities are the surface limits a swapchain must respect.
// A CurrentExtent of 0xFFFFFFFF in both dimensions means the surface
// size is determined by the swapchain extent.
type SurfaceCapabilities struct {
	MinImageCount uint32
	MaxImageCount uint32 // 0 means no limit
	CurrentExtent Extent2D
	MinExtent     Extent2D
	MaxExtent     Extent2D
}

type PresentMode int

const (
	PresentFifo PresentMode = iota
	PresentMailbox
	PresentImmediate
)

type SwapchainConfig struct {
	Format      Format
	Extent      Extent2D
	ImageCount  uint32
	PresentMode PresentMode
}

type BufferUsage uint32

const (
	BufferTransferSrc BufferUsage = 1 << iota
	BufferTransferDst
	BufferUniform
	BufferIndex
	BufferVertex
)

type ImageUsage uint32

const (
	ImageTransferSrc ImageUsage = 1 << iota
	ImageTransferDst
	ImageSampled
	ImageColorAttachment
)

type ImageDesc struct {
	Extent    Extent2D
	Format    Format
	Usage     ImageUsage
	MipLevels uint32
}

type ImageLayout int

const (
	LayoutUndefined ImageLayout = iota
	LayoutTransferDst
	LayoutShaderReadOnly
	LayoutColorAttachment
	LayoutPresentSrc
)

type Access uint32

const (
	AccessTransferWrite Access = 1 << iota
	AccessShaderRead
	AccessColorAttachmentRead
	AccessColorAttachmentWrite
)

type PipelineStage uint32

const (
	PipelineStageTopOfPipe PipelineStage = 1 << iota
	PipelineStageTransfer
	PipelineStageFragmentShader
	PipelineStageColorAttachmentOutput
	PipelineStageBottomOfPipe
)

type ShaderStage uint32

const (
	ShaderStageVertex ShaderStage = 1 << iota
	ShaderStageFragment
)

func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "vertex"
	case ShaderStageFragment:
		return "fragment"
	}
	return "unknown"
}

// ImageBarrier transitions an image between layouts and orders the
// given accesses.
type ImageBarrier struct {
	Image     Image
	SrcAccess Access
	DstAccess Access
	OldLayout ImageLayout
	NewLayout ImageLayout
}

// BufferImageCopy copies tightly laid out rows of RowLength texels
// from a buffer into the color aspect of an image.
type BufferImageCopy struct {
	BufferOffset uint64
	RowLength    uint32
	ImageHeight  uint32
	ImageExtent  Extent2D
}

type Filter int

const (
	FilterNearest Filter = iota
	FilterLinear
)

type WrapMode int

const (
	WrapRepeat WrapMode = iota
	WrapClamp
)

type SamplerDesc struct {
	Filter Filter
	Wrap   WrapMode
}

type DescriptorType int

const (
	DescriptorSampledImage DescriptorType = iota
	DescriptorSampler
	DescriptorUniformBuffer
)

func (t DescriptorType) String() string {
	switch t {
	case DescriptorSampledImage:
		return "sampled image"
	case DescriptorSampler:
		return "sampler"
	case DescriptorUniformBuffer:
		return "uniform buffer"
	}
	return "unknown"
}

// DescriptorBinding is one entry of a descriptor set layout.
type DescriptorBinding struct {
	Binding uint32
	Type    DescriptorType
	Count   uint32
	Stages  ShaderStage
}

type DescriptorPoolSize struct {
	Type  DescriptorType
	Count uint32
}

// DescriptorWrite binds one resource to (Binding, ArrayOffset) of Set.
// Which resource fields are read depends on Type.
type DescriptorWrite struct {
	Set         DescriptorSet
	Binding     uint32
	ArrayOffset uint32
	Type        DescriptorType

	View    ImageView
	Layout  ImageLayout
	Sampler Sampler

	Buffer Buffer
	Offset uint64
	Range  uint64
}

type LoadOp int

const (
	LoadOpLoad LoadOp = iota
	LoadOpClear
	LoadOpDontCare
)

type StoreOp int

const (
	StoreOpStore StoreOp = iota
	StoreOpDontCare
)

type Attachment struct {
	Format        Format
	Load          LoadOp
	Store         StoreOp
	InitialLayout ImageLayout
	FinalLayout   ImageLayout
}

type SubpassDependency struct {
	SrcSubpass uint32
	DstSubpass uint32
	SrcStage   PipelineStage
	DstStage   PipelineStage
	SrcAccess  Access
	DstAccess  Access
}

// RenderPassDesc describes a single-subpass render pass whose subpass
// writes every attachment as a color attachment.
type RenderPassDesc struct {
	Attachments  []Attachment
	Dependencies []SubpassDependency
}

type SpecializationConstant struct {
	ID   uint32
	Data []byte
}

type ShaderStageDesc struct {
	Stage          ShaderStage
	Module         ShaderModule
	Entry          string
	Specialization []SpecializationConstant
}

type VertexBinding struct {
	Binding uint32
	Stride  uint32
}

type VertexAttribute struct {
	Location uint32
	Binding  uint32
	Format   Format
	Offset   uint32
}

type Topology int

const (
	TopologyTriangleList Topology = iota
	TopologyTriangleStrip
)

type PolygonMode int

const (
	PolygonFill PolygonMode = iota
	PolygonLine
)

type BlendMode int

const (
	BlendNone BlendMode = iota
	BlendAlpha
)

type PushConstantRange struct {
	Stages ShaderStage
	Offset uint32
	Size   uint32
}

// GraphicsPipelineDesc describes a graphics pipeline with dynamic
// viewport and scissor state.
type GraphicsPipelineDesc struct {
	Layout     PipelineLayout
	RenderPass RenderPass
	Subpass    uint32
	Stages     []ShaderStageDesc

	VertexBindings   []VertexBinding
	VertexAttributes []VertexAttribute

	Topology Topology
	Polygon  PolygonMode
	Blend    []BlendMode // one per color attachment
}

type IndexType int

const (
	IndexUint16 IndexType = iota
	IndexUint32
)

// Submission is a batch of command buffers submitted to a queue.
// WaitStages[i] is the stage at which WaitSemaphores[i] is waited on.
type Submission struct {
	CommandBuffers   []CommandBuffer
	WaitSemaphores   []Semaphore
	WaitStages       []PipelineStage
	SignalSemaphores []Semaphore
}
