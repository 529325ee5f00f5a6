package hal

// Instance is the entry point of a backend. It enumerates adapters and
// creates the surface for the window it was opened with.
type Instance interface {
	Adapters() ([]Adapter, error)
	CreateSurface() (Surface, error)
	Destroy()
}

// Adapter is a physical GPU.
type Adapter interface {
	Info() AdapterInfo
	Limits() Limits
	// MemoryTypes returns the memory type table, ordered by type index.
	MemoryTypes() []MemoryType
	QueueFamilies() []QueueFamily
	// Open creates a logical device with one queue from the given family.
	Open(family uint32) (Device, error)
}

// Surface is a presentable window surface.
type Surface interface {
	SupportsQueueFamily(a Adapter, family uint32) bool
	Capabilities(a Adapter) (SurfaceCapabilities, error)
	// Formats returns the formats the surface can present. A nil slice
	// means the surface places no constraint on the format.
	Formats(a Adapter) ([]Format, error)
	Destroy()
}

// Queue submits work and presents swapchain images.
type Queue interface {
	Submit(sub Submission, signal Fence) error
	// Present queues image index of sc for presentation once wait signals.
	// It returns ErrOutOfDate or ErrSuboptimal when the swapchain no longer
	// matches the surface.
	Present(sc Swapchain, index uint32, wait Semaphore) error
}

// Device is a logical device. It owns every object it creates.
type Device interface {
	Queue() Queue
	QueueFamily() uint32
	WaitIdle() error
	Destroy()

	CreateBuffer(size uint64, usage BufferUsage) (Buffer, error)
	BufferRequirements(b Buffer) MemoryRequirements
	DestroyBuffer(b Buffer)

	AllocateMemory(typeIndex uint32, size uint64) (Memory, error)
	BindBufferMemory(b Buffer, m Memory, offset uint64) error
	BindImageMemory(img Image, m Memory, offset uint64) error
	// MapMemory returns a host view of size bytes of m starting at offset.
	// The slice is only valid until UnmapMemory.
	MapMemory(m Memory, offset, size uint64) ([]byte, error)
	UnmapMemory(m Memory)
	FreeMemory(m Memory)

	CreateImage(desc ImageDesc) (Image, error)
	ImageRequirements(img Image) MemoryRequirements
	DestroyImage(img Image)
	CreateImageView(img Image, format Format) (ImageView, error)
	DestroyImageView(v ImageView)
	CreateSampler(desc SamplerDesc) (Sampler, error)
	DestroySampler(s Sampler)

	CreateDescriptorSetLayout(bindings []DescriptorBinding) (DescriptorSetLayout, error)
	DestroyDescriptorSetLayout(l DescriptorSetLayout)
	CreateDescriptorPool(maxSets uint32, sizes []DescriptorPoolSize) (DescriptorPool, error)
	DestroyDescriptorPool(p DescriptorPool)
	// AllocateDescriptorSet returns ErrExhausted when p has no room left.
	AllocateDescriptorSet(p DescriptorPool, l DescriptorSetLayout) (DescriptorSet, error)
	WriteDescriptorSets(writes []DescriptorWrite)

	// CreateSwapchain creates a swapchain for s. When old is not null its
	// resources are handed over to the new swapchain; the caller still
	// destroys old afterwards.
	CreateSwapchain(s Surface, cfg SwapchainConfig, old Swapchain) (Swapchain, []Image, error)
	DestroySwapchain(sc Swapchain)
	// AcquireImage returns the index of the next presentable image and
	// signals signal once it is ready. It returns ErrOutOfDate when the
	// swapchain must be recreated.
	AcquireImage(sc Swapchain, timeout uint64, signal Semaphore) (uint32, error)

	CreateRenderPass(desc RenderPassDesc) (RenderPass, error)
	DestroyRenderPass(rp RenderPass)
	CreateFramebuffer(rp RenderPass, views []ImageView, extent Extent2D) (Framebuffer, error)
	DestroyFramebuffer(fb Framebuffer)

	CreateShaderModule(code []uint32) (ShaderModule, error)
	DestroyShaderModule(m ShaderModule)
	CreatePipelineLayout(sets []DescriptorSetLayout, push []PushConstantRange) (PipelineLayout, error)
	DestroyPipelineLayout(l PipelineLayout)
	CreateGraphicsPipeline(desc GraphicsPipelineDesc) (Pipeline, error)
	DestroyPipeline(p Pipeline)

	CreateCommandPool() (CommandPool, error)
	ResetCommandPool(p CommandPool) error
	DestroyCommandPool(p CommandPool)
	AllocateCommandBuffer(p CommandPool) (CommandBuffer, error)
	// Encoder returns a recorder for cb. Recording is not safe for
	// concurrent use.
	Encoder(cb CommandBuffer) CommandEncoder

	CreateFence(signaled bool) (Fence, error)
	WaitForFence(f Fence, timeout uint64) error
	ResetFence(f Fence) error
	DestroyFence(f Fence)
	CreateSemaphore() (Semaphore, error)
	DestroySemaphore(s Semaphore)
}

// CommandEncoder records commands into a command buffer.
// Recording errors are reported by End.
type CommandEncoder interface {
	Begin(oneShot bool) error
	End() error

	PipelineBarrier(src, dst PipelineStage, barriers []ImageBarrier)
	CopyBufferToImage(src Buffer, dst Image, layout ImageLayout, regions []BufferImageCopy)

	SetViewport(v Viewport)
	SetScissor(r Rect2D)
	BindGraphicsPipeline(p Pipeline)
	BindVertexBuffers(first uint32, buffers []Buffer, offsets []uint64)
	BindIndexBuffer(b Buffer, offset uint64, t IndexType)
	BindGraphicsDescriptorSets(layout PipelineLayout, first uint32, sets []DescriptorSet)

	BeginRenderPass(rp RenderPass, fb Framebuffer, area Rect2D, clear [4]float32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
	EndRenderPass()
}
