// Package hal is the hardware abstraction the renderer is written against.
//
// A backend owns every native object it creates and hands out opaque handles.
// A handle is an index into the backend's object table; the zero value is the
// null handle and is never returned by a successful Create call. Destroying a
// handle twice, or using it after destruction, is a programming error that
// backends are free to ignore or report through their logger.
//
// The only implementations shipped with the module are hal/vulkan, a Vulkan
// backend over github.com/vulkan-go/vulkan, and hal/haltest, a recording
// software backend used by tests.
package hal

// Handle is an opaque id into a backend object table.
type Handle uint64

// Typed handles. Each names a distinct kind of backend object so that, for
// example, an ImageView can never be passed where a Framebuffer is expected.
type (
	Buffer              Handle
	Memory              Handle
	Image               Handle
	ImageView           Handle
	Sampler             Handle
	DescriptorSetLayout Handle
	DescriptorPool      Handle
	DescriptorSet       Handle
	Swapchain           Handle
	RenderPass          Handle
	Framebuffer         Handle
	ShaderModule        Handle
	PipelineLayout      Handle
	Pipeline            Handle
	CommandPool         Handle
	CommandBuffer       Handle
	Fence               Handle
	Semaphore           Handle
)

// Forever is the timeout that never expires.
const Forever = ^uint64(0)

// SubpassExternal refers to work outside of the render pass in a dependency.
const SubpassExternal = ^uint32(0)
