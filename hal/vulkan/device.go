package vulkan

import (
	"log/slog"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/corporation/hal"
)

// VK_WHOLE_SIZE
const wholeSize = vk.DeviceSize(^uint64(0))

var (
	_ hal.Instance       = (*Instance)(nil)
	_ hal.Adapter        = (*Adapter)(nil)
	_ hal.Surface        = (*Surface)(nil)
	_ hal.Device         = (*Device)(nil)
	_ hal.Queue          = (*Queue)(nil)
	_ hal.CommandEncoder = (*encoder)(nil)
)

type memory struct {
	mem    vk.DeviceMemory
	size   uint64
	mapped bool
}

type image struct {
	img vk.Image
	// owner is the swapchain the image belongs to, or null for images the
	// device created itself.
	owner hal.Swapchain
}

type descriptorSet struct {
	set  vk.DescriptorSet
	pool hal.DescriptorPool
}

type commandBuffer struct {
	cb   vk.CommandBuffer
	pool hal.CommandPool
}

// Device is a logical device. Every native object it creates lives in one
// of its tables until the matching Destroy call.
type Device struct {
	adapter *Adapter
	device  vk.Device
	family  uint32
	queue   *Queue
	log     *slog.Logger

	next         hal.Handle
	buffers      table[vk.Buffer]
	memories     table[*memory]
	images       table[image]
	views        table[vk.ImageView]
	samplers     table[vk.Sampler]
	setLayouts   table[vk.DescriptorSetLayout]
	descPools    table[vk.DescriptorPool]
	descSets     table[descriptorSet]
	swapchains   table[*swapchain]
	renderPasses table[vk.RenderPass]
	framebuffers table[vk.Framebuffer]
	modules      table[vk.ShaderModule]
	layouts      table[vk.PipelineLayout]
	pipelines    table[vk.Pipeline]
	cmdPools     table[vk.CommandPool]
	cmdBuffers   table[commandBuffer]
	fences       table[vk.Fence]
	semaphores   table[vk.Semaphore]
}

func newDevice(a *Adapter, device vk.Device, family uint32) *Device {
	d := &Device{adapter: a, device: device, family: family, log: a.inst.log}
	d.buffers = newTable[vk.Buffer](&d.next)
	d.memories = newTable[*memory](&d.next)
	d.images = newTable[image](&d.next)
	d.views = newTable[vk.ImageView](&d.next)
	d.samplers = newTable[vk.Sampler](&d.next)
	d.setLayouts = newTable[vk.DescriptorSetLayout](&d.next)
	d.descPools = newTable[vk.DescriptorPool](&d.next)
	d.descSets = newTable[descriptorSet](&d.next)
	d.swapchains = newTable[*swapchain](&d.next)
	d.renderPasses = newTable[vk.RenderPass](&d.next)
	d.framebuffers = newTable[vk.Framebuffer](&d.next)
	d.modules = newTable[vk.ShaderModule](&d.next)
	d.layouts = newTable[vk.PipelineLayout](&d.next)
	d.pipelines = newTable[vk.Pipeline](&d.next)
	d.cmdPools = newTable[vk.CommandPool](&d.next)
	d.cmdBuffers = newTable[commandBuffer](&d.next)
	d.fences = newTable[vk.Fence](&d.next)
	d.semaphores = newTable[vk.Semaphore](&d.next)

	var q vk.Queue
	vk.GetDeviceQueue(device, family, 0, &q)
	d.queue = &Queue{d: d, queue: q}
	return d
}

// Handle returns the native device.
func (d *Device) Handle() vk.Device { return d.device }

func (d *Device) Queue() hal.Queue    { return d.queue }
func (d *Device) QueueFamily() uint32 { return d.family }

func (d *Device) WaitIdle() error {
	return wrap(vk.DeviceWaitIdle(d.device), "wait idle")
}

// Destroy destroys the device. Objects still in its tables are reported
// and left to the driver.
func (d *Device) Destroy() {
	if d.device == nil {
		return
	}
	if n := d.live(); n > 0 {
		d.log.Warn("vulkan: destroying device with live objects", "count", n)
	}
	vk.DestroyDevice(d.device, nil)
	d.device = nil
}

func (d *Device) live() int {
	return d.buffers.len() + d.memories.len() + d.views.len() + d.samplers.len() +
		d.setLayouts.len() + d.descPools.len() + d.swapchains.len() + d.renderPasses.len() +
		d.framebuffers.len() + d.modules.len() + d.layouts.len() + d.pipelines.len() +
		d.cmdPools.len() + d.fences.len() + d.semaphores.len()
}

func (d *Device) stale(kind string, h hal.Handle) {
	if h != 0 {
		d.log.Error("vulkan: destroy of unknown handle", "kind", kind, "handle", h)
	}
}

func (d *Device) CreateBuffer(size uint64, usage hal.BufferUsage) (hal.Buffer, error) {
	var buf vk.Buffer
	ret := vk.CreateBuffer(d.device, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vkBufferUsage(usage),
		SharingMode: vk.SharingModeExclusive,
	}, nil, &buf)
	if err := wrap(ret, "create buffer"); err != nil {
		return 0, err
	}
	return hal.Buffer(d.buffers.add(buf)), nil
}

func requirements(r vk.MemoryRequirements) hal.MemoryRequirements {
	r.Deref()
	return hal.MemoryRequirements{
		Size:      uint64(r.Size),
		Alignment: uint64(r.Alignment),
		TypeMask:  r.MemoryTypeBits,
	}
}

func (d *Device) BufferRequirements(b hal.Buffer) hal.MemoryRequirements {
	buf, ok := d.buffers.get(hal.Handle(b))
	if !ok {
		return hal.MemoryRequirements{}
	}
	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.device, buf, &reqs)
	return requirements(reqs)
}

func (d *Device) DestroyBuffer(b hal.Buffer) {
	buf, ok := d.buffers.remove(hal.Handle(b))
	if !ok {
		d.stale("buffer", hal.Handle(b))
		return
	}
	vk.DestroyBuffer(d.device, buf, nil)
}

func (d *Device) AllocateMemory(typeIndex uint32, size uint64) (hal.Memory, error) {
	var mem vk.DeviceMemory
	ret := vk.AllocateMemory(d.device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(size),
		MemoryTypeIndex: typeIndex,
	}, nil, &mem)
	if err := wrap(ret, "allocate memory"); err != nil {
		return 0, err
	}
	return hal.Memory(d.memories.add(&memory{mem: mem, size: size})), nil
}

func (d *Device) BindBufferMemory(b hal.Buffer, m hal.Memory, offset uint64) error {
	buf, ok := d.buffers.get(hal.Handle(b))
	if !ok {
		return unknown("buffer", hal.Handle(b))
	}
	mem, ok := d.memories.get(hal.Handle(m))
	if !ok {
		return unknown("memory", hal.Handle(m))
	}
	return wrap(vk.BindBufferMemory(d.device, buf, mem.mem, vk.DeviceSize(offset)), "bind buffer memory")
}

func (d *Device) BindImageMemory(img hal.Image, m hal.Memory, offset uint64) error {
	im, ok := d.images.get(hal.Handle(img))
	if !ok {
		return unknown("image", hal.Handle(img))
	}
	mem, ok := d.memories.get(hal.Handle(m))
	if !ok {
		return unknown("memory", hal.Handle(m))
	}
	return wrap(vk.BindImageMemory(d.device, im.img, mem.mem, vk.DeviceSize(offset)), "bind image memory")
}

func (d *Device) MapMemory(m hal.Memory, offset, size uint64) ([]byte, error) {
	mem, ok := d.memories.get(hal.Handle(m))
	if !ok {
		return nil, unknown("memory", hal.Handle(m))
	}
	if mem.mapped {
		return nil, errors.Errorf("memory %d is already mapped", m)
	}
	if offset+size > mem.size {
		return nil, errors.Errorf("map of [%d, %d) exceeds %d byte allocation", offset, offset+size, mem.size)
	}
	var ptr unsafe.Pointer
	ret := vk.MapMemory(d.device, mem.mem, vk.DeviceSize(offset), vk.DeviceSize(size), 0, &ptr)
	if err := wrap(ret, "map memory"); err != nil {
		return nil, err
	}
	mem.mapped = true
	return unsafe.Slice((*byte)(ptr), size), nil
}

func (d *Device) UnmapMemory(m hal.Memory) {
	mem, ok := d.memories.get(hal.Handle(m))
	if !ok || !mem.mapped {
		return
	}
	vk.UnmapMemory(d.device, mem.mem)
	mem.mapped = false
}

func (d *Device) FreeMemory(m hal.Memory) {
	mem, ok := d.memories.remove(hal.Handle(m))
	if !ok {
		d.stale("memory", hal.Handle(m))
		return
	}
	if mem.mapped {
		vk.UnmapMemory(d.device, mem.mem)
	}
	vk.FreeMemory(d.device, mem.mem, nil)
}

func (d *Device) CreateImage(desc hal.ImageDesc) (hal.Image, error) {
	format := vkFormat(desc.Format)
	if format == vk.FormatUndefined {
		return 0, errors.Wrapf(hal.ErrNotSupported, "image format %v", desc.Format)
	}
	levels := desc.MipLevels
	if levels == 0 {
		levels = 1
	}
	var img vk.Image
	ret := vk.CreateImage(d.device, &vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        format,
		Extent:        vk.Extent3D{Width: desc.Extent.Width, Height: desc.Extent.Height, Depth: 1},
		MipLevels:     levels,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vkImageUsage(desc.Usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}, nil, &img)
	if err := wrap(ret, "create image"); err != nil {
		return 0, err
	}
	return hal.Image(d.images.add(image{img: img})), nil
}

func (d *Device) ImageRequirements(img hal.Image) hal.MemoryRequirements {
	im, ok := d.images.get(hal.Handle(img))
	if !ok {
		return hal.MemoryRequirements{}
	}
	var reqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.device, im.img, &reqs)
	return requirements(reqs)
}

// DestroyImage destroys an image created by CreateImage. Swapchain images
// are released with their swapchain and are ignored here.
func (d *Device) DestroyImage(img hal.Image) {
	im, ok := d.images.get(hal.Handle(img))
	if !ok {
		d.stale("image", hal.Handle(img))
		return
	}
	if im.owner != 0 {
		return
	}
	d.images.remove(hal.Handle(img))
	vk.DestroyImage(d.device, im.img, nil)
}

func (d *Device) CreateImageView(img hal.Image, format hal.Format) (hal.ImageView, error) {
	im, ok := d.images.get(hal.Handle(img))
	if !ok {
		return 0, unknown("image", hal.Handle(img))
	}
	var view vk.ImageView
	ret := vk.CreateImageView(d.device, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    im.img,
		ViewType: vk.ImageViewType2d,
		Format:   vkFormat(format),
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleR,
			G: vk.ComponentSwizzleG,
			B: vk.ComponentSwizzleB,
			A: vk.ComponentSwizzleA,
		},
		SubresourceRange: colorSubresource,
	}, nil, &view)
	if err := wrap(ret, "create image view"); err != nil {
		return 0, err
	}
	return hal.ImageView(d.views.add(view)), nil
}

func (d *Device) DestroyImageView(v hal.ImageView) {
	view, ok := d.views.remove(hal.Handle(v))
	if !ok {
		d.stale("image view", hal.Handle(v))
		return
	}
	vk.DestroyImageView(d.device, view, nil)
}

func (d *Device) CreateSampler(desc hal.SamplerDesc) (hal.Sampler, error) {
	filter, mipmap := vk.FilterNearest, vk.SamplerMipmapModeNearest
	if desc.Filter == hal.FilterLinear {
		filter, mipmap = vk.FilterLinear, vk.SamplerMipmapModeLinear
	}
	wrapMode := vk.SamplerAddressModeRepeat
	if desc.Wrap == hal.WrapClamp {
		wrapMode = vk.SamplerAddressModeClampToEdge
	}
	var sampler vk.Sampler
	ret := vk.CreateSampler(d.device, &vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               filter,
		MinFilter:               filter,
		MipmapMode:              mipmap,
		AddressModeU:            wrapMode,
		AddressModeV:            wrapMode,
		AddressModeW:            wrapMode,
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1,
		CompareOp:               vk.CompareOpNever,
		BorderColor:             vk.BorderColorFloatOpaqueWhite,
		UnnormalizedCoordinates: vk.False,
	}, nil, &sampler)
	if err := wrap(ret, "create sampler"); err != nil {
		return 0, err
	}
	return hal.Sampler(d.samplers.add(sampler)), nil
}

func (d *Device) DestroySampler(s hal.Sampler) {
	sampler, ok := d.samplers.remove(hal.Handle(s))
	if !ok {
		d.stale("sampler", hal.Handle(s))
		return
	}
	vk.DestroySampler(d.device, sampler, nil)
}

func (d *Device) CreateDescriptorSetLayout(bindings []hal.DescriptorBinding) (hal.DescriptorSetLayout, error) {
	list := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		list[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  vkDescriptorType(b.Type),
			DescriptorCount: b.Count,
			StageFlags:      vkShaderStages(b.Stages),
		}
	}
	var layout vk.DescriptorSetLayout
	ret := vk.CreateDescriptorSetLayout(d.device, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(list)),
		PBindings:    list,
	}, nil, &layout)
	if err := wrap(ret, "create descriptor set layout"); err != nil {
		return 0, err
	}
	return hal.DescriptorSetLayout(d.setLayouts.add(layout)), nil
}

func (d *Device) DestroyDescriptorSetLayout(l hal.DescriptorSetLayout) {
	layout, ok := d.setLayouts.remove(hal.Handle(l))
	if !ok {
		d.stale("descriptor set layout", hal.Handle(l))
		return
	}
	vk.DestroyDescriptorSetLayout(d.device, layout, nil)
}

func (d *Device) CreateDescriptorPool(maxSets uint32, sizes []hal.DescriptorPoolSize) (hal.DescriptorPool, error) {
	list := make([]vk.DescriptorPoolSize, len(sizes))
	for i, s := range sizes {
		list[i] = vk.DescriptorPoolSize{Type: vkDescriptorType(s.Type), DescriptorCount: s.Count}
	}
	var pool vk.DescriptorPool
	ret := vk.CreateDescriptorPool(d.device, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(list)),
		PPoolSizes:    list,
	}, nil, &pool)
	if err := wrap(ret, "create descriptor pool"); err != nil {
		return 0, err
	}
	return hal.DescriptorPool(d.descPools.add(pool)), nil
}

// DestroyDescriptorPool destroys p and forgets every set allocated from it.
func (d *Device) DestroyDescriptorPool(p hal.DescriptorPool) {
	pool, ok := d.descPools.remove(hal.Handle(p))
	if !ok {
		d.stale("descriptor pool", hal.Handle(p))
		return
	}
	for h, s := range d.descSets.items {
		if s.pool == p {
			d.descSets.remove(h)
		}
	}
	vk.DestroyDescriptorPool(d.device, pool, nil)
}

func (d *Device) AllocateDescriptorSet(p hal.DescriptorPool, l hal.DescriptorSetLayout) (hal.DescriptorSet, error) {
	pool, ok := d.descPools.get(hal.Handle(p))
	if !ok {
		return 0, unknown("descriptor pool", hal.Handle(p))
	}
	layout, ok := d.setLayouts.get(hal.Handle(l))
	if !ok {
		return 0, unknown("descriptor set layout", hal.Handle(l))
	}
	var set vk.DescriptorSet
	ret := vk.AllocateDescriptorSets(d.device, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}, &set)
	if err := wrap(ret, "allocate descriptor set"); err != nil {
		return 0, err
	}
	return hal.DescriptorSet(d.descSets.add(descriptorSet{set: set, pool: p})), nil
}

// WriteDescriptorSets applies writes. Writes naming unknown handles are
// dropped and logged.
func (d *Device) WriteDescriptorSets(writes []hal.DescriptorWrite) {
	list := make([]vk.WriteDescriptorSet, 0, len(writes))
	for _, w := range writes {
		set, ok := d.descSets.get(hal.Handle(w.Set))
		if !ok {
			d.stale("descriptor set", hal.Handle(w.Set))
			continue
		}
		vw := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set.set,
			DstBinding:      w.Binding,
			DstArrayElement: w.ArrayOffset,
			DescriptorCount: 1,
			DescriptorType:  vkDescriptorType(w.Type),
		}
		switch w.Type {
		case hal.DescriptorSampledImage:
			view, ok := d.views.get(hal.Handle(w.View))
			if !ok {
				d.stale("image view", hal.Handle(w.View))
				continue
			}
			vw.PImageInfo = []vk.DescriptorImageInfo{{ImageView: view, ImageLayout: vkLayout(w.Layout)}}
		case hal.DescriptorSampler:
			sampler, ok := d.samplers.get(hal.Handle(w.Sampler))
			if !ok {
				d.stale("sampler", hal.Handle(w.Sampler))
				continue
			}
			vw.PImageInfo = []vk.DescriptorImageInfo{{Sampler: sampler}}
		case hal.DescriptorUniformBuffer:
			buf, ok := d.buffers.get(hal.Handle(w.Buffer))
			if !ok {
				d.stale("buffer", hal.Handle(w.Buffer))
				continue
			}
			rng := vk.DeviceSize(w.Range)
			if w.Range == 0 {
				rng = wholeSize
			}
			vw.PBufferInfo = []vk.DescriptorBufferInfo{{Buffer: buf, Offset: vk.DeviceSize(w.Offset), Range: rng}}
		}
		list = append(list, vw)
	}
	if len(list) > 0 {
		vk.UpdateDescriptorSets(d.device, uint32(len(list)), list, 0, nil)
	}
}
