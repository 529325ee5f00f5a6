package haltest

import (
	"github.com/andewx/corporation/hal"
	"github.com/pkg/errors"
)

type bufferObj struct {
	size   uint64
	usage  hal.BufferUsage
	mem    hal.Memory
	offset uint64
	bound  bool
}

type memoryObj struct {
	typeIndex uint32
	data      []byte
	mapped    bool
}

type imageObj struct {
	desc   hal.ImageDesc
	mem    hal.Memory
	bound  bool
	pixels []byte
	layout hal.ImageLayout
}

type poolObj struct {
	maxSets   uint32
	allocated uint32
}

type setObj struct {
	pool   hal.DescriptorPool
	layout hal.DescriptorSetLayout
	writes map[uint32]hal.DescriptorWrite
}

type swapchainObj struct {
	cfg    hal.SwapchainConfig
	images []hal.Image
}

type framebufferObj struct {
	rp     hal.RenderPass
	views  []hal.ImageView
	extent hal.Extent2D
}

type fenceObj struct{ signaled bool }

type semaphoreObj struct{ signaled bool }

// Presentation is one successful Present call.
type Presentation struct {
	Swapchain hal.Swapchain
	Index     uint32
	Wait      hal.Semaphore
}

// SubmitRecord is one successful Submit call. Waited is set once its
// fence has been waited on.
type SubmitRecord struct {
	Submission hal.Submission
	Fence      hal.Fence
	Waited     bool
}

// Device is a hal.Device that records instead of rendering.
type Device struct {
	inst   *Instance
	ledger *Ledger
	family uint32
	queue  *Queue

	acquireOrder []uint32
	acquires     int
	failAcquire  []error
	suboptimal   int
	failSubmit   []error
	failPresent  []error
	failCreate   map[Kind]error

	// Acquired lists every image index handed out by AcquireImage.
	Acquired []uint32
	// AcquireSemaphores lists the semaphore passed to each successful AcquireImage.
	AcquireSemaphores []hal.Semaphore
	Submits           []SubmitRecord
	Presents          []Presentation
	destroyed         bool
}

func newDevice(inst *Instance, family uint32) *Device {
	d := &Device{inst: inst, ledger: inst.ledger, family: family, failCreate: make(map[Kind]error)}
	d.queue = &Queue{d: d}
	return d
}

// SetAcquireOrder makes AcquireImage cycle through order instead of
// handing out images round robin.
func (d *Device) SetAcquireOrder(order ...uint32) { d.acquireOrder = order }

// FailAcquire queues errors returned by the next AcquireImage calls.
func (d *Device) FailAcquire(errs ...error) { d.failAcquire = append(d.failAcquire, errs...) }

// AcquireSuboptimal makes the next n AcquireImage calls hand out an image
// and signal their semaphore as usual, but report hal.ErrSuboptimal.
func (d *Device) AcquireSuboptimal(n int) { d.suboptimal += n }

// FailSubmit queues errors returned by the next Submit calls. A failed
// submit consumes no semaphore and signals nothing.
func (d *Device) FailSubmit(errs ...error) { d.failSubmit = append(d.failSubmit, errs...) }

// FailPresent queues errors returned by the next Present calls.
func (d *Device) FailPresent(errs ...error) { d.failPresent = append(d.failPresent, errs...) }

// FailCreate makes every later creation of kind fail with err.
func (d *Device) FailCreate(kind Kind, err error) { d.failCreate[kind] = err }

// Destroyed reports whether Destroy was called.
func (d *Device) Destroyed() bool { return d.destroyed }

// Pixels returns the contents of an image written by buffer copies.
func (d *Device) Pixels(img hal.Image) []byte {
	if o, ok := d.ledger.objects[hal.Handle(img)]; ok {
		return o.value.(*imageObj).pixels
	}
	return nil
}

// Layout returns the layout img was last transitioned to by a submitted barrier.
func (d *Device) Layout(img hal.Image) hal.ImageLayout {
	if o, ok := d.ledger.objects[hal.Handle(img)]; ok {
		return o.value.(*imageObj).layout
	}
	return hal.LayoutUndefined
}

// Framebuffer returns the views and extent fb was created with.
func (d *Device) Framebuffer(fb hal.Framebuffer) ([]hal.ImageView, hal.Extent2D) {
	if o, ok := d.ledger.objects[hal.Handle(fb)]; ok {
		f := o.value.(*framebufferObj)
		return f.views, f.extent
	}
	return nil, hal.Extent2D{}
}

// Writes returns the descriptor writes applied to set, keyed by binding.
func (d *Device) Writes(set hal.DescriptorSet) map[uint32]hal.DescriptorWrite {
	if o, ok := d.ledger.objects[hal.Handle(set)]; ok {
		return o.value.(*setObj).writes
	}
	return nil
}

// Pipeline returns the description p was created with.
func (d *Device) Pipeline(p hal.Pipeline) hal.GraphicsPipelineDesc {
	if o, ok := d.ledger.objects[hal.Handle(p)]; ok {
		return o.value.(hal.GraphicsPipelineDesc)
	}
	return hal.GraphicsPipelineDesc{}
}

// RenderPass returns the description rp was created with.
func (d *Device) RenderPass(rp hal.RenderPass) hal.RenderPassDesc {
	if o, ok := d.ledger.objects[hal.Handle(rp)]; ok {
		return o.value.(hal.RenderPassDesc)
	}
	return hal.RenderPassDesc{}
}

// Swapchain returns the configuration sc was created with.
func (d *Device) Swapchain(sc hal.Swapchain) hal.SwapchainConfig {
	if o, ok := d.ledger.objects[hal.Handle(sc)]; ok {
		return o.value.(*swapchainObj).cfg
	}
	return hal.SwapchainConfig{}
}

func (d *Device) create(kind Kind, value any) (hal.Handle, error) {
	if err := d.failCreate[kind]; err != nil {
		return 0, errors.Wrapf(err, "haltest: create %s", kind)
	}
	return d.ledger.add(kind, value), nil
}

func (d *Device) Queue() hal.Queue    { return d.queue }
func (d *Device) QueueFamily() uint32 { return d.family }

func (d *Device) WaitIdle() error {
	d.ledger.call("wait_idle")
	return nil
}

func (d *Device) Destroy() {
	d.destroyed = true
	d.ledger.call("destroy_device")
}

func (d *Device) CreateBuffer(size uint64, usage hal.BufferUsage) (hal.Buffer, error) {
	if size == 0 {
		return 0, errors.New("haltest: zero sized buffer")
	}
	h, err := d.create(KindBuffer, &bufferObj{size: size, usage: usage})
	return hal.Buffer(h), err
}

func (d *Device) BufferRequirements(b hal.Buffer) hal.MemoryRequirements {
	v, ok := d.ledger.get(KindBuffer, hal.Handle(b))
	if !ok {
		return hal.MemoryRequirements{}
	}
	return hal.MemoryRequirements{
		Size:      v.(*bufferObj).size,
		Alignment: 16,
		TypeMask:  1<<uint(len(d.inst.cfg.MemoryTypes)) - 1,
	}
}

func (d *Device) DestroyBuffer(b hal.Buffer) { d.ledger.remove(KindBuffer, hal.Handle(b)) }

func (d *Device) AllocateMemory(typeIndex uint32, size uint64) (hal.Memory, error) {
	if int(typeIndex) >= len(d.inst.cfg.MemoryTypes) {
		return 0, errors.Errorf("haltest: memory type %d out of range", typeIndex)
	}
	h, err := d.create(KindMemory, &memoryObj{typeIndex: typeIndex, data: make([]byte, size)})
	return hal.Memory(h), err
}

func (d *Device) BindBufferMemory(b hal.Buffer, m hal.Memory, offset uint64) error {
	bv, ok := d.ledger.get(KindBuffer, hal.Handle(b))
	if !ok {
		return errors.New("haltest: bind to invalid buffer")
	}
	if _, ok := d.ledger.get(KindMemory, hal.Handle(m)); !ok {
		return errors.New("haltest: bind of invalid memory")
	}
	buf := bv.(*bufferObj)
	if buf.bound {
		d.ledger.misuse = append(d.ledger.misuse, "buffer memory bound twice")
		return errors.New("haltest: buffer memory already bound")
	}
	buf.mem, buf.offset, buf.bound = m, offset, true
	return nil
}

func (d *Device) BindImageMemory(img hal.Image, m hal.Memory, offset uint64) error {
	iv, ok := d.ledger.get(KindImage, hal.Handle(img))
	if !ok {
		return errors.New("haltest: bind to invalid image")
	}
	if _, ok := d.ledger.get(KindMemory, hal.Handle(m)); !ok {
		return errors.New("haltest: bind of invalid memory")
	}
	im := iv.(*imageObj)
	if im.bound {
		return errors.New("haltest: image memory already bound")
	}
	im.mem, im.bound = m, true
	return nil
}

func (d *Device) MapMemory(m hal.Memory, offset, size uint64) ([]byte, error) {
	v, ok := d.ledger.get(KindMemory, hal.Handle(m))
	if !ok {
		return nil, errors.New("haltest: map of invalid memory")
	}
	mem := v.(*memoryObj)
	if !d.inst.cfg.MemoryTypes[mem.typeIndex].Properties.Contains(hal.MemoryHostVisible) {
		return nil, errors.New("haltest: map of memory that is not host visible")
	}
	if mem.mapped {
		return nil, errors.New("haltest: memory already mapped")
	}
	if offset+size > uint64(len(mem.data)) {
		return nil, errors.Errorf("haltest: map range [%d, %d) exceeds allocation of %d bytes", offset, offset+size, len(mem.data))
	}
	mem.mapped = true
	return mem.data[offset : offset+size], nil
}

func (d *Device) UnmapMemory(m hal.Memory) {
	if v, ok := d.ledger.get(KindMemory, hal.Handle(m)); ok {
		v.(*memoryObj).mapped = false
	}
}

func (d *Device) FreeMemory(m hal.Memory) {
	for _, o := range d.ledger.objects {
		if o.kind == KindBuffer && o.destroyed == 0 && o.value.(*bufferObj).mem == m {
			d.ledger.misuse = append(d.ledger.misuse, "memory freed before its buffer was destroyed")
			break
		}
	}
	d.ledger.remove(KindMemory, hal.Handle(m))
}

func (d *Device) CreateImage(desc hal.ImageDesc) (hal.Image, error) {
	if desc.Extent.Width == 0 || desc.Extent.Height == 0 {
		return 0, errors.New("haltest: zero sized image")
	}
	px := make([]byte, int(desc.Extent.Width)*int(desc.Extent.Height)*4)
	h, err := d.create(KindImage, &imageObj{desc: desc, pixels: px})
	return hal.Image(h), err
}

func (d *Device) ImageRequirements(img hal.Image) hal.MemoryRequirements {
	v, ok := d.ledger.get(KindImage, hal.Handle(img))
	if !ok {
		return hal.MemoryRequirements{}
	}
	desc := v.(*imageObj).desc
	var mask uint32
	for i, t := range d.inst.cfg.MemoryTypes {
		if t.Properties.Contains(hal.MemoryDeviceLocal) {
			mask |= 1 << uint(i)
		}
	}
	return hal.MemoryRequirements{
		Size:      uint64(desc.Extent.Width) * uint64(desc.Extent.Height) * 4,
		Alignment: 256,
		TypeMask:  mask,
	}
}

func (d *Device) DestroyImage(img hal.Image) { d.ledger.remove(KindImage, hal.Handle(img)) }

func (d *Device) CreateImageView(img hal.Image, format hal.Format) (hal.ImageView, error) {
	if _, ok := d.ledger.get(KindImage, hal.Handle(img)); !ok {
		return 0, errors.New("haltest: view of invalid image")
	}
	h, err := d.create(KindImageView, img)
	return hal.ImageView(h), err
}

func (d *Device) DestroyImageView(v hal.ImageView) { d.ledger.remove(KindImageView, hal.Handle(v)) }

func (d *Device) CreateSampler(desc hal.SamplerDesc) (hal.Sampler, error) {
	h, err := d.create(KindSampler, desc)
	return hal.Sampler(h), err
}

func (d *Device) DestroySampler(s hal.Sampler) { d.ledger.remove(KindSampler, hal.Handle(s)) }

func (d *Device) CreateDescriptorSetLayout(bindings []hal.DescriptorBinding) (hal.DescriptorSetLayout, error) {
	b := append([]hal.DescriptorBinding(nil), bindings...)
	h, err := d.create(KindDescriptorSetLayout, b)
	return hal.DescriptorSetLayout(h), err
}

func (d *Device) DestroyDescriptorSetLayout(l hal.DescriptorSetLayout) {
	d.ledger.remove(KindDescriptorSetLayout, hal.Handle(l))
}

func (d *Device) CreateDescriptorPool(maxSets uint32, sizes []hal.DescriptorPoolSize) (hal.DescriptorPool, error) {
	h, err := d.create(KindDescriptorPool, &poolObj{maxSets: maxSets})
	return hal.DescriptorPool(h), err
}

func (d *Device) DestroyDescriptorPool(p hal.DescriptorPool) {
	for h, o := range d.ledger.objects {
		if s, ok := o.value.(*setObj); ok && s.pool == p && o.destroyed == 0 {
			d.ledger.remove(KindDescriptorSet, h)
		}
	}
	d.ledger.remove(KindDescriptorPool, hal.Handle(p))
}

func (d *Device) AllocateDescriptorSet(p hal.DescriptorPool, l hal.DescriptorSetLayout) (hal.DescriptorSet, error) {
	pv, ok := d.ledger.get(KindDescriptorPool, hal.Handle(p))
	if !ok {
		return 0, errors.New("haltest: allocate from invalid pool")
	}
	if _, ok := d.ledger.get(KindDescriptorSetLayout, hal.Handle(l)); !ok {
		return 0, errors.New("haltest: allocate with invalid layout")
	}
	pool := pv.(*poolObj)
	if pool.allocated >= pool.maxSets {
		return 0, hal.ErrExhausted
	}
	pool.allocated++
	h, err := d.create(KindDescriptorSet, &setObj{pool: p, layout: l, writes: make(map[uint32]hal.DescriptorWrite)})
	return hal.DescriptorSet(h), err
}

func (d *Device) WriteDescriptorSets(writes []hal.DescriptorWrite) {
	for _, w := range writes {
		v, ok := d.ledger.get(KindDescriptorSet, hal.Handle(w.Set))
		if !ok {
			continue
		}
		v.(*setObj).writes[w.Binding] = w
	}
}

func (d *Device) CreateSwapchain(s hal.Surface, cfg hal.SwapchainConfig, old hal.Swapchain) (hal.Swapchain, []hal.Image, error) {
	if old != 0 {
		if _, ok := d.ledger.get(KindSwapchain, hal.Handle(old)); !ok {
			return 0, nil, errors.New("haltest: invalid old swapchain")
		}
	}
	sc := &swapchainObj{cfg: cfg}
	if !d.inst.cfg.NoBackbuffer {
		for i := uint32(0); i < cfg.ImageCount; i++ {
			img, err := d.create(KindImage, &imageObj{desc: hal.ImageDesc{
				Extent: cfg.Extent,
				Format: cfg.Format,
				Usage:  hal.ImageColorAttachment,
			}})
			if err != nil {
				return 0, nil, err
			}
			sc.images = append(sc.images, hal.Image(img))
		}
	}
	h, err := d.create(KindSwapchain, sc)
	if err != nil {
		return 0, nil, err
	}
	d.ledger.call("create_swapchain")
	return hal.Swapchain(h), sc.images, nil
}

func (d *Device) DestroySwapchain(sc hal.Swapchain) {
	if v, ok := d.ledger.get(KindSwapchain, hal.Handle(sc)); ok {
		for _, img := range v.(*swapchainObj).images {
			d.ledger.remove(KindImage, hal.Handle(img))
		}
	}
	d.ledger.remove(KindSwapchain, hal.Handle(sc))
}

func (d *Device) AcquireImage(sc hal.Swapchain, timeout uint64, signal hal.Semaphore) (uint32, error) {
	d.ledger.call("acquire")
	if len(d.failAcquire) > 0 {
		err := d.failAcquire[0]
		d.failAcquire = d.failAcquire[1:]
		return 0, err
	}
	v, ok := d.ledger.get(KindSwapchain, hal.Handle(sc))
	if !ok {
		return 0, errors.New("haltest: acquire from invalid swapchain")
	}
	sv, ok := d.ledger.get(KindSemaphore, hal.Handle(signal))
	if !ok {
		return 0, errors.New("haltest: acquire with invalid semaphore")
	}
	sem := sv.(*semaphoreObj)
	if sem.signaled {
		d.ledger.misuse = append(d.ledger.misuse, "acquire signals a semaphore that is already signaled")
	}
	sem.signaled = true

	n := len(v.(*swapchainObj).images)
	if n == 0 {
		n = 1
	}
	var idx uint32
	if len(d.acquireOrder) > 0 {
		idx = d.acquireOrder[d.acquires%len(d.acquireOrder)]
	} else {
		idx = uint32(d.acquires % n)
	}
	d.acquires++
	d.Acquired = append(d.Acquired, idx)
	d.AcquireSemaphores = append(d.AcquireSemaphores, signal)
	if d.suboptimal > 0 {
		d.suboptimal--
		return idx, hal.ErrSuboptimal
	}
	return idx, nil
}

func (d *Device) CreateRenderPass(desc hal.RenderPassDesc) (hal.RenderPass, error) {
	h, err := d.create(KindRenderPass, desc)
	return hal.RenderPass(h), err
}

func (d *Device) DestroyRenderPass(rp hal.RenderPass) { d.ledger.remove(KindRenderPass, hal.Handle(rp)) }

func (d *Device) CreateFramebuffer(rp hal.RenderPass, views []hal.ImageView, extent hal.Extent2D) (hal.Framebuffer, error) {
	if _, ok := d.ledger.get(KindRenderPass, hal.Handle(rp)); !ok {
		return 0, errors.New("haltest: framebuffer for invalid render pass")
	}
	for _, v := range views {
		if _, ok := d.ledger.get(KindImageView, hal.Handle(v)); !ok {
			return 0, errors.New("haltest: framebuffer references invalid image view")
		}
	}
	h, err := d.create(KindFramebuffer, &framebufferObj{rp: rp, views: append([]hal.ImageView(nil), views...), extent: extent})
	return hal.Framebuffer(h), err
}

func (d *Device) DestroyFramebuffer(fb hal.Framebuffer) {
	d.ledger.remove(KindFramebuffer, hal.Handle(fb))
}

func (d *Device) CreateShaderModule(code []uint32) (hal.ShaderModule, error) {
	if len(code) == 0 {
		return 0, errors.New("haltest: empty shader module")
	}
	h, err := d.create(KindShaderModule, code)
	return hal.ShaderModule(h), err
}

func (d *Device) DestroyShaderModule(m hal.ShaderModule) {
	d.ledger.remove(KindShaderModule, hal.Handle(m))
}

func (d *Device) CreatePipelineLayout(sets []hal.DescriptorSetLayout, push []hal.PushConstantRange) (hal.PipelineLayout, error) {
	for _, l := range sets {
		if _, ok := d.ledger.get(KindDescriptorSetLayout, hal.Handle(l)); !ok {
			return 0, errors.New("haltest: pipeline layout with invalid set layout")
		}
	}
	h, err := d.create(KindPipelineLayout, append([]hal.DescriptorSetLayout(nil), sets...))
	return hal.PipelineLayout(h), err
}

func (d *Device) DestroyPipelineLayout(l hal.PipelineLayout) {
	d.ledger.remove(KindPipelineLayout, hal.Handle(l))
}

func (d *Device) CreateGraphicsPipeline(desc hal.GraphicsPipelineDesc) (hal.Pipeline, error) {
	if _, ok := d.ledger.get(KindPipelineLayout, hal.Handle(desc.Layout)); !ok {
		return 0, errors.New("haltest: pipeline with invalid layout")
	}
	if _, ok := d.ledger.get(KindRenderPass, hal.Handle(desc.RenderPass)); !ok {
		return 0, errors.New("haltest: pipeline with invalid render pass")
	}
	for _, s := range desc.Stages {
		if _, ok := d.ledger.get(KindShaderModule, hal.Handle(s.Module)); !ok {
			return 0, errors.Errorf("haltest: %s stage with invalid module", s.Stage)
		}
	}
	h, err := d.create(KindPipeline, desc)
	return hal.Pipeline(h), err
}

func (d *Device) DestroyPipeline(p hal.Pipeline) { d.ledger.remove(KindPipeline, hal.Handle(p)) }

func (d *Device) CreateCommandPool() (hal.CommandPool, error) {
	h, err := d.create(KindCommandPool, nil)
	return hal.CommandPool(h), err
}

func (d *Device) ResetCommandPool(p hal.CommandPool) error {
	if _, ok := d.ledger.get(KindCommandPool, hal.Handle(p)); !ok {
		return errors.New("haltest: reset of invalid command pool")
	}
	for _, s := range d.Submits {
		if s.Waited {
			continue
		}
		for _, cb := range s.Submission.CommandBuffers {
			if r := d.recording(cb); r != nil && r.pool == p {
				d.ledger.misuse = append(d.ledger.misuse, "command pool reset before waiting on its last submission")
			}
		}
	}
	for _, o := range d.ledger.objects {
		if r, ok := o.value.(*Recording); ok && r.pool == p {
			r.Commands = nil
		}
	}
	d.ledger.call("reset_pool")
	return nil
}

func (d *Device) DestroyCommandPool(p hal.CommandPool) {
	for h, o := range d.ledger.objects {
		if r, ok := o.value.(*Recording); ok && r.pool == p && o.destroyed == 0 {
			d.ledger.remove(KindCommandBuffer, h)
		}
	}
	d.ledger.remove(KindCommandPool, hal.Handle(p))
}

func (d *Device) AllocateCommandBuffer(p hal.CommandPool) (hal.CommandBuffer, error) {
	if _, ok := d.ledger.get(KindCommandPool, hal.Handle(p)); !ok {
		return 0, errors.New("haltest: allocate from invalid command pool")
	}
	h, err := d.create(KindCommandBuffer, &Recording{pool: p})
	return hal.CommandBuffer(h), err
}

func (d *Device) Encoder(cb hal.CommandBuffer) hal.CommandEncoder {
	return &encoder{d: d, cb: cb, rec: d.recording(cb)}
}

// Commands returns what was last recorded into cb.
func (d *Device) Commands(cb hal.CommandBuffer) []Command {
	if r := d.recording(cb); r != nil {
		return r.Commands
	}
	return nil
}

func (d *Device) recording(cb hal.CommandBuffer) *Recording {
	if o, ok := d.ledger.objects[hal.Handle(cb)]; ok && o.kind == KindCommandBuffer {
		return o.value.(*Recording)
	}
	return nil
}

func (d *Device) CreateFence(signaled bool) (hal.Fence, error) {
	h, err := d.create(KindFence, &fenceObj{signaled: signaled})
	return hal.Fence(h), err
}

func (d *Device) WaitForFence(f hal.Fence, timeout uint64) error {
	d.ledger.call("wait_fence")
	v, ok := d.ledger.get(KindFence, hal.Handle(f))
	if !ok {
		return errors.New("haltest: wait on invalid fence")
	}
	if !v.(*fenceObj).signaled {
		// Work is executed at submit, so an unsignaled fence has nothing
		// pending and an unbounded wait would never return.
		if timeout == hal.Forever {
			d.ledger.misuse = append(d.ledger.misuse, "wait forever on a fence nothing will signal")
		}
		return hal.ErrTimeout
	}
	for i := range d.Submits {
		if d.Submits[i].Fence == f {
			d.Submits[i].Waited = true
		}
	}
	return nil
}

func (d *Device) ResetFence(f hal.Fence) error {
	d.ledger.call("reset_fence")
	v, ok := d.ledger.get(KindFence, hal.Handle(f))
	if !ok {
		return errors.New("haltest: reset of invalid fence")
	}
	v.(*fenceObj).signaled = false
	return nil
}

func (d *Device) DestroyFence(f hal.Fence) { d.ledger.remove(KindFence, hal.Handle(f)) }

func (d *Device) CreateSemaphore() (hal.Semaphore, error) {
	h, err := d.create(KindSemaphore, &semaphoreObj{})
	return hal.Semaphore(h), err
}

func (d *Device) DestroySemaphore(s hal.Semaphore) { d.ledger.remove(KindSemaphore, hal.Handle(s)) }

// Queue is the single queue of a Device.
type Queue struct{ d *Device }

func (q *Queue) Submit(sub hal.Submission, signal hal.Fence) error {
	d := q.d
	d.ledger.call("submit")
	if len(d.failSubmit) > 0 {
		err := d.failSubmit[0]
		d.failSubmit = d.failSubmit[1:]
		return err
	}
	if len(sub.WaitSemaphores) != len(sub.WaitStages) {
		return errors.New("haltest: wait semaphores and stages differ in length")
	}
	for _, s := range sub.WaitSemaphores {
		v, ok := d.ledger.get(KindSemaphore, hal.Handle(s))
		if !ok {
			return errors.New("haltest: submit waits on invalid semaphore")
		}
		sem := v.(*semaphoreObj)
		if !sem.signaled {
			d.ledger.misuse = append(d.ledger.misuse, "submit waits on a semaphore nothing signals")
		}
		sem.signaled = false
	}
	for _, cb := range sub.CommandBuffers {
		r := d.recording(cb)
		if r == nil {
			return errors.New("haltest: submit of invalid command buffer")
		}
		if r.recording {
			return errors.New("haltest: submit of command buffer still recording")
		}
		d.execute(r)
	}
	for _, s := range sub.SignalSemaphores {
		v, ok := d.ledger.get(KindSemaphore, hal.Handle(s))
		if !ok {
			return errors.New("haltest: submit signals invalid semaphore")
		}
		v.(*semaphoreObj).signaled = true
	}
	if signal != 0 {
		v, ok := d.ledger.get(KindFence, hal.Handle(signal))
		if !ok {
			return errors.New("haltest: submit signals invalid fence")
		}
		f := v.(*fenceObj)
		if f.signaled {
			d.ledger.misuse = append(d.ledger.misuse, "submit with a fence that is already signaled")
		}
		f.signaled = true
	}
	d.Submits = append(d.Submits, SubmitRecord{Submission: sub, Fence: signal})
	return nil
}

func (q *Queue) Present(sc hal.Swapchain, index uint32, wait hal.Semaphore) error {
	d := q.d
	d.ledger.call("present")
	if wait != 0 {
		if v, ok := d.ledger.get(KindSemaphore, hal.Handle(wait)); ok {
			sem := v.(*semaphoreObj)
			if !sem.signaled {
				d.ledger.misuse = append(d.ledger.misuse, "present waits on a semaphore nothing signals")
			}
			sem.signaled = false
		}
	}
	if len(d.failPresent) > 0 {
		err := d.failPresent[0]
		d.failPresent = d.failPresent[1:]
		return err
	}
	if _, ok := d.ledger.get(KindSwapchain, hal.Handle(sc)); !ok {
		return errors.New("haltest: present of invalid swapchain")
	}
	d.Presents = append(d.Presents, Presentation{Swapchain: sc, Index: index, Wait: wait})
	return nil
}
