package vulkan

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/corporation/hal"
)

// CreateCommandPool creates a pool on the device's queue family whose
// buffers can also be reset individually.
func (d *Device) CreateCommandPool() (hal.CommandPool, error) {
	var pool vk.CommandPool
	ret := vk.CreateCommandPool(d.device, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: d.family,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}, nil, &pool)
	if err := wrap(ret, "create command pool"); err != nil {
		return 0, err
	}
	return hal.CommandPool(d.cmdPools.add(pool)), nil
}

func (d *Device) ResetCommandPool(p hal.CommandPool) error {
	pool, ok := d.cmdPools.get(hal.Handle(p))
	if !ok {
		return unknown("command pool", hal.Handle(p))
	}
	return wrap(vk.ResetCommandPool(d.device, pool, 0), "reset command pool")
}

// DestroyCommandPool frees the buffers allocated from p, then p.
func (d *Device) DestroyCommandPool(p hal.CommandPool) {
	pool, ok := d.cmdPools.remove(hal.Handle(p))
	if !ok {
		d.stale("command pool", hal.Handle(p))
		return
	}
	var buffers []vk.CommandBuffer
	for h, cb := range d.cmdBuffers.items {
		if cb.pool == p {
			buffers = append(buffers, cb.cb)
			d.cmdBuffers.remove(h)
		}
	}
	if len(buffers) > 0 {
		vk.FreeCommandBuffers(d.device, pool, uint32(len(buffers)), buffers)
	}
	vk.DestroyCommandPool(d.device, pool, nil)
}

func (d *Device) AllocateCommandBuffer(p hal.CommandPool) (hal.CommandBuffer, error) {
	pool, ok := d.cmdPools.get(hal.Handle(p))
	if !ok {
		return 0, unknown("command pool", hal.Handle(p))
	}
	buffers := make([]vk.CommandBuffer, 1)
	ret := vk.AllocateCommandBuffers(d.device, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}, buffers)
	if err := wrap(ret, "allocate command buffer"); err != nil {
		return 0, err
	}
	return hal.CommandBuffer(d.cmdBuffers.add(commandBuffer{cb: buffers[0], pool: p})), nil
}

func (d *Device) Encoder(cb hal.CommandBuffer) hal.CommandEncoder {
	e := &encoder{d: d}
	if c, ok := d.cmdBuffers.get(hal.Handle(cb)); ok {
		e.cb = c.cb
	} else {
		e.err = unknown("command buffer", hal.Handle(cb))
	}
	return e
}

// encoder records into one command buffer. The first failure, including
// unknown handles, is kept and returned by End; later commands are skipped.
type encoder struct {
	d   *Device
	cb  vk.CommandBuffer
	err error
}

func (e *encoder) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *encoder) ok() bool { return e.err == nil }

func (e *encoder) Begin(oneShot bool) error {
	if !e.ok() {
		return e.err
	}
	var flags vk.CommandBufferUsageFlagBits
	if oneShot {
		flags = vk.CommandBufferUsageOneTimeSubmitBit
	}
	return wrap(vk.BeginCommandBuffer(e.cb, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(flags),
	}), "begin command buffer")
}

func (e *encoder) End() error {
	if !e.ok() {
		return errors.Wrap(e.err, "record command buffer")
	}
	return wrap(vk.EndCommandBuffer(e.cb), "end command buffer")
}

func (e *encoder) PipelineBarrier(src, dst hal.PipelineStage, barriers []hal.ImageBarrier) {
	if !e.ok() {
		return
	}
	list := make([]vk.ImageMemoryBarrier, len(barriers))
	for i, b := range barriers {
		img, ok := e.d.images.get(hal.Handle(b.Image))
		if !ok {
			e.fail(unknown("image", hal.Handle(b.Image)))
			return
		}
		list[i] = vk.ImageMemoryBarrier{
			SType:               vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:       vkAccess(b.SrcAccess),
			DstAccessMask:       vkAccess(b.DstAccess),
			OldLayout:           vkLayout(b.OldLayout),
			NewLayout:           vkLayout(b.NewLayout),
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Image:               img.img,
			SubresourceRange:    colorSubresource,
		}
	}
	vk.CmdPipelineBarrier(e.cb, vkStages(src), vkStages(dst), 0, 0, nil, 0, nil, uint32(len(list)), list)
}

func (e *encoder) CopyBufferToImage(src hal.Buffer, dst hal.Image, layout hal.ImageLayout, regions []hal.BufferImageCopy) {
	if !e.ok() {
		return
	}
	buf, ok := e.d.buffers.get(hal.Handle(src))
	if !ok {
		e.fail(unknown("buffer", hal.Handle(src)))
		return
	}
	img, ok := e.d.images.get(hal.Handle(dst))
	if !ok {
		e.fail(unknown("image", hal.Handle(dst)))
		return
	}
	list := make([]vk.BufferImageCopy, len(regions))
	for i, r := range regions {
		list[i] = vk.BufferImageCopy{
			BufferOffset:      vk.DeviceSize(r.BufferOffset),
			BufferRowLength:   r.RowLength,
			BufferImageHeight: r.ImageHeight,
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LayerCount: 1,
			},
			ImageExtent: vk.Extent3D{Width: r.ImageExtent.Width, Height: r.ImageExtent.Height, Depth: 1},
		}
	}
	vk.CmdCopyBufferToImage(e.cb, buf, img.img, vkLayout(layout), uint32(len(list)), list)
}

func (e *encoder) SetViewport(v hal.Viewport) {
	if !e.ok() {
		return
	}
	vk.CmdSetViewport(e.cb, 0, 1, []vk.Viewport{{
		X:        v.X,
		Y:        v.Y,
		Width:    v.Width,
		Height:   v.Height,
		MinDepth: v.MinDepth,
		MaxDepth: v.MaxDepth,
	}})
}

func (e *encoder) SetScissor(r hal.Rect2D) {
	if !e.ok() {
		return
	}
	vk.CmdSetScissor(e.cb, 0, 1, []vk.Rect2D{vkRect(r)})
}

func (e *encoder) BindGraphicsPipeline(p hal.Pipeline) {
	if !e.ok() {
		return
	}
	pipeline, ok := e.d.pipelines.get(hal.Handle(p))
	if !ok {
		e.fail(unknown("pipeline", hal.Handle(p)))
		return
	}
	vk.CmdBindPipeline(e.cb, vk.PipelineBindPointGraphics, pipeline)
}

func (e *encoder) BindVertexBuffers(first uint32, buffers []hal.Buffer, offsets []uint64) {
	if !e.ok() {
		return
	}
	if len(offsets) != len(buffers) {
		e.fail(errors.Errorf("%d vertex buffers with %d offsets", len(buffers), len(offsets)))
		return
	}
	list := make([]vk.Buffer, len(buffers))
	offs := make([]vk.DeviceSize, len(buffers))
	for i, b := range buffers {
		buf, ok := e.d.buffers.get(hal.Handle(b))
		if !ok {
			e.fail(unknown("buffer", hal.Handle(b)))
			return
		}
		list[i], offs[i] = buf, vk.DeviceSize(offsets[i])
	}
	vk.CmdBindVertexBuffers(e.cb, first, uint32(len(list)), list, offs)
}

func (e *encoder) BindIndexBuffer(b hal.Buffer, offset uint64, t hal.IndexType) {
	if !e.ok() {
		return
	}
	buf, ok := e.d.buffers.get(hal.Handle(b))
	if !ok {
		e.fail(unknown("buffer", hal.Handle(b)))
		return
	}
	it := vk.IndexTypeUint32
	if t == hal.IndexUint16 {
		it = vk.IndexTypeUint16
	}
	vk.CmdBindIndexBuffer(e.cb, buf, vk.DeviceSize(offset), it)
}

func (e *encoder) BindGraphicsDescriptorSets(layout hal.PipelineLayout, first uint32, sets []hal.DescriptorSet) {
	if !e.ok() {
		return
	}
	l, ok := e.d.layouts.get(hal.Handle(layout))
	if !ok {
		e.fail(unknown("pipeline layout", hal.Handle(layout)))
		return
	}
	list := make([]vk.DescriptorSet, len(sets))
	for i, s := range sets {
		set, ok := e.d.descSets.get(hal.Handle(s))
		if !ok {
			e.fail(unknown("descriptor set", hal.Handle(s)))
			return
		}
		list[i] = set.set
	}
	vk.CmdBindDescriptorSets(e.cb, vk.PipelineBindPointGraphics, l, first, uint32(len(list)), list, 0, nil)
}

func (e *encoder) BeginRenderPass(rp hal.RenderPass, fb hal.Framebuffer, area hal.Rect2D, clear [4]float32) {
	if !e.ok() {
		return
	}
	pass, ok := e.d.renderPasses.get(hal.Handle(rp))
	if !ok {
		e.fail(unknown("render pass", hal.Handle(rp)))
		return
	}
	framebuffer, ok := e.d.framebuffers.get(hal.Handle(fb))
	if !ok {
		e.fail(unknown("framebuffer", hal.Handle(fb)))
		return
	}
	clearValues := []vk.ClearValue{vk.NewClearValue(clear[:])}
	vk.CmdBeginRenderPass(e.cb, &vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      pass,
		Framebuffer:     framebuffer,
		RenderArea:      vkRect(area),
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}, vk.SubpassContentsInline)
}

func (e *encoder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	if !e.ok() {
		return
	}
	vk.CmdDrawIndexed(e.cb, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}

func (e *encoder) EndRenderPass() {
	if !e.ok() {
		return
	}
	vk.CmdEndRenderPass(e.cb)
}
