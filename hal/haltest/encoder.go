package haltest

import (
	"github.com/andewx/corporation/hal"
	"github.com/pkg/errors"
)

// Command is one recorded command. Only the fields relevant to Op are set.
type Command struct {
	Op string

	Barriers []hal.ImageBarrier
	Buffer   hal.Buffer
	Image    hal.Image
	Regions  []hal.BufferImageCopy

	Viewport    hal.Viewport
	Scissor     hal.Rect2D
	Pipeline    hal.Pipeline
	Buffers     []hal.Buffer
	Sets        []hal.DescriptorSet
	RenderPass  hal.RenderPass
	Framebuffer hal.Framebuffer
	Area        hal.Rect2D
	Clear       [4]float32
	IndexCount  uint32
}

// Recording holds the commands of one command buffer.
type Recording struct {
	pool      hal.CommandPool
	recording bool
	oneShot   bool
	Commands  []Command
}

type encoder struct {
	d   *Device
	cb  hal.CommandBuffer
	rec *Recording
	err error
}

func (e *encoder) push(c Command) {
	if e.rec == nil {
		e.err = errors.New("haltest: record into invalid command buffer")
		return
	}
	if !e.rec.recording {
		e.err = errors.Errorf("haltest: %s outside of Begin/End", c.Op)
		return
	}
	e.rec.Commands = append(e.rec.Commands, c)
}

func (e *encoder) Begin(oneShot bool) error {
	if e.rec == nil {
		return errors.New("haltest: begin of invalid command buffer")
	}
	if e.rec.recording {
		return errors.New("haltest: command buffer already recording")
	}
	e.rec.recording, e.rec.oneShot = true, oneShot
	e.rec.Commands = nil
	return nil
}

func (e *encoder) End() error {
	if e.err != nil {
		return e.err
	}
	if e.rec == nil || !e.rec.recording {
		return errors.New("haltest: end without begin")
	}
	e.rec.recording = false
	return nil
}

func (e *encoder) PipelineBarrier(src, dst hal.PipelineStage, barriers []hal.ImageBarrier) {
	e.push(Command{Op: "barrier", Barriers: append([]hal.ImageBarrier(nil), barriers...)})
}

func (e *encoder) CopyBufferToImage(src hal.Buffer, dst hal.Image, layout hal.ImageLayout, regions []hal.BufferImageCopy) {
	if layout != hal.LayoutTransferDst {
		e.d.ledger.misuse = append(e.d.ledger.misuse, "copy into image that is not in transfer destination layout")
	}
	e.push(Command{Op: "copy_buffer_to_image", Buffer: src, Image: dst, Regions: append([]hal.BufferImageCopy(nil), regions...)})
}

func (e *encoder) SetViewport(v hal.Viewport) { e.push(Command{Op: "set_viewport", Viewport: v}) }
func (e *encoder) SetScissor(r hal.Rect2D)    { e.push(Command{Op: "set_scissor", Scissor: r}) }

func (e *encoder) BindGraphicsPipeline(p hal.Pipeline) {
	e.push(Command{Op: "bind_pipeline", Pipeline: p})
}

func (e *encoder) BindVertexBuffers(first uint32, buffers []hal.Buffer, offsets []uint64) {
	e.push(Command{Op: "bind_vertex_buffers", Buffers: append([]hal.Buffer(nil), buffers...)})
}

func (e *encoder) BindIndexBuffer(b hal.Buffer, offset uint64, t hal.IndexType) {
	e.push(Command{Op: "bind_index_buffer", Buffer: b})
}

func (e *encoder) BindGraphicsDescriptorSets(layout hal.PipelineLayout, first uint32, sets []hal.DescriptorSet) {
	e.push(Command{Op: "bind_descriptor_sets", Sets: append([]hal.DescriptorSet(nil), sets...)})
}

func (e *encoder) BeginRenderPass(rp hal.RenderPass, fb hal.Framebuffer, area hal.Rect2D, clear [4]float32) {
	if !e.d.ledger.Alive(hal.Handle(fb)) {
		e.d.ledger.misuse = append(e.d.ledger.misuse, "render pass begun on a destroyed framebuffer")
	}
	e.push(Command{Op: "begin_render_pass", RenderPass: rp, Framebuffer: fb, Area: area, Clear: clear})
}

func (e *encoder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	e.push(Command{Op: "draw_indexed", IndexCount: indexCount})
}

func (e *encoder) EndRenderPass() { e.push(Command{Op: "end_render_pass"}) }

// execute replays the commands with a visible effect on device state.
func (d *Device) execute(r *Recording) {
	for _, c := range r.Commands {
		switch c.Op {
		case "barrier":
			for _, b := range c.Barriers {
				if o, ok := d.ledger.objects[hal.Handle(b.Image)]; ok {
					img := o.value.(*imageObj)
					if img.layout != b.OldLayout && b.OldLayout != hal.LayoutUndefined {
						d.ledger.misuse = append(d.ledger.misuse, "barrier old layout does not match image layout")
					}
					img.layout = b.NewLayout
				}
			}
		case "copy_buffer_to_image":
			d.copyBufferToImage(c.Buffer, c.Image, c.Regions)
		}
	}
}

func (d *Device) copyBufferToImage(src hal.Buffer, dst hal.Image, regions []hal.BufferImageCopy) {
	bo, ok := d.ledger.objects[hal.Handle(src)]
	if !ok {
		return
	}
	buf := bo.value.(*bufferObj)
	mo, ok := d.ledger.objects[hal.Handle(buf.mem)]
	if !ok {
		return
	}
	data := mo.value.(*memoryObj).data[buf.offset:]
	io, ok := d.ledger.objects[hal.Handle(dst)]
	if !ok {
		return
	}
	img := io.value.(*imageObj)
	width := int(img.desc.Extent.Width)
	for _, r := range regions {
		rowLen := int(r.RowLength)
		if rowLen == 0 {
			rowLen = int(r.ImageExtent.Width)
		}
		w := int(r.ImageExtent.Width)
		for y := 0; y < int(r.ImageExtent.Height); y++ {
			from := int(r.BufferOffset) + y*rowLen*4
			copy(img.pixels[y*width*4:y*width*4+w*4], data[from:from+w*4])
		}
	}
}
