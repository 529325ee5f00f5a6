package corporation

import "github.com/andewx/corporation/hal"

// RenderPassState is the single subpass pass rendering into the backbuffer.
type RenderPassState struct {
	device     *DeviceState
	RenderPass hal.RenderPass
	Format     hal.Format
}

// RenderPassDesc describes one color attachment of format that is cleared,
// stored and left ready for presentation. The external dependency keeps the
// clear from starting before the presentation engine released the image.
func RenderPassDesc(format hal.Format) hal.RenderPassDesc {
	return hal.RenderPassDesc{
		Attachments: []hal.Attachment{{
			Format:        format,
			Load:          hal.LoadOpClear,
			Store:         hal.StoreOpStore,
			InitialLayout: hal.LayoutUndefined,
			FinalLayout:   hal.LayoutPresentSrc,
		}},
		Dependencies: []hal.SubpassDependency{{
			SrcSubpass: hal.SubpassExternal,
			DstSubpass: 0,
			SrcStage:   hal.PipelineStageColorAttachmentOutput,
			DstStage:   hal.PipelineStageColorAttachmentOutput,
			DstAccess:  hal.AccessColorAttachmentRead | hal.AccessColorAttachmentWrite,
		}},
	}
}

// NewRenderPass creates the render pass for a swapchain of the given format.
func NewRenderPass(device *DeviceState, format hal.Format) (*RenderPassState, error) {
	rp, err := device.Device.CreateRenderPass(RenderPassDesc(format))
	if err != nil {
		return nil, setupErr("create render pass", err)
	}
	return &RenderPassState{device: device, RenderPass: rp, Format: format}, nil
}

func (r *RenderPassState) Destroy() {
	r.device.Device.DestroyRenderPass(r.RenderPass)
}
