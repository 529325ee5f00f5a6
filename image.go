package corporation

import (
	"github.com/andewx/corporation/hal"
	"github.com/pkg/errors"
)

// Pixels is a decoded image, tightly packed RGBA8 rows.
type Pixels struct {
	Width, Height uint32
	RGBA          []byte
}

// TextureBindings are the bindings a texture descriptor set layout must
// declare: the sampled image at 0 and its sampler at 1.
func TextureBindings() []hal.DescriptorBinding {
	return []hal.DescriptorBinding{
		{Binding: 0, Type: hal.DescriptorSampledImage, Count: 1, Stages: hal.ShaderStageFragment},
		{Binding: 1, Type: hal.DescriptorSampler, Count: 1, Stages: hal.ShaderStageFragment},
	}
}

// ImageState is a device local image with its view.
type ImageState struct {
	device *DeviceState
	Image  hal.Image
	Memory hal.Memory
	View   hal.ImageView
	Format hal.Format
	Extent hal.Extent2D
}

// NewImage creates a device local image and a view of it.
func NewImage(device *DeviceState, adapter *AdapterState, desc hal.ImageDesc) (*ImageState, error) {
	if m := adapter.Limits.MaxImageDimension2D; m > 0 && (desc.Extent.Width > m || desc.Extent.Height > m) {
		return nil, assetErr("create image", errors.Errorf("%dx%d exceeds the %d texel limit", desc.Extent.Width, desc.Extent.Height, m))
	}
	dev := device.Device
	var u undo
	img, err := dev.CreateImage(desc)
	if err != nil {
		return nil, setupErr("create image", err)
	}
	u.push(func() { dev.DestroyImage(img) })

	req := dev.ImageRequirements(img)
	typ, err := FindCompatibleMemoryType(adapter.MemoryTypes, req, hal.MemoryDeviceLocal)
	if err != nil {
		u.run()
		return nil, setupErr("create image", err)
	}
	mem, err := dev.AllocateMemory(typ, req.Size)
	if err != nil {
		u.run()
		return nil, setupErr("allocate image memory", err)
	}
	u.push(func() { dev.FreeMemory(mem) })
	if err := dev.BindImageMemory(img, mem, 0); err != nil {
		u.run()
		return nil, setupErr("bind image memory", err)
	}
	view, err := dev.CreateImageView(img, desc.Format)
	if err != nil {
		u.run()
		return nil, setupErr("create image view", err)
	}
	return &ImageState{
		device: device,
		Image:  img,
		Memory: mem,
		View:   view,
		Format: desc.Format,
		Extent: desc.Extent,
	}, nil
}

// Destroy releases the view, the image, then its memory.
func (i *ImageState) Destroy() {
	dev := i.device.Device
	dev.DestroyImageView(i.View)
	dev.DestroyImage(i.Image)
	dev.FreeMemory(i.Memory)
}

// TextureImageState is a sampled texture. Its pixels are uploaded through
// a staging buffer that lives until the texture is destroyed.
type TextureImageState struct {
	device   *DeviceState
	image    *ImageState
	Staging  *BufferState
	Sampler  hal.Sampler
	Fence    hal.Fence
	Set      *DescriptorSet
	RowPitch uint64
}

// NewTextureImage creates the texture for pix, writes its view and sampler
// into set and submits the upload on cmdPool. The upload is complete once
// WaitForTransfer returns.
func NewTextureImage(device *DeviceState, adapter *AdapterState, set *DescriptorSet, cmdPool hal.CommandPool, pix Pixels) (*TextureImageState, error) {
	if pix.Width == 0 || pix.Height == 0 {
		return nil, assetErr("create texture", errors.New("image has no pixels"))
	}
	dev := device.Device
	var u undo

	staging, pitch, err := CreateBufferForTextureUpload(device, adapter, pix.Width, pix.Height, pix.RGBA)
	if err != nil {
		return nil, err
	}
	u.push(staging.Destroy)

	img, err := NewImage(device, adapter, hal.ImageDesc{
		Extent:    hal.Extent2D{Width: pix.Width, Height: pix.Height},
		Format:    hal.FormatRGBA8Srgb,
		Usage:     hal.ImageTransferDst | hal.ImageSampled,
		MipLevels: 1,
	})
	if err != nil {
		u.run()
		return nil, err
	}
	u.push(img.Destroy)

	sampler, err := dev.CreateSampler(hal.SamplerDesc{Filter: hal.FilterLinear, Wrap: hal.WrapClamp})
	if err != nil {
		u.run()
		return nil, setupErr("create sampler", err)
	}
	u.push(func() { dev.DestroySampler(sampler) })

	if err := set.Write(
		hal.DescriptorWrite{Binding: 0, Type: hal.DescriptorSampledImage, View: img.View, Layout: hal.LayoutShaderReadOnly},
		hal.DescriptorWrite{Binding: 1, Type: hal.DescriptorSampler, Sampler: sampler},
	); err != nil {
		u.run()
		return nil, err
	}

	fence, err := dev.CreateFence(false)
	if err != nil {
		u.run()
		return nil, setupErr("create fence", err)
	}
	u.push(func() { dev.DestroyFence(fence) })

	t := &TextureImageState{
		device:   device,
		image:    img,
		Staging:  staging,
		Sampler:  sampler,
		Fence:    fence,
		Set:      set,
		RowPitch: pitch,
	}
	if err := t.upload(cmdPool, pix); err != nil {
		u.run()
		return nil, err
	}
	Logger().Debug("texture upload submitted", "width", pix.Width, "height", pix.Height, "rowPitch", pitch)
	return t, nil
}

func (t *TextureImageState) upload(cmdPool hal.CommandPool, pix Pixels) error {
	dev := t.device.Device
	cb, err := dev.AllocateCommandBuffer(cmdPool)
	if err != nil {
		return setupErr("allocate upload commands", err)
	}
	enc := dev.Encoder(cb)
	if err := enc.Begin(true); err != nil {
		return setupErr("record texture upload", err)
	}
	enc.PipelineBarrier(hal.PipelineStageTopOfPipe, hal.PipelineStageTransfer, []hal.ImageBarrier{{
		Image:     t.image.Image,
		DstAccess: hal.AccessTransferWrite,
		OldLayout: hal.LayoutUndefined,
		NewLayout: hal.LayoutTransferDst,
	}})
	enc.CopyBufferToImage(t.Staging.Buffer, t.image.Image, hal.LayoutTransferDst, []hal.BufferImageCopy{{
		RowLength:   uint32(t.RowPitch / RGBAStride),
		ImageHeight: pix.Height,
		ImageExtent: hal.Extent2D{Width: pix.Width, Height: pix.Height},
	}})
	enc.PipelineBarrier(hal.PipelineStageTransfer, hal.PipelineStageFragmentShader, []hal.ImageBarrier{{
		Image:     t.image.Image,
		SrcAccess: hal.AccessTransferWrite,
		DstAccess: hal.AccessShaderRead,
		OldLayout: hal.LayoutTransferDst,
		NewLayout: hal.LayoutShaderReadOnly,
	}})
	if err := enc.End(); err != nil {
		return setupErr("record texture upload", err)
	}
	err = t.device.Queue.Submit(hal.Submission{CommandBuffers: []hal.CommandBuffer{cb}}, t.Fence)
	return setupErr("submit texture upload", err)
}

// Image returns the device local image backing the texture.
func (t *TextureImageState) Image() *ImageState { return t.image }

// WaitForTransfer blocks until the upload has completed. The texture must
// not be sampled before.
func (t *TextureImageState) WaitForTransfer() error {
	return errors.Wrap(t.device.Device.WaitForFence(t.Fence, hal.Forever), "wait for texture upload")
}

// Destroy waits for the upload, then releases the fence, sampler, view,
// image, staging buffer and finally the image memory.
func (t *TextureImageState) Destroy() {
	dev := t.device.Device
	if err := t.WaitForTransfer(); err != nil {
		Logger().Error("texture teardown", "err", err)
	}
	dev.DestroyFence(t.Fence)
	dev.DestroySampler(t.Sampler)
	dev.DestroyImageView(t.image.View)
	dev.DestroyImage(t.image.Image)
	t.Staging.Destroy()
	dev.FreeMemory(t.image.Memory)
}
