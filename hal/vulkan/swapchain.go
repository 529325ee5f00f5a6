package vulkan

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/corporation/hal"
)

type swapchain struct {
	sc     vk.Swapchain
	images []hal.Image
}

// CreateSwapchain creates a swapchain for s. The images it returns are
// owned by the swapchain and released by DestroySwapchain.
func (d *Device) CreateSwapchain(s hal.Surface, cfg hal.SwapchainConfig, old hal.Swapchain) (hal.Swapchain, []hal.Image, error) {
	surface, ok := s.(*Surface)
	if !ok {
		return 0, nil, errors.New("surface is not a vulkan surface")
	}
	var oldHandle vk.Swapchain
	if old != 0 {
		prev, ok := d.swapchains.get(hal.Handle(old))
		if !ok {
			return 0, nil, unknown("swapchain", hal.Handle(old))
		}
		oldHandle = prev.sc
	}

	var caps vk.SurfaceCapabilities
	ret := vk.GetPhysicalDeviceSurfaceCapabilities(d.adapter.gpu, surface.surface, &caps)
	if err := wrap(ret, "surface capabilities"); err != nil {
		return 0, nil, err
	}
	caps.Deref()

	// Figure out a suitable surface transform.
	preTransform := vk.SurfaceTransformIdentityBit
	if vk.SurfaceTransformFlagBits(caps.SupportedTransforms)&preTransform == 0 {
		preTransform = caps.CurrentTransform
	}

	// One of these is guaranteed to be set.
	compositeAlpha := vk.CompositeAlphaOpaqueBit
	for _, flag := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	} {
		if caps.SupportedCompositeAlpha&vk.CompositeAlphaFlags(flag) != 0 {
			compositeAlpha = flag
			break
		}
	}

	format := vkFormat(cfg.Format)
	if format == vk.FormatUndefined {
		return 0, nil, errors.Wrapf(hal.ErrNotSupported, "swapchain format %v", cfg.Format)
	}
	var handle vk.Swapchain
	ret = vk.CreateSwapchain(d.device, &vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface.surface,
		MinImageCount:    cfg.ImageCount,
		ImageFormat:      format,
		ImageColorSpace:  surface.colorSpace(cfg.Format),
		ImageExtent:      vkExtent(cfg.Extent),
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     preTransform,
		CompositeAlpha:   compositeAlpha,
		ImageArrayLayers: 1,
		ImageSharingMode: vk.SharingModeExclusive,
		PresentMode:      vkPresentMode(cfg.PresentMode),
		OldSwapchain:     oldHandle,
		Clipped:          vk.True,
	}, nil, &handle)
	if err := wrap(ret, "create swapchain"); err != nil {
		return 0, nil, err
	}

	var count uint32
	ret = vk.GetSwapchainImages(d.device, handle, &count, nil)
	if err := wrap(ret, "swapchain images"); err != nil {
		vk.DestroySwapchain(d.device, handle, nil)
		return 0, nil, err
	}
	natives := make([]vk.Image, count)
	ret = vk.GetSwapchainImages(d.device, handle, &count, natives)
	if err := wrap(ret, "swapchain images"); err != nil {
		vk.DestroySwapchain(d.device, handle, nil)
		return 0, nil, err
	}

	sc := &swapchain{sc: handle}
	h := hal.Swapchain(d.swapchains.add(sc))
	for _, img := range natives[:count] {
		sc.images = append(sc.images, hal.Image(d.images.add(image{img: img, owner: h})))
	}
	d.log.Debug("vulkan: swapchain created", "images", count, "extent", cfg.Extent, "format", cfg.Format)
	return h, append([]hal.Image(nil), sc.images...), nil
}

func (d *Device) DestroySwapchain(h hal.Swapchain) {
	sc, ok := d.swapchains.remove(hal.Handle(h))
	if !ok {
		d.stale("swapchain", hal.Handle(h))
		return
	}
	for _, img := range sc.images {
		d.images.remove(hal.Handle(img))
	}
	vk.DestroySwapchain(d.device, sc.sc, nil)
}

// AcquireImage returns the next image index. A suboptimal swapchain still
// hands out an image, so the index is valid alongside ErrSuboptimal.
func (d *Device) AcquireImage(h hal.Swapchain, timeout uint64, signal hal.Semaphore) (uint32, error) {
	sc, ok := d.swapchains.get(hal.Handle(h))
	if !ok {
		return 0, unknown("swapchain", hal.Handle(h))
	}
	sem, ok := d.semaphores.get(hal.Handle(signal))
	if !ok {
		return 0, unknown("semaphore", hal.Handle(signal))
	}
	var index uint32
	ret := vk.AcquireNextImage(d.device, sc.sc, timeout, sem, vk.NullFence, &index)
	return index, wrap(ret, "acquire image")
}
