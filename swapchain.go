package corporation

import (
	"github.com/andewx/corporation/hal"
)

// DefaultSurfaceFormat is used when the surface places no constraint on
// the format.
const DefaultSurfaceFormat = hal.FormatRGBA8Srgb

// SwapchainState is the presentable image chain of a surface.
type SwapchainState struct {
	device     *DeviceState
	Swapchain  hal.Swapchain
	Backbuffer []hal.Image
	Format     hal.Format
	Extent     hal.Extent2D
}

// SelectSurfaceFormat picks the first sRGB format in formats, else the
// first format, else DefaultSurfaceFormat when formats is empty.
func SelectSurfaceFormat(formats []hal.Format) hal.Format {
	if len(formats) == 0 {
		return DefaultSurfaceFormat
	}
	for _, f := range formats {
		if f.IsSrgb() {
			return f
		}
	}
	return formats[0]
}

// ClampExtent returns the swapchain extent for a surface with caps. The
// surface's current extent wins unless it is the 0xFFFFFFFF wildcard, in
// which case requested is clamped to the allowed range.
func ClampExtent(caps hal.SurfaceCapabilities, requested hal.Extent2D) hal.Extent2D {
	if caps.CurrentExtent.Width != ^uint32(0) {
		return caps.CurrentExtent
	}
	return hal.Extent2D{
		Width:  clamp(requested.Width, caps.MinExtent.Width, caps.MaxExtent.Width),
		Height: clamp(requested.Height, caps.MinExtent.Height, caps.MaxExtent.Height),
	}
}

// ImageCount returns one more image than the surface minimum, within its maximum.
func ImageCount(caps hal.SurfaceCapabilities) uint32 {
	n := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && n > caps.MaxImageCount {
		n = caps.MaxImageCount
	}
	return n
}

func clamp(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if hi > 0 && v > hi {
		return hi
	}
	return v
}

// NewSwapchain creates a swapchain for surface. When old is not nil its
// handle is passed to the backend for the handover and old is destroyed
// once the new chain exists.
func NewSwapchain(device *DeviceState, adapter *AdapterState, surface hal.Surface, requested hal.Extent2D, old *SwapchainState) (*SwapchainState, error) {
	caps, err := surface.Capabilities(adapter.Adapter)
	if err != nil {
		return nil, setupErr("query surface capabilities", err)
	}
	formats, err := surface.Formats(adapter.Adapter)
	if err != nil {
		return nil, setupErr("query surface formats", err)
	}
	cfg := hal.SwapchainConfig{
		Format:      SelectSurfaceFormat(formats),
		Extent:      ClampExtent(caps, requested),
		ImageCount:  ImageCount(caps),
		PresentMode: hal.PresentFifo,
	}
	var oldHandle hal.Swapchain
	if old != nil {
		oldHandle = old.Swapchain
	}
	sc, images, err := device.Device.CreateSwapchain(surface, cfg, oldHandle)
	if err != nil {
		return nil, setupErr("create swapchain", err)
	}
	if old != nil {
		old.Destroy()
	}
	Logger().Info("swapchain created",
		"width", cfg.Extent.Width,
		"height", cfg.Extent.Height,
		"format", cfg.Format.String(),
		"images", len(images),
		"recreated", old != nil,
	)
	return &SwapchainState{
		device:     device,
		Swapchain:  sc,
		Backbuffer: images,
		Format:     cfg.Format,
		Extent:     cfg.Extent,
	}, nil
}

// Acquire returns the index of the next backbuffer image. signal is
// signaled once the image may be rendered to.
func (s *SwapchainState) Acquire(signal hal.Semaphore) (uint32, error) {
	return s.device.Device.AcquireImage(s.Swapchain, hal.Forever, signal)
}

// Destroy destroys the swapchain with its backbuffer images.
func (s *SwapchainState) Destroy() {
	s.device.Device.DestroySwapchain(s.Swapchain)
}
