//go:build gpu

package vulkan_test

import (
	"errors"
	"os"
	"runtime"
	"testing"

	"github.com/andewx/corporation/hal"
	"github.com/andewx/corporation/hal/vulkan"
	"github.com/andewx/corporation/window"
)

const (
	width  = 500
	height = 500
)

func TestMain(m *testing.M) {
	runtime.LockOSThread()
	os.Exit(m.Run())
}

// open returns a device on the first adapter that can draw and present to
// a fresh window, along with a cleanup func.
func open(t *testing.T) (hal.Device, hal.Surface, hal.Adapter, func()) {
	win, err := window.New("Vulkan", width, height)
	if err != nil {
		t.Skipf("no window system: %v", err)
	}
	inst, err := vulkan.New(vulkan.Config{
		AppName:    "gpu test",
		Extensions: win.RequiredExtensions(),
		Surface:    win.CreateSurface,
	})
	if err != nil {
		win.Destroy()
		t.Fatalf("failed to create instance: %v", err)
	}
	surface, err := inst.CreateSurface()
	if err != nil {
		inst.Destroy()
		win.Destroy()
		t.Fatalf("failed to create surface: %v", err)
	}
	adapters, err := inst.Adapters()
	if err != nil || len(adapters) == 0 {
		t.Skipf("no adapters: %v", err)
	}
	for _, a := range adapters {
		for _, f := range a.QueueFamilies() {
			if !f.Supports(hal.QueueGraphics) || !surface.SupportsQueueFamily(a, f.Index) {
				continue
			}
			dev, err := a.Open(f.Index)
			if err != nil {
				t.Fatalf("failed to open %s: %v", a.Info().Name, err)
			}
			return dev, surface, a, func() {
				dev.Destroy()
				surface.Destroy()
				inst.Destroy()
				win.Destroy()
			}
		}
	}
	t.Skip("no adapter can present to the window")
	return nil, nil, nil, nil
}

func TestSubmitEmptyCommandBuffer(t *testing.T) {
	dev, _, _, done := open(t)
	defer done()

	pool, err := dev.CreateCommandPool()
	if err != nil {
		t.Fatalf("failed to create command pool: %v", err)
	}
	defer dev.DestroyCommandPool(pool)
	cb, err := dev.AllocateCommandBuffer(pool)
	if err != nil {
		t.Fatalf("failed to allocate command buffer: %v", err)
	}
	enc := dev.Encoder(cb)
	if err := enc.Begin(true); err != nil {
		t.Fatalf("failed to begin: %v", err)
	}
	if err := enc.End(); err != nil {
		t.Fatalf("failed to end: %v", err)
	}

	fence, err := dev.CreateFence(false)
	if err != nil {
		t.Fatalf("failed to create fence: %v", err)
	}
	defer dev.DestroyFence(fence)
	if err := dev.Queue().Submit(hal.Submission{CommandBuffers: []hal.CommandBuffer{cb}}, fence); err != nil {
		t.Fatalf("failed to submit: %v", err)
	}
	if err := dev.WaitForFence(fence, hal.Forever); err != nil {
		t.Fatalf("failed to wait: %v", err)
	}
}

func TestUnsignaledFenceTimesOut(t *testing.T) {
	dev, _, _, done := open(t)
	defer done()

	fence, err := dev.CreateFence(false)
	if err != nil {
		t.Fatalf("failed to create fence: %v", err)
	}
	defer dev.DestroyFence(fence)
	if err := dev.WaitForFence(fence, 1000); !errors.Is(err, hal.ErrTimeout) {
		t.Fatalf("wait on unsignaled fence\nhave %v\nwant %v", err, hal.ErrTimeout)
	}
}

func TestSwapchainAcquirePresent(t *testing.T) {
	dev, surface, adapter, done := open(t)
	defer done()

	caps, err := surface.Capabilities(adapter)
	if err != nil {
		t.Fatalf("failed to query capabilities: %v", err)
	}
	formats, err := surface.Formats(adapter)
	if err != nil {
		t.Fatalf("failed to query formats: %v", err)
	}
	format := hal.FormatBGRA8Unorm
	if len(formats) > 0 {
		format = formats[0]
	}
	extent := caps.CurrentExtent
	if extent.Width == 0xFFFFFFFF {
		extent = hal.Extent2D{Width: width, Height: height}
	}
	sc, images, err := dev.CreateSwapchain(surface, hal.SwapchainConfig{
		Format:     format,
		Extent:     extent,
		ImageCount: caps.MinImageCount,
	}, 0)
	if err != nil {
		t.Fatalf("failed to create swapchain: %v", err)
	}
	defer dev.DestroySwapchain(sc)
	if uint32(len(images)) < caps.MinImageCount {
		t.Fatalf("swapchain image count\nhave %d\nwant >= %d", len(images), caps.MinImageCount)
	}

	sem, err := dev.CreateSemaphore()
	if err != nil {
		t.Fatalf("failed to create semaphore: %v", err)
	}
	defer dev.DestroySemaphore(sem)
	index, err := dev.AcquireImage(sc, hal.Forever, sem)
	if err != nil && !errors.Is(err, hal.ErrSuboptimal) {
		t.Fatalf("failed to acquire: %v", err)
	}
	if int(index) >= len(images) {
		t.Fatalf("acquired index %d out of %d images", index, len(images))
	}
	if err := dev.WaitIdle(); err != nil {
		t.Fatalf("failed to wait idle: %v", err)
	}
}
