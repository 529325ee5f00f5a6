package corporation

import (
	"github.com/andewx/corporation/hal"
	"github.com/pkg/errors"
)

// FrameSlot is the per image state of FramebufferState. The fence, pool,
// command buffer and framebuffer belong to the backbuffer image of the same
// index; the semaphores are handed out by NextSemaphoreIndex.
type FrameSlot struct {
	Fence            hal.Fence
	CommandPool      hal.CommandPool
	CommandBuffer    hal.CommandBuffer
	AcquireSemaphore hal.Semaphore
	PresentSemaphore hal.Semaphore
	Framebuffer      hal.Framebuffer
	View             hal.ImageView // zero without backbuffer images

	// unsignaled is set from resetting Fence until work that signals it
	// is submitted.
	unsignaled bool
}

// FramebufferState holds one FrameSlot per backbuffer image, or
// framesInFlight slots when the swapchain exposes no images.
type FramebufferState struct {
	device    *DeviceState
	slots     []FrameSlot
	semaphore int
}

// NewFramebuffers creates the slots for swapchain rendered through rp.
func NewFramebuffers(device *DeviceState, rp *RenderPassState, swapchain *SwapchainState, framesInFlight uint32) (*FramebufferState, error) {
	n := len(swapchain.Backbuffer)
	if n == 0 {
		n = int(framesInFlight)
		if n < 1 {
			n = 1
		}
	}
	f := &FramebufferState{device: device, slots: make([]FrameSlot, 0, n)}
	for i := 0; i < n; i++ {
		var img hal.Image
		if i < len(swapchain.Backbuffer) {
			img = swapchain.Backbuffer[i]
		}
		s, err := f.newSlot(rp, swapchain, img)
		if err != nil {
			f.Destroy()
			return nil, errors.Wrapf(err, "frame slot %d", i)
		}
		f.slots = append(f.slots, s)
	}
	Logger().Debug("framebuffers created", "slots", n, "width", swapchain.Extent.Width, "height", swapchain.Extent.Height)
	return f, nil
}

func (f *FramebufferState) newSlot(rp *RenderPassState, swapchain *SwapchainState, img hal.Image) (FrameSlot, error) {
	dev := f.device.Device
	var (
		s   FrameSlot
		u   undo
		err error
	)
	fail := func(op string, err error) (FrameSlot, error) {
		u.run()
		return FrameSlot{}, setupErr(op, err)
	}
	var views []hal.ImageView
	if img != 0 {
		if s.View, err = dev.CreateImageView(img, swapchain.Format); err != nil {
			return fail("create backbuffer view", err)
		}
		u.push(func() { dev.DestroyImageView(s.View) })
		views = []hal.ImageView{s.View}
	}
	if s.Framebuffer, err = dev.CreateFramebuffer(rp.RenderPass, views, swapchain.Extent); err != nil {
		return fail("create framebuffer", err)
	}
	u.push(func() { dev.DestroyFramebuffer(s.Framebuffer) })
	if s.PresentSemaphore, err = dev.CreateSemaphore(); err != nil {
		return fail("create present semaphore", err)
	}
	u.push(func() { dev.DestroySemaphore(s.PresentSemaphore) })
	if s.AcquireSemaphore, err = dev.CreateSemaphore(); err != nil {
		return fail("create acquire semaphore", err)
	}
	u.push(func() { dev.DestroySemaphore(s.AcquireSemaphore) })
	if s.CommandPool, err = dev.CreateCommandPool(); err != nil {
		return fail("create command pool", err)
	}
	u.push(func() { dev.DestroyCommandPool(s.CommandPool) })
	if s.CommandBuffer, err = dev.AllocateCommandBuffer(s.CommandPool); err != nil {
		return fail("allocate command buffer", err)
	}
	if s.Fence, err = dev.CreateFence(true); err != nil {
		return fail("create fence", err)
	}
	return s, nil
}

// Len returns the number of slots.
func (f *FramebufferState) Len() int { return len(f.slots) }

// NextSemaphoreIndex returns the semaphore slot for the next acquire. It
// cycles 0, 1, ..., Len()-1 no matter which images get acquired.
func (f *FramebufferState) NextSemaphoreIndex() int {
	i := f.semaphore
	f.semaphore = (f.semaphore + 1) % len(f.slots)
	return i
}

// Semaphores returns the acquire and present semaphores of semaphore slot i.
func (f *FramebufferState) Semaphores(i int) (acquire, present hal.Semaphore) {
	return f.slots[i].AcquireSemaphore, f.slots[i].PresentSemaphore
}

// Frame returns the slot of backbuffer image index.
func (f *FramebufferState) Frame(index uint32) (*FrameSlot, error) {
	if int(index) >= len(f.slots) {
		return nil, errors.Errorf("image index %d out of %d frame slots", index, len(f.slots))
	}
	return &f.slots[index], nil
}

// Destroy waits on the fence of every slot with submitted work, then
// releases the fence, command pool, semaphores, framebuffer and view.
func (f *FramebufferState) Destroy() {
	dev := f.device.Device
	for _, s := range f.slots {
		if !s.unsignaled {
			if err := dev.WaitForFence(s.Fence, hal.Forever); err != nil {
				Logger().Error("framebuffer teardown", "err", err)
			}
		}
		dev.DestroyFence(s.Fence)
		dev.DestroyCommandPool(s.CommandPool)
		dev.DestroySemaphore(s.AcquireSemaphore)
		dev.DestroySemaphore(s.PresentSemaphore)
		dev.DestroyFramebuffer(s.Framebuffer)
		if s.View != 0 {
			dev.DestroyImageView(s.View)
		}
	}
	f.slots = nil
}
