package corporation

import (
	"reflect"
	"testing"

	"github.com/andewx/corporation/hal"
	"github.com/andewx/corporation/hal/haltest"
)

func newTestFramebuffers(t *testing.T, hc haltest.Config, framesInFlight uint32) (*haltest.Instance, *SwapchainState, *FramebufferState) {
	t.Helper()
	inst, a, d, surface := newTestSurface(t, hc)
	sc, err := NewSwapchain(d, a, surface, hal.Extent2D{Width: 640, Height: 480}, nil)
	if err != nil {
		t.Fatalf("NewSwapchain: %v", err)
	}
	rp, err := NewRenderPass(d, sc.Format)
	if err != nil {
		t.Fatalf("NewRenderPass: %v", err)
	}
	fbs, err := NewFramebuffers(d, rp, sc, framesInFlight)
	if err != nil {
		t.Fatalf("NewFramebuffers: %v", err)
	}
	return inst, sc, fbs
}

func TestFramebuffersOnePerImage(t *testing.T) {
	inst, sc, fbs := newTestFramebuffers(t, haltest.DefaultConfig(), 2)
	if fbs.Len() != len(sc.Backbuffer) {
		t.Fatalf("slots\nhave %d\nwant %d", fbs.Len(), len(sc.Backbuffer))
	}
	for i := 0; i < fbs.Len(); i++ {
		slot, err := fbs.Frame(uint32(i))
		if err != nil {
			t.Fatal(err)
		}
		views, extent := inst.Device().Framebuffer(slot.Framebuffer)
		if !reflect.DeepEqual(views, []hal.ImageView{slot.View}) {
			t.Fatalf("slot %d views\nhave %v\nwant [%d]", i, views, slot.View)
		}
		if extent != sc.Extent {
			t.Fatalf("slot %d extent\nhave %v\nwant %v", i, extent, sc.Extent)
		}
	}
	if _, err := fbs.Frame(uint32(fbs.Len())); err == nil {
		t.Fatal("Frame past the last slot succeeded")
	}
}

func TestFramebuffersWithoutBackbuffer(t *testing.T) {
	hc := haltest.DefaultConfig()
	hc.NoBackbuffer = true
	inst, _, fbs := newTestFramebuffers(t, hc, 2)
	if fbs.Len() != 2 {
		t.Fatalf("slots\nhave %d\nwant 2", fbs.Len())
	}
	if n := inst.Ledger().Created(haltest.KindImageView); n != 0 {
		t.Fatalf("views created\nhave %d\nwant 0", n)
	}
}

func TestNextSemaphoreIndexCycles(t *testing.T) {
	_, _, fbs := newTestFramebuffers(t, haltest.DefaultConfig(), 2)
	var have []int
	for i := 0; i < 7; i++ {
		have = append(have, fbs.NextSemaphoreIndex())
	}
	want := []int{0, 1, 2, 0, 1, 2, 0}
	if !reflect.DeepEqual(have, want) {
		t.Fatalf("semaphore indices\nhave %v\nwant %v", have, want)
	}
}

// The acquire and present semaphores rotate with the frame count while the
// fence, command buffer and framebuffer follow whichever image the
// presentation engine hands out.
func TestSemaphoresDecoupledFromImageIndex(t *testing.T) {
	inst, r, _ := newTestRenderer(t, haltest.DefaultConfig())
	dev := inst.Device()
	order := []uint32{2, 0, 1, 1, 0, 2}
	dev.SetAcquireOrder(order...)
	submitsBefore := len(dev.Submits)

	for range order {
		frame(t, r)
	}
	noMisuse(t, inst)

	fbs := r.Framebuffers()
	slot := func(i int) *FrameSlot {
		s, err := fbs.Frame(uint32(i))
		if err != nil {
			t.Fatal(err)
		}
		return s
	}
	if !reflect.DeepEqual(dev.Acquired, order) {
		t.Fatalf("acquired\nhave %v\nwant %v", dev.Acquired, order)
	}
	submits := dev.Submits[submitsBefore:]
	if len(submits) != len(order) || len(dev.Presents) != len(order) {
		t.Fatalf("submits %d, presents %d, want %d each", len(submits), len(dev.Presents), len(order))
	}
	for i, img := range order {
		sem := slot(i % fbs.Len())
		own := slot(int(img))

		if have := dev.AcquireSemaphores[i]; have != sem.AcquireSemaphore {
			t.Fatalf("frame %d acquire semaphore\nhave %d\nwant %d", i, have, sem.AcquireSemaphore)
		}
		s := submits[i]
		if s.Fence != own.Fence {
			t.Fatalf("frame %d fence\nhave %d\nwant %d (image %d)", i, s.Fence, own.Fence, img)
		}
		if s.Submission.CommandBuffers[0] != own.CommandBuffer {
			t.Fatalf("frame %d command buffer\nhave %d\nwant %d", i, s.Submission.CommandBuffers[0], own.CommandBuffer)
		}
		if s.Submission.WaitSemaphores[0] != sem.AcquireSemaphore {
			t.Fatalf("frame %d submit waits on\nhave %d\nwant %d", i, s.Submission.WaitSemaphores[0], sem.AcquireSemaphore)
		}
		if s.Submission.WaitStages[0] != hal.PipelineStageColorAttachmentOutput {
			t.Fatalf("frame %d wait stage\nhave %v\nwant color attachment output", i, s.Submission.WaitStages[0])
		}
		if s.Submission.SignalSemaphores[0] != sem.PresentSemaphore {
			t.Fatalf("frame %d submit signals\nhave %d\nwant %d", i, s.Submission.SignalSemaphores[0], sem.PresentSemaphore)
		}
		p := dev.Presents[i]
		if p.Index != img || p.Wait != sem.PresentSemaphore {
			t.Fatalf("frame %d present\nhave image %d waiting on %d\nwant image %d waiting on %d", i, p.Index, p.Wait, img, sem.PresentSemaphore)
		}
		cmds := dev.Commands(own.CommandBuffer)
		var fb hal.Framebuffer
		for _, c := range cmds {
			if c.Op == "begin_render_pass" {
				fb = c.Framebuffer
			}
		}
		if fb != own.Framebuffer {
			t.Fatalf("frame %d framebuffer\nhave %d\nwant %d", i, fb, own.Framebuffer)
		}
	}
}

func TestFrameWaitsBeforeReset(t *testing.T) {
	inst, r, _ := newTestRenderer(t, haltest.DefaultConfig())
	l := inst.Ledger()
	l.ResetCalls()
	frame(t, r)
	want := []string{"acquire", "wait_fence", "reset_fence", "reset_pool", "submit", "present"}
	if !reflect.DeepEqual(l.Calls(), want) {
		t.Fatalf("calls\nhave %v\nwant %v", l.Calls(), want)
	}
}

func TestFramebuffersDestroyOrder(t *testing.T) {
	hc := haltest.DefaultConfig()
	hc.Capabilities.MinImageCount, hc.Capabilities.MaxImageCount = 1, 1
	inst, _, fbs := newTestFramebuffers(t, hc, 2)
	if fbs.Len() != 1 {
		t.Fatalf("slots\nhave %d\nwant 1", fbs.Len())
	}
	slot, _ := fbs.Frame(0)
	s := *slot
	l := inst.Ledger()
	before := len(l.Destroys())
	fbs.Destroy()

	want := []haltest.Record{
		{Kind: haltest.KindFence, Handle: hal.Handle(s.Fence)},
		{Kind: haltest.KindCommandBuffer, Handle: hal.Handle(s.CommandBuffer)},
		{Kind: haltest.KindCommandPool, Handle: hal.Handle(s.CommandPool)},
		{Kind: haltest.KindSemaphore, Handle: hal.Handle(s.AcquireSemaphore)},
		{Kind: haltest.KindSemaphore, Handle: hal.Handle(s.PresentSemaphore)},
		{Kind: haltest.KindFramebuffer, Handle: hal.Handle(s.Framebuffer)},
		{Kind: haltest.KindImageView, Handle: hal.Handle(s.View)},
	}
	if have := l.Destroys()[before:]; !reflect.DeepEqual(have, want) {
		t.Fatalf("destroy order\nhave %v\nwant %v", have, want)
	}
	noMisuse(t, inst)
}

func TestFramebuffersCreateFailureReleasesSlot(t *testing.T) {
	inst, a, d, surface := newTestSurface(t, haltest.DefaultConfig())
	sc, err := NewSwapchain(d, a, surface, hal.Extent2D{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	rp, err := NewRenderPass(d, sc.Format)
	if err != nil {
		t.Fatal(err)
	}
	inst.Device().FailCreate(haltest.KindFence, hal.ErrOutOfMemory)
	_, err = NewFramebuffers(d, rp, sc, 2)
	if k, ok := KindOf(err); !ok || k != KindSetup {
		t.Fatalf("kind\nhave %v (%v)\nwant %v", k, err, KindSetup)
	}
	l := inst.Ledger()
	for _, k := range []haltest.Kind{haltest.KindImageView, haltest.KindFramebuffer, haltest.KindSemaphore, haltest.KindCommandPool, haltest.KindCommandBuffer} {
		if n := l.Live(k); n != 0 {
			t.Fatalf("live %s after failure\nhave %d\nwant 0", k, n)
		}
	}
	noMisuse(t, inst)
}
