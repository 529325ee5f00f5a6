package corporation

import (
	"testing"

	"github.com/andewx/corporation/hal"
	"github.com/andewx/corporation/hal/haltest"
)

func TestSelectSurfaceFormat(t *testing.T) {
	tests := []struct {
		formats []hal.Format
		want    hal.Format
	}{
		{nil, DefaultSurfaceFormat},
		{[]hal.Format{hal.FormatBGRA8Unorm}, hal.FormatBGRA8Unorm},
		{[]hal.Format{hal.FormatBGRA8Unorm, hal.FormatBGRA8Srgb}, hal.FormatBGRA8Srgb},
		{[]hal.Format{hal.FormatRGBA8Srgb, hal.FormatBGRA8Srgb}, hal.FormatRGBA8Srgb},
	}
	for _, tt := range tests {
		if have := SelectSurfaceFormat(tt.formats); have != tt.want {
			t.Fatalf("SelectSurfaceFormat(%v)\nhave %v\nwant %v", tt.formats, have, tt.want)
		}
	}
}

func TestClampExtent(t *testing.T) {
	wild := hal.Extent2D{Width: ^uint32(0), Height: ^uint32(0)}
	caps := func(cur hal.Extent2D) hal.SurfaceCapabilities {
		return hal.SurfaceCapabilities{
			CurrentExtent: cur,
			MinExtent:     hal.Extent2D{Width: 16, Height: 16},
			MaxExtent:     hal.Extent2D{Width: 2048, Height: 1024},
		}
	}
	tests := []struct {
		name      string
		caps      hal.SurfaceCapabilities
		requested hal.Extent2D
		want      hal.Extent2D
	}{
		{"surface decides", caps(hal.Extent2D{Width: 640, Height: 480}), hal.Extent2D{Width: 800, Height: 600}, hal.Extent2D{Width: 640, Height: 480}},
		{"wildcard takes request", caps(wild), hal.Extent2D{Width: 800, Height: 600}, hal.Extent2D{Width: 800, Height: 600}},
		{"wildcard clamps high", caps(wild), hal.Extent2D{Width: 4000, Height: 4000}, hal.Extent2D{Width: 2048, Height: 1024}},
		{"wildcard clamps low", caps(wild), hal.Extent2D{Width: 1, Height: 8}, hal.Extent2D{Width: 16, Height: 16}},
	}
	for _, tt := range tests {
		if have := ClampExtent(tt.caps, tt.requested); have != tt.want {
			t.Fatalf("%s\nhave %v\nwant %v", tt.name, have, tt.want)
		}
	}
}

func TestImageCount(t *testing.T) {
	tests := []struct {
		min, max, want uint32
	}{
		{2, 3, 3},
		{2, 2, 2},
		{3, 0, 4},
		{1, 8, 2},
	}
	for _, tt := range tests {
		have := ImageCount(hal.SurfaceCapabilities{MinImageCount: tt.min, MaxImageCount: tt.max})
		if have != tt.want {
			t.Fatalf("ImageCount(min %d, max %d)\nhave %d\nwant %d", tt.min, tt.max, have, tt.want)
		}
	}
}

func TestNewSwapchainHandsOverOld(t *testing.T) {
	inst, a, d, surface := newTestSurface(t, haltest.DefaultConfig())
	s := inst.Device()

	first, err := NewSwapchain(d, a, surface, hal.Extent2D{Width: 1, Height: 1}, nil)
	if err != nil {
		t.Fatalf("NewSwapchain: %v", err)
	}
	if first.Format != hal.FormatBGRA8Srgb {
		t.Fatalf("format\nhave %v\nwant %v", first.Format, hal.FormatBGRA8Srgb)
	}
	if len(first.Backbuffer) != 3 {
		t.Fatalf("backbuffer images\nhave %d\nwant 3", len(first.Backbuffer))
	}
	if first.Extent != (hal.Extent2D{Width: 640, Height: 480}) {
		t.Fatalf("extent\nhave %v\nwant 640x480", first.Extent)
	}

	second, err := NewSwapchain(d, a, surface, hal.Extent2D{Width: 1, Height: 1}, first)
	if err != nil {
		t.Fatalf("NewSwapchain: %v", err)
	}
	l := inst.Ledger()
	if n := l.DestroyCount(hal.Handle(first.Swapchain)); n != 1 {
		t.Fatalf("old swapchain destroys\nhave %d\nwant 1", n)
	}
	if !l.Alive(hal.Handle(second.Swapchain)) {
		t.Fatal("new swapchain not alive")
	}
	if have := s.Swapchain(second.Swapchain).ImageCount; have != 3 {
		t.Fatalf("image count\nhave %d\nwant 3", have)
	}
	noMisuse(t, inst)
}
