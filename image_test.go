package corporation

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/andewx/corporation/hal"
	"github.com/andewx/corporation/hal/haltest"
)

func newTestTexture(t *testing.T, pix Pixels) (*haltest.Instance, *TextureImageState) {
	t.Helper()
	inst, a, d := newTestDevice(t, haltest.DefaultConfig())
	pool, err := NewDescriptorPool(d, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	layout, err := NewDescriptorSetLayout(d, TextureBindings())
	if err != nil {
		t.Fatal(err)
	}
	set, err := layout.CreateSet(pool)
	if err != nil {
		t.Fatal(err)
	}
	cmdPool, err := d.CreateCommandPool()
	if err != nil {
		t.Fatal(err)
	}
	tex, err := NewTextureImage(d, a, set, cmdPool, pix)
	if err != nil {
		t.Fatalf("NewTextureImage: %v", err)
	}
	if err := tex.WaitForTransfer(); err != nil {
		t.Fatalf("WaitForTransfer: %v", err)
	}
	return inst, tex
}

func TestTextureUpload(t *testing.T) {
	pix := checkerPixels(3, 2)
	inst, tex := newTestTexture(t, pix)
	dev := inst.Device()
	img := tex.Image()

	if have := dev.Pixels(img.Image); !bytes.Equal(have, pix.RGBA) {
		t.Fatalf("image contents\nhave %v\nwant %v", have, pix.RGBA)
	}
	if have := dev.Layout(img.Image); have != hal.LayoutShaderReadOnly {
		t.Fatalf("layout\nhave %v\nwant %v", have, hal.LayoutShaderReadOnly)
	}
	if tex.RowPitch != 256 {
		t.Fatalf("row pitch\nhave %d\nwant 256", tex.RowPitch)
	}
	if img.Format != hal.FormatRGBA8Srgb {
		t.Fatalf("format\nhave %v\nwant %v", img.Format, hal.FormatRGBA8Srgb)
	}

	writes := dev.Writes(tex.Set.Set)
	if w := writes[0]; w.Type != hal.DescriptorSampledImage || w.View != img.View || w.Layout != hal.LayoutShaderReadOnly {
		t.Fatalf("binding 0\nhave %+v\nwant sampled image view %d", w, img.View)
	}
	if w := writes[1]; w.Type != hal.DescriptorSampler || w.Sampler != tex.Sampler {
		t.Fatalf("binding 1\nhave %+v\nwant sampler %d", w, tex.Sampler)
	}
	noMisuse(t, inst)
}

func TestTextureUploadCommands(t *testing.T) {
	inst, tex := newTestTexture(t, checkerPixels(3, 2))
	dev := inst.Device()
	if len(dev.Submits) != 1 {
		t.Fatalf("submits\nhave %d\nwant 1", len(dev.Submits))
	}
	s := dev.Submits[0]
	if s.Fence != tex.Fence || !s.Waited {
		t.Fatalf("upload fence\nhave %d (waited %v)\nwant %d waited", s.Fence, s.Waited, tex.Fence)
	}
	var ops []string
	var region hal.BufferImageCopy
	for _, c := range dev.Commands(s.Submission.CommandBuffers[0]) {
		ops = append(ops, c.Op)
		if c.Op == "copy_buffer_to_image" {
			region = c.Regions[0]
		}
	}
	if want := []string{"barrier", "copy_buffer_to_image", "barrier"}; !reflect.DeepEqual(ops, want) {
		t.Fatalf("commands\nhave %v\nwant %v", ops, want)
	}
	want := hal.BufferImageCopy{RowLength: 64, ImageHeight: 2, ImageExtent: hal.Extent2D{Width: 3, Height: 2}}
	if region != want {
		t.Fatalf("copy region\nhave %+v\nwant %+v", region, want)
	}
}

func TestTextureDestroyOrder(t *testing.T) {
	inst, tex := newTestTexture(t, checkerPixels(3, 2))
	l := inst.Ledger()
	before := len(l.Destroys())
	img := tex.Image()
	tex.Destroy()

	want := []haltest.Record{
		{Kind: haltest.KindFence, Handle: hal.Handle(tex.Fence)},
		{Kind: haltest.KindSampler, Handle: hal.Handle(tex.Sampler)},
		{Kind: haltest.KindImageView, Handle: hal.Handle(img.View)},
		{Kind: haltest.KindImage, Handle: hal.Handle(img.Image)},
		{Kind: haltest.KindBuffer, Handle: hal.Handle(tex.Staging.Buffer)},
		{Kind: haltest.KindMemory, Handle: hal.Handle(tex.Staging.Memory)},
		{Kind: haltest.KindMemory, Handle: hal.Handle(img.Memory)},
	}
	if have := l.Destroys()[before:]; !reflect.DeepEqual(have, want) {
		t.Fatalf("destroy order\nhave %v\nwant %v", have, want)
	}
	noMisuse(t, inst)
}

func TestTextureTooLarge(t *testing.T) {
	hc := haltest.DefaultConfig()
	hc.Limits.MaxImageDimension2D = 2
	inst, a, d := newTestDevice(t, hc)
	pool, _ := NewDescriptorPool(d, 1, 0)
	layout, _ := NewDescriptorSetLayout(d, TextureBindings())
	set, _ := layout.CreateSet(pool)
	cmdPool, _ := d.CreateCommandPool()

	_, err := NewTextureImage(d, a, set, cmdPool, checkerPixels(3, 2))
	if k, ok := KindOf(err); !ok || k != KindAsset {
		t.Fatalf("kind\nhave %v (%v)\nwant %v", k, err, KindAsset)
	}
	l := inst.Ledger()
	for _, k := range []haltest.Kind{haltest.KindBuffer, haltest.KindMemory, haltest.KindImage} {
		if n := l.Live(k); n != 0 {
			t.Fatalf("live %s after failure\nhave %d\nwant 0", k, n)
		}
	}
}
