package corporation

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"

	"github.com/andewx/corporation/hal"
	"github.com/andewx/corporation/hal/haltest"
)

func TestFindCompatibleMemoryType(t *testing.T) {
	var (
		local = hal.MemoryDeviceLocal
		host  = hal.MemoryHostVisible | hal.MemoryHostCoherent
		both  = local | host
	)
	types := []hal.MemoryType{{Properties: local}, {Properties: host}, {Properties: both}}
	tests := []struct {
		name  string
		types []hal.MemoryType
		mask  uint32
		want  hal.MemoryProperty
		index uint32
		fail  bool
	}{
		{"lowest host visible", types, 0b111, hal.MemoryHostVisible, 1, false},
		{"lowest device local", types, 0b111, local, 0, false},
		{"mask skips first match", types, 0b110, local, 2, false},
		{"superset accepted", types, 0b100, hal.MemoryHostVisible, 2, false},
		{"no flags matches first allowed", types, 0b010, 0, 1, false},
		{"mask excludes every match", types, 0b001, hal.MemoryHostVisible, 0, true},
		{"no host visible type", []hal.MemoryType{{Properties: local}}, 0b1, hal.MemoryHostVisible, 0, true},
		{"empty table", nil, ^uint32(0), local, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			have, err := FindCompatibleMemoryType(tt.types, hal.MemoryRequirements{TypeMask: tt.mask}, tt.want)
			if tt.fail {
				if !errors.Is(err, ErrNoMemoryType) {
					t.Fatalf("error\nhave %v\nwant %v", err, ErrNoMemoryType)
				}
				return
			}
			if err != nil {
				t.Fatalf("FindCompatibleMemoryType: %v", err)
			}
			if have != tt.index {
				t.Fatalf("index\nhave %d\nwant %d", have, tt.index)
			}
		})
	}
}

func TestRowPitch(t *testing.T) {
	tests := []struct {
		width     uint32
		alignment uint64
		want      uint64
	}{
		{3, 256, 256},
		{64, 256, 256},
		{65, 256, 512},
		{3, 0, 12},
		{3, 1, 12},
		{10, 4, 40},
		{10, 16, 48},
	}
	for _, tt := range tests {
		if have := RowPitch(tt.width, tt.alignment); have != tt.want {
			t.Fatalf("RowPitch(%d, %d)\nhave %d\nwant %d", tt.width, tt.alignment, have, tt.want)
		}
	}
	if have := alignRowPitch(3, RGBAStride, 255); have != 256 {
		t.Fatalf("alignRowPitch(3, 4, 255)\nhave %d\nwant 256", have)
	}
}

func TestUploadSize(t *testing.T) {
	a := UploadSize(3, 2, 256)
	b := UploadSize(3, 2, 256)
	if a != b {
		t.Fatalf("UploadSize not stable: %d then %d", a, b)
	}
	if want := RowPitch(3, 256) * 2; a != want {
		t.Fatalf("UploadSize\nhave %d\nwant %d", a, want)
	}
}

func TestCreateBufferUploadsData(t *testing.T) {
	inst, a, d := newTestDevice(t, haltest.DefaultConfig())
	data := []uint32{1, 2, 3, 0xdeadbeef}
	b, err := CreateBuffer(d, data, hal.BufferIndex, hal.MemoryHostVisible, a.MemoryTypes)
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	if b.Size() != 16 {
		t.Fatalf("Size\nhave %d\nwant 16", b.Size())
	}
	mem, err := d.Device.MapMemory(b.Memory, 0, 16)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0, 0xef, 0xbe, 0xad, 0xde}
	if !bytes.Equal(mem, want) {
		t.Fatalf("contents\nhave %v\nwant %v", mem, want)
	}
	d.Device.UnmapMemory(b.Memory)

	if err := b.Update(4, []byte{9, 9, 9, 9}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := b.Update(14, []byte{1, 2, 3}); err == nil {
		t.Fatal("Update past the end succeeded")
	}

	b.Destroy()
	destroys := inst.Ledger().Destroys()
	if len(destroys) != 2 || destroys[0].Kind != haltest.KindBuffer || destroys[1].Kind != haltest.KindMemory {
		t.Fatalf("destroy order\nhave %v\nwant [buffer memory]", destroys)
	}
	noMisuse(t, inst)
}

func TestCreateBufferNoMemoryType(t *testing.T) {
	hc := haltest.DefaultConfig()
	hc.MemoryTypes = []hal.MemoryType{{Properties: hal.MemoryDeviceLocal}}
	inst, a, d := newTestDevice(t, hc)
	_, err := CreateBuffer(d, []byte{1}, hal.BufferUniform, hal.MemoryHostVisible, a.MemoryTypes)
	if !errors.Is(err, ErrNoMemoryType) {
		t.Fatalf("error\nhave %v\nwant %v", err, ErrNoMemoryType)
	}
	if k, _ := KindOf(err); k != KindSetup {
		t.Fatalf("kind\nhave %v\nwant %v", k, KindSetup)
	}
	if n := inst.Ledger().Live(haltest.KindBuffer); n != 0 {
		t.Fatalf("live buffers after failure\nhave %d\nwant 0", n)
	}
}

func TestCreateBufferForTextureUpload(t *testing.T) {
	_, a, d := newTestDevice(t, haltest.DefaultConfig())
	pix := checkerPixels(3, 2)
	b, pitch, err := CreateBufferForTextureUpload(d, a, pix.Width, pix.Height, pix.RGBA)
	if err != nil {
		t.Fatalf("CreateBufferForTextureUpload: %v", err)
	}
	if pitch != 256 {
		t.Fatalf("row pitch\nhave %d\nwant 256", pitch)
	}
	if b.Size() != 512 {
		t.Fatalf("size\nhave %d\nwant 512", b.Size())
	}
	mem, err := d.Device.MapMemory(b.Memory, 0, b.Size())
	if err != nil {
		t.Fatal(err)
	}
	defer d.Device.UnmapMemory(b.Memory)
	for y := 0; y < 2; y++ {
		have := mem[y*256 : y*256+12]
		want := pix.RGBA[y*12 : (y+1)*12]
		if !bytes.Equal(have, want) {
			t.Fatalf("row %d\nhave %v\nwant %v", y, have, want)
		}
		if pad := mem[y*256+12 : (y+1)*256]; !bytes.Equal(pad, make([]byte, len(pad))) {
			t.Fatalf("row %d padding written", y)
		}
	}
}

func TestCreateBufferForTextureUploadSizeMismatch(t *testing.T) {
	_, a, d := newTestDevice(t, haltest.DefaultConfig())
	_, _, err := CreateBufferForTextureUpload(d, a, 3, 2, make([]byte, 5))
	if k, ok := KindOf(err); !ok || k != KindAsset {
		t.Fatalf("kind\nhave %v (%v)\nwant %v", k, err, KindAsset)
	}
}
