package corporation

import (
	"unsafe"

	"github.com/andewx/corporation/hal"
	"github.com/pkg/errors"
)

// RGBAStride is the size in bytes of one RGBA8 texel.
const RGBAStride = 4

// BufferState is a buffer with the memory bound to it. Memory is bound
// once at creation and freed right after the buffer is destroyed.
type BufferState struct {
	device *DeviceState
	Buffer hal.Buffer
	Memory hal.Memory
	size   uint64
	Usage  hal.BufferUsage
}

// FindCompatibleMemoryType returns the lowest index in types that is set in
// req.TypeMask and whose properties contain desired.
func FindCompatibleMemoryType(types []hal.MemoryType, req hal.MemoryRequirements, desired hal.MemoryProperty) (uint32, error) {
	for i, t := range types {
		if i >= 32 {
			break
		}
		if req.TypeMask&(1<<uint(i)) != 0 && t.Properties.Contains(desired) {
			return uint32(i), nil
		}
	}
	return 0, errors.Wrapf(ErrNoMemoryType, "mask %#x, properties %#x", req.TypeMask, uint32(desired))
}

// CreateBuffer creates a buffer holding len(data) elements of T and, when
// props is host visible, copies data into it. T must not contain pointers.
func CreateBuffer[T any](device *DeviceState, data []T, usage hal.BufferUsage, props hal.MemoryProperty, types []hal.MemoryType) (*BufferState, error) {
	var zero T
	size := uint64(len(data)) * uint64(unsafe.Sizeof(zero))
	b, err := allocateBuffer(device, size, usage, props, types)
	if err != nil {
		return nil, err
	}
	if props.Contains(hal.MemoryHostVisible) && size > 0 {
		src := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(data))), size)
		if err := b.Update(0, src); err != nil {
			b.Destroy()
			return nil, setupErr("create buffer", err)
		}
	}
	return b, nil
}

func allocateBuffer(device *DeviceState, size uint64, usage hal.BufferUsage, props hal.MemoryProperty, types []hal.MemoryType) (*BufferState, error) {
	if size == 0 {
		return nil, setupErr("create buffer", errors.New("buffer has no contents"))
	}
	dev := device.Device
	buf, err := dev.CreateBuffer(size, usage)
	if err != nil {
		return nil, setupErr("create buffer", err)
	}
	req := dev.BufferRequirements(buf)
	typ, err := FindCompatibleMemoryType(types, req, props)
	if err != nil {
		dev.DestroyBuffer(buf)
		return nil, setupErr("create buffer", err)
	}
	mem, err := dev.AllocateMemory(typ, req.Size)
	if err != nil {
		dev.DestroyBuffer(buf)
		return nil, setupErr("allocate buffer memory", err)
	}
	if err := dev.BindBufferMemory(buf, mem, 0); err != nil {
		dev.DestroyBuffer(buf)
		dev.FreeMemory(mem)
		return nil, setupErr("bind buffer memory", err)
	}
	Logger().Debug("buffer created", "size", size, "memoryType", typ)
	return &BufferState{device: device, Buffer: buf, Memory: mem, size: size, Usage: usage}, nil
}

// Update copies data into the buffer at offset. The buffer memory must be
// host visible.
func (b *BufferState) Update(offset uint64, data []byte) error {
	if offset+uint64(len(data)) > b.size {
		return errors.Errorf("update of %d bytes at %d overflows buffer of %d bytes", len(data), offset, b.size)
	}
	dst, err := b.device.Device.MapMemory(b.Memory, offset, uint64(len(data)))
	if err != nil {
		return errors.Wrap(err, "map buffer memory")
	}
	copy(dst, data)
	b.device.Device.UnmapMemory(b.Memory)
	return nil
}

// Size returns the buffer size in bytes.
func (b *BufferState) Size() uint64 { return b.size }

// Destroy destroys the buffer, then frees its memory.
func (b *BufferState) Destroy() {
	b.device.Device.DestroyBuffer(b.Buffer)
	b.device.Device.FreeMemory(b.Memory)
}

// RowPitch returns the byte stride between rows of a width texel wide RGBA8
// image in a transfer buffer, rounded up to alignment.
func RowPitch(width uint32, alignment uint64) uint64 {
	if alignment == 0 {
		alignment = 1
	}
	return alignRowPitch(uint64(width), RGBAStride, alignment-1)
}

func alignRowPitch(width, stride, mask uint64) uint64 {
	return (width*stride + mask) &^ mask
}

// UploadSize returns the transfer buffer size for a width x height RGBA8 image.
func UploadSize(width, height uint32, alignment uint64) uint64 {
	return RowPitch(width, alignment) * uint64(height)
}

// CreateBufferForTextureUpload creates a host visible transfer buffer and
// copies the tightly packed RGBA8 pixels into it one row at a time, each
// row starting at a multiple of the adapter's copy pitch alignment.
func CreateBufferForTextureUpload(device *DeviceState, adapter *AdapterState, width, height uint32, pixels []byte) (*BufferState, uint64, error) {
	row := uint64(width) * RGBAStride
	if uint64(len(pixels)) != row*uint64(height) {
		return nil, 0, assetErr("stage texture", errors.Errorf("%d bytes of pixels for a %dx%d RGBA8 image", len(pixels), width, height))
	}
	align := adapter.Limits.OptimalBufferCopyPitchAlignment
	pitch := RowPitch(width, align)
	size := UploadSize(width, height, align)

	b, err := allocateBuffer(device, size, hal.BufferTransferSrc, hal.MemoryHostVisible|hal.MemoryHostCoherent, adapter.MemoryTypes)
	if err != nil {
		return nil, 0, err
	}
	dst, err := device.Device.MapMemory(b.Memory, 0, size)
	if err != nil {
		b.Destroy()
		return nil, 0, setupErr("stage texture", err)
	}
	for y := uint64(0); y < uint64(height); y++ {
		copy(dst[y*pitch:y*pitch+row], pixels[y*row:(y+1)*row])
	}
	device.Device.UnmapMemory(b.Memory)
	return b, pitch, nil
}
