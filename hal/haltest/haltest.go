// Package haltest provides a software implementation of hal that records
// every call instead of talking to a GPU.
//
// GPU work completes as soon as it is submitted: a fence passed to Submit is
// signaled before Submit returns. Every created object is tracked in a
// ledger so tests can assert on creation counts, destruction order and
// double destroys.
package haltest

import (
	"github.com/andewx/corporation/hal"
	"github.com/pkg/errors"
)

// Config describes the adapter and surface a test Instance exposes.
type Config struct {
	Info          hal.AdapterInfo
	Limits        hal.Limits
	MemoryTypes   []hal.MemoryType
	QueueFamilies []hal.QueueFamily
	// PresentFamilies lists the families that can present to the surface.
	// Nil means every family can.
	PresentFamilies []uint32
	Capabilities    hal.SurfaceCapabilities
	// Formats are the surface formats. Nil means no constraint.
	Formats []hal.Format
	// NoBackbuffer makes swapchains report no images, like backends that
	// render into a framebuffer owned by the window system.
	NoBackbuffer bool
	// NoAdapter makes Adapters return an empty list.
	NoAdapter bool
}

// DefaultConfig returns a single discrete adapter with a device local and a
// host visible memory type, one graphics queue family, a 640x480 surface and
// a 256 byte copy pitch alignment.
func DefaultConfig() Config {
	return Config{
		Info: hal.AdapterInfo{Name: "haltest", Type: hal.DeviceDiscrete},
		Limits: hal.Limits{
			MaxImageDimension2D:             16384,
			MaxBoundDescriptorSets:          8,
			MaxPushConstantsSize:            128,
			OptimalBufferCopyPitchAlignment: 256,
			MinUniformBufferOffsetAlignment: 256,
			NonCoherentAtomSize:             64,
		},
		MemoryTypes: []hal.MemoryType{
			{Properties: hal.MemoryDeviceLocal, HeapIndex: 0},
			{Properties: hal.MemoryHostVisible | hal.MemoryHostCoherent, HeapIndex: 1},
		},
		QueueFamilies: []hal.QueueFamily{
			{Index: 0, Capabilities: hal.QueueGraphics | hal.QueueCompute | hal.QueueTransfer, Count: 1},
		},
		Capabilities: hal.SurfaceCapabilities{
			MinImageCount: 2,
			MaxImageCount: 3,
			CurrentExtent: hal.Extent2D{Width: 640, Height: 480},
			MinExtent:     hal.Extent2D{Width: 1, Height: 1},
			MaxExtent:     hal.Extent2D{Width: 4096, Height: 4096},
		},
		Formats: []hal.Format{hal.FormatBGRA8Unorm, hal.FormatBGRA8Srgb},
	}
}

// Instance is a hal.Instance backed by a Ledger.
type Instance struct {
	cfg     Config
	ledger  *Ledger
	adapter *Adapter
	surface *Surface
}

// New returns an Instance exposing one adapter described by cfg.
func New(cfg Config) *Instance {
	inst := &Instance{cfg: cfg, ledger: newLedger()}
	inst.adapter = &Adapter{inst: inst}
	return inst
}

// Ledger returns the record of every object and call made through inst.
func (inst *Instance) Ledger() *Ledger { return inst.ledger }

// Resize changes the current extent the surface reports.
func (inst *Instance) Resize(width, height uint32) {
	inst.cfg.Capabilities.CurrentExtent = hal.Extent2D{Width: width, Height: height}
}

// Device returns the device opened from the adapter, or nil.
func (inst *Instance) Device() *Device { return inst.adapter.device }

func (inst *Instance) Adapters() ([]hal.Adapter, error) {
	inst.ledger.call("enumerate_adapters")
	if inst.cfg.NoAdapter {
		return nil, nil
	}
	return []hal.Adapter{inst.adapter}, nil
}

func (inst *Instance) CreateSurface() (hal.Surface, error) {
	if inst.surface != nil {
		return nil, errors.New("haltest: surface already created")
	}
	inst.surface = &Surface{inst: inst}
	return inst.surface, nil
}

func (inst *Instance) Destroy() {
	inst.ledger.call("destroy_instance")
}

// Adapter is the single adapter of an Instance.
type Adapter struct {
	inst   *Instance
	device *Device
}

func (a *Adapter) Info() hal.AdapterInfo            { return a.inst.cfg.Info }
func (a *Adapter) Limits() hal.Limits               { return a.inst.cfg.Limits }
func (a *Adapter) MemoryTypes() []hal.MemoryType    { return a.inst.cfg.MemoryTypes }
func (a *Adapter) QueueFamilies() []hal.QueueFamily { return a.inst.cfg.QueueFamilies }

func (a *Adapter) Open(family uint32) (hal.Device, error) {
	if int(family) >= len(a.inst.cfg.QueueFamilies) {
		return nil, errors.Errorf("haltest: queue family %d out of range", family)
	}
	a.device = newDevice(a.inst, family)
	a.inst.ledger.call("open_device")
	return a.device, nil
}

// Surface is the surface of an Instance.
type Surface struct {
	inst      *Instance
	destroyed bool
}

func (s *Surface) SupportsQueueFamily(a hal.Adapter, family uint32) bool {
	if s.inst.cfg.PresentFamilies == nil {
		return true
	}
	for _, f := range s.inst.cfg.PresentFamilies {
		if f == family {
			return true
		}
	}
	return false
}

func (s *Surface) Capabilities(a hal.Adapter) (hal.SurfaceCapabilities, error) {
	return s.inst.cfg.Capabilities, nil
}

func (s *Surface) Formats(a hal.Adapter) ([]hal.Format, error) {
	return s.inst.cfg.Formats, nil
}

func (s *Surface) Destroy() {
	s.destroyed = true
	s.inst.ledger.call("destroy_surface")
}
