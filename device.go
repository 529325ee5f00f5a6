package corporation

import (
	"github.com/andewx/corporation/hal"
	"github.com/pkg/errors"
)

// DeviceState is the logical device and its queue. It is the single GPU
// context every resource is created from and destroyed through.
type DeviceState struct {
	Device hal.Device
	Queue  hal.Queue
	Family uint32
}

// OpenDevice opens a logical device on the first queue family of adapter
// that supports graphics and can present to surface.
func OpenDevice(adapter *AdapterState, surface hal.Surface) (*DeviceState, error) {
	for _, f := range adapter.Adapter.QueueFamilies() {
		if !f.Supports(hal.QueueGraphics) || !surface.SupportsQueueFamily(adapter.Adapter, f.Index) {
			continue
		}
		dev, err := adapter.Adapter.Open(f.Index)
		if err != nil {
			return nil, setupErr("open device", err)
		}
		Logger().Debug("device opened", "queueFamily", f.Index)
		return &DeviceState{Device: dev, Queue: dev.Queue(), Family: f.Index}, nil
	}
	return nil, setupErr("open device", ErrNoQueueFamily)
}

// CreateCommandPool returns a command pool for the device queue family.
func (d *DeviceState) CreateCommandPool() (hal.CommandPool, error) {
	p, err := d.Device.CreateCommandPool()
	return p, setupErr("create command pool", err)
}

// WaitIdle blocks until every queue of the device is idle.
func (d *DeviceState) WaitIdle() error {
	return errors.Wrap(d.Device.WaitIdle(), "wait for device idle")
}

func (d *DeviceState) Destroy() {
	d.Device.Destroy()
}

// undo collects the release steps of a partially built object. run
// performs them in reverse order.
type undo []func()

func (u *undo) push(f func()) { *u = append(*u, f) }

func (u undo) run() {
	for i := len(u) - 1; i >= 0; i-- {
		u[i]()
	}
}
