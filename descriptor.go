package corporation

import (
	"github.com/andewx/corporation/hal"
	"github.com/pkg/errors"
)

// DescriptorSetLayout is an immutable binding schema.
type DescriptorSetLayout struct {
	device   *DeviceState
	Layout   hal.DescriptorSetLayout
	bindings []hal.DescriptorBinding
}

// NewDescriptorSetLayout creates a layout declaring bindings.
func NewDescriptorSetLayout(device *DeviceState, bindings []hal.DescriptorBinding) (*DescriptorSetLayout, error) {
	for i, b := range bindings {
		for _, o := range bindings[:i] {
			if o.Binding == b.Binding {
				return nil, configErr("create descriptor set layout", errors.Errorf("binding %d declared twice", b.Binding))
			}
		}
	}
	l, err := device.Device.CreateDescriptorSetLayout(bindings)
	if err != nil {
		return nil, setupErr("create descriptor set layout", err)
	}
	return &DescriptorSetLayout{
		device:   device,
		Layout:   l,
		bindings: append([]hal.DescriptorBinding(nil), bindings...),
	}, nil
}

// Bindings returns a copy of the declared bindings.
func (l *DescriptorSetLayout) Bindings() []hal.DescriptorBinding {
	return append([]hal.DescriptorBinding(nil), l.bindings...)
}

func (l *DescriptorSetLayout) binding(n uint32) (hal.DescriptorBinding, bool) {
	for _, b := range l.bindings {
		if b.Binding == n {
			return b, true
		}
	}
	return hal.DescriptorBinding{}, false
}

// CreateSet allocates one descriptor set against the layout from pool.
func (l *DescriptorSetLayout) CreateSet(pool *DescriptorPool) (*DescriptorSet, error) {
	s, err := l.device.Device.AllocateDescriptorSet(pool.Pool, l.Layout)
	if errors.Is(err, hal.ErrExhausted) {
		return nil, setupErr("allocate descriptor set", errors.Wrap(ErrPoolExhausted, err.Error()))
	}
	if err != nil {
		return nil, setupErr("allocate descriptor set", err)
	}
	return &DescriptorSet{layout: l, Set: s}, nil
}

func (l *DescriptorSetLayout) Destroy() {
	l.device.Device.DestroyDescriptorSetLayout(l.Layout)
}

// DescriptorSet is one allocation from a pool. Sets are released with
// their pool.
type DescriptorSet struct {
	layout *DescriptorSetLayout
	Set    hal.DescriptorSet
}

// Write applies writes to the set. Every write must target a binding the
// layout declares, with the declared type and an array offset below the
// declared count; otherwise nothing is written.
func (s *DescriptorSet) Write(writes ...hal.DescriptorWrite) error {
	out := make([]hal.DescriptorWrite, len(writes))
	for i, w := range writes {
		b, ok := s.layout.binding(w.Binding)
		switch {
		case !ok:
			return configErr("write descriptor set", errors.Wrapf(ErrUnknownBinding, "binding %d", w.Binding))
		case b.Type != w.Type:
			return configErr("write descriptor set", errors.Wrapf(ErrUnknownBinding, "binding %d is a %s, not a %s", w.Binding, b.Type, w.Type))
		case w.ArrayOffset >= b.Count:
			return configErr("write descriptor set", errors.Wrapf(ErrUnknownBinding, "binding %d has %d elements, offset %d", w.Binding, b.Count, w.ArrayOffset))
		}
		w.Set = s.Set
		out[i] = w
	}
	s.layout.device.Device.WriteDescriptorSets(out)
	return nil
}

// DescriptorPool is the pool every descriptor set of the renderer is
// allocated from.
type DescriptorPool struct {
	device *DeviceState
	Pool   hal.DescriptorPool
}

// NewDescriptorPool creates a pool sized for the given textures and
// uniforms: one sampled image and one sampler per texture, one uniform
// buffer per uniform and one set each.
func NewDescriptorPool(device *DeviceState, textures, uniforms uint32) (*DescriptorPool, error) {
	var sizes []hal.DescriptorPoolSize
	if textures > 0 {
		sizes = append(sizes,
			hal.DescriptorPoolSize{Type: hal.DescriptorSampledImage, Count: textures},
			hal.DescriptorPoolSize{Type: hal.DescriptorSampler, Count: textures},
		)
	}
	if uniforms > 0 {
		sizes = append(sizes, hal.DescriptorPoolSize{Type: hal.DescriptorUniformBuffer, Count: uniforms})
	}
	p, err := device.Device.CreateDescriptorPool(textures+uniforms, sizes)
	if err != nil {
		return nil, setupErr("create descriptor pool", err)
	}
	return &DescriptorPool{device: device, Pool: p}, nil
}

func (p *DescriptorPool) Destroy() {
	p.device.Device.DestroyDescriptorPool(p.Pool)
}
