package corporation

import (
	"github.com/andewx/corporation/hal"
)

// Uniform is a host visible uniform buffer bound at binding 0 of its own
// descriptor set.
type Uniform struct {
	Buffer *BufferState
	Layout *DescriptorSetLayout
	Set    *DescriptorSet
}

// NewUniform creates a uniform holding data, visible to stages, with its
// set allocated from pool.
func NewUniform(device *DeviceState, adapter *AdapterState, pool *DescriptorPool, stages hal.ShaderStage, data []byte) (*Uniform, error) {
	var u undo
	layout, err := NewDescriptorSetLayout(device, []hal.DescriptorBinding{
		{Binding: 0, Type: hal.DescriptorUniformBuffer, Count: 1, Stages: stages},
	})
	if err != nil {
		return nil, err
	}
	u.push(layout.Destroy)

	buf, err := CreateBuffer(device, data, hal.BufferUniform, hal.MemoryHostVisible|hal.MemoryHostCoherent, adapter.MemoryTypes)
	if err != nil {
		u.run()
		return nil, err
	}
	u.push(buf.Destroy)

	set, err := layout.CreateSet(pool)
	if err != nil {
		u.run()
		return nil, err
	}
	if err := set.Write(hal.DescriptorWrite{
		Binding: 0,
		Type:    hal.DescriptorUniformBuffer,
		Buffer:  buf.Buffer,
		Range:   buf.Size(),
	}); err != nil {
		u.run()
		return nil, err
	}
	return &Uniform{Buffer: buf, Layout: layout, Set: set}, nil
}

// Update overwrites the uniform contents from the start of the buffer.
func (u *Uniform) Update(data []byte) error {
	return u.Buffer.Update(0, data)
}

func (u *Uniform) Destroy() {
	u.Buffer.Destroy()
	u.Layout.Destroy()
}
