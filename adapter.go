package corporation

import "github.com/andewx/corporation/hal"

// AdapterState is the physical adapter the renderer runs on, with the
// memory type table and limits queried once at selection.
type AdapterState struct {
	Adapter     hal.Adapter
	Info        hal.AdapterInfo
	MemoryTypes []hal.MemoryType
	Limits      hal.Limits
}

// NewAdapterState selects the first adapter in adapters.
// TODO: rank adapters by type and memory once more than one is common.
func NewAdapterState(adapters []hal.Adapter) (*AdapterState, error) {
	if len(adapters) == 0 {
		return nil, setupErr("select adapter", ErrNoAdapter)
	}
	a := adapters[0]
	s := &AdapterState{
		Adapter:     a,
		Info:        a.Info(),
		MemoryTypes: append([]hal.MemoryType(nil), a.MemoryTypes()...),
		Limits:      a.Limits(),
	}
	Logger().Warn("choosing adapter 0 by default", "available", len(adapters))
	Logger().Info("adapter selected",
		"name", s.Info.Name,
		"type", s.Info.Type.String(),
		"memoryTypes", len(s.MemoryTypes),
		"copyPitchAlignment", s.Limits.OptimalBufferCopyPitchAlignment,
		"maxImageDimension2D", s.Limits.MaxImageDimension2D,
	)
	return s, nil
}
