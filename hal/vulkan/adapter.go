package vulkan

import (
	"slices"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/corporation/hal"
)

// Adapter is a physical device.
type Adapter struct {
	inst     *Instance
	gpu      vk.PhysicalDevice
	props    vk.PhysicalDeviceProperties
	memProps vk.PhysicalDeviceMemoryProperties
	families []hal.QueueFamily
	memTypes []hal.MemoryType
}

func newAdapter(inst *Instance, gpu vk.PhysicalDevice) *Adapter {
	a := &Adapter{inst: inst, gpu: gpu}
	vk.GetPhysicalDeviceProperties(gpu, &a.props)
	a.props.Deref()
	a.props.Limits.Deref()
	vk.GetPhysicalDeviceMemoryProperties(gpu, &a.memProps)
	a.memProps.Deref()
	for i := uint32(0); i < a.memProps.MemoryTypeCount; i++ {
		t := a.memProps.MemoryTypes[i]
		t.Deref()
		a.memTypes = append(a.memTypes, hal.MemoryType{
			Properties: halMemoryProperty(t.PropertyFlags),
			HeapIndex:  t.HeapIndex,
		})
	}

	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, nil)
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, props)
	for i := uint32(0); i < count; i++ {
		props[i].Deref()
		a.families = append(a.families, hal.QueueFamily{
			Index:        i,
			Capabilities: halQueueCapability(props[i].QueueFlags),
			Count:        props[i].QueueCount,
		})
	}
	return a
}

// Handle returns the native physical device.
func (a *Adapter) Handle() vk.PhysicalDevice { return a.gpu }

func (a *Adapter) Info() hal.AdapterInfo {
	return hal.AdapterInfo{
		Name:   vk.ToString(a.props.DeviceName[:]),
		Vendor: a.props.VendorID,
		Device: a.props.DeviceID,
		Type:   halDeviceType(a.props.DeviceType),
	}
}

func (a *Adapter) Limits() hal.Limits {
	l := a.props.Limits
	return hal.Limits{
		MaxImageDimension2D:             l.MaxImageDimension2D,
		MaxBoundDescriptorSets:          l.MaxBoundDescriptorSets,
		MaxPushConstantsSize:            l.MaxPushConstantsSize,
		OptimalBufferCopyPitchAlignment: uint64(l.OptimalBufferCopyRowPitchAlignment),
		MinUniformBufferOffsetAlignment: uint64(l.MinUniformBufferOffsetAlignment),
		NonCoherentAtomSize:             uint64(l.NonCoherentAtomSize),
	}
}

func (a *Adapter) MemoryTypes() []hal.MemoryType    { return a.memTypes }
func (a *Adapter) QueueFamilies() []hal.QueueFamily { return a.families }

// Open creates a logical device with one queue from family and the
// swapchain extension enabled.
func (a *Adapter) Open(family uint32) (hal.Device, error) {
	if int(family) >= len(a.families) {
		return nil, errors.Errorf("queue family %d out of range", family)
	}
	actual, err := DeviceExtensions(a.gpu)
	if err != nil {
		return nil, errors.Wrap(err, "enumerate device extensions")
	}
	exts := nameSet{required: []string{swapchainExt}, wanted: []string{portabilitySubset}, actual: actual}
	if ok, missing := exts.HasRequired(); !ok {
		return nil, errors.Wrapf(hal.ErrNotSupported, "missing device extensions %v", missing)
	}
	enabled := exts.Enabled()

	var device vk.Device
	ret := vk.CreateDevice(a.gpu, &vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos: []vk.DeviceQueueCreateInfo{{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}},
		EnabledExtensionCount:   uint32(len(enabled)),
		PpEnabledExtensionNames: safeStrings(enabled),
		EnabledLayerCount:       uint32(len(a.inst.layers)),
		PpEnabledLayerNames:     safeStrings(a.inst.layers),
	}, nil, &device)
	if err := wrap(ret, "create device"); err != nil {
		return nil, err
	}
	a.inst.log.Info("vulkan: device opened", "adapter", a.Info().Name, "family", family, "extensions", enabled)
	return newDevice(a, device, family), nil
}

// Surface is a window surface.
type Surface struct {
	inst    *Instance
	surface vk.Surface
	// colorSpaces remembers the color space each reported format came with.
	colorSpaces map[hal.Format]vk.ColorSpace
}

func physical(a hal.Adapter) (vk.PhysicalDevice, bool) {
	va, ok := a.(*Adapter)
	if !ok {
		return nil, false
	}
	return va.gpu, true
}

func (s *Surface) SupportsQueueFamily(a hal.Adapter, family uint32) bool {
	gpu, ok := physical(a)
	if !ok {
		return false
	}
	var supported vk.Bool32
	ret := vk.GetPhysicalDeviceSurfaceSupport(gpu, family, s.surface, &supported)
	return !isError(ret) && supported.B()
}

func (s *Surface) Capabilities(a hal.Adapter) (hal.SurfaceCapabilities, error) {
	gpu, ok := physical(a)
	if !ok {
		return hal.SurfaceCapabilities{}, errors.New("adapter is not a vulkan adapter")
	}
	var caps vk.SurfaceCapabilities
	ret := vk.GetPhysicalDeviceSurfaceCapabilities(gpu, s.surface, &caps)
	if err := wrap(ret, "surface capabilities"); err != nil {
		return hal.SurfaceCapabilities{}, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return hal.SurfaceCapabilities{
		MinImageCount: caps.MinImageCount,
		MaxImageCount: caps.MaxImageCount,
		CurrentExtent: halExtent(caps.CurrentExtent),
		MinExtent:     halExtent(caps.MinImageExtent),
		MaxExtent:     halExtent(caps.MaxImageExtent),
	}, nil
}

// Formats returns the reported formats hal has a name for. A single
// undefined entry means the surface takes any format and yields nil.
func (s *Surface) Formats(a hal.Adapter) ([]hal.Format, error) {
	gpu, ok := physical(a)
	if !ok {
		return nil, errors.New("adapter is not a vulkan adapter")
	}
	var count uint32
	ret := vk.GetPhysicalDeviceSurfaceFormats(gpu, s.surface, &count, nil)
	if err := wrap(ret, "surface formats"); err != nil {
		return nil, err
	}
	list := make([]vk.SurfaceFormat, count)
	ret = vk.GetPhysicalDeviceSurfaceFormats(gpu, s.surface, &count, list)
	if err := wrap(ret, "surface formats"); err != nil {
		return nil, err
	}
	list = list[:count]
	for i := range list {
		list[i].Deref()
	}
	return surfaceFormats(list, s.colorSpaces)
}

// surfaceFormats names the formats of list once each and records their
// color space. A surface whose formats are all unnamed is not supported.
func surfaceFormats(list []vk.SurfaceFormat, colorSpaces map[hal.Format]vk.ColorSpace) ([]hal.Format, error) {
	if len(list) == 1 && list[0].Format == vk.FormatUndefined {
		return nil, nil
	}
	var out []hal.Format
	for _, sf := range list {
		f := halFormat(sf.Format)
		if f == hal.FormatUndefined || slices.Contains(out, f) {
			continue
		}
		colorSpaces[f] = sf.ColorSpace
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, errors.Wrapf(hal.ErrNotSupported, "none of %d surface formats is usable", len(list))
	}
	return out, nil
}

func (s *Surface) colorSpace(f hal.Format) vk.ColorSpace {
	if cs, ok := s.colorSpaces[f]; ok {
		return cs
	}
	return vk.ColorSpaceSrgbNonlinear
}

func (s *Surface) Destroy() {
	if s.surface != vk.NullSurface {
		vk.DestroySurface(s.inst.instance, s.surface, nil)
		s.surface = vk.NullSurface
	}
}
