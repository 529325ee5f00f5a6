// Package vulkan implements hal over github.com/vulkan-go/vulkan.
//
// The package does not load the Vulkan loader itself. Callers set the
// instance proc address (for example from GLFW) and call vk.Init before New.
package vulkan

import (
	"log/slog"
	"runtime"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/corporation/hal"
)

const (
	validationLayer    = "VK_LAYER_KHRONOS_validation"
	debugReportExt     = "VK_EXT_debug_report"
	portabilityEnumExt = "VK_KHR_portability_enumeration"
	swapchainExt       = "VK_KHR_swapchain"
	portabilitySubset  = "VK_KHR_portability_subset"

	// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
	createEnumeratePortability = vk.InstanceCreateFlags(0x00000001)
)

// SurfaceFunc creates the window surface for instance.
type SurfaceFunc func(instance vk.Instance) (vk.Surface, error)

// Config configures New.
type Config struct {
	AppName string
	// Extensions are the instance extensions the window system requires.
	Extensions []string
	// Validation enables the Khronos validation layer and routes its
	// reports to Logger.
	Validation bool
	Surface    SurfaceFunc
	// Logger receives debug reports and lifecycle messages. Nil discards them.
	Logger *slog.Logger
}

// Instance is a Vulkan instance and the window surface factory it was
// created with.
type Instance struct {
	cfg      Config
	log      *slog.Logger
	instance vk.Instance
	debug    vk.DebugReportCallback
	layers   []string
}

// New creates a Vulkan instance.
func New(cfg Config) (*Instance, error) {
	inst := &Instance{cfg: cfg, log: cfg.Logger}
	if inst.log == nil {
		inst.log = slog.New(slog.DiscardHandler)
	}

	actual, err := InstanceExtensions()
	if err != nil {
		return nil, errors.Wrap(err, "enumerate instance extensions")
	}
	exts := nameSet{required: cfg.Extensions, actual: actual}
	var flags vk.InstanceCreateFlags
	if runtime.GOOS == "darwin" {
		exts.wanted = append(exts.wanted, portabilityEnumExt)
		flags = createEnumeratePortability
	}
	if cfg.Validation {
		exts.wanted = append(exts.wanted, debugReportExt)
	}
	if ok, missing := exts.HasRequired(); !ok {
		return nil, errors.Wrapf(hal.ErrNotSupported, "missing instance extensions %v", missing)
	}
	if ok, missing := exts.HasWanted(); !ok {
		inst.log.Warn("vulkan: optional instance extensions unavailable", "missing", missing)
	}
	enabled := exts.Enabled()

	if cfg.Validation {
		available, err := ValidationLayers()
		if err != nil {
			return nil, errors.Wrap(err, "enumerate validation layers")
		}
		layers := nameSet{wanted: []string{validationLayer}, actual: available}
		if ok, missing := layers.HasWanted(); !ok {
			inst.log.Warn("vulkan: validation layers unavailable", "missing", missing)
		}
		inst.layers = layers.Enabled()
	}
	inst.log.Info("vulkan: creating instance", "extensions", enabled, "layers", inst.layers)

	var instance vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		Flags: flags,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
			ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
			PApplicationName:   safeString(cfg.AppName),
			PEngineName:        safeString("corporation"),
		},
		EnabledExtensionCount:   uint32(len(enabled)),
		PpEnabledExtensionNames: safeStrings(enabled),
		EnabledLayerCount:       uint32(len(inst.layers)),
		PpEnabledLayerNames:     safeStrings(inst.layers),
	}, nil, &instance)
	if err := wrap(ret, "create instance"); err != nil {
		return nil, err
	}
	inst.instance = instance
	if err := vk.InitInstance(instance); err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, errors.Wrap(err, "init instance")
	}

	if cfg.Validation && contains(enabled, debugReportExt) {
		ret := vk.CreateDebugReportCallback(instance, &vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: inst.report,
		}, nil, &inst.debug)
		if err := wrap(ret, "create debug report callback"); err != nil {
			vk.DestroyInstance(instance, nil)
			return nil, err
		}
		inst.log.Debug("vulkan: debug report callback enabled")
	}
	return inst, nil
}

// Handle returns the native instance.
func (inst *Instance) Handle() vk.Instance { return inst.instance }

func (inst *Instance) Adapters() ([]hal.Adapter, error) {
	var count uint32
	ret := vk.EnumeratePhysicalDevices(inst.instance, &count, nil)
	if err := wrap(ret, "enumerate physical devices"); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	gpus := make([]vk.PhysicalDevice, count)
	ret = vk.EnumeratePhysicalDevices(inst.instance, &count, gpus)
	if err := wrap(ret, "enumerate physical devices"); err != nil {
		return nil, err
	}
	adapters := make([]hal.Adapter, 0, count)
	for _, gpu := range gpus[:count] {
		adapters = append(adapters, newAdapter(inst, gpu))
	}
	return adapters, nil
}

func (inst *Instance) CreateSurface() (hal.Surface, error) {
	if inst.cfg.Surface == nil {
		return nil, errors.Wrap(hal.ErrNotSupported, "no surface function configured")
	}
	s, err := inst.cfg.Surface(inst.instance)
	if err != nil {
		return nil, errors.Wrap(err, "create surface")
	}
	if s == vk.NullSurface {
		return nil, errors.New("create surface: window returned a null surface")
	}
	return &Surface{inst: inst, surface: s, colorSpaces: make(map[hal.Format]vk.ColorSpace)}, nil
}

// Destroy releases the debug callback and the instance. Devices and
// surfaces must already be destroyed.
func (inst *Instance) Destroy() {
	if inst.debug != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(inst.instance, inst.debug, nil)
		inst.debug = vk.NullDebugReportCallback
	}
	if inst.instance != nil {
		vk.DestroyInstance(inst.instance, nil)
		inst.instance = nil
	}
}

func (inst *Instance) report(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	attrs := []any{"layer", pLayerPrefix, "code", messageCode}
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		inst.log.Error(pMessage, attrs...)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		inst.log.Warn(pMessage, attrs...)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		inst.log.Warn(pMessage, append(attrs, "performance", true)...)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		inst.log.Debug(pMessage, attrs...)
	default:
		inst.log.Info(pMessage, attrs...)
	}
	return vk.Bool32(vk.False)
}
