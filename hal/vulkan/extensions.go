package vulkan

import vk "github.com/vulkan-go/vulkan"

// InstanceExtensions gets a list of instance extensions available on the platform.
func InstanceExtensions() ([]string, error) {
	return enumerate(func(n *uint32, l []vk.ExtensionProperties) vk.Result {
		return vk.EnumerateInstanceExtensionProperties("", n, l)
	}, extensionName)
}

// DeviceExtensions gets a list of extensions available on the provided physical device.
func DeviceExtensions(gpu vk.PhysicalDevice) ([]string, error) {
	return enumerate(func(n *uint32, l []vk.ExtensionProperties) vk.Result {
		return vk.EnumerateDeviceExtensionProperties(gpu, "", n, l)
	}, extensionName)
}

// ValidationLayers gets a list of validation layers available on the platform.
func ValidationLayers() ([]string, error) {
	return enumerate(vk.EnumerateInstanceLayerProperties, func(p *vk.LayerProperties) string {
		p.Deref()
		return vk.ToString(p.LayerName[:])
	})
}

func extensionName(p *vk.ExtensionProperties) string {
	p.Deref()
	return vk.ToString(p.ExtensionName[:])
}

// enumerate runs a two call query, first for the count and then for the
// list, and names every returned element.
func enumerate[T any](query func(*uint32, []T) vk.Result, name func(*T) string) (names []string, err error) {
	defer checkErr(&err)

	var count uint32
	orPanic(newError(query(&count, nil)))
	list := make([]T, count)
	orPanic(newError(query(&count, list)))
	for i := range list[:count] {
		names = append(names, name(&list[i]))
	}
	return names, nil
}

// nameSet diffs the names a caller wants and requires against what the
// platform actually has.
type nameSet struct {
	wanted   []string
	required []string
	actual   []string
}

// missing returns the names of want that are not available.
func (s nameSet) missing(want []string) []string {
	var out []string
	for _, w := range want {
		if !contains(s.actual, w) {
			out = append(out, w)
		}
	}
	return out
}

// HasRequired reports whether every required name is available.
func (s nameSet) HasRequired() (bool, []string) {
	m := s.missing(s.required)
	return len(m) == 0, m
}

// HasWanted reports whether every wanted name is available.
func (s nameSet) HasWanted() (bool, []string) {
	m := s.missing(s.wanted)
	return len(m) == 0, m
}

// Enabled returns the required names followed by the available wanted
// names, without duplicates.
func (s nameSet) Enabled() []string {
	out := append([]string(nil), s.required...)
	for _, w := range s.wanted {
		if contains(s.actual, w) && !contains(out, w) {
			out = append(out, w)
		}
	}
	return out
}

func contains(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}

func safeString(s string) string {
	if len(s) == 0 || s[len(s)-1] != 0 {
		return s + "\x00"
	}
	return s
}

func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i := range list {
		out[i] = safeString(list[i])
	}
	return out
}
