// Package window opens a GLFW window without a client API and turns its
// callbacks into input events.
//
// GLFW must be used from the main thread. Callers lock the OS thread before
// calling New and drive PollEvents from the same goroutine.
package window

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/corporation/input"
)

var keys = map[glfw.Key]input.Key{
	glfw.KeyUp:     input.KeyUp,
	glfw.KeyDown:   input.KeyDown,
	glfw.KeyLeft:   input.KeyLeft,
	glfw.KeyRight:  input.KeyRight,
	glfw.KeyEscape: input.KeyEscape,
}

// Window is a resizable GLFW window.
type Window struct {
	win     *glfw.Window
	pending []input.Event
}

// New initializes GLFW and the Vulkan loader it exposes, then opens a
// window of the given size.
func New(title string, width, height int) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, errors.Wrap(err, "glfw init")
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return nil, errors.New("glfw: vulkan is not supported")
	}
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		glfw.Terminate()
		return nil, errors.Wrap(err, "vulkan loader init")
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.Visible, glfw.True)
	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, errors.Wrap(err, "create window")
	}

	w := &Window{win: win}
	win.SetCloseCallback(func(*glfw.Window) {
		w.pending = append(w.pending, input.Event{Kind: input.EventClose})
	})
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.pending = append(w.pending, input.Event{
			Kind:   input.EventResize,
			Width:  uint32(max(width, 0)),
			Height: uint32(max(height, 0)),
		})
	})
	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		k, ok := keys[key]
		if !ok || action == glfw.Repeat {
			return
		}
		w.pending = append(w.pending, input.Event{Kind: input.EventKey, Key: k, Pressed: action == glfw.Press})
	})
	return w, nil
}

// PollEvents processes pending window system events and returns the ones
// that arrived since the previous call.
func (w *Window) PollEvents() []input.Event {
	glfw.PollEvents()
	return w.drain()
}

func (w *Window) drain() []input.Event {
	events := w.pending
	w.pending = nil
	return events
}

// RequiredExtensions returns the instance extensions presenting to this
// window needs.
func (w *Window) RequiredExtensions() []string {
	return w.win.GetRequiredInstanceExtensions()
}

// CreateSurface creates the Vulkan surface of the window.
func (w *Window) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	ptr, err := w.win.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, errors.Wrap(err, "create window surface")
	}
	return vk.SurfaceFromPointer(ptr), nil
}

// Extent returns the framebuffer size in pixels.
func (w *Window) Extent() (width, height uint32) {
	fw, fh := w.win.GetFramebufferSize()
	return uint32(max(fw, 0)), uint32(max(fh, 0))
}

// Destroy closes the window and terminates GLFW.
func (w *Window) Destroy() {
	if w.win == nil {
		return
	}
	w.win.Destroy()
	w.win = nil
	glfw.Terminate()
}
