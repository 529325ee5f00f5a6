package window

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/andewx/corporation/input"
)

func TestKeyMapping(t *testing.T) {
	tests := []struct {
		key  glfw.Key
		want input.Key
		ok   bool
	}{
		{glfw.KeyUp, input.KeyUp, true},
		{glfw.KeyDown, input.KeyDown, true},
		{glfw.KeyLeft, input.KeyLeft, true},
		{glfw.KeyRight, input.KeyRight, true},
		{glfw.KeyEscape, input.KeyEscape, true},
		{glfw.KeyA, input.KeyUnknown, false},
	}
	for i, tt := range tests {
		have, ok := keys[tt.key]
		if ok != tt.ok || have != tt.want {
			t.Fatalf("test %d: key %v mapping mismatch\nhave %v %v\nwant %v %v", i, tt.key, have, ok, tt.want, tt.ok)
		}
	}
}

func TestDrainEmptiesQueue(t *testing.T) {
	w := &Window{pending: []input.Event{
		{Kind: input.EventResize, Width: 800, Height: 600},
		{Kind: input.EventKey, Key: input.KeyUp, Pressed: true},
	}}
	events := w.drain()
	if len(events) != 2 || events[0].Width != 800 || events[1].Key != input.KeyUp {
		t.Fatalf("drained events mismatch\nhave %+v", events)
	}
	if events := w.drain(); events != nil {
		t.Fatalf("second drain returned %+v", events)
	}
}
