package corporation

import (
	"testing"
)

func TestUsageLinkedLookup(t *testing.T) {
	base := NewUsage("base")
	base.Strings["a"] = "base"
	base.Ints["n"] = 1
	base.Bools["b"] = true
	base.Floats["f"] = 2

	top := NewUsage("top")
	top.Strings["a"] = "top"
	top.Linked = base

	if v, _ := top.String("a"); v != "top" {
		t.Fatalf("String\nhave %q\nwant %q", v, "top")
	}
	if v, ok := top.Int("n"); !ok || v != 1 {
		t.Fatalf("Int\nhave %d %v\nwant 1 true", v, ok)
	}
	if v, ok := top.Bool("b"); !ok || !v {
		t.Fatalf("Bool\nhave %v %v\nwant true true", v, ok)
	}
	if v, ok := top.Float("f"); !ok || v != 2 {
		t.Fatalf("Float\nhave %v %v\nwant 2 true", v, ok)
	}
	if _, ok := top.String("missing"); ok {
		t.Fatal("missing key found")
	}
}

func TestConfigFromUsageDefaults(t *testing.T) {
	cfg, err := ConfigFromUsage(NewUsage("empty"))
	if err != nil {
		t.Fatalf("ConfigFromUsage: %v", err)
	}
	if cfg.Width != 640 || cfg.Height != 480 || cfg.FramesInFlight != 2 {
		t.Fatalf("extent %dx%d, frames %d", cfg.Width, cfg.Height, cfg.FramesInFlight)
	}
	if cfg.MeshPath != "resources/models/box/box.obj" || cfg.TexturePath != "resources/textures/diffuse.png" {
		t.Fatalf("paths %q %q", cfg.MeshPath, cfg.TexturePath)
	}
	if cfg.CameraPosition != [3]float32{0, 5, 15} || cfg.FOV != 90 {
		t.Fatalf("camera %v fov %v", cfg.CameraPosition, cfg.FOV)
	}
	if cfg.ClearColor != DefaultClearColor || cfg.Validation {
		t.Fatalf("clear %v validation %v", cfg.ClearColor, cfg.Validation)
	}
}

func TestConfigFromUsageInvalid(t *testing.T) {
	tests := []struct {
		name string
		set  func(u *Usage)
	}{
		{"zero width", func(u *Usage) { u.Ints[UsageWidth] = 0 }},
		{"negative height", func(u *Usage) { u.Ints[UsageHeight] = -1 }},
		{"no frames", func(u *Usage) { u.Ints[UsageFramesInFlight] = 0 }},
		{"flat fov", func(u *Usage) { u.Floats[UsageFOV] = 180 }},
		{"near behind far", func(u *Usage) { u.Floats[UsageNear] = 200 }},
		{"zero near", func(u *Usage) { u.Floats[UsageNear] = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := NewUsage("bad")
			tt.set(u)
			_, err := ConfigFromUsage(u)
			if k, ok := KindOf(err); !ok || k != KindConfig {
				t.Fatalf("kind\nhave %v (%v)\nwant %v", k, err, KindConfig)
			}
		})
	}
}
