package main

import (
	"context"
	"testing"

	"github.com/andewx/corporation"
	"github.com/andewx/corporation/hal"
	"github.com/andewx/corporation/hal/haltest"
	"github.com/andewx/corporation/input"
	"github.com/andewx/corporation/mesh"
	"github.com/andewx/corporation/shader"
	"github.com/andewx/corporation/texture"
)

// countdown cancels after its n-th poll.
type countdown struct {
	n    int
	stop context.CancelFunc
}

func (c *countdown) PollEvents() []input.Event {
	c.n--
	if c.n == 0 {
		c.stop()
	}
	return nil
}

func TestInterruptStopsRenderLoop(t *testing.T) {
	usage := corporation.NewUsage("test")
	usage.Strings[corporation.UsageMesh] = "../../resources/models/box/box.obj"
	usage.Strings[corporation.UsageTexture] = "../../resources/textures/diffuse.png"
	cfg, err := corporation.ConfigFromUsage(usage)
	if err != nil {
		t.Fatalf("ConfigFromUsage: %v", err)
	}
	assets, err := corporation.LoadAssets(cfg, mesh.Importer{}, texture.Decoder{})
	if err != nil {
		t.Fatalf("LoadAssets: %v", err)
	}
	if assets.Vertex, err = source("", "quad.vert", shader.QuadVertex, hal.ShaderStageVertex); err != nil {
		t.Fatal(err)
	}
	if assets.Fragment, err = source("", "quad.frag", shader.QuadFragment, hal.ShaderStageFragment); err != nil {
		t.Fatal(err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	events := interruptible{&countdown{n: 3, stop: stop}, ctx.Done()}
	compiler := shader.Compiler{Constants: []shader.Constant{{
		Stage:   hal.ShaderStageVertex,
		ID:      corporation.ScaleConstantID,
		Default: corporation.ScaleConstant,
	}}}
	inst := haltest.New(haltest.DefaultConfig())
	r, err := corporation.NewRenderer(inst, events, compiler, assets, cfg)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	if err := r.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if r.Frames() != 2 {
		t.Fatalf("frames before interrupt\nhave %d\nwant 2", r.Frames())
	}
	r.Destroy()
	if n := inst.Ledger().Live(haltest.KindFence); n != 0 {
		t.Fatalf("live fences after teardown\nhave %d\nwant 0", n)
	}
	if m := inst.Ledger().Misuse(); len(m) > 0 {
		t.Fatalf("handle misuse:\n%v", m)
	}
}

func TestInterruptibleForwardsEvents(t *testing.T) {
	stop := make(chan struct{})
	resize := input.Event{Kind: input.EventResize, Width: 2, Height: 3}
	e := interruptible{fixed{resize}, stop}
	if have := e.PollEvents(); len(have) != 1 || have[0] != resize {
		t.Fatalf("events before stop\nhave %+v\nwant [%+v]", have, resize)
	}
	close(stop)
	have := e.PollEvents()
	if len(have) != 2 || have[1].Kind != input.EventClose {
		t.Fatalf("events after stop\nhave %+v\nwant a trailing close", have)
	}
}

type fixed []input.Event

func (f fixed) PollEvents() []input.Event { return append([]input.Event(nil), f...) }
