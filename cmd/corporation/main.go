// Command corporation opens a window and draws a textured mesh with Vulkan.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/pkg/errors"
	"github.com/xlab/closer"

	"github.com/andewx/corporation"
	"github.com/andewx/corporation/hal"
	"github.com/andewx/corporation/hal/vulkan"
	"github.com/andewx/corporation/input"
	"github.com/andewx/corporation/mesh"
	"github.com/andewx/corporation/shader"
	"github.com/andewx/corporation/texture"
	"github.com/andewx/corporation/window"
)

func init() {
	// GLFW and the presentation engine must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	// closer runs bound funcs on its own goroutine before exiting. Stopping
	// the loop lets the deferred teardown in run finish on this thread first.
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	defer closer.Close()
	closer.Bind(func() {
		corporation.Logger().Info("shutting down")
		stop()
		<-done
	})

	debug := flag.Bool("debug", false, "log debug messages and enable validation layers")
	flag.String("title", "Corporation", "window title")
	flag.Int("width", 640, "window width")
	flag.Int("height", 480, "window height")
	flag.String("mesh", "resources/models/box/box.obj", "Wavefront OBJ mesh to draw")
	flag.String("texture", "resources/textures/diffuse.png", "diffuse texture")
	flag.String("vert", "", "WGSL vertex shader; empty uses the built in one")
	flag.String("frag", "", "WGSL fragment shader; empty uses the built in one")
	flag.Int("frames", 2, "frames in flight when the swapchain reports no image count")
	flag.Float64("fov", 90, "vertical field of view in degrees")
	flag.Parse()

	// Only flags given on the command line override the defaults.
	usage := corporation.NewUsage("Flags")
	usage.Bools[corporation.UsageValidation] = *debug
	flag.Visit(func(f *flag.Flag) {
		g := f.Value.(flag.Getter).Get()
		switch f.Name {
		case "title":
			usage.Strings[corporation.UsageTitle] = g.(string)
		case "mesh":
			usage.Strings[corporation.UsageMesh] = g.(string)
		case "texture":
			usage.Strings[corporation.UsageTexture] = g.(string)
		case "vert":
			usage.Strings[corporation.UsageVertexShader] = g.(string)
		case "frag":
			usage.Strings[corporation.UsageFragmentShader] = g.(string)
		case "width":
			usage.Ints[corporation.UsageWidth] = g.(int)
		case "height":
			usage.Ints[corporation.UsageHeight] = g.(int)
		case "frames":
			usage.Ints[corporation.UsageFramesInFlight] = g.(int)
		case "fov":
			usage.Floats[corporation.UsageFOV] = float32(g.(float64))
		}
	})

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	corporation.SetLogger(logger)

	err := run(ctx, usage, logger)
	close(done)
	if err != nil {
		fmt.Fprintf(os.Stderr, "corporation: %+v\n", err)
		closer.Exit(1)
	}
}

func run(ctx context.Context, usage *corporation.Usage, logger *slog.Logger) error {
	cfg, err := corporation.ConfigFromUsage(usage)
	if err != nil {
		return err
	}

	win, err := window.New(cfg.Title, int(cfg.Width), int(cfg.Height))
	if err != nil {
		return err
	}
	defer win.Destroy()

	inst, err := vulkan.New(vulkan.Config{
		AppName:    cfg.Title,
		Extensions: win.RequiredExtensions(),
		Validation: cfg.Validation,
		Surface:    win.CreateSurface,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	defer inst.Destroy()

	assets, err := corporation.LoadAssets(cfg, mesh.Importer{}, texture.Decoder{})
	if err != nil {
		return err
	}
	if assets.Vertex, err = source(cfg.VertexShaderPath, "quad.vert", shader.QuadVertex, hal.ShaderStageVertex); err != nil {
		return err
	}
	if assets.Fragment, err = source(cfg.FragmentShaderPath, "quad.frag", shader.QuadFragment, hal.ShaderStageFragment); err != nil {
		return err
	}

	compiler := shader.Compiler{
		Debug: cfg.Validation,
		Constants: []shader.Constant{{
			Stage:   hal.ShaderStageVertex,
			ID:      corporation.ScaleConstantID,
			Default: corporation.ScaleConstant,
		}},
	}
	r, err := corporation.NewRenderer(inst, interruptible{win, ctx.Done()}, compiler, assets, cfg)
	if err != nil {
		return err
	}
	defer r.Destroy()
	return errors.Wrap(r.Run(), "render loop")
}

// interruptible adds a close event once stop is closed.
type interruptible struct {
	corporation.EventSource
	stop <-chan struct{}
}

func (e interruptible) PollEvents() []input.Event {
	events := e.EventSource.PollEvents()
	select {
	case <-e.stop:
		events = append(events, input.Event{Kind: input.EventClose})
	default:
	}
	return events
}

func source(path, name, fallback string, stage hal.ShaderStage) (corporation.ShaderSource, error) {
	src, err := shader.Load(path, fallback)
	if err != nil {
		return corporation.ShaderSource{}, err
	}
	return corporation.ShaderSource{
		Name:   shader.Name(path, name),
		Stage:  stage,
		Source: src,
	}, nil
}
