package corporation

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/andewx/corporation/camera"
	"github.com/andewx/corporation/hal"
	"github.com/andewx/corporation/input"
	"github.com/andewx/corporation/mesh"
)

// EventSource is the window the renderer draws into.
type EventSource interface {
	// PollEvents returns the events that arrived since the last call
	// without blocking.
	PollEvents() []input.Event
}

// ImageDecoder decodes an image file into tightly packed RGBA8 rows.
type ImageDecoder interface {
	Decode(path string) (width, height uint32, pix []byte, err error)
}

// MeshImporter loads a mesh file into a node tree.
type MeshImporter interface {
	Import(path string) (*mesh.Node, error)
}

// Assets are the inputs of a renderer, loaded before any GPU state exists.
type Assets struct {
	Scene    *mesh.Node
	Textures []Pixels
	Vertex   ShaderSource
	Fragment ShaderSource
	// Uniforms are extra fragment stage uniforms, bound after the camera.
	Uniforms [][]byte
}

// LoadAssets imports the mesh and decodes the texture named by cfg. The
// texture is required: the built in shaders sample it from set 0.
// Shader sources are left for the caller to fill in.
func LoadAssets(cfg RendererConfig, importer MeshImporter, decoder ImageDecoder) (*Assets, error) {
	scene, err := importer.Import(cfg.MeshPath)
	if err != nil {
		return nil, assetErr("load mesh", err)
	}
	if cfg.TexturePath == "" {
		return nil, assetErr("load texture", ErrNoTexture)
	}
	w, h, pix, err := decoder.Decode(cfg.TexturePath)
	if err != nil {
		return nil, assetErr("load texture", err)
	}
	return &Assets{Scene: scene, Textures: []Pixels{{Width: w, Height: h, RGBA: pix}}}, nil
}

// FrameState is the step of the frame loop the renderer is in.
type FrameState int

const (
	FrameIdle FrameState = iota
	FrameAcquireImage
	FrameRecordCommands
	FrameSubmit
	FramePresent
	FrameRecreateSwapchain
)

func (s FrameState) String() string {
	switch s {
	case FrameIdle:
		return "Idle"
	case FrameAcquireImage:
		return "AcquireImage"
	case FrameRecordCommands:
		return "RecordCommands"
	case FrameSubmit:
		return "Submit"
	case FramePresent:
		return "Present"
	case FrameRecreateSwapchain:
		return "RecreateSwapchain"
	}
	return "FrameState(?)"
}

// RendererState owns every GPU object of the renderer and runs the frame loop.
type RendererState struct {
	cfg      RendererConfig
	events   EventSource
	compiler ShaderCompiler
	vertex   ShaderSource
	fragment ShaderSource

	surface hal.Surface
	adapter *AdapterState
	device  *DeviceState

	uploadPool     hal.CommandPool
	vertexBuffer   *BufferState
	indexBuffer    *BufferState
	vertexCount    uint32
	indexCount     uint32
	descriptorPool *DescriptorPool
	textureLayout  *DescriptorSetLayout
	textures       []*TextureImageState
	camera         *camera.Camera
	cameraUniform  *Uniform
	uniforms       []*Uniform

	// Recreated as a unit when the swapchain goes out of date.
	swapchain    *SwapchainState
	renderPass   *RenderPassState
	framebuffers *FramebufferState
	pipeline     *PipelineState
	viewport     hal.Viewport
	scissor      hal.Rect2D

	input     *input.State
	state     FrameState
	recreate  bool
	extent    hal.Extent2D
	frames    uint64
	lastFrame time.Time
	now       func() time.Time
}

// NewRenderer builds the renderer on the first adapter of instance. The
// surface is created from instance and destroyed with the renderer; the
// instance itself stays owned by the caller.
func NewRenderer(instance hal.Instance, events EventSource, compiler ShaderCompiler, assets *Assets, cfg RendererConfig) (*RendererState, error) {
	r := &RendererState{
		cfg:      cfg,
		events:   events,
		compiler: compiler,
		vertex:   assets.Vertex,
		fragment: assets.Fragment,
		input:    input.NewState(),
		extent:   hal.Extent2D{Width: cfg.Width, Height: cfg.Height},
		now:      time.Now,
	}
	var u undo
	fail := func(err error) (*RendererState, error) {
		u.run()
		return nil, err
	}

	adapters, err := instance.Adapters()
	if err != nil {
		return fail(setupErr("enumerate adapters", err))
	}
	if r.adapter, err = NewAdapterState(adapters); err != nil {
		return fail(err)
	}
	if r.surface, err = instance.CreateSurface(); err != nil {
		return fail(setupErr("create surface", err))
	}
	u.push(r.surface.Destroy)
	if r.device, err = OpenDevice(r.adapter, r.surface); err != nil {
		return fail(err)
	}
	u.push(r.device.Destroy)

	if err := r.createGeometry(assets.Scene, &u); err != nil {
		return fail(err)
	}
	if err := r.createBindings(assets, &u); err != nil {
		return fail(err)
	}
	u.push(func() {
		r.destroyChain()
		if r.swapchain != nil {
			r.swapchain.Destroy()
		}
	})
	if err := r.createChain(); err != nil {
		return fail(err)
	}
	r.lastFrame = r.now()
	return r, nil
}

func (r *RendererState) createGeometry(scene *mesh.Node, u *undo) error {
	if scene == nil {
		return assetErr("load mesh", errors.New("no scene"))
	}
	vertices, indices := mesh.Flatten(scene)
	if len(vertices) == 0 || len(indices) == 0 {
		return assetErr("load mesh", errors.Errorf("scene %q has no geometry", scene.Name))
	}
	if len(indices)%3 != 0 {
		return assetErr("load mesh", errors.Errorf("%d indices do not form triangles", len(indices)))
	}
	var err error
	host := hal.MemoryHostVisible | hal.MemoryHostCoherent
	if r.vertexBuffer, err = CreateBuffer(r.device, vertices, hal.BufferVertex, host, r.adapter.MemoryTypes); err != nil {
		return errors.Wrap(err, "vertex buffer")
	}
	u.push(r.vertexBuffer.Destroy)
	if r.indexBuffer, err = CreateBuffer(r.device, indices, hal.BufferIndex, host, r.adapter.MemoryTypes); err != nil {
		return errors.Wrap(err, "index buffer")
	}
	u.push(r.indexBuffer.Destroy)
	r.vertexCount, r.indexCount = uint32(len(vertices)), uint32(len(indices))
	Logger().Info("geometry loaded", "scene", scene.Name, "vertices", r.vertexCount, "indices", r.indexCount)
	return nil
}

func (r *RendererState) createBindings(assets *Assets, u *undo) error {
	if len(assets.Textures) == 0 {
		return assetErr("load texture", ErrNoTexture)
	}
	var err error
	dev := r.device.Device
	if r.uploadPool, err = r.device.CreateCommandPool(); err != nil {
		return err
	}
	u.push(func() { dev.DestroyCommandPool(r.uploadPool) })

	n := uint32(len(assets.Textures))
	if r.descriptorPool, err = NewDescriptorPool(r.device, n, 1+uint32(len(assets.Uniforms))); err != nil {
		return err
	}
	u.push(r.descriptorPool.Destroy)
	if r.textureLayout, err = NewDescriptorSetLayout(r.device, TextureBindings()); err != nil {
		return err
	}
	u.push(r.textureLayout.Destroy)

	for i, pix := range assets.Textures {
		set, err := r.textureLayout.CreateSet(r.descriptorPool)
		if err != nil {
			return err
		}
		t, err := NewTextureImage(r.device, r.adapter, set, r.uploadPool, pix)
		if err != nil {
			return errors.Wrapf(err, "texture %d", i)
		}
		u.push(t.Destroy)
		r.textures = append(r.textures, t)
	}
	for _, t := range r.textures {
		if err := t.WaitForTransfer(); err != nil {
			return setupErr("upload textures", err)
		}
	}

	r.camera = camera.New()
	p := r.cfg.CameraPosition
	r.camera.SetPosition(mgl32.Vec3{p[0], p[1], p[2]})
	r.camera.LookAt(mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	r.camera.SetProjection(float32(r.cfg.Width), float32(r.cfg.Height), r.cfg.FOV, r.cfg.Near, r.cfg.Far)
	if r.cameraUniform, err = NewUniform(r.device, r.adapter, r.descriptorPool, hal.ShaderStageVertex, r.camera.MVPBytes()); err != nil {
		return errors.Wrap(err, "camera uniform")
	}
	u.push(r.cameraUniform.Destroy)
	for i, data := range assets.Uniforms {
		un, err := NewUniform(r.device, r.adapter, r.descriptorPool, hal.ShaderStageFragment, data)
		if err != nil {
			return errors.Wrapf(err, "uniform %d", i)
		}
		u.push(un.Destroy)
		r.uniforms = append(r.uniforms, un)
	}
	return nil
}

// setLayouts returns the descriptor set layouts in binding order: one per
// texture, the camera, then the extra uniforms.
func (r *RendererState) setLayouts() []*DescriptorSetLayout {
	var out []*DescriptorSetLayout
	for range r.textures {
		out = append(out, r.textureLayout)
	}
	out = append(out, r.cameraUniform.Layout)
	for _, u := range r.uniforms {
		out = append(out, u.Layout)
	}
	return out
}

func (r *RendererState) descriptorSets() []hal.DescriptorSet {
	var out []hal.DescriptorSet
	for _, t := range r.textures {
		out = append(out, t.Set.Set)
	}
	out = append(out, r.cameraUniform.Set.Set)
	for _, u := range r.uniforms {
		out = append(out, u.Set.Set)
	}
	return out
}

// createChain builds the swapchain and everything depending on it. The
// current swapchain, if any, is handed over and destroyed.
func (r *RendererState) createChain() error {
	sc, err := NewSwapchain(r.device, r.adapter, r.surface, r.extent, r.swapchain)
	if err != nil {
		return err
	}
	r.swapchain = sc
	if r.renderPass, err = NewRenderPass(r.device, sc.Format); err != nil {
		return err
	}
	if r.framebuffers, err = NewFramebuffers(r.device, r.renderPass, sc, r.cfg.FramesInFlight); err != nil {
		return err
	}
	if r.pipeline, err = NewPipeline(r.device, r.compiler, r.vertex, r.fragment, r.setLayouts(), r.renderPass); err != nil {
		return err
	}
	r.viewport = hal.Viewport{
		Width:    float32(sc.Extent.Width),
		Height:   float32(sc.Extent.Height),
		MaxDepth: 1,
	}
	r.scissor = hal.Rect2D{Extent: sc.Extent}
	r.extent = sc.Extent
	r.camera.SetProjection(float32(sc.Extent.Width), float32(sc.Extent.Height), r.cfg.FOV, r.cfg.Near, r.cfg.Far)
	return errors.Wrap(r.cameraUniform.Update(r.camera.MVPBytes()), "camera uniform")
}

// destroyChain releases the pipeline, framebuffers and render pass. The
// swapchain is kept for the handover to its successor.
func (r *RendererState) destroyChain() {
	if r.pipeline != nil {
		r.pipeline.Destroy()
		r.pipeline = nil
	}
	if r.framebuffers != nil {
		r.framebuffers.Destroy()
		r.framebuffers = nil
	}
	if r.renderPass != nil {
		r.renderPass.Destroy()
		r.renderPass = nil
	}
}

func (r *RendererState) recreateSwapchain() error {
	r.state = FrameRecreateSwapchain
	if err := r.device.WaitIdle(); err != nil {
		return setupErr("recreate swapchain", err)
	}
	r.destroyChain()
	if err := r.createChain(); err != nil {
		return errors.Wrap(err, "recreate swapchain")
	}
	r.recreate = false
	r.state = FrameIdle
	return nil
}

// Frame runs one iteration of the frame loop. It returns false once the
// window asked to close. Out of date swapchains are recreated here and
// never reported.
func (r *RendererState) Frame() (bool, error) {
	r.state = FrameIdle
	now := r.now()
	delta := now.Sub(r.lastFrame)
	r.lastFrame = now

	for _, e := range r.events.PollEvents() {
		switch e.Kind {
		case input.EventClose:
			return false, nil
		case input.EventResize:
			r.recreate = true
			r.extent = hal.Extent2D{Width: e.Width, Height: e.Height}
		case input.EventKey:
			r.input.Apply(e)
		}
	}
	if err := r.moveCamera(delta); err != nil {
		return false, err
	}

	if r.recreate {
		if r.extent.Width == 0 || r.extent.Height == 0 {
			// minimized
			return true, nil
		}
		if err := r.recreateSwapchain(); err != nil {
			return false, err
		}
	}

	r.state = FrameAcquireImage
	sem := r.framebuffers.NextSemaphoreIndex()
	acquire, present := r.framebuffers.Semaphores(sem)
	index, err := r.swapchain.Acquire(acquire)
	// A suboptimal image is still acquired and its semaphore signaled, so
	// it is drawn and presented before the swapchain is rebuilt.
	suboptimal := errors.Is(err, hal.ErrSuboptimal)
	switch {
	case errors.Is(err, hal.ErrOutOfDate):
		r.dropFrame("acquire image", err)
		return true, nil
	case err != nil && !suboptimal:
		return false, setupErr("acquire image", err)
	}

	slot, err := r.framebuffers.Frame(index)
	if err != nil {
		return false, setupErr("acquire image", err)
	}
	dev := r.device.Device
	if !slot.unsignaled {
		if err := dev.WaitForFence(slot.Fence, hal.Forever); err != nil {
			return false, setupErr("wait for frame", err)
		}
		if err := dev.ResetFence(slot.Fence); err != nil {
			return false, setupErr("reset frame fence", err)
		}
		slot.unsignaled = true
	}
	if err := dev.ResetCommandPool(slot.CommandPool); err != nil {
		return false, setupErr("reset command pool", err)
	}

	r.state = FrameRecordCommands
	if err := r.record(slot); err != nil {
		return false, setupErr("record frame", err)
	}

	r.state = FrameSubmit
	err = r.device.Queue.Submit(hal.Submission{
		CommandBuffers:   []hal.CommandBuffer{slot.CommandBuffer},
		WaitSemaphores:   []hal.Semaphore{acquire},
		WaitStages:       []hal.PipelineStage{hal.PipelineStageColorAttachmentOutput},
		SignalSemaphores: []hal.Semaphore{present},
	}, slot.Fence)
	if err != nil {
		return false, setupErr("submit frame", err)
	}
	slot.unsignaled = false

	r.state = FramePresent
	err = r.device.Queue.Present(r.swapchain.Swapchain, index, present)
	if hal.IsOutOfDate(err) {
		r.dropFrame("present", err)
	} else if err != nil {
		return false, setupErr("present", err)
	}
	if suboptimal {
		r.recreate = true
		Logger().Debug("swapchain suboptimal", "frame", r.frames)
	}
	r.state = FrameIdle
	r.frames++
	return true, nil
}

func (r *RendererState) dropFrame(op string, err error) {
	r.recreate = true
	r.state = FrameIdle
	Logger().Warn("swapchain out of date", "err", &Error{Kind: KindRecoverable, Op: op, Err: err}, "frame", r.frames)
}

func (r *RendererState) record(slot *FrameSlot) error {
	enc := r.device.Device.Encoder(slot.CommandBuffer)
	if err := enc.Begin(false); err != nil {
		return err
	}
	enc.SetViewport(r.viewport)
	enc.SetScissor(r.scissor)
	enc.BindGraphicsPipeline(r.pipeline.Pipeline)
	enc.BindVertexBuffers(0, []hal.Buffer{r.vertexBuffer.Buffer}, []uint64{0})
	enc.BindIndexBuffer(r.indexBuffer.Buffer, 0, hal.IndexUint32)
	enc.BindGraphicsDescriptorSets(r.pipeline.Layout, 0, r.descriptorSets())
	enc.BeginRenderPass(r.renderPass.RenderPass, slot.Framebuffer, r.scissor, r.cfg.ClearColor)
	enc.DrawIndexed(r.indexCount, 1, 0, 0, 0)
	enc.EndRenderPass()
	return enc.End()
}

// moveCamera moves the camera along z for Up/Down and along x for
// Left/Right at 1/Δms units per frame and uploads the new matrix.
func (r *RendererState) moveCamera(delta time.Duration) error {
	ms := float32(delta.Milliseconds())
	if ms < 1 {
		ms = 1
	}
	speed := 1 / ms
	var d mgl32.Vec3
	switch {
	case r.input.IsKeyDown(input.KeyUp):
		d[2] = speed
	case r.input.IsKeyDown(input.KeyDown):
		d[2] = -speed
	}
	switch {
	case r.input.IsKeyDown(input.KeyLeft):
		d[0] = -speed
	case r.input.IsKeyDown(input.KeyRight):
		d[0] = speed
	}
	if d.Len() == 0 {
		return nil
	}
	r.camera.Move(d)
	return errors.Wrap(r.cameraUniform.Update(r.camera.MVPBytes()), "camera uniform")
}

// Run calls Frame until the window closes or a frame fails.
func (r *RendererState) Run() error {
	for {
		ok, err := r.Frame()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
}

// Destroy waits for the device to go idle and releases everything in
// reverse creation order, the device and surface last.
func (r *RendererState) Destroy() {
	if err := r.device.WaitIdle(); err != nil {
		Logger().Error("renderer teardown", "err", err)
	}
	r.destroyChain()
	if r.swapchain != nil {
		r.swapchain.Destroy()
		r.swapchain = nil
	}
	for i := len(r.uniforms) - 1; i >= 0; i-- {
		r.uniforms[i].Destroy()
	}
	r.cameraUniform.Destroy()
	for i := len(r.textures) - 1; i >= 0; i-- {
		r.textures[i].Destroy()
	}
	r.textureLayout.Destroy()
	r.descriptorPool.Destroy()
	r.device.Device.DestroyCommandPool(r.uploadPool)
	r.indexBuffer.Destroy()
	r.vertexBuffer.Destroy()
	r.device.Destroy()
	r.surface.Destroy()
	Logger().Info("renderer destroyed", "frames", r.frames)
}

func (r *RendererState) State() FrameState               { return r.state }
func (r *RendererState) Frames() uint64                  { return r.frames }
func (r *RendererState) Device() *DeviceState            { return r.device }
func (r *RendererState) Adapter() *AdapterState          { return r.adapter }
func (r *RendererState) Swapchain() *SwapchainState      { return r.swapchain }
func (r *RendererState) RenderPass() *RenderPassState    { return r.renderPass }
func (r *RendererState) Framebuffers() *FramebufferState { return r.framebuffers }
func (r *RendererState) Pipeline() *PipelineState        { return r.pipeline }
func (r *RendererState) Viewport() hal.Viewport          { return r.viewport }
func (r *RendererState) Camera() *camera.Camera          { return r.camera }
func (r *RendererState) CameraUniform() *Uniform         { return r.cameraUniform }
func (r *RendererState) Textures() []*TextureImageState  { return r.textures }
func (r *RendererState) VertexBuffer() *BufferState      { return r.vertexBuffer }
func (r *RendererState) IndexBuffer() *BufferState       { return r.indexBuffer }
func (r *RendererState) VertexCount() uint32             { return r.vertexCount }
func (r *RendererState) IndexCount() uint32              { return r.indexCount }
