// Package camera derives the model view projection matrix the vertex
// stage reads from its uniform.
package camera

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	lin "github.com/xlab/linmath"
)

// MatrixSize is the size in bytes of MVPBytes.
const MatrixSize = 64

// vulkanClip maps GL clip space onto Vulkan's: Y points down and depth
// runs over [0, 1].
var vulkanClip = lin.Mat4x4{
	{1, 0, 0, 0},
	{0, -1, 0, 0},
	{0, 0, 0.5, 0},
	{0, 0, 0.5, 1},
}

// Camera is a perspective camera. The zero value is not usable; use New.
type Camera struct {
	position   mgl32.Vec3
	target     mgl32.Vec3
	up         mgl32.Vec3
	aiming     bool
	view       lin.Mat4x4
	projection lin.Mat4x4
}

// New returns a camera at the origin with identity view and projection.
func New() *Camera {
	c := &Camera{up: mgl32.Vec3{0, 1, 0}}
	c.view.Identity()
	c.projection.Identity()
	return c
}

func (c *Camera) Position() mgl32.Vec3 { return c.position }

// SetPosition moves the camera to p, keeping it aimed at the LookAt target.
func (c *Camera) SetPosition(p mgl32.Vec3) {
	c.position = p
	if c.aiming {
		c.updateView()
	}
}

// Move translates the camera by d.
func (c *Camera) Move(d mgl32.Vec3) { c.SetPosition(c.position.Add(d)) }

// LookAt aims the camera at target with the given up direction.
func (c *Camera) LookAt(target, up mgl32.Vec3) {
	c.target, c.up, c.aiming = target, up, true
	c.updateView()
}

func (c *Camera) updateView() {
	eye, center, up := toLin(c.position), toLin(c.target), toLin(c.up)
	c.view.LookAt(&eye, &center, &up)
}

// SetProjection sets a GL style perspective projection for a width x height
// target with a vertical field of view of fovDeg degrees.
func (c *Camera) SetProjection(width, height, fovDeg, near, far float32) {
	c.projection.Perspective(lin.DegreesToRadians(fovDeg), width/height, near, far)
}

// Projection returns the projection matrix, column major.
func (c *Camera) Projection() lin.Mat4x4 { return c.projection }

// View returns the view matrix, column major.
func (c *Camera) View() lin.Mat4x4 { return c.view }

// MVP returns clip * projection * view. The model transform is identity.
func (c *Camera) MVP() lin.Mat4x4 {
	var pv, mvp lin.Mat4x4
	pv.Mult(&c.projection, &c.view)
	mvp.Mult(&vulkanClip, &pv)
	return mvp
}

// MVPBytes returns MVP as 16 little endian float32 values, column major.
func (c *Camera) MVPBytes() []byte {
	m := c.MVP()
	b := make([]byte, 0, MatrixSize)
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			b = binary.LittleEndian.AppendUint32(b, math.Float32bits(m[col][row]))
		}
	}
	return b
}

func toLin(v mgl32.Vec3) lin.Vec3 { return lin.Vec3{v[0], v[1], v[2]} }
