// Package mesh holds the node tree a mesh file is imported into.
package mesh

import "github.com/go-gl/mathgl/mgl32"

// Vertex is the layout of one vertex in the vertex buffer: a position
// followed by a texture coordinate, 20 bytes with no padding.
type Vertex struct {
	Position mgl32.Vec3
	TexCoord mgl32.Vec2
}

// Face is one polygon, as indices into the vertices of its mesh.
type Face struct {
	Indices []uint32
}

type Mesh struct {
	Name     string
	Vertices []Vertex
	Faces    []Face
}

// Indices flattens the faces into one index list.
func (m *Mesh) Indices() []uint32 {
	var out []uint32
	for _, f := range m.Faces {
		out = append(out, f.Indices...)
	}
	return out
}

// Node is a node of an imported scene.
type Node struct {
	Name      string
	Transform mgl32.Mat4
	Meshes    []*Mesh
	Children  []*Node
}

func NewNode(name string) *Node {
	return &Node{Name: name, Transform: mgl32.Ident4()}
}

func (n *Node) AddChild(c *Node) { n.Children = append(n.Children, c) }
func (n *Node) AddMesh(m *Mesh)  { n.Meshes = append(n.Meshes, m) }

// Walk calls fn for n and every node below it, depth first.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Flatten concatenates every mesh of the tree into one vertex list and
// one index list, rebasing indices onto the combined vertices. Node
// transforms are not applied.
func Flatten(root *Node) ([]Vertex, []uint32) {
	var (
		vertices []Vertex
		indices  []uint32
	)
	root.Walk(func(n *Node) {
		for _, m := range n.Meshes {
			base := uint32(len(vertices))
			vertices = append(vertices, m.Vertices...)
			for _, i := range m.Indices() {
				indices = append(indices, base+i)
			}
		}
	})
	return vertices, indices
}
