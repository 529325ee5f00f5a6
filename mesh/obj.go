package mesh

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// ErrFormat is returned for malformed mesh files.
var ErrFormat = errors.New("malformed mesh file")

// Importer reads Wavefront OBJ files.
type Importer struct{}

// Import loads the file at path. The root node is named after the file;
// every o or g statement starts a child node holding one mesh.
func (Importer) Import(path string) (*Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "import mesh")
	}
	defer f.Close()
	root, err := Parse(f, filepath.Base(path))
	return root, errors.Wrapf(err, "import mesh %s", path)
}

type corner struct{ v, vt, vn int }

type objParser struct {
	root      *Node
	positions []mgl32.Vec3
	texcoords []mgl32.Vec2
	normals   int

	node   *Node
	mesh   *Mesh
	unique map[corner]uint32
}

// Parse reads OBJ text from r into a node tree rooted at a node called name.
// Only positions, the first texture coordinate channel and faces are kept.
// Polygons are triangulated as fans.
func Parse(r io.Reader, name string) (*Node, error) {
	p := &objParser{root: NewNode(name)}
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if err := p.statement(fields); err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return p.root, nil
}

func (p *objParser) statement(f []string) error {
	switch f[0] {
	case "v":
		v, err := floats(f[1:], 3)
		if err != nil {
			return err
		}
		p.positions = append(p.positions, mgl32.Vec3{v[0], v[1], v[2]})
	case "vt":
		v, err := floats(f[1:], 2)
		if err != nil {
			return err
		}
		p.texcoords = append(p.texcoords, mgl32.Vec2{v[0], v[1]})
	case "vn":
		p.normals++
	case "o", "g":
		name := "default"
		if len(f) > 1 {
			name = strings.Join(f[1:], " ")
		}
		p.begin(name)
	case "f":
		return p.face(f[1:])
	}
	return nil
}

func (p *objParser) begin(name string) {
	p.node = NewNode(name)
	p.mesh = &Mesh{Name: name}
	p.node.AddMesh(p.mesh)
	p.root.AddChild(p.node)
	p.unique = make(map[corner]uint32)
}

func (p *objParser) face(refs []string) error {
	if len(refs) < 3 {
		return errors.Wrapf(ErrFormat, "face with %d vertices", len(refs))
	}
	if p.mesh == nil {
		p.begin("default")
	}
	idx := make([]uint32, len(refs))
	for i, ref := range refs {
		c, err := p.corner(ref)
		if err != nil {
			return err
		}
		n, ok := p.unique[c]
		if !ok {
			v := Vertex{Position: p.positions[c.v]}
			if c.vt >= 0 {
				v.TexCoord = p.texcoords[c.vt]
			}
			n = uint32(len(p.mesh.Vertices))
			p.mesh.Vertices = append(p.mesh.Vertices, v)
			p.unique[c] = n
		}
		idx[i] = n
	}
	for i := 1; i+1 < len(idx); i++ {
		p.mesh.Faces = append(p.mesh.Faces, Face{Indices: []uint32{idx[0], idx[i], idx[i+1]}})
	}
	return nil
}

// corner parses v, v/vt, v//vn or v/vt/vn into zero based indices, -1
// standing for an absent element.
func (p *objParser) corner(ref string) (corner, error) {
	parts := strings.Split(ref, "/")
	if len(parts) > 3 {
		return corner{}, errors.Wrapf(ErrFormat, "face vertex %q", ref)
	}
	c := corner{v: -1, vt: -1, vn: -1}
	var err error
	if c.v, err = resolve(parts[0], len(p.positions)); err != nil || c.v < 0 {
		return corner{}, errors.Wrapf(ErrFormat, "position of face vertex %q", ref)
	}
	if len(parts) > 1 && parts[1] != "" {
		if c.vt, err = resolve(parts[1], len(p.texcoords)); err != nil || c.vt < 0 {
			return corner{}, errors.Wrapf(ErrFormat, "texture coordinate of face vertex %q", ref)
		}
	}
	if len(parts) > 2 && parts[2] != "" {
		if c.vn, err = resolve(parts[2], p.normals); err != nil || c.vn < 0 {
			return corner{}, errors.Wrapf(ErrFormat, "normal of face vertex %q", ref)
		}
	}
	return c, nil
}

// resolve turns a one based or negative (relative) OBJ index into a zero
// based one, or -1 when it is out of range.
func resolve(s string, n int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return -1, err
	}
	switch {
	case i > 0 && i <= n:
		return i - 1, nil
	case i < 0 && -i <= n:
		return n + i, nil
	}
	return -1, nil
}

func floats(s []string, n int) ([]float32, error) {
	if len(s) < n {
		return nil, errors.Wrapf(ErrFormat, "want %d components, have %d", n, len(s))
	}
	out := make([]float32, n)
	for i := range out {
		v, err := strconv.ParseFloat(s[i], 32)
		if err != nil {
			return nil, errors.Wrap(ErrFormat, err.Error())
		}
		out[i] = float32(v)
	}
	return out, nil
}
