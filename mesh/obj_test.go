package mesh

import (
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

const boxPath = "../resources/models/box/box.obj"

func TestImportBox(t *testing.T) {
	root, err := Importer{}.Import(boxPath)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if root.Name != "box.obj" {
		t.Fatalf("root name\nhave %q\nwant %q", root.Name, "box.obj")
	}
	if root.Transform != mgl32.Ident4() {
		t.Fatalf("root transform\nhave %v\nwant identity", root.Transform)
	}
	if len(root.Children) != 1 {
		t.Fatalf("children\nhave %d\nwant 1", len(root.Children))
	}
	node := root.Children[0]
	if node.Name != "TestBoxModel" {
		t.Fatalf("node name\nhave %q\nwant %q", node.Name, "TestBoxModel")
	}
	if node.Transform != mgl32.Ident4() {
		t.Fatalf("node transform\nhave %v\nwant identity", node.Transform)
	}
	if len(node.Meshes) != 1 {
		t.Fatalf("meshes\nhave %d\nwant 1", len(node.Meshes))
	}
	m := node.Meshes[0]
	if len(m.Vertices) != 24 {
		t.Fatalf("vertices\nhave %d\nwant 24", len(m.Vertices))
	}
	idx := m.Indices()
	if len(idx) != 36 {
		t.Fatalf("indices\nhave %d\nwant 36", len(idx))
	}
	for _, i := range idx {
		if int(i) >= len(m.Vertices) {
			t.Fatalf("index %d out of %d vertices", i, len(m.Vertices))
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		vertices int
		indices  []uint32
	}{
		{
			name:     "triangle",
			src:      "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n",
			vertices: 3,
			indices:  []uint32{0, 1, 2},
		},
		{
			name:     "quad fan",
			src:      "v 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nf 1 2 3 4\n",
			vertices: 4,
			indices:  []uint32{0, 1, 2, 0, 2, 3},
		},
		{
			name:     "negative indices",
			src:      "v 0 0 0\nv 1 0 0\nv 0 1 0\nf -3 -2 -1\n",
			vertices: 3,
			indices:  []uint32{0, 1, 2},
		},
		{
			name:     "shared corners",
			src:      "v 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nvt 0 0\nf 1/1 2/1 3/1\nf 1/1 3/1 4/1\n",
			vertices: 4,
			indices:  []uint32{0, 1, 2, 0, 2, 3},
		},
		{
			name:     "normals split nothing without texcoords",
			src:      "v 0 0 0\nv 1 0 0\nv 0 1 0\nvn 0 0 1\nf 1//1 2//1 3//1\n",
			vertices: 3,
			indices:  []uint32{0, 1, 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := Parse(strings.NewReader(tt.src), "x.obj")
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			vs, idx := Flatten(root)
			if len(vs) != tt.vertices {
				t.Fatalf("vertices\nhave %d\nwant %d", len(vs), tt.vertices)
			}
			if len(idx) != len(tt.indices) {
				t.Fatalf("indices\nhave %v\nwant %v", idx, tt.indices)
			}
			for i := range idx {
				if idx[i] != tt.indices[i] {
					t.Fatalf("indices\nhave %v\nwant %v", idx, tt.indices)
				}
			}
		})
	}
}

func TestParseTexCoord(t *testing.T) {
	root, err := Parse(strings.NewReader("v 0 0 0\nv 1 0 0\nv 0 1 0\nvt 0.25 0.75\nf 1/1 2/1 3/1\n"), "x.obj")
	if err != nil {
		t.Fatal(err)
	}
	vs, _ := Flatten(root)
	if have, want := vs[0].TexCoord, (mgl32.Vec2{0.25, 0.75}); have != want {
		t.Fatalf("texcoord\nhave %v\nwant %v", have, want)
	}
}

func TestFlattenRebasesIndices(t *testing.T) {
	src := "o a\nv 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\no b\nv 0 0 1\nv 1 0 1\nv 0 1 1\nf 4 5 6\n"
	root, err := Parse(strings.NewReader(src), "two.obj")
	if err != nil {
		t.Fatal(err)
	}
	if len(root.Children) != 2 {
		t.Fatalf("children\nhave %d\nwant 2", len(root.Children))
	}
	vs, idx := Flatten(root)
	want := []uint32{0, 1, 2, 3, 4, 5}
	if len(vs) != 6 || len(idx) != len(want) {
		t.Fatalf("have %d vertices %v indices\nwant 6 vertices %v", len(vs), idx, want)
	}
	for i := range want {
		if idx[i] != want[i] {
			t.Fatalf("indices\nhave %v\nwant %v", idx, want)
		}
	}
	if vs[3].Position.Z() != 1 {
		t.Fatalf("second mesh position z\nhave %v\nwant 1", vs[3].Position.Z())
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"short vertex", "v 1 2\n"},
		{"bad number", "v 1 x 3\n"},
		{"two vertex face", "v 0 0 0\nv 1 0 0\nf 1 2\n"},
		{"index out of range", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 4\n"},
		{"missing texcoord", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1/1 2/1 3/1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.src), "bad.obj")
			if !errors.Is(err, ErrFormat) {
				t.Fatalf("error\nhave %v\nwant %v", err, ErrFormat)
			}
		})
	}
}

func TestImportMissingFile(t *testing.T) {
	if _, err := (Importer{}).Import("does/not/exist.obj"); err == nil {
		t.Fatal("Import of missing file succeeded")
	}
}
