package texture

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "tex.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDecodePNG(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(2, 1, color.NRGBA{B: 255, A: 128})
	path := writePNG(t, img)

	w, h, pix, err := Decoder{}.Decode(path)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if w != 3 || h != 2 {
		t.Fatalf("size\nhave %dx%d\nwant 3x2", w, h)
	}
	if len(pix) != 3*2*4 {
		t.Fatalf("len\nhave %d\nwant %d", len(pix), 3*2*4)
	}
	if have, want := pix[0:4], []byte{255, 0, 0, 255}; !bytes.Equal(have, want) {
		t.Fatalf("pixel 0,0\nhave %v\nwant %v", have, want)
	}
	off := (1*3 + 2) * 4
	if have, want := pix[off:off+4], []byte{0, 0, 255, 128}; !bytes.Equal(have, want) {
		t.Fatalf("pixel 2,1\nhave %v\nwant %v", have, want)
	}
}

func TestDecodeConvertsGray(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	img.SetGray(1, 1, color.Gray{Y: 200})
	path := writePNG(t, img)

	_, _, pix, err := Decoder{}.Decode(path)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if have, want := pix[12:16], []byte{200, 200, 200, 255}; !bytes.Equal(have, want) {
		t.Fatalf("pixel 1,1\nhave %v\nwant %v", have, want)
	}
}

func TestDecodeErrors(t *testing.T) {
	dir := t.TempDir()
	junk := filepath.Join(dir, "junk.png")
	if err := os.WriteFile(junk, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, _, err := (Decoder{}).Decode(filepath.Join(dir, "missing.png")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing file\nhave %v\nwant %v", err, os.ErrNotExist)
	}
	if _, _, _, err := (Decoder{}).Decode(junk); !errors.Is(err, ErrFormat) {
		t.Fatalf("junk file\nhave %v\nwant %v", err, ErrFormat)
	}

	path := writePNG(t, image.NewNRGBA(image.Rect(0, 0, 8, 8)))
	if _, _, _, err := (Decoder{MaxDimension: 4}).Decode(path); err == nil {
		t.Fatal("oversized image decoded")
	}
}

func TestDecodeBundledTexture(t *testing.T) {
	w, h, pix, err := Decoder{}.Decode("../resources/textures/diffuse.png")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if int(w*h*4) != len(pix) {
		t.Fatalf("len\nhave %d\nwant %d", len(pix), w*h*4)
	}
}
