// Package texture decodes image files into tightly packed RGBA8 pixels.
package texture

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrFormat is returned for files no registered decoder understands.
var ErrFormat = errors.New("unknown image format")

// Decoder decodes PNG, JPEG, BMP, TIFF and WebP files.
type Decoder struct {
	// MaxDimension rejects images wider or taller than it when non zero.
	MaxDimension uint32
}

// Decode reads the image at path and returns its size and RGBA8 rows,
// top row first.
func (d Decoder) Decode(path string) (width, height uint32, pix []byte, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, nil, errors.Wrap(err, "decode texture")
	}
	defer f.Close()
	width, height, pix, err = d.DecodeReader(f)
	if err != nil {
		return 0, 0, nil, errors.Wrapf(err, "decode texture %s", path)
	}
	return width, height, pix, nil
}

// DecodeReader is Decode for an already open stream.
func (d Decoder) DecodeReader(r io.Reader) (width, height uint32, pix []byte, err error) {
	img, format, err := image.Decode(r)
	if errors.Is(err, image.ErrFormat) {
		return 0, 0, nil, ErrFormat
	}
	if err != nil {
		return 0, 0, nil, err
	}
	b := img.Bounds()
	if b.Empty() {
		return 0, 0, nil, errors.Errorf("%s image is empty", format)
	}
	w, h := uint32(b.Dx()), uint32(b.Dy())
	if d.MaxDimension > 0 && (w > d.MaxDimension || h > d.MaxDimension) {
		return 0, 0, nil, errors.Errorf("%dx%d %s image exceeds %d texels", w, h, format, d.MaxDimension)
	}
	rgba := ToRGBA(img)
	return w, h, packed(rgba), nil
}

// ToRGBA converts img to non premultiplied RGBA with its origin at 0,0.
func ToRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) && n.Stride == 4*b.Dx() {
		return n
	}
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(out, out.Bounds(), img, b.Min, xdraw.Src)
	return out
}

func packed(img *image.NRGBA) []byte {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if img.Stride == 4*w {
		return img.Pix[:4*w*h]
	}
	out := make([]byte, 0, 4*w*h)
	for y := 0; y < h; y++ {
		out = append(out, img.Pix[y*img.Stride:y*img.Stride+4*w]...)
	}
	return out
}
