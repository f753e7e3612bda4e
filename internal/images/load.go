package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
)

// ErrImageNotFound means the image path is missing or unreadable.
var ErrImageNotFound = errors.New("image not found")

// Image is a decoded input ready for upload to the inference server.
type Image struct {
	Name   string // base name, used as the leaderboard image identifier
	Format string // "jpeg" or "png"
	Width  int
	Height int
	Data   []byte // encoded bytes sent to the server
}

// Load reads and decodes path. When maxSize > 0 and the longest edge
// exceeds it, the image is flattened onto white and scaled down.
func Load(path string, maxSize int) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrImageNotFound, path, err)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	b := img.Bounds()
	out := &Image{
		Name:   filepath.Base(path),
		Format: format,
		Width:  b.Dx(),
		Height: b.Dy(),
		Data:   data,
	}

	if maxSize <= 0 || (out.Width <= maxSize && out.Height <= maxSize) {
		return out, nil
	}

	w, h := fitWithin(out.Width, out.Height, maxSize)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)

	var buf bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&buf, dst)
	default:
		out.Format = "jpeg"
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90})
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", path, err)
	}

	out.Width, out.Height, out.Data = w, h, buf.Bytes()
	return out, nil
}

// fitWithin scales (w, h) so the longest edge equals limit, keeping aspect.
func fitWithin(w, h, limit int) (int, int) {
	if w >= h {
		nh := h * limit / w
		if nh < 1 {
			nh = 1
		}
		return limit, nh
	}
	nw := w * limit / h
	if nw < 1 {
		nw = 1
	}
	return nw, limit
}
