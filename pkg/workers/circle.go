package workers

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"github.com/getmockd/scriptd/pkg/response"
)

// Circle draws a filled circle as a PNG image.
type Circle struct {
	// Size is the image edge in pixels; zero means 200.
	Size int
}

var (
	circleFill       = color.RGBA{R: 0xE0, G: 0x40, B: 0x40, A: 0xFF}
	circleBackground = color.RGBA{A: 0x00}
)

func (w *Circle) ProcessRequest(ctx *response.Context) error {
	size := w.Size
	if size <= 0 {
		size = 200
	}

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	c := float64(size-1) / 2
	r2 := c * c
	for y := range size {
		for x := range size {
			dx, dy := float64(x)-c, float64(y)-c
			if dx*dx+dy*dy <= r2 {
				img.SetRGBA(x, y, circleFill)
			} else {
				img.SetRGBA(x, y, circleBackground)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return err
	}
	if err := ctx.SetMimeType("image/png"); err != nil {
		return err
	}
	if err := ctx.SetContentLength(int64(buf.Len())); err != nil {
		return err
	}
	_, err := ctx.Write(buf.Bytes())
	return err
}
