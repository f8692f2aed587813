package diagnosis

import (
	"fmt"
	"image"
	"io"

	// decoders registered with image.Decode
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"agronity/agronity-backend/internal/registry"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// InputSize is the square resolution the vision model expects.
const InputSize = 128

// Decode reads a JPEG, PNG, GIF or WebP image.
func Decode(r io.Reader) (image.Image, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if b := img.Bounds(); b.Empty() {
		return nil, fmt.Errorf("empty %s image", format)
	}
	return img, nil
}

// ToTensor resizes img to size x size RGB and scales channels to [0,1].
func ToTensor(img image.Image, size int) registry.Tensor {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	t := registry.Tensor{
		Height:   size,
		Width:    size,
		Channels: 3,
		Data:     make([]float32, size*size*3),
	}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			src := dst.PixOffset(x, y)
			out := (y*size + x) * 3
			for c := 0; c < 3; c++ {
				t.Data[out+c] = float32(dst.Pix[src+c]) / 255
			}
		}
	}
	return t
}
