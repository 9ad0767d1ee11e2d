package stimulus

import (
	"fmt"
	"image"
	_ "image/gif"  // GIF decoder.
	_ "image/jpeg" // JPEG decoder.
	_ "image/png"  // PNG decoder.
	"os"

	"golang.org/x/image/draw"
)

// DefaultThumbnailSize is the square edge of decoded thumbnails in pixels.
const DefaultThumbnailSize = 100

// Resizer decodes images and scales them to a Size x Size square.
type Resizer struct {
	Size int
}

// NewResizer returns a Resizer for the given edge length.
func NewResizer(size int) *Resizer {
	if size <= 0 {
		size = DefaultThumbnailSize
	}
	return &Resizer{Size: size}
}

// Load implements ThumbnailLoader.
func (r *Resizer) Load(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only image.
			_ = cerr
		}
	}()
	src, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return Scale(src, r.Size, r.Size), nil
}

// Scale resizes src to width x height, ignoring aspect ratio.
func Scale(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
