package ai

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const jpegQuality = 85

// ResizeImage returns a JPEG whose longest side is at most maxSize, keeping
// the aspect ratio. A JPEG that already fits is returned unchanged; other
// formats are re-encoded so every model receives JPEG.
func ResizeImage(data []byte, maxSize int) ([]byte, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if format == "jpeg" && cfg.Width <= maxSize && cfg.Height <= maxSize {
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	newWidth, newHeight := fitWithin(bounds.Dx(), bounds.Dy(), maxSize)

	var out image.Image = img
	if newWidth != bounds.Dx() || newHeight != bounds.Dy() {
		resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		out = resized
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode resized image: %w", err)
	}
	return buf.Bytes(), nil
}

// fitWithin scales width x height down so neither side exceeds maxSize.
func fitWithin(width, height, maxSize int) (int, int) {
	if maxSize <= 0 || (width <= maxSize && height <= maxSize) {
		return width, height
	}
	if width > height {
		return maxSize, max(1, int(float64(height)*float64(maxSize)/float64(width)))
	}
	return max(1, int(float64(width)*float64(maxSize)/float64(height))), maxSize
}
