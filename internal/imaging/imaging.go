// Package imaging normalizes downloaded images into the formats the
// output container carries: a canonical PNG for stills, untouched bytes
// for animation-preserving formats, and JPEG kept as-is for covers that
// already are JPEG.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	_ "image/gif" // decoder registration

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // decoder registration
)

// maxCoverDim caps cover dimensions; site covers occasionally come in
// print resolution and bloat the output for no reader benefit.
const maxCoverDim = 1600

// EncodingError reports that image bytes could not be decoded or
// re-encoded. It is retryable: truncated downloads are a common cause.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string { return fmt.Sprintf("image encoding: %v", e.Err) }
func (e *EncodingError) Unwrap() error { return e.Err }

// ToPNG re-encodes image bytes as canonical PNG. GIF sources are not
// routed here: their filenames are pre-assigned .gif and the raw bytes
// pass through unchanged so animations survive.
func ToPNG(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &EncodingError{Err: err}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, &EncodingError{Err: err}
	}
	return buf.Bytes(), nil
}

// NormalizeCover prepares cover bytes: JPEG input is kept as JPEG,
// everything else becomes PNG, and oversized covers are scaled down to
// fit maxCoverDim.
func NormalizeCover(data []byte) (out []byte, ext string, err error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", &EncodingError{Err: err}
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxCoverDim || bounds.Dy() > maxCoverDim {
		img = scaleToFit(img, maxCoverDim, maxCoverDim)
	} else if format == "jpeg" {
		return data, ".jpg", nil
	}

	var buf bytes.Buffer
	if format == "jpeg" {
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
			return nil, "", &EncodingError{Err: err}
		}
		return buf.Bytes(), ".jpg", nil
	}
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", &EncodingError{Err: err}
	}
	return buf.Bytes(), ".png", nil
}

// scaleToFit downscales img to fit within maxWidth x maxHeight,
// preserving aspect ratio, using Catmull-Rom for quality.
func scaleToFit(img image.Image, maxWidth, maxHeight int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	ratio := float64(width) / float64(height)
	if float64(maxWidth)/float64(maxHeight) > ratio {
		width = int(float64(maxHeight) * ratio)
		height = maxHeight
	} else {
		height = int(float64(maxWidth) / ratio)
		width = maxWidth
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
