package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: uint8(x), A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestToPNG(t *testing.T) {
	out, err := ToPNG(encodeJPEG(t, 10, 10))
	if err != nil {
		t.Fatalf("ToPNG() error = %v", err)
	}
	img, format, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if format != "png" {
		t.Errorf("output format = %q, want png", format)
	}
	if img.Bounds().Dx() != 10 || img.Bounds().Dy() != 10 {
		t.Errorf("output bounds = %v", img.Bounds())
	}
}

func TestToPNG_GarbageInput(t *testing.T) {
	_, err := ToPNG([]byte("definitely not an image"))
	if err == nil {
		t.Fatal("ToPNG() expected error for garbage input")
	}
	var ee *EncodingError
	if !errors.As(err, &ee) {
		t.Errorf("error = %T, want *EncodingError", err)
	}
}

func TestNormalizeCover_SmallJPEGPassthrough(t *testing.T) {
	in := encodeJPEG(t, 100, 150)
	out, ext, err := NormalizeCover(in)
	if err != nil {
		t.Fatalf("NormalizeCover() error = %v", err)
	}
	if ext != ".jpg" {
		t.Errorf("ext = %q, want .jpg", ext)
	}
	if !bytes.Equal(out, in) {
		t.Error("small JPEG cover should pass through unmodified")
	}
}

func TestNormalizeCover_OversizedScalesDown(t *testing.T) {
	in := encodePNG(t, 3200, 1600)
	out, ext, err := NormalizeCover(in)
	if err != nil {
		t.Fatalf("NormalizeCover() error = %v", err)
	}
	if ext != ".png" {
		t.Errorf("ext = %q, want .png", ext)
	}
	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if img.Bounds().Dx() > maxCoverDim || img.Bounds().Dy() > maxCoverDim {
		t.Errorf("output bounds %v exceed %d", img.Bounds(), maxCoverDim)
	}
	// Aspect ratio survives: 2:1 input stays 2:1.
	if img.Bounds().Dx() != 2*img.Bounds().Dy() {
		t.Errorf("aspect ratio changed: %v", img.Bounds())
	}
}

func TestNormalizeCover_PNGStaysPNG(t *testing.T) {
	out, ext, err := NormalizeCover(encodePNG(t, 50, 50))
	if err != nil {
		t.Fatalf("NormalizeCover() error = %v", err)
	}
	if ext != ".png" {
		t.Errorf("ext = %q, want .png", ext)
	}
	if _, format, _ := image.Decode(bytes.NewReader(out)); format != "png" {
		t.Errorf("output format = %q, want png", format)
	}
}
