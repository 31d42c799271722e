package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"strconv"

	// source formats accepted for thumbnails
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	_ "golang.org/x/image/webp"
)

const (
	MinThumbDimension     = 32
	MaxThumbDimension     = 1024
	DefaultThumbDimension = 256

	// MaxThumbSourcePixels bounds the decoded size of a source image
	MaxThumbSourcePixels = 50_000_000

	thumbQuality = 70
	// maxThumbSource bounds how much of an object is read for decoding
	maxThumbSource = 64 << 20
)

// ClampDimension parses a requested thumbnail edge. Missing, unparsable or
// zero values fall back to def; the result is clamped to [32, 1024].
func ClampDimension(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n == 0 {
		n = def
	}
	return min(max(n, MinThumbDimension), MaxThumbDimension)
}

// Thumbnailer renders JPEG previews of stored images
type Thumbnailer struct {
	store *ObjectStore
}

func NewThumbnailer(store *ObjectStore) *Thumbnailer {
	return &Thumbnailer{store: store}
}

// Thumbnail returns a width x height JPEG of the image stored at key.
// The image is scaled to cover the box and centre-cropped.
func (t *Thumbnailer) Thumbnail(ctx context.Context, key string, width, height int) ([]byte, error) {
	if err := t.checkSourceSize(ctx, key); err != nil {
		return nil, err
	}

	rc, _, err := t.store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	src, _, err := image.Decode(io.LimitReader(rc, maxThumbSource))
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", key, err)
	}

	thumb, err := CoverFit(src, width, height)
	if err != nil {
		return nil, fmt.Errorf("resize %q: %w", key, err)
	}

	var buf bytes.Buffer
	if err := imgio.JPEGEncoder(thumbQuality)(&buf, thumb); err != nil {
		return nil, fmt.Errorf("encode %q: %w", key, err)
	}
	return buf.Bytes(), nil
}

// checkSourceSize reads only the image header. A small file can declare a
// huge canvas, and decoding allocates the whole canvas up front.
func (t *Thumbnailer) checkSourceSize(ctx context.Context, key string) error {
	rc, _, err := t.store.Open(ctx, key)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	cfg, _, err := image.DecodeConfig(io.LimitReader(rc, maxThumbSource))
	if err != nil {
		return fmt.Errorf("decode %q: %w", key, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxThumbSourcePixels {
		return fmt.Errorf("%w: %q is %dx%d, over the %d pixel limit", ErrInvalidInput, key, cfg.Width, cfg.Height, MaxThumbSourcePixels)
	}
	return nil
}

// CoverFit scales src so it covers width x height and crops the overflow
// evenly from both sides.
func CoverFit(src image.Image, width, height int) (image.Image, error) {
	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, errors.New("empty image")
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid size %dx%d", width, height)
	}

	scale := math.Max(float64(width)/float64(b.Dx()), float64(height)/float64(b.Dy()))
	rw := max(width, int(math.Ceil(float64(b.Dx())*scale)))
	rh := max(height, int(math.Ceil(float64(b.Dy())*scale)))

	resized := transform.Resize(src, rw, rh, transform.Lanczos)
	x0 := (rw - width) / 2
	y0 := (rh - height) / 2
	return transform.Crop(resized, image.Rect(x0, y0, x0+width, y0+height)), nil
}
