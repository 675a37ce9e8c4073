// Package pipeline re-encodes images into metadata-free payloads.
// Removal is a side effect of full re-rasterization: pixels are decoded,
// optionally downscaled, drawn onto a fresh raster, and encoded into a
// container that carries no metadata by construction. Nothing is deleted
// field by field.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"time"

	"github.com/disintegration/imaging"

	_ "golang.org/x/image/webp"

	"scrub/internal/normalize"
	"scrub/pkg/imgutil"
)

var (
	// ErrInvalidImage means the pixel data could not be decoded.
	ErrInvalidImage = errors.New("image could not be decoded")
	// ErrTimeout means re-encoding exceeded its time budget.
	ErrTimeout = errors.New("re-encoding timed out")
	// ErrEncodeFailure means the output encoding failed.
	ErrEncodeFailure = errors.New("image could not be encoded")
)

const (
	// MaxDimension caps either side of the output raster. Larger photos
	// (48MP phone captures) are downscaled before encode to keep peak
	// memory bounded on constrained devices.
	MaxDimension = 4096

	// JPEGQuality is the fixed quality of the lossy output path.
	JPEGQuality = 92

	// DefaultTimeout is the hard per-file re-encoding budget.
	DefaultTimeout = 10 * time.Second
)

// Timeout bounds a single Reencode call. Tests shrink it to exercise
// the cancellation path without waiting out the full budget.
var Timeout = DefaultTimeout

// Reencode produces a metadata-free payload for f, completing or failing
// within Timeout. PNG input stays PNG (lossless); everything else is
// encoded as JPEG at the fixed quality.
func Reencode(ctx context.Context, f imgutil.SourceFile) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)

	go func() {
		data, err := reencode(f)
		done <- result{data, err}
	}()

	select {
	case res := <-done:
		return res.data, res.err
	case <-ctx.Done():
		// The worker goroutine still drains into the buffered channel
		// and its intermediates are collected; the caller only ever
		// sees the timeout.
		return nil, ErrTimeout
	}
}

func reencode(f imgutil.SourceFile) ([]byte, error) {
	if normalize.IsLegacy(f.Name, f.DeclaredType) {
		normalized, err := normalize.Normalize(f)
		if err != nil {
			return nil, err
		}
		f = normalized
	}

	src, format, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width > MaxDimension || height > MaxDimension {
		width, height = FitDimensions(width, height)
		src = imaging.Resize(src, width, height, imaging.Lanczos)
	}

	// Clone re-draws the raster into a fresh buffer; the encoders below
	// write only pixel data, so the output is clean by construction.
	fresh := imaging.Clone(src)

	var buf bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&buf, fresh)
	default:
		err = jpeg.Encode(&buf, fresh, &jpeg.Options{Quality: JPEGQuality})
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeFailure, err)
	}

	return buf.Bytes(), nil
}

// FitDimensions scales (width, height) so the longer side equals
// MaxDimension, preserving aspect ratio. Inputs already within bounds
// are returned unchanged.
func FitDimensions(width, height int) (int, int) {
	if width <= MaxDimension && height <= MaxDimension {
		return width, height
	}
	if width >= height {
		scaled := int(float64(height)*float64(MaxDimension)/float64(width) + 0.5)
		if scaled < 1 {
			scaled = 1
		}
		return MaxDimension, scaled
	}
	scaled := int(float64(width)*float64(MaxDimension)/float64(height) + 0.5)
	if scaled < 1 {
		scaled = 1
	}
	return scaled, MaxDimension
}
