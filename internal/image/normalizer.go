// Package image converts uploaded pictures into size-constrained JPEG
// derivatives for storage and certificate embedding.
package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"path"
	"strings"

	"golang.org/x/image/draw"
)

// ErrDecode is returned when the source cannot be decoded as an image.
// Callers surface it as a user-visible validation failure, not a crash.
var ErrDecode = errors.New("image cannot be decoded")

// Quality is the JPEG quality used for all derivatives.
const Quality = 80

// Variant selects a bounding box for normalization.
type Variant struct {
	Name  string
	MaxPx int
}

var (
	Icon      = Variant{Name: "icon", MaxPx: 64}
	Thumbnail = Variant{Name: "thumbnail", MaxPx: 200}
	Medium    = Variant{Name: "medium", MaxPx: 800}
	Large     = Variant{Name: "large", MaxPx: 1200}
)

// Custom builds a variant with an arbitrary bounding box.
func Custom(maxPx int) Variant {
	return Variant{Name: fmt.Sprintf("custom-%d", maxPx), MaxPx: maxPx}
}

// Normalize decodes data and returns a JPEG constrained to a maxDim bounding
// box, preserving aspect ratio and never upscaling. Sources that are already
// JPEG and within bounds pass through unchanged.
func Normalize(data []byte, maxDim, quality int) ([]byte, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if format == "jpeg" && w <= maxDim && h <= maxDim {
		return data, nil
	}

	dw, dh := fit(w, h, maxDim)
	var dst image.Image = src
	if dw != w || dh != h {
		scaled := image.NewRGBA(image.Rect(0, 0, dw, dh))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, bounds, draw.Over, nil)
		dst = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// NormalizeVariant applies Normalize with the variant's bounding box and the
// fixed quality.
func NormalizeVariant(data []byte, v Variant) ([]byte, error) {
	return Normalize(data, v.MaxPx, Quality)
}

// JPEGFilename derives the stored name by replacing the original extension
// with .jpg.
func JPEGFilename(original string) string {
	base := path.Base(original)
	ext := path.Ext(base)
	name := strings.TrimSuffix(base, ext)
	if name == "" {
		name = "image"
	}
	return name + ".jpg"
}

func fit(w, h, maxDim int) (int, int) {
	if w <= maxDim && h <= maxDim {
		return w, h
	}
	if w >= h {
		nh := h * maxDim / w
		if nh < 1 {
			nh = 1
		}
		return maxDim, nh
	}
	nw := w * maxDim / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxDim
}
