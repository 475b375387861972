package qr

import (
	"bytes"
	"image/png"
	"testing"
)

func TestVerificationURL(t *testing.T) {
	got := VerificationURL("https://pat.example.com", "abc123def456")
	if got != "https://pat.example.com/c/abc123def456" {
		t.Fatalf("unexpected url: %q", got)
	}
	// Trailing slash on base URL must not double up.
	got = VerificationURL("https://pat.example.com/", "abc123def456")
	if got != "https://pat.example.com/c/abc123def456" {
		t.Fatalf("unexpected url with trailing slash: %q", got)
	}
}

func TestEncodeProducesSquarePNG(t *testing.T) {
	data, err := Encode("https://pat.example.com", "abc123def456")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != bounds.Dy() {
		t.Fatalf("expected square image, got %dx%d", bounds.Dx(), bounds.Dy())
	}
	if bounds.Dx() != Size {
		t.Fatalf("expected %dpx, got %dpx", Size, bounds.Dx())
	}
}
