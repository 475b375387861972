// Package qr encodes certificate verification URLs as raster images.
package qr

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// Size is the square pixel size of generated codes. Twice the ~180px render
// width so the code stays crisp when scaled down in the PDF.
const Size = 360

// VerificationURL builds the public certificate link for an inspection.
func VerificationURL(baseURL, inspectionID string) string {
	return strings.TrimRight(baseURL, "/") + "/c/" + inspectionID
}

// Encode renders the verification URL as a square PNG.
func Encode(baseURL, inspectionID string) ([]byte, error) {
	png, err := qrcode.Encode(VerificationURL(baseURL, inspectionID), qrcode.Medium, Size)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}
