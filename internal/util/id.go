package util

import (
	"crypto/rand"
	"encoding/hex"
)

const recordIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// RecordIDLength is the length of public inspection identifiers.
const RecordIDLength = 12

// NewID returns a URL-safe hex string ID.
func NewID() string {
	b := make([]byte, 12)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// NewRecordID returns a random lowercase alphanumeric token used as a public
// record identifier. The token doubles as the access control for the public
// certificate link, so it must come from crypto/rand.
func NewRecordID() string {
	out := make([]byte, RecordIDLength)
	buf := make([]byte, 1)
	for i := 0; i < len(out); {
		if _, err := rand.Read(buf); err != nil {
			continue
		}
		// Reject values beyond the largest multiple of 36 to avoid modulo bias.
		if buf[0] >= 252 {
			continue
		}
		out[i] = recordIDAlphabet[int(buf[0])%len(recordIDAlphabet)]
		i++
	}
	return string(out)
}
