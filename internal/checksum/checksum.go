package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Short returns the first n hex characters of the digest, used for
// content-addressed file names where the full digest is unwieldy.
func Short(data []byte, n int) string {
	s := Sum(data)
	if n > len(s) {
		n = len(s)
	}
	return s[:n]
}
