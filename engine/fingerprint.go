package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// Fingerprint returns the hex-encoded SHA-256 digest of the given bytes.
// Identical content always yields the identical fingerprint; the empty input
// hashes like any other input.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FingerprintReader wraps an io.Reader to compute a content fingerprint
// while reading, so a file can be hashed during staging without a second
// pass over the bytes.
type FingerprintReader struct {
	r    io.Reader
	hash hash.Hash
	n    int64
}

// NewFingerprintReader creates a FingerprintReader over r.
func NewFingerprintReader(r io.Reader) *FingerprintReader {
	return &FingerprintReader{
		r:    r,
		hash: sha256.New(),
	}
}

// Read reads from the underlying reader and updates the digest.
func (fr *FingerprintReader) Read(p []byte) (int, error) {
	n, err := fr.r.Read(p)
	if n > 0 {
		fr.n += int64(n)
		fr.hash.Write(p[:n])
	}
	return n, err
}

// Fingerprint returns the hex digest of everything read so far.
func (fr *FingerprintReader) Fingerprint() string {
	return hex.EncodeToString(fr.hash.Sum(nil))
}

// BytesRead returns the total number of bytes read.
func (fr *FingerprintReader) BytesRead() int64 {
	return fr.n
}
