// Package checksum computes hex-encoded SHA-256 digests of media payloads.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Writer hashes and counts everything written to it.
type Writer struct {
	h hash.Hash
	n int64
}

// NewWriter returns an empty hashing writer.
func NewWriter() *Writer {
	return &Writer{h: sha256.New()}
}

// Write never fails.
func (w *Writer) Write(p []byte) (int, error) {
	n, _ := w.h.Write(p)
	w.n += int64(n)
	return n, nil
}

// Sum returns the hex digest of the bytes written so far.
func (w *Writer) Sum() string {
	return hex.EncodeToString(w.h.Sum(nil))
}

// Size returns the number of bytes written so far.
func (w *Writer) Size() int64 {
	return w.n
}
