// Package checksum computes the SHA-256 digests stored alongside certificate
// attachments. Every storage backend records the digest in object metadata so a
// download can be checked against what was uploaded.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
)

// SHA256 returns the hex encoded digest of data
func SHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CalculateSHA256 calculates the SHA256 checksum of data from a reader
func CalculateSHA256(reader io.Reader) (string, error) {
	w := NewWriter()
	if _, err := io.Copy(w, reader); err != nil {
		return "", fmt.Errorf("failed to calculate checksum: %w", err)
	}
	return w.Sum(), nil
}

// Writer accumulates the digest of everything written to it. Pair it with
// io.MultiWriter to hash a stream while it is copied elsewhere.
type Writer struct {
	h hash.Hash
}

// NewWriter returns an empty digest writer
func NewWriter() *Writer {
	return &Writer{h: sha256.New()}
}

// Write implements io.Writer and never fails
func (w *Writer) Write(p []byte) (int, error) {
	return w.h.Write(p)
}

// Sum returns the hex encoded digest of the bytes written so far
func (w *Writer) Sum() string {
	return hex.EncodeToString(w.h.Sum(nil))
}
