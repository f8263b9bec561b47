// Package checksum computes streaming SHA-256 digests for stored files.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
)

// Digest accumulates a SHA-256 digest over a byte stream. It implements
// io.Writer so hashing interleaves with the disk write, one chunk at a
// time, without buffering the payload.
type Digest struct {
	h hash.Hash
}

// New returns an empty digest.
func New() *Digest {
	return &Digest{h: sha256.New()}
}

// Write feeds the next chunk into the digest. It never returns an error.
func (d *Digest) Write(p []byte) (int, error) {
	return d.h.Write(p)
}

// HexSum returns the hex-encoded digest of everything written so far.
func (d *Digest) HexSum() string {
	return hex.EncodeToString(d.h.Sum(nil))
}

// File recomputes the digest of a file on disk. Used to verify stored
// bytes against their recorded checksum.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for checksum: %w", err)
	}
	defer f.Close()

	d := New()
	if _, err := io.Copy(d, f); err != nil {
		return "", fmt.Errorf("failed to read file for checksum: %w", err)
	}
	return d.HexSum(), nil
}
