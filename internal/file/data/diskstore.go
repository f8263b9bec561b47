package data

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/telefiles/filedepot/internal/file/biz"
	"github.com/telefiles/filedepot/internal/pkg/checksum"
	"github.com/telefiles/filedepot/internal/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// writeChunkSize is the buffer used for the streaming write loop.
const writeChunkSize = 32 << 10

// DiskStore implements biz.BlobStore on a flat directory of files named
// by their internal id.
type DiskStore struct {
	root    string
	maxSize int64
	logger  *logger.Logger
}

// NewDiskStore creates the storage directory if needed.
func NewDiskStore(root string, maxSize int64, log *logger.Logger) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &DiskStore{root: root, maxSize: maxSize, logger: log}, nil
}

// Path returns the on-disk location for a file id.
func (s *DiskStore) Path(id string) string {
	return filepath.Join(s.root, id)
}

// WriteStream streams r into the file named by id in a single pass:
// each chunk updates the running size, the digest and the file, and the
// write aborts the moment the size cap is crossed. Every failure path
// removes the partial file; an oversized or interrupted upload leaves
// nothing on disk.
func (s *DiskStore) WriteStream(ctx context.Context, id string, r io.Reader) (string, int64, string, error) {
	path := s.Path(id)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, "", fmt.Errorf("failed to create file: %w", err)
	}

	abort := func(cause error) (string, int64, string, error) {
		f.Close()
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			s.logger.Warn("failed to remove partial file",
				zap.String("file_id", id),
				zap.Error(rmErr),
			)
		}
		return "", 0, "", cause
	}

	digest := checksum.New()
	buf := make([]byte, writeChunkSize)
	var size int64

	for {
		if err := ctx.Err(); err != nil {
			return abort(err)
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			size += int64(n)
			if s.maxSize > 0 && size > s.maxSize {
				return abort(biz.ErrFileTooLarge)
			}
			digest.Write(buf[:n])
			if _, err := f.Write(buf[:n]); err != nil {
				// Disk full behaves like a size-limit violation:
				// clean up and propagate.
				return abort(fmt.Errorf("failed to write file content: %w", err))
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			// A client disconnect mid-upload lands here and cleans up
			// exactly like an oversized stream.
			return abort(fmt.Errorf("failed to read upload stream: %w", readErr))
		}
	}

	if err := f.Sync(); err != nil {
		return abort(fmt.Errorf("failed to sync file: %w", err))
	}
	if err := f.Close(); err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			s.logger.Warn("failed to remove partial file", zap.String("file_id", id), zap.Error(rmErr))
		}
		return "", 0, "", fmt.Errorf("failed to close file: %w", err)
	}

	return path, size, digest.HexSum(), nil
}

// Exists reports whether the file at path is present on disk.
func (s *DiskStore) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Remove deletes the file at path. A missing file is not an error.
func (s *DiskStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// FreeSpace reports available bytes on the storage volume.
func (s *DiskStore) FreeSpace() (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(s.root, &st); err != nil {
		return 0, fmt.Errorf("statfs failed: %w", err)
	}
	return st.Bavail * uint64(st.Bsize), nil
}
