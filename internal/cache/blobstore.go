package cache

import (
	"crypto/md5" //nolint:gosec // content naming, not security
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// DataDir is the blob directory inside a cache directory.
const DataDir = "data"

// BlobStore keeps oversized values as one file per key under DataDir.
type BlobStore struct {
	fs billy.Filesystem
}

// NewBlobStore creates the data directory on fs if needed.
func NewBlobStore(fs billy.Filesystem) (*BlobStore, error) {
	if err := fs.MkdirAll(DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &BlobStore{fs: fs}, nil
}

// FileName returns the deterministic blob name for key.
func FileName(key string) string {
	sum := md5.Sum([]byte(key)) //nolint:gosec // content naming, not security
	return hex.EncodeToString(sum[:])
}

func (b *BlobStore) path(name string) string {
	return path.Join(DataDir, name)
}

// Write stores data under name, replacing any previous file atomically.
func (b *BlobStore) Write(name string, data []byte) error {
	tmpPath, err := b.Stage(name, data)
	if err != nil {
		return err
	}
	if err := b.Commit(tmpPath, name); err != nil {
		b.Discard(tmpPath)
		return err
	}
	return nil
}

// Stage writes data to a temporary file in DataDir and returns its path.
// The file becomes visible under name only after Commit.
func (b *BlobStore) Stage(name string, data []byte) (string, error) {
	tmp, err := util.TempFile(b.fs, DataDir, ".tmp-"+name+"-")
	if err != nil {
		return "", fmt.Errorf("create temporary blob: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		b.Discard(tmpPath)
		return "", fmt.Errorf("write temporary blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		b.Discard(tmpPath)
		return "", fmt.Errorf("close temporary blob: %w", err)
	}
	return tmpPath, nil
}

// Commit renames a staged file over name.
func (b *BlobStore) Commit(tmpPath, name string) error {
	if err := b.fs.Rename(tmpPath, b.path(name)); err != nil {
		return fmt.Errorf("rename blob %s: %w", name, err)
	}
	return nil
}

// Discard drops a staged file that will not be committed.
func (b *BlobStore) Discard(tmpPath string) {
	_ = b.fs.Remove(tmpPath)
}

// Read returns the bytes stored under name.
func (b *BlobStore) Read(name string) ([]byte, error) {
	data, err := util.ReadFile(b.fs, b.path(name))
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", name, err)
	}
	return data, nil
}

// Remove deletes the file for name. A missing file is not an error.
func (b *BlobStore) Remove(name string) error {
	if err := b.fs.Remove(b.path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove blob %s: %w", name, err)
	}
	return nil
}

// Reset deletes the data directory and recreates it empty.
func (b *BlobStore) Reset() error {
	if err := util.RemoveAll(b.fs, DataDir); err != nil {
		return fmt.Errorf("reset blob dir: %w", err)
	}
	if err := b.fs.MkdirAll(DataDir, 0o755); err != nil {
		return fmt.Errorf("reset blob dir: %w", err)
	}
	return nil
}

// Files lists the blob names currently on disk.
func (b *BlobStore) Files() ([]string, error) {
	entries, err := b.fs.ReadDir(DataDir)
	if err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
