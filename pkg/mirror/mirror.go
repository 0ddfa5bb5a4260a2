package mirror

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"s3mirror/pkg/storage"
)

// Mirror maintains a filesystem tree shadowing bucket/object structure under
// a single root, at <root>/<bucket>/<key>. The tree is a best-effort cache of
// successful remote writes, never the source of truth: partial writes are not
// rolled back and the mirror may diverge after out-of-band remote deletes.
type Mirror struct {
	root   string
	logger *slog.Logger
}

func New(root string, logger *slog.Logger) *Mirror {
	return &Mirror{
		root:   filepath.Clean(root),
		logger: logger.With("mirror", root),
	}
}

func (m *Mirror) Root() string {
	return m.root
}

// ObjectPath maps a bucket and object key to the mirrored file path. Keys use
// forward slashes regardless of platform.
func (m *Mirror) ObjectPath(bucket, key string) string {
	return filepath.Join(m.root, bucket, filepath.FromSlash(key))
}

// EnsureDir creates a directory and its parents. Calling it on an existing
// path is a no-op success.
func (m *Mirror) EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("%w: creating directory %s: %v", storage.ErrLocalIO, path, err)
	}
	return nil
}

// CopyIn copies a local file into the mirror tree for bucket/key.
func (m *Mirror) CopyIn(sourcePath, bucket, key string) error {
	dest := m.ObjectPath(bucket, key)
	if err := m.EnsureDir(filepath.Dir(dest)); err != nil {
		return err
	}
	if err := copyFile(sourcePath, dest); err != nil {
		return err
	}
	m.logger.Debug("Mirrored object", "bucket", bucket, "key", key, "path", dest)
	return nil
}

// Write stores raw bytes into the mirror tree for bucket/key.
func (m *Mirror) Write(bucket, key string, data []byte) error {
	dest := m.ObjectPath(bucket, key)
	if err := m.EnsureDir(filepath.Dir(dest)); err != nil {
		return err
	}
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", storage.ErrLocalIO, dest, err)
	}
	m.logger.Debug("Mirrored object", "bucket", bucket, "key", key, "path", dest)
	return nil
}

// CopyOut copies the mirrored file for bucket/key to destPath.
func (m *Mirror) CopyOut(bucket, key, destPath string) error {
	if err := m.EnsureDir(filepath.Dir(destPath)); err != nil {
		return err
	}
	return copyFile(m.ObjectPath(bucket, key), destPath)
}

// Remove deletes the mirrored copy of bucket/key. A missing file is a no-op.
func (m *Mirror) Remove(bucket, key string) error {
	err := os.Remove(m.ObjectPath(bucket, key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: removing mirrored object %s/%s: %v", storage.ErrLocalIO, bucket, key, err)
	}
	return nil
}

// RemoveAll deletes the mirrored tree for a whole bucket.
func (m *Mirror) RemoveAll(bucket string) error {
	if err := os.RemoveAll(filepath.Join(m.root, bucket)); err != nil {
		return fmt.Errorf("%w: removing mirrored bucket %s: %v", storage.ErrLocalIO, bucket, err)
	}
	return nil
}

// Purge deletes the entire mirror root. An absent root is a no-op.
func (m *Mirror) Purge() error {
	if err := os.RemoveAll(m.root); err != nil {
		return fmt.Errorf("%w: purging mirror root %s: %v", storage.ErrLocalIO, m.root, err)
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", storage.ErrLocalIO, src, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %v", storage.ErrLocalIO, dest, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("%w: copying %s to %s: %v", storage.ErrLocalIO, src, dest, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %v", storage.ErrLocalIO, dest, err)
	}
	return nil
}
