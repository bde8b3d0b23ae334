// Package native provides the storage backend for environments with
// direct OS filesystem access. Root-relative paths are resolved into OS
// absolute paths by joining with the root; this medium can express real
// symlinks, so it exposes true lstat-style symlink detection for the
// workspace service's second line of defense.
package native

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/paperbase/paperbase/internal/storage"
	"github.com/paperbase/paperbase/pkg/fserr"
	"github.com/paperbase/paperbase/pkg/models"
)

// Backend implements storage.Backend using direct OS file APIs.
type Backend struct {
	root   string
	logger *zap.Logger
}

func init() {
	storage.Register(storage.KindNative, func(logger *zap.Logger) storage.Backend {
		return New(logger)
	})
}

// New creates an unbound native backend. SetRootPath binds it to a root.
func New(logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{logger: logger}
}

// SetRootPath binds the backend to an existing directory.
func (b *Backend) SetRootPath(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve root %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("stat root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root %s is not a directory", abs)
	}
	b.root = abs
	return nil
}

// RootPath returns the bound root.
func (b *Backend) RootPath() string { return b.root }

// Type returns "native".
func (b *Backend) Type() string { return "native" }

// Close is a no-op for native backends.
func (b *Backend) Close() error { return nil }

func (b *Backend) fullPath(rel string) string {
	return filepath.Join(b.root, filepath.FromSlash(rel))
}

// Read returns file contents as a string.
func (b *Backend) Read(ctx context.Context, rel string) (string, error) {
	data, err := b.ReadBinary(ctx, rel)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadBinary returns raw file contents.
func (b *Backend) ReadBinary(_ context.Context, rel string) ([]byte, error) {
	data, err := os.ReadFile(b.fullPath(rel))
	if err != nil {
		return nil, fserr.NewOpError(fserr.OpRead, rel, err)
	}
	return data, nil
}

// Write writes string content to a file.
func (b *Backend) Write(ctx context.Context, rel, content string) error {
	return b.WriteBinary(ctx, rel, []byte(content))
}

// WriteBinary writes raw content to a temp file in the target directory
// and renames it into place.
func (b *Backend) WriteBinary(_ context.Context, rel string, data []byte) error {
	full := b.fullPath(rel)
	dir := filepath.Dir(full)

	tmp, err := os.CreateTemp(dir, ".paperbase-*.tmp")
	if err != nil {
		return fserr.NewOpError(fserr.OpWrite, rel, fmt.Errorf("create temp: %w", err))
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fserr.NewOpError(fserr.OpWrite, rel, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fserr.NewOpError(fserr.OpWrite, rel, fmt.Errorf("close temp: %w", err))
	}
	if err := os.Rename(tmpName, full); err != nil {
		os.Remove(tmpName)
		return fserr.NewOpError(fserr.OpWrite, rel, fmt.Errorf("rename temp: %w", err))
	}
	return nil
}

// Exists checks whether a path exists.
func (b *Backend) Exists(_ context.Context, rel string) (bool, error) {
	_, err := os.Stat(b.fullPath(rel))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fserr.NewOpError(fserr.OpStat, rel, err)
	}
	return true, nil
}

// Delete removes a file or a folder with all its contents.
func (b *Backend) Delete(_ context.Context, rel string) error {
	if err := os.RemoveAll(b.fullPath(rel)); err != nil {
		return fserr.NewOpError(fserr.OpDelete, rel, err)
	}
	return nil
}

// Move renames a file or folder to a new path.
func (b *Backend) Move(_ context.Context, src, dst string) error {
	if err := checkNotNested(src, dst); err != nil {
		return fserr.NewOpError(fserr.OpMove, src, err)
	}
	if err := os.Rename(b.fullPath(src), b.fullPath(dst)); err != nil {
		return fserr.NewOpError(fserr.OpMove, src, err)
	}
	return nil
}

// Copy copies a file or folder recursively.
func (b *Backend) Copy(_ context.Context, src, dst string) error {
	if err := checkNotNested(src, dst); err != nil {
		return fserr.NewOpError(fserr.OpCopy, src, err)
	}
	if err := b.copyEntry(b.fullPath(src), b.fullPath(dst)); err != nil {
		return fserr.NewOpError(fserr.OpCopy, src, err)
	}
	return nil
}

// checkNotNested rejects a destination equal to or inside the source.
// A recursive copy with such a destination would descend into the
// entries it is itself creating and never terminate.
func checkNotNested(src, dst string) error {
	if src == "" || dst == src || strings.HasPrefix(dst, src+"/") {
		return fmt.Errorf("destination %s is inside source %s", dst, src)
	}
	return nil
}

func (b *Backend) copyEntry(srcFull, dstFull string) error {
	info, err := os.Stat(srcFull)
	if err != nil {
		return fmt.Errorf("stat %s: %w", srcFull, err)
	}

	if info.IsDir() {
		if err := os.MkdirAll(dstFull, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dstFull, err)
		}
		entries, err := os.ReadDir(srcFull)
		if err != nil {
			return fmt.Errorf("read dir %s: %w", srcFull, err)
		}
		for _, entry := range entries {
			err := b.copyEntry(filepath.Join(srcFull, entry.Name()), filepath.Join(dstFull, entry.Name()))
			if err != nil {
				return err
			}
		}
		return nil
	}
	return b.copyFile(srcFull, dstFull)
}

func (b *Backend) copyFile(srcFull, dstFull string) error {
	src, err := os.Open(srcFull)
	if err != nil {
		return fmt.Errorf("open %s: %w", srcFull, err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dstFull), ".paperbase-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", dstFull, err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("copy %s -> %s: %w", srcFull, dstFull, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp for %s: %w", dstFull, err)
	}
	if err := os.Rename(tmpName, dstFull); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp to %s: %w", dstFull, err)
	}
	return nil
}

// Rename changes the leaf name of an entry in place.
func (b *Backend) Rename(_ context.Context, rel, newName string) error {
	full := b.fullPath(rel)
	dst := filepath.Join(filepath.Dir(full), newName)
	if err := os.Rename(full, dst); err != nil {
		return fserr.NewOpError(fserr.OpRename, rel, err)
	}
	return nil
}

// Mkdir creates a directory including missing parents.
func (b *Backend) Mkdir(_ context.Context, rel string) error {
	if err := os.MkdirAll(b.fullPath(rel), 0o755); err != nil {
		return fserr.NewOpError(fserr.OpMkdir, rel, err)
	}
	return nil
}

// List returns the single-level contents of a directory. Entries that
// disappear between the directory read and the stat are skipped. A
// symlink is typed by its target so symlinked folders list as folders;
// dangling links fall back to the link's own info.
func (b *Backend) List(_ context.Context, rel string) ([]*models.FileNode, error) {
	entries, err := os.ReadDir(b.fullPath(rel))
	if err != nil {
		return nil, fserr.NewOpError(fserr.OpList, rel, err)
	}

	nodes := make([]*models.FileNode, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			b.logger.Debug("skipping unreadable entry",
				zap.String("path", rel), zap.String("name", entry.Name()), zap.Error(err))
			continue
		}
		if info.Mode()&os.ModeSymlink != 0 {
			if si, statErr := os.Stat(filepath.Join(b.fullPath(rel), entry.Name())); statErr == nil {
				info = si
			}
		}
		childRel := rel + "/" + entry.Name()
		if rel == "" {
			childRel = entry.Name()
		}
		nodes = append(nodes, storage.NodeFromInfo(childRel, info))
	}
	return nodes, nil
}

// Stat returns metadata for one entry. Dangling symlinks are reported
// from lstat data rather than failing.
func (b *Backend) Stat(_ context.Context, rel string) (*models.FileStat, error) {
	full := b.fullPath(rel)
	li, err := os.Lstat(full)
	if err != nil {
		return nil, fserr.NewOpError(fserr.OpStat, rel, err)
	}
	isSymlink := li.Mode()&os.ModeSymlink != 0

	info := li
	if isSymlink {
		if si, err := os.Stat(full); err == nil {
			info = si
		}
	}
	return storage.StatFromInfo(rel, info, isSymlink), nil
}

// IsSymlink reports whether the entry itself is a symbolic link.
func (b *Backend) IsSymlink(_ context.Context, rel string) (bool, error) {
	li, err := os.Lstat(b.fullPath(rel))
	if err != nil {
		return false, fserr.NewOpError(fserr.OpStat, rel, err)
	}
	return li.Mode()&os.ModeSymlink != 0, nil
}

// ResolveSymlink returns the absolute path the entry resolves to after
// following all symlinks in it.
func (b *Backend) ResolveSymlink(_ context.Context, rel string) (string, error) {
	resolved, err := filepath.EvalSymlinks(b.fullPath(rel))
	if err != nil {
		return "", fserr.NewOpError(fserr.OpStat, rel, err)
	}
	return resolved, nil
}
