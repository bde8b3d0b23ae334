// Package sandbox provides the storage backend for capability-restricted
// environments. All I/O goes through an os.Root directory handle granted
// at bind time: paths are resolved by the handle itself, never by raw OS
// path interpretation, so traversal outside the root is structurally
// impossible at this layer. Path validation above it is defense-in-depth
// here, not the only line of defense.
//
// The medium has no atomic rename across the handle, so folder moves are
// emulated as copy-then-delete; the copy completes before the delete
// starts, so a mid-copy failure leaves the source intact. Symlinks are
// unrepresentable through this medium and IsSymlink always reports false.
package sandbox

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/paperbase/paperbase/internal/storage"
	"github.com/paperbase/paperbase/pkg/fserr"
	"github.com/paperbase/paperbase/pkg/models"
)

// Backend implements storage.Backend through an os.Root capability handle.
type Backend struct {
	rootPath string
	root     *os.Root
	logger   *zap.Logger
}

func init() {
	storage.Register(storage.KindSandbox, func(logger *zap.Logger) storage.Backend {
		return New(logger)
	})
}

// New creates an unbound sandbox backend. SetRootPath grants the handle.
func New(logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{logger: logger}
}

// SetRootPath opens a directory handle for the given root, releasing any
// previously held handle.
func (b *Backend) SetRootPath(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve root %s: %w", root, err)
	}
	handle, err := os.OpenRoot(abs)
	if err != nil {
		return fmt.Errorf("open root %s: %w", abs, err)
	}
	if b.root != nil {
		b.root.Close()
	}
	b.rootPath = abs
	b.root = handle
	return nil
}

// RootPath returns the bound root.
func (b *Backend) RootPath() string { return b.rootPath }

// Type returns "sandbox".
func (b *Backend) Type() string { return "sandbox" }

// Close releases the directory handle.
func (b *Backend) Close() error {
	if b.root == nil {
		return nil
	}
	err := b.root.Close()
	b.root = nil
	return err
}

// handlePath maps a root-relative path to the form os.Root expects; the
// root itself is ".".
func handlePath(rel string) string {
	if rel == "" {
		return "."
	}
	return rel
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
	f, err := b.root.Open(handlePath(rel))
	if err != nil {
		return nil, fserr.NewOpError(fserr.OpRead, rel, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fserr.NewOpError(fserr.OpRead, rel, err)
	}
	return data, nil
}

// Write writes string content to a file.
func (b *Backend) Write(ctx context.Context, rel, content string) error {
	return b.WriteBinary(ctx, rel, []byte(content))
}

// WriteBinary writes raw content to a file through the handle.
func (b *Backend) WriteBinary(_ context.Context, rel string, data []byte) error {
	f, err := b.root.OpenFile(handlePath(rel), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fserr.NewOpError(fserr.OpWrite, rel, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fserr.NewOpError(fserr.OpWrite, rel, err)
	}
	if err := f.Close(); err != nil {
		return fserr.NewOpError(fserr.OpWrite, rel, err)
	}
	return nil
}

// Exists checks whether a path exists.
func (b *Backend) Exists(_ context.Context, rel string) (bool, error) {
	_, err := b.root.Stat(handlePath(rel))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fserr.NewOpError(fserr.OpStat, rel, err)
	}
	return true, nil
}

// Delete removes a file or a folder with all its contents, walking the
// tree through the handle.
func (b *Backend) Delete(_ context.Context, rel string) error {
	if err := b.removeAll(handlePath(rel)); err != nil {
		return fserr.NewOpError(fserr.OpDelete, rel, err)
	}
	return nil
}

func (b *Backend) removeAll(p string) error {
	info, err := b.root.Stat(p)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	if info.IsDir() {
		entries, err := b.readDir(p)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if err := b.removeAll(path.Join(p, entry.Name())); err != nil {
				return err
			}
		}
	}
	return b.root.Remove(p)
}

func (b *Backend) readDir(p string) ([]os.DirEntry, error) {
	dir, err := b.root.Open(p)
	if err != nil {
		return nil, err
	}
	entries, err := dir.ReadDir(0)
	if closeErr := dir.Close(); closeErr != nil {
		b.logger.Warn("failed to close directory", zap.String("path", p), zap.Error(closeErr))
	}
	return entries, err
}

// Move moves a file or folder. The medium has no rename primitive, so
// the entry is copied first and the source deleted only after the copy
// fully succeeds.
func (b *Backend) Move(ctx context.Context, src, dst string) error {
	if err := checkNotNested(src, dst); err != nil {
		return fserr.NewOpError(fserr.OpMove, src, err)
	}
	if err := b.copyEntry(handlePath(src), handlePath(dst)); err != nil {
		return fserr.NewOpError(fserr.OpMove, src, err)
	}
	if err := b.removeAll(handlePath(src)); err != nil {
		return fserr.NewOpError(fserr.OpMove, src, err)
	}
	return nil
}

// Copy copies a file or folder recursively through the handle.
func (b *Backend) Copy(_ context.Context, src, dst string) error {
	if err := checkNotNested(src, dst); err != nil {
		return fserr.NewOpError(fserr.OpCopy, src, err)
	}
	if err := b.copyEntry(handlePath(src), handlePath(dst)); err != nil {
		return fserr.NewOpError(fserr.OpCopy, src, err)
	}
	return nil
}

// checkNotNested rejects a destination equal to or inside the source.
// The recursive copy would otherwise descend into the directories it is
// itself creating and never terminate.
func checkNotNested(src, dst string) error {
	if src == "" || dst == src || strings.HasPrefix(dst, src+"/") {
		return fmt.Errorf("destination %s is inside source %s", dst, src)
	}
	return nil
}

func (b *Backend) copyEntry(src, dst string) error {
	info, err := b.root.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	if info.IsDir() {
		if err := b.createDirComponent(dst); err != nil {
			return err
		}
		entries, err := b.readDir(src)
		if err != nil {
			return fmt.Errorf("read dir %s: %w", src, err)
		}
		for _, entry := range entries {
			if err := b.copyEntry(path.Join(src, entry.Name()), path.Join(dst, entry.Name())); err != nil {
				return err
			}
		}
		return nil
	}
	return b.copyFile(src, dst)
}

func (b *Backend) copyFile(src, dst string) error {
	in, err := b.root.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := b.root.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s -> %s: %w", src, dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}
	return nil
}

// Rename changes the leaf name of an entry, emulated as a sibling move.
// Renaming to the current name is a no-op, as a real rename would be;
// the emulation would otherwise truncate the entry against itself.
func (b *Backend) Rename(ctx context.Context, rel, newName string) error {
	parent := path.Dir(handlePath(rel))
	dst := path.Join(parent, newName)
	if dst == handlePath(rel) {
		return nil
	}
	if err := b.copyEntry(handlePath(rel), dst); err != nil {
		return fserr.NewOpError(fserr.OpRename, rel, err)
	}
	if err := b.removeAll(handlePath(rel)); err != nil {
		return fserr.NewOpError(fserr.OpRename, rel, err)
	}
	return nil
}

// Mkdir creates a directory segment by segment; the handle has no
// recursive primitive.
func (b *Backend) Mkdir(_ context.Context, rel string) error {
	if rel == "" {
		return nil
	}
	current := ""
	for _, segment := range strings.Split(rel, "/") {
		if segment == "" {
			continue
		}
		current = path.Join(current, segment)
		if err := b.createDirComponent(current); err != nil {
			return fserr.NewOpError(fserr.OpMkdir, rel, err)
		}
	}
	return nil
}

func (b *Backend) createDirComponent(p string) error {
	err := b.root.Mkdir(p, 0o755)
	if err == nil {
		return nil
	}
	if os.IsExist(err) {
		info, statErr := b.root.Stat(p)
		if statErr == nil && info.IsDir() {
			return nil
		}
		return fmt.Errorf("mkdir %s: exists and is not a directory", p)
	}
	return fmt.Errorf("mkdir %s: %w", p, err)
}

// List returns the single-level contents of a directory.
func (b *Backend) List(_ context.Context, rel string) ([]*models.FileNode, error) {
	entries, err := b.readDir(handlePath(rel))
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
		childRel := entry.Name()
		if rel != "" {
			childRel = rel + "/" + entry.Name()
		}
		nodes = append(nodes, storage.NodeFromInfo(childRel, info))
	}
	return nodes, nil
}

// Stat returns metadata for one entry. The medium cannot represent
// symlinks, so IsSymlink is always false.
func (b *Backend) Stat(_ context.Context, rel string) (*models.FileStat, error) {
	info, err := b.root.Stat(handlePath(rel))
	if err != nil {
		return nil, fserr.NewOpError(fserr.OpStat, rel, err)
	}
	return storage.StatFromInfo(rel, info, false), nil
}

// IsSymlink always reports false: the medium has no symlink concept to
// expose, and the handle refuses to follow links that leave the root.
func (b *Backend) IsSymlink(_ context.Context, _ string) (bool, error) {
	return false, nil
}

// ResolveSymlink returns the entry's own absolute path: there is nothing
// to follow in this medium.
func (b *Backend) ResolveSymlink(_ context.Context, rel string) (string, error) {
	return filepath.Join(b.rootPath, filepath.FromSlash(rel)), nil
}
