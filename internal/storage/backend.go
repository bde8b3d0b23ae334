// Package storage defines the Backend interface for workspace file I/O
// and the factory that selects a concrete backend at workspace-open time.
// Backends only ever see root-relative paths; validation happens above
// them in the workspace service.
package storage

import (
	"context"

	"github.com/paperbase/paperbase/pkg/models"
)

// Backend is the interface a concrete storage medium must implement.
// Every path argument is relative to the backend root, uses forward
// slashes, and never contains ".." segments; the workspace service
// guarantees that before delegating. Implementations wrap every
// underlying I/O failure in a fserr.FileOperationError and never retry.
type Backend interface {
	// Read returns file contents as a string.
	Read(ctx context.Context, path string) (string, error)

	// ReadBinary returns raw file contents.
	ReadBinary(ctx context.Context, path string) ([]byte, error)

	// Write writes string content to a file, creating or truncating it.
	// The parent directory must already exist.
	Write(ctx context.Context, path, content string) error

	// WriteBinary writes raw content to a file.
	WriteBinary(ctx context.Context, path string, data []byte) error

	// Exists checks whether a path exists.
	Exists(ctx context.Context, path string) (bool, error)

	// Delete removes a file or a folder with all its contents.
	Delete(ctx context.Context, path string) error

	// Move moves a file or folder to a new path.
	Move(ctx context.Context, src, dst string) error

	// Copy copies a file or folder (recursively) to a new path.
	Copy(ctx context.Context, src, dst string) error

	// Rename changes the leaf name of an entry in place.
	Rename(ctx context.Context, path, newName string) error

	// Mkdir creates a directory, including missing parents. Creating an
	// existing directory is not an error; colliding with a file is.
	Mkdir(ctx context.Context, path string) error

	// List returns the single-level contents of a directory.
	List(ctx context.Context, path string) ([]*models.FileNode, error)

	// Stat returns metadata for one entry.
	Stat(ctx context.Context, path string) (*models.FileStat, error)

	// IsSymlink reports whether the entry itself is a symbolic link,
	// without following it. Media that cannot represent symlinks always
	// report false.
	IsSymlink(ctx context.Context, path string) (bool, error)

	// ResolveSymlink returns the absolute path the entry resolves to
	// after following any symlinks. The caller is responsible for
	// re-validating containment of the result.
	ResolveSymlink(ctx context.Context, path string) (string, error)

	// RootPath returns the bound root, or "" before SetRootPath.
	RootPath() string

	// SetRootPath binds the backend to a root directory, releasing any
	// previous binding. The directory must exist.
	SetRootPath(root string) error

	// Type returns the backend type identifier ("native", "sandbox").
	Type() string

	// Close releases any resources held by the backend.
	Close() error
}
