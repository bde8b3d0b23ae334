// Package models contains the shared data types of the workspace
// filesystem layer.
package models

import "time"

// NodeType distinguishes files from folders in a tree listing.
type NodeType string

const (
	NodeFile   NodeType = "file"
	NodeFolder NodeType = "folder"
)

// FileNode represents one entry in a workspace tree listing. Listings are
// built fresh on every call and never mutated in place; Children is only
// populated for folders.
type FileNode struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Path      string      `json:"path"`
	Type      NodeType    `json:"type"`
	Size      int64       `json:"size,omitempty"`
	ModTime   time.Time   `json:"mtime,omitzero"`
	Extension string      `json:"extension,omitempty"`
	Children  []*FileNode `json:"children,omitempty"`
}

// IsDir reports whether the node is a folder.
func (n *FileNode) IsDir() bool {
	return n.Type == NodeFolder
}

// FileStat is point-in-time metadata for a single entry. It has no
// identity beyond the query that produced it.
type FileStat struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Type      NodeType  `json:"type"`
	Size      int64     `json:"size"`
	ModTime   time.Time `json:"mtime"`
	CreatedAt time.Time `json:"created_at"`
	IsSymlink bool      `json:"is_symlink"`
}

// Workspace describes one open workspace. A new descriptor is issued each
// time a workspace is opened; it is discarded when the workspace closes.
type Workspace struct {
	ID        string    `json:"id"`
	RootPath  string    `json:"root_path"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	OpenedAt  time.Time `json:"opened_at"`
}

// PathCheck is the result of probing a path for existence and type.
type PathCheck struct {
	Exists      bool `json:"exists"`
	IsFile      bool `json:"is_file"`
	IsDirectory bool `json:"is_directory"`
}
