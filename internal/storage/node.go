package storage

import (
	"io/fs"
	"path"
	"strings"

	"github.com/paperbase/paperbase/pkg/models"
)

// NodeFromInfo builds a FileNode for an entry at the given root-relative
// path. The node ID is its workspace path.
func NodeFromInfo(relPath string, info fs.FileInfo) *models.FileNode {
	nodeType := models.NodeFile
	if info.IsDir() {
		nodeType = models.NodeFolder
	}

	name := info.Name()
	if relPath == "" {
		name = "root"
	}

	node := &models.FileNode{
		ID:      "/" + relPath,
		Name:    name,
		Path:    "/" + relPath,
		Type:    nodeType,
		ModTime: info.ModTime(),
	}
	if nodeType == models.NodeFile {
		node.Size = info.Size()
		node.Extension = extensionOf(name)
	}
	return node
}

// StatFromInfo builds a FileStat for an entry at the given root-relative
// path. CreatedAt falls back to the modification time: birth time is not
// portably available across media.
func StatFromInfo(relPath string, info fs.FileInfo, isSymlink bool) *models.FileStat {
	nodeType := models.NodeFile
	if info.IsDir() {
		nodeType = models.NodeFolder
	}
	return &models.FileStat{
		Path:      "/" + relPath,
		Name:      path.Base("/" + relPath),
		Type:      nodeType,
		Size:      info.Size(),
		ModTime:   info.ModTime(),
		CreatedAt: info.ModTime(),
		IsSymlink: isSymlink,
	}
}

func extensionOf(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 || idx == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}
