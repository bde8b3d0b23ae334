// Package tree provides shared utilities for working with workspace file trees.
package tree

import (
	"sort"
	"strings"

	"github.com/paperbase/paperbase/pkg/models"
)

// FindByPath resolves a path in a tree listing (recursive).
func FindByPath(nodes []*models.FileNode, path string) *models.FileNode {
	for _, n := range nodes {
		if n.Path == path {
			return n
		}
		if found := FindByPath(n.Children, path); found != nil {
			return found
		}
	}
	return nil
}

// CountNodes counts all nodes in a tree listing.
func CountNodes(nodes []*models.FileNode) int {
	count := 0
	for _, n := range nodes {
		count += 1 + CountNodes(n.Children)
	}
	return count
}

// SortNodes orders a listing folders-first, each group alphabetical by
// name, and applies the same ordering to every nested level.
func SortNodes(nodes []*models.FileNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].IsDir() != nodes[j].IsDir() {
			return nodes[i].IsDir()
		}
		return strings.ToLower(nodes[i].Name) < strings.ToLower(nodes[j].Name)
	})
	for _, n := range nodes {
		if len(n.Children) > 0 {
			SortNodes(n.Children)
		}
	}
}

// BuildChildPath constructs a child path from parent + name.
func BuildChildPath(parentPath, name string) string {
	if parentPath == "" || parentPath == "/" {
		return "/" + name
	}
	return parentPath + "/" + name
}

// Flatten returns all nodes in a flat map keyed by path.
func Flatten(nodes []*models.FileNode) map[string]*models.FileNode {
	result := make(map[string]*models.FileNode)
	flattenRecursive(nodes, result)
	return result
}

func flattenRecursive(nodes []*models.FileNode, result map[string]*models.FileNode) {
	for _, n := range nodes {
		result[n.Path] = n
		flattenRecursive(n.Children, result)
	}
}
