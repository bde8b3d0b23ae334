package tree

import (
	"testing"

	"github.com/paperbase/paperbase/pkg/models"
)

func file(path, name string) *models.FileNode {
	return &models.FileNode{Path: path, Name: name, Type: models.NodeFile}
}

func folder(path, name string, children ...*models.FileNode) *models.FileNode {
	return &models.FileNode{Path: path, Name: name, Type: models.NodeFolder, Children: children}
}

func sampleTree() []*models.FileNode {
	return []*models.FileNode{
		file("/readme.md", "readme.md"),
		folder("/notes", "notes",
			file("/notes/b.md", "b.md"),
			file("/notes/a.md", "a.md"),
			folder("/notes/archive", "archive"),
		),
		folder("/documents", "documents"),
	}
}

func TestFindByPath(t *testing.T) {
	nodes := sampleTree()

	if n := FindByPath(nodes, "/notes/a.md"); n == nil || n.Name != "a.md" {
		t.Errorf("FindByPath nested = %+v", n)
	}
	if n := FindByPath(nodes, "/readme.md"); n == nil {
		t.Error("FindByPath top-level miss")
	}
	if n := FindByPath(nodes, "/missing"); n != nil {
		t.Errorf("FindByPath(/missing) = %+v", n)
	}
}

func TestCountNodes(t *testing.T) {
	if got := CountNodes(sampleTree()); got != 6 {
		t.Errorf("CountNodes = %d, want 6", got)
	}
	if got := CountNodes(nil); got != 0 {
		t.Errorf("CountNodes(nil) = %d", got)
	}
}

func TestSortNodes(t *testing.T) {
	nodes := []*models.FileNode{
		file("/zeta.txt", "zeta.txt"),
		file("/Alpha.txt", "Alpha.txt"),
		folder("/notes", "notes",
			file("/notes/b.md", "b.md"),
			folder("/notes/sub", "sub"),
			file("/notes/a.md", "a.md"),
		),
		folder("/Boards", "Boards"),
	}
	SortNodes(nodes)

	wantOrder := []string{"Boards", "notes", "Alpha.txt", "zeta.txt"}
	for i, want := range wantOrder {
		if nodes[i].Name != want {
			t.Fatalf("top level[%d] = %q, want %q", i, nodes[i].Name, want)
		}
	}

	notes := nodes[1]
	wantNested := []string{"sub", "a.md", "b.md"}
	for i, want := range wantNested {
		if notes.Children[i].Name != want {
			t.Fatalf("notes[%d] = %q, want %q", i, notes.Children[i].Name, want)
		}
	}
}

func TestBuildChildPath(t *testing.T) {
	tests := []struct {
		parent, name, want string
	}{
		{"", "a.txt", "/a.txt"},
		{"/", "a.txt", "/a.txt"},
		{"/notes", "a.txt", "/notes/a.txt"},
	}
	for _, tt := range tests {
		if got := BuildChildPath(tt.parent, tt.name); got != tt.want {
			t.Errorf("BuildChildPath(%q, %q) = %q, want %q", tt.parent, tt.name, got, tt.want)
		}
	}
}

func TestFlatten(t *testing.T) {
	flat := Flatten(sampleTree())
	if len(flat) != 6 {
		t.Fatalf("Flatten len = %d, want 6", len(flat))
	}
	if _, ok := flat["/notes/archive"]; !ok {
		t.Error("nested folder missing from flat map")
	}
}
