package safepath

import (
	"errors"
	"testing"

	"github.com/paperbase/paperbase/pkg/fserr"
)

func mustValidator(t *testing.T, root string) *Validator {
	t.Helper()
	v, err := New(root)
	if err != nil {
		t.Fatalf("New(%q): %v", root, err)
	}
	return v
}

func reasonOf(t *testing.T, err error) fserr.SecurityReason {
	t.Helper()
	var se *fserr.SecurityError
	if !errors.As(err, &se) {
		t.Fatalf("expected SecurityError, got %v", err)
	}
	return se.Reason
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a\\b\\c", "a/b/c"},
		{"/ws/notes/", "/ws/notes"},
		{"/", "/"},
		{"", ""},
		{"C:\\Users\\me", "C:/Users/me"},
		{"a/b", "a/b"},
	}
	for _, tt := range tests {
		if got := NormalizePath(tt.in); got != tt.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJoinPath(t *testing.T) {
	tests := []struct {
		segments []string
		want     string
	}{
		{[]string{"/ws", "notes", "a.txt"}, "/ws/notes/a.txt"},
		{[]string{"/ws", "", "a.txt"}, "/ws/a.txt"},
		{[]string{"notes", "a.txt"}, "notes/a.txt"},
		{[]string{"/ws/", "/notes/"}, "/ws/notes"},
	}
	for _, tt := range tests {
		if got := JoinPath(tt.segments...); got != tt.want {
			t.Errorf("JoinPath(%v) = %q, want %q", tt.segments, got, tt.want)
		}
	}
}

func TestValidatePathTraversalSignatures(t *testing.T) {
	v := mustValidator(t, "/ws")

	// Any literal or encoded ".." signature fails fast with
	// PATH_TRAVERSAL regardless of the rest of the path.
	paths := []string{
		"../etc/passwd",
		"notes/../../etc",
		"notes\\..\\..\\etc",
		"notes/..",
		"..",
		"%2e%2e/secret",
		"%2E%2E/secret",
		"notes/%2e%2e/secret",
		"%252e%252e/secret",
		"notes/.../deep",
		"....//etc",
	}
	for _, p := range paths {
		_, err := v.ValidatePath(p)
		if err == nil {
			t.Errorf("ValidatePath(%q) accepted traversal", p)
			continue
		}
		if got := reasonOf(t, err); got != fserr.ReasonPathTraversal {
			t.Errorf("ValidatePath(%q) reason = %s, want PATH_TRAVERSAL", p, got)
		}
	}
}

func TestValidatePathAccepts(t *testing.T) {
	v := mustValidator(t, "/ws")

	tests := []struct {
		in, want string
	}{
		{"notes/a.txt", "/ws/notes/a.txt"},
		{"notes\\a.txt", "/ws/notes/a.txt"},
		{"", "/ws"},
		{"/ws/notes/a.txt", "/ws/notes/a.txt"},
		{"./notes/./a.txt", "/ws/notes/a.txt"},
		{"notes//a.txt", "/ws/notes/a.txt"},
		{"a..b.txt", "/ws/a..b.txt"},
		{"notes/", "/ws/notes"},
	}
	for _, tt := range tests {
		got, err := v.ValidatePath(tt.in)
		if err != nil {
			t.Errorf("ValidatePath(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ValidatePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidatePathAbsoluteOutsideRoot(t *testing.T) {
	v := mustValidator(t, "/ws")

	for _, p := range []string{"/etc/passwd", "/other/file.txt", "C:/Users/me/f.txt"} {
		_, err := v.ValidatePath(p)
		if err == nil {
			t.Errorf("ValidatePath(%q) accepted outside-root absolute path", p)
			continue
		}
		if got := reasonOf(t, err); got != fserr.ReasonAbsolutePathInRelativeContext {
			t.Errorf("ValidatePath(%q) reason = %s, want ABSOLUTE_PATH_IN_RELATIVE_CONTEXT", p, got)
		}
	}
}

func TestValidatePathNullByte(t *testing.T) {
	v := mustValidator(t, "/ws")
	_, err := v.ValidatePath("notes/a\x00.txt")
	if err == nil {
		t.Fatal("null byte accepted")
	}
	if got := reasonOf(t, err); got != fserr.ReasonInvalidPath {
		t.Errorf("reason = %s, want INVALID_PATH", got)
	}
}

func TestIsWithinWorkspaceSegmentPrefix(t *testing.T) {
	v := mustValidator(t, "/workspace")

	tests := []struct {
		path string
		want bool
	}{
		{"/workspace", true},
		{"/workspace/file.txt", true},
		{"/workspace/deep/nest", true},
		// A sibling sharing the root as a literal string prefix must not
		// match containment.
		{"/workspace-evil/file.txt", false},
		{"/workspacee", false},
		{"/other", false},
		{"/", false},
	}
	for _, tt := range tests {
		if got := v.IsWithinWorkspace(tt.path); got != tt.want {
			t.Errorf("IsWithinWorkspace(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestIsWithinWorkspaceFilesystemRoot(t *testing.T) {
	v := mustValidator(t, "/")
	if !v.IsWithinWorkspace("/anything") {
		t.Error("root workspace / should contain /anything")
	}
}

func TestRelativePathRoundTrip(t *testing.T) {
	v := mustValidator(t, "/ws")

	for _, p := range []string{"notes/a.txt", "a", "deep/nested/dir/f.md", ""} {
		abs, err := v.ToAbsolutePath(p)
		if err != nil {
			t.Fatalf("ToAbsolutePath(%q): %v", p, err)
		}
		rel, err := v.GetRelativePath(abs)
		if err != nil {
			t.Fatalf("GetRelativePath(%q): %v", abs, err)
		}
		if rel != p {
			t.Errorf("round trip %q -> %q -> %q", p, abs, rel)
		}
	}
}

func TestGetRelativePathOutside(t *testing.T) {
	v := mustValidator(t, "/ws")
	_, err := v.GetRelativePath("/elsewhere/f.txt")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := reasonOf(t, err); got != fserr.ReasonOutsideWorkspace {
		t.Errorf("reason = %s, want OUTSIDE_WORKSPACE", got)
	}
}

func TestValidateSymlinkTarget(t *testing.T) {
	v := mustValidator(t, "/ws")

	if _, err := v.ValidateSymlinkTarget("/ws/link", "/ws/real/target.txt"); err != nil {
		t.Errorf("in-workspace target rejected: %v", err)
	}

	_, err := v.ValidateSymlinkTarget("/ws/link", "/etc/passwd")
	if err == nil {
		t.Fatal("escaping target accepted")
	}
	if got := reasonOf(t, err); got != fserr.ReasonSymlinkEscape {
		t.Errorf("reason = %s, want SYMLINK_ESCAPE", got)
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name   string
		reason fserr.SecurityReason // "" means accepted
	}{
		{"report.md", ""},
		{"a..b", ""},
		{".hidden", ""},
		{"../evil", fserr.ReasonPathTraversal},
		{"..", fserr.ReasonPathTraversal},
		{"a/b", fserr.ReasonInvalidPath},
		{"a\\b", fserr.ReasonInvalidPath},
		{"", fserr.ReasonInvalidPath},
		{"   ", fserr.ReasonInvalidPath},
		{".", fserr.ReasonInvalidPath},
		{"bad\x00name", fserr.ReasonInvalidPath},
		{"bad\tname", fserr.ReasonInvalidPath},
	}
	for _, tt := range tests {
		got, err := ValidateName(tt.name)
		if tt.reason == "" {
			if err != nil {
				t.Errorf("ValidateName(%q): %v", tt.name, err)
			} else if got != tt.name {
				t.Errorf("ValidateName(%q) = %q", tt.name, got)
			}
			continue
		}
		if err == nil {
			t.Errorf("ValidateName(%q) accepted", tt.name)
			continue
		}
		if reason := reasonOf(t, err); reason != tt.reason {
			t.Errorf("ValidateName(%q) reason = %s, want %s", tt.name, reason, tt.reason)
		}
	}
}

func TestSegmentResolutionCannotClimbRoot(t *testing.T) {
	// The raw-string scan rejects literal "..", so this exercises the
	// defense-in-depth resolution directly: a ".." that would pop past
	// the root is a no-op, not an escape.
	v := mustValidator(t, "/ws/projects")
	resolved := v.resolveSegments("/ws/projects/a/../../../../b")
	if resolved != "/ws/projects/b" {
		t.Errorf("resolveSegments = %q, want /ws/projects/b", resolved)
	}

	resolved = v.resolveSegments("/ws/projects/./a/./b")
	if resolved != "/ws/projects/a/b" {
		t.Errorf("resolveSegments = %q, want /ws/projects/a/b", resolved)
	}
}

func TestSetRootPath(t *testing.T) {
	v := mustValidator(t, "/ws")
	if err := v.SetRootPath("/other/"); err != nil {
		t.Fatalf("SetRootPath: %v", err)
	}
	if v.RootPath() != "/other" {
		t.Errorf("root = %q, want /other", v.RootPath())
	}

	if err := v.SetRootPath("relative/path"); err == nil {
		t.Error("relative root accepted")
	}
}

func TestPureHelpers(t *testing.T) {
	if got := ParentPath("/ws/notes/a.txt"); got != "/ws/notes" {
		t.Errorf("ParentPath = %q", got)
	}
	if got := ParentPath("/top"); got != "/" {
		t.Errorf("ParentPath(/top) = %q", got)
	}
	if got := ParentPath("name"); got != "" {
		t.Errorf("ParentPath(name) = %q", got)
	}
	if got := FileName("/ws/notes/a.txt"); got != "a.txt" {
		t.Errorf("FileName = %q", got)
	}
	if got := FileName("plain"); got != "plain" {
		t.Errorf("FileName(plain) = %q", got)
	}
	if got := Extension("report.MD"); got != "md" {
		t.Errorf("Extension = %q", got)
	}
	if got := Extension(".hidden"); got != "" {
		t.Errorf("Extension(.hidden) = %q", got)
	}
	if got := Extension("noext"); got != "" {
		t.Errorf("Extension(noext) = %q", got)
	}
	if got := Extension("trailing."); got != "" {
		t.Errorf("Extension(trailing.) = %q", got)
	}
}
