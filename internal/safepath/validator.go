// Package safepath decides whether a caller-supplied path designates a
// location inside the workspace root, and produces the canonical absolute
// form if so. It performs no I/O; symlink targets are checked here only
// after a backend has resolved them.
package safepath

import (
	"strings"

	"github.com/paperbase/paperbase/pkg/fserr"
)

// Validator validates paths against a single workspace root. All methods
// are free of per-call mutable state and safe for concurrent use; the
// root is replaced wholesale via SetRootPath when a workspace switches.
type Validator struct {
	root string // normalized absolute path, forward slashes, no trailing slash
}

// New creates a Validator for the given workspace root. The root must be
// an absolute path.
func New(root string) (*Validator, error) {
	v := &Validator{}
	if err := v.SetRootPath(root); err != nil {
		return nil, err
	}
	return v, nil
}

// SetRootPath replaces the workspace root, re-normalizing it.
func (v *Validator) SetRootPath(root string) error {
	normalized := NormalizePath(root)
	if !isAbsolute(normalized) {
		return fserr.NewSecurityError(fserr.ReasonInvalidPath, root, "workspace root must be absolute")
	}
	v.root = normalized
	return nil
}

// RootPath returns the normalized workspace root.
func (v *Validator) RootPath() string {
	return v.root
}

// NormalizePath replaces backslashes with forward slashes and strips one
// trailing slash (filesystem root excepted). Pure string transform, no
// validation.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = p[:len(p)-1]
	}
	return p
}

// JoinPath normalizes and concatenates segments with "/", dropping empty
// segments.
func JoinPath(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		seg = NormalizePath(seg)
		seg = strings.Trim(seg, "/")
		if seg == "" {
			continue
		}
		parts = append(parts, seg)
	}
	joined := strings.Join(parts, "/")
	if len(segments) > 0 && strings.HasPrefix(NormalizePath(segments[0]), "/") {
		return "/" + joined
	}
	return joined
}

// isAbsolute reports whether a normalized path is absolute. Both POSIX
// ("/x") and drive-letter ("C:/x") forms count so that a Windows-style
// absolute path cannot masquerade as a relative one.
func isAbsolute(p string) bool {
	if strings.HasPrefix(p, "/") {
		return true
	}
	if len(p) >= 2 && p[1] == ':' &&
		((p[0] >= 'a' && p[0] <= 'z') || (p[0] >= 'A' && p[0] <= 'Z')) {
		return true
	}
	return false
}

// ToAbsolutePath converts a relative-or-absolute path to an absolute path
// under the workspace root. An absolute input already under the root is
// returned as-is; an absolute input outside the root fails with
// ABSOLUTE_PATH_IN_RELATIVE_CONTEXT; anything else is joined under root.
func (v *Validator) ToAbsolutePath(p string) (string, error) {
	p = NormalizePath(p)
	if v.hasRootPrefix(p) {
		return p, nil
	}
	if isAbsolute(p) {
		return "", fserr.NewSecurityError(fserr.ReasonAbsolutePathInRelativeContext, p,
			"absolute path outside workspace "+v.root)
	}
	return JoinPath(v.root, p), nil
}

// traversal signatures checked against the raw string before any
// resolution runs. Encoded forms are matched case-insensitively so that
// %2E%2e variants cannot slip past.
func hasTraversalSignature(p string) bool {
	if strings.Contains(p, "../") || strings.Contains(p, "..\\") {
		return true
	}
	if strings.HasSuffix(p, "..") {
		return true
	}
	if strings.Contains(p, "...") {
		return true
	}
	lower := strings.ToLower(p)
	if strings.Contains(lower, "%2e%2e") || strings.Contains(lower, "%252e%252e") {
		return true
	}
	return false
}

// ValidatePath is the primary entry point: it scans the raw string for
// traversal signatures, converts to an absolute path, resolves "." and
// ".." segments without ever climbing above the root, and finally checks
// containment. Returns the canonical absolute path.
func (v *Validator) ValidatePath(p string) (string, error) {
	if hasTraversalSignature(p) {
		return "", fserr.NewSecurityError(fserr.ReasonPathTraversal, p, "traversal sequence in path")
	}
	if strings.ContainsRune(p, '\x00') {
		return "", fserr.NewSecurityError(fserr.ReasonInvalidPath, p, "null byte in path")
	}

	abs, err := v.ToAbsolutePath(p)
	if err != nil {
		return "", err
	}

	resolved := v.resolveSegments(abs)

	if !v.IsWithinWorkspace(resolved) {
		return "", fserr.NewSecurityError(fserr.ReasonOutsideWorkspace, p,
			"resolved to "+resolved+" outside "+v.root)
	}
	return resolved, nil
}

// resolveSegments resolves "." and ".." segments of an absolute path
// already anchored at the root. Popping past the root segment list is a
// no-op rather than an escape; the raw-string scan has already rejected
// any literal "..", so this path is defense-in-depth for inputs
// constructed by the join step itself.
func (v *Validator) resolveSegments(abs string) string {
	rootSegments := splitSegments(v.root)
	floor := len(rootSegments)

	absSegments := splitSegments(abs)
	if len(absSegments) < floor {
		absSegments = rootSegments
	}

	resolved := append([]string(nil), rootSegments...)
	for _, seg := range absSegments[floor:] {
		switch seg {
		case "", ".":
			// skip
		case "..":
			if len(resolved) > floor {
				resolved = resolved[:len(resolved)-1]
			}
		default:
			resolved = append(resolved, seg)
		}
	}
	prefix := ""
	if strings.HasPrefix(v.root, "/") {
		prefix = "/"
	}
	return prefix + strings.Join(resolved, "/")
}

func splitSegments(p string) []string {
	p = strings.Trim(NormalizePath(p), "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// hasRootPrefix reports whether p is the root or sits under it as a true
// path-segment prefix, so a sibling like "/workspace-evil" never matches
// root "/workspace".
func (v *Validator) hasRootPrefix(p string) bool {
	if p == v.root {
		return true
	}
	if v.root == "/" {
		return strings.HasPrefix(p, "/")
	}
	return strings.HasPrefix(p, v.root+"/")
}

// IsWithinWorkspace reports whether a normalized absolute path lies
// inside the workspace root, compared segment-wise rather than as a
// string prefix.
func (v *Validator) IsWithinWorkspace(p string) bool {
	return v.hasRootPrefix(NormalizePath(p))
}

// GetRelativePath is the inverse of ToAbsolutePath: it strips the root
// from an absolute path, failing with OUTSIDE_WORKSPACE when the input is
// not under the root. The root itself maps to "".
func (v *Validator) GetRelativePath(abs string) (string, error) {
	abs = NormalizePath(abs)
	if !v.hasRootPrefix(abs) {
		return "", fserr.NewSecurityError(fserr.ReasonOutsideWorkspace, abs, "not under "+v.root)
	}
	rel := strings.TrimPrefix(abs, v.root)
	return strings.TrimPrefix(rel, "/"), nil
}

// ValidateSymlinkTarget applies the containment check to a symlink's
// resolved target. An escape discovered here gets SYMLINK_ESCAPE, not
// PATH_TRAVERSAL: the cause is following a link, not the literal path
// string.
func (v *Validator) ValidateSymlinkTarget(symlinkPath, resolvedTarget string) (string, error) {
	target := NormalizePath(resolvedTarget)
	if !v.IsWithinWorkspace(target) {
		return "", fserr.NewSecurityError(fserr.ReasonSymlinkEscape, symlinkPath,
			"symlink resolves to "+target+" outside "+v.root)
	}
	return target, nil
}

// ValidateName validates a leaf name (not a path) for rename/create
// operations. Traversal signatures are rejected as PATH_TRAVERSAL;
// separators, dot names, null bytes, control characters, and
// empty/whitespace-only names as INVALID_PATH.
func ValidateName(name string) (string, error) {
	if hasTraversalSignature(name) {
		return "", fserr.NewSecurityError(fserr.ReasonPathTraversal, name, "traversal sequence in name")
	}
	if strings.TrimSpace(name) == "" {
		return "", fserr.NewSecurityError(fserr.ReasonInvalidPath, name, "empty name")
	}
	if strings.ContainsAny(name, "/\\") {
		return "", fserr.NewSecurityError(fserr.ReasonInvalidPath, name, "path separator in name")
	}
	if name == "." || name == ".." {
		return "", fserr.NewSecurityError(fserr.ReasonInvalidPath, name, "reserved name")
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return "", fserr.NewSecurityError(fserr.ReasonInvalidPath, name, "control character in name")
		}
	}
	return name, nil
}

// ParentPath returns the parent of a normalized path, or "" at the top.
func ParentPath(p string) string {
	p = NormalizePath(p)
	idx := strings.LastIndex(p, "/")
	if idx <= 0 {
		if idx == 0 && len(p) > 1 {
			return "/"
		}
		return ""
	}
	return p[:idx]
}

// FileName returns the last segment of a path.
func FileName(p string) string {
	p = NormalizePath(p)
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return p
	}
	return p[idx+1:]
}

// Extension returns the lowercase extension of a file name without the
// dot, or "" when there is none.
func Extension(p string) string {
	name := FileName(p)
	idx := strings.LastIndex(name, ".")
	if idx <= 0 || idx == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}
