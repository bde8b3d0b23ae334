// Package workspace provides the facade every caller uses for file
// operations inside an open workspace. It composes the path validator
// with a storage backend, adds parent-directory auto-creation, re-checks
// symlink targets after backend resolution, and builds recursive tree
// listings with cycle and escape pruning.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/paperbase/paperbase/internal/metrics"
	"github.com/paperbase/paperbase/internal/safepath"
	"github.com/paperbase/paperbase/internal/storage"
	"github.com/paperbase/paperbase/pkg/fserr"
	"github.com/paperbase/paperbase/pkg/models"
	"github.com/paperbase/paperbase/pkg/tree"
)

// ErrNotInitialized is returned by every operation other than Initialize
// while no workspace is open. It is a precondition failure, not a
// security rejection.
var ErrNotInitialized = errors.New("workspace not initialized")

// Config holds service construction settings.
type Config struct {
	// TrashDir is the reserved top-level folder for soft-deleted items.
	// It is listed in tree output but never recursed into.
	TrashDir string

	// DefaultFolders are provisioned when Initialize is asked to create
	// the default structure.
	DefaultFolders []string
}

// InitOptions configures a single Initialize call.
type InitOptions struct {
	// CreateIfMissing provisions the root directory when absent.
	CreateIfMissing bool

	// CreateDefaultStructure provisions the default folder set and the
	// trash folder after binding.
	CreateDefaultStructure bool
}

// Service is the only entry point the rest of the application calls for
// file I/O. Every operation fully validates its own path before touching
// storage; concurrent operations against different paths are safe,
// operations racing on the same path surface backend errors as-is.
type Service struct {
	mu        sync.RWMutex
	backend   storage.Backend
	validator *safepath.Validator
	ws        *models.Workspace

	logger         *zap.Logger
	trashDir       string
	defaultFolders []string

	// launch spawns the OS file manager; swapped out in tests.
	launch func(argv []string) error
}

// New creates an uninitialized service.
func New(cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	trashDir := cfg.TrashDir
	if trashDir == "" {
		trashDir = ".trash"
	}
	return &Service{
		logger:         logger,
		trashDir:       trashDir,
		defaultFolders: cfg.DefaultFolders,
		launch:         spawnDetached,
	}
}

// Initialize binds a backend and validator to a root, verifies the root
// is a directory (creating it if requested), optionally provisions the
// default folder set, and returns a workspace descriptor.
func (s *Service) Initialize(ctx context.Context, backend storage.Backend, rootPath string, opts InitOptions) (*models.Workspace, error) {
	abs, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", rootPath, err)
	}

	info, err := os.Stat(abs)
	switch {
	case err != nil && os.IsNotExist(err):
		if !opts.CreateIfMissing {
			return nil, fmt.Errorf("workspace root %s does not exist", abs)
		}
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return nil, fmt.Errorf("create workspace root %s: %w", abs, err)
		}
		info, err = os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("stat workspace root %s: %w", abs, err)
		}
	case err != nil:
		return nil, fmt.Errorf("stat workspace root %s: %w", abs, err)
	case !info.IsDir():
		return nil, fmt.Errorf("workspace root %s is a file, not a directory", abs)
	}

	// Pin the root to its fully resolved form so later symlink-target
	// comparisons are against real paths.
	if resolved, rerr := filepath.EvalSymlinks(abs); rerr == nil {
		abs = resolved
	}

	if backend.RootPath() != abs {
		if err := backend.SetRootPath(abs); err != nil {
			return nil, fmt.Errorf("bind backend to %s: %w", abs, err)
		}
	}

	validator, err := safepath.New(abs)
	if err != nil {
		return nil, err
	}

	if opts.CreateDefaultStructure {
		folders := append(append([]string(nil), s.defaultFolders...), s.trashDir)
		for _, name := range folders {
			if _, err := safepath.ValidateName(name); err != nil {
				return nil, err
			}
			if err := backend.Mkdir(ctx, name); err != nil {
				return nil, err
			}
		}
	}

	ws := &models.Workspace{
		ID:        uuid.NewString(),
		RootPath:  validator.RootPath(),
		Name:      filepath.Base(abs),
		CreatedAt: info.ModTime(),
		OpenedAt:  time.Now(),
	}

	s.mu.Lock()
	s.backend = backend
	s.validator = validator
	s.ws = ws
	s.mu.Unlock()

	s.logger.Info("workspace initialized",
		zap.String("root", ws.RootPath),
		zap.String("backend", backend.Type()),
		zap.Bool("default_structure", opts.CreateDefaultStructure))

	return ws, nil
}

// Close releases the backend and drops the validator. The service
// returns to the uninitialized state.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backend == nil {
		return nil
	}
	err := s.backend.Close()
	s.backend = nil
	s.validator = nil
	s.ws = nil
	return err
}

// Workspace returns the descriptor of the open workspace, or nil.
func (s *Service) Workspace() *models.Workspace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ws
}

// GetRootPath returns the open workspace root, or "".
func (s *Service) GetRootPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.validator == nil {
		return ""
	}
	return s.validator.RootPath()
}

// session snapshots the bound backend/validator pair, failing while
// uninitialized.
func (s *Service) session() (storage.Backend, *safepath.Validator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.backend == nil {
		return nil, nil, ErrNotInitialized
	}
	return s.backend, s.validator, nil
}

// resolve validates a caller-supplied path and translates it to the
// backend-relative form.
func (s *Service) resolve(validator *safepath.Validator, p string) (abs, rel string, err error) {
	abs, err = validator.ValidatePath(p)
	if err != nil {
		s.observeRejection(p, err)
		return "", "", err
	}
	rel, err = validator.GetRelativePath(abs)
	if err != nil {
		return "", "", err
	}
	return abs, rel, nil
}

func (s *Service) observeRejection(p string, err error) {
	reason := fserr.SecurityReasonOf(err)
	if reason == "" {
		return
	}
	metrics.ObserveSecurityRejection(string(reason))
	s.logger.Warn("path rejected",
		zap.String("path", p),
		zap.String("reason", string(reason)))
}

// ensureSymlinkSafe re-validates containment of whatever the backend
// resolves the path to. A backend may legitimately resolve a symlink the
// validator never saw in literal form; skipping this would let a link
// planted inside the workspace redirect reads outside it.
func (s *Service) ensureSymlinkSafe(ctx context.Context, backend storage.Backend, validator *safepath.Validator, abs, rel string) error {
	target, err := backend.ResolveSymlink(ctx, rel)
	if err != nil {
		// Nothing to resolve yet; a missing path surfaces in the
		// operation itself.
		return nil
	}
	if _, err := validator.ValidateSymlinkTarget(abs, safepath.NormalizePath(target)); err != nil {
		s.observeRejection(abs, err)
		return err
	}
	return nil
}

// checkNotNested rejects a move/copy destination equal to or inside the
// source. Both paths pass containment on their own, so without this a
// recursive copy would descend into the entries it is itself creating.
func (s *Service) checkNotNested(srcRel, dstRel, rawDst string) error {
	if srcRel == "" || dstRel == srcRel || strings.HasPrefix(dstRel, srcRel+"/") {
		err := fserr.NewSecurityError(fserr.ReasonInvalidPath, rawDst,
			"destination is inside source "+srcRel)
		s.observeRejection(rawDst, err)
		return err
	}
	return nil
}

// ensureParentDir auto-creates the parent directory of a target path.
func (s *Service) ensureParentDir(ctx context.Context, backend storage.Backend, rel string) error {
	parent := path.Dir(rel)
	if parent == "." || parent == "" || parent == "/" {
		return nil
	}
	return backend.Mkdir(ctx, parent)
}

// ReadFile reads file contents as a string.
func (s *Service) ReadFile(ctx context.Context, p string) (content string, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("read", start, err) }()

	backend, validator, err := s.session()
	if err != nil {
		return "", err
	}
	abs, rel, err := s.resolve(validator, p)
	if err != nil {
		return "", err
	}
	if err = s.ensureSymlinkSafe(ctx, backend, validator, abs, rel); err != nil {
		return "", err
	}
	return backend.Read(ctx, rel)
}

// ReadFileBinary reads raw file contents.
func (s *Service) ReadFileBinary(ctx context.Context, p string) (data []byte, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("read", start, err) }()

	backend, validator, err := s.session()
	if err != nil {
		return nil, err
	}
	abs, rel, err := s.resolve(validator, p)
	if err != nil {
		return nil, err
	}
	if err = s.ensureSymlinkSafe(ctx, backend, validator, abs, rel); err != nil {
		return nil, err
	}
	return backend.ReadBinary(ctx, rel)
}

// WriteFile writes string content, auto-creating the parent directory.
func (s *Service) WriteFile(ctx context.Context, p, content string) error {
	return s.writeFile(ctx, p, func(backend storage.Backend, rel string) error {
		return backend.Write(ctx, rel, content)
	})
}

// WriteFileBinary writes raw content, auto-creating the parent directory.
func (s *Service) WriteFileBinary(ctx context.Context, p string, data []byte) error {
	return s.writeFile(ctx, p, func(backend storage.Backend, rel string) error {
		return backend.WriteBinary(ctx, rel, data)
	})
}

func (s *Service) writeFile(ctx context.Context, p string, write func(storage.Backend, string) error) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("write", start, err) }()

	backend, validator, err := s.session()
	if err != nil {
		return err
	}
	_, rel, err := s.resolve(validator, p)
	if err != nil {
		return err
	}
	if err = s.ensureParentDir(ctx, backend, rel); err != nil {
		return err
	}
	return write(backend, rel)
}

// Exists checks whether a path exists.
func (s *Service) Exists(ctx context.Context, p string) (bool, error) {
	backend, validator, err := s.session()
	if err != nil {
		return false, err
	}
	_, rel, err := s.resolve(validator, p)
	if err != nil {
		return false, err
	}
	return backend.Exists(ctx, rel)
}

// CheckPath probes a path for existence and type. A missing path is a
// result, not an error.
func (s *Service) CheckPath(ctx context.Context, p string) (*models.PathCheck, error) {
	backend, validator, err := s.session()
	if err != nil {
		return nil, err
	}
	_, rel, err := s.resolve(validator, p)
	if err != nil {
		return nil, err
	}

	st, err := backend.Stat(ctx, rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &models.PathCheck{}, nil
		}
		return nil, err
	}
	return &models.PathCheck{
		Exists:      true,
		IsFile:      st.Type == models.NodeFile,
		IsDirectory: st.Type == models.NodeFolder,
	}, nil
}

// Delete removes a file or a folder with all its contents.
func (s *Service) Delete(ctx context.Context, p string) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("delete", start, err) }()

	backend, validator, err := s.session()
	if err != nil {
		return err
	}
	_, rel, err := s.resolve(validator, p)
	if err != nil {
		return err
	}
	return backend.Delete(ctx, rel)
}

// Move moves a file or folder, re-checking the source for symlink escape
// and auto-creating the destination's parent directory.
func (s *Service) Move(ctx context.Context, src, dst string) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("move", start, err) }()

	backend, validator, err := s.session()
	if err != nil {
		return err
	}
	srcAbs, srcRel, err := s.resolve(validator, src)
	if err != nil {
		return err
	}
	_, dstRel, err := s.resolve(validator, dst)
	if err != nil {
		return err
	}
	if err = s.checkNotNested(srcRel, dstRel, dst); err != nil {
		return err
	}
	if err = s.ensureSymlinkSafe(ctx, backend, validator, srcAbs, srcRel); err != nil {
		return err
	}
	if err = s.ensureParentDir(ctx, backend, dstRel); err != nil {
		return err
	}
	return backend.Move(ctx, srcRel, dstRel)
}

// Copy copies a file or folder recursively, with the same source symlink
// check and destination parent auto-creation as Move.
func (s *Service) Copy(ctx context.Context, src, dst string) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("copy", start, err) }()

	backend, validator, err := s.session()
	if err != nil {
		return err
	}
	srcAbs, srcRel, err := s.resolve(validator, src)
	if err != nil {
		return err
	}
	_, dstRel, err := s.resolve(validator, dst)
	if err != nil {
		return err
	}
	if err = s.checkNotNested(srcRel, dstRel, dst); err != nil {
		return err
	}
	if err = s.ensureSymlinkSafe(ctx, backend, validator, srcAbs, srcRel); err != nil {
		return err
	}
	if err = s.ensureParentDir(ctx, backend, dstRel); err != nil {
		return err
	}
	return backend.Copy(ctx, srcRel, dstRel)
}

// Rename changes the leaf name of an entry. The new name must be a bare
// name, not a path.
func (s *Service) Rename(ctx context.Context, p, newName string) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("rename", start, err) }()

	backend, validator, err := s.session()
	if err != nil {
		return err
	}
	_, rel, err := s.resolve(validator, p)
	if err != nil {
		return err
	}
	if _, err = safepath.ValidateName(newName); err != nil {
		s.observeRejection(newName, err)
		return err
	}
	return backend.Rename(ctx, rel, newName)
}

// Mkdir creates a directory. Creating an existing directory is not an
// error; colliding with a file is.
func (s *Service) Mkdir(ctx context.Context, p string) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("mkdir", start, err) }()

	backend, validator, err := s.session()
	if err != nil {
		return err
	}
	_, rel, err := s.resolve(validator, p)
	if err != nil {
		return err
	}
	return backend.Mkdir(ctx, rel)
}

// List returns the single-level contents of a directory, folders first,
// each group alphabetical.
func (s *Service) List(ctx context.Context, p string) (nodes []*models.FileNode, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("list", start, err) }()

	backend, validator, err := s.session()
	if err != nil {
		return nil, err
	}
	_, rel, err := s.resolve(validator, p)
	if err != nil {
		return nil, err
	}
	nodes, err = backend.List(ctx, rel)
	if err != nil {
		return nil, err
	}
	tree.SortNodes(nodes)
	return nodes, nil
}

// Stat returns metadata for one entry.
func (s *Service) Stat(ctx context.Context, p string) (st *models.FileStat, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("stat", start, err) }()

	backend, validator, err := s.session()
	if err != nil {
		return nil, err
	}
	_, rel, err := s.resolve(validator, p)
	if err != nil {
		return nil, err
	}
	return backend.Stat(ctx, rel)
}

// GetFileTree returns a fresh recursive listing of the whole workspace.
// The trash folder is listed but never recursed into; a folder whose
// symlink target escapes the workspace, repeats an already-visited
// target, or cannot be read degrades to an empty folder instead of
// failing the whole tree.
func (s *Service) GetFileTree(ctx context.Context) (nodes []*models.FileNode, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("tree", start, err) }()

	backend, validator, err := s.session()
	if err != nil {
		return nil, err
	}
	nodes, err = s.buildTree(ctx, backend, validator, "", map[string]bool{})
	if err != nil {
		return nil, err
	}
	metrics.SetTreeNodes(tree.CountNodes(nodes))
	return nodes, nil
}

func (s *Service) buildTree(ctx context.Context, backend storage.Backend, validator *safepath.Validator, rel string, visited map[string]bool) ([]*models.FileNode, error) {
	nodes, err := backend.List(ctx, rel)
	if err != nil {
		return nil, err
	}

	for _, n := range nodes {
		if !n.IsDir() {
			continue
		}
		n.Children = []*models.FileNode{}

		// Only the reserved top-level trash folder is held back; a user
		// folder with the same name deeper in the tree is ordinary.
		if n.Path == "/"+s.trashDir {
			continue
		}

		childRel := strings.TrimPrefix(n.Path, "/")

		if isLink, linkErr := backend.IsSymlink(ctx, childRel); linkErr == nil && isLink {
			target, targetErr := backend.ResolveSymlink(ctx, childRel)
			if targetErr != nil {
				continue
			}
			target = safepath.NormalizePath(target)
			if !validator.IsWithinWorkspace(target) {
				s.logger.Warn("pruning symlinked folder escaping workspace",
					zap.String("path", n.Path), zap.String("target", target))
				continue
			}
			if visited[target] {
				continue
			}
			visited[target] = true
		}

		children, childErr := s.buildTree(ctx, backend, validator, childRel, visited)
		if childErr != nil {
			s.logger.Warn("degrading unreadable folder to empty listing",
				zap.String("path", n.Path), zap.Error(childErr))
			continue
		}
		n.Children = children
	}

	tree.SortNodes(nodes)
	return nodes, nil
}
