package workspace

import (
	"context"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/paperbase/paperbase/internal/metrics"
	"github.com/paperbase/paperbase/internal/safepath"
	"github.com/paperbase/paperbase/pkg/fserr"
	"github.com/paperbase/paperbase/pkg/models"
)

// explorerArgv returns the file-manager launch command for a directory
// on the given platform.
func explorerArgv(goos, dir string) []string {
	switch goos {
	case "windows":
		return []string{"explorer", dir}
	case "darwin":
		return []string{"open", dir}
	default:
		return []string{"xdg-open", dir}
	}
}

func spawnDetached(argv []string) error {
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

// OpenInExplorer reveals a path in the OS file manager. A file opens its
// parent directory; a folder opens itself. The spawned process is not
// waited on.
func (s *Service) OpenInExplorer(ctx context.Context, p string) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("open", start, err) }()

	backend, validator, err := s.session()
	if err != nil {
		return err
	}
	abs, rel, err := s.resolve(validator, p)
	if err != nil {
		return err
	}
	if err = s.ensureSymlinkSafe(ctx, backend, validator, abs, rel); err != nil {
		return err
	}

	st, err := backend.Stat(ctx, rel)
	if err != nil {
		return err
	}

	target := abs
	if st.Type == models.NodeFile {
		target = safepath.ParentPath(abs)
	}

	if err = s.launch(explorerArgv(runtime.GOOS, filepath.FromSlash(target))); err != nil {
		return fserr.NewOpError(fserr.OpOpen, rel, err)
	}
	return nil
}
