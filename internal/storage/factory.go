package storage

import (
	"fmt"
	"os"
	"runtime"

	"go.uber.org/zap"
)

// Kind identifies the closed set of backend implementations.
type Kind string

const (
	// KindAuto selects a kind by capability detection.
	KindAuto Kind = "auto"

	// KindNative is the direct-OS-access backend.
	KindNative Kind = "native"

	// KindSandbox is the capability-handle backend.
	KindSandbox Kind = "sandbox"
)

// Constructor builds an unbound Backend. The two implementations
// register themselves here at init time so the factory package does not
// import them (they import storage for the interface).
type Constructor func(logger *zap.Logger) Backend

var constructors = map[Kind]Constructor{}

// Register installs a backend constructor for a kind. Called from the
// implementation packages' init functions.
func Register(kind Kind, ctor Constructor) {
	constructors[kind] = ctor
}

// DetectKind performs the one-shot environment detection used by
// KindAuto: runtimes without direct OS path access get the sandboxed
// capability backend, everything else the native one.
func DetectKind() Kind {
	if runtime.GOOS == "js" || runtime.GOOS == "wasip1" {
		return KindSandbox
	}
	return KindNative
}

// Options configures backend construction at workspace-open time.
type Options struct {
	// Kind selects the implementation; KindAuto detects one.
	Kind Kind

	// RootPath is the workspace root the backend binds to.
	RootPath string

	// CreateIfMissing provisions the root directory when absent.
	CreateIfMissing bool

	Logger *zap.Logger
}

// NewBackend selects, constructs, and binds a backend. It runs once when
// a workspace opens and is never used afterward.
func NewBackend(opts Options) (Backend, error) {
	kind := opts.Kind
	if kind == "" || kind == KindAuto {
		kind = DetectKind()
	}

	ctor, ok := constructors[kind]
	if !ok {
		return nil, fmt.Errorf("unknown backend kind: %s", kind)
	}

	if opts.RootPath == "" {
		return nil, fmt.Errorf("root path is required")
	}
	if opts.CreateIfMissing {
		if err := os.MkdirAll(opts.RootPath, 0o755); err != nil {
			return nil, fmt.Errorf("create root %s: %w", opts.RootPath, err)
		}
	}

	backend := ctor(opts.Logger)
	if err := backend.SetRootPath(opts.RootPath); err != nil {
		return nil, fmt.Errorf("bind %s backend: %w", kind, err)
	}
	return backend, nil
}
