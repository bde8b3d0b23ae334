package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/paperbase/paperbase/internal/config"
	"github.com/paperbase/paperbase/internal/logging"
	"github.com/paperbase/paperbase/internal/storage"
	_ "github.com/paperbase/paperbase/internal/storage/native"
	_ "github.com/paperbase/paperbase/internal/storage/sandbox"
	"github.com/paperbase/paperbase/internal/workspace"
)

var (
	cfg *config.Config

	flagRoot    string
	flagBackend string
)

var rootCmd = &cobra.Command{
	Use:   "paperbase",
	Short: "Workspace file operations for the Paperbase local-first app",
	Long: `Paperbase manages a user-selected workspace directory through a
validated virtual filesystem layer: every operation is checked against
the workspace boundary before any I/O runs.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func setup(_ *cobra.Command, _ []string) error {
	// A missing .env file is fine; plain environment variables apply.
	_ = godotenv.Load()

	loaded, err := config.Load()
	if err != nil {
		return err
	}
	cfg = loaded

	if flagRoot != "" {
		cfg.RootPath = flagRoot
	}
	if flagBackend != "" {
		cfg.Backend = flagBackend
	}

	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		return fmt.Errorf("logging init: %w", err)
	}
	return nil
}

// openWorkspace constructs the backend for the configured kind and binds
// a service to the workspace root.
func openWorkspace(ctx context.Context, opts workspace.InitOptions) (*workspace.Service, error) {
	backend, err := storage.NewBackend(storage.Options{
		Kind:            storage.Kind(cfg.Backend),
		RootPath:        cfg.RootPath,
		CreateIfMissing: opts.CreateIfMissing,
		Logger:          logging.L(),
	})
	if err != nil {
		return nil, err
	}

	svc := workspace.New(workspace.Config{
		TrashDir:       cfg.TrashDir,
		DefaultFolders: cfg.DefaultFolders,
	}, logging.L())

	if _, err := svc.Initialize(ctx, backend, cfg.RootPath, opts); err != nil {
		backend.Close()
		return nil, err
	}
	return svc, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", "", "workspace root directory (default $PAPERBASE_ROOT or ~/Paperbase)")
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "storage backend: auto, native, or sandbox")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(catCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(mkdirCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(mvCmd)
	rootCmd.AddCommand(cpCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(statCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}
