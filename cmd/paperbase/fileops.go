package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/paperbase/paperbase/internal/workspace"
)

var initStructure bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create and open a workspace at the configured root",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := openWorkspace(cmd.Context(), initOptionsForCreate())
		if err != nil {
			return err
		}
		defer svc.Close()

		ws := svc.Workspace()
		fmt.Printf("workspace %s ready at %s (id %s)\n", ws.Name, ws.RootPath, ws.ID)
		return nil
	},
}

var catCmd = &cobra.Command{
	Use:   "cat <path>",
	Short: "Print file contents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openWorkspace(cmd.Context(), openOptions())
		if err != nil {
			return err
		}
		defer svc.Close()

		data, err := svc.ReadFileBinary(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

var writeCmd = &cobra.Command{
	Use:   "write <path> [content]",
	Short: "Write file contents (reads stdin when content is omitted)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openWorkspace(cmd.Context(), openOptions())
		if err != nil {
			return err
		}
		defer svc.Close()

		var data []byte
		if len(args) == 2 {
			data = []byte(args[1])
		} else {
			data, err = io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
		}
		return svc.WriteFileBinary(cmd.Context(), args[0], data)
	},
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <path>",
	Short: "Create a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openWorkspace(cmd.Context(), openOptions())
		if err != nil {
			return err
		}
		defer svc.Close()
		return svc.Mkdir(cmd.Context(), args[0])
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <path>",
	Short: "Delete a file or folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openWorkspace(cmd.Context(), openOptions())
		if err != nil {
			return err
		}
		defer svc.Close()
		return svc.Delete(cmd.Context(), args[0])
	},
}

var mvCmd = &cobra.Command{
	Use:   "mv <src> <dst>",
	Short: "Move a file or folder",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openWorkspace(cmd.Context(), openOptions())
		if err != nil {
			return err
		}
		defer svc.Close()
		return svc.Move(cmd.Context(), args[0], args[1])
	},
}

var cpCmd = &cobra.Command{
	Use:   "cp <src> <dst>",
	Short: "Copy a file or folder",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openWorkspace(cmd.Context(), openOptions())
		if err != nil {
			return err
		}
		defer svc.Close()
		return svc.Copy(cmd.Context(), args[0], args[1])
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <path> <new-name>",
	Short: "Rename an entry in place",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openWorkspace(cmd.Context(), openOptions())
		if err != nil {
			return err
		}
		defer svc.Close()
		return svc.Rename(cmd.Context(), args[0], args[1])
	},
}

var statCmd = &cobra.Command{
	Use:   "stat <path>",
	Short: "Show entry metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openWorkspace(cmd.Context(), openOptions())
		if err != nil {
			return err
		}
		defer svc.Close()

		st, err := svc.Stat(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\t%d bytes\tmodified %s", st.Path, st.Type, st.Size, st.ModTime.Format("2006-01-02 15:04:05"))
		if st.IsSymlink {
			fmt.Print("\tsymlink")
		}
		fmt.Println()
		return nil
	},
}

var openCmd = &cobra.Command{
	Use:   "open <path>",
	Short: "Reveal a path in the OS file manager",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openWorkspace(cmd.Context(), openOptions())
		if err != nil {
			return err
		}
		defer svc.Close()
		return svc.OpenInExplorer(cmd.Context(), args[0])
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <path>",
	Short: "Check whether a path exists and its type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openWorkspace(cmd.Context(), openOptions())
		if err != nil {
			return err
		}
		defer svc.Close()

		check, err := svc.CheckPath(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		switch {
		case !check.Exists:
			fmt.Println("missing")
		case check.IsDirectory:
			fmt.Println("directory")
		default:
			fmt.Println("file")
		}
		return nil
	},
}

func openOptions() workspace.InitOptions {
	return workspace.InitOptions{}
}

func initOptionsForCreate() workspace.InitOptions {
	return workspace.InitOptions{CreateIfMissing: true, CreateDefaultStructure: initStructure}
}

func init() {
	initCmd.Flags().BoolVar(&initStructure, "default-structure", true, "provision the default folder set")
}
