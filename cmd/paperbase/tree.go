package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/paperbase/paperbase/pkg/models"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the full workspace tree",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := openWorkspace(cmd.Context(), openOptions())
		if err != nil {
			return err
		}
		defer svc.Close()

		nodes, err := svc.GetFileTree(cmd.Context())
		if err != nil {
			return err
		}
		printNodes(nodes, 0)
		return nil
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openWorkspace(cmd.Context(), openOptions())
		if err != nil {
			return err
		}
		defer svc.Close()

		p := ""
		if len(args) == 1 {
			p = args[0]
		}
		nodes, err := svc.List(cmd.Context(), p)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			suffix := ""
			if n.IsDir() {
				suffix = "/"
			}
			fmt.Println(n.Name + suffix)
		}
		return nil
	},
}

func printNodes(nodes []*models.FileNode, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, n := range nodes {
		if n.IsDir() {
			fmt.Printf("%s%s/\n", indent, n.Name)
			printNodes(n.Children, depth+1)
		} else {
			fmt.Printf("%s%s\n", indent, n.Name)
		}
	}
}
