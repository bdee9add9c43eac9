package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"finitefield.org/doc-status/internal/figures"
)

const defaultDocsDir = "docs"

func newFiguresCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "figures",
		Short: "Maintains figure markup in markdown sources",
	}
	cmd.AddCommand(
		newFiguresSubcommand("convert", "Converts image + italic caption pairs to <figure markdown> blocks", figures.Convert),
		newFiguresSubcommand("fix", "Adds the full-width style to <figure> tags without one", figures.FixStyles),
	)
	return cmd
}

func newFiguresSubcommand(use, short string, transform figures.Transform) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   use + " [dir]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := defaultDocsDir
			if len(args) > 0 {
				root = args[0]
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scanning .md files under '%s/'...\n", root)
			if dryRun {
				fmt.Fprintln(out, "(dry run, no files will be written)")
			}
			summary, err := figures.ProcessDir(root, transform, dryRun, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\nDone. %d change(s) in %d of %d file(s).\n", summary.Replacements, summary.Files, summary.Scanned)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "preview without writing")
	return cmd
}
