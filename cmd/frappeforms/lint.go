package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jalsampada/go-frappeforms/pkg/layout"
)

func newLintCmd() *cobra.Command {
	var noColor bool
	cmd := &cobra.Command{
		Use:   "lint [paths...]",
		Short: "Validate layout documents",
		Long: `Check layout files or directories of layouts: known field types, unique
field names across tabs, complete Link/Select/Table definitions and filter
mappings without cycles. Every problem is reported; the command fails when
any is found. Without paths the embedded defaults are checked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true
			}
			out := cmd.OutOrStdout()

			var problems []layout.Problem
			if len(args) == 0 {
				found, err := layout.Lint(layout.EmbeddedFS())
				if err != nil {
					return err
				}
				problems = found
			}
			for _, path := range args {
				found, err := lintPath(path)
				if err != nil {
					return err
				}
				problems = append(problems, found...)
			}

			if len(problems) == 0 {
				fmt.Fprintln(out, color.GreenString("ok"), "no layout problems")
				return nil
			}
			printProblems(out, problems)
			return fmt.Errorf("%d layout problem(s)", len(problems))
		},
	}
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	return cmd
}

// lintPath lints a directory, or the directory of a single file keeping only
// that file's problems. Reported file names are joined back onto path.
func lintPath(path string) ([]layout.Problem, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	dir, only := path, ""
	if !info.IsDir() {
		dir, only = filepath.Dir(path), filepath.Base(path)
	}
	found, err := layout.Lint(os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("lint %s: %w", path, err)
	}
	out := found[:0]
	for _, p := range found {
		if only != "" && p.File != only {
			continue
		}
		p.File = filepath.Join(dir, filepath.FromSlash(p.File))
		out = append(out, p)
	}
	return out, nil
}

func printProblems(out io.Writer, problems []layout.Problem) {
	file := color.New(color.Bold).SprintFunc()
	where := color.New(color.FgCyan).SprintFunc()
	bad := color.New(color.FgRed).SprintFunc()
	for _, p := range problems {
		var target []string
		if p.Doctype != "" {
			target = append(target, p.Doctype)
		}
		if p.Location != "" {
			target = append(target, p.Location)
		}
		if len(target) == 0 {
			fmt.Fprintf(out, "%s: %s\n", file(p.File), bad(p.Message))
			continue
		}
		fmt.Fprintf(out, "%s: %s -> %s\n", file(p.File), where(strings.Join(target, " ")), bad(p.Message))
	}
}
