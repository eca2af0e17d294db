package cli

import (
	"github.com/spf13/cobra"

	"github.com/stdexport/stdexport-sdk/internal/exportlint"
)

func lintCmd() *cobra.Command {
	var goos, goarch, dir string

	c := &cobra.Command{
		Use:   "lint <package>",
		Short: "Check exported entry points of a library package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := []string{"GOOS=" + goos, "GOARCH=" + goarch}
			if goos == "windows" {
				env = append(env, "CGO_ENABLED=1")
			}
			report, err := exportlint.Lint(cmd.Context(), dir, args[0], env)
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), report)
		},
	}

	c.Flags().StringVar(&goos, "goos", "windows", "target GOOS")
	c.Flags().StringVar(&goarch, "goarch", "386", "target GOARCH")
	c.Flags().StringVar(&dir, "dir", ".", "directory to resolve the package from")
	return c
}
