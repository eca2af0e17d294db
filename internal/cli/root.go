// Package cli implements the exportcheck command.
package cli

import (
	stdErrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/stdexport/stdexport-sdk/domain/entities"
	sdklog "github.com/stdexport/stdexport-sdk/log"
)

// errFindings is returned when a check produced error findings. The
// findings have already been printed.
var errFindings = stdErrors.New("checks failed")

// Execute runs the command and exits with status 1 on any failure.
func Execute() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		if !stdErrors.Is(err, errFindings) {
			fmt.Fprintln(os.Stderr, "exportcheck:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:           "exportcheck",
		Short:         "Verify stdcall export libraries and their build profiles",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			cfg := sdklog.DefaultConfig()
			cfg.Writer = cmd.ErrOrStderr()
			if debug {
				cfg.Level = slog.LevelDebug
			}
			slog.SetDefault(sdklog.Setup(cfg))
		},
	}

	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	cmd.AddCommand(
		inspectCmd(),
		verifyCmd(),
		compareCmd(),
		planCmd(),
		schemaCmd(),
		lintCmd(),
	)
	return cmd
}

// printReport writes findings and returns errFindings if the report failed.
func printReport(w io.Writer, r *entities.Report) error {
	for _, f := range r.Findings {
		fmt.Fprintln(w, f.String())
	}
	if !r.Passed() {
		fmt.Fprintf(w, "%s: FAIL (%d errors)\n", r.Subject, len(r.Errors()))
		return errFindings
	}
	fmt.Fprintf(w, "%s: OK\n", r.Subject)
	return nil
}
