package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stdexport/stdexport-sdk/peimage"
)

func compareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare <old.dll> <new.dll>",
		Short: "Check that two builds expose the same export surface",
		Long: "compare checks that a rebuild, for example with a different linker, " +
			"keeps every export name, ordinal and forwarder. Byte-level differences are reported but are not failures.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := peimage.Open(args[0])
			if err != nil {
				return err
			}
			b, err := peimage.Open(args[1])
			if err != nil {
				return err
			}
			cmp := peimage.Compare(a, b)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "bytes differ: %t\n", cmp.BytesDiffer)
			return printReport(out, cmp.Report)
		},
	}
}
