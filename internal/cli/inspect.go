package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stdexport/stdexport-sdk/domain/entities"
	"github.com/stdexport/stdexport-sdk/peimage"
)

func inspectCmd() *cobra.Command {
	var asJSON bool

	c := &cobra.Command{
		Use:   "inspect <dll>",
		Short: "Print the export table and check for unwinding metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := peimage.Open(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(img)
			}

			fmt.Fprintf(out, "%s  machine=0x%04x dll=%t sha256=%s\n", img.Path, img.Machine, img.IsDLL, img.SHA256)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ORDINAL\tNAME\tRVA\tCONVENTION\tARG BYTES")
			for _, e := range img.Exports {
				dec := entities.ParseDecoratedName(e.Name)
				argBytes := "?"
				if dec.ArgBytes >= 0 {
					argBytes = fmt.Sprint(dec.ArgBytes)
				}
				target := fmt.Sprintf("0x%08x", e.RVA)
				if e.Forwarder != "" {
					target = "-> " + e.Forwarder
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.Ordinal, e.Name, target, dec.Convention, argBytes)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			return printReport(out, peimage.CheckLibrary(img))
		},
	}

	c.Flags().BoolVar(&asJSON, "json", false, "print the parsed image as JSON")
	return c
}
