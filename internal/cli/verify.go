package cli

import (
	"github.com/spf13/cobra"

	"github.com/stdexport/stdexport-sdk/manifest"
	"github.com/stdexport/stdexport-sdk/peimage"
)

func verifyCmd() *cobra.Command {
	var manifestPath string
	var published string

	c := &cobra.Command{
		Use:   "verify <dll>",
		Short: "Check a built DLL against its export manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := manifest.NewLoader()
			m, err := loader.LoadFile(manifestPath, nil)
			if err != nil {
				return err
			}
			img, err := peimage.Open(args[0])
			if err != nil {
				return err
			}

			report := peimage.CheckLibrary(img)
			report.Merge(manifest.VerifyImage(m, img))
			if published != "" {
				old, err := loader.LoadFile(published, nil)
				if err != nil {
					return err
				}
				report.Merge(manifest.CheckCompatible(old, m))
			}
			report.Subject = args[0]
			return printReport(cmd.OutOrStdout(), report)
		},
	}

	c.Flags().StringVarP(&manifestPath, "manifest", "m", "", "export manifest (required)")
	c.Flags().StringVar(&published, "published", "", "previously published manifest to check compatibility against")
	_ = c.MarkFlagRequired("manifest")
	return c
}
