package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stdexport/stdexport-sdk/buildcfg"
	"github.com/stdexport/stdexport-sdk/manifest"
)

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "schema profile|manifest",
		Short:     "Print the JSON schema of a configuration file",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"profile", "manifest"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var doc []byte
			var err error
			switch args[0] {
			case "profile":
				doc, err = buildcfg.ProfileSchema()
			case "manifest":
				doc, err = manifest.Schema()
			default:
				return fmt.Errorf("unknown schema %q (want profile or manifest)", args[0])
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(doc))
			return err
		},
	}
}
