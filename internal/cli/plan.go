package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stdexport/stdexport-sdk/buildcfg"
)

func planCmd() *cobra.Command {
	var profilePath string
	var dir string
	var vars map[string]string
	var extld string
	var extFlags []string

	c := &cobra.Command{
		Use:   "plan",
		Short: "Print the build command for a profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			values := make(map[string]interface{}, len(vars))
			for k, v := range vars {
				values[k] = v
			}
			profile, err := buildcfg.LoadProfile(profilePath, buildcfg.WithVars(values))
			if err != nil {
				return err
			}
			if dir == "" {
				dir = filepath.Dir(profilePath)
			}
			if err := buildcfg.CheckIsolation(profile, dir); err != nil {
				return err
			}

			plan, err := buildcfg.Plan(profile)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, plan.String())

			if extld == "" {
				return nil
			}
			alt, err := buildcfg.Plan(buildcfg.WithLinker(profile, extld, extFlags...))
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "# with linker", extld)
			fmt.Fprintln(out, alt.String())
			for _, d := range buildcfg.Diff(plan, alt) {
				fmt.Fprintln(out, "#", d)
			}
			return nil
		},
	}

	c.Flags().StringVarP(&profilePath, "profile", "p", "", "build profile (required)")
	c.Flags().StringVar(&dir, "dir", "", "directory the build runs in (defaults to the profile's directory)")
	c.Flags().StringToStringVar(&vars, "var", nil, "template values, key=value")
	c.Flags().StringVar(&extld, "with-linker", "", "also print the plan with this external linker")
	c.Flags().StringSliceVar(&extFlags, "with-linker-flag", nil, "linker flags for --with-linker")
	_ = c.MarkFlagRequired("profile")
	return c
}
