package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"monolith.network/netpkg/internal/errors"
	"monolith.network/netpkg/internal/services"
)

func newGenerateCommand(configPath *string) *cobra.Command {
	var showDiff bool

	cmd := &cobra.Command{
		Use:       "generate dhcp|dns",
		Short:     "Regenerate the DHCP or DNS daemon configuration",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"dhcp", "dns"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(*configPath, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			var res services.GenerationResult
			switch args[0] {
			case "dhcp":
				res = a.dhcp.Generate(cmd.Context())
			case "dns":
				res = a.dns.Generate(cmd.Context())
			default:
				return errors.Errorf(errors.KindValidation, "unknown service %q (use dhcp or dns)", args[0])
			}
			return printGeneration(cmd, res, showDiff)
		},
	}
	cmd.Flags().BoolVarP(&showDiff, "diff", "d", false, "Print the diff of each changed file")
	return cmd
}

func printGeneration(cmd *cobra.Command, res services.GenerationResult, showDiff bool) error {
	out := cmd.OutOrStdout()
	switch {
	case !res.Success:
		return errors.Errorf(errors.KindInternal, "generation failed: %s", res.Error)
	case res.Skipped:
		fmt.Fprintf(out, "skipped: %s\n", res.Reason)
		return nil
	}
	for _, f := range res.Files {
		fmt.Fprintf(out, "wrote %s\n", f)
		if d := res.Diffs[f]; showDiff && d != "" {
			fmt.Fprint(out, d)
		}
	}
	if len(res.Metadata) > 0 {
		meta, _ := json.Marshal(res.Metadata)
		fmt.Fprintf(out, "metadata: %s\n", meta)
	}
	return nil
}
