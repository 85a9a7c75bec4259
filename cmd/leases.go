package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newLeasesCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leases",
		Short: "Lease file reconciliation and listing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newLeasesSyncCommand(configPath))
	cmd.AddCommand(newLeasesListCommand(configPath))
	return cmd
}

func newLeasesSyncCommand(configPath *string) *cobra.Command {
	var leaseFile string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the lease file into the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(*configPath, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			path := a.dhcp.LeaseFile()
			if leaseFile != "" {
				path = leaseFile
			}
			res, err := a.dhcp.Reconciler().SyncFile(cmd.Context(), path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "parsed %d, updated %d, failed %d\n", res.Parsed, res.Updated, res.Failed)
			return nil
		},
	}
	cmd.Flags().StringVarP(&leaseFile, "file", "f", "", "Lease file to read (overrides config)")
	return cmd
}

func newLeasesListCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored leases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(*configPath, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			leases, err := a.dhcp.GetLeases(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "IP\tMAC\tHOSTNAME\tSTATE\tEXPIRES")
			for _, l := range leases {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", l.IP, l.MAC, l.Hostname, l.State, l.End.Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
}
