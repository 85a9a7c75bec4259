package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"monolith.network/netpkg/internal/api"
	"monolith.network/netpkg/internal/health"
	"monolith.network/netpkg/internal/logging"
	"monolith.network/netpkg/internal/services/dhcp"
)

func newServeCommand(configPath *string) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server and the lease watcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(*configPath, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()
			if listen != "" {
				a.cfg.Listen = listen
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "HTTP listen address (overrides config)")
	return cmd
}

// serve runs until ctx is cancelled.
func (a *app) serve(ctx context.Context) error {
	logger := logging.WithComponent("daemon")

	if a.cfg.DHCP.Watch() {
		w := dhcp.NewLeaseWatcher(a.dhcp.LeaseFile(), a.dhcp.Reconciler(), dhcp.DefaultDebounce)
		if err := w.Start(ctx); err != nil {
			// sync-leases still works on demand.
			logger.WithError(err).Warn("lease watcher not started")
		} else {
			defer w.Stop(context.Background())
		}
	}

	srv := api.NewServer(api.ServerOptions{
		DHCP:    a.dhcp,
		DNS:     a.dns,
		Health:  a.healthChecker(),
		Metrics: a.metrics,
	})
	logger.Info("starting", "listen", a.cfg.Listen, "state", a.cfg.StatePath)
	return srv.Run(ctx, a.cfg.Listen)
}

func (a *app) healthChecker() *health.Checker {
	c := health.NewChecker(health.DefaultTTL, nil)
	c.Register("state", health.PingCheck(a.store.Ping))
	c.Register("lease-file", health.FileCheck(a.dhcp.LeaseFile()))
	c.Register("dhcp-service", health.ServiceCheck(a.dhcp.Status))
	c.Register("dns-service", health.ServiceCheck(a.dns.Status))
	return c
}
