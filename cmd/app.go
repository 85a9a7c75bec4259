package cmd

import (
	"os"
	"path/filepath"

	"monolith.network/netpkg/internal/config"
	"monolith.network/netpkg/internal/errors"
	"monolith.network/netpkg/internal/ifaces"
	"monolith.network/netpkg/internal/logging"
	"monolith.network/netpkg/internal/metrics"
	"monolith.network/netpkg/internal/services"
	"monolith.network/netpkg/internal/services/dhcp"
	"monolith.network/netpkg/internal/services/dns"
	"monolith.network/netpkg/internal/state"
)

// app is the object graph shared by every command.
type app struct {
	cfg     *config.Config
	store   *state.SQLiteStore
	metrics *metrics.Registry
	dhcp    *dhcp.Manager
	dns     *dns.Manager
}

// appOptions replaces collaborators that touch the host. Zero values
// select systemd and netlink.
type appOptions struct {
	Controller services.Controller
	Links      ifaces.LinkLister
	Metrics    *metrics.Registry
}

// loadApp reads the configuration at path and builds the app from it.
func loadApp(path string, opts appOptions) (*app, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	setupLogging(cfg)
	return newApp(cfg, opts)
}

func setupLogging(cfg *config.Config) {
	lc := logging.DefaultConfig()
	lc.Level = logging.ParseLevel(cfg.LogLevel)
	lc.JSON = cfg.LogJSON
	logging.SetDefault(logging.New(lc))
}

func newApp(cfg *config.Config, opts appOptions) (*app, error) {
	if opts.Controller == nil {
		opts.Controller = services.NewSystemd()
	}
	if opts.Links == nil {
		opts.Links = ifaces.NewSystemLinks()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Get()
	}

	if cfg.StatePath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.StatePath), 0o755); err != nil {
			return nil, errors.Wrap(err, errors.KindIO, "failed to create state directory")
		}
	}
	store, err := state.NewSQLiteStore(state.DefaultOptions(cfg.StatePath))
	if err != nil {
		return nil, errors.Wrap(err, errors.KindStorage, "failed to open state store")
	}

	dhcpRepo, err := dhcp.NewRepository(store)
	if err != nil {
		store.Close()
		return nil, err
	}
	dnsRepo, err := dns.NewRepository(store)
	if err != nil {
		store.Close()
		return nil, err
	}

	assignments := ifaces.NewFileStore(cfg.Interfaces.AssignmentsFile)

	dhcpGen := dhcp.NewGenerator(dhcpRepo, dhcp.GeneratorOptions{
		Paths:       dhcp.Paths{Config: cfg.DHCP.ConfigPath, Defaults: cfg.DHCP.DefaultsPath},
		Assignments: assignments,
		Metrics:     opts.Metrics,
	})
	dnsGen := dns.NewGenerator(dnsRepo, dns.GeneratorOptions{
		ConfigPath:  cfg.DNS.ConfigPath,
		LeaseFile:   cfg.DHCP.LeaseFile,
		Assignments: assignments,
		Metrics:     opts.Metrics,
	})

	return &app{
		cfg:     cfg,
		store:   store,
		metrics: opts.Metrics,
		dhcp: dhcp.NewManager(dhcpRepo, dhcp.ManagerOptions{
			Generator:   dhcpGen,
			Links:       opts.Links,
			Controller:  opts.Controller,
			ServiceName: cfg.DHCP.Service,
			LeaseFile:   cfg.DHCP.LeaseFile,
			Metrics:     opts.Metrics,
		}),
		dns: dns.NewManager(dnsRepo, dns.ManagerOptions{
			Generator:   dnsGen,
			Controller:  opts.Controller,
			ServiceName: cfg.DNS.Service,
			Metrics:     opts.Metrics,
		}),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
