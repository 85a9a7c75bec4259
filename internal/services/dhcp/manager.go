package dhcp

import (
	"context"
	"sort"

	"monolith.network/netpkg/internal/clock"
	"monolith.network/netpkg/internal/errors"
	"monolith.network/netpkg/internal/ifaces"
	"monolith.network/netpkg/internal/logging"
	"monolith.network/netpkg/internal/metrics"
	"monolith.network/netpkg/internal/netutil"
	"monolith.network/netpkg/internal/services"
)

// ManagerOptions wires a Manager to its collaborators. Nil Links lists no
// system interfaces; nil Controller makes service control fail.
type ManagerOptions struct {
	Generator   *Generator
	Reconciler  *Reconciler
	Links       ifaces.LinkLister
	Controller  services.Controller
	ServiceName string
	LeaseFile   string
	Clock       clock.Clock
	Metrics     *metrics.Registry
}

// Manager implements the DHCP operations: settings, interfaces, leases
// and control of the DHCP daemon.
type Manager struct {
	repo       *Repository
	generator  *Generator
	reconciler *Reconciler
	links      ifaces.LinkLister
	controller services.Controller
	service    string
	leaseFile  string
	clock      clock.Clock
	metrics    *metrics.Registry
	logger     *logging.Logger
}

// NewManager creates a Manager.
func NewManager(repo *Repository, opts ManagerOptions) *Manager {
	m := &Manager{
		repo:       repo,
		generator:  opts.Generator,
		reconciler: opts.Reconciler,
		links:      opts.Links,
		controller: opts.Controller,
		service:    opts.ServiceName,
		leaseFile:  opts.LeaseFile,
		clock:      clock.OrReal(opts.Clock),
		metrics:    opts.Metrics,
		logger:     logging.WithComponent("dhcp"),
	}
	if m.service == "" {
		m.service = DefaultServiceName
	}
	if m.leaseFile == "" {
		m.leaseFile = DefaultLeaseFile
	}
	if m.reconciler == nil {
		m.reconciler = NewReconciler(repo, m.clock, m.metrics)
	}
	return m
}

// GetSettings returns the global settings, storing the defaults on first
// read.
func (m *Manager) GetSettings(_ context.Context) (*GlobalSettings, error) {
	s, err := m.repo.Settings()
	if err != nil {
		return nil, err
	}
	if s != nil {
		return s, nil
	}

	defaults := DefaultGlobalSettings()
	defaults.UpdatedAt = m.clock.Now()
	if err := m.repo.SaveSettings(&defaults); err != nil {
		return nil, err
	}
	m.logger.Info("created default DHCP settings")
	return &defaults, nil
}

// UpdateSettings validates and stores s, then regenerates the config.
func (m *Manager) UpdateSettings(ctx context.Context, s GlobalSettings) (*GlobalSettings, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	s.UpdatedAt = m.clock.Now()
	if err := m.repo.SaveSettings(&s); err != nil {
		return nil, err
	}

	m.logger.Audit("update", "dhcp.settings", map[string]any{
		"enabled":          s.Enabled,
		"default_lease":    s.DefaultLeaseTime,
		"max_lease":        s.MaxLeaseTime,
		"dns_registration": s.DNSRegistration,
	})
	m.apply(ctx)
	return &s, nil
}

// GetInterfaces returns the stored interface configs merged with the links
// present on the system. Links without a stored config are returned with
// discovered defaults; stored configs for vanished links are kept.
func (m *Manager) GetInterfaces(ctx context.Context) ([]*InterfaceConfig, error) {
	stored, err := m.repo.Interfaces()
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*InterfaceConfig, len(stored))
	for _, c := range stored {
		byName[c.Name] = c
	}

	var links []ifaces.Link
	if m.links != nil {
		if links, err = m.links.ListLinks(ctx); err != nil {
			m.logger.WithError(err).Warn("failed to list system interfaces")
			links = nil
		}
	}

	out := make([]*InterfaceConfig, 0, len(stored)+len(links))
	seen := map[string]bool{}
	for _, l := range links {
		if l.Loopback || l.Name == "lo" || seen[l.Name] {
			continue
		}
		seen[l.Name] = true
		if c, ok := byName[l.Name]; ok {
			out = append(out, c)
			continue
		}
		out = append(out, discoveredInterface(l))
	}
	for _, c := range stored {
		if !seen[c.Name] {
			out = append(out, c)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func discoveredInterface(l ifaces.Link) *InterfaceConfig {
	subnet := NotConfigured
	if addr := l.FirstIPv4(); addr != "" {
		subnet = addr
	}
	return &InterfaceConfig{
		Name:         l.Name,
		Enabled:      l.Up,
		Subnet:       subnet,
		DNSServers:   append([]string(nil), DefaultDNSServers...),
		Domain:       DiscoveredDomain,
		LeaseTime:    DefaultLeaseTime,
		MaxLeaseTime: DefaultMaxLeaseTime,
		ClientPolicy: PolicyAllowAll,
	}
}

// UpdateInterface validates and upserts c by name, then regenerates the
// config.
func (m *Manager) UpdateInterface(ctx context.Context, c InterfaceConfig) (*InterfaceConfig, error) {
	c.Normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.UpdatedAt = m.clock.Now()
	if err := m.repo.SaveInterface(&c); err != nil {
		return nil, err
	}

	m.logger.Audit("update", "dhcp.interface", map[string]any{
		"interface": c.Name,
		"enabled":   c.Enabled,
		"subnet":    c.Subnet,
	})
	m.apply(ctx)
	return &c, nil
}

// GetLeases returns the stored leases ordered by IP with their state
// re-derived against the current time.
func (m *Manager) GetLeases(_ context.Context) ([]*LeaseRecord, error) {
	leases, err := m.repo.Leases()
	if err != nil {
		return nil, err
	}
	now := m.clock.Now()
	for _, l := range leases {
		l.State = l.CurrentState(now)
	}
	sort.SliceStable(leases, func(i, j int) bool {
		return netutil.CompareIP(leases[i].IP, leases[j].IP) < 0
	})
	return leases, nil
}

// SyncLeases reconciles the lease file into the store.
func (m *Manager) SyncLeases(ctx context.Context) (ReconcileResult, error) {
	return m.reconciler.SyncFile(ctx, m.leaseFile)
}

// Reconciler returns the reconciler used by SyncLeases.
func (m *Manager) Reconciler() *Reconciler {
	return m.reconciler
}

// LeaseFile returns the lease file path.
func (m *Manager) LeaseFile() string {
	return m.leaseFile
}

// Generate runs the config generator.
func (m *Manager) Generate(ctx context.Context) services.GenerationResult {
	if m.generator == nil {
		res := services.GenerationResult{}
		res.Fail(errors.New(errors.KindInternal, "no DHCP config generator configured"))
		return res
	}
	return m.generator.Generate(ctx)
}

// apply regenerates the config after a change and restarts the daemon
// when the new files need it. Failures are logged only; the change that
// triggered it is already stored.
func (m *Manager) apply(ctx context.Context) {
	if m.generator == nil {
		return
	}
	res := m.generator.Generate(ctx)
	switch {
	case !res.Success:
		m.logger.Warn("DHCP config regeneration failed", "error", res.Error)
		return
	case res.Skipped, !res.RequiresRestart, m.controller == nil:
		return
	}
	if err := m.Restart(ctx); err != nil {
		m.logger.WithError(err).Warn("failed to restart DHCP service after config change")
	}
}

// Start starts the DHCP daemon.
func (m *Manager) Start(ctx context.Context) error {
	return m.Control(ctx, services.ActionStart)
}

// Stop stops the DHCP daemon.
func (m *Manager) Stop(ctx context.Context) error {
	return m.Control(ctx, services.ActionStop)
}

// Restart restarts the DHCP daemon.
func (m *Manager) Restart(ctx context.Context) error {
	return m.Control(ctx, services.ActionRestart)
}

// Control applies a service-control action to the DHCP daemon.
func (m *Manager) Control(ctx context.Context, action services.Action) error {
	if m.controller == nil {
		return errors.New(errors.KindInternal, "no service controller configured")
	}
	err := services.Apply(ctx, m.controller, m.service, action)
	if m.metrics != nil {
		m.metrics.RecordServiceAction("dhcp", string(action), err)
	}
	if err != nil {
		return err
	}
	m.logger.Audit(string(action), "dhcp.service", map[string]any{"service": m.service})
	return nil
}

// Status reports the DHCP daemon status.
func (m *Manager) Status(ctx context.Context) (services.ServiceStatus, error) {
	if m.controller == nil {
		return services.ServiceStatus{}, errors.New(errors.KindInternal, "no service controller configured")
	}
	return m.controller.Status(ctx, m.service)
}
