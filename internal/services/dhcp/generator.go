package dhcp

import (
	"context"
	"time"

	"monolith.network/netpkg/internal/brand"
	"monolith.network/netpkg/internal/clock"
	"monolith.network/netpkg/internal/fsutil"
	"monolith.network/netpkg/internal/ifaces"
	"monolith.network/netpkg/internal/logging"
	"monolith.network/netpkg/internal/metrics"
	"monolith.network/netpkg/internal/netutil"
	"monolith.network/netpkg/internal/render"
	"monolith.network/netpkg/internal/services"
	"monolith.network/netpkg/internal/validation"
)

// Default output paths.
const (
	DefaultConfigPath   = "/etc/dhcp/dhcpd.conf"
	DefaultDefaultsPath = "/etc/default/isc-dhcp-server"
	DefaultLeaseFile    = "/var/lib/dhcp/dhcpd.leases"
	DefaultServiceName  = "isc-dhcp-server"
)

const reasonNoInterfaces = "No enabled DHCP interfaces"

// Paths locates the files written by the Generator.
type Paths struct {
	Config   string
	Defaults string
}

// DefaultPaths returns the stock Debian locations.
func DefaultPaths() Paths {
	return Paths{Config: DefaultConfigPath, Defaults: DefaultDefaultsPath}
}

// Generator renders dhcpd.conf and the service defaults file from the
// stored configuration.
type Generator struct {
	repo        *Repository
	assignments ifaces.AssignmentStore
	engine      *render.Engine
	paths       Paths
	clock       clock.Clock
	metrics     *metrics.Registry
	logger      *logging.Logger
}

// GeneratorOptions configures a Generator. Zero values select defaults;
// a nil Assignments disables bootstrap and nil Metrics disables
// instrumentation.
type GeneratorOptions struct {
	Paths       Paths
	Assignments ifaces.AssignmentStore
	Clock       clock.Clock
	Metrics     *metrics.Registry
}

// NewGenerator creates a Generator.
func NewGenerator(repo *Repository, opts GeneratorOptions) *Generator {
	paths := opts.Paths
	def := DefaultPaths()
	if paths.Config == "" {
		paths.Config = def.Config
	}
	if paths.Defaults == "" {
		paths.Defaults = def.Defaults
	}
	return &Generator{
		repo:        repo,
		assignments: opts.Assignments,
		engine:      render.MustNew(),
		paths:       paths,
		clock:       clock.OrReal(opts.Clock),
		metrics:     opts.Metrics,
		logger:      logging.WithComponent("dhcp"),
	}
}

// ConfigFilePaths lists the files a successful run writes.
func (g *Generator) ConfigFilePaths() []string {
	return []string{g.paths.Config, g.paths.Defaults}
}

// Generate writes both files. With no enabled interfaces it first tries to
// bootstrap one from the LAN assignment; if there is still nothing to
// serve, the run is a skipped success and no file is touched.
func (g *Generator) Generate(ctx context.Context) services.GenerationResult {
	res := services.GenerationResult{Files: []string{}}

	settings, enabled, err := g.load()
	if err != nil {
		return g.failed(res, err)
	}

	if len(enabled) == 0 {
		created, err := g.bootstrap(ctx, settings == nil)
		if err != nil {
			g.logger.WithError(err).Warn("DHCP bootstrap failed")
		}
		if created {
			if settings, enabled, err = g.load(); err != nil {
				return g.failed(res, err)
			}
		}
	}

	if len(enabled) == 0 {
		g.logger.Info("no enabled DHCP interfaces, skipping config generation")
		res.Skip(reasonNoInterfaces)
		g.record(metrics.ResultSkipped)
		return res
	}

	conf := render.DHCPConf{Header: brand.GeneratedHeader(), Global: globalView(settings)}
	names := make([]string, 0, len(enabled))
	for _, c := range enabled {
		names = append(names, c.Name)
		subnet, ok := g.subnetView(c)
		if ok {
			conf.Subnets = append(conf.Subnets, subnet)
		}
	}

	dhcpd, err := g.engine.Render(render.TemplateDHCPD, conf)
	if err != nil {
		return g.failed(res, err)
	}
	defaults, err := g.engine.Render(render.TemplateDHCPDefaults, render.DHCPDefaults{
		Header:     brand.GeneratedHeader(),
		Interfaces: names,
	})
	if err != nil {
		return g.failed(res, err)
	}

	res.Diffs = map[string]string{}
	for _, f := range []struct {
		path    string
		content []byte
	}{{g.paths.Config, dhcpd}, {g.paths.Defaults, defaults}} {
		if d := fsutil.Diff(f.path, f.content); d != "" {
			res.Diffs[f.path] = d
		}
		if err := fsutil.WriteConfigFile(f.path, f.content); err != nil {
			return g.failed(res, err)
		}
		res.Files = append(res.Files, f.path)
		res.RequiresRestart = true
	}

	res.Success = true
	res.Metadata = map[string]any{
		"interfaceCount": len(enabled),
		"enabled":        settings == nil || settings.Enabled,
	}
	g.logger.Info("generated DHCP config", "interfaces", len(enabled), "subnets", len(conf.Subnets))
	g.record(metrics.ResultWritten)
	return res
}

func (g *Generator) load() (*GlobalSettings, []*InterfaceConfig, error) {
	settings, err := g.repo.Settings()
	if err != nil {
		return nil, nil, err
	}
	enabled, err := g.repo.EnabledInterfaces()
	if err != nil {
		return nil, nil, err
	}
	return settings, enabled, nil
}

func (g *Generator) subnetView(c *InterfaceConfig) (render.DHCPSubnet, bool) {
	if c.Subnet == "" || c.PoolStart == "" || c.PoolEnd == "" {
		g.logger.Warn("interface missing subnet or pool, skipping", "interface", c.Name)
		return render.DHCPSubnet{}, false
	}
	network, mask, err := netutil.SubnetNetmask(c.Subnet)
	if err != nil {
		g.logger.WithError(err).Warn("interface has an invalid subnet, skipping", "interface", c.Name, "subnet", c.Subnet)
		return render.DHCPSubnet{}, false
	}
	leaseTime, maxLeaseTime := c.LeaseTime, c.MaxLeaseTime
	if leaseTime <= 0 {
		leaseTime = DefaultLeaseTime
	}
	if maxLeaseTime <= 0 {
		maxLeaseTime = DefaultMaxLeaseTime
	}
	return render.DHCPSubnet{
		Name:         c.Name,
		Network:      network,
		Netmask:      mask,
		PoolStart:    c.PoolStart,
		PoolEnd:      c.PoolEnd,
		Gateway:      c.Gateway,
		DNSServers:   c.DNSServers,
		Domain:       validation.SanitizeString(c.Domain),
		LeaseTime:    leaseTime,
		MaxLeaseTime: maxLeaseTime,
		PolicyLines:  policyLines(c.ClientPolicy),
	}, true
}

func globalView(s *GlobalSettings) *render.DHCPGlobal {
	if s == nil {
		return nil
	}
	style := "none"
	if s.DNSRegistration {
		style = "interim"
	}
	return &render.DHCPGlobal{
		DefaultLeaseTime: s.DefaultLeaseTime,
		MaxLeaseTime:     s.MaxLeaseTime,
		DDNSUpdateStyle:  style,
		Authoritative:    s.Enabled,
	}
}

func policyLines(p ClientPolicy) []string {
	switch p {
	case PolicyAllowKnownAny:
		return []string{"deny unknown-clients;"}
	case PolicyAllowKnownThis:
		return []string{"allow known-clients;", "deny unknown-clients;"}
	default:
		return nil
	}
}

func (g *Generator) failed(res services.GenerationResult, err error) services.GenerationResult {
	g.logger.WithError(err).Error("DHCP config generation failed")
	res.Fail(err)
	g.record(metrics.ResultFailed)
	return res
}

func (g *Generator) record(result string) {
	if g.metrics != nil {
		g.metrics.RecordGeneration("dhcp", result)
	}
}

func (g *Generator) now() time.Time {
	return g.clock.Now()
}
