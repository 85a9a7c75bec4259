package dns

import (
	"context"
	"sort"
	"strings"

	"monolith.network/netpkg/internal/brand"
	"monolith.network/netpkg/internal/clock"
	"monolith.network/netpkg/internal/fsutil"
	"monolith.network/netpkg/internal/ifaces"
	"monolith.network/netpkg/internal/logging"
	"monolith.network/netpkg/internal/metrics"
	"monolith.network/netpkg/internal/render"
	"monolith.network/netpkg/internal/services"
)

// Default locations.
const (
	DefaultConfigPath  = "/etc/dnsmasq.d/monolith.conf"
	DefaultLeaseFile   = "/var/lib/dhcp/dhcpd.leases"
	DefaultServiceName = "dnsmasq"
)

const reasonDisabled = "DNS not enabled"

// GeneratorOptions configures a Generator. Zero values select defaults.
type GeneratorOptions struct {
	ConfigPath  string
	LeaseFile   string
	Assignments ifaces.AssignmentStore
	Clock       clock.Clock
	Metrics     *metrics.Registry
}

// Generator renders the dnsmasq drop-in from the stored settings, zones
// and records.
type Generator struct {
	repo        *Repository
	assignments ifaces.AssignmentStore
	engine      *render.Engine
	path        string
	leaseFile   string
	clock       clock.Clock
	metrics     *metrics.Registry
	logger      *logging.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(repo *Repository, opts GeneratorOptions) *Generator {
	g := &Generator{
		repo:        repo,
		assignments: opts.Assignments,
		engine:      render.MustNew(),
		path:        opts.ConfigPath,
		leaseFile:   opts.LeaseFile,
		clock:       clock.OrReal(opts.Clock),
		metrics:     opts.Metrics,
		logger:      logging.WithComponent("dns"),
	}
	if g.path == "" {
		g.path = DefaultConfigPath
	}
	if g.leaseFile == "" {
		g.leaseFile = DefaultLeaseFile
	}
	return g
}

// ConfigFilePaths lists the files a successful run writes.
func (g *Generator) ConfigFilePaths() []string {
	return []string{g.path}
}

// Generate writes the dnsmasq drop-in. Missing settings are created with
// defaults first; while DNS is disabled the run is a skipped success and
// no file is touched.
func (g *Generator) Generate(ctx context.Context) services.GenerationResult {
	res := services.GenerationResult{Files: []string{}}

	settings, err := g.repo.Settings()
	if err != nil {
		return g.failed(res, err)
	}
	if settings == nil {
		g.logger.Info("no DNS settings found, creating defaults")
		if settings, err = g.createDefaults(ctx); err != nil {
			return g.failed(res, err)
		}
	}

	if !settings.Enabled {
		g.logger.Info("DNS is not enabled, skipping config generation")
		res.Skip(reasonDisabled)
		g.record(metrics.ResultSkipped)
		return res
	}

	view := render.DnsmasqConf{
		Header:      brand.GeneratedHeader(),
		Interfaces:  settings.ListenInterfaces,
		Domain:      settings.LocalDomain,
		Recursion:   settings.Recursion,
		DNSSEC:      settings.DNSSECValidation,
		TrustAnchor: trustAnchor(rootAnchor),
		LeaseFile:   g.leaseFile,
		LogQueries:  strings.EqualFold(settings.LogLevel, "debug"),
	}
	if settings.Forwarding {
		view.Servers = settings.Forwarders
	}
	if view.Records, err = g.recordLines(); err != nil {
		return g.failed(res, err)
	}

	content, err := g.engine.Render(render.TemplateDnsmasq, view)
	if err != nil {
		return g.failed(res, err)
	}
	if d := fsutil.Diff(g.path, content); d != "" {
		res.Diffs = map[string]string{g.path: d}
	}
	if err := fsutil.WriteConfigFile(g.path, content); err != nil {
		return g.failed(res, err)
	}

	res.Files = append(res.Files, g.path)
	res.Success = true
	res.RequiresRestart = true
	res.Metadata = map[string]any{
		"enabled":    true,
		"forwarding": settings.Forwarding,
		"records":    len(view.Records),
	}
	g.logger.Info("generated DNS config", "path", g.path, "records", len(view.Records))
	g.record(metrics.ResultWritten)
	return res
}

// createDefaults stores DefaultSettings listening on the LAN interfaces.
func (g *Generator) createDefaults(ctx context.Context) (*Settings, error) {
	s := DefaultSettings()
	s.UpdatedAt = g.clock.Now()

	if g.assignments != nil {
		assignments, err := g.assignments.GetAssignments(ctx)
		if err != nil {
			g.logger.WithError(err).Warn("cannot read interface assignments")
		}
		for _, a := range assignments {
			if a.Role == ifaces.RoleLAN {
				s.ListenInterfaces = append(s.ListenInterfaces, a.Interface)
			}
		}
	}

	if err := g.repo.SaveSettings(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// recordLines renders the enabled records of enabled master zones.
func (g *Generator) recordLines() ([]string, error) {
	zones, err := g.repo.Zones()
	if err != nil {
		return nil, err
	}
	served := map[string]bool{}
	for _, z := range zones {
		if z.Enabled && z.Type == ZoneMaster {
			served[z.Key()] = true
		}
	}
	if len(served) == 0 {
		return nil, nil
	}

	records, err := g.repo.Records("")
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, rec := range records {
		if !rec.Enabled || !served[zoneKey(rec.Zone)] {
			continue
		}
		rr, err := rec.RR()
		if err != nil {
			g.logger.WithError(err).Warn("skipping invalid record", "id", rec.ID, "zone", rec.Zone, "name", rec.Name)
			continue
		}
		line, ok := dnsmasqLine(rr)
		if !ok {
			g.logger.Debug("record type not supported by dnsmasq", "id", rec.ID, "type", rec.Type)
			continue
		}
		lines = append(lines, line)
	}
	sort.Strings(lines)
	return lines, nil
}

func (g *Generator) failed(res services.GenerationResult, err error) services.GenerationResult {
	g.logger.WithError(err).Error("DNS config generation failed")
	res.Fail(err)
	g.record(metrics.ResultFailed)
	return res
}

func (g *Generator) record(result string) {
	if g.metrics != nil {
		g.metrics.RecordGeneration("dns", result)
	}
}
