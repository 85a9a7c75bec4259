package dns

import (
	"context"

	"github.com/google/uuid"

	"monolith.network/netpkg/internal/clock"
	"monolith.network/netpkg/internal/errors"
	"monolith.network/netpkg/internal/logging"
	"monolith.network/netpkg/internal/metrics"
	"monolith.network/netpkg/internal/services"
)

// ManagerOptions wires a Manager to its collaborators.
type ManagerOptions struct {
	Generator   *Generator
	Controller  services.Controller
	ServiceName string
	Clock       clock.Clock
	Metrics     *metrics.Registry
}

// Manager implements the DNS operations: settings, zones, records and
// control of dnsmasq.
type Manager struct {
	repo       *Repository
	generator  *Generator
	controller services.Controller
	service    string
	clock      clock.Clock
	metrics    *metrics.Registry
	logger     *logging.Logger
}

// NewManager creates a Manager.
func NewManager(repo *Repository, opts ManagerOptions) *Manager {
	m := &Manager{
		repo:       repo,
		generator:  opts.Generator,
		controller: opts.Controller,
		service:    opts.ServiceName,
		clock:      clock.OrReal(opts.Clock),
		metrics:    opts.Metrics,
		logger:     logging.WithComponent("dns"),
	}
	if m.service == "" {
		m.service = DefaultServiceName
	}
	return m
}

// GetSettings returns the settings, storing the defaults on first read.
func (m *Manager) GetSettings(_ context.Context) (*Settings, error) {
	s, err := m.repo.Settings()
	if err != nil || s != nil {
		return s, err
	}

	defaults := DefaultSettings()
	defaults.UpdatedAt = m.clock.Now()
	if err := m.repo.SaveSettings(&defaults); err != nil {
		return nil, err
	}
	m.logger.Info("created default DNS settings")
	return &defaults, nil
}

// UpdateSettings validates and stores s, then regenerates the config.
func (m *Manager) UpdateSettings(ctx context.Context, s Settings) (*Settings, error) {
	s.Normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	s.UpdatedAt = m.clock.Now()
	if err := m.repo.SaveSettings(&s); err != nil {
		return nil, err
	}

	m.logger.Audit("update", "dns.settings", map[string]any{
		"enabled":    s.Enabled,
		"forwarding": s.Forwarding,
		"forwarders": s.Forwarders,
	})
	m.apply(ctx)
	return &s, nil
}

// GetZones returns every zone ordered by name.
func (m *Manager) GetZones(_ context.Context) ([]*Zone, error) {
	return m.repo.Zones()
}

// GetRecords returns the records of zone, or every record when zone is
// empty.
func (m *Manager) GetRecords(_ context.Context, zone string) ([]*Record, error) {
	return m.repo.Records(zone)
}

// UpdateZone validates and upserts z by case-insensitive name. An existing
// zone keeps the spelling it was created with.
func (m *Manager) UpdateZone(ctx context.Context, z Zone) (*Zone, error) {
	z.Normalize()
	if err := z.Validate(); err != nil {
		return nil, err
	}
	existing, err := m.repo.Zone(z.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		z.Name = existing.Name
	}
	z.UpdatedAt = m.clock.Now()
	if err := m.repo.SaveZone(&z); err != nil {
		return nil, err
	}

	m.logger.Audit("update", "dns.zone", map[string]any{"zone": z.Name, "type": z.Type, "enabled": z.Enabled})
	m.apply(ctx)
	return &z, nil
}

// UpdateRecord validates and upserts rec by id. An empty id creates a new
// record. The zone must exist.
func (m *Manager) UpdateRecord(ctx context.Context, rec Record) (*Record, error) {
	rec.Normalize()
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	zone, err := m.repo.Zone(rec.Zone)
	if err != nil {
		return nil, err
	}
	if zone == nil {
		return nil, errors.Errorf(errors.KindNotFound, "zone %q not found", rec.Zone)
	}
	rec.Zone = zone.Name

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	} else if err := uuid.Validate(rec.ID); err != nil {
		return nil, errors.Wrapf(err, errors.KindValidation, "invalid record id %q", rec.ID)
	}
	rec.UpdatedAt = m.clock.Now()
	if err := m.repo.SaveRecord(&rec); err != nil {
		return nil, err
	}

	m.logger.Audit("update", "dns.record", map[string]any{"id": rec.ID, "zone": rec.Zone, "name": rec.Name, "type": rec.Type})
	m.apply(ctx)
	return &rec, nil
}

// Generate runs the config generator.
func (m *Manager) Generate(ctx context.Context) services.GenerationResult {
	if m.generator == nil {
		res := services.GenerationResult{}
		res.Fail(errors.New(errors.KindInternal, "no DNS config generator configured"))
		return res
	}
	return m.generator.Generate(ctx)
}

// apply regenerates the config after a change and restarts dnsmasq when
// the new file needs it. Failures are logged only.
func (m *Manager) apply(ctx context.Context) {
	if m.generator == nil {
		return
	}
	res := m.generator.Generate(ctx)
	switch {
	case !res.Success:
		m.logger.Warn("DNS config regeneration failed", "error", res.Error)
		return
	case res.Skipped, !res.RequiresRestart, m.controller == nil:
		return
	}
	if err := m.Restart(ctx); err != nil {
		m.logger.WithError(err).Warn("failed to restart DNS service after config change")
	}
}

// Start starts dnsmasq.
func (m *Manager) Start(ctx context.Context) error {
	return m.Control(ctx, services.ActionStart)
}

// Stop stops dnsmasq.
func (m *Manager) Stop(ctx context.Context) error {
	return m.Control(ctx, services.ActionStop)
}

// Restart restarts dnsmasq.
func (m *Manager) Restart(ctx context.Context) error {
	return m.Control(ctx, services.ActionRestart)
}

// Control applies a service-control action to dnsmasq.
func (m *Manager) Control(ctx context.Context, action services.Action) error {
	if m.controller == nil {
		return errors.New(errors.KindInternal, "no service controller configured")
	}
	err := services.Apply(ctx, m.controller, m.service, action)
	if m.metrics != nil {
		m.metrics.RecordServiceAction("dns", string(action), err)
	}
	if err != nil {
		return err
	}
	m.logger.Audit(string(action), "dns.service", map[string]any{"service": m.service})
	return nil
}

// Status reports the dnsmasq status.
func (m *Manager) Status(ctx context.Context) (services.ServiceStatus, error) {
	if m.controller == nil {
		return services.ServiceStatus{}, errors.New(errors.KindInternal, "no service controller configured")
	}
	return m.controller.Status(ctx, m.service)
}
