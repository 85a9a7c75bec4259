// Package dhcp manages the ISC DHCP server configuration: persisted
// interface and global settings, lease-file reconciliation and generation
// of dhcpd.conf plus the service defaults file.
package dhcp

import (
	"strings"
	"time"

	"monolith.network/netpkg/internal/errors"
	"monolith.network/netpkg/internal/netutil"
	"monolith.network/netpkg/internal/validation"
)

// Defaults shared by bootstrap, settings and interface discovery.
const (
	DefaultLeaseTime    = 7200
	DefaultMaxLeaseTime = 86400
	DefaultLogLevel     = "info"
	DefaultDomain       = "local"

	// DiscoveredDomain is offered for interfaces without a stored config.
	DiscoveredDomain = "local.domain"

	// NotConfigured is shown as the subnet of a link without an IPv4 address.
	NotConfigured = "Not configured"

	MaxDNSServers = 4
)

// DefaultDNSServers are offered to clients when nothing else is configured.
var DefaultDNSServers = []string{"8.8.8.8", "8.8.4.4"}

// ClientPolicy controls which clients may obtain a lease on an interface.
type ClientPolicy string

const (
	PolicyAllowAll       ClientPolicy = "allow-all"
	PolicyAllowKnownAny  ClientPolicy = "allow-known-any"
	PolicyAllowKnownThis ClientPolicy = "allow-known-this"
)

var clientPolicies = []string{string(PolicyAllowAll), string(PolicyAllowKnownAny), string(PolicyAllowKnownThis)}

// LeaseState is the derived state of a lease.
type LeaseState string

const (
	LeaseActive  LeaseState = "active"
	LeaseExpired LeaseState = "expired"
	LeaseFree    LeaseState = "free"
)

// InterfaceConfig is the DHCP configuration of one network interface.
type InterfaceConfig struct {
	Name         string       `json:"name"`
	Enabled      bool         `json:"enabled"`
	Subnet       string       `json:"subnet"`
	PoolStart    string       `json:"poolStart"`
	PoolEnd      string       `json:"poolEnd"`
	Gateway      string       `json:"gateway,omitempty"`
	DNSServers   []string     `json:"dnsServers"`
	Domain       string       `json:"domain,omitempty"`
	LeaseTime    int          `json:"leaseTime"`
	MaxLeaseTime int          `json:"maxLeaseTime"`
	ClientPolicy ClientPolicy `json:"clientPolicy"`
	StaticARP    bool         `json:"staticArp"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// Normalize trims whitespace, drops empty DNS entries and fills zero
// lease times and policy with defaults.
func (c *InterfaceConfig) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Subnet = strings.TrimSpace(c.Subnet)
	c.PoolStart = strings.TrimSpace(c.PoolStart)
	c.PoolEnd = strings.TrimSpace(c.PoolEnd)
	c.Gateway = strings.TrimSpace(c.Gateway)
	c.Domain = strings.TrimSpace(c.Domain)

	dns := make([]string, 0, len(c.DNSServers))
	for _, s := range c.DNSServers {
		if s = strings.TrimSpace(s); s != "" {
			dns = append(dns, s)
		}
	}
	c.DNSServers = dns

	if c.LeaseTime == 0 {
		c.LeaseTime = DefaultLeaseTime
	}
	if c.MaxLeaseTime == 0 {
		c.MaxLeaseTime = DefaultMaxLeaseTime
	}
	if c.ClientPolicy == "" {
		c.ClientPolicy = PolicyAllowAll
	}
}

// Validate checks the config. Subnet and pool may be empty on a disabled
// interface; an enabled interface needs all three.
func (c *InterfaceConfig) Validate() error {
	if err := validation.ValidateInterfaceName(c.Name); err != nil {
		return err
	}
	if err := validation.ValidateAllowlist(string(c.ClientPolicy), clientPolicies); err != nil {
		return errors.Wrap(err, errors.KindValidation, "invalid client policy")
	}
	if c.LeaseTime <= 0 || c.MaxLeaseTime <= 0 {
		return errors.New(errors.KindValidation, "lease times must be greater than zero")
	}
	if c.LeaseTime > c.MaxLeaseTime {
		return errors.Errorf(errors.KindValidation, "lease time %d exceeds max lease time %d", c.LeaseTime, c.MaxLeaseTime)
	}

	if c.Enabled && (c.Subnet == "" || c.PoolStart == "" || c.PoolEnd == "") {
		return errors.New(errors.KindValidation, "an enabled interface requires subnet, pool start and pool end")
	}
	if c.Subnet != "" {
		if err := validation.ValidateIPv4CIDR(c.Subnet); err != nil {
			return err
		}
	}
	if (c.PoolStart == "") != (c.PoolEnd == "") {
		return errors.New(errors.KindValidation, "pool start and pool end must be set together")
	}
	if c.PoolStart != "" {
		if c.Subnet == "" {
			return errors.New(errors.KindValidation, "a pool requires a subnet")
		}
		for _, ip := range []string{c.PoolStart, c.PoolEnd} {
			if err := validation.ValidateIPv4(ip); err != nil {
				return err
			}
			if !netutil.Contains(c.Subnet, ip) {
				return errors.Errorf(errors.KindValidation, "pool address %s is outside subnet %s", ip, c.Subnet)
			}
		}
		if netutil.CompareIP(c.PoolStart, c.PoolEnd) > 0 {
			return errors.Errorf(errors.KindValidation, "pool start %s is after pool end %s", c.PoolStart, c.PoolEnd)
		}
	}
	if c.Gateway != "" {
		if err := validation.ValidateIPv4(c.Gateway); err != nil {
			return err
		}
	}
	if len(c.DNSServers) > MaxDNSServers {
		return errors.Errorf(errors.KindValidation, "at most %d DNS servers are allowed", MaxDNSServers)
	}
	for _, s := range c.DNSServers {
		if err := validation.ValidateIPv4(s); err != nil {
			return err
		}
	}
	if c.Domain != "" {
		if err := validation.ValidateDomain(c.Domain); err != nil {
			return err
		}
	}
	return nil
}

// GlobalSettings holds server-wide DHCP defaults. At most one exists.
type GlobalSettings struct {
	Enabled          bool      `json:"enabled"`
	DefaultLeaseTime int       `json:"defaultLeaseTime"`
	MaxLeaseTime     int       `json:"maxLeaseTime"`
	DNSRegistration  bool      `json:"dnsRegistration"`
	LogLevel         string    `json:"logLevel"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// DefaultGlobalSettings returns the settings created on first read.
func DefaultGlobalSettings() GlobalSettings {
	return GlobalSettings{
		Enabled:          true,
		DefaultLeaseTime: DefaultLeaseTime,
		MaxLeaseTime:     DefaultMaxLeaseTime,
		LogLevel:         DefaultLogLevel,
	}
}

var logLevels = []string{"debug", "info", "warning", "error"}

// Validate checks the settings.
func (s *GlobalSettings) Validate() error {
	if s.DefaultLeaseTime <= 0 || s.MaxLeaseTime <= 0 {
		return errors.New(errors.KindValidation, "lease times must be greater than zero")
	}
	if s.DefaultLeaseTime > s.MaxLeaseTime {
		return errors.Errorf(errors.KindValidation, "default lease time %d exceeds max lease time %d", s.DefaultLeaseTime, s.MaxLeaseTime)
	}
	s.LogLevel = strings.ToLower(strings.TrimSpace(s.LogLevel))
	if s.LogLevel == "" {
		s.LogLevel = DefaultLogLevel
	}
	return validation.ValidateAllowlist(s.LogLevel, logLevels)
}

// Lease is one lease block parsed from the lease file.
type Lease struct {
	MAC      string     `json:"mac"`
	IP       string     `json:"ip"`
	Hostname string     `json:"hostname,omitempty"`
	Start    time.Time  `json:"start"`
	End      time.Time  `json:"end"`
	State    LeaseState `json:"state"`
}

// LeaseRecord is a persisted lease, keyed by MAC.
type LeaseRecord struct {
	MAC       string     `json:"mac"`
	IP        string     `json:"ip"`
	Hostname  string     `json:"hostname,omitempty"`
	Start     time.Time  `json:"start"`
	End       time.Time  `json:"end"`
	State     LeaseState `json:"state"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// CurrentState re-derives the state at now: a lease whose end has passed
// is expired regardless of what was stored.
func (r *LeaseRecord) CurrentState(now time.Time) LeaseState {
	if !r.End.IsZero() && r.End.Before(now) {
		return LeaseExpired
	}
	if r.State == "" {
		return LeaseActive
	}
	return r.State
}
