// Package config holds the daemon configuration.
//
// The configuration is read from an HCL file and may be overridden by
// MONOLITH_* environment variables. Every field has a default, so a missing
// file yields a working configuration.
package config

import (
	"net"
	"path/filepath"

	"monolith.network/netpkg/internal/brand"
	"monolith.network/netpkg/internal/errors"
)

// Default file locations and service names.
const (
	DefaultListen           = "127.0.0.1:8068"
	DefaultDHCPConfigPath   = "/etc/dhcp/dhcpd.conf"
	DefaultDHCPDefaultsPath = "/etc/default/isc-dhcp-server"
	DefaultLeaseFile        = "/var/lib/dhcp/dhcpd.leases"
	DefaultDHCPService      = "isc-dhcp-server"
	DefaultDNSConfigPath    = "/etc/dnsmasq.d/monolith.conf"
	DefaultDNSService       = "dnsmasq"
)

// Config is the top-level daemon configuration.
type Config struct {
	Listen    string `hcl:"listen,optional" json:"listen"`
	StatePath string `hcl:"state_path,optional" json:"state_path"`
	LogLevel  string `hcl:"log_level,optional" json:"log_level"`
	LogJSON   bool   `hcl:"log_json,optional" json:"log_json"`

	DHCP       *DHCPConfig       `hcl:"dhcp,block" json:"dhcp"`
	DNS        *DNSConfig        `hcl:"dns,block" json:"dns"`
	Interfaces *InterfacesConfig `hcl:"interfaces,block" json:"interfaces"`
}

// DHCPConfig locates the ISC DHCP server files.
type DHCPConfig struct {
	ConfigPath   string `hcl:"config_path,optional" json:"config_path"`
	DefaultsPath string `hcl:"defaults_path,optional" json:"defaults_path"`
	LeaseFile    string `hcl:"lease_file,optional" json:"lease_file"`
	Service      string `hcl:"service,optional" json:"service"`
	// WatchLeases enables lease-file watching in serve mode. Nil means true.
	WatchLeases *bool `hcl:"watch_leases,optional" json:"watch_leases,omitempty"`
}

// Watch reports whether the lease file should be watched.
func (d *DHCPConfig) Watch() bool {
	return d == nil || d.WatchLeases == nil || *d.WatchLeases
}

// DNSConfig locates the dnsmasq files.
type DNSConfig struct {
	ConfigPath string `hcl:"config_path,optional" json:"config_path"`
	Service    string `hcl:"service,optional" json:"service"`
}

// InterfacesConfig locates the interface-role assignment file.
type InterfacesConfig struct {
	AssignmentsFile string `hcl:"assignments_file,optional" json:"assignments_file"`
}

// Default returns a configuration with every field set to its default.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.StatePath == "" {
		c.StatePath = filepath.Join(brand.GetStateDir(), "state.db")
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.DHCP == nil {
		c.DHCP = &DHCPConfig{}
	}
	if c.DHCP.ConfigPath == "" {
		c.DHCP.ConfigPath = DefaultDHCPConfigPath
	}
	if c.DHCP.DefaultsPath == "" {
		c.DHCP.DefaultsPath = DefaultDHCPDefaultsPath
	}
	if c.DHCP.LeaseFile == "" {
		c.DHCP.LeaseFile = DefaultLeaseFile
	}
	if c.DHCP.Service == "" {
		c.DHCP.Service = DefaultDHCPService
	}

	if c.DNS == nil {
		c.DNS = &DNSConfig{}
	}
	if c.DNS.ConfigPath == "" {
		c.DNS.ConfigPath = DefaultDNSConfigPath
	}
	if c.DNS.Service == "" {
		c.DNS.Service = DefaultDNSService
	}

	if c.Interfaces == nil {
		c.Interfaces = &InterfacesConfig{}
	}
	if c.Interfaces.AssignmentsFile == "" {
		c.Interfaces.AssignmentsFile = filepath.Join(brand.GetConfigDir(), "interfaces.ini")
	}
}

// Validate checks the configuration for obviously broken values.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return errors.Wrapf(err, errors.KindValidation, "invalid listen address %q", c.Listen)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.Errorf(errors.KindValidation, "invalid log_level %q", c.LogLevel)
	}
	for name, p := range map[string]string{
		"state_path":       c.StatePath,
		"dhcp.config_path": c.DHCP.ConfigPath,
		"dhcp.lease_file":  c.DHCP.LeaseFile,
		"dns.config_path":  c.DNS.ConfigPath,
	} {
		if p != ":memory:" && !filepath.IsAbs(p) {
			return errors.Errorf(errors.KindValidation, "%s must be an absolute path: %q", name, p)
		}
	}
	return nil
}
