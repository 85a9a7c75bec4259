package config

import (
	"os"
	"strconv"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"monolith.network/netpkg/internal/brand"
	"monolith.network/netpkg/internal/errors"
	"monolith.network/netpkg/internal/logging"
)

// Load reads the configuration at path, applies environment overrides and
// fills defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		logging.WithComponent("config").Info("config file not found, using defaults", "path", path)
	case err != nil:
		return nil, errors.Wrap(err, errors.KindIO, "failed to read config file")
	default:
		if cfg, err = LoadHCL(data, path); err != nil {
			return nil, err
		}
	}

	cfg.LoadFromEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadHCL decodes config from HCL bytes without applying defaults.
func LoadHCL(data []byte, filename string) (*Config, error) {
	var cfg Config
	if err := hclsimple.Decode(filename, data, nil, &cfg); err != nil {
		return nil, errors.Wrap(err, errors.KindParse, "failed to parse config")
	}
	return &cfg, nil
}

func env(name string) string {
	return os.Getenv(brand.ConfigEnvPrefix + "_" + name)
}

// LoadFromEnv overrides fields from MONOLITH_* environment variables.
func (c *Config) LoadFromEnv() {
	if v := env("LISTEN"); v != "" {
		c.Listen = v
	}
	if v := env("STATE_PATH"); v != "" {
		c.StatePath = v
	}
	if v := env("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := env("LOG_JSON"); v != "" {
		c.LogJSON, _ = strconv.ParseBool(v)
	}

	if c.DHCP == nil {
		c.DHCP = &DHCPConfig{}
	}
	if v := env("DHCP_CONFIG_PATH"); v != "" {
		c.DHCP.ConfigPath = v
	}
	if v := env("DHCP_DEFAULTS_PATH"); v != "" {
		c.DHCP.DefaultsPath = v
	}
	if v := env("LEASE_FILE"); v != "" {
		c.DHCP.LeaseFile = v
	}
	if v := env("WATCH_LEASES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.DHCP.WatchLeases = &b
		}
	}

	if c.DNS == nil {
		c.DNS = &DNSConfig{}
	}
	if v := env("DNS_CONFIG_PATH"); v != "" {
		c.DNS.ConfigPath = v
	}

	if c.Interfaces == nil {
		c.Interfaces = &InterfacesConfig{}
	}
	if v := env("ASSIGNMENTS_FILE"); v != "" {
		c.Interfaces.AssignmentsFile = v
	}
}
