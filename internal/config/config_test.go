package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monolith.network/netpkg/internal/errors"
)

func TestDefault(t *testing.T) {
	t.Setenv("MONOLITH_STATE_DIR", "")
	t.Setenv("MONOLITH_PREFIX", "")

	cfg := Default()
	assert.Equal(t, DefaultListen, cfg.Listen)
	assert.Equal(t, "/var/lib/monolith/state.db", cfg.StatePath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "/etc/dhcp/dhcpd.conf", cfg.DHCP.ConfigPath)
	assert.Equal(t, "/etc/default/isc-dhcp-server", cfg.DHCP.DefaultsPath)
	assert.Equal(t, "/var/lib/dhcp/dhcpd.leases", cfg.DHCP.LeaseFile)
	assert.Equal(t, "isc-dhcp-server", cfg.DHCP.Service)
	assert.True(t, cfg.DHCP.Watch())
	assert.Equal(t, "/etc/dnsmasq.d/monolith.conf", cfg.DNS.ConfigPath)
	assert.Equal(t, "dnsmasq", cfg.DNS.Service)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.hcl"))
	require.NoError(t, err)
	assert.Equal(t, DefaultListen, cfg.Listen)
}

func TestLoad_HCL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "network.hcl")
	content := `
listen    = "0.0.0.0:9000"
log_level = "debug"

dhcp {
  lease_file   = "/tmp/dhcpd.leases"
  watch_leases = false
}

dns {
  service = "dnsmasq-custom"
}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/dhcpd.leases", cfg.DHCP.LeaseFile)
	assert.Equal(t, DefaultDHCPConfigPath, cfg.DHCP.ConfigPath)
	assert.False(t, cfg.DHCP.Watch())
	assert.Equal(t, "dnsmasq-custom", cfg.DNS.Service)
	assert.Equal(t, DefaultDNSConfigPath, cfg.DNS.ConfigPath)
}

func TestLoad_ParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`listen = `), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindParse))
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MONOLITH_LISTEN", "127.0.0.1:1234")
	t.Setenv("MONOLITH_LOG_JSON", "true")
	t.Setenv("MONOLITH_LEASE_FILE", "/srv/leases")
	t.Setenv("MONOLITH_WATCH_LEASES", "false")
	t.Setenv("MONOLITH_DNS_CONFIG_PATH", "/srv/dnsmasq.conf")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.hcl"))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:1234", cfg.Listen)
	assert.True(t, cfg.LogJSON)
	assert.Equal(t, "/srv/leases", cfg.DHCP.LeaseFile)
	assert.False(t, cfg.DHCP.Watch())
	assert.Equal(t, "/srv/dnsmasq.conf", cfg.DNS.ConfigPath)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad listen", func(c *Config) { c.Listen = "nonsense" }},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }},
		{"relative lease file", func(c *Config) { c.DHCP.LeaseFile = "dhcpd.leases" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsKind(err, errors.KindValidation))
		})
	}
}

func TestWriteDefault_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "network.hcl")
	require.NoError(t, WriteDefault(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `listen`)
	assert.Contains(t, string(data), "dhcp {")

	cfg, err := LoadHCL(data, path)
	require.NoError(t, err)
	want := Default()
	assert.Equal(t, want.Listen, cfg.Listen)
	assert.Equal(t, want.DHCP.LeaseFile, cfg.DHCP.LeaseFile)
	assert.Equal(t, want.DNS.ConfigPath, cfg.DNS.ConfigPath)
	assert.Equal(t, want.Interfaces.AssignmentsFile, cfg.Interfaces.AssignmentsFile)
	assert.True(t, cfg.DHCP.Watch())
}
