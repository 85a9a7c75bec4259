package dhcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monolith.network/netpkg/internal/ifaces"
	"monolith.network/netpkg/internal/metrics"
)

func testPaths(t *testing.T) Paths {
	dir := t.TempDir()
	return Paths{
		Config:   filepath.Join(dir, "etc", "dhcp", "dhcpd.conf"),
		Defaults: filepath.Join(dir, "etc", "default", "isc-dhcp-server"),
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestGenerate_SkipsWithoutInterfaces(t *testing.T) {
	repo := newTestRepo(t)
	paths := testPaths(t)
	reg := prometheus.NewRegistry()
	m := metrics.NewRegistry(reg, reg)

	g := NewGenerator(repo, GeneratorOptions{Paths: paths, Assignments: staticAssignments{}, Metrics: m})
	res := g.Generate(context.Background())

	assert.True(t, res.Success)
	assert.True(t, res.Skipped)
	assert.Equal(t, reasonNoInterfaces, res.Reason)
	assert.Empty(t, res.Files)
	assert.Empty(t, res.Error)
	assert.NoFileExists(t, paths.Config)
	assert.NoFileExists(t, paths.Defaults)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ConfigGenerations.WithLabelValues("dhcp", metrics.ResultSkipped)))
}

func TestGenerate_DisabledInterfaceIsNotServed(t *testing.T) {
	repo := newTestRepo(t)
	cfg := lanConfig("eth1")
	cfg.Enabled = false
	require.NoError(t, repo.SaveInterface(&cfg))

	paths := testPaths(t)
	res := NewGenerator(repo, GeneratorOptions{Paths: paths}).Generate(context.Background())
	assert.True(t, res.Skipped)
	assert.NoFileExists(t, paths.Config)
}

func TestGenerate_SubnetBlock(t *testing.T) {
	repo := newTestRepo(t)
	cfg := lanConfig("eth1")
	require.NoError(t, repo.SaveInterface(&cfg))

	paths := testPaths(t)
	res := NewGenerator(repo, GeneratorOptions{Paths: paths}).Generate(context.Background())
	require.True(t, res.Success, res.Error)
	assert.False(t, res.Skipped)
	assert.True(t, res.RequiresRestart)
	assert.Equal(t, []string{paths.Config, paths.Defaults}, res.Files)
	assert.Equal(t, 1, res.Metadata["interfaceCount"])

	conf := readFile(t, paths.Config)
	assert.Contains(t, conf, "# Generated by Monolith FireWall\n# Do not edit this file manually - changes will be overwritten\n\n")
	assert.Contains(t, conf, `# DHCP configuration for eth1
subnet 192.168.1.0 netmask 255.255.255.0 {
  range 192.168.1.100 192.168.1.200;
  option routers 192.168.1.1;
  option domain-name-servers 8.8.8.8;
  default-lease-time 7200;
  max-lease-time 86400;
}
`)
	// No settings stored: no global section.
	assert.NotContains(t, conf, "# Global DHCP settings")
	assert.NotContains(t, conf, "domain-name \"")

	defaults := readFile(t, paths.Defaults)
	assert.Contains(t, defaults, "INTERFACESv4=\"eth1\"\nINTERFACESv6=\"\"\n")
}

func TestGenerate_GlobalSection(t *testing.T) {
	repo := newTestRepo(t)
	cfg := lanConfig("eth1")
	require.NoError(t, repo.SaveInterface(&cfg))

	settings := DefaultGlobalSettings()
	settings.DefaultLeaseTime = 3600
	settings.DNSRegistration = true
	require.NoError(t, repo.SaveSettings(&settings))

	paths := testPaths(t)
	res := NewGenerator(repo, GeneratorOptions{Paths: paths}).Generate(context.Background())
	require.True(t, res.Success, res.Error)

	conf := readFile(t, paths.Config)
	assert.Contains(t, conf, "# Global DHCP settings\ndefault-lease-time 3600;\nmax-lease-time 86400;\nddns-update-style interim;\nauthoritative;\n\n")
}

func TestGenerate_SkipsIncompleteInterface(t *testing.T) {
	repo := newTestRepo(t)
	good := lanConfig("eth1")
	require.NoError(t, repo.SaveInterface(&good))

	// Stored directly so validation does not reject it.
	broken := lanConfig("eth0")
	broken.PoolEnd = ""
	require.NoError(t, repo.SaveInterface(&broken))

	paths := testPaths(t)
	res := NewGenerator(repo, GeneratorOptions{Paths: paths}).Generate(context.Background())
	require.True(t, res.Success, res.Error)

	conf := readFile(t, paths.Config)
	assert.Contains(t, conf, "# DHCP configuration for eth1")
	assert.NotContains(t, conf, "eth0")

	// The defaults file still lists every enabled interface.
	assert.Contains(t, readFile(t, paths.Defaults), `INTERFACESv4="eth0 eth1"`)
}

func TestGenerate_ClientPolicyAndDomain(t *testing.T) {
	repo := newTestRepo(t)
	known := lanConfig("eth1")
	known.ClientPolicy = PolicyAllowKnownThis
	known.Domain = "lan.example"
	known.DNSServers = []string{"1.1.1.1", "9.9.9.9"}
	require.NoError(t, repo.SaveInterface(&known))

	paths := testPaths(t)
	res := NewGenerator(repo, GeneratorOptions{Paths: paths}).Generate(context.Background())
	require.True(t, res.Success, res.Error)

	conf := readFile(t, paths.Config)
	assert.Contains(t, conf, "  option domain-name-servers 1.1.1.1, 9.9.9.9;\n  option domain-name \"lan.example\";\n")
	assert.Contains(t, conf, "  max-lease-time 86400;\n  allow known-clients;\n  deny unknown-clients;\n}\n")
}

func TestGenerate_Bootstrap(t *testing.T) {
	repo := newTestRepo(t)
	paths := testPaths(t)
	assignments := staticAssignments{
		{Interface: "eth0", Role: ifaces.RoleWAN, IPAddress: "203.0.113.10", PrefixLength: 24},
		{Interface: "eth1", Role: ifaces.RoleLAN, IPAddress: "10.10.0.1"},
	}

	res := NewGenerator(repo, GeneratorOptions{Paths: paths, Assignments: assignments}).Generate(context.Background())
	require.True(t, res.Success, res.Error)
	assert.False(t, res.Skipped)

	stored, err := repo.EnabledInterfaces()
	require.NoError(t, err)
	require.Len(t, stored, 1)
	c := stored[0]
	assert.Equal(t, "eth1", c.Name)
	assert.Equal(t, "10.10.0.0/24", c.Subnet)
	assert.Equal(t, "10.10.0.100", c.PoolStart)
	assert.Equal(t, "10.10.0.200", c.PoolEnd)
	assert.Equal(t, "10.10.0.1", c.Gateway)
	assert.Equal(t, []string{"8.8.8.8", "8.8.4.4"}, c.DNSServers)
	assert.Equal(t, DefaultDomain, c.Domain)
	assert.Equal(t, PolicyAllowAll, c.ClientPolicy)

	settings, err := repo.Settings()
	require.NoError(t, err)
	require.NotNil(t, settings)
	assert.Equal(t, DefaultLeaseTime, settings.DefaultLeaseTime)

	conf := readFile(t, paths.Config)
	assert.Contains(t, conf, "subnet 10.10.0.0 netmask 255.255.255.0 {")
	assert.Contains(t, conf, "  option domain-name-servers 8.8.8.8, 8.8.4.4;")
	assert.Contains(t, conf, "# Global DHCP settings")
}

func TestGenerate_BootstrapWithoutAddress(t *testing.T) {
	repo := newTestRepo(t)
	paths := testPaths(t)
	assignments := staticAssignments{{Interface: "eth1", Role: ifaces.RoleLAN}}

	res := NewGenerator(repo, GeneratorOptions{Paths: paths, Assignments: assignments}).Generate(context.Background())
	require.True(t, res.Success, res.Error)
	assert.False(t, res.Skipped)

	stored, err := repo.EnabledInterfaces()
	require.NoError(t, err)
	require.Len(t, stored, 1)
	c := stored[0]
	assert.Equal(t, "eth1", c.Name)
	assert.Equal(t, "192.168.1.0/24", c.Subnet)
	assert.Equal(t, "192.168.1.100", c.PoolStart)
	assert.Equal(t, "192.168.1.200", c.PoolEnd)
	assert.Equal(t, DefaultLANAddress, c.Gateway)

	conf := readFile(t, paths.Config)
	assert.Contains(t, conf, "subnet 192.168.1.0 netmask 255.255.255.0 {\n  range 192.168.1.100 192.168.1.200;\n  option routers 192.168.1.1;\n")
	assert.Contains(t, readFile(t, paths.Defaults), `INTERFACESv4="eth1"`)
}

func TestGenerate_Diffs(t *testing.T) {
	repo := newTestRepo(t)
	cfg := lanConfig("eth1")
	require.NoError(t, repo.SaveInterface(&cfg))

	paths := testPaths(t)
	g := NewGenerator(repo, GeneratorOptions{Paths: paths})

	first := g.Generate(context.Background())
	require.True(t, first.Success)
	assert.Contains(t, first.Diffs, paths.Config)

	again := g.Generate(context.Background())
	require.True(t, again.Success)
	assert.Empty(t, again.Diffs)

	cfg.Gateway = "192.168.1.254"
	require.NoError(t, repo.SaveInterface(&cfg))
	changed := g.Generate(context.Background())
	require.Contains(t, changed.Diffs, paths.Config)
	assert.Contains(t, changed.Diffs[paths.Config], "+  option routers 192.168.1.254;")
	assert.NotContains(t, changed.Diffs, paths.Defaults)
}

func TestGenerate_WriteFailure(t *testing.T) {
	repo := newTestRepo(t)
	cfg := lanConfig("eth1")
	require.NoError(t, repo.SaveInterface(&cfg))

	// A regular file where the parent directory should be.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "etc")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	res := NewGenerator(repo, GeneratorOptions{Paths: Paths{
		Config:   filepath.Join(blocker, "dhcpd.conf"),
		Defaults: filepath.Join(dir, "isc-dhcp-server"),
	}}).Generate(context.Background())
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
	assert.Empty(t, res.Files)
	assert.False(t, res.RequiresRestart)
}

func TestGenerate_DefaultsWriteFailureStillRequiresRestart(t *testing.T) {
	repo := newTestRepo(t)
	cfg := lanConfig("eth1")
	require.NoError(t, repo.SaveInterface(&cfg))

	dir := t.TempDir()
	blocker := filepath.Join(dir, "default")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	paths := Paths{
		Config:   filepath.Join(dir, "dhcp", "dhcpd.conf"),
		Defaults: filepath.Join(blocker, "isc-dhcp-server"),
	}

	res := NewGenerator(repo, GeneratorOptions{Paths: paths}).Generate(context.Background())
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
	assert.Equal(t, []string{paths.Config}, res.Files)
	assert.True(t, res.RequiresRestart)
	assert.FileExists(t, paths.Config)
}

func TestGenerate_SanitizesDomain(t *testing.T) {
	repo := newTestRepo(t)
	cfg := lanConfig("eth1")
	// Stored directly so validation does not reject it.
	cfg.Domain = "lan\"; deny booting; \"x"
	require.NoError(t, repo.SaveInterface(&cfg))

	paths := testPaths(t)
	res := NewGenerator(repo, GeneratorOptions{Paths: paths}).Generate(context.Background())
	require.True(t, res.Success, res.Error)

	conf := readFile(t, paths.Config)
	assert.Contains(t, conf, "  option domain-name \"lan deny booting x\";\n")
	assert.NotContains(t, conf, "deny booting;")
}

func TestBootstrapInterface_SmallSubnet(t *testing.T) {
	c, err := BootstrapInterface(ifaces.Assignment{Interface: "eth1", Role: ifaces.RoleLAN, IPAddress: "172.16.5.1", PrefixLength: 28})
	require.NoError(t, err)
	assert.Equal(t, "172.16.5.0/28", c.Subnet)
	assert.Equal(t, "172.16.5.1", c.PoolStart)
	assert.Equal(t, "172.16.5.14", c.PoolEnd)
	require.NoError(t, c.Validate())
}

func TestBootstrapInterface_DefaultAddress(t *testing.T) {
	c, err := BootstrapInterface(ifaces.Assignment{Interface: "br0", Role: ifaces.RoleLAN})
	require.NoError(t, err)
	assert.Equal(t, "br0", c.Name)
	assert.Equal(t, "192.168.1.0/24", c.Subnet)
	assert.Equal(t, "192.168.1.1", c.Gateway)
	require.NoError(t, c.Validate())
}
