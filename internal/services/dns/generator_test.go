package dns

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monolith.network/netpkg/internal/ifaces"
)

func confPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "dnsmasq.d", "monolith.conf")
}

func enabledSettings() Settings {
	s := DefaultSettings()
	s.Enabled = true
	return s
}

func TestGenerate_CreatesDisabledDefaults(t *testing.T) {
	repo := newTestRepo(t)
	path := confPath(t)
	g := NewGenerator(repo, GeneratorOptions{
		ConfigPath:  path,
		Assignments: staticAssignments{{Interface: "eth1", Role: ifaces.RoleLAN}, {Interface: "eth0", Role: ifaces.RoleWAN}},
	})

	res := g.Generate(context.Background())
	assert.True(t, res.Success)
	assert.True(t, res.Skipped)
	assert.Equal(t, reasonDisabled, res.Reason)
	assert.NoFileExists(t, path)

	s, err := repo.Settings()
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.False(t, s.Enabled)
	assert.Equal(t, []string{"eth1"}, s.ListenInterfaces)
	assert.Equal(t, DefaultForwarders, s.Forwarders)
}

func TestGenerate_DisabledWritesNothing(t *testing.T) {
	repo := newTestRepo(t)
	s := DefaultSettings()
	require.NoError(t, repo.SaveSettings(&s))

	path := confPath(t)
	res := NewGenerator(repo, GeneratorOptions{ConfigPath: path}).Generate(context.Background())
	assert.True(t, res.Skipped)
	assert.Empty(t, res.Files)
	assert.NoFileExists(t, path)
}

func TestGenerate_Defaults(t *testing.T) {
	repo := newTestRepo(t)
	s := enabledSettings()
	require.NoError(t, repo.SaveSettings(&s))

	path := confPath(t)
	res := NewGenerator(repo, GeneratorOptions{ConfigPath: path}).Generate(context.Background())
	require.True(t, res.Success, res.Error)
	assert.True(t, res.RequiresRestart)
	assert.Equal(t, []string{path}, res.Files)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	expected := `# Generated by Monolith FireWall
# Do not edit this file manually - changes will be overwritten

# Listen on all interfaces

domain=local
local=/local/

dnssec
trust-anchor=.,20326,8,2,E06D44B80B8F1D39A95C0B0D7C65D08458E880409BBC683457104237C7F8EC8D

# Read DHCP leases for hostname resolution
dhcp-leasefile=/var/lib/dhcp/dhcpd.leases
read-ethers

cache-size=1000

no-resolv

`
	assert.Equal(t, expected, string(data))
}

func TestGenerate_ForwardingAndLogging(t *testing.T) {
	repo := newTestRepo(t)
	s := enabledSettings()
	s.Forwarding = true
	s.Forwarders = []string{"1.1.1.1", "2606:4700:4700::1111"}
	s.Recursion = false
	s.DNSSECValidation = false
	s.LogLevel = "debug"
	s.ListenInterfaces = []string{"eth1", "eth2"}
	require.NoError(t, repo.SaveSettings(&s))

	path := confPath(t)
	res := NewGenerator(repo, GeneratorOptions{ConfigPath: path}).Generate(context.Background())
	require.True(t, res.Success, res.Error)
	assert.Equal(t, true, res.Metadata["forwarding"])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	conf := string(data)

	assert.Contains(t, conf, "interface=eth1\ninterface=eth2\n\n")
	assert.NotContains(t, conf, "# Listen on all interfaces")
	assert.Contains(t, conf, "server=1.1.1.1\nserver=2606:4700:4700::1111\n\n")
	assert.Contains(t, conf, "# Recursion disabled\n")
	assert.NotContains(t, conf, "dnssec")
	assert.Contains(t, conf, "log-queries\nlog-dhcp\ncache-size=1000\n")
}

func TestGenerate_ForwardersOnlyWhenForwarding(t *testing.T) {
	repo := newTestRepo(t)
	s := enabledSettings()
	s.Forwarders = []string{"1.1.1.1"}
	require.NoError(t, repo.SaveSettings(&s))

	path := confPath(t)
	res := NewGenerator(repo, GeneratorOptions{ConfigPath: path}).Generate(context.Background())
	require.True(t, res.Success, res.Error)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "server=")
}

func TestGenerate_Records(t *testing.T) {
	repo := newTestRepo(t)
	s := enabledSettings()
	s.LocalDomain = "lan"
	require.NoError(t, repo.SaveSettings(&s))

	for _, z := range []Zone{
		{Name: "lan", Type: ZoneMaster, Enabled: true},
		{Name: "off.example", Type: ZoneMaster, Enabled: false},
		{Name: "corp.example", Type: ZoneForward, Enabled: true, Masters: []string{"10.0.0.53"}},
	} {
		require.NoError(t, repo.SaveZone(&z))
	}
	for _, r := range []Record{
		{ID: "1", Zone: "LAN", Name: "nas", Type: "A", Data: "192.168.1.5", TTL: 300, Enabled: true},
		{ID: "2", Zone: "lan", Name: "files", Type: "CNAME", Data: "nas.lan", TTL: 300, Enabled: true},
		{ID: "3", Zone: "lan", Name: "old", Type: "A", Data: "192.168.1.6", Enabled: false},
		{ID: "4", Zone: "lan", Name: "broken", Type: "A", Data: "nope", Enabled: true},
		{ID: "5", Zone: "lan", Name: "@", Type: "NS", Data: "ns1.lan", Enabled: true},
		{ID: "6", Zone: "off.example", Name: "www", Type: "A", Data: "10.0.0.1", Enabled: true},
		{ID: "7", Zone: "corp.example", Name: "www", Type: "A", Data: "10.0.0.2", Enabled: true},
	} {
		require.NoError(t, repo.SaveRecord(&r))
	}

	path := confPath(t)
	res := NewGenerator(repo, GeneratorOptions{ConfigPath: path}).Generate(context.Background())
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 2, res.Metadata["records"])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	conf := string(data)

	assert.Contains(t, conf, "# Local records\ncname=files.lan,nas.lan,300\nhost-record=nas.lan,192.168.1.5,300\n\n")
	assert.NotContains(t, conf, "old.lan")
	assert.NotContains(t, conf, "broken")
	assert.NotContains(t, conf, "example")
	assert.Equal(t, 1, strings.Count(conf, "cache-size=1000"))
}

func TestGenerate_LeaseFileOverride(t *testing.T) {
	repo := newTestRepo(t)
	s := enabledSettings()
	require.NoError(t, repo.SaveSettings(&s))

	path := confPath(t)
	res := NewGenerator(repo, GeneratorOptions{ConfigPath: path, LeaseFile: "/run/dhcpd.leases"}).Generate(context.Background())
	require.True(t, res.Success, res.Error)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "dhcp-leasefile=/run/dhcpd.leases\n")
}
