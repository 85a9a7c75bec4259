package dhcp

import (
	"context"

	"monolith.network/netpkg/internal/ifaces"
	"monolith.network/netpkg/internal/netutil"
)

// DefaultLANAddress is served when the LAN assignment carries no address.
const DefaultLANAddress = "192.168.1.1"

// bootstrap derives an enabled interface from the LAN role assignment and
// stores it, along with default global settings when withSettings is set.
// It reports whether anything was stored.
func (g *Generator) bootstrap(ctx context.Context, withSettings bool) (bool, error) {
	if g.assignments == nil {
		return false, nil
	}
	assignments, err := g.assignments.GetAssignments(ctx)
	if err != nil {
		return false, err
	}
	lan, ok := ifaces.FindRole(assignments, ifaces.RoleLAN)
	if !ok || lan.Interface == "" {
		g.logger.Debug("no LAN interface assigned, nothing to bootstrap")
		return false, nil
	}
	if lan.IPAddress == "" {
		g.logger.Warn("LAN interface has no address, bootstrapping with the default LAN subnet",
			"interface", lan.Interface, "address", DefaultLANAddress, "prefix", netutil.DefaultPrefix)
	}

	cfg, err := BootstrapInterface(lan)
	if err != nil {
		return false, err
	}
	now := g.now()
	cfg.UpdatedAt = now
	if err := g.repo.SaveInterface(cfg); err != nil {
		return false, err
	}

	if withSettings {
		settings := DefaultGlobalSettings()
		settings.UpdatedAt = now
		if err := g.repo.SaveSettings(&settings); err != nil {
			return true, err
		}
	}

	g.logger.Info("bootstrapped DHCP from LAN interface",
		"interface", cfg.Name, "subnet", cfg.Subnet, "pool_start", cfg.PoolStart, "pool_end", cfg.PoolEnd)
	return true, nil
}

// BootstrapInterface builds the enabled config served on a LAN interface:
// its subnet (default prefix 24), the .100-.200 pool, the LAN address as
// gateway and the stock DNS servers.
func BootstrapInterface(lan ifaces.Assignment) (*InterfaceConfig, error) {
	if lan.IPAddress == "" {
		lan.IPAddress = DefaultLANAddress
		lan.PrefixLength = netutil.DefaultPrefix
	}
	subnet, err := netutil.SubnetFromAddress(lan.IPAddress, lan.PrefixLength)
	if err != nil {
		return nil, err
	}
	start, end, err := netutil.DefaultPool(subnet)
	if err != nil {
		return nil, err
	}
	return &InterfaceConfig{
		Name:         lan.Interface,
		Enabled:      true,
		Subnet:       subnet,
		PoolStart:    start,
		PoolEnd:      end,
		Gateway:      lan.IPAddress,
		DNSServers:   append([]string(nil), DefaultDNSServers...),
		Domain:       DefaultDomain,
		LeaseTime:    DefaultLeaseTime,
		MaxLeaseTime: DefaultMaxLeaseTime,
		ClientPolicy: PolicyAllowAll,
	}, nil
}
