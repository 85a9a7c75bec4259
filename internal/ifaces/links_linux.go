//go:build linux

package ifaces

import (
	"context"
	"net"

	"github.com/vishvananda/netlink"

	"monolith.network/netpkg/internal/errors"
	"monolith.network/netpkg/internal/logging"
)

// SystemLinks lists links through netlink.
type SystemLinks struct{}

// NewSystemLinks returns the platform link lister.
func NewSystemLinks() LinkLister {
	return SystemLinks{}
}

// ListLinks returns every link with its IPv4 addresses.
func (SystemLinks) ListLinks(_ context.Context) ([]Link, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, errors.Wrap(err, errors.KindIO, "failed to list interfaces")
	}

	out := make([]Link, 0, len(links))
	for _, link := range links {
		attrs := link.Attrs()
		l := Link{
			Name:     attrs.Name,
			Up:       attrs.Flags&net.FlagUp != 0,
			Loopback: attrs.Flags&net.FlagLoopback != 0,
		}
		if attrs.HardwareAddr != nil {
			l.HardwareAddr = attrs.HardwareAddr.String()
		}

		addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
		if err != nil {
			logging.WithComponent("ifaces").WithError(err).Debug("failed to list addresses", "interface", attrs.Name)
		}
		for _, addr := range addrs {
			l.IPv4 = append(l.IPv4, addr.IPNet.String())
		}
		out = append(out, l)
	}
	return out, nil
}
