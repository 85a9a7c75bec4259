// Package netutil converts between CIDR and netmask notation and computes
// DHCP pool ranges.
package netutil

import (
	"net"
	"strconv"
	"strings"

	"github.com/apparentlymart/go-cidr/cidr"

	"monolith.network/netpkg/internal/errors"
)

// DefaultPrefix is used when an interface address carries no prefix length.
const DefaultPrefix = 24

// Host offsets of the default pool within a subnet.
const (
	PoolStartOffset = 100
	PoolEndOffset   = 200
)

// PrefixToNetmask converts an IPv4 prefix length to dotted-quad netmask form.
func PrefixToNetmask(prefix int) (string, error) {
	if prefix < 0 || prefix > 32 {
		return "", errors.Errorf(errors.KindValidation, "invalid prefix length %d", prefix)
	}
	return net.IP(net.CIDRMask(prefix, 32)).String(), nil
}

// NetmaskToPrefix converts a dotted-quad netmask to a prefix length.
// Non-contiguous masks are rejected.
func NetmaskToPrefix(mask string) (int, error) {
	ip := net.ParseIP(strings.TrimSpace(mask)).To4()
	if ip == nil {
		return 0, errors.Errorf(errors.KindValidation, "invalid netmask %q", mask)
	}
	ones, size := net.IPMask(ip).Size()
	if size == 0 {
		return 0, errors.Errorf(errors.KindValidation, "non-contiguous netmask %q", mask)
	}
	return ones, nil
}

// ParseIPv4CIDR parses an IPv4 CIDR string and returns the masked network.
func ParseIPv4CIDR(s string) (*net.IPNet, error) {
	ip, network, err := net.ParseCIDR(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindValidation, "invalid subnet %q", s)
	}
	if ip.To4() == nil {
		return nil, errors.Errorf(errors.KindValidation, "subnet %q is not IPv4", s)
	}
	return network, nil
}

// SubnetNetmask splits a CIDR subnet into its network address and netmask,
// e.g. "192.168.1.0/24" -> "192.168.1.0", "255.255.255.0".
func SubnetNetmask(subnet string) (network, mask string, err error) {
	n, err := ParseIPv4CIDR(subnet)
	if err != nil {
		return "", "", err
	}
	return n.IP.String(), net.IP(n.Mask).String(), nil
}

// SubnetFromAddress derives the network CIDR containing ip. A prefix of zero
// or less selects DefaultPrefix.
func SubnetFromAddress(ip string, prefix int) (string, error) {
	addr := net.ParseIP(strings.TrimSpace(ip)).To4()
	if addr == nil {
		return "", errors.Errorf(errors.KindValidation, "invalid IPv4 address %q", ip)
	}
	if prefix <= 0 {
		prefix = DefaultPrefix
	}
	if prefix > 32 {
		return "", errors.Errorf(errors.KindValidation, "invalid prefix length %d", prefix)
	}
	mask := net.CIDRMask(prefix, 32)
	return (&net.IPNet{IP: addr.Mask(mask), Mask: mask}).String(), nil
}

// DefaultPool returns the .100-.200 host range of subnet. Subnets too small
// to hold that range get every usable host address instead.
func DefaultPool(subnet string) (start, end string, err error) {
	n, err := ParseIPv4CIDR(subnet)
	if err != nil {
		return "", "", err
	}

	if s, errS := cidr.Host(n, PoolStartOffset); errS == nil {
		if e, errE := cidr.Host(n, PoolEndOffset); errE == nil && !isBroadcast(n, e) {
			return s.String(), e.String(), nil
		}
	}

	first, last := cidr.AddressRange(n)
	ones, _ := n.Mask.Size()
	if ones < 31 {
		first = cidr.Inc(first)
		last = cidr.Dec(last)
	}
	return first.String(), last.String(), nil
}

func isBroadcast(n *net.IPNet, ip net.IP) bool {
	_, last := cidr.AddressRange(n)
	return last.Equal(ip)
}

// Contains reports whether ip lies inside subnet.
func Contains(subnet, ip string) bool {
	n, err := ParseIPv4CIDR(subnet)
	if err != nil {
		return false
	}
	addr := net.ParseIP(strings.TrimSpace(ip))
	return addr != nil && n.Contains(addr)
}

// CompareIP orders two addresses numerically. Unparseable addresses sort
// after valid ones and compare lexically among themselves.
func CompareIP(a, b string) int {
	ipA, ipB := net.ParseIP(a), net.ParseIP(b)
	switch {
	case ipA == nil && ipB == nil:
		return strings.Compare(a, b)
	case ipA == nil:
		return 1
	case ipB == nil:
		return -1
	}
	return compareBytes(ipA.To16(), ipB.To16())
}

func compareBytes(a, b []byte) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// FormatCIDR joins an address and prefix length.
func FormatCIDR(ip string, prefix int) string {
	return ip + "/" + strconv.Itoa(prefix)
}
