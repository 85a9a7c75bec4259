package validation

import (
	"net"
	"regexp"
	"strings"

	"monolith.network/netpkg/internal/errors"
)

var (
	// Valid interface name: alphanumeric, dash, underscore, dot (for VLANs), max 15 chars
	interfaceNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,15}$`)

	// One DNS label
	labelRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)

	// Characters that must never reach a generated config file
	dangerousChars = []string{";", "|", "&", "$", "`", "(", ")", "<", ">", "\\", "\"", "'", "\n", "\r"}
)

func invalid(format string, args ...any) error {
	return errors.Errorf(errors.KindValidation, format, args...)
}

// ValidateInterfaceName validates a network interface name
func ValidateInterfaceName(name string) error {
	if name == "" {
		return invalid("interface name cannot be empty")
	}
	if len(name) > 15 {
		return invalid("interface name too long (max 15 characters): %s", name)
	}
	if !interfaceNameRegex.MatchString(name) {
		return invalid("invalid interface name: %s (must be alphanumeric with -_.)", name)
	}
	return nil
}

// ValidateIPv4 validates a dotted-quad IPv4 address.
func ValidateIPv4(s string) error {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil || ip.To4() == nil {
		return invalid("invalid IPv4 address: %q", s)
	}
	return nil
}

// ValidateIP validates an IPv4 or IPv6 address.
func ValidateIP(s string) error {
	if net.ParseIP(strings.TrimSpace(s)) == nil {
		return invalid("invalid IP address: %q", s)
	}
	return nil
}

// ValidateIPv4CIDR validates an IPv4 network in CIDR notation.
func ValidateIPv4CIDR(s string) error {
	ip, _, err := net.ParseCIDR(strings.TrimSpace(s))
	if err != nil {
		return invalid("invalid CIDR: %q", s)
	}
	if ip.To4() == nil {
		return invalid("CIDR is not IPv4: %q", s)
	}
	return nil
}

// ValidateIPOrCIDR validates an IP address or CIDR range
func ValidateIPOrCIDR(s string) error {
	if s == "" {
		return invalid("IP/CIDR cannot be empty")
	}
	if strings.Contains(s, "/") {
		if _, _, err := net.ParseCIDR(s); err != nil {
			return invalid("invalid CIDR: %q", s)
		}
		return nil
	}
	return ValidateIP(s)
}

// ValidateMAC validates a hardware address.
func ValidateMAC(s string) error {
	if _, err := net.ParseMAC(strings.TrimSpace(s)); err != nil {
		return invalid("invalid MAC address: %q", s)
	}
	return nil
}

// ValidateDomain validates a DNS domain name. A single trailing dot is allowed.
func ValidateDomain(s string) error {
	name := strings.TrimSuffix(s, ".")
	if name == "" {
		return invalid("domain cannot be empty")
	}
	if len(name) > 253 {
		return invalid("domain too long (max 253 characters)")
	}
	for _, label := range strings.Split(name, ".") {
		if !labelRegex.MatchString(label) {
			return invalid("invalid domain label %q in %q", label, s)
		}
	}
	return nil
}

// ValidateAllowlist checks if a value is in an allowed list
func ValidateAllowlist(value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return invalid("%q is not one of: %s", value, strings.Join(allowed, ", "))
}

// SanitizeString removes characters that are unsafe inside generated config lines.
func SanitizeString(s string) string {
	for _, char := range dangerousChars {
		s = strings.ReplaceAll(s, char, "")
	}
	return s
}
