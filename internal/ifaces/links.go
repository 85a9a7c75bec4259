package ifaces

import "context"

// Link is a network interface present on the system.
type Link struct {
	Name         string   `json:"name"`
	HardwareAddr string   `json:"hardwareAddr,omitempty"`
	Up           bool     `json:"up"`
	Loopback     bool     `json:"loopback"`
	IPv4         []string `json:"ipv4,omitempty"` // CIDR form
}

// FirstIPv4 returns the first IPv4 CIDR of the link, or "".
func (l Link) FirstIPv4() string {
	if len(l.IPv4) == 0 {
		return ""
	}
	return l.IPv4[0]
}

// LinkLister enumerates system links.
type LinkLister interface {
	ListLinks(ctx context.Context) ([]Link, error)
}

// StaticLinks is a fixed LinkLister.
type StaticLinks []Link

// ListLinks returns the fixed links.
func (s StaticLinks) ListLinks(context.Context) ([]Link, error) {
	return s, nil
}
