//go:build !linux

package ifaces

import "context"

// SystemLinks is a stub on platforms without netlink.
type SystemLinks struct{}

// NewSystemLinks returns the platform link lister.
func NewSystemLinks() LinkLister {
	return SystemLinks{}
}

// ListLinks returns no links.
func (SystemLinks) ListLinks(context.Context) ([]Link, error) {
	return nil, nil
}
