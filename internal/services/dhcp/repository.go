package dhcp

import (
	"monolith.network/netpkg/internal/errors"
	"monolith.network/netpkg/internal/state"
)

// Repository is the typed view of the DHCP buckets in the state store.
type Repository struct {
	settings   *state.TypedBucket[GlobalSettings]
	interfaces *state.TypedBucket[InterfaceConfig]
	leases     *state.TypedBucket[LeaseRecord]
}

// NewRepository opens (creating if needed) the DHCP buckets.
func NewRepository(store state.Store) (*Repository, error) {
	settings, err := state.NewTypedBucket[GlobalSettings](store, state.BucketDHCPSettings)
	if err != nil {
		return nil, err
	}
	interfaces, err := state.NewTypedBucket[InterfaceConfig](store, state.BucketDHCPInterfaces)
	if err != nil {
		return nil, err
	}
	leases, err := state.NewTypedBucket[LeaseRecord](store, state.BucketDHCPLeases)
	if err != nil {
		return nil, err
	}
	return &Repository{settings: settings, interfaces: interfaces, leases: leases}, nil
}

// Settings returns the global settings, or nil when none are stored.
func (r *Repository) Settings() (*GlobalSettings, error) {
	s, err := r.settings.Get(state.SingletonKey)
	if errors.Is(err, state.ErrNotFound) {
		return nil, nil
	}
	return s, err
}

// SaveSettings stores the global settings.
func (r *Repository) SaveSettings(s *GlobalSettings) error {
	return r.settings.Put(state.SingletonKey, s)
}

// Interfaces returns every stored interface config ordered by name.
func (r *Repository) Interfaces() ([]*InterfaceConfig, error) {
	return r.interfaces.List()
}

// EnabledInterfaces returns the enabled interface configs ordered by name.
func (r *Repository) EnabledInterfaces() ([]*InterfaceConfig, error) {
	all, err := r.interfaces.List()
	if err != nil {
		return nil, err
	}
	enabled := all[:0]
	for _, c := range all {
		if c.Enabled {
			enabled = append(enabled, c)
		}
	}
	return enabled, nil
}

// SaveInterface upserts an interface config by name.
func (r *Repository) SaveInterface(c *InterfaceConfig) error {
	return r.interfaces.Put(c.Name, c)
}

// Lease returns the stored lease for a MAC, or nil when none exists.
func (r *Repository) Lease(mac string) (*LeaseRecord, error) {
	l, err := r.leases.Get(state.NormalizeMAC(mac))
	if errors.Is(err, state.ErrNotFound) {
		return nil, nil
	}
	return l, err
}

// SaveLease upserts a lease by MAC.
func (r *Repository) SaveLease(l *LeaseRecord) error {
	l.MAC = state.NormalizeMAC(l.MAC)
	return r.leases.Put(l.MAC, l)
}

// Leases returns every stored lease.
func (r *Repository) Leases() ([]*LeaseRecord, error) {
	return r.leases.List()
}
