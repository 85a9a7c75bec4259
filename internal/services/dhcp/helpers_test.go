package dhcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"monolith.network/netpkg/internal/ifaces"
	"monolith.network/netpkg/internal/state"
)

func newTestStore(t *testing.T) *state.SQLiteStore {
	t.Helper()
	store, err := state.NewSQLiteStore(state.Options{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(newTestStore(t))
	require.NoError(t, err)
	return repo
}

type staticAssignments []ifaces.Assignment

func (s staticAssignments) GetAssignments(context.Context) ([]ifaces.Assignment, error) {
	return s, nil
}

func lanConfig(name string) InterfaceConfig {
	return InterfaceConfig{
		Name:         name,
		Enabled:      true,
		Subnet:       "192.168.1.0/24",
		PoolStart:    "192.168.1.100",
		PoolEnd:      "192.168.1.200",
		Gateway:      "192.168.1.1",
		DNSServers:   []string{"8.8.8.8"},
		LeaseTime:    DefaultLeaseTime,
		MaxLeaseTime: DefaultMaxLeaseTime,
		ClientPolicy: PolicyAllowAll,
	}
}
