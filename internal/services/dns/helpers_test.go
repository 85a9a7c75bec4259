package dns

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"monolith.network/netpkg/internal/ifaces"
	"monolith.network/netpkg/internal/state"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	store, err := state.NewSQLiteStore(state.Options{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	repo, err := NewRepository(store)
	require.NoError(t, err)
	return repo
}

type staticAssignments []ifaces.Assignment

func (s staticAssignments) GetAssignments(context.Context) ([]ifaces.Assignment, error) {
	return s, nil
}
