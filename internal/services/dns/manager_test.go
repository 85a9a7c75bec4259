package dns

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"monolith.network/netpkg/internal/clock"
	"monolith.network/netpkg/internal/errors"
	"monolith.network/netpkg/internal/services"
	"monolith.network/netpkg/internal/services/servicestest"
)

type managerFixture struct {
	repo  *Repository
	ctl   *servicestest.Controller
	clock *clock.MockClock
	path  string
	m     *Manager
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()
	f := &managerFixture{
		repo:  newTestRepo(t),
		ctl:   &servicestest.Controller{},
		clock: clock.NewMockClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)),
		path:  confPath(t),
	}
	gen := NewGenerator(f.repo, GeneratorOptions{ConfigPath: f.path, Clock: f.clock})
	f.m = NewManager(f.repo, ManagerOptions{Generator: gen, Controller: f.ctl, Clock: f.clock})
	return f
}

func TestManager_GetSettingsCreatesDefaults(t *testing.T) {
	f := newManagerFixture(t)

	s, err := f.m.GetSettings(context.Background())
	require.NoError(t, err)
	assert.False(t, s.Enabled)
	assert.True(t, s.Recursion)
	assert.False(t, s.Forwarding)
	assert.Equal(t, []string{"8.8.8.8", "8.8.4.4"}, s.Forwarders)
	assert.True(t, s.DNSSECValidation)
	assert.Equal(t, "info", s.LogLevel)

	stored, err := f.repo.Settings()
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestManager_UpdateSettings(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	_, err := f.m.UpdateSettings(ctx, Settings{Enabled: true, Forwarders: []string{"8.8.8.8", "resolver.example"}})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindValidation))
	assert.Contains(t, err.Error(), "resolver.example")

	_, err = f.m.UpdateSettings(ctx, Settings{LogLevel: "verbose"})
	assert.True(t, errors.IsKind(err, errors.KindValidation))

	// Disabled: stored, generation skipped, no restart.
	s, err := f.m.UpdateSettings(ctx, Settings{Forwarders: []string{" 1.1.1.1 ", ""}})
	require.NoError(t, err)
	assert.Equal(t, []string{"1.1.1.1"}, s.Forwarders)
	assert.Equal(t, "info", s.LogLevel)
	assert.NoFileExists(t, f.path)
	f.ctl.AssertNotCalled(t, "Restart", mock.Anything, mock.Anything)

	// Enabled: file written and dnsmasq restarted.
	f.ctl.On("Restart", mock.Anything, DefaultServiceName).Return(nil).Once()
	_, err = f.m.UpdateSettings(ctx, Settings{Enabled: true, Forwarding: true, Forwarders: []string{"1.1.1.1"}, LogLevel: "info"})
	require.NoError(t, err)
	data, err := os.ReadFile(f.path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "server=1.1.1.1")
	f.ctl.AssertExpectations(t)
}

func TestManager_UpdateZoneUpsertsCaseInsensitively(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	z, err := f.m.UpdateZone(ctx, Zone{Name: "Home.Lan", Enabled: true})
	require.NoError(t, err)
	assert.Equal(t, ZoneMaster, z.Type)
	assert.Equal(t, 3600, z.TTL)
	assert.Equal(t, "admin@example.com", z.SOAEmail)

	_, err = f.m.UpdateZone(ctx, Zone{Name: "home.lan.", Enabled: false, TTL: 60})
	require.NoError(t, err)

	zones, err := f.m.GetZones(ctx)
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, "Home.Lan", zones[0].Name)
	assert.False(t, zones[0].Enabled)
	assert.Equal(t, 60, zones[0].TTL)
}

func TestManager_UpdateZoneValidation(t *testing.T) {
	f := newManagerFixture(t)
	for _, z := range []Zone{
		{},
		{Name: "bad_zone!"},
		{Name: "lan", Type: "primary"},
		{Name: "lan", Type: ZoneSlave},
		{Name: "lan", Type: ZoneSlave, Masters: []string{"ns1"}},
		{Name: "lan", AllowTransferTo: []string{"10.0.0.0/40"}},
		{Name: "lan", SOAEmail: "hostmaster"},
	} {
		_, err := f.m.UpdateZone(context.Background(), z)
		assert.True(t, errors.IsKind(err, errors.KindValidation), "zone %+v: %v", z, err)
	}
}

func TestManager_UpdateRecord(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	rec := DefaultRecord()
	rec.Zone = "lan"
	rec.Name = "nas"
	rec.Data = "192.168.1.5"

	_, err := f.m.UpdateRecord(ctx, rec)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindNotFound))

	_, err = f.m.UpdateZone(ctx, Zone{Name: "LAN"})
	require.NoError(t, err)

	created, err := f.m.UpdateRecord(ctx, rec)
	require.NoError(t, err)
	require.NoError(t, uuid.Validate(created.ID))
	assert.Equal(t, "LAN", created.Zone)
	assert.True(t, created.UpdatedAt.Equal(f.clock.Now()))

	// Same id updates in place.
	created.Data = "192.168.1.6"
	_, err = f.m.UpdateRecord(ctx, *created)
	require.NoError(t, err)

	// No id creates another record.
	other := rec
	other.Name = "printer"
	_, err = f.m.UpdateRecord(ctx, other)
	require.NoError(t, err)

	records, err := f.m.GetRecords(ctx, "lan")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "nas", records[0].Name)
	assert.Equal(t, "192.168.1.6", records[0].Data)

	all, err := f.m.GetRecords(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := f.m.GetRecords(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestManager_UpdateRecordValidation(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	_, err := f.m.UpdateZone(ctx, Zone{Name: "lan"})
	require.NoError(t, err)

	for _, rec := range []Record{
		{Zone: "lan", Type: "A", Data: "192.168.1.5"},
		{Zone: "lan", Name: "nas", Type: "A", Data: "999.1.1.1"},
		{Zone: "lan", Name: "nas", Type: "SPF", Data: "v=spf1"},
		{Zone: "lan", Name: "mail", Type: "MX", Data: "mx.lan", Priority: 70000},
		{ID: "not-a-uuid", Zone: "lan", Name: "nas", Type: "A", Data: "192.168.1.5"},
	} {
		_, err := f.m.UpdateRecord(ctx, rec)
		assert.True(t, errors.IsKind(err, errors.KindValidation), "record %+v: %v", rec, err)
	}
}

func TestManager_ServiceControl(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	f.ctl.On("Stop", ctx, DefaultServiceName).Return(nil)
	f.ctl.On("Status", ctx, DefaultServiceName).Return(services.ServiceStatus{Name: DefaultServiceName, Status: "inactive"}, nil)

	require.NoError(t, f.m.Stop(ctx))
	st, err := f.m.Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.Running)
	f.ctl.AssertExpectations(t)

	m := NewManager(newTestRepo(t), ManagerOptions{})
	assert.Error(t, m.Start(ctx))
	assert.False(t, m.Generate(ctx).Success)
}
