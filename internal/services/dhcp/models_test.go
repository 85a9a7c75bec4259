package dhcp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGlobalSettings_Validate(t *testing.T) {
	s := DefaultGlobalSettings()
	assert.NoError(t, s.Validate())

	s.LogLevel = "warning"
	assert.NoError(t, s.Validate())

	s.MaxLeaseTime = 0
	assert.Error(t, s.Validate())
}

func TestGlobalSettings_ValidateNormalizesLogLevel(t *testing.T) {
	s := DefaultGlobalSettings()
	s.LogLevel = "  INFO "
	assert.NoError(t, s.Validate())
	assert.Equal(t, "info", s.LogLevel)

	s.LogLevel = "Verbose"
	assert.Error(t, s.Validate())
}

func TestInterfaceConfig_NormalizeDefaults(t *testing.T) {
	c := InterfaceConfig{Name: " eth1 ", DNSServers: []string{"", " 1.1.1.1"}}
	c.Normalize()
	assert.Equal(t, "eth1", c.Name)
	assert.Equal(t, []string{"1.1.1.1"}, c.DNSServers)
	assert.Equal(t, DefaultLeaseTime, c.LeaseTime)
	assert.Equal(t, DefaultMaxLeaseTime, c.MaxLeaseTime)
	assert.Equal(t, PolicyAllowAll, c.ClientPolicy)
	assert.NoError(t, c.Validate())
}

func TestInterfaceConfig_PoolNeedsBothEnds(t *testing.T) {
	c := lanConfig("eth1")
	c.Enabled = false
	c.PoolEnd = ""
	assert.Error(t, c.Validate())
}

func TestLeaseRecord_CurrentState(t *testing.T) {
	now := time.Date(2024, 1, 15, 11, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		rec  LeaseRecord
		want LeaseState
	}{
		{"ended", LeaseRecord{End: now.Add(-time.Second), State: LeaseActive}, LeaseExpired},
		{"running", LeaseRecord{End: now.Add(time.Second), State: LeaseActive}, LeaseActive},
		{"free without end", LeaseRecord{State: LeaseFree}, LeaseFree},
		{"unset", LeaseRecord{}, LeaseActive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rec.CurrentState(now))
		})
	}
}
