package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLease struct {
	MAC string `json:"mac"`
	IP  string `json:"ip"`
}

func TestTypedBucket(t *testing.T) {
	store := newTestStore(t)

	bucket, err := NewTypedBucket[testLease](store, BucketDHCPLeases)
	require.NoError(t, err)

	// Re-opening an existing bucket is fine.
	_, err = NewTypedBucket[testLease](store, BucketDHCPLeases)
	require.NoError(t, err)

	require.NoError(t, bucket.Put("bb", &testLease{MAC: "bb", IP: "10.0.0.2"}))
	require.NoError(t, bucket.Put("aa", &testLease{MAC: "aa", IP: "10.0.0.1"}))

	got, err := bucket.Get("aa")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", got.IP)

	_, err = bucket.Get("cc")
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := bucket.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "aa", list[0].MAC)
	assert.Equal(t, "bb", list[1].MAC)

	require.NoError(t, bucket.Put("aa", &testLease{MAC: "aa", IP: "10.0.0.9"}))
	got, err = bucket.Get("aa")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.9", got.IP)
}

func TestTypedBucket_SkipsCorruptEntries(t *testing.T) {
	store := newTestStore(t)
	bucket, err := NewTypedBucket[testLease](store, "leases")
	require.NoError(t, err)

	require.NoError(t, bucket.Put("ok", &testLease{MAC: "ok"}))
	require.NoError(t, store.Set("leases", "broken", []byte("not json")))

	list, err := bucket.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ok", list[0].MAC)
}

func TestNormalizeMAC(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"AA:BB:CC:DD:EE:FF", "aa:bb:cc:dd:ee:ff"},
		{"aa-bb-cc-dd-ee-ff", "aa:bb:cc:dd:ee:ff"},
		{" 00:11:22:33:44:55 ", "00:11:22:33:44:55"},
		{"NOT-A-MAC", "not-a-mac"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeMAC(tt.in), tt.in)
	}
}
