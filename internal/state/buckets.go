package state

import (
	"encoding/json"
	"net"
	"sort"
	"strings"

	"monolith.network/netpkg/internal/logging"
)

// Standard bucket names
const (
	BucketDHCPSettings   = "dhcp_settings"
	BucketDHCPInterfaces = "dhcp_interfaces"
	BucketDHCPLeases     = "dhcp_leases"
	BucketDNSSettings    = "dns_settings"
	BucketDNSZones       = "dns_zones"
	BucketDNSRecords     = "dns_records"
)

// SingletonKey is the key used by buckets holding exactly one value.
const SingletonKey = "global"

// TypedBucket provides JSON-typed access to one bucket.
type TypedBucket[T any] struct {
	store  Store
	bucket string
}

// NewTypedBucket creates the bucket if needed and returns an accessor for it.
func NewTypedBucket[T any](store Store, bucket string) (*TypedBucket[T], error) {
	if err := EnsureBucket(store, bucket); err != nil {
		return nil, err
	}
	return &TypedBucket[T]{store: store, bucket: bucket}, nil
}

// Get retrieves the value stored under key. A missing key yields ErrNotFound.
func (b *TypedBucket[T]) Get(key string) (*T, error) {
	var v T
	if err := b.store.GetJSON(b.bucket, key, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Put stores v under key, replacing any previous value.
func (b *TypedBucket[T]) Put(key string, v *T) error {
	return b.store.SetJSON(b.bucket, key, v)
}

// List returns all values ordered by key. Undecodable values are skipped.
func (b *TypedBucket[T]) List() ([]*T, error) {
	data, err := b.store.List(b.bucket)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]*T, 0, len(keys))
	for _, k := range keys {
		var v T
		if err := json.Unmarshal(data[k], &v); err != nil {
			logging.WithComponent("state").Warn("skipping corrupt entry", "bucket", b.bucket, "key", k, "error", err)
			continue
		}
		out = append(out, &v)
	}
	return out, nil
}

// NormalizeMAC normalizes a MAC address to lowercase with colons.
// Unparseable input is returned lowercased and trimmed.
func NormalizeMAC(mac string) string {
	hw, err := net.ParseMAC(strings.TrimSpace(mac))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mac))
	}
	return hw.String()
}
