package dns

import (
	"sort"
	"strings"

	"monolith.network/netpkg/internal/errors"
	"monolith.network/netpkg/internal/state"
)

// Repository is the typed view of the DNS buckets in the state store.
type Repository struct {
	settings *state.TypedBucket[Settings]
	zones    *state.TypedBucket[Zone]
	records  *state.TypedBucket[Record]
}

// NewRepository opens (creating if needed) the DNS buckets.
func NewRepository(store state.Store) (*Repository, error) {
	settings, err := state.NewTypedBucket[Settings](store, state.BucketDNSSettings)
	if err != nil {
		return nil, err
	}
	zones, err := state.NewTypedBucket[Zone](store, state.BucketDNSZones)
	if err != nil {
		return nil, err
	}
	records, err := state.NewTypedBucket[Record](store, state.BucketDNSRecords)
	if err != nil {
		return nil, err
	}
	return &Repository{settings: settings, zones: zones, records: records}, nil
}

// Settings returns the settings, or nil when none are stored.
func (r *Repository) Settings() (*Settings, error) {
	s, err := r.settings.Get(state.SingletonKey)
	if errors.Is(err, state.ErrNotFound) {
		return nil, nil
	}
	return s, err
}

// SaveSettings stores the settings.
func (r *Repository) SaveSettings(s *Settings) error {
	return r.settings.Put(state.SingletonKey, s)
}

// Zones returns every zone ordered by name.
func (r *Repository) Zones() ([]*Zone, error) {
	return r.zones.List()
}

// Zone returns the zone with the given name, compared case-insensitively,
// or nil.
func (r *Repository) Zone(name string) (*Zone, error) {
	z, err := r.zones.Get(zoneKey(name))
	if errors.Is(err, state.ErrNotFound) {
		return nil, nil
	}
	return z, err
}

// SaveZone upserts a zone by name.
func (r *Repository) SaveZone(z *Zone) error {
	return r.zones.Put(z.Key(), z)
}

// Record returns the record with the given id, or nil.
func (r *Repository) Record(id string) (*Record, error) {
	rec, err := r.records.Get(id)
	if errors.Is(err, state.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

// SaveRecord upserts a record by id.
func (r *Repository) SaveRecord(rec *Record) error {
	return r.records.Put(rec.ID, rec)
}

// Records returns the records of zone, or all records when zone is empty,
// ordered by zone, name and type.
func (r *Repository) Records(zone string) ([]*Record, error) {
	all, err := r.records.List()
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, rec := range all {
		if zone == "" || strings.EqualFold(zoneKey(rec.Zone), zoneKey(zone)) {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if ka, kb := zoneKey(a.Zone), zoneKey(b.Zone); ka != kb {
			return ka < kb
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Type < b.Type
	})
	return out, nil
}
