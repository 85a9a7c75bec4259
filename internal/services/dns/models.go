// Package dns manages the dnsmasq configuration: resolver settings, local
// zones and records, and generation of the dnsmasq drop-in file.
package dns

import (
	"math"
	"strings"
	"time"

	"monolith.network/netpkg/internal/errors"
	"monolith.network/netpkg/internal/validation"
)

// Defaults for settings created on first read.
const (
	DefaultLogLevel    = "info"
	DefaultLocalDomain = "local"
)

// DefaultForwarders are the upstream resolvers offered when none are set.
var DefaultForwarders = []string{"8.8.8.8", "8.8.4.4"}

var logLevels = []string{"debug", "info", "warning", "error"}

// Settings is the resolver configuration singleton.
type Settings struct {
	Enabled          bool      `json:"enabled"`
	Recursion        bool      `json:"recursion"`
	Forwarding       bool      `json:"forwarding"`
	Forwarders       []string  `json:"forwarders"`
	LogLevel         string    `json:"logLevel"`
	DNSSECValidation bool      `json:"dnssecValidation"`
	LocalDomain      string    `json:"localDomain,omitempty"`
	ListenInterfaces []string  `json:"listenInterfaces,omitempty"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// DefaultSettings returns the settings stored on first read: the
// resolver is disabled until an administrator turns it on.
func DefaultSettings() Settings {
	return Settings{
		Enabled:          false,
		Recursion:        true,
		Forwarding:       false,
		Forwarders:       append([]string(nil), DefaultForwarders...),
		LogLevel:         DefaultLogLevel,
		DNSSECValidation: true,
		LocalDomain:      DefaultLocalDomain,
	}
}

// Normalize trims the settings and drops empty list entries.
func (s *Settings) Normalize() {
	s.Forwarders = compact(s.Forwarders)
	s.ListenInterfaces = compact(s.ListenInterfaces)
	s.LocalDomain = strings.TrimSpace(s.LocalDomain)
	s.LogLevel = strings.ToLower(strings.TrimSpace(s.LogLevel))
	if s.LogLevel == "" {
		s.LogLevel = DefaultLogLevel
	}
}

// Validate checks forwarders, log level, domain and interface names.
func (s *Settings) Validate() error {
	for _, f := range s.Forwarders {
		if err := validation.ValidateIP(f); err != nil {
			return errors.Wrapf(err, errors.KindValidation, "invalid forwarder address: %s", f)
		}
	}
	if err := validation.ValidateAllowlist(s.LogLevel, logLevels); err != nil {
		return err
	}
	if s.LocalDomain != "" {
		if err := validation.ValidateDomain(s.LocalDomain); err != nil {
			return err
		}
	}
	for _, name := range s.ListenInterfaces {
		if err := validation.ValidateInterfaceName(name); err != nil {
			return err
		}
	}
	return nil
}

// ZoneType is the role this resolver plays for a zone.
type ZoneType string

const (
	ZoneMaster  ZoneType = "master"
	ZoneSlave   ZoneType = "slave"
	ZoneForward ZoneType = "forward"
	ZoneStub    ZoneType = "stub"
)

var zoneTypes = []string{string(ZoneMaster), string(ZoneSlave), string(ZoneForward), string(ZoneStub)}

// Zone is a DNS zone, keyed by its lowercased name.
type Zone struct {
	Name            string    `json:"name"`
	Type            ZoneType  `json:"type"`
	Enabled         bool      `json:"enabled"`
	File            string    `json:"file,omitempty"`
	Masters         []string  `json:"masters"`
	AllowTransfer   bool      `json:"allowTransfer"`
	AllowTransferTo []string  `json:"allowTransferTo"`
	TTL             int       `json:"ttl"`
	SOAEmail        string    `json:"soaEmail"`
	Refresh         int       `json:"refresh"`
	Retry           int       `json:"retry"`
	Expire          int       `json:"expire"`
	NegativeTTL     int       `json:"negativeTtl"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// DefaultZone returns a zone with the stock SOA timers. Request bodies
// are decoded on top of it.
func DefaultZone() Zone {
	return Zone{
		Type:        ZoneMaster,
		TTL:         3600,
		SOAEmail:    "admin@example.com",
		Refresh:     86400,
		Retry:       7200,
		Expire:      604800,
		NegativeTTL: 3600,
	}
}

// Key is the store key of the zone.
func (z *Zone) Key() string {
	return zoneKey(z.Name)
}

func zoneKey(name string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(name), "."))
}

// Normalize trims the zone and fills unset fields with defaults.
func (z *Zone) Normalize() {
	def := DefaultZone()
	z.Name = strings.TrimSuffix(strings.TrimSpace(z.Name), ".")
	z.Type = ZoneType(strings.ToLower(strings.TrimSpace(string(z.Type))))
	if z.Type == "" {
		z.Type = def.Type
	}
	z.Masters = compact(z.Masters)
	z.AllowTransferTo = compact(z.AllowTransferTo)
	if z.TTL == 0 {
		z.TTL = def.TTL
	}
	if z.SOAEmail == "" {
		z.SOAEmail = def.SOAEmail
	}
	if z.Refresh == 0 {
		z.Refresh = def.Refresh
	}
	if z.Retry == 0 {
		z.Retry = def.Retry
	}
	if z.Expire == 0 {
		z.Expire = def.Expire
	}
	if z.NegativeTTL == 0 {
		z.NegativeTTL = def.NegativeTTL
	}
}

// Validate checks the zone.
func (z *Zone) Validate() error {
	if strings.TrimSpace(z.Name) == "" {
		return errors.New(errors.KindValidation, "zone name is required")
	}
	if err := validation.ValidateDomain(z.Name); err != nil {
		return err
	}
	if err := validation.ValidateAllowlist(string(z.Type), zoneTypes); err != nil {
		return errors.Wrap(err, errors.KindValidation, "invalid zone type")
	}
	if (z.Type == ZoneSlave || z.Type == ZoneStub || z.Type == ZoneForward) && len(z.Masters) == 0 {
		return errors.Errorf(errors.KindValidation, "a %s zone requires at least one master", z.Type)
	}
	for _, m := range z.Masters {
		if err := validation.ValidateIP(m); err != nil {
			return err
		}
	}
	for _, a := range z.AllowTransferTo {
		if err := validation.ValidateIPOrCIDR(a); err != nil {
			return err
		}
	}
	for name, v := range map[string]int{"ttl": z.TTL, "refresh": z.Refresh, "retry": z.Retry, "expire": z.Expire, "negative ttl": z.NegativeTTL} {
		if v < 0 {
			return errors.Errorf(errors.KindValidation, "%s must not be negative", name)
		}
	}
	if !strings.Contains(z.SOAEmail, "@") {
		return errors.Errorf(errors.KindValidation, "invalid SOA email %q", z.SOAEmail)
	}
	return nil
}

// Record is a resource record served from a local zone.
type Record struct {
	ID        string    `json:"id"`
	Zone      string    `json:"zone"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Data      string    `json:"data"`
	TTL       int       `json:"ttl"`
	Priority  int       `json:"priority"`
	Enabled   bool      `json:"enabled"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DefaultRecord returns an enabled A record with the stock TTL. Request
// bodies are decoded on top of it.
func DefaultRecord() Record {
	return Record{Type: "A", TTL: 3600, Enabled: true}
}

var recordTypes = []string{"A", "AAAA", "CNAME", "MX", "TXT", "NS", "PTR", "SRV"}

// Normalize trims the record and uppercases its type.
func (r *Record) Normalize() {
	r.ID = strings.TrimSpace(r.ID)
	r.Zone = strings.TrimSuffix(strings.TrimSpace(r.Zone), ".")
	r.Name = strings.TrimSpace(r.Name)
	r.Type = strings.ToUpper(strings.TrimSpace(r.Type))
	r.Data = strings.TrimSpace(r.Data)
	if r.Type == "" {
		r.Type = "A"
	}
}

// Validate checks the record fields and that the record can be built.
func (r *Record) Validate() error {
	if r.Zone == "" || r.Name == "" {
		return errors.New(errors.KindValidation, "record zone and name are required")
	}
	if err := validation.ValidateDomain(r.Zone); err != nil {
		return err
	}
	if err := validation.ValidateAllowlist(r.Type, recordTypes); err != nil {
		return errors.Wrap(err, errors.KindValidation, "invalid record type")
	}
	if r.TTL < 0 || int64(r.TTL) > math.MaxUint32 {
		return errors.Errorf(errors.KindValidation, "ttl %d out of range", r.TTL)
	}
	if r.Priority < 0 || r.Priority > 65535 {
		return errors.Errorf(errors.KindValidation, "priority %d out of range", r.Priority)
	}
	_, err := r.RR()
	return err
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
