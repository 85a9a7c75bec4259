package dns

import (
	"net"
	"strconv"
	"strings"

	"github.com/miekg/dns"

	"monolith.network/netpkg/internal/errors"
)

// FQDN returns the absolute owner name of the record. "@" is the zone
// apex; a name ending in a dot is already absolute.
func (r *Record) FQDN() string {
	zone := dns.Fqdn(r.Zone)
	switch {
	case r.Name == "@" || r.Name == "":
		return strings.ToLower(zone)
	case dns.IsFqdn(r.Name):
		return strings.ToLower(r.Name)
	default:
		return strings.ToLower(dns.Fqdn(r.Name + "." + zone))
	}
}

// RR builds the resource record. MX preference and SRV priority come from
// Priority; SRV data is "<weight> <port> <target>".
func (r *Record) RR() (dns.RR, error) {
	name := r.FQDN()
	if _, ok := dns.IsDomainName(name); !ok {
		return nil, errors.Errorf(errors.KindValidation, "invalid record name %q", r.Name)
	}

	header := dns.RR_Header{
		Name:   name,
		Rrtype: dns.StringToType[r.Type],
		Class:  dns.ClassINET,
		Ttl:    uint32(r.TTL),
	}

	var rr dns.RR
	switch r.Type {
	case "A":
		if ip := net.ParseIP(r.Data); ip != nil && ip.To4() != nil {
			rr = &dns.A{Hdr: header, A: ip.To4()}
		}
	case "AAAA":
		if ip := net.ParseIP(r.Data); ip != nil && ip.To4() == nil {
			rr = &dns.AAAA{Hdr: header, AAAA: ip}
		}
	case "CNAME":
		if target, ok := hostTarget(r.Data); ok {
			rr = &dns.CNAME{Hdr: header, Target: target}
		}
	case "NS":
		if target, ok := hostTarget(r.Data); ok {
			rr = &dns.NS{Hdr: header, Ns: target}
		}
	case "PTR":
		if target, ok := hostTarget(r.Data); ok {
			rr = &dns.PTR{Hdr: header, Ptr: target}
		}
	case "TXT":
		if r.Data != "" {
			rr = &dns.TXT{Hdr: header, Txt: []string{r.Data}}
		}
	case "MX":
		if target, ok := hostTarget(r.Data); ok {
			rr = &dns.MX{Hdr: header, Preference: uint16(r.Priority), Mx: target}
		}
	case "SRV":
		rr = srvRecord(header, uint16(r.Priority), r.Data)
	default:
		return nil, errors.Errorf(errors.KindValidation, "unsupported record type %q", r.Type)
	}
	if rr == nil {
		return nil, errors.Errorf(errors.KindValidation, "invalid %s record data %q", r.Type, r.Data)
	}

	// Round-trip through the zone-file parser to catch anything the typed
	// construction let through.
	if _, err := dns.NewRR(rr.String()); err != nil {
		return nil, errors.Wrapf(err, errors.KindValidation, "invalid %s record", r.Type)
	}
	return rr, nil
}

func hostTarget(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	fqdn := dns.Fqdn(strings.ToLower(s))
	_, ok := dns.IsDomainName(fqdn)
	return fqdn, ok
}

func srvRecord(header dns.RR_Header, priority uint16, data string) dns.RR {
	fields := strings.Fields(data)
	if len(fields) != 3 {
		return nil
	}
	weight, err := strconv.ParseUint(fields[0], 10, 16)
	if err != nil {
		return nil
	}
	port, err := strconv.ParseUint(fields[1], 10, 16)
	if err != nil {
		return nil
	}
	target, ok := hostTarget(fields[2])
	if !ok {
		return nil
	}
	return &dns.SRV{Hdr: header, Priority: priority, Weight: uint16(weight), Port: uint16(port), Target: target}
}

// dnsmasqLine renders rr as a dnsmasq directive. NS records have no
// dnsmasq equivalent and yield false.
func dnsmasqLine(rr dns.RR) (string, bool) {
	h := rr.Header()
	name := bare(h.Name)
	ttl := strconv.FormatUint(uint64(h.Ttl), 10)

	switch v := rr.(type) {
	case *dns.A:
		return "host-record=" + name + "," + v.A.String() + "," + ttl, true
	case *dns.AAAA:
		return "host-record=" + name + "," + v.AAAA.String() + "," + ttl, true
	case *dns.CNAME:
		return "cname=" + name + "," + bare(v.Target) + "," + ttl, true
	case *dns.MX:
		return "mx-host=" + name + "," + bare(v.Mx) + "," + strconv.Itoa(int(v.Preference)), true
	case *dns.TXT:
		return "txt-record=" + name + "," + strconv.Quote(strings.Join(v.Txt, "")), true
	case *dns.SRV:
		return "srv-host=" + name + "," + bare(v.Target) + "," + strconv.Itoa(int(v.Port)) + "," +
			strconv.Itoa(int(v.Priority)) + "," + strconv.Itoa(int(v.Weight)), true
	case *dns.PTR:
		return "ptr-record=" + name + "," + bare(v.Ptr), true
	default:
		return "", false
	}
}

func bare(name string) string {
	return strings.TrimSuffix(name, ".")
}
