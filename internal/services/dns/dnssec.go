package dns

import (
	"strconv"

	"github.com/miekg/dns"
)

// rootAnchor is the DS record of the root KSK-2017.
var rootAnchor = dns.DS{
	Hdr:        dns.RR_Header{Name: ".", Rrtype: dns.TypeDS, Class: dns.ClassINET},
	KeyTag:     20326,
	Algorithm:  dns.RSASHA256,
	DigestType: dns.SHA256,
	Digest:     "E06D44B80B8F1D39A95C0B0D7C65D08458E880409BBC683457104237C7F8EC8D",
}

// trustAnchor formats a DS record as a dnsmasq trust-anchor value:
// <domain>,<key-tag>,<algorithm>,<digest-type>,<digest>.
func trustAnchor(ds dns.DS) string {
	return ds.Hdr.Name + "," +
		strconv.Itoa(int(ds.KeyTag)) + "," +
		strconv.Itoa(int(ds.Algorithm)) + "," +
		strconv.Itoa(int(ds.DigestType)) + "," +
		ds.Digest
}
