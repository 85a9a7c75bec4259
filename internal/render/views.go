package render

// DHCPConf is the data behind dhcpd.conf.
type DHCPConf struct {
	Header  []string
	Global  *DHCPGlobal
	Subnets []DHCPSubnet
}

// DHCPGlobal holds the server-wide directives. A nil Global omits the
// section.
type DHCPGlobal struct {
	DefaultLeaseTime int
	MaxLeaseTime     int
	DDNSUpdateStyle  string
	Authoritative    bool
}

// DHCPSubnet is one subnet declaration.
type DHCPSubnet struct {
	Name         string
	Network      string
	Netmask      string
	PoolStart    string
	PoolEnd      string
	Gateway      string
	DNSServers   []string
	Domain       string
	LeaseTime    int
	MaxLeaseTime int
	PolicyLines  []string
}

// DHCPDefaults is the data behind /etc/default/isc-dhcp-server.
type DHCPDefaults struct {
	Header     []string
	Interfaces []string
}

// DnsmasqConf is the data behind the dnsmasq drop-in.
type DnsmasqConf struct {
	Header      []string
	Interfaces  []string
	Domain      string
	Servers     []string
	Recursion   bool
	DNSSEC      bool
	TrustAnchor string
	LeaseFile   string
	LogQueries  bool
	Records     []string
}
