package dhcp

import (
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"monolith.network/netpkg/internal/errors"
	"monolith.network/netpkg/internal/logging"
	"monolith.network/netpkg/internal/state"
	"monolith.network/netpkg/internal/validation"
)

var (
	leaseHeaderRe = regexp.MustCompile(`(?m)^[ \t]*lease[ \t]+([^\s{]+)[ \t]*\{`)
	blockCloseRe  = regexp.MustCompile(`(?m)^[ \t]*\}`)
	hardwareRe    = regexp.MustCompile(`(?m)^\s*hardware\s+ethernet\s+([0-9A-Fa-f]{1,2}(?::[0-9A-Fa-f]{1,2}){5})\s*;`)
	hostnameRe    = regexp.MustCompile(`(?m)^\s*client-hostname\s+"([^"]*)"\s*;`)
	startsRe      = regexp.MustCompile(`(?m)^\s*starts\s+([^;]+);`)
	endsRe        = regexp.MustCompile(`(?m)^\s*ends\s+([^;]+);`)
)

// ParseLeaseFile reads and parses an ISC dhcpd.leases file. A missing file
// yields no leases.
func ParseLeaseFile(path string, now time.Time) ([]Lease, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.KindIO, "failed to read lease file")
	}
	return ParseLeases(string(data), now), nil
}

// ParseLeases extracts one Lease per `lease <ip> { ... }` block that carries
// a valid hardware address. Blocks are returned in file order; repeated MACs
// are kept. Malformed blocks, including ones whose closing brace is missing
// before the next lease header, are skipped.
func ParseLeases(content string, now time.Time) []Lease {
	log := logging.WithComponent("leases")

	var leases []Lease
	headers := leaseHeaderRe.FindAllStringSubmatchIndex(content, -1)
	for i, h := range headers {
		ip := content[h[2]:h[3]]
		end := len(content)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		chunk := content[h[1]:end]
		closing := blockCloseRe.FindStringIndex(chunk)
		if closing == nil {
			log.Warn("skipping unterminated lease block", "ip", ip)
			continue
		}
		body := chunk[:closing[0]]

		if net.ParseIP(ip) == nil {
			log.Debug("skipping lease block with bad address", "ip", ip)
			continue
		}

		hw := hardwareRe.FindStringSubmatch(body)
		if hw == nil {
			continue
		}
		mac := state.NormalizeMAC(padMAC(hw[1]))
		if err := validation.ValidateMAC(mac); err != nil {
			log.Debug("skipping lease block with bad hardware address", "ip", ip, "mac", hw[1])
			continue
		}

		lease := Lease{
			MAC: mac,
			IP:  ip,
		}
		if h := hostnameRe.FindStringSubmatch(body); h != nil {
			lease.Hostname = h[1]
		}
		if s := startsRe.FindStringSubmatch(body); s != nil {
			lease.Start = parseLeaseTime(s[1])
		}
		if e := endsRe.FindStringSubmatch(body); e != nil {
			lease.End = parseLeaseTime(e[1])
		}
		lease.State = deriveState(lease.End, body, now)

		leases = append(leases, lease)
	}
	return leases
}

// deriveState applies, in order: a past end time means expired, then the
// binding state text, then active.
func deriveState(end time.Time, body string, now time.Time) LeaseState {
	if !end.IsZero() && end.Before(now) {
		return LeaseExpired
	}
	lower := strings.ToLower(body)
	switch {
	case strings.Contains(lower, "binding state active"):
		return LeaseActive
	case strings.Contains(lower, "binding state free"):
		return LeaseFree
	default:
		return LeaseActive
	}
}

// parseLeaseTime parses the value of a starts/ends statement:
//
//	4 2024/01/15 10:30:45   weekday token optional
//	epoch 1705314645        db-time-format local
//	never
//
// Dates are read in local time. Unparseable values yield the zero time.
func parseLeaseTime(v string) time.Time {
	fields := strings.Fields(v)
	if len(fields) == 0 || fields[0] == "never" {
		return time.Time{}
	}

	if fields[0] == "epoch" {
		if len(fields) < 2 {
			return time.Time{}
		}
		sec, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return time.Time{}
		}
		return time.Unix(sec, 0)
	}

	// Drop the weekday digit when present.
	if len(fields) == 3 && len(fields[0]) == 1 {
		fields = fields[1:]
	}
	if len(fields) != 2 {
		return time.Time{}
	}

	date := strings.ReplaceAll(fields[0], "/", "-")
	t, err := time.ParseInLocation("2006-1-2 15:04:05", date+" "+fields[1], time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

// padMAC zero-pads single-digit octets ("0:1b:..." becomes "00:1b:...").
func padMAC(mac string) string {
	parts := strings.Split(mac, ":")
	for i, p := range parts {
		if len(p) == 1 {
			parts[i] = "0" + p
		}
	}
	return strings.Join(parts, ":")
}
