// Package ifaces exposes the network interfaces known to the appliance:
// the administrator's role assignments and the links present on the system.
package ifaces

import (
	"context"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"monolith.network/netpkg/internal/errors"
	"monolith.network/netpkg/internal/logging"
)

// Role is the function an interface plays on the firewall.
type Role string

const (
	RoleLAN  Role = "lan"
	RoleWAN  Role = "wan"
	RoleDMZ  Role = "dmz"
	RoleNone Role = ""
)

// Assignment binds an interface to a role and, optionally, an address.
type Assignment struct {
	Interface    string `json:"interface"`
	Role         Role   `json:"role"`
	IPAddress    string `json:"ipAddress,omitempty"`
	PrefixLength int    `json:"prefixLength,omitempty"`
}

// AssignmentStore returns the current interface-role assignments.
type AssignmentStore interface {
	GetAssignments(ctx context.Context) ([]Assignment, error)
}

// FindRole returns the first assignment with the given role.
func FindRole(assignments []Assignment, role Role) (Assignment, bool) {
	for _, a := range assignments {
		if a.Role == role {
			return a, true
		}
	}
	return Assignment{}, false
}

// FileStore reads assignments from an INI file with one section per
// interface:
//
//	[eth1]
//	role    = lan
//	address = 192.168.1.1
//	prefix  = 24
type FileStore struct {
	Path string
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// GetAssignments parses the file. A missing file yields no assignments.
func (s *FileStore) GetAssignments(_ context.Context) ([]Assignment, error) {
	if _, err := os.Stat(s.Path); os.IsNotExist(err) {
		return nil, nil
	}

	cfg, err := ini.LoadSources(ini.LoadOptions{InsensitiveKeys: true}, s.Path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindParse, "failed to read interface assignments from %s", s.Path)
	}

	var out []Assignment
	for _, section := range cfg.Sections() {
		name := section.Name()
		if name == ini.DefaultSection {
			continue
		}
		a := Assignment{
			Interface:    name,
			Role:         Role(strings.ToLower(section.Key("role").String())),
			IPAddress:    section.Key("address").String(),
			PrefixLength: section.Key("prefix").MustInt(0),
		}
		if ip, prefix, ok := strings.Cut(a.IPAddress, "/"); ok {
			a.IPAddress = ip
			if p, err := strconv.Atoi(prefix); err == nil && p >= 0 && p <= 32 {
				a.PrefixLength = p
			} else {
				logging.WithComponent("ifaces").Warn("ignoring bad prefix", "interface", name, "value", prefix)
			}
		}
		out = append(out, a)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Interface < out[j].Interface })
	return out, nil
}
