package config

import (
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"monolith.network/netpkg/internal/fsutil"
)

// Render serializes cfg to HCL.
func Render(cfg *Config) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	body.SetAttributeValue("listen", cty.StringVal(cfg.Listen))
	body.SetAttributeValue("state_path", cty.StringVal(cfg.StatePath))
	body.SetAttributeValue("log_level", cty.StringVal(cfg.LogLevel))
	body.SetAttributeValue("log_json", cty.BoolVal(cfg.LogJSON))

	if d := cfg.DHCP; d != nil {
		body.AppendNewline()
		b := body.AppendNewBlock("dhcp", nil).Body()
		b.SetAttributeValue("config_path", cty.StringVal(d.ConfigPath))
		b.SetAttributeValue("defaults_path", cty.StringVal(d.DefaultsPath))
		b.SetAttributeValue("lease_file", cty.StringVal(d.LeaseFile))
		b.SetAttributeValue("service", cty.StringVal(d.Service))
		b.SetAttributeValue("watch_leases", cty.BoolVal(d.Watch()))
	}

	if d := cfg.DNS; d != nil {
		body.AppendNewline()
		b := body.AppendNewBlock("dns", nil).Body()
		b.SetAttributeValue("config_path", cty.StringVal(d.ConfigPath))
		b.SetAttributeValue("service", cty.StringVal(d.Service))
	}

	if i := cfg.Interfaces; i != nil {
		body.AppendNewline()
		b := body.AppendNewBlock("interfaces", nil).Body()
		b.SetAttributeValue("assignments_file", cty.StringVal(i.AssignmentsFile))
	}

	return hclwrite.Format(f.Bytes())
}

// WriteDefault writes the default configuration to path.
func WriteDefault(path string) error {
	return fsutil.WriteConfigFile(path, Render(Default()))
}
