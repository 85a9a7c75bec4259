// Package render turns configuration views into the text of the files
// consumed by isc-dhcp-server and dnsmasq.
package render

import (
	"bytes"
	"embed"
	"strings"
	"text/template"

	"monolith.network/netpkg/internal/errors"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Template names.
const (
	TemplateDHCPD        = "dhcpd.conf.tmpl"
	TemplateDHCPDefaults = "isc-dhcp-server.tmpl"
	TemplateDnsmasq      = "dnsmasq.conf.tmpl"
)

// Engine renders templates embedded in the package.
type Engine struct {
	templates *template.Template
}

var funcs = template.FuncMap{
	"join": func(items []string, sep string) string { return strings.Join(items, sep) },
}

// New initialises an Engine by parsing all embedded templates.
func New() (*Engine, error) {
	t, err := template.New("render").Funcs(funcs).ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "parse templates")
	}
	return &Engine{templates: t}, nil
}

// MustNew is New for package-level initialisation; the templates are
// compiled in, so a failure is a programming error.
func MustNew() *Engine {
	e, err := New()
	if err != nil {
		panic(err)
	}
	return e
}

// Render executes the named template with the provided data.
func (e *Engine) Render(name string, data any) ([]byte, error) {
	if e == nil || e.templates == nil {
		return nil, errors.New(errors.KindInternal, "nil render engine")
	}

	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, errors.Wrapf(err, errors.KindInternal, "render %s", name)
	}
	return buf.Bytes(), nil
}
