package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"monolith.network/netpkg/internal/services"
	"monolith.network/netpkg/internal/services/dns"
)

// DNSService is the set of DNS operations the API exposes.
type DNSService interface {
	GetSettings(ctx context.Context) (*dns.Settings, error)
	UpdateSettings(ctx context.Context, s dns.Settings) (*dns.Settings, error)
	GetZones(ctx context.Context) ([]*dns.Zone, error)
	GetRecords(ctx context.Context, zone string) ([]*dns.Record, error)
	UpdateZone(ctx context.Context, z dns.Zone) (*dns.Zone, error)
	UpdateRecord(ctx context.Context, rec dns.Record) (*dns.Record, error)
	Generate(ctx context.Context) services.GenerationResult
	Control(ctx context.Context, action services.Action) error
	Status(ctx context.Context) (services.ServiceStatus, error)
}

var _ DNSService = (*dns.Manager)(nil)

func (s *Server) dnsRoutes(r chi.Router) {
	r.Get("/get-settings", s.handleDNSGetSettings)
	r.Post("/update-settings", s.handleDNSUpdateSettings)
	r.Get("/get-zones", s.handleDNSGetZones)
	r.Get("/get-records", s.handleDNSGetRecords)
	r.Post("/update-zone", s.handleDNSUpdateZone)
	r.Post("/update-record", s.handleDNSUpdateRecord)
	r.Post("/generate", s.handleDNSGenerate)
	r.Get("/service/status", s.handleDNSStatus)
	r.Post("/service/{action}", s.handleDNSControl)
}

func (s *Server) handleDNSGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.dns.GetSettings(r.Context())
	WriteResult(w, settings, err)
}

func (s *Server) handleDNSUpdateSettings(w http.ResponseWriter, r *http.Request) {
	current, err := s.dns.GetSettings(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	req := *current
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	updated, err := s.dns.UpdateSettings(r.Context(), req)
	WriteResult(w, updated, err)
}

func (s *Server) handleDNSGetZones(w http.ResponseWriter, r *http.Request) {
	zones, err := s.dns.GetZones(r.Context())
	WriteResult(w, zones, err)
}

func (s *Server) handleDNSGetRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.dns.GetRecords(r.Context(), r.URL.Query().Get("zone"))
	WriteResult(w, records, err)
}

func (s *Server) handleDNSUpdateZone(w http.ResponseWriter, r *http.Request) {
	req := dns.DefaultZone()
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	updated, err := s.dns.UpdateZone(r.Context(), req)
	WriteResult(w, updated, err)
}

func (s *Server) handleDNSUpdateRecord(w http.ResponseWriter, r *http.Request) {
	req := dns.DefaultRecord()
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	updated, err := s.dns.UpdateRecord(r.Context(), req)
	WriteResult(w, updated, err)
}

func (s *Server) handleDNSGenerate(w http.ResponseWriter, r *http.Request) {
	writeGeneration(w, s.dns.Generate(r.Context()))
}

func (s *Server) handleDNSStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.dns.Status(r.Context())
	WriteResult(w, st, err)
}

func (s *Server) handleDNSControl(w http.ResponseWriter, r *http.Request) {
	action := services.Action(chi.URLParam(r, "action"))
	err := s.dns.Control(r.Context(), action)
	WriteResult(w, map[string]string{"action": string(action)}, err)
}
