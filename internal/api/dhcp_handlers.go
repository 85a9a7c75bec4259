package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"monolith.network/netpkg/internal/services"
	"monolith.network/netpkg/internal/services/dhcp"
)

// DHCPService is the set of DHCP operations the API exposes.
type DHCPService interface {
	GetSettings(ctx context.Context) (*dhcp.GlobalSettings, error)
	UpdateSettings(ctx context.Context, s dhcp.GlobalSettings) (*dhcp.GlobalSettings, error)
	GetInterfaces(ctx context.Context) ([]*dhcp.InterfaceConfig, error)
	UpdateInterface(ctx context.Context, c dhcp.InterfaceConfig) (*dhcp.InterfaceConfig, error)
	GetLeases(ctx context.Context) ([]*dhcp.LeaseRecord, error)
	SyncLeases(ctx context.Context) (dhcp.ReconcileResult, error)
	Generate(ctx context.Context) services.GenerationResult
	Control(ctx context.Context, action services.Action) error
	Status(ctx context.Context) (services.ServiceStatus, error)
}

var _ DHCPService = (*dhcp.Manager)(nil)

func (s *Server) dhcpRoutes(r chi.Router) {
	r.Get("/get-settings", s.handleDHCPGetSettings)
	r.Post("/update-settings", s.handleDHCPUpdateSettings)
	r.Get("/get-interfaces", s.handleDHCPGetInterfaces)
	r.Post("/update-interface", s.handleDHCPUpdateInterface)
	r.Get("/get-leases", s.handleDHCPGetLeases)
	r.Get("/list-leases", s.handleDHCPGetLeases)
	r.Post("/sync-leases", s.handleDHCPSyncLeases)
	r.Post("/generate", s.handleDHCPGenerate)
	r.Get("/service/status", s.handleDHCPStatus)
	r.Post("/service/{action}", s.handleDHCPControl)
}

func (s *Server) handleDHCPGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.dhcp.GetSettings(r.Context())
	WriteResult(w, settings, err)
}

// handleDHCPUpdateSettings decodes the body over the current settings so
// omitted fields keep their values.
func (s *Server) handleDHCPUpdateSettings(w http.ResponseWriter, r *http.Request) {
	current, err := s.dhcp.GetSettings(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	req := *current
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	updated, err := s.dhcp.UpdateSettings(r.Context(), req)
	WriteResult(w, updated, err)
}

func (s *Server) handleDHCPGetInterfaces(w http.ResponseWriter, r *http.Request) {
	list, err := s.dhcp.GetInterfaces(r.Context())
	WriteResult(w, list, err)
}

// interfaceRequest also accepts the dns1..dns4 form fields.
type interfaceRequest struct {
	dhcp.InterfaceConfig
	DNS1 string `json:"dns1"`
	DNS2 string `json:"dns2"`
	DNS3 string `json:"dns3"`
	DNS4 string `json:"dns4"`
}

func (req *interfaceRequest) config() dhcp.InterfaceConfig {
	c := req.InterfaceConfig
	if len(c.DNSServers) == 0 {
		for _, d := range []string{req.DNS1, req.DNS2, req.DNS3, req.DNS4} {
			if d != "" {
				c.DNSServers = append(c.DNSServers, d)
			}
		}
	}
	return c
}

func (s *Server) handleDHCPUpdateInterface(w http.ResponseWriter, r *http.Request) {
	var req interfaceRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	updated, err := s.dhcp.UpdateInterface(r.Context(), req.config())
	WriteResult(w, updated, err)
}

func (s *Server) handleDHCPGetLeases(w http.ResponseWriter, r *http.Request) {
	leases, err := s.dhcp.GetLeases(r.Context())
	WriteResult(w, leases, err)
}

func (s *Server) handleDHCPSyncLeases(w http.ResponseWriter, r *http.Request) {
	res, err := s.dhcp.SyncLeases(r.Context())
	WriteResult(w, res, err)
}

func (s *Server) handleDHCPGenerate(w http.ResponseWriter, r *http.Request) {
	writeGeneration(w, s.dhcp.Generate(r.Context()))
}

func (s *Server) handleDHCPStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.dhcp.Status(r.Context())
	WriteResult(w, st, err)
}

func (s *Server) handleDHCPControl(w http.ResponseWriter, r *http.Request) {
	action := services.Action(chi.URLParam(r, "action"))
	err := s.dhcp.Control(r.Context(), action)
	WriteResult(w, map[string]string{"action": string(action)}, err)
}

func writeGeneration(w http.ResponseWriter, res services.GenerationResult) {
	status := http.StatusOK
	if !res.Success {
		status = http.StatusInternalServerError
	}
	WriteJSON(w, status, Envelope{Success: res.Success, Data: res, Error: res.Error})
}
