package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nuclearlighters/netcube/internal/models"
)

// =============================================================================
// Interface enumeration
// =============================================================================

// GetInterfaces returns all host interfaces. With ?detailed=true each entry
// carries traffic counters as well.
func (h *Handlers) GetInterfaces(w http.ResponseWriter, r *http.Request) {
	var (
		ifaces []models.NetworkInterface
		err    error
	)
	if r.URL.Query().Get("detailed") == "true" {
		ifaces, err = h.engine.ListInterfacesDetailed(r.Context())
	} else {
		ifaces, err = h.engine.ListInterfaces(r.Context())
	}
	if err != nil {
		if errors.Is(err, models.ErrPermissionDenied) {
			writeError(w, http.StatusForbidden, "Permission denied querying interfaces")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to enumerate interfaces")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"interfaces": ifaces,
		"count":      len(ifaces),
	})
}

// GetInterface returns the current snapshot of a single interface.
func (h *Handlers) GetInterface(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ni, err := h.engine.GetInterface(r.Context(), name)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Interface not found: "+name)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to query interface")
		return
	}
	writeJSON(w, http.StatusOK, ni)
}

// =============================================================================
// WiFi
// =============================================================================

// ScanWifi triggers a scan on the given interface and returns the visible
// networks inline, strongest first.
func (h *Handlers) ScanWifi(w http.ResponseWriter, r *http.Request) {
	iface := chi.URLParam(r, "iface")

	ctx := r.Context()
	if h.cfg.ScanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.ScanTimeout)
		defer cancel()
	}
	writeResult(w, h.engine.Scan(ctx, iface))
}

// ConnectWifi joins the interface to a network. The credential is consumed
// here and never appears in the response or the logs.
func (h *Handlers) ConnectWifi(w http.ResponseWriter, r *http.Request) {
	iface := chi.URLParam(r, "iface")

	var req struct {
		SSID     string `json:"ssid"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SSID == "" {
		writeError(w, http.StatusBadRequest, "ssid is required")
		return
	}

	writeResult(w, h.engine.JoinWifi(r.Context(), iface, req.SSID, req.Password))
}

// =============================================================================
// Static IP
// =============================================================================

// SetStaticIP applies a static configuration to the interface.
func (h *Handlers) SetStaticIP(w http.ResponseWriter, r *http.Request) {
	iface := chi.URLParam(r, "iface")

	var req struct {
		Address   string   `json:"address"`
		PrefixLen int      `json:"prefix_len"`
		Gateway   string   `json:"gateway"`
		DNS       []string `json:"dns"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cfg := models.IPConfig{
		Mode:      models.IPModeStatic,
		Address:   req.Address,
		PrefixLen: req.PrefixLen,
		Gateway:   req.Gateway,
		DNS:       req.DNS,
	}
	writeResult(w, h.engine.SetStaticIP(r.Context(), iface, cfg))
}

// =============================================================================
// Audit trail
// =============================================================================

// GetAuditEvents returns recent operations, newest first.
func (h *Handlers) GetAuditEvents(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := h.audit.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read audit trail")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}
