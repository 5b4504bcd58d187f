package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nuclearlighters/netcube/internal/models"
)

// =============================================================================
// WiFi profiles
// =============================================================================

func (h *Handlers) ListWifiProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.ListWifiProfiles(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list profiles")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"profiles": profiles,
		"count":    len(profiles),
	})
}

func (h *Handlers) CreateWifiProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SSID     string `json:"ssid"`
		Password string `json:"password"`
		Security string `json:"security"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SSID == "" {
		writeError(w, http.StatusBadRequest, "ssid is required")
		return
	}

	p, err := h.store.SaveWifiProfile(r.Context(), req.SSID, req.Password, models.WifiSecurity(req.Security))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save profile")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handlers) GetWifiProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetWifiProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) DeleteWifiProfile(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteWifiProfile(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete profile")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ActivateWifiProfile joins the saved network on the requested interface.
// The stored credential is used directly; the caller never sees it.
func (h *Handlers) ActivateWifiProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Interface string `json:"interface"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Interface == "" {
		writeError(w, http.StatusBadRequest, "interface is required")
		return
	}

	res, err := h.store.ActivateWifiProfile(r.Context(), chi.URLParam(r, "id"), req.Interface)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to activate profile")
		return
	}
	writeResult(w, res)
}

// =============================================================================
// Static IP profiles
// =============================================================================

func (h *Handlers) ListStaticIPProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.ListStaticIPProfiles(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list profiles")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"profiles": profiles,
		"count":    len(profiles),
	})
}

func (h *Handlers) CreateStaticIPProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Interface string   `json:"interface"`
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
	p, err := h.store.SaveStaticIPProfile(r.Context(), req.Interface, cfg)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handlers) GetStaticIPProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetStaticIPProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) DeleteStaticIPProfile(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteStaticIPProfile(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete profile")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handlers) EnableStaticIPProfile(w http.ResponseWriter, r *http.Request) {
	res, err := h.store.EnableStaticIPProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to enable profile")
		return
	}
	writeResult(w, res)
}

func (h *Handlers) DisableStaticIPProfile(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DisableStaticIPProfile(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to disable profile")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
}
