// Package handlers implements the HTTP surface of the service.
package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/nuclearlighters/netcube/internal/audit"
	"github.com/nuclearlighters/netcube/internal/config"
	"github.com/nuclearlighters/netcube/internal/engine"
	"github.com/nuclearlighters/netcube/internal/middleware"
	"github.com/nuclearlighters/netcube/internal/models"
	"github.com/nuclearlighters/netcube/internal/store"
	"github.com/nuclearlighters/netcube/internal/system"
)

// Handlers holds all handler dependencies
type Handlers struct {
	cfg       *config.Settings
	db        *sql.DB
	engine    *engine.Engine
	store     *store.Store
	audit     *audit.Store
	startTime time.Time
}

// NewHandlers creates a new Handlers instance
func NewHandlers(cfg *config.Settings, db *sql.DB, eng *engine.Engine, st *store.Store, auditStore *audit.Store) *Handlers {
	return &Handlers{
		cfg:       cfg,
		db:        db,
		engine:    eng,
		store:     st,
		audit:     auditStore,
		startTime: time.Now(),
	}
}

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Error: message, Code: status})
}

// writeResult maps an operation outcome to an HTTP status. Applied and
// PartiallyApplied both return 200 with the outcome in the body; busy
// rejections are 409, validation rejections 400, and failures map by error
// category.
func writeResult(w http.ResponseWriter, res models.OperationResult) {
	switch res.Outcome {
	case models.OutcomeApplied, models.OutcomePartial:
		writeJSON(w, http.StatusOK, res)
	case models.OutcomeRejected:
		if errors.Is(res.Err, models.ErrBusy) {
			writeJSON(w, http.StatusConflict, res)
			return
		}
		writeJSON(w, http.StatusBadRequest, res)
	case models.OutcomeFailed:
		writeJSON(w, failureStatus(w, res.Err), res)
	default:
		writeJSON(w, http.StatusInternalServerError, res)
	}
}

func failureStatus(w http.ResponseWriter, err error) int {
	switch models.Categorize(err) {
	case models.ErrCategoryTransient:
		w.Header().Set("Retry-After", "5")
		return http.StatusServiceUnavailable
	case models.ErrCategoryPermanent:
		if errors.Is(err, models.ErrNotFound) {
			return http.StatusNotFound
		}
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// =============================================================================
// Health
// =============================================================================

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startTime).Seconds()
	writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Version:   h.cfg.Version,
		Timestamp: time.Now(),
		Uptime:    uptime,
	})
}

// =============================================================================
// Authentication
// =============================================================================

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var user models.User
	err := h.db.QueryRowContext(r.Context(),
		"SELECT id, username, password_hash, role FROM users WHERE username = ?", req.Username,
	).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := middleware.GenerateToken(user.Username, user.Role, h.cfg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	h.db.ExecContext(r.Context(), "UPDATE users SET last_login = CURRENT_TIMESTAMP WHERE id = ?", user.ID)

	resp := models.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(h.cfg.AccessTokenExpiry.Seconds()),
	}
	resp.User.Username = user.Username
	resp.User.Role = user.Role
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) GetMe(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"username": claims.Username,
		"role":     claims.Role,
	})
}

func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.NewPassword) < 8 {
		writeError(w, http.StatusBadRequest, "New password must be at least 8 characters")
		return
	}

	var currentHash string
	err := h.db.QueryRowContext(r.Context(),
		"SELECT password_hash FROM users WHERE username = ?", claims.Username).Scan(&currentHash)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(currentHash), []byte(req.CurrentPassword)); err != nil {
		writeError(w, http.StatusUnauthorized, "Current password is incorrect")
		return
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	_, err = h.db.ExecContext(r.Context(),
		"UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE username = ?",
		string(newHash), claims.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// =============================================================================
// System
// =============================================================================

func (h *Handlers) GetSystemInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, system.Info(r.Context()))
}
