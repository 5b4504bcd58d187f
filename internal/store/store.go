// Package store persists saved WiFi and static IP profiles.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nuclearlighters/netcube/internal/models"
)

// Store provides CRUD over saved profiles. Activation and enablement go
// through the engine so they serialize with ad-hoc intents on the same
// interface.
type Store struct {
	db     *sql.DB
	engine Dispatcher
}

// Dispatcher is the subset of the engine the store needs to apply a saved
// profile to the host.
type Dispatcher interface {
	JoinWifi(ctx context.Context, iface, ssid, credential string) models.OperationResult
	SetStaticIP(ctx context.Context, iface string, cfg models.IPConfig) models.OperationResult
}

func New(db *sql.DB, engine Dispatcher) *Store {
	return &Store{db: db, engine: engine}
}

// =============================================================================
// WiFi profiles
// =============================================================================

// SaveWifiProfile inserts or updates the profile for an SSID.
func (s *Store) SaveWifiProfile(ctx context.Context, ssid, password string, security models.WifiSecurity) (*models.WifiProfile, error) {
	if ssid == "" {
		return nil, fmt.Errorf("save wifi profile: ssid is required")
	}
	if security == "" {
		security = models.SecurityWPA2
	}

	p := &models.WifiProfile{
		ID:       uuid.NewString(),
		SSID:     ssid,
		Password: password,
		Security: security,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wifi_profiles (id, ssid, password, security, active)
		VALUES (?, ?, ?, ?, FALSE)
		ON CONFLICT(ssid) DO UPDATE SET
			password = excluded.password,
			security = excluded.security
	`, p.ID, p.SSID, p.Password, string(p.Security))
	if err != nil {
		return nil, fmt.Errorf("save wifi profile: %w", err)
	}

	// The upsert keeps the existing row's id on conflict, so read it back.
	return s.wifiProfileBySSID(ctx, ssid)
}

// ListWifiProfiles returns all saved profiles, newest first. Passwords are
// loaded but the JSON encoding of WifiProfile never emits them.
func (s *Store) ListWifiProfiles(ctx context.Context) ([]models.WifiProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ssid, password, security, active, created_at
		FROM wifi_profiles ORDER BY created_at DESC, ssid
	`)
	if err != nil {
		return nil, fmt.Errorf("list wifi profiles: %w", err)
	}
	defer rows.Close()

	var out []models.WifiProfile
	for rows.Next() {
		var p models.WifiProfile
		var sec string
		if err := rows.Scan(&p.ID, &p.SSID, &p.Password, &sec, &p.Active, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("list wifi profiles: %w", err)
		}
		p.Security = models.WifiSecurity(sec)
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetWifiProfile returns one profile by id.
func (s *Store) GetWifiProfile(ctx context.Context, id string) (*models.WifiProfile, error) {
	var p models.WifiProfile
	var sec string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, ssid, password, security, active, created_at
		FROM wifi_profiles WHERE id = ?
	`, id).Scan(&p.ID, &p.SSID, &p.Password, &sec, &p.Active, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("wifi profile %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get wifi profile: %w", err)
	}
	p.Security = models.WifiSecurity(sec)
	return &p, nil
}

func (s *Store) wifiProfileBySSID(ctx context.Context, ssid string) (*models.WifiProfile, error) {
	var p models.WifiProfile
	var sec string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, ssid, password, security, active, created_at
		FROM wifi_profiles WHERE ssid = ?
	`, ssid).Scan(&p.ID, &p.SSID, &p.Password, &sec, &p.Active, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("wifi profile for %q: %w", ssid, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get wifi profile: %w", err)
	}
	p.Security = models.WifiSecurity(sec)
	return &p, nil
}

// DeleteWifiProfile removes a profile. Deleting the active profile does not
// disconnect the host; it only forgets the credential.
func (s *Store) DeleteWifiProfile(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM wifi_profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete wifi profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("wifi profile %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// ActivateWifiProfile joins the saved network on iface and, on success or
// partial success, marks that profile as the single active one. A failed
// join leaves the previous activation state untouched.
func (s *Store) ActivateWifiProfile(ctx context.Context, id, iface string) (models.OperationResult, error) {
	p, err := s.GetWifiProfile(ctx, id)
	if err != nil {
		return models.OperationResult{}, err
	}

	res := s.engine.JoinWifi(ctx, iface, p.SSID, p.Password)
	if res.Outcome == models.OutcomeApplied || res.Outcome == models.OutcomePartial {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return res, fmt.Errorf("activate wifi profile: %w", err)
		}
		defer tx.Rollback()
		if _, err := tx.ExecContext(ctx, `UPDATE wifi_profiles SET active = FALSE WHERE active = TRUE`); err != nil {
			return res, fmt.Errorf("activate wifi profile: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE wifi_profiles SET active = TRUE WHERE id = ?`, id); err != nil {
			return res, fmt.Errorf("activate wifi profile: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return res, fmt.Errorf("activate wifi profile: %w", err)
		}
	}
	return res, nil
}

// =============================================================================
// Static IP profiles
// =============================================================================

// SaveStaticIPProfile inserts or updates the profile for an interface.
func (s *Store) SaveStaticIPProfile(ctx context.Context, iface string, cfg models.IPConfig) (*models.StaticIPProfile, error) {
	if iface == "" {
		return nil, fmt.Errorf("save static ip profile: interface is required")
	}
	cfg.Mode = models.IPModeStatic
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("save static ip profile: %w", err)
	}

	dnsJSON, err := json.Marshal(cfg.DNS)
	if err != nil {
		return nil, fmt.Errorf("save static ip profile: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO static_ip_profiles (id, interface, address, prefix_len, gateway, dns, enabled)
		VALUES (?, ?, ?, ?, ?, ?, FALSE)
		ON CONFLICT(interface) DO UPDATE SET
			address = excluded.address,
			prefix_len = excluded.prefix_len,
			gateway = excluded.gateway,
			dns = excluded.dns
	`, id, iface, cfg.Address, cfg.PrefixLen, cfg.Gateway, string(dnsJSON))
	if err != nil {
		return nil, fmt.Errorf("save static ip profile: %w", err)
	}
	return s.staticProfileByInterface(ctx, iface)
}

// ListStaticIPProfiles returns all saved static configurations.
func (s *Store) ListStaticIPProfiles(ctx context.Context) ([]models.StaticIPProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, interface, address, prefix_len, gateway, dns, enabled, created_at
		FROM static_ip_profiles ORDER BY interface
	`)
	if err != nil {
		return nil, fmt.Errorf("list static ip profiles: %w", err)
	}
	defer rows.Close()

	var out []models.StaticIPProfile
	for rows.Next() {
		p, err := scanStaticProfile(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list static ip profiles: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// GetStaticIPProfile returns one profile by id.
func (s *Store) GetStaticIPProfile(ctx context.Context, id string) (*models.StaticIPProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, interface, address, prefix_len, gateway, dns, enabled, created_at
		FROM static_ip_profiles WHERE id = ?
	`, id)
	p, err := scanStaticProfile(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("static ip profile %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get static ip profile: %w", err)
	}
	return p, nil
}

func (s *Store) staticProfileByInterface(ctx context.Context, iface string) (*models.StaticIPProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, interface, address, prefix_len, gateway, dns, enabled, created_at
		FROM static_ip_profiles WHERE interface = ?
	`, iface)
	p, err := scanStaticProfile(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("static ip profile for %s: %w", iface, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get static ip profile: %w", err)
	}
	return p, nil
}

func scanStaticProfile(scan func(dest ...any) error) (*models.StaticIPProfile, error) {
	var p models.StaticIPProfile
	var dnsJSON string
	if err := scan(&p.ID, &p.Interface, &p.Config.Address, &p.Config.PrefixLen,
		&p.Config.Gateway, &dnsJSON, &p.Enabled, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Config.Mode = models.IPModeStatic
	if err := json.Unmarshal([]byte(dnsJSON), &p.Config.DNS); err != nil {
		return nil, fmt.Errorf("decode dns list: %w", err)
	}
	return &p, nil
}

// DeleteStaticIPProfile removes a profile without touching the live
// configuration of its interface.
func (s *Store) DeleteStaticIPProfile(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM static_ip_profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete static ip profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("static ip profile %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// EnableStaticIPProfile applies the saved configuration to its interface
// and marks the profile enabled when the apply lands (fully or partially).
func (s *Store) EnableStaticIPProfile(ctx context.Context, id string) (models.OperationResult, error) {
	p, err := s.GetStaticIPProfile(ctx, id)
	if err != nil {
		return models.OperationResult{}, err
	}

	res := s.engine.SetStaticIP(ctx, p.Interface, p.Config)
	if res.Outcome == models.OutcomeApplied || res.Outcome == models.OutcomePartial {
		if _, err := s.db.ExecContext(ctx, `UPDATE static_ip_profiles SET enabled = TRUE WHERE id = ?`, id); err != nil {
			return res, fmt.Errorf("enable static ip profile: %w", err)
		}
	}
	return res, nil
}

// DisableStaticIPProfile clears the enabled flag. The live configuration is
// left as-is; reverting to DHCP is a separate, explicit operation.
func (s *Store) DisableStaticIPProfile(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE static_ip_profiles SET enabled = FALSE WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("disable static ip profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("static ip profile %s: %w", id, models.ErrNotFound)
	}
	return nil
}
