package models

import "time"

// WifiProfile is a saved WiFi network configuration. At most one profile is
// active at a time; activating one deactivates the rest.
type WifiProfile struct {
	ID        string       `db:"id" json:"id"`
	SSID      string       `db:"ssid" json:"ssid"`
	Password  string       `db:"password" json:"-"`
	Security  WifiSecurity `db:"security" json:"security"`
	Active    bool         `db:"active" json:"active"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

// StaticIPProfile is a saved static IP configuration for one interface.
type StaticIPProfile struct {
	ID        string    `db:"id" json:"id"`
	Interface string    `db:"interface" json:"interface"`
	Config    IPConfig  `db:"-" json:"config"`
	Enabled   bool      `db:"enabled" json:"enabled"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
