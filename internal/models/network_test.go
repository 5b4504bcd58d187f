package models

import (
	"strings"
	"testing"
)

func TestIPConfigValidateStatic(t *testing.T) {
	tests := []struct {
		name    string
		cfg     IPConfig
		wantErr string
	}{
		{
			name: "valid full config",
			cfg: IPConfig{
				Mode: IPModeStatic, Address: "192.168.1.50", PrefixLen: 24,
				Gateway: "192.168.1.1", DNS: []string{"1.1.1.1", "8.8.8.8"},
			},
		},
		{
			name: "valid without gateway",
			cfg:  IPConfig{Mode: IPModeStatic, Address: "10.0.0.5", PrefixLen: 8},
		},
		{
			name:    "missing address",
			cfg:     IPConfig{Mode: IPModeStatic, PrefixLen: 24},
			wantErr: "address",
		},
		{
			name:    "malformed address",
			cfg:     IPConfig{Mode: IPModeStatic, Address: "300.1.2.3", PrefixLen: 24},
			wantErr: "address",
		},
		{
			name:    "prefix too small",
			cfg:     IPConfig{Mode: IPModeStatic, Address: "192.168.1.50", PrefixLen: 0},
			wantErr: "prefix",
		},
		{
			name:    "prefix too large",
			cfg:     IPConfig{Mode: IPModeStatic, Address: "192.168.1.50", PrefixLen: 33},
			wantErr: "prefix",
		},
		{
			name: "gateway outside subnet",
			cfg: IPConfig{
				Mode: IPModeStatic, Address: "192.168.1.50", PrefixLen: 24,
				Gateway: "10.0.0.1",
			},
			wantErr: "gateway",
		},
		{
			name: "bad dns server",
			cfg: IPConfig{
				Mode: IPModeStatic, Address: "192.168.1.50", PrefixLen: 24,
				Gateway: "192.168.1.1", DNS: []string{"not-an-ip"},
			},
			wantErr: "dns",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() error = nil, want error")
			}
			if !strings.Contains(strings.ToLower(err.Error()), tt.wantErr) {
				t.Errorf("Validate() error = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestSignalPercent(t *testing.T) {
	tests := []struct {
		dbm  int
		want int
	}{
		{-100, 0},
		{-120, 0},
		{-75, 50},
		{-50, 100},
		{-30, 100},
	}
	for _, tt := range tests {
		if got := SignalPercent(tt.dbm); got != tt.want {
			t.Errorf("SignalPercent(%d) = %d, want %d", tt.dbm, got, tt.want)
		}
	}
}

func TestIsConfigured(t *testing.T) {
	ni := NetworkInterface{
		Name:  "eth0",
		State: StateUp,
		IP:    IPConfig{Mode: IPModeDHCP, Address: "192.168.1.100", PrefixLen: 24},
	}
	if !ni.IsConfigured() {
		t.Error("up interface with address should be configured")
	}

	ni.State = StateDown
	if ni.IsConfigured() {
		t.Error("down interface should not be configured")
	}

	ni.State = StateUp
	ni.IP = IPConfig{Mode: IPModeNone}
	if ni.IsConfigured() {
		t.Error("addressless interface should not be configured")
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		err  error
		want ErrCategory
	}{
		{ErrBusy, ErrCategoryBusy},
		{ErrNotFound, ErrCategoryPermanent},
		{ErrPermissionDenied, ErrCategoryPermanent},
		{ErrScanUnavailable, ErrCategoryTransient},
		{ErrAssociationFailed, ErrCategoryTransient},
	}
	for _, tt := range tests {
		wrapped := NewOpError("test", "eth0", tt.err)
		if got := Categorize(wrapped); got != tt.want {
			t.Errorf("Categorize(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
