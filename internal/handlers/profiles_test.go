package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"
)

func TestWifiProfileLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "admin")

	// Create
	rr, body := env.request(t, "POST", "/api/v1/wifi/profiles", token,
		map[string]string{"ssid": "Home", "password": "secret123", "security": "wpa2"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", rr.Code)
	}
	id := body["id"].(string)
	if strings.Contains(rr.Body.String(), "secret123") {
		t.Error("profile response leaked the password")
	}

	// List
	rr, body = env.request(t, "GET", "/api/v1/wifi/profiles", token, nil)
	if rr.Code != http.StatusOK || body["count"].(float64) != 1 {
		t.Fatalf("list = %d count %v, want 200 count 1", rr.Code, body["count"])
	}
	if strings.Contains(rr.Body.String(), "secret123") {
		t.Error("profile list leaked the password")
	}

	// Activate joins the interface using the stored credential.
	rr, body = env.request(t, "POST", "/api/v1/wifi/profiles/"+id+"/activate", token,
		map[string]string{"interface": "wlan0"})
	if rr.Code != http.StatusOK {
		t.Fatalf("activate status = %d (body=%v), want 200", rr.Code, body)
	}
	if body["outcome"] != "applied" {
		t.Fatalf("activate outcome = %v, want applied", body["outcome"])
	}
	if env.fake.JoinedSSID != "Home" {
		t.Errorf("joined ssid = %q, want Home", env.fake.JoinedSSID)
	}

	// Get shows it active.
	rr, body = env.request(t, "GET", "/api/v1/wifi/profiles/"+id, token, nil)
	if rr.Code != http.StatusOK || body["active"] != true {
		t.Fatalf("get after activate = %d active %v, want 200 true", rr.Code, body["active"])
	}

	// Delete
	rr, _ = env.request(t, "DELETE", "/api/v1/wifi/profiles/"+id, token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", rr.Code)
	}
	rr, _ = env.request(t, "GET", "/api/v1/wifi/profiles/"+id, token, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", rr.Code)
	}
}

func TestWifiProfileActivateMissingInterface(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "admin")

	_, body := env.request(t, "POST", "/api/v1/wifi/profiles", token,
		map[string]string{"ssid": "Home", "password": "secret123"})
	id := body["id"].(string)

	rr, _ := env.request(t, "POST", "/api/v1/wifi/profiles/"+id+"/activate", token,
		map[string]string{})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("activate without interface = %d, want 400", rr.Code)
	}
}

func TestStaticIPProfileLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "admin")

	// Create
	rr, body := env.request(t, "POST", "/api/v1/static-ip/profiles", token,
		map[string]any{
			"interface": "eth0", "address": "192.168.1.50", "prefix_len": 24,
			"gateway": "192.168.1.1", "dns": []string{"1.1.1.1"},
		})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d (body=%v), want 201", rr.Code, body)
	}
	id := body["id"].(string)

	// Invalid config is rejected at save time.
	rr, _ = env.request(t, "POST", "/api/v1/static-ip/profiles", token,
		map[string]any{"interface": "eth1", "address": "192.168.1.50", "prefix_len": 24, "gateway": "10.0.0.1"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("create with bad gateway = %d, want 400", rr.Code)
	}

	// Enable applies the configuration to the host.
	rr, body = env.request(t, "POST", "/api/v1/static-ip/profiles/"+id+"/enable", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("enable status = %d (body=%v), want 200", rr.Code, body)
	}
	if body["outcome"] != "applied" {
		t.Fatalf("enable outcome = %v, want applied", body["outcome"])
	}
	ni, _ := env.fake.Get(context.Background(), "eth0")
	if ni.IP.Address != "192.168.1.50" {
		t.Errorf("eth0 address after enable = %s, want 192.168.1.50", ni.IP.Address)
	}

	// Disable only clears the flag.
	rr, _ = env.request(t, "POST", "/api/v1/static-ip/profiles/"+id+"/disable", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("disable status = %d, want 200", rr.Code)
	}
	rr, body = env.request(t, "GET", "/api/v1/static-ip/profiles/"+id, token, nil)
	if rr.Code != http.StatusOK || body["enabled"] != false {
		t.Fatalf("get after disable = %d enabled %v, want 200 false", rr.Code, body["enabled"])
	}

	// Delete
	rr, _ = env.request(t, "DELETE", "/api/v1/static-ip/profiles/"+id, token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", rr.Code)
	}
}
