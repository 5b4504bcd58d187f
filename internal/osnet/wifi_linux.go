//go:build linux

package osnet

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/nuclearlighters/netcube/internal/models"
)

// IWScanner runs one `iw` scan pass per call.
type IWScanner struct{}

func (s *IWScanner) Scan(ctx context.Context, iface string) ([]models.WifiNetwork, error) {
	cmd := exec.CommandContext(ctx, "iw", "dev", iface, "scan")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, classifyExecErr("scan "+iface, string(output), err)
	}
	return parseIWScan(string(output)), nil
}

// parseIWScan extracts one WifiNetwork per BSS block. Deduplication and
// ordering are the scanner component's job, not the adapter's.
func parseIWScan(output string) []models.WifiNetwork {
	var networks []models.WifiNetwork
	var current *models.WifiNetwork
	var sawRSN, sawWPA, sawSAE, sawPrivacy bool

	flush := func() {
		if current == nil {
			return
		}
		current.Security = wifiSecurity(sawRSN, sawWPA, sawSAE, sawPrivacy)
		current.SignalPercent = models.SignalPercent(current.SignalDBM)
		if current.SSID != "" {
			networks = append(networks, *current)
		}
		current = nil
	}

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "BSS ") {
			flush()
			sawRSN, sawWPA, sawSAE, sawPrivacy = false, false, false, false
			bssid := strings.Fields(strings.TrimPrefix(line, "BSS "))[0]
			bssid = strings.SplitN(bssid, "(", 2)[0]
			current = &models.WifiNetwork{BSSID: strings.ToLower(bssid)}
			continue
		}
		if current == nil {
			continue
		}

		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "SSID: "):
			current.SSID = strings.TrimPrefix(trimmed, "SSID: ")
		case strings.HasPrefix(trimmed, "signal: "):
			val := strings.TrimSuffix(strings.TrimPrefix(trimmed, "signal: "), " dBm")
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				current.SignalDBM = int(f)
			}
		case strings.HasPrefix(trimmed, "DS Parameter set: channel "):
			current.Channel, _ = strconv.Atoi(strings.TrimPrefix(trimmed, "DS Parameter set: channel "))
		case strings.HasPrefix(trimmed, "RSN:"):
			sawRSN = true
		case strings.HasPrefix(trimmed, "WPA:"):
			sawWPA = true
		case strings.Contains(trimmed, "SAE"):
			sawSAE = true
		case strings.HasPrefix(trimmed, "capability:") && strings.Contains(trimmed, "Privacy"):
			sawPrivacy = true
		}
	}
	flush()
	return networks
}

func wifiSecurity(rsn, wpa, sae, privacy bool) models.WifiSecurity {
	switch {
	case rsn && sae:
		return models.SecurityWPA3
	case rsn:
		return models.SecurityWPA2
	case wpa:
		return models.SecurityWPA
	case privacy:
		return models.SecurityWEP
	default:
		return models.SecurityOpen
	}
}

// WPAJoiner drives wpa_supplicant through wpa_cli. Join returns once the
// supplicant reports COMPLETED; it does not wait for an address.
type WPAJoiner struct{}

func (j *WPAJoiner) Join(ctx context.Context, iface, ssid, credential string) error {
	id, err := j.run(ctx, iface, "add_network")
	if err != nil {
		return err
	}
	id = strings.TrimSpace(id)

	if _, err := j.run(ctx, iface, "set_network", id, "ssid", fmt.Sprintf("%q", ssid)); err != nil {
		return err
	}
	if credential == "" {
		if _, err := j.run(ctx, iface, "set_network", id, "key_mgmt", "NONE"); err != nil {
			return err
		}
	} else {
		if _, err := j.run(ctx, iface, "set_network", id, "psk", fmt.Sprintf("%q", credential)); err != nil {
			return err
		}
	}
	if _, err := j.run(ctx, iface, "select_network", id); err != nil {
		return err
	}
	return j.waitAssociated(ctx, iface)
}

// waitAssociated polls supplicant state until COMPLETED or the context ends.
func (j *WPAJoiner) waitAssociated(ctx context.Context, iface string) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		out, err := j.run(ctx, iface, "status")
		if err == nil && strings.Contains(out, "wpa_state=COMPLETED") {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: supplicant never reached COMPLETED on %s", models.ErrAssociationFailed, iface)
		case <-ticker.C:
		}
	}
}

func (j *WPAJoiner) run(ctx context.Context, iface string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "wpa_cli", append([]string{"-i", iface}, args...)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", classifyExecErr("wpa_cli "+args[0], string(output), err)
	}
	if strings.Contains(string(output), "FAIL") {
		return "", fmt.Errorf("%w: wpa_cli %s on %s", models.ErrAssociationFailed, args[0], iface)
	}
	return string(output), nil
}

// classifyExecErr maps command failures onto the error taxonomy by
// inspecting the tool's output.
func classifyExecErr(op, output string, err error) error {
	lower := strings.ToLower(output)
	switch {
	case strings.Contains(lower, "resource busy") || strings.Contains(lower, "device busy"):
		return fmt.Errorf("%s: %w: %s", op, models.ErrScanUnavailable, strings.TrimSpace(output))
	case strings.Contains(lower, "not permitted") || strings.Contains(lower, "permission denied"):
		return fmt.Errorf("%s: %w: %s", op, models.ErrPermissionDenied, strings.TrimSpace(output))
	case strings.Contains(lower, "no such device"):
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
