package models

import "time"

// IntentKind names the kinds of configuration intents the engine accepts.
type IntentKind string

const (
	IntentScan        IntentKind = "scan"
	IntentJoinWifi    IntentKind = "join_wifi"
	IntentSetStaticIP IntentKind = "set_static_ip"
)

// Intent is a caller-issued request to change or query one interface's
// state. It is created per request and consumed exactly once by the engine.
type Intent struct {
	Kind      IntentKind
	Interface string

	// JoinWifi fields
	SSID       string
	Credential string

	// SetStaticIP field
	IP *IPConfig
}

// Outcome is the terminal disposition of an intent.
type Outcome string

const (
	// OutcomeApplied means the goal state was reached and verified.
	OutcomeApplied Outcome = "applied"
	// OutcomePartial means host state changed but the goal was not fully
	// reached. Callers must not treat this as either success or failure.
	OutcomePartial Outcome = "partially_applied"
	// OutcomeRejected means the intent was refused before any OS interaction.
	OutcomeRejected Outcome = "rejected"
	// OutcomeFailed means the OS interaction failed and host state is as it
	// was before the attempt.
	OutcomeFailed Outcome = "failed"
)

// OperationResult is the terminal outcome of one intent.
type OperationResult struct {
	Outcome   Outcome            `json:"outcome"`
	Interface string             `json:"interface"`
	Snapshot  *NetworkInterface  `json:"snapshot,omitempty"`
	Networks  []WifiNetwork      `json:"networks,omitempty"`
	Warning   string             `json:"warning,omitempty"`
	Reason    string             `json:"reason,omitempty"`
	Err       error              `json:"-"`
	Finished  time.Time          `json:"finished_at"`
}

// Applied builds a success result carrying the verified snapshot.
func Applied(iface string, snap *NetworkInterface) OperationResult {
	return OperationResult{Outcome: OutcomeApplied, Interface: iface, Snapshot: snap, Finished: time.Now()}
}

// Partial builds a partially-applied result. The snapshot reflects the state
// the host was actually left in.
func Partial(iface string, snap *NetworkInterface, warning string) OperationResult {
	return OperationResult{Outcome: OutcomePartial, Interface: iface, Snapshot: snap, Warning: warning, Finished: time.Now()}
}

// Rejected builds a rejection result; no OS state was touched.
func Rejected(iface, reason string) OperationResult {
	return OperationResult{Outcome: OutcomeRejected, Interface: iface, Reason: reason, Finished: time.Now()}
}

// Failed builds a failure result wrapping the cause.
func Failed(iface string, err error) OperationResult {
	return OperationResult{Outcome: OutcomeFailed, Interface: iface, Err: err, Finished: time.Now()}
}

// ScanResult builds a success result for a completed scan pass.
func ScanResult(iface string, networks []WifiNetwork) OperationResult {
	return OperationResult{Outcome: OutcomeApplied, Interface: iface, Networks: networks, Finished: time.Now()}
}
