package model

// Typed reasons for a failed nameserver or record check. Resolution failures
// are reportable outcomes, never errors that abort a verification.
const (
	ReasonTimeout        = "timeout"
	ReasonUnreachable    = "unreachable"
	ReasonDNSError       = "dns_error"
	ReasonNotFound       = "not_found"
	ReasonMismatch       = "mismatch"
	ReasonNsUnresolvable = "ns_unresolvable"
)

type NameserverCheck struct {
	Propagated bool     `json:"propagated"`
	Expected   []string `json:"expected,omitempty"`
	Actual     []string `json:"actual,omitempty"`
	Reason     string   `json:"reason,omitempty"`
}

type RecordCheck struct {
	RecordID   string   `json:"recordId,omitempty"`
	Type       string   `json:"type,omitempty"`
	Name       string   `json:"name,omitempty"`
	Propagated bool     `json:"propagated"`
	Expected   string   `json:"expected,omitempty"`
	Actual     []string `json:"actual,omitempty"`
	Reason     string   `json:"reason,omitempty"`
}

type VerifyResult struct {
	ZoneID        string          `json:"zoneId,omitempty"`
	Domain        string          `json:"domain,omitempty"`
	ZoneStatus    string          `json:"zoneStatus,omitempty"`
	AllPropagated bool            `json:"allPropagated"`
	Nameservers   NameserverCheck `json:"nameservers"`
	Records       []RecordCheck   `json:"records,omitempty"`
}
