package audit

// Entry types.
const (
	TypeDecision    = "permission_decision"
	TypeSharing     = "sharing_check"
	TypeEnhancement = "enhancement"
)

// Enhancement and sharing outcomes stored in AuditEntry.Decision.
const (
	OutcomeEnhanced  = "enhanced"
	OutcomeUnchanged = "unchanged"
	OutcomeOptedOut  = "opted_out"
	OutcomeValid     = "valid"
	OutcomeInvalid   = "invalid"
)

// AuditEntry is one line in the hash-chained JSONL log.
// Fields are flat structs so json.Marshal output is byte-stable for hashing.
// Requester text is never recorded; only the decision and its provenance.
type AuditEntry struct {
	Timestamp    string `json:"ts"`
	Type         string `json:"type"`
	RequestID    string `json:"request_id"`
	RequesterID  string `json:"requester_id,omitempty"`
	Tradition    string `json:"tradition"`
	Level        string `json:"level,omitempty"`
	Decision     string `json:"decision"`
	PolicyID     string `json:"policy_id,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Respected    bool   `json:"protocols_respected,omitempty"`
	Insights     int    `json:"insights,omitempty"`
	RegistryHash string `json:"registry_hash"`
	PrevHash     string `json:"prev_hash"`
}
