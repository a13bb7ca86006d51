package model

import "time"

// EnhancementRequest is the orchestrator's input.
type EnhancementRequest struct {
	RequestID        string           `json:"request_id,omitempty"`
	RequesterID      string           `json:"requester_id,omitempty"`
	Message          string           `json:"message"`
	BaseResponse     string           `json:"base_response"`
	Concept          string           `json:"concept"`
	Traditions       []string         `json:"traditions,omitempty"`
	Intention        string           `json:"intention,omitempty"`
	CommunityConsent bool             `json:"community_consent,omitempty"`
	ElderPermission  bool             `json:"elder_permission,omitempty"`
	Profile          *CulturalProfile `json:"profile,omitempty"`
}

// StageReport records the outcome of one pipeline stage.
type StageReport struct {
	Name       string `json:"name"`
	OK         bool   `json:"ok"`
	Skipped    bool   `json:"skipped,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// ComplianceReport summarizes how protocols were applied to one request.
type ComplianceReport struct {
	ProfileSource      string        `json:"profile_source"`
	ProtocolsRespected bool          `json:"protocols_respected"`
	OptedOut           bool          `json:"opted_out,omitempty"`
	Safeguards         []string      `json:"safeguards,omitempty"`
	ThematicOverlap    []string      `json:"thematic_overlap,omitempty"`
	Stages             []StageReport `json:"stages"`
}

// EnhancementResult is the orchestrator's output. BaseResponsePreserved is always true.
type EnhancementResult struct {
	RequestID             string               `json:"request_id"`
	BaseResponsePreserved bool                 `json:"base_response_preserved"`
	Enhanced              bool                 `json:"enhanced"`
	EnhancedText          string               `json:"enhanced_text"`
	Permission            PermissionDecision   `json:"permission"`
	Decisions             []PermissionDecision `json:"decisions,omitempty"`
	Tradition             string               `json:"tradition,omitempty"`
	Translation           *ArchetypeExpression `json:"translation,omitempty"`
	NearestAnalogue       bool                 `json:"nearest_analogue,omitempty"`
	Shadow                *ShadowAssessment    `json:"shadow,omitempty"`
	Profile               CulturalProfile      `json:"profile"`
	Recommendations       []string             `json:"recommendations"`
	Attributions          []string             `json:"attributions"`
	Report                ComplianceReport     `json:"report"`
}

// ModuleState is a module's lifecycle state.
type ModuleState string

const (
	StateNotInitialized ModuleState = "not_initialized"
	StateInitializing   ModuleState = "initializing"
	StateReady          ModuleState = "ready"
	StateError          ModuleState = "error"
)

// ModuleStatus is a point-in-time view of one module.
type ModuleStatus struct {
	Name         string      `json:"name"`
	State        ModuleState `json:"state"`
	Dependencies []string    `json:"dependencies,omitempty"`
	Capabilities []string    `json:"capabilities,omitempty"`
	LastUpdated  time.Time   `json:"last_updated"`
	Error        string      `json:"error,omitempty"`
}

// OverallStatus summarizes system health.
type OverallStatus string

const (
	Healthy  OverallStatus = "healthy"
	Degraded OverallStatus = "degraded"
	Critical OverallStatus = "critical"
)

// HealthReport is the result of a health check across all modules.
type HealthReport struct {
	Overall            OverallStatus  `json:"overall"`
	Modules            []ModuleStatus `json:"modules"`
	Capabilities       []string       `json:"capabilities,omitempty"`
	RecommendedActions []string       `json:"recommended_actions"`
	CheckedAt          time.Time      `json:"checked_at"`
}
